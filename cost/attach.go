// Package cost attaches provider-supplied cost figures to resources.
// Kartta carries no pricing logic of its own: adapters copy whatever the
// provider reported into well-known property keys and this package lifts
// them into the typed CostEstimate.
package cost

import (
	"strconv"

	"github.com/yairfalse/kartta/types"
)

// Property keys adapters use for provider-reported cost figures.
const (
	PropertyAmount   = "cost_amount"
	PropertyCurrency = "cost_currency"
)

const defaultCurrency = "USD"

// Attach lifts provider-supplied cost properties into Resource.Cost.
// Resources without cost properties are left untouched. Must run before
// the snapshot is frozen.
func Attach(resources []types.Resource) {
	for i := range resources {
		if estimate, ok := estimateFrom(resources[i].Properties); ok {
			resources[i].Cost = estimate
		}
	}
}

func estimateFrom(properties map[string]string) (*types.CostEstimate, bool) {
	raw, ok := properties[PropertyAmount]
	if !ok {
		return nil, false
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil || amount < 0 {
		return nil, false
	}
	currency := properties[PropertyCurrency]
	if currency == "" {
		currency = defaultCurrency
	}
	return &types.CostEstimate{Amount: amount, Currency: currency}, true
}

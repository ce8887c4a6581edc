// Package resolver builds the dependency edge set over a frozen snapshot.
package resolver

import (
	"fmt"

	"github.com/yairfalse/kartta/types"
)

// RuleSet maps a source resource type to the relation its references
// produce. The table is configuration data, not code: provider docs only
// describe reference fields informally, so deployments tune it in YAML and
// validate against real samples.
type RuleSet struct {
	relations map[string]types.Relation
	fallback  types.Relation
}

// DefaultRules covers the common cases: networking containers contain,
// traffic distributors route, everything else attaches.
func DefaultRules() *RuleSet {
	return &RuleSet{
		relations: map[string]types.Relation{
			types.TypeVirtualNetwork: types.RelationContains,
			types.TypeSubnet:         types.RelationContains,
			types.TypeResourceGroup:  types.RelationContains,
			types.TypeLoadBalancer:   types.RelationRoutesTo,
			types.TypeTargetGroup:    types.RelationRoutesTo,
			types.TypeQueue:          types.RelationRoutesTo,
		},
		fallback: types.RelationAttached,
	}
}

// NewRuleSet builds a rule set from configuration overrides layered on the
// defaults. Relation names must be attached, routes-to or contains.
func NewRuleSet(overrides map[string]string) (*RuleSet, error) {
	rules := DefaultRules()
	for resourceType, relation := range overrides {
		switch types.Relation(relation) {
		case types.RelationAttached, types.RelationRoutesTo, types.RelationContains:
			rules.relations[resourceType] = types.Relation(relation)
		default:
			return nil, fmt.Errorf("unknown relation %q for resource type %s", relation, resourceType)
		}
	}
	return rules, nil
}

// RelationFor returns the relation edges from this resource type carry.
func (rs *RuleSet) RelationFor(resourceType string) types.Relation {
	if rel, ok := rs.relations[resourceType]; ok {
		return rel
	}
	return rs.fallback
}

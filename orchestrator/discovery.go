package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/yairfalse/kartta/internal/filter"
	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

// runDiscovery is the cache-miss path: authenticate each provider once,
// list every scope through bounded worker pools, then freeze the merged
// result. The accumulator is returned even on failure so callers can
// report retry counts.
func (o *Orchestrator) runDiscovery(ctx context.Context, scope types.Scope) (*types.Snapshot, *accumulator, error) {
	acc := newAccumulator()

	var wg sync.WaitGroup
	for _, name := range scope.Providers {
		adapter, ok := o.adapters[name]
		if !ok {
			acc.addFailure(name, "", fmt.Errorf("no adapter registered for provider %q", name))
			continue
		}
		wg.Add(1)
		go func(name string, adapter providers.Adapter) {
			defer wg.Done()
			o.discoverProvider(ctx, adapter, scope, acc)
		}(name, adapter)
	}
	wg.Wait()

	// A cancelled run must not be frozen or cached; waiters sharing the
	// flight get the error instead of a truncated snapshot.
	if err := ctx.Err(); err != nil {
		return nil, acc, err
	}

	if acc.allFailed() {
		return nil, acc, fmt.Errorf("discovery produced no results: every provider scope failed")
	}

	scopeFilter := filter.FromScope(scope)
	snapshot := acc.freeze(scopeFilter, o.rules)

	o.logger.WithContext(ctx).Info().
		Str("discovery_id", snapshot.DiscoveryID).
		Int("resources", len(snapshot.Resources)).
		Int("edges", len(snapshot.Edges)).
		Int("provider_errors", len(snapshot.ProviderErrors)).
		Msg("discovery complete")

	return snapshot, acc, nil
}

// discoverProvider authenticates once, then lists each region or group
// through a bounded worker pool. An authentication failure marks the
// whole provider failed without burning retry budget.
func (o *Orchestrator) discoverProvider(ctx context.Context, adapter providers.Adapter, scope types.Scope, acc *accumulator) {
	name := adapter.Name()

	retries, err := o.coord.Do(ctx, name, adapter.Authenticate)
	acc.addRetries(name, retries)
	o.metrics.RecordRetries(ctx, name, retries)
	if err != nil {
		acc.addFailure(name, "auth", err)
		o.logger.LogProviderFailure(ctx, name, "auth", err)
		return
	}

	scopes := o.listScopes(adapter, scope)
	work := make(chan providers.ListScope)

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ls := range work {
				o.listOne(ctx, adapter, ls, acc)
			}
		}()
	}

	for _, ls := range scopes {
		work <- ls
	}
	close(work)
	wg.Wait()
}

// listOne runs a single list scope under the retry coordinator. The
// batch is merged only after the listing succeeds end to end, so a
// retried listing never double-counts pages.
func (o *Orchestrator) listOne(ctx context.Context, adapter providers.Adapter, ls providers.ListScope, acc *accumulator) {
	name := adapter.Name()

	var batch []types.Resource
	retries, err := o.coord.Do(ctx, name, func(ctx context.Context) error {
		got, listErr := adapter.ListResources(ctx, ls)
		if listErr != nil {
			return listErr
		}
		batch = got
		return nil
	})

	acc.addRetries(name, retries)
	o.metrics.RecordRetries(ctx, name, retries)

	if err != nil {
		acc.addFailure(name, ls.String(), err)
		o.logger.LogProviderFailure(ctx, name, ls.String(), err)
		return
	}

	acc.addSuccess(batch)
	o.metrics.RecordDiscovered(ctx, name, ls.String(), len(batch))
}

// listScopes expands a discovery scope into the per-call slices one
// adapter handles: one per region, one per Azure resource group, or a
// single unbounded scope when neither applies.
func (o *Orchestrator) listScopes(adapter providers.Adapter, scope types.Scope) []providers.ListScope {
	name := adapter.Name()
	account := scope.AccountFor(name)

	if name == types.ProviderAzure && len(scope.ResourceGroups) > 0 {
		scopes := make([]providers.ListScope, 0, len(scope.ResourceGroups))
		for _, group := range scope.ResourceGroups {
			scopes = append(scopes, providers.ListScope{Account: account, Group: group})
		}
		return scopes
	}

	regions := scope.RegionsFor(name)
	if len(regions) == 0 {
		regions = adapter.Regions()
	}
	if len(regions) == 0 {
		return []providers.ListScope{{Account: account}}
	}

	scopes := make([]providers.ListScope, 0, len(regions))
	for _, region := range regions {
		scopes = append(scopes, providers.ListScope{Region: region, Account: account})
	}
	return scopes
}

package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yairfalse/kartta/cost"
	"github.com/yairfalse/kartta/internal/filter"
	"github.com/yairfalse/kartta/resolver"
	"github.com/yairfalse/kartta/types"
)

// accumulator merges resource batches arriving from concurrent listing
// workers. Duplicate IDs are dropped on arrival, first writer wins, so a
// resource visible through two list scopes appears once in the snapshot.
type accumulator struct {
	mu        sync.Mutex
	resources []types.Resource
	seen      map[string]bool
	errors    []types.ProviderError
	retries   map[string]int
	attempted int
	failed    int
}

func newAccumulator() *accumulator {
	return &accumulator{
		seen:    make(map[string]bool),
		retries: make(map[string]int),
	}
}

// addSuccess merges one list scope's batch.
func (a *accumulator) addSuccess(batch []types.Resource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempted++
	for _, r := range batch {
		if r.ID == "" || a.seen[r.ID] {
			continue
		}
		a.seen[r.ID] = true
		a.resources = append(a.resources, r)
	}
}

// addFailure records one list scope that produced nothing.
func (a *accumulator) addFailure(provider, scope string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempted++
	a.failed++
	a.errors = append(a.errors, types.ProviderError{
		Provider: provider,
		Scope:    scope,
		Message:  err.Error(),
	})
}

func (a *accumulator) addRetries(provider string, n int) {
	if n == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.retries[provider] += n
}

// allFailed reports whether every attempted list scope failed.
func (a *accumulator) allFailed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempted > 0 && a.failed == a.attempted
}

func (a *accumulator) retrySnapshot() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int, len(a.retries))
	for k, v := range a.retries {
		out[k] = v
	}
	return out
}

// freeze applies scope filters, lifts cost estimates, resolves edges and
// seals the result. The accumulator must not be reused afterwards.
func (a *accumulator) freeze(scopeFilter *filter.Filter, rules *resolver.RuleSet) *types.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	resources := scopeFilter.Apply(a.resources)
	cost.Attach(resources)

	return &types.Snapshot{
		DiscoveryID:    uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		Resources:      resources,
		Edges:          resolver.Resolve(resources, rules),
		ProviderErrors: a.errors,
	}
}

package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/kartta/cache"
	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/ratelimit"
	"github.com/yairfalse/kartta/types"
)

// fakeAdapter scripts per-region results and failures.
type fakeAdapter struct {
	name      string
	regions   []string
	resources map[string][]types.Resource
	authErr   error
	// listErr is consulted per call; nil means success.
	listErr func(region string, call int) error

	mu        sync.Mutex
	authCalls int
	listCalls int
}

func (f *fakeAdapter) Name() string      { return f.name }
func (f *fakeAdapter) Regions() []string { return f.regions }

func (f *fakeAdapter) Authenticate(ctx context.Context) error {
	f.mu.Lock()
	f.authCalls++
	f.mu.Unlock()
	return f.authErr
}

func (f *fakeAdapter) ListResources(ctx context.Context, scope providers.ListScope) ([]types.Resource, error) {
	f.mu.Lock()
	f.listCalls++
	call := f.listCalls
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.listErr != nil {
		if err := f.listErr(scope.Region, call); err != nil {
			return nil, err
		}
	}
	return f.resources[scope.Region], nil
}

func (f *fakeAdapter) calls() (auth, list int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls, f.listCalls
}

func fastCoordinator() *ratelimit.Coordinator {
	policy := ratelimit.Policy{
		MaxAttempts:       4,
		TransientAttempts: 2,
		BaseDelay:         time.Millisecond,
		MaxDelay:          2 * time.Millisecond,
		Jitter:            func(d time.Duration) time.Duration { return d },
	}
	return ratelimit.NewCoordinator(policy, 1000, 100)
}

func newTestOrchestrator(t *testing.T, ttl time.Duration, adapters ...providers.Adapter) *Orchestrator {
	t.Helper()
	byName := make(map[string]providers.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	store := cache.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	o, err := New(Options{
		Adapters:    byName,
		Store:       store,
		Coordinator: fastCoordinator(),
		Workers:     2,
		CacheTTL:    ttl,
	})
	require.NoError(t, err)
	return o
}

func vm(id, provider, region string, refs ...string) types.Resource {
	return types.Resource{
		ID:             id,
		Name:           id,
		Type:           types.TypeVirtualMachine,
		Provider:       provider,
		Region:         region,
		DependencyRefs: refs,
	}
}

func subnet(id, provider, region string) types.Resource {
	return types.Resource{
		ID:       id,
		Name:     id,
		Type:     types.TypeSubnet,
		Provider: provider,
		Region:   region,
	}
}

func TestDiscoverMergesProviders(t *testing.T) {
	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1", "eu-west-1"},
		resources: map[string][]types.Resource{
			"us-east-1": {vm("i-1", types.ProviderAWS, "us-east-1", "subnet-1"), subnet("subnet-1", types.ProviderAWS, "us-east-1")},
			"eu-west-1": {vm("i-2", types.ProviderAWS, "eu-west-1", "missing-subnet")},
		},
	}
	gcp := &fakeAdapter{
		name:    types.ProviderGCP,
		regions: []string{"us-central1"},
		resources: map[string][]types.Resource{
			"us-central1": {vm("gce-1", types.ProviderGCP, "us-central1")},
		},
	}

	o := newTestOrchestrator(t, time.Minute, aws, gcp)
	scope := types.Scope{Providers: []string{types.ProviderAWS, types.ProviderGCP}}

	snapshot, job, err := o.Discover(context.Background(), scope)
	require.NoError(t, err)

	assert.Equal(t, types.JobCompleted, job.Status)
	assert.Equal(t, 4, job.ResourceCount)
	assert.Equal(t, snapshot.DiscoveryID, job.ResultID)
	assert.Len(t, snapshot.Resources, 4)
	assert.Empty(t, snapshot.ProviderErrors)

	// i-1 -> subnet-1 resolved by rule; i-2's dangling ref stays visible
	// as an unresolved external edge.
	var attached, unresolved int
	for _, edge := range snapshot.Edges {
		switch edge.Relation {
		case types.RelationAttached:
			attached++
		case types.RelationUnresolvedExternal:
			unresolved++
		}
	}
	assert.Equal(t, 1, attached)
	assert.Equal(t, 1, unresolved)

	authCalls, _ := aws.calls()
	assert.Equal(t, 1, authCalls, "authenticate once per provider per run")
}

func TestDiscoverDeduplicatesAcrossScopes(t *testing.T) {
	shared := vm("dup-1", types.ProviderAWS, "us-east-1")
	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1", "us-west-2"},
		resources: map[string][]types.Resource{
			"us-east-1": {shared},
			"us-west-2": {shared},
		},
	}

	o := newTestOrchestrator(t, time.Minute, aws)
	snapshot, _, err := o.Discover(context.Background(), types.Scope{Providers: []string{types.ProviderAWS}})
	require.NoError(t, err)

	assert.Len(t, snapshot.Resources, 1)
}

func TestDiscoverServesConcurrentCallersFromOneRun(t *testing.T) {
	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1"},
		resources: map[string][]types.Resource{
			"us-east-1": {vm("i-1", types.ProviderAWS, "us-east-1")},
		},
	}

	o := newTestOrchestrator(t, time.Minute, aws)
	scope := types.Scope{Providers: []string{types.ProviderAWS}}

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snapshot, _, err := o.Discover(context.Background(), scope)
			require.NoError(t, err)
			ids[i] = snapshot.DiscoveryID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id, "all concurrent callers share one snapshot")
	}
	_, listCalls := aws.calls()
	assert.Equal(t, 1, listCalls, "one upstream listing for identical concurrent scopes")
}

func TestDiscoverPartialWhenOneProviderFails(t *testing.T) {
	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1"},
		resources: map[string][]types.Resource{
			"us-east-1": {vm("i-1", types.ProviderAWS, "us-east-1")},
		},
	}
	azure := &fakeAdapter{
		name:    types.ProviderAzure,
		regions: []string{"westeurope"},
		listErr: func(string, int) error {
			return errors.New("subscription listing broke")
		},
	}

	o := newTestOrchestrator(t, time.Minute, aws, azure)
	scope := types.Scope{Providers: []string{types.ProviderAWS, types.ProviderAzure}}

	snapshot, job, err := o.Discover(context.Background(), scope)
	require.NoError(t, err)

	assert.Equal(t, types.JobPartial, job.Status)
	assert.Len(t, snapshot.Resources, 1)
	require.Len(t, snapshot.ProviderErrors, 1)
	assert.Equal(t, types.ProviderAzure, snapshot.ProviderErrors[0].Provider)
	assert.Contains(t, job.PerProviderErrors[types.ProviderAzure][0], "subscription listing broke")

	// Partial snapshots are cached like complete ones.
	second, _, err := o.Discover(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, snapshot.DiscoveryID, second.DiscoveryID)
}

func TestDiscoverAuthFailureSkipsListing(t *testing.T) {
	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1"},
		resources: map[string][]types.Resource{
			"us-east-1": {vm("i-1", types.ProviderAWS, "us-east-1")},
		},
	}
	gcp := &fakeAdapter{
		name:    types.ProviderGCP,
		regions: []string{"us-central1"},
		authErr: &providers.AuthError{Provider: types.ProviderGCP, Err: errors.New("bad key")},
	}

	o := newTestOrchestrator(t, time.Minute, aws, gcp)
	scope := types.Scope{Providers: []string{types.ProviderAWS, types.ProviderGCP}}

	snapshot, job, err := o.Discover(context.Background(), scope)
	require.NoError(t, err)

	assert.Equal(t, types.JobPartial, job.Status)
	require.Len(t, snapshot.ProviderErrors, 1)
	assert.Equal(t, "auth", snapshot.ProviderErrors[0].Scope)

	authCalls, listCalls := gcp.calls()
	assert.Equal(t, 1, authCalls, "auth errors are never retried")
	assert.Zero(t, listCalls, "failed auth skips listing entirely")
}

func TestDiscoverRetriesRateLimits(t *testing.T) {
	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1"},
		resources: map[string][]types.Resource{
			"us-east-1": {vm("i-1", types.ProviderAWS, "us-east-1")},
		},
		listErr: func(region string, call int) error {
			// First two listing calls throttle, third succeeds.
			if call <= 2 {
				return &providers.RateLimitError{Provider: types.ProviderAWS, Err: errors.New("throttled")}
			}
			return nil
		},
	}

	o := newTestOrchestrator(t, time.Minute, aws)
	snapshot, job, err := o.Discover(context.Background(), types.Scope{Providers: []string{types.ProviderAWS}})
	require.NoError(t, err)

	assert.Equal(t, types.JobCompleted, job.Status)
	assert.Len(t, snapshot.Resources, 1)
	assert.Equal(t, 2, job.PerProviderRetries[types.ProviderAWS])
}

func TestDiscoverFailsWhenEveryScopeFails(t *testing.T) {
	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1"},
		listErr: func(string, int) error { return errors.New("hard down") },
	}

	o := newTestOrchestrator(t, time.Minute, aws)
	scope := types.Scope{Providers: []string{types.ProviderAWS}}

	_, job, err := o.Discover(context.Background(), scope)
	require.Error(t, err)
	assert.Equal(t, types.JobFailed, job.Status)
	assert.NotEmpty(t, job.Reason)

	// Failures are not cached: a later call goes upstream again.
	_, before := aws.calls()
	_, _, err = o.Discover(context.Background(), scope)
	require.Error(t, err)
	_, after := aws.calls()
	assert.Greater(t, after, before)
}

func TestDiscoverRecomputesAfterTTL(t *testing.T) {
	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1"},
		resources: map[string][]types.Resource{
			"us-east-1": {vm("i-1", types.ProviderAWS, "us-east-1")},
		},
	}

	o := newTestOrchestrator(t, 30*time.Millisecond, aws)
	scope := types.Scope{Providers: []string{types.ProviderAWS}}

	first, _, err := o.Discover(context.Background(), scope)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	second, _, err := o.Discover(context.Background(), scope)
	require.NoError(t, err)

	assert.NotEqual(t, first.DiscoveryID, second.DiscoveryID, "expired entries are recomputed")
	_, listCalls := aws.calls()
	assert.Equal(t, 2, listCalls)
}

func TestDiscoverDifferentScopesDoNotShareCache(t *testing.T) {
	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1", "us-west-2"},
		resources: map[string][]types.Resource{
			"us-east-1": {vm("i-1", types.ProviderAWS, "us-east-1")},
			"us-west-2": {vm("i-2", types.ProviderAWS, "us-west-2")},
		},
	}

	o := newTestOrchestrator(t, time.Minute, aws)

	east, _, err := o.Discover(context.Background(), types.Scope{
		Providers: []string{types.ProviderAWS},
		Regions:   map[string][]string{types.ProviderAWS: {"us-east-1"}},
	})
	require.NoError(t, err)

	west, _, err := o.Discover(context.Background(), types.Scope{
		Providers: []string{types.ProviderAWS},
		Regions:   map[string][]string{types.ProviderAWS: {"us-west-2"}},
	})
	require.NoError(t, err)

	assert.NotEqual(t, east.DiscoveryID, west.DiscoveryID)
	assert.NotEqual(t, east.Resources[0].ID, west.Resources[0].ID)
}

func TestDiscoverCancelledRunIsNotCached(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1"},
		resources: map[string][]types.Resource{
			"us-east-1": {vm("i-1", types.ProviderAWS, "us-east-1")},
		},
		listErr: func(_ string, call int) error {
			if call == 1 {
				cancel()
				return context.Canceled
			}
			return nil
		},
	}

	o := newTestOrchestrator(t, time.Minute, aws)
	scope := types.Scope{Providers: []string{types.ProviderAWS}}

	_, job, err := o.Discover(ctx, scope)
	require.Error(t, err)
	assert.Equal(t, types.JobFailed, job.Status)

	// A fresh context must trigger a full new run.
	snapshot, _, err := o.Discover(context.Background(), scope)
	require.NoError(t, err)
	assert.Len(t, snapshot.Resources, 1)
}

func TestDiscoverUnknownProviderIsRecorded(t *testing.T) {
	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1"},
		resources: map[string][]types.Resource{
			"us-east-1": {vm("i-1", types.ProviderAWS, "us-east-1")},
		},
	}

	o := newTestOrchestrator(t, time.Minute, aws)
	snapshot, job, err := o.Discover(context.Background(), types.Scope{
		Providers: []string{types.ProviderAWS, "digitalocean"},
	})
	require.NoError(t, err)

	assert.Equal(t, types.JobPartial, job.Status)
	require.Len(t, snapshot.ProviderErrors, 1)
	assert.Equal(t, "digitalocean", snapshot.ProviderErrors[0].Provider)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1"},
		resources: map[string][]types.Resource{
			"us-east-1": {vm("i-1", types.ProviderAWS, "us-east-1")},
		},
	}

	o := newTestOrchestrator(t, time.Minute, aws)
	scope := types.Scope{Providers: []string{types.ProviderAWS}}

	first, _, err := o.Discover(context.Background(), scope)
	require.NoError(t, err)

	require.NoError(t, o.Invalidate(scope))

	second, _, err := o.Discover(context.Background(), scope)
	require.NoError(t, err)
	assert.NotEqual(t, first.DiscoveryID, second.DiscoveryID)
}

func TestJobTracking(t *testing.T) {
	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1"},
		resources: map[string][]types.Resource{
			"us-east-1": {vm("i-1", types.ProviderAWS, "us-east-1")},
		},
	}

	o := newTestOrchestrator(t, time.Minute, aws)
	_, job, err := o.Discover(context.Background(), types.Scope{Providers: []string{types.ProviderAWS}})
	require.NoError(t, err)

	tracked, ok := o.Job(job.ID)
	require.True(t, ok)
	assert.True(t, tracked.Status.Terminal())
	assert.False(t, tracked.CompletedAt.IsZero())

	all := o.Jobs()
	require.Len(t, all, 1)
	assert.Equal(t, job.ID, all[0].ID)
}

func TestDiscoverAttachesCostProperties(t *testing.T) {
	priced := vm("i-priced", types.ProviderAWS, "us-east-1")
	priced.Properties = map[string]string{"cost_amount": "12.50", "cost_currency": "EUR"}
	unpriced := vm("i-unpriced", types.ProviderAWS, "us-east-1")

	aws := &fakeAdapter{
		name:    types.ProviderAWS,
		regions: []string{"us-east-1"},
		resources: map[string][]types.Resource{
			"us-east-1": {priced, unpriced},
		},
	}

	o := newTestOrchestrator(t, time.Minute, aws)
	snapshot, _, err := o.Discover(context.Background(), types.Scope{Providers: []string{types.ProviderAWS}})
	require.NoError(t, err)

	byID := make(map[string]types.Resource, len(snapshot.Resources))
	for _, r := range snapshot.Resources {
		byID[r.ID] = r
	}
	require.NotNil(t, byID["i-priced"].Cost)
	assert.Equal(t, 12.5, byID["i-priced"].Cost.Amount)
	assert.Equal(t, "EUR", byID["i-priced"].Cost.Currency)
	assert.Nil(t, byID["i-unpriced"].Cost)
}

func TestTrackerEvictsOldestTerminalJobs(t *testing.T) {
	tracker := NewTracker()
	tracker.max = 3

	base := time.Now()
	tracker.add(&types.DiscoveryJob{ID: "job-0", Status: types.JobCompleted, StartedAt: base})
	tracker.add(&types.DiscoveryJob{ID: "job-1", Status: types.JobRunning, StartedAt: base.Add(time.Minute)})
	tracker.add(&types.DiscoveryJob{ID: "job-2", Status: types.JobFailed, StartedAt: base.Add(2 * time.Minute)})
	tracker.add(&types.DiscoveryJob{ID: "job-3", Status: types.JobCompleted, StartedAt: base.Add(3 * time.Minute)})
	tracker.add(&types.DiscoveryJob{ID: "job-4", Status: types.JobCompleted, StartedAt: base.Add(4 * time.Minute)})

	jobs := tracker.List()
	require.Len(t, jobs, 3)

	// The two oldest terminal jobs are gone; the running job survives
	// eviction even though it is older.
	_, ok := tracker.Get("job-0")
	assert.False(t, ok)
	_, ok = tracker.Get("job-2")
	assert.False(t, ok)
	_, ok = tracker.Get("job-1")
	assert.True(t, ok)
	_, ok = tracker.Get("job-4")
	assert.True(t, ok)
}

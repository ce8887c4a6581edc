// Package orchestrator fans a discovery scope out across provider
// adapters, merges the results into an immutable snapshot, and serves
// repeat requests from cache.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yairfalse/kartta/cache"
	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/ratelimit"
	"github.com/yairfalse/kartta/resolver"
	"github.com/yairfalse/kartta/telemetry"
	"github.com/yairfalse/kartta/types"
)

// Options wires the orchestrator's collaborators.
type Options struct {
	// Adapters maps provider name to a ready adapter.
	Adapters map[string]providers.Adapter
	// Store backs the snapshot cache. Required.
	Store cache.Store
	// Coordinator gates and retries provider calls. Nil gets defaults.
	Coordinator *ratelimit.Coordinator
	// Rules drive dependency resolution. Nil gets the built-in table.
	Rules *resolver.RuleSet
	// Workers bounds concurrent region listings per provider.
	Workers int
	// CacheTTL is how long snapshots stay fresh.
	CacheTTL time.Duration
}

// Orchestrator runs discovery jobs. Safe for concurrent use.
type Orchestrator struct {
	adapters map[string]providers.Adapter
	cache    *cache.Manager[*types.Snapshot]
	coord    *ratelimit.Coordinator
	rules    *resolver.RuleSet
	workers  int
	ttl      time.Duration
	jobs     *Tracker
	logger   *telemetry.Logger
	metrics  *telemetry.Metrics
}

// New builds an orchestrator from options, filling in defaults for
// everything but the adapters and the store.
func New(opts Options) (*Orchestrator, error) {
	if len(opts.Adapters) == 0 {
		return nil, fmt.Errorf("at least one adapter is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if opts.Coordinator == nil {
		opts.Coordinator = ratelimit.NewCoordinator(ratelimit.DefaultPolicy(), 10, 5)
	}
	if opts.Rules == nil {
		opts.Rules = resolver.DefaultRules()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		adapters: opts.Adapters,
		cache:    cache.NewManager[*types.Snapshot](opts.Store),
		coord:    opts.Coordinator,
		rules:    opts.Rules,
		workers:  opts.Workers,
		ttl:      opts.CacheTTL,
		jobs:     NewTracker(),
		logger:   telemetry.NewLogger("orchestrator"),
		metrics:  metrics,
	}, nil
}

// Discover satisfies the scope from cache when a fresh snapshot exists,
// otherwise it runs discovery. Identical scopes arriving concurrently
// share one upstream run and receive the same snapshot.
func (o *Orchestrator) Discover(ctx context.Context, scope types.Scope) (*types.Snapshot, types.DiscoveryJob, error) {
	job := &types.DiscoveryJob{
		ID:        uuid.NewString(),
		Scope:     scope,
		Status:    types.JobRunning,
		StartedAt: time.Now().UTC(),
	}
	o.jobs.add(job)

	started := time.Now()
	computed := false
	var retries map[string]int

	snapshot, err := o.cache.GetOrCompute(ctx, scope.CacheKey(), o.ttl, func(ctx context.Context) (*types.Snapshot, error) {
		computed = true
		snap, acc, err := o.runDiscovery(ctx, scope)
		if acc != nil {
			retries = acc.retrySnapshot()
		}
		return snap, err
	})

	if computed {
		o.metrics.RecordCacheMiss(ctx)
	} else {
		o.metrics.RecordCacheHit(ctx)
	}

	if err != nil {
		o.jobs.update(job.ID, func(j *types.DiscoveryJob) {
			j.Status = types.JobFailed
			j.CompletedAt = time.Now().UTC()
			j.Reason = err.Error()
			j.PerProviderRetries = retries
		})
		o.metrics.RecordDiscoveryDuration(ctx, time.Since(started).Seconds(), string(types.JobFailed))
		final, _ := o.jobs.Get(job.ID)
		return nil, final, err
	}

	status := types.JobCompleted
	if len(snapshot.ProviderErrors) > 0 {
		status = types.JobPartial
	}
	o.jobs.update(job.ID, func(j *types.DiscoveryJob) {
		j.Status = status
		j.CompletedAt = time.Now().UTC()
		j.ResourceCount = len(snapshot.Resources)
		j.ResultID = snapshot.DiscoveryID
		j.PerProviderRetries = retries
		j.PerProviderErrors = groupErrors(snapshot.ProviderErrors)
	})
	o.metrics.RecordDiscoveryDuration(ctx, time.Since(started).Seconds(), string(status))

	final, _ := o.jobs.Get(job.ID)
	return snapshot, final, nil
}

// Job returns a copy of a tracked job.
func (o *Orchestrator) Job(id string) (types.DiscoveryJob, bool) {
	return o.jobs.Get(id)
}

// Jobs returns copies of all tracked jobs, newest first.
func (o *Orchestrator) Jobs() []types.DiscoveryJob {
	return o.jobs.List()
}

// Invalidate drops any cached snapshot for the scope so the next
// Discover goes upstream.
func (o *Orchestrator) Invalidate(scope types.Scope) error {
	return o.cache.Invalidate(scope.CacheKey())
}

func groupErrors(errs []types.ProviderError) map[string][]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string][]string)
	for _, pe := range errs {
		msg := pe.Message
		if pe.Scope != "" {
			msg = pe.Scope + ": " + msg
		}
		out[pe.Provider] = append(out[pe.Provider], msg)
	}
	return out
}

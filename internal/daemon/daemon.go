// Package daemon runs discovery on an interval and serves metrics and
// health endpoints while doing so.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yairfalse/kartta/orchestrator"
	"github.com/yairfalse/kartta/telemetry"
	"github.com/yairfalse/kartta/types"
)

// Config holds daemon configuration
type Config struct {
	Interval    time.Duration
	MetricsPort int
	Scope       types.Scope
	// RunTimeout bounds one discovery run.
	RunTimeout time.Duration
}

// Daemon manages the periodic discovery loop.
type Daemon struct {
	orch        *orchestrator.Orchestrator
	scope       types.Scope
	interval    time.Duration
	runTimeout  time.Duration
	metricsPort int
	startTime   time.Time
	runCount    atomic.Int64
	metrics     *Metrics
	logger      *telemetry.Logger
}

// New creates a daemon around a ready orchestrator.
func New(orch *orchestrator.Orchestrator, cfg Config) (*Daemon, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = cfg.Interval
	}
	if cfg.MetricsPort <= 0 {
		cfg.MetricsPort = 2112
	}

	metrics, err := NewMetrics()
	if err != nil {
		return nil, err
	}

	return &Daemon{
		orch:        orch,
		scope:       cfg.Scope,
		interval:    cfg.Interval,
		runTimeout:  cfg.RunTimeout,
		metricsPort: cfg.MetricsPort,
		startTime:   time.Now(),
		metrics:     metrics,
		logger:      telemetry.NewLogger("daemon"),
	}, nil
}

// Run blocks until the context is cancelled or a component fails. The
// discovery loop and the HTTP server run as one actor group so either
// one going down stops the other.
func (d *Daemon) Run(ctx context.Context) error {
	var group run.Group

	loopCtx, cancelLoop := context.WithCancel(ctx)
	group.Add(func() error {
		return d.discoveryLoop(loopCtx)
	}, func(error) {
		cancelLoop()
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", d.metricsPort),
		Handler:           d.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	group.Add(func() error {
		d.logger.WithContext(ctx).Info().
			Str("addr", server.Addr).
			Msg("starting metrics server")
		err := server.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})

	return group.Run()
}

func (d *Daemon) discoveryLoop(ctx context.Context) error {
	// First run immediately, then on the ticker.
	d.runOnce(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

func (d *Daemon) runOnce(ctx context.Context) {
	d.runCount.Add(1)
	started := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, d.runTimeout)
	defer cancel()

	// Each periodic run wants fresh data, not the previous tick's
	// snapshot.
	if err := d.orch.Invalidate(d.scope); err != nil {
		d.logger.WithContext(ctx).Warn().Err(err).Msg("cache invalidation failed")
	}

	snapshot, job, err := d.orch.Discover(runCtx, d.scope)
	if err != nil {
		d.metrics.RecordRun(ctx, string(types.JobFailed), time.Since(started).Seconds())
		d.logger.WithContext(ctx).Error().Err(err).Msg("discovery run failed")
		return
	}

	d.metrics.RecordRun(ctx, string(job.Status), time.Since(started).Seconds())
	d.metrics.RecordSnapshotSize(ctx, len(snapshot.Resources), len(snapshot.Edges))
	d.logger.WithContext(ctx).Info().
		Str("discovery_id", snapshot.DiscoveryID).
		Str("status", string(job.Status)).
		Int("resources", len(snapshot.Resources)).
		Msg("discovery run finished")
}

func (d *Daemon) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", d.handleHealth)
	mux.HandleFunc("/-/healthy", d.handleHealth)
	mux.HandleFunc("/jobs", d.handleJobs)
	return mux
}

// HealthStatus reports daemon liveness.
type HealthStatus struct {
	Status string `json:"status"`
	Uptime int64  `json:"uptime_seconds"`
	Runs   int64  `json:"runs"`
}

// Health returns the current health status.
func (d *Daemon) Health() HealthStatus {
	return HealthStatus{
		Status: "healthy",
		Uptime: int64(time.Since(d.startTime).Seconds()),
		Runs:   d.runCount.Load(),
	}
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d.Health())
}

func (d *Daemon) handleJobs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(d.orch.Jobs())
}

// RunCount returns total discovery runs.
func (d *Daemon) RunCount() int64 {
	return d.runCount.Load()
}

package daemon

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds daemon loop metrics using OTEL semantic conventions.
type Metrics struct {
	runs        metric.Int64Counter
	runDuration metric.Float64Histogram
	resources   metric.Int64Gauge
	edges       metric.Int64Gauge
}

// NewMetrics creates daemon metrics.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("kartta.daemon")

	runs, err := meter.Int64Counter(
		"kartta.daemon.runs",
		metric.WithDescription("Number of discovery runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"kartta.daemon.run.duration",
		metric.WithDescription("Duration of discovery runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	resources, err := meter.Int64Gauge(
		"kartta.snapshot.resources",
		metric.WithDescription("Resources in the latest snapshot"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, err
	}

	edges, err := meter.Int64Gauge(
		"kartta.snapshot.edges",
		metric.WithDescription("Dependency edges in the latest snapshot"),
		metric.WithUnit("{edge}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		runs:        runs,
		runDuration: runDuration,
		resources:   resources,
		edges:       edges,
	}, nil
}

// RecordRun records one discovery run with its terminal status.
func (m *Metrics) RecordRun(ctx context.Context, status string, durationSeconds float64) {
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.runDuration.Record(ctx, durationSeconds, metric.WithAttributes(attribute.String("status", status)))
}

// RecordSnapshotSize records the latest snapshot's size.
func (m *Metrics) RecordSnapshotSize(ctx context.Context, resources, edges int) {
	m.resources.Record(ctx, int64(resources))
	m.edges.Record(ctx, int64(edges))
}

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds discovery counters using OTEL semantic conventions.
type Metrics struct {
	resourcesDiscovered metric.Int64Counter
	recordsSkipped      metric.Int64Counter
	retryEvents         metric.Int64Counter
	cacheHits           metric.Int64Counter
	cacheMisses         metric.Int64Counter
	discoveryDuration   metric.Float64Histogram
}

// NewMetrics creates discovery metrics on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("kartta.discovery")

	resourcesDiscovered, err := meter.Int64Counter(
		"kartta.resources.discovered",
		metric.WithDescription("Number of cloud resources discovered"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, err
	}

	recordsSkipped, err := meter.Int64Counter(
		"kartta.records.skipped",
		metric.WithDescription("Provider records skipped due to mapping failures"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	retryEvents, err := meter.Int64Counter(
		"kartta.provider.retries",
		metric.WithDescription("Retry events after rate-limit or transient failures"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		"kartta.cache.hits",
		metric.WithDescription("Snapshot cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		"kartta.cache.misses",
		metric.WithDescription("Snapshot cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	discoveryDuration, err := meter.Float64Histogram(
		"kartta.discovery.duration",
		metric.WithDescription("Duration of discovery jobs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		resourcesDiscovered: resourcesDiscovered,
		recordsSkipped:      recordsSkipped,
		retryEvents:         retryEvents,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		discoveryDuration:   discoveryDuration,
	}, nil
}

// RecordDiscovered records resources discovered for a provider and region.
func (m *Metrics) RecordDiscovered(ctx context.Context, provider, region string, count int) {
	m.resourcesDiscovered.Add(ctx, int64(count),
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("region", region),
		))
}

// RecordSkipped increments the skipped-record counter.
func (m *Metrics) RecordSkipped(ctx context.Context, provider string) {
	m.recordsSkipped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordRetries records retry events spent on one provider call.
func (m *Metrics) RecordRetries(ctx context.Context, provider string, retries int) {
	if retries <= 0 {
		return
	}
	m.retryEvents.Add(ctx, int64(retries),
		metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordCacheHit counts a snapshot served from cache.
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	m.cacheHits.Add(ctx, 1)
}

// RecordCacheMiss counts a snapshot that had to be computed.
func (m *Metrics) RecordCacheMiss(ctx context.Context) {
	m.cacheMisses.Add(ctx, 1)
}

// RecordDiscoveryDuration records how long a discovery job took.
func (m *Metrics) RecordDiscoveryDuration(ctx context.Context, seconds float64, status string) {
	m.discoveryDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("status", status)))
}

package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics holds the counters emitted by the request interception
// pipeline. All methods are nil-safe so tests can pass a nil receiver.
type PipelineMetrics struct {
	admitted      metric.Int64Counter
	throttled     metric.Int64Counter
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	invalidations metric.Int64Counter
	tierResolved  metric.Int64Counter
}

// NewPipelineMetrics registers the pipeline counters on the global meter.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter("recipe-box/backend/pipeline")

	m := &PipelineMetrics{}
	var err error

	if m.admitted, err = meter.Int64Counter("pipeline_requests_admitted_total",
		metric.WithDescription("Requests admitted by the rate limiter")); err != nil {
		return nil, err
	}
	if m.throttled, err = meter.Int64Counter("pipeline_requests_throttled_total",
		metric.WithDescription("Requests rejected by the rate limiter")); err != nil {
		return nil, err
	}
	if m.cacheHits, err = meter.Int64Counter("pipeline_cache_hits_total",
		metric.WithDescription("Response cache hits")); err != nil {
		return nil, err
	}
	if m.cacheMisses, err = meter.Int64Counter("pipeline_cache_misses_total",
		metric.WithDescription("Response cache misses")); err != nil {
		return nil, err
	}
	if m.invalidations, err = meter.Int64Counter("pipeline_cache_invalidations_total",
		metric.WithDescription("Cache entries removed by pattern invalidation")); err != nil {
		return nil, err
	}
	if m.tierResolved, err = meter.Int64Counter("pipeline_tier_resolutions_total",
		metric.WithDescription("Access tier resolutions by the subscription gate")); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *PipelineMetrics) RecordAdmitted(ctx context.Context, routeClass string) {
	if m == nil {
		return
	}
	m.admitted.Add(ctx, 1, metric.WithAttributes(attribute.String("route_class", routeClass)))
}

func (m *PipelineMetrics) RecordThrottled(ctx context.Context, routeClass string) {
	if m == nil {
		return
	}
	m.throttled.Add(ctx, 1, metric.WithAttributes(attribute.String("route_class", routeClass)))
}

func (m *PipelineMetrics) RecordCacheHit(ctx context.Context, namespace string) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", namespace)))
}

func (m *PipelineMetrics) RecordCacheMiss(ctx context.Context, namespace string) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("namespace", namespace)))
}

func (m *PipelineMetrics) RecordInvalidation(ctx context.Context, pattern string, count int64) {
	if m == nil {
		return
	}
	m.invalidations.Add(ctx, count, metric.WithAttributes(attribute.String("pattern", pattern)))
}

func (m *PipelineMetrics) RecordTier(ctx context.Context, tier string) {
	if m == nil {
		return
	}
	m.tierResolved.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
}

package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records the telemetry of the resilience core.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic; recording is best-effort.
type Metrics interface {
	// RecordCall records one guarded provider call with duration and
	// error status.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordRegistryLoad records one registry load attempt with its
	// provenance.
	RecordRegistryLoad(ctx context.Context, source string, duration time.Duration)

	// RecordStateChange records one circuit breaker transition.
	RecordStateChange(ctx context.Context, resource, from, to string)

	// RecordRateLimitWait records time a caller spent waiting for a token.
	RecordRateLimitWait(ctx context.Context, resource string, wait time.Duration)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter         metric.Meter
	callCount     metric.Int64Counter
	callErrors    metric.Int64Counter
	callDuration  metric.Float64Histogram
	registryLoads metric.Int64Counter
	transitions   metric.Int64Counter
	limiterWait   metric.Float64Histogram
}

// NewMetrics creates a Metrics instance recording through meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	callCount, err := meter.Int64Counter(
		"model.call.total",
		metric.WithDescription("Total number of guarded provider calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	callErrors, err := meter.Int64Counter(
		"model.call.errors",
		metric.WithDescription("Total number of failed provider calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	callDuration, err := meter.Float64Histogram(
		"model.call.duration_ms",
		metric.WithDescription("Provider call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	registryLoads, err := meter.Int64Counter(
		"registry.load.total",
		metric.WithDescription("Registry load attempts by result source"),
		metric.WithUnit("{load}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"circuit.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	limiterWait, err := meter.Float64Histogram(
		"ratelimit.wait_ms",
		metric.WithDescription("Time spent waiting for a rate limit token"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:         meter,
		callCount:     callCount,
		callErrors:    callErrors,
		callDuration:  callDuration,
		registryLoads: registryLoads,
		transitions:   transitions,
		limiterWait:   limiterWait,
	}, nil
}

func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("call.provider", meta.Provider),
	}
	if meta.Model != "" {
		attrs = append(attrs, attribute.String("call.model", meta.Model))
	}

	opt := metric.WithAttributes(attrs...)

	m.callCount.Add(ctx, 1, opt)
	if err != nil {
		m.callErrors.Add(ctx, 1, opt)
	}
	m.callDuration.Record(ctx, float64(duration.Nanoseconds())/1e6, opt)
}

func (m *metricsImpl) RecordRegistryLoad(ctx context.Context, source string, duration time.Duration) {
	m.registryLoads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("registry.source", source),
	))
}

func (m *metricsImpl) RecordStateChange(ctx context.Context, resource, from, to string) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("call.resource", resource),
		attribute.String("circuit.from", from),
		attribute.String("circuit.to", to),
	))
}

func (m *metricsImpl) RecordRateLimitWait(ctx context.Context, resource string, wait time.Duration) {
	m.limiterWait.Record(ctx, float64(wait.Nanoseconds())/1e6, metric.WithAttributes(
		attribute.String("call.resource", resource),
	))
}

// noopMetrics discards all recordings.
type noopMetrics struct{}

// NopMetrics returns a Metrics that discards everything.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordCall(context.Context, CallMeta, time.Duration, error) {}
func (noopMetrics) RecordRegistryLoad(context.Context, string, time.Duration)  {}
func (noopMetrics) RecordStateChange(context.Context, string, string, string)  {}
func (noopMetrics) RecordRateLimitWait(context.Context, string, time.Duration) {}

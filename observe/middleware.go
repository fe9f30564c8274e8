package observe

import (
	"context"
	"time"
)

// CallFunc is the signature for guarded provider calls that Middleware
// wraps.
type CallFunc func(ctx context.Context, meta CallMeta) error

// Middleware wraps provider calls with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe CallFunc.
//   - Context: propagates context through tracing spans.
//   - Errors: errors from the wrapped call are recorded and propagated
//     unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware from the given components. Nil
// components degrade to no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps fn with a span, call metrics, and a completion log line.
func (m *Middleware) Wrap(fn CallFunc) CallFunc {
	return func(ctx context.Context, meta CallMeta) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordCall(ctx, meta, duration, err)

		callLogger := m.logger.WithCall(meta)
		fields := []Field{
			F("duration_ms", float64(duration.Milliseconds())),
		}
		if err != nil {
			fields = append(fields, F("error", err.Error()))
			callLogger.Warn(ctx, "provider call failed", fields...)
		} else {
			callLogger.Debug(ctx, "provider call completed", fields...)
		}

		return err
	}
}

package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CallMeta identifies one guarded provider call for telemetry purposes.
type CallMeta struct {
	Provider string // provider slug (required)
	Model    string // model id (may be empty for provider-level operations)
}

// Resource returns the resource key for this call, the same key the
// resilience primitives track state under.
func (m CallMeta) Resource() string {
	if m.Model == "" {
		return "ai:" + m.Provider
	}
	return "ai:" + m.Provider + ":" + m.Model
}

// SpanName returns the deterministic span name for this call.
func (m CallMeta) SpanName() string {
	if m.Model == "" {
		return "model.call." + m.Provider
	}
	return "model.call." + m.Provider + "." + m.Model
}

// Tracer wraps OpenTelemetry tracing with provider-call span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a provider call.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with call metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("call.resource", meta.Resource()),
		attribute.String("call.provider", meta.Provider),
		attribute.Bool("call.error", false), // Updated in EndSpan on error
	}
	if meta.Model != "" {
		attrs = append(attrs, attribute.String("call.model", meta.Model))
	}

	ctx, span := t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("call.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// NewNoopTracer creates a no-op tracer.
func NewNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}

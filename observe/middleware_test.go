package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestMiddleware_NilComponentsDegradeToNoops(t *testing.T) {
	m := NewMiddleware(nil, nil, nil)

	calls := 0
	wrapped := m.Wrap(func(ctx context.Context, meta CallMeta) error {
		calls++
		return nil
	})

	if err := wrapped(context.Background(), CallMeta{Provider: "openai"}); err != nil {
		t.Errorf("wrapped() = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("Calls = %d, want 1", calls)
	}
}

func TestMiddleware_PropagatesErrorUnchanged(t *testing.T) {
	m := NewMiddleware(nil, nil, nil)

	want := errors.New("provider down")
	wrapped := m.Wrap(func(ctx context.Context, meta CallMeta) error {
		return want
	})

	if err := wrapped(context.Background(), CallMeta{Provider: "openai"}); err != want {
		t.Errorf("wrapped() = %v, want %v", err, want)
	}
}

func TestMiddleware_RecordsMetrics(t *testing.T) {
	metrics, reader := recordingMetrics(t)
	m := NewMiddleware(nil, metrics, nil)

	wrapped := m.Wrap(func(ctx context.Context, meta CallMeta) error {
		return errors.New("boom")
	})
	wrapped(context.Background(), CallMeta{Provider: "openai", Model: "gpt-4o"})

	collected := collect(t, reader)
	if got := counterValue(t, collected["model.call.total"]); got != 1 {
		t.Errorf("model.call.total = %d, want 1", got)
	}
	if got := counterValue(t, collected["model.call.errors"]); got != 1 {
		t.Errorf("model.call.errors = %d, want 1", got)
	}
}

func TestMiddleware_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("debug", &buf)
	m := NewMiddleware(nil, nil, logger)

	wrapped := m.Wrap(func(ctx context.Context, meta CallMeta) error {
		return errors.New("boom")
	})
	wrapped(context.Background(), CallMeta{Provider: "openai", Model: "gpt-4o"})

	entry := decodeLine(t, &buf)
	if entry["level"] != "warn" {
		t.Errorf("level = %v, want warn", entry["level"])
	}
	if entry["call.resource"] != "ai:openai:gpt-4o" {
		t.Errorf("call.resource = %v, want ai:openai:gpt-4o", entry["call.resource"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v, want boom", entry["error"])
	}
	if entry["duration_ms"] == nil {
		t.Error("duration_ms missing")
	}
}

func TestMiddleware_TracesCalls(t *testing.T) {
	tracer, recorder := recordingTracer()
	m := NewMiddleware(tracer, nil, nil)

	wrapped := m.Wrap(func(ctx context.Context, meta CallMeta) error {
		time.Sleep(time.Millisecond)
		return nil
	})
	wrapped(context.Background(), CallMeta{Provider: "openai", Model: "gpt-4o"})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("Ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "model.call.openai.gpt-4o" {
		t.Errorf("Span name = %q", spans[0].Name())
	}
}

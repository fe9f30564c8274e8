package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func recordingMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() = %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() = %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func counterValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordCall(t *testing.T) {
	m, reader := recordingMetrics(t)
	meta := CallMeta{Provider: "openai", Model: "gpt-4o"}

	m.RecordCall(context.Background(), meta, 120*time.Millisecond, nil)
	m.RecordCall(context.Background(), meta, 80*time.Millisecond, errors.New("boom"))

	metrics := collect(t, reader)

	if got := counterValue(t, metrics["model.call.total"]); got != 2 {
		t.Errorf("model.call.total = %d, want 2", got)
	}
	if got := counterValue(t, metrics["model.call.errors"]); got != 1 {
		t.Errorf("model.call.errors = %d, want 1", got)
	}

	hist, ok := metrics["model.call.duration_ms"].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("duration data is %T, want Histogram[float64]", metrics["model.call.duration_ms"].Data)
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("duration histogram count = %d, want 2", count)
	}
}

func TestMetrics_RecordRegistryLoad(t *testing.T) {
	m, reader := recordingMetrics(t)

	m.RecordRegistryLoad(context.Background(), "network", 10*time.Millisecond)
	m.RecordRegistryLoad(context.Background(), "embedded", time.Millisecond)

	metrics := collect(t, reader)
	if got := counterValue(t, metrics["registry.load.total"]); got != 2 {
		t.Errorf("registry.load.total = %d, want 2", got)
	}

	// Each source is a distinct data point.
	sum := metrics["registry.load.total"].Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 2 {
		t.Errorf("data points = %d, want 2 (one per source)", len(sum.DataPoints))
	}
}

func TestMetrics_RecordStateChange(t *testing.T) {
	m, reader := recordingMetrics(t)

	m.RecordStateChange(context.Background(), "ai:openai:gpt-4o", "closed", "open")

	metrics := collect(t, reader)
	if got := counterValue(t, metrics["circuit.transitions"]); got != 1 {
		t.Errorf("circuit.transitions = %d, want 1", got)
	}
}

func TestMetrics_RecordRateLimitWait(t *testing.T) {
	m, reader := recordingMetrics(t)

	m.RecordRateLimitWait(context.Background(), "ai:openai:gpt-4o", 50*time.Millisecond)

	metrics := collect(t, reader)
	hist, ok := metrics["ratelimit.wait_ms"].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("wait data is %T, want Histogram[float64]", metrics["ratelimit.wait_ms"].Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Error("ratelimit.wait_ms did not record the wait")
	}
}

func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	// Must not panic.
	m.RecordCall(context.Background(), CallMeta{Provider: "p"}, time.Second, nil)
	m.RecordRegistryLoad(context.Background(), "none", 0)
	m.RecordStateChange(context.Background(), "r", "closed", "open")
	m.RecordRateLimitWait(context.Background(), "r", 0)
}

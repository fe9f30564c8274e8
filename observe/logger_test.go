package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("no log output")
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, line)
	}
	return entry
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "registry loaded", F("source", "network"))

	entry := decodeLine(t, &buf)
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["msg"] != "registry loaded" {
		t.Errorf("msg = %v, want 'registry loaded'", entry["msg"])
	}
	if entry["source"] != "network" {
		t.Errorf("source = %v, want network", entry["source"])
	}
	if entry["timestamp"] == nil {
		t.Error("timestamp missing")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Debug(context.Background(), "dropped")
	logger.Info(context.Background(), "dropped")
	if buf.Len() != 0 {
		t.Errorf("Sub-level messages were written: %s", buf.String())
	}

	logger.Warn(context.Background(), "kept")
	if buf.Len() == 0 {
		t.Error("Warn message was filtered at warn level")
	}
}

func TestLogger_RedactsCredentialFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "resolved config",
		F("api_key", "sk-secret-value"),
		F("token", "tok-123"),
		F("endpoint", "https://api.openai.com/v1"),
	)

	entry := decodeLine(t, &buf)
	if entry["api_key"] != "[REDACTED]" {
		t.Errorf("api_key = %v, want [REDACTED]", entry["api_key"])
	}
	if entry["token"] != "[REDACTED]" {
		t.Errorf("token = %v, want [REDACTED]", entry["token"])
	}
	if entry["endpoint"] != "https://api.openai.com/v1" {
		t.Errorf("endpoint = %v, want left intact", entry["endpoint"])
	}
	if strings.Contains(buf.String(), "sk-secret-value") {
		t.Error("Credential value leaked into log output")
	}
}

func TestLogger_RedactedFieldKeys(t *testing.T) {
	for _, key := range RedactedFields {
		if !isRedactedField(key) {
			t.Errorf("isRedactedField(%q) = false, want true", key)
		}
	}
	if isRedactedField("provider") {
		t.Error("isRedactedField(provider) = true, want false")
	}
}

func TestLogger_WithCall(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	callLogger := logger.WithCall(CallMeta{Provider: "openai", Model: "gpt-4o"})
	callLogger.Info(context.Background(), "call completed")

	entry := decodeLine(t, &buf)
	if entry["call.resource"] != "ai:openai:gpt-4o" {
		t.Errorf("call.resource = %v, want ai:openai:gpt-4o", entry["call.resource"])
	}
	if entry["call.provider"] != "openai" {
		t.Errorf("call.provider = %v, want openai", entry["call.provider"])
	}
	if entry["call.model"] != "gpt-4o" {
		t.Errorf("call.model = %v, want gpt-4o", entry["call.model"])
	}

	// The parent logger is untouched.
	buf.Reset()
	logger.Info(context.Background(), "plain")
	entry = decodeLine(t, &buf)
	if _, ok := entry["call.provider"]; ok {
		t.Error("WithCall mutated the parent logger")
	}
}

func TestLogger_WithCall_NoModel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.WithCall(CallMeta{Provider: "openai"}).Info(context.Background(), "listing models")

	entry := decodeLine(t, &buf)
	if entry["call.resource"] != "ai:openai" {
		t.Errorf("call.resource = %v, want ai:openai", entry["call.resource"])
	}
	if _, ok := entry["call.model"]; ok {
		t.Error("call.model present for provider-level operation")
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info(context.Background(), "concurrent", F("n", 1))
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("Lines = %d, want 20", len(lines))
	}
	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Interleaved write produced invalid JSON: %s", line)
		}
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	// Must not panic, and WithCall must return a usable logger.
	l.Info(context.Background(), "x")
	l.WithCall(CallMeta{Provider: "p"}).Error(context.Background(), "y", F("k", "v"))
}

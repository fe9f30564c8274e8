package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jonwraymond/modelops/resilience"
)

type fakeNetError struct {
	timeout bool
}

func (e *fakeNetError) Error() string   { return "fake net error" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

var _ net.Error = (*fakeNetError)(nil)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"plain error", errors.New("boom"), KindUnknown},
		{"canceled", context.Canceled, KindCanceled},
		{"wrapped canceled", fmt.Errorf("call: %w", context.Canceled), KindCanceled},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"attempt timeout", resilience.ErrTimeout, KindTimeout},
		{"wrapped attempt timeout", fmt.Errorf("call: %w", resilience.ErrTimeout), KindTimeout},
		{"net timeout", &fakeNetError{timeout: true}, KindTimeout},
		{"net transport", &fakeNetError{}, KindTransport},
		{"call error wins", NewCallError(KindServer, errors.New("x")), KindServer},
		{"wrapped call error", fmt.Errorf("outer: %w", NewCallError(KindRateLimited, errors.New("x"))), KindRateLimited},
		{"status 429", StatusError(429, errors.New("x")), KindRateLimited},
		{"status 408", StatusError(408, errors.New("x")), KindTimeout},
		{"status 400", StatusError(400, errors.New("x")), KindClient},
		{"status 401", StatusError(401, errors.New("x")), KindClient},
		{"status 500", StatusError(500, errors.New("x")), KindServer},
		{"status 503", StatusError(503, errors.New("x")), KindServer},
		{"status 200", StatusError(200, errors.New("x")), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unknown counts", errors.New("boom"), true},
		{"timeout counts", context.DeadlineExceeded, true},
		{"transport counts", &fakeNetError{}, true},
		{"server counts", StatusError(500, errors.New("x")), true},
		{"rate limit counts", StatusError(429, errors.New("x")), true},
		{"client does not", StatusError(400, errors.New("x")), false},
		{"canceled does not", context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFailure(tt.err); got != tt.want {
				t.Errorf("IsFailure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIgnore(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"client ignored", StatusError(404, errors.New("x")), true},
		{"canceled ignored", context.Canceled, true},
		{"server not ignored", StatusError(500, errors.New("x")), false},
		{"timeout not ignored", context.DeadlineExceeded, false},
		{"plain not ignored", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ignore(tt.err); got != tt.want {
				t.Errorf("Ignore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout retries", context.DeadlineExceeded, true},
		{"attempt timeout retries", resilience.ErrTimeout, true},
		{"transport retries", &fakeNetError{}, true},
		{"server retries", StatusError(502, errors.New("x")), true},
		{"rate limit retries", StatusError(429, errors.New("x")), true},
		{"client is final", StatusError(400, errors.New("x")), false},
		{"canceled is final", context.Canceled, false},
		{"unknown is final", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCallError_Messages(t *testing.T) {
	inner := errors.New("boom")

	e := NewCallError(KindTransport, inner)
	if e.Error() != "provider: transport: boom" {
		t.Errorf("Error() = %q", e.Error())
	}
	if !errors.Is(e, inner) {
		t.Error("CallError does not unwrap to its cause")
	}

	se := StatusError(429, inner)
	if se.Error() != "provider: rate-limited (status 429): boom" {
		t.Errorf("Error() = %q", se.Error())
	}
	if se.Status != 429 {
		t.Errorf("Status = %d, want 429", se.Status)
	}
}

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindTimeout, "timeout"},
		{KindTransport, "transport"},
		{KindRateLimited, "rate-limited"},
		{KindClient, "client"},
		{KindServer, "server"},
		{KindCanceled, "canceled"},
		{ErrorKind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

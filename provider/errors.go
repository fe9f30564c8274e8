package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jonwraymond/modelops/resilience"
)

// ErrorKind is the structured category of a provider call failure. The
// circuit breaker's classification predicates are declared over these
// kinds, never over message text.
type ErrorKind int

const (
	// KindUnknown is an unclassified error.
	KindUnknown ErrorKind = iota
	// KindTimeout is a deadline hit while talking to the provider.
	KindTimeout
	// KindTransport is a connection-level failure (refused, reset, DNS).
	KindTransport
	// KindRateLimited is a provider-side 429.
	KindRateLimited
	// KindClient is a caller-caused 4xx (malformed request, bad auth).
	KindClient
	// KindServer is a provider-side 5xx.
	KindServer
	// KindCanceled is caller-initiated cancellation.
	KindCanceled
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindRateLimited:
		return "rate-limited"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// CallError is a provider call failure with a structured kind and, when
// the failure came from an HTTP response, the status code.
type CallError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *CallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider: %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("provider: %s: %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// NewCallError wraps err with a kind.
func NewCallError(kind ErrorKind, err error) *CallError {
	return &CallError{Kind: kind, Err: err}
}

// StatusError builds a CallError from an HTTP status code.
func StatusError(status int, err error) *CallError {
	return &CallError{Kind: kindForStatus(status), Status: status, Err: err}
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout:
		return KindTimeout
	case status >= 400 && status < 500:
		return KindClient
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// Classify derives the structured kind of an arbitrary error. A wrapped
// *CallError wins; otherwise context and net errors are recognized.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}

	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	// The per-attempt timeout wrapper converts its own deadline hit to
	// resilience.ErrTimeout; both spellings are the same transient kind.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, resilience.ErrTimeout) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindTransport
	}

	return KindUnknown
}

// IsFailure reports whether err should trip the circuit breaker:
// timeouts, transport errors, provider 5xx, and 429s count; client errors
// and cancellation do not.
func IsFailure(err error) bool {
	if err == nil {
		return false
	}
	switch Classify(err) {
	case KindTimeout, KindTransport, KindServer, KindRateLimited, KindUnknown:
		return true
	default:
		return false
	}
}

// Ignore reports whether err should count neither as failure nor success
// for the breaker: caller-caused client errors and cancellations say
// nothing about the provider's health.
func Ignore(err error) bool {
	switch Classify(err) {
	case KindClient, KindCanceled:
		return true
	default:
		return false
	}
}

// Retryable reports whether err is worth another attempt. Client errors
// and cancellation are final.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindTimeout, KindTransport, KindServer, KindRateLimited:
		return true
	default:
		return false
	}
}

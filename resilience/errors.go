package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is matched (via errors.Is) by *OpenError rejections.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrInvalidPolicy is returned for a non-positive rate-limit policy.
	ErrInvalidPolicy = errors.New("resilience: invalid rate limit policy")

	// ErrMaxRetriesExceeded is returned when max retry attempts are exhausted.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")
)

package resilience

import (
	"context"
	"time"
)

// Executor composes the resilience patterns guarding calls to one resource.
type Executor struct {
	resource       string
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	circuitBreaker *CircuitBreaker
	retry          *Retry
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor for the named resource.
func NewExecutor(resource string, opts ...ExecutorOption) *Executor {
	e := &Executor{resource: resource}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRateLimiter routes calls through rl's bucket for the executor's
// resource.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

// WithBulkhead caps concurrent in-flight calls.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithCircuitBreaker adds failure isolation.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry adds retry on transient failure.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithTimeout bounds each attempt's duration.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout}) }
}

// WithTimeoutConfig bounds each attempt with a prebuilt Timeout.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) { e.timeout = t }
}

// Resource returns the name of the guarded resource.
func (e *Executor) Resource() string { return e.resource }

// Execute runs op through every configured pattern, outermost first:
// rate limiter, bulkhead, circuit breaker, retry, timeout. The limiter is
// outermost so a waiting caller holds no bulkhead slot, and the breaker
// sits outside retry so one logical call records one breaker outcome.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}

	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.retry.Execute(ctx, inner)
		}
	}

	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}

	if e.bulkhead != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.bulkhead.Execute(ctx, inner)
		}
	}

	if e.rateLimiter != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.rateLimiter.Execute(ctx, e.resource, inner)
		}
	}

	return execute(ctx)
}

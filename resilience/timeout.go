package resilience

import (
	"context"
	"errors"
	"time"
)

// TimeoutConfig configures the per-attempt timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the maximum duration for the operation.
	// Default: 30 seconds
	Timeout time.Duration
}

// Timeout bounds the duration of an operation.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Timeout{config: config}
}

// NewTimeoutMillis creates a timeout wrapper from a millisecond count, the
// unit registry descriptors use. Non-positive values take the default.
func NewTimeoutMillis(ms int) *Timeout {
	return NewTimeout(TimeoutConfig{Timeout: time.Duration(ms) * time.Millisecond})
}

// Execute runs op under a deadline. The operation observes the deadline
// through its context; a deadline hit surfaces as ErrTimeout, while a
// cancellation that arrived from the caller propagates untouched.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	err := op(tctx)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) && tctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return ErrTimeout
	}
	return err
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// ExecuteWithTimeout runs op with a one-off timeout.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	t := NewTimeout(TimeoutConfig{Timeout: timeout})
	return t.Execute(ctx, op)
}

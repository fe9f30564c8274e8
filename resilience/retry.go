package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines how delays grow between retries.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay each attempt, with jitter.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear increases delay linearly.
	BackoffLinear
	// BackoffConstant uses the same delay for all retries.
	BackoffConstant
)

// RetryConfig configures retry behavior. The zero value plus defaults
// matches the registry descriptor fields: max attempts and a backoff base.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	// Default: 3
	MaxAttempts int

	// Backoff is the delay before the first retry.
	// Default: 100ms
	Backoff time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier grows the delay under BackoffExponential.
	// Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter adds up to 25% randomness to each delay.
	// Default: false
	Jitter bool

	// RetryIf decides whether an error is worth another attempt.
	// Default: all non-nil errors retry.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry reruns failed operations with backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Backoff <= 0 {
		config.Backoff = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}

	return &Retry{config: config}
}

// Execute runs op, retrying per the configured policy. Cancellation between
// attempts propagates as ctx.Err(); an exhausted budget returns the last
// error wrapped with ErrMaxRetriesExceeded.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return err
		}
		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
}

func (r *Retry) delay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.Strategy {
	case BackoffConstant:
		delay = r.config.Backoff
	case BackoffLinear:
		delay = r.config.Backoff * time.Duration(attempt)
	case BackoffExponential:
		delay = time.Duration(float64(r.config.Backoff) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter {
		// A sub-4ns delay has no room to jitter.
		if n := int64(delay / 4); n > 0 {
			// #nosec G404 -- jitter is non-cryptographic timing variance.
			delay += time.Duration(rand.Int64N(n))
		}
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

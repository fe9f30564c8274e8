package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Policy declares a rate limit for a resource: MaxRequests per Period.
type Policy struct {
	// MaxRequests is the bucket capacity (requests per Period).
	MaxRequests int

	// Period is the time to fully refill the bucket.
	Period time.Duration
}

// Validate checks the policy for configuration errors.
func (p Policy) Validate() error {
	if p.MaxRequests <= 0 {
		return fmt.Errorf("%w: max requests must be positive, got %d", ErrInvalidPolicy, p.MaxRequests)
	}
	if p.Period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %v", ErrInvalidPolicy, p.Period)
	}
	return nil
}

// tokenBucket holds the per-resource token state.
//
// Invariant: 0 <= tokens <= capacity at every observation point. Tokens
// accrue fractionally with elapsed time and each admitted call consumes
// exactly one.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func newTokenBucket(p Policy) *tokenBucket {
	return &tokenBucket{
		capacity:   float64(p.MaxRequests),
		refillRate: float64(p.MaxRequests) / p.Period.Seconds(),
		tokens:     float64(p.MaxRequests),
		lastRefill: time.Now(),
	}
}

// refillLocked accrues tokens for elapsed time, capped at capacity.
func (b *tokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill)
	b.lastRefill = now

	b.tokens += elapsed.Seconds() * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
}

// tryConsume takes one token if available.
func (b *tokenBucket) tryConsume() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(time.Now())
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// waitTime reports how long until n tokens will be available. It does not
// mutate bucket state.
func (b *tokenBucket) waitTime(n int) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	available := b.tokens + time.Since(b.lastRefill).Seconds()*b.refillRate
	if available > b.capacity {
		available = b.capacity
	}

	needed := float64(n) - available
	if needed <= 0 {
		return 0
	}
	return time.Duration(needed / b.refillRate * float64(time.Second))
}

// RateLimiterConfig configures the keyed rate limiter.
type RateLimiterConfig struct {
	// MaxPoll caps a single suspension in Execute's wait loop so a
	// reconfigured bucket is picked up promptly.
	// Default: 500ms
	MaxPoll time.Duration

	// OnWait is called when a caller starts waiting for a token.
	OnWait func(resource string, wait time.Duration)
}

// RateLimiter enforces a token-bucket rate limit per named resource.
// Resources without a configured policy execute without limiting.
type RateLimiter struct {
	config RateLimiterConfig

	mu      sync.RWMutex
	buckets map[string]*tokenBucket
}

// NewRateLimiter creates a new keyed rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.MaxPoll <= 0 {
		config.MaxPoll = 500 * time.Millisecond
	}

	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*tokenBucket),
	}
}

// Configure creates or replaces the bucket for resource. A replaced bucket
// starts full. Configuration errors are reported here, never deferred to
// call time.
func (rl *RateLimiter) Configure(resource string, maxRequests int, period time.Duration) error {
	p := Policy{MaxRequests: maxRequests, Period: period}
	if err := p.Validate(); err != nil {
		return err
	}

	rl.mu.Lock()
	rl.buckets[resource] = newTokenBucket(p)
	rl.mu.Unlock()
	return nil
}

// ConfigurePolicy is Configure with a declarative Policy value.
func (rl *RateLimiter) ConfigurePolicy(resource string, p Policy) error {
	return rl.Configure(resource, p.MaxRequests, p.Period)
}

func (rl *RateLimiter) bucket(resource string) *tokenBucket {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.buckets[resource]
}

// TryConsume takes one token for resource without waiting. An unconfigured
// resource always admits.
func (rl *RateLimiter) TryConsume(resource string) bool {
	b := rl.bucket(resource)
	if b == nil {
		return true
	}
	return b.tryConsume()
}

// WaitTime reports how long until n tokens are available for resource,
// without consuming anything. Zero for an unconfigured resource.
func (rl *RateLimiter) WaitTime(resource string, n int) time.Duration {
	b := rl.bucket(resource)
	if b == nil {
		return 0
	}
	return b.waitTime(n)
}

// Tokens returns the currently available tokens for resource.
func (rl *RateLimiter) Tokens(resource string) float64 {
	b := rl.bucket(resource)
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked(time.Now())
	return b.tokens
}

// Execute runs op once a token for resource is available, waiting as long
// as it takes. Cancellation during the wait unwinds without consuming a
// token and surfaces as ctx.Err() untransformed. Concurrent callers race
// for tokens; no ordering is guaranteed.
func (rl *RateLimiter) Execute(ctx context.Context, resource string, op func(context.Context) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b := rl.bucket(resource)
		if b == nil || b.tryConsume() {
			return op(ctx)
		}

		wait := b.waitTime(1)
		if wait > rl.config.MaxPoll {
			wait = rl.config.MaxPoll
		}
		if rl.config.OnWait != nil {
			rl.config.OnWait(resource, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Re-race for a token.
		}
	}
}

package provider

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/modelops/observe"
	"github.com/jonwraymond/modelops/registry"
	"github.com/jonwraymond/modelops/resilience"
)

// GuardConfig configures a Guard.
type GuardConfig struct {
	// Breaker supplies the defaults for every breaker the guard creates.
	// Resource names are filled in per key.
	Breaker resilience.CircuitBreakerConfig

	// MaxConcurrent caps in-flight calls per (provider, model) key.
	// 0 disables the bulkhead.
	MaxConcurrent int

	// Logger receives state-change diagnostics. Default: no-op.
	Logger observe.Logger

	// Metrics receives call, transition and wait recordings.
	// Default: no-op.
	Metrics observe.Metrics

	// Tracer wraps each call in a span. Default: no-op.
	Tracer observe.Tracer
}

// guarded is the long-lived per-key state: the descriptor-driven pieces
// of the stack, built once so the bulkhead and breaker actually span
// concurrent calls.
type guarded struct {
	executor *resilience.Executor
	breaker  *resilience.CircuitBreaker
	inner    *resilience.Executor // stack minus breaker, for fallback calls
}

// Guard composes the resilience stack for provider calls: one rate-limit
// bucket, one circuit breaker, one bulkhead, and descriptor-driven
// retry/timeout per (provider, model) key.
type Guard struct {
	config   GuardConfig
	limiter  *resilience.RateLimiter
	breakers *resilience.Breakers

	mu    sync.RWMutex
	byKey map[string]*guarded
}

// NewGuard creates a guard. Classification defaults to the typed
// error-kind predicates unless the breaker config overrides them.
func NewGuard(config GuardConfig) *Guard {
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}
	if config.Tracer == nil {
		config.Tracer = observe.NewNoopTracer()
	}

	breakerCfg := config.Breaker
	if breakerCfg.IsFailure == nil {
		breakerCfg.IsFailure = IsFailure
	}
	if breakerCfg.Ignore == nil {
		breakerCfg.Ignore = Ignore
	}

	logger := config.Logger
	metrics := config.Metrics
	userHook := breakerCfg.OnStateChange
	breakerCfg.OnStateChange = func(resource string, from, to resilience.State) {
		logger.Info(context.Background(), "circuit state changed",
			observe.F("resource", resource),
			observe.F("from", from.String()),
			observe.F("to", to.String()),
		)
		metrics.RecordStateChange(context.Background(), resource, from.String(), to.String())
		if userHook != nil {
			userHook(resource, from, to)
		}
	}

	g := &Guard{
		config:   config,
		breakers: resilience.NewBreakers(breakerCfg),
		byKey:    make(map[string]*guarded),
	}
	g.limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{
		OnWait: func(resource string, wait time.Duration) {
			metrics.RecordRateLimitWait(context.Background(), resource, wait)
		},
	})
	return g
}

// Limit configures the rate-limit policy for (slug, modelID).
func (g *Guard) Limit(slug, modelID string, p resilience.Policy) error {
	return g.limiter.ConfigurePolicy(resilience.ResourceName(slug, modelID), p)
}

// Breakers exposes the breaker registry for statistics and operator
// resets.
func (g *Guard) Breakers() *resilience.Breakers { return g.breakers }

// guardFor returns the per-key stack, building it on first use.
func (g *Guard) guardFor(p *registry.ProviderDescriptor, modelID string) *guarded {
	key := resilience.ResourceName(p.Slug, modelID)

	g.mu.RLock()
	st := g.byKey[key]
	g.mu.RUnlock()
	if st != nil {
		return st
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if st = g.byKey[key]; st != nil {
		return st
	}

	breaker := g.breakers.Get(p.Slug, modelID)

	shared := []resilience.ExecutorOption{
		resilience.WithRateLimiter(g.limiter),
	}
	if g.config.MaxConcurrent > 0 {
		shared = append(shared, resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: g.config.MaxConcurrent,
		})))
	}
	inner := []resilience.ExecutorOption{}
	if p.Retries.Max > 0 {
		inner = append(inner, resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts: p.Retries.Max,
			Backoff:     time.Duration(p.Retries.BackoffMS) * time.Millisecond,
			RetryIf:     Retryable,
		})))
	}
	if p.Timeouts.RequestMS > 0 {
		inner = append(inner, resilience.WithTimeoutConfig(resilience.NewTimeoutMillis(p.Timeouts.RequestMS)))
	}

	full := append(append([]resilience.ExecutorOption{}, shared...), inner...)
	full = append(full, resilience.WithCircuitBreaker(breaker))

	st = &guarded{
		executor: resilience.NewExecutor(key, full...),
		breaker:  breaker,
		inner:    resilience.NewExecutor(key, append(shared, inner...)...),
	}
	g.byKey[key] = st
	return st
}

// Do runs op for (provider, model) under the full resilience stack and
// records its telemetry. The descriptor drives retry and timeout; the
// guard's limiter, bulkhead and breaker carry shared per-key state.
func (g *Guard) Do(ctx context.Context, p *registry.ProviderDescriptor, modelID string, op func(context.Context) error) error {
	meta := observe.CallMeta{Provider: p.Slug, Model: modelID}

	ctx, span := g.config.Tracer.StartSpan(ctx, meta)
	start := time.Now()

	err := g.guardFor(p, modelID).executor.Execute(ctx, op)

	g.config.Tracer.EndSpan(span, err)
	g.config.Metrics.RecordCall(ctx, meta, time.Since(start), err)
	return err
}

// DoWithFallback is Do, except an open circuit runs fallback instead of
// propagating the rejection. The breaker wraps the rest of the stack so a
// rejection skips the limiter and bulkhead entirely.
func (g *Guard) DoWithFallback(ctx context.Context, p *registry.ProviderDescriptor, modelID string, op, fallback func(context.Context) error) error {
	meta := observe.CallMeta{Provider: p.Slug, Model: modelID}

	ctx, span := g.config.Tracer.StartSpan(ctx, meta)
	start := time.Now()

	st := g.guardFor(p, modelID)
	err := st.breaker.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		return st.inner.Execute(ctx, op)
	}, fallback)

	g.config.Tracer.EndSpan(span, err)
	g.config.Metrics.RecordCall(ctx, meta, time.Since(start), err)
	return err
}

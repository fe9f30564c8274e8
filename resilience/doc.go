// Package resilience guards outbound AI-provider calls against unreliable
// networks and provider outages.
//
// Every piece of state is tracked per resource key (typically
// "ai:<provider>:<model>"), so one provider's backoff never blocks
// another's traffic.
//
// # Patterns
//
//   - Rate Limiter: a keyed token bucket. Configure a resource with
//     MaxRequests per Period; Execute waits for a token, honoring
//     cancellation without consuming one.
//
//   - Circuit Breaker: a Closed/Open/HalfOpen state machine with both a
//     consecutive-failure threshold and a failure-rate window, pluggable
//     failure classification, and a typed open-circuit rejection carrying
//     a retry-after hint.
//
//   - Breakers: a concurrent registry handing out exactly one breaker per
//     (provider, model) key.
//
//   - Retry, Timeout, Bulkhead: supporting wrappers built from registry
//     descriptor fields (retries.max, retries.backoff_ms,
//     timeouts.request_ms).
//
// # Usage
//
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{})
//	if err := rl.Configure("ai:openai:gpt-4o", 60, time.Minute); err != nil {
//	    return err
//	}
//
//	breakers := resilience.NewBreakers(resilience.CircuitBreakerConfig{
//	    MaxFailures:   5,
//	    BreakDuration: 30 * time.Second,
//	})
//	cb := breakers.Get("openai", "gpt-4o")
//
//	exec := resilience.NewExecutor("ai:openai:gpt-4o",
//	    resilience.WithRateLimiter(rl),
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithTimeout(30*time.Second),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return callProvider(ctx)
//	})
package resilience

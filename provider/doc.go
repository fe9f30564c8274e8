// Package provider turns registry descriptors into ready-to-call
// provider clients and classifies the errors those calls produce.
//
// Effective resolves a pure configuration snapshot for a
// (provider, model) pair: registry values win, caller base config fills
// the gaps, and API keys resolve from the environment at call time.
// RegistryFactory decorates any Factory with that resolution, and Guard
// wraps the actual calls in the per-key resilience stack.
//
// Classification is structural rather than textual: Classify maps an
// error to a Kind (timeout, transport, rate-limited, client, server,
// canceled), and IsFailure/Ignore/Retryable derive breaker and retry
// decisions from the kind.
package provider

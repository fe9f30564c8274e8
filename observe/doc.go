// Package observe provides observability primitives for the provider
// resilience core.
//
// It is a pure instrumentation library: structured JSON logging with
// credential redaction, OTel metrics for provider calls, registry loads,
// circuit transitions and rate-limit waits, and call-scoped tracing spans.
// Consumers wire the Observer into the registry loader and the provider
// guard; every component accepts nil and degrades to a no-op.
package observe

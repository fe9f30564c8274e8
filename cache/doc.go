// Package cache provides the shared registry-load cache.
//
// A Store maps "<cachePath>::<url>" keys to load results with TTL-bounded
// reads, and serializes concurrent loads of the same key through a per-key
// lock so only one caller hits the network while the rest wait for its
// result. New constructs an isolated instance for tests; Shared is the
// process-wide instance for hosts that want one.
package cache

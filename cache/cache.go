package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilStore   = errors.New("cache: store is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Store is a concurrent key-value cache for load results, with TTL-bounded
// reads and per-key locking to serialize concurrent loads of one key.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Freshness: TryGet never returns an entry older than the supplied TTL;
//     ttl <= 0 means entries never expire.
//   - Locking: WithLock holds the key's lock for the whole callback and
//     releases it on every exit path, including panic and cancellation
//     inside the callback. Lock acquisition itself honors ctx.
type Store interface {
	// TryGet returns the value for key if it is fresher than ttl.
	TryGet(key string, ttl time.Duration) (any, bool)

	// Set stores value under key, stamping it with the current time.
	Set(key string, value any)

	// Invalidate removes key. Idempotent.
	Invalidate(key string)

	// InvalidateAll removes every key containing pattern; an empty pattern
	// removes everything.
	InvalidateAll(pattern string)

	// WithLock runs fn while holding key's lock. At most one holder per
	// key at a time; waiters block until the lock frees or ctx is done.
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// ValidateKey checks whether a key is usable.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

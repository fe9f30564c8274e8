package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// MemoryStore is the in-memory Store implementation. New gives an isolated
// instance for tests; Shared gives the long-lived process-wide one.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	locks   map[string]*semaphore.Weighted
}

type entry struct {
	value    any
	storedAt time.Time
}

// New creates a fresh, isolated store.
func New() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		locks:   make(map[string]*semaphore.Weighted),
	}
}

var (
	sharedOnce sync.Once
	shared     *MemoryStore
)

// Shared returns the process-wide store. It exists for hosts that want one
// registry cache across the whole process; nothing in this module depends
// on it, every consumer takes an injected Store.
func Shared() *MemoryStore {
	sharedOnce.Do(func() { shared = New() })
	return shared
}

// TryGet returns the value for key if its age is within ttl. A ttl <= 0
// never expires.
func (s *MemoryStore) TryGet(key string, ttl time.Duration) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if ttl > 0 && time.Since(e.storedAt) > ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the current timestamp.
func (s *MemoryStore) Set(key string, value any) {
	s.mu.Lock()
	s.entries[key] = &entry{value: value, storedAt: time.Now()}
	s.mu.Unlock()
}

// Invalidate removes key. Idempotent; the key's lock survives so an
// in-flight WithLock holder is unaffected.
func (s *MemoryStore) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// InvalidateAll removes every key containing pattern; empty pattern clears
// the store.
func (s *MemoryStore) InvalidateAll(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pattern == "" {
		s.entries = make(map[string]*entry)
		return
	}
	for key := range s.entries {
		if strings.Contains(key, pattern) {
			delete(s.entries, key)
		}
	}
}

// keyLock returns the lock for key, creating it on demand. Structural map
// mutation is the only thing guarded by s.mu here; waiting happens on the
// semaphore so unrelated keys never block each other.
func (s *MemoryStore) keyLock(key string) *semaphore.Weighted {
	s.mu.RLock()
	l := s.locks[key]
	s.mu.RUnlock()
	if l != nil {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l = s.locks[key]; l == nil {
		l = semaphore.NewWeighted(1)
		s.locks[key] = l
	}
	return l
}

// WithLock runs fn while holding key's lock. Acquisition honors ctx;
// cancellation while waiting returns ctx.Err() without running fn.
func (s *MemoryStore) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	l := s.keyLock(key)
	if err := l.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.Release(1)

	return fn(ctx)
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

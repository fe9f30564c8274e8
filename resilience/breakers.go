package resilience

import (
	"fmt"
	"sort"
	"sync"
)

// Breakers maps (provider, modelID) keys to lazily created circuit
// breakers so every logical resource is guarded by exactly one instance.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Uniqueness: concurrent Get calls for the same key always return the
//     same breaker; a losing constructor is discarded before any caller
//     observes it.
type Breakers struct {
	defaults CircuitBreakerConfig

	mu   sync.RWMutex
	byID map[string]*CircuitBreaker
}

// NewBreakers creates a breaker registry. Each breaker is constructed from
// defaults with Resource set from its key.
func NewBreakers(defaults CircuitBreakerConfig) *Breakers {
	return &Breakers{
		defaults: defaults,
		byID:     make(map[string]*CircuitBreaker),
	}
}

// ResourceName derives the deterministic resource name for a key.
func ResourceName(provider, modelID string) string {
	return fmt.Sprintf("ai:%s:%s", provider, modelID)
}

// Get returns the breaker for (provider, modelID), constructing it on first
// use.
func (b *Breakers) Get(provider, modelID string) *CircuitBreaker {
	name := ResourceName(provider, modelID)

	b.mu.RLock()
	cb := b.byID[name]
	b.mu.RUnlock()
	if cb != nil {
		return cb
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Another caller may have won the construction race.
	if cb = b.byID[name]; cb != nil {
		return cb
	}

	cfg := b.defaults
	cfg.Resource = name
	cb = NewCircuitBreaker(cfg)
	b.byID[name] = cb
	return cb
}

// Reset resets the breaker for (provider, modelID) if one exists.
func (b *Breakers) Reset(provider, modelID string) {
	name := ResourceName(provider, modelID)

	b.mu.RLock()
	cb := b.byID[name]
	b.mu.RUnlock()

	if cb != nil {
		cb.Reset()
	}
}

// Snapshot returns stats for every known breaker, ordered by resource name.
func (b *Breakers) Snapshot() []Stats {
	b.mu.RLock()
	breakers := make([]*CircuitBreaker, 0, len(b.byID))
	for _, cb := range b.byID {
		breakers = append(breakers, cb)
	}
	b.mu.RUnlock()

	stats := make([]Stats, 0, len(breakers))
	for _, cb := range breakers {
		stats = append(stats, cb.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Resource < stats[j].Resource })
	return stats
}

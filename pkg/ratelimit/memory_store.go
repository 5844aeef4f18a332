package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucketState struct {
	tokens     float64
	lastRefill time.Time
}

// MemoryStore keeps bucket state in process memory. Stale buckets are swept
// lazily on access, so an idle key costs nothing after its bucket refills.
type MemoryStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucketState
	lastSweep time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets:   make(map[string]*bucketState),
		lastSweep: time.Now(),
	}
}

func (s *MemoryStore) ConsumeTokens(ctx context.Context, key string, n int, cfg Config) (int, time.Time, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now, cfg)

	b, ok := s.buckets[key]
	if !ok {
		b = &bucketState{tokens: float64(cfg.Capacity), lastRefill: now}
		s.buckets[key] = b
	}

	// Continuous refill proportional to elapsed time.
	elapsed := now.Sub(b.lastRefill)
	refill := elapsed.Seconds() * float64(cfg.RefillRate) / cfg.RefillInterval.Seconds()
	b.tokens = min(float64(cfg.Capacity), b.tokens+refill)
	b.lastRefill = now

	resetAt := now.Add(refillTime(cfg, float64(cfg.Capacity)-b.tokens))

	if b.tokens < float64(n) {
		return -1, resetAt, nil
	}
	b.tokens -= float64(n)

	return int(b.tokens), now.Add(refillTime(cfg, float64(cfg.Capacity)-b.tokens)), nil
}

// sweep drops buckets that have been full for a while. Runs at most once per
// refill interval, under the store lock.
func (s *MemoryStore) sweep(now time.Time, cfg Config) {
	if now.Sub(s.lastSweep) < cfg.RefillInterval {
		return
	}
	s.lastSweep = now

	full := time.Duration(float64(cfg.Capacity) / float64(cfg.RefillRate) * float64(cfg.RefillInterval))
	for key, b := range s.buckets {
		if now.Sub(b.lastRefill) > full {
			delete(s.buckets, key)
		}
	}
}

// refillTime converts a token deficit into a wait duration.
func refillTime(cfg Config, deficit float64) time.Duration {
	if deficit <= 0 {
		return 0
	}
	return time.Duration(deficit / float64(cfg.RefillRate) * float64(cfg.RefillInterval))
}

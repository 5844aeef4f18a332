package ratelimit

import (
	"context"
	"time"
)

// Config describes a token bucket. The bucket starts full and refills
// RefillRate tokens every RefillInterval up to Capacity.
type Config struct {
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"120"`      // Capacity is the burst size per key.
	RefillRate     int           `env:"RATE_LIMIT_REFILL_RATE" envDefault:"120"`   // RefillRate is tokens added per interval.
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1m"` // RefillInterval is the refill period.
}

func (c Config) validate() error {
	if c.Capacity <= 0 || c.RefillRate <= 0 || c.RefillInterval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Result is the outcome of a single Allow call.
type Result struct {
	Limit     int       // bucket capacity
	Remaining int       // tokens left after this call; negative means denied
	ResetAt   time.Time // when the bucket is full again
}

// Allowed reports whether the request may proceed.
func (r Result) Allowed() bool { return r.Remaining >= 0 }

// RetryAfter returns how long the caller should wait before retrying.
// Zero when the request was allowed.
func (r Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Store holds per-key bucket state. ConsumeTokens refills the bucket for key
// according to cfg, then consumes n tokens if available; the returned
// remaining count is negative when the request must be denied.
type Store interface {
	ConsumeTokens(ctx context.Context, key string, n int, cfg Config) (remaining int, resetAt time.Time, err error)
}

// Bucket is a token bucket limiter over a Store.
type Bucket struct {
	store Store
	cfg   Config
}

// NewBucket returns a Bucket. The store is required.
func NewBucket(store Store, cfg Config) (*Bucket, error) {
	if store == nil {
		panic("ratelimit: store is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Bucket{store: store, cfg: cfg}, nil
}

// Allow consumes one token for key.
func (b *Bucket) Allow(ctx context.Context, key string) (Result, error) {
	remaining, resetAt, err := b.store.ConsumeTokens(ctx, key, 1, b.cfg)
	if err != nil {
		return Result{}, err
	}
	return Result{Limit: b.cfg.Capacity, Remaining: remaining, ResetAt: resetAt}, nil
}

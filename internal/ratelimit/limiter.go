package ratelimit

import (
	"context"
	"time"
)

// Limiter defines the interface for rate limiting.
type Limiter interface {
	// Allow checks if a request from the given key should be allowed.
	// The returned Hit reflects the counter state after the check.
	Allow(ctx context.Context, key string) (allowed bool, hit Hit, err error)
}

// FixedWindowLimiter implements rate limiting using a fixed window counter.
type FixedWindowLimiter struct {
	store Store
	limit int64
}

// NewFixedWindowLimiter creates a new fixed window rate limiter on top of
// an initialized store. The window length is the store's; the limiter only
// decides whether the counter has passed limit.
func NewFixedWindowLimiter(store Store, limit int64) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		store: store,
		limit: limit,
	}
}

func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, Hit, error) {
	hit, err := l.store.Increment(ctx, key)
	if err != nil {
		return false, Hit{}, err
	}

	return hit.Count <= l.limit, hit, nil
}

// Store returns the underlying counter store.
func (l *FixedWindowLimiter) Store() Store {
	return l.store
}

// LimitConfig defines a single rate limit tier.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Undo removes one hit for key, compensating a request that was counted
// but should not have been (e.g. the handler decided it was free). A key
// whose window has already expired is left untouched.
func (l *FixedWindowLimiter) Undo(ctx context.Context, key string) error {
	return l.store.Decrement(ctx, key)
}

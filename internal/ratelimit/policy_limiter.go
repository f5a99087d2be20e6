package ratelimit

import "context"

// LimitExceeded contains information about which limit tier was exceeded.
type LimitExceeded struct {
	Config LimitConfig
	Count  int64
}

// PolicyLimiter enforces several rate limit tiers at once, e.g. 10/minute
// plus 100/hour. Each tier gets its own independent counter store so the
// tiers' windows reset independently.
type PolicyLimiter struct {
	tiers []policyTier
}

type policyTier struct {
	config LimitConfig
	store  Store
}

// NewPolicyLimiter creates a policy limiter with one store per tier.
// newStore builds an uninitialized store; the limiter arms each one with
// its tier's window. Tiers should be ordered tightest window first so the
// cheapest check trips earliest.
func NewPolicyLimiter(newStore func() Store, limits ...LimitConfig) *PolicyLimiter {
	tiers := make([]policyTier, 0, len(limits))

	for _, cfg := range limits {
		store := newStore()
		store.Init(cfg.Window)

		tiers = append(tiers, policyTier{config: cfg, store: store})
	}

	return &PolicyLimiter{tiers: tiers}
}

// Allow checks the key against every tier. It returns false as soon as one
// tier is exceeded, with details about the tier that tripped (nil if
// allowed). Tiers already checked stay counted; a denied request still
// consumes budget in the tiers that allowed it, matching fixed-window
// accounting where every observed request is a hit.
func (l *PolicyLimiter) Allow(ctx context.Context, key string) (bool, *LimitExceeded, error) {
	for _, tier := range l.tiers {
		hit, err := tier.store.Increment(ctx, key)
		if err != nil {
			return false, nil, err
		}

		if hit.Count > tier.config.Max {
			return false, &LimitExceeded{
				Config: tier.config,
				Count:  hit.Count,
			}, nil
		}
	}

	return true, nil, nil
}

// ResetKey clears the key from every tier.
func (l *PolicyLimiter) ResetKey(ctx context.Context, key string) error {
	for _, tier := range l.tiers {
		if err := tier.store.ResetKey(ctx, key); err != nil {
			return err
		}
	}

	return nil
}

// Shutdown stops every tier's store.
func (l *PolicyLimiter) Shutdown() {
	for _, tier := range l.tiers {
		tier.store.Shutdown()
	}
}

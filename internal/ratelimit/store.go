package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrNotInitialized is returned by store operations invoked before Init.
var ErrNotInitialized = errors.New("rate limit store not initialized")

// Hit reports the state of a client's counter within its current window.
type Hit struct {
	// Count is the number of hits recorded in the current window.
	Count int64
	// ResetTime is when the current window ends and the count resets.
	ResetTime time.Time
}

// Store defines the interface for fixed-window hit counting.
//
// A store counts hits per opaque client key. Each key's window is fixed:
// the first hit starts the window and pins its reset time, every hit before
// the reset time increments the same counter, and the first hit after it
// starts a fresh window. A record whose reset time has passed is treated as
// absent everywhere, whether or not the background sweep has removed it yet.
type Store interface {
	// Init configures the window length and starts the store's background
	// lifecycle. Init on an already-initialized store is a no-op; calling
	// any other operation before Init returns ErrNotInitialized.
	Init(window time.Duration)

	// Increment records a hit for key and returns the resulting counter
	// state. A key with no live record starts a fresh window.
	Increment(ctx context.Context, key string) (Hit, error)

	// Decrement undoes a previously recorded hit, floored at zero.
	// Decrementing a key with no live record is a no-op.
	Decrement(ctx context.Context, key string) error

	// Get returns the counter state for key without recording a hit.
	// ok is false when the key has no record or its record has expired.
	Get(ctx context.Context, key string) (hit Hit, ok bool, err error)

	// ResetKey removes any record for key, live or expired.
	ResetKey(ctx context.Context, key string) error

	// ResetAll removes every record.
	ResetAll(ctx context.Context) error

	// Shutdown stops the background lifecycle. Safe to call multiple
	// times; Init may be called again afterwards to reuse the store.
	Shutdown()
}

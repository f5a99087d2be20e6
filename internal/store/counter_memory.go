package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/throttle-go/internal/ratelimit"
)

// CounterMemoryStore is an in-memory implementation of ratelimit.Store.
//
// Counters live in a single map guarded by one mutex; the hot path (a live
// record exists) holds the lock for a lookup and an increment. A background
// goroutine sweeps expired records at the window cadence so that keys which
// stop being queried do not accumulate forever. Expiry is also checked on
// every read, so a record is never reported stale just because the sweep
// has not reached it yet.
type CounterMemoryStore struct {
	mu          sync.Mutex
	window      time.Duration
	counters    map[string]*counter
	done        chan struct{}
	initialized bool
}

type counter struct {
	count     int64
	resetTime time.Time
}

// NewCounterMemoryStore creates a new in-memory counter store. The store
// is unusable until Init is called.
func NewCounterMemoryStore() *CounterMemoryStore {
	return &CounterMemoryStore{
		counters: make(map[string]*counter),
	}
}

// Init sets the window length and starts the background sweep. A second
// Init without an intervening Shutdown is a no-op.
func (s *CounterMemoryStore) Init(window time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return
	}

	s.window = window
	s.done = make(chan struct{})
	s.initialized = true

	go s.sweep(window, s.done)
}

func (s *CounterMemoryStore) Increment(_ context.Context, key string) (ratelimit.Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ratelimit.Hit{}, ratelimit.ErrNotInitialized
	}

	now := time.Now()

	if c, ok := s.counters[key]; ok && c.resetTime.After(now) {
		c.count++

		return ratelimit.Hit{Count: c.count, ResetTime: c.resetTime}, nil
	}

	// Absent or expired: start a fresh window.
	c := &counter{count: 1, resetTime: now.Add(s.window)}
	s.counters[key] = c

	return ratelimit.Hit{Count: c.count, ResetTime: c.resetTime}, nil
}

func (s *CounterMemoryStore) Decrement(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ratelimit.ErrNotInitialized
	}

	c, ok := s.counters[key]
	if !ok || !c.resetTime.After(time.Now()) {
		return nil
	}

	if c.count > 0 {
		c.count--
	}

	return nil
}

func (s *CounterMemoryStore) Get(_ context.Context, key string) (ratelimit.Hit, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ratelimit.Hit{}, false, ratelimit.ErrNotInitialized
	}

	c, ok := s.counters[key]
	if !ok || !c.resetTime.After(time.Now()) {
		return ratelimit.Hit{}, false, nil
	}

	return ratelimit.Hit{Count: c.count, ResetTime: c.resetTime}, true, nil
}

func (s *CounterMemoryStore) ResetKey(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ratelimit.ErrNotInitialized
	}

	delete(s.counters, key)

	return nil
}

func (s *CounterMemoryStore) ResetAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ratelimit.ErrNotInitialized
	}

	s.counters = make(map[string]*counter)

	return nil
}

// Shutdown stops the background sweep and drops all records. Safe to call
// multiple times; Init afterwards re-arms the store.
func (s *CounterMemoryStore) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return
	}

	close(s.done)
	s.done = nil
	s.initialized = false
	s.counters = make(map[string]*counter)
}

// TrackedKeys returns the number of records currently held, including
// expired records the sweep has not reached yet.
func (s *CounterMemoryStore) TrackedKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.counters)
}

// sweep drops expired records at the window cadence until done is closed.
func (s *CounterMemoryStore) sweep(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			s.removeExpired(now)
		}
	}
}

func (s *CounterMemoryStore) removeExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, c := range s.counters {
		if !c.resetTime.After(now) {
			delete(s.counters, key)
		}
	}
}

package store

import (
	"context"
	"sync"

	"github.com/serroba/throttle-go/internal/events"
)

// DefaultDenialCap bounds the denial log when no capacity is configured.
const DefaultDenialCap = 1000

// DenialMemoryStore keeps a bounded in-memory log of recent rate limit
// denials, newest last. When full, the oldest denial is dropped.
type DenialMemoryStore struct {
	mu       sync.Mutex
	capacity int
	denials  []events.RequestDeniedEvent
}

// NewDenialMemoryStore creates a denial log holding at most capacity
// events. A capacity below 1 falls back to DefaultDenialCap.
func NewDenialMemoryStore(capacity int) *DenialMemoryStore {
	if capacity < 1 {
		capacity = DefaultDenialCap
	}

	return &DenialMemoryStore{capacity: capacity}
}

func (s *DenialMemoryStore) SaveDenied(_ context.Context, event *events.RequestDeniedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.denials) >= s.capacity {
		s.denials = s.denials[1:]
	}

	s.denials = append(s.denials, *event)

	return nil
}

// Recent returns up to n denials, newest first.
func (s *DenialMemoryStore) Recent(n int) []events.RequestDeniedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 1 || n > len(s.denials) {
		n = len(s.denials)
	}

	out := make([]events.RequestDeniedEvent, 0, n)
	for i := len(s.denials) - 1; i >= len(s.denials)-n; i-- {
		out = append(out, s.denials[i])
	}

	return out
}

package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/throttle-go/internal/events"
	"github.com/serroba/throttle-go/internal/handlers"
	"github.com/serroba/throttle-go/internal/ratelimit"
	"github.com/serroba/throttle-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDenialLog struct {
	denials []events.RequestDeniedEvent
}

func (s *stubDenialLog) Recent(n int) []events.RequestDeniedEvent {
	if n < 1 || n > len(s.denials) {
		n = len(s.denials)
	}

	return s.denials[:n]
}

func newTestHandler(t *testing.T) (*handlers.LimitsHandler, ratelimit.Store, *stubDenialLog) {
	t.Helper()

	counters := store.NewCounterMemoryStore()
	counters.Init(time.Minute)
	t.Cleanup(counters.Shutdown)

	denials := &stubDenialLog{}

	return handlers.NewLimitsHandler(counters, denials, zap.NewNop()), counters, denials
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()

	var se huma.StatusError

	require.ErrorAs(t, err, &se)
	assert.Equal(t, status, se.GetStatus())
}

func TestLimitsHandler_GetLimit(t *testing.T) {
	t.Run("returns counter state for a live key", func(t *testing.T) {
		handler, counters, _ := newTestHandler(t)
		ctx := context.Background()

		_, _ = counters.Increment(ctx, "client1")
		hit, _ := counters.Increment(ctx, "client1")

		resp, err := handler.GetLimit(ctx, &handlers.GetLimitRequest{Key: "client1"})

		require.NoError(t, err)
		assert.Equal(t, "client1", resp.Body.Key)
		assert.Equal(t, int64(2), resp.Body.Count)
		assert.Equal(t, hit.ResetTime, resp.Body.ResetTime)
	})

	t.Run("returns 404 for an unknown key", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		_, err := handler.GetLimit(context.Background(), &handlers.GetLimitRequest{Key: "nope"})

		assertStatus(t, err, 404)
	})
}

func TestLimitsHandler_ResetLimit(t *testing.T) {
	t.Run("clears a single counter", func(t *testing.T) {
		handler, counters, _ := newTestHandler(t)
		ctx := context.Background()

		_, _ = counters.Increment(ctx, "client1")
		_, _ = counters.Increment(ctx, "client2")

		resp, err := handler.ResetLimit(ctx, &handlers.ResetLimitRequest{Key: "client1"})

		require.NoError(t, err)
		assert.Equal(t, 204, resp.Status)

		_, ok, _ := counters.Get(ctx, "client1")
		assert.False(t, ok)

		_, ok, _ = counters.Get(ctx, "client2")
		assert.True(t, ok)
	})
}

func TestLimitsHandler_ResetAll(t *testing.T) {
	t.Run("clears every counter", func(t *testing.T) {
		handler, counters, _ := newTestHandler(t)
		ctx := context.Background()

		_, _ = counters.Increment(ctx, "client1")
		_, _ = counters.Increment(ctx, "client2")

		resp, err := handler.ResetAll(ctx, nil)

		require.NoError(t, err)
		assert.Equal(t, 204, resp.Status)

		for _, key := range []string{"client1", "client2"} {
			_, ok, _ := counters.Get(ctx, key)
			assert.False(t, ok)
		}
	})
}

func TestLimitsHandler_ListDenials(t *testing.T) {
	t.Run("maps denial events", func(t *testing.T) {
		handler, _, denials := newTestHandler(t)

		now := time.Now()
		denials.denials = []events.RequestDeniedEvent{
			{Key: "2001:db8::/56", ClientIP: "2001:db8::1", Count: 101, DeniedAt: now},
			{Key: "203.0.113.5", Count: 7, DeniedAt: now.Add(-time.Minute)},
		}

		resp, err := handler.ListDenials(context.Background(), &handlers.ListDenialsRequest{Limit: 50})

		require.NoError(t, err)
		require.Len(t, resp.Body.Denials, 2)
		assert.Equal(t, "2001:db8::/56", resp.Body.Denials[0].Key)
		assert.Equal(t, int64(101), resp.Body.Denials[0].Count)
	})

	t.Run("returns empty list when nothing was denied", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		resp, err := handler.ListDenials(context.Background(), &handlers.ListDenialsRequest{Limit: 50})

		require.NoError(t, err)
		assert.Empty(t, resp.Body.Denials)
	})
}

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/throttle-go/internal/clientkey"
	"github.com/serroba/throttle-go/internal/events"
	"github.com/serroba/throttle-go/internal/middleware"
	"github.com/serroba/throttle-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testOutput struct {
	Body string `json:"body"`
}

type mockLimiter struct {
	mu      sync.Mutex
	allowed bool
	hit     ratelimit.Hit
	err     error
	keys    []string
}

func (m *mockLimiter) Allow(_ context.Context, key string) (bool, ratelimit.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys = append(m.keys, key)

	return m.allowed, m.hit, m.err
}

func (m *mockLimiter) seenKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.keys...)
}

func rawIPKey(ctx huma.Context) (string, error) {
	return ctx.Header("X-Real-IP"), nil
}

func setupLimitedAPI(
	t *testing.T,
	limiter ratelimit.Limiter,
	keyFn middleware.KeyFunc,
	publish events.PublishRequestDenied,
) *chi.Mux {
	t.Helper()

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(
		middleware.RequestMeta(api),
		middleware.RateLimiter(api, limiter, keyFn, zap.NewNop(), publish),
	)

	huma.Get(api, "/test", func(_ context.Context, _ *struct{}) (*testOutput, error) {
		return &testOutput{Body: "ok"}, nil
	})

	return router
}

func TestRateLimiter(t *testing.T) {
	t.Run("passes allowed requests through", func(t *testing.T) {
		limiter := &mockLimiter{allowed: true}
		router := setupLimitedAPI(t, limiter, rawIPKey, nil)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Real-IP", "203.0.113.5")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"203.0.113.5"}, limiter.seenKeys())
	})

	t.Run("rejects denied requests with 429", func(t *testing.T) {
		limiter := &mockLimiter{allowed: false, hit: ratelimit.Hit{Count: 101}}
		router := setupLimitedAPI(t, limiter, rawIPKey, nil)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Real-IP", "203.0.113.5")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("publishes one event per denial", func(t *testing.T) {
		limiter := &mockLimiter{allowed: false, hit: ratelimit.Hit{Count: 7}}

		var (
			mu        sync.Mutex
			published []events.RequestDeniedEvent
		)

		publish := func(event *events.RequestDeniedEvent) error {
			mu.Lock()
			defer mu.Unlock()

			published = append(published, *event)

			return nil
		}

		router := setupLimitedAPI(t, limiter, rawIPKey, publish)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Real-IP", "203.0.113.5")
		req.Header.Set("User-Agent", "TestAgent/1.0")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusTooManyRequests, w.Code)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, published, 1)
		assert.Equal(t, "203.0.113.5", published[0].Key)
		assert.Equal(t, "203.0.113.5", published[0].ClientIP)
		assert.Equal(t, "TestAgent/1.0", published[0].UserAgent)
		assert.Equal(t, int64(7), published[0].Count)
		assert.Equal(t, http.MethodGet, published[0].Method)
		assert.Equal(t, "/test", published[0].Path)
	})

	t.Run("denies with 429 even when publishing fails", func(t *testing.T) {
		limiter := &mockLimiter{allowed: false}
		publish := func(_ *events.RequestDeniedEvent) error {
			return errors.New("bus down")
		}
		router := setupLimitedAPI(t, limiter, rawIPKey, publish)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Real-IP", "203.0.113.5")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("returns 500 when the limiter fails", func(t *testing.T) {
		limiter := &mockLimiter{err: errors.New("store gone")}
		router := setupLimitedAPI(t, limiter, rawIPKey, nil)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Real-IP", "203.0.113.5")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("returns 500 when key derivation fails", func(t *testing.T) {
		limiter := &mockLimiter{allowed: true}
		keyFn := func(_ huma.Context) (string, error) {
			return "", clientkey.ErrInvalidSubnetSize
		}
		router := setupLimitedAPI(t, limiter, keyFn, nil)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, limiter.seenKeys())
	})
}

func TestClientIPKey(t *testing.T) {
	t.Run("collapses IPv6 clients to their subnet", func(t *testing.T) {
		limiter := &mockLimiter{allowed: true}
		keyFn := middleware.ClientIPKey(clientkey.NewNormalizer(10), 56)
		router := setupLimitedAPI(t, limiter, keyFn, nil)

		for _, ip := range []string{"2001:db8:85a3::1", "2001:db8:85a3:12:ffff::2"} {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("X-Forwarded-For", ip)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
		}

		keys := limiter.seenKeys()
		require.Len(t, keys, 2)
		assert.Equal(t, "2001:db8:85a3::/56", keys[0])
		assert.Equal(t, keys[0], keys[1], "siblings in one /56 must share a key")
	})

	t.Run("keeps IPv4 clients apart", func(t *testing.T) {
		limiter := &mockLimiter{allowed: true}
		keyFn := middleware.ClientIPKey(clientkey.NewNormalizer(10), 56)
		router := setupLimitedAPI(t, limiter, keyFn, nil)

		for _, ip := range []string{"203.0.113.5", "203.0.113.6"} {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("X-Forwarded-For", ip)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
		}

		keys := limiter.seenKeys()
		require.Len(t, keys, 2)
		assert.NotEqual(t, keys[0], keys[1])
	})
}

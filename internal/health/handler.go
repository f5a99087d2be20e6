package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// CounterStats reports the size of the counter store.
type CounterStats interface {
	TrackedKeys() int
}

// KeyCacheStats reports the size of the key normalization cache.
type KeyCacheStats interface {
	CachedKeys() int
}

// Handler handles health check operations.
type Handler struct {
	counters CounterStats
	keyCache KeyCacheStats
}

// NewHandler creates a new health handler.
func NewHandler(counters CounterStats, keyCache KeyCacheStats) *Handler {
	return &Handler{
		counters: counters,
		keyCache: keyCache,
	}
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status      string `json:"status"`
		TrackedKeys int    `json:"trackedKeys"`
		CachedKeys  int    `json:"cachedKeys"`
	}
}

// Check reports liveness plus the current size of the in-memory state.
// Everything is process-local, so there is no dependency to ping; the
// counts exist to make growth visible.
func (h *Handler) Check(_ context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"
	resp.Body.TrackedKeys = h.counters.TrackedKeys()
	resp.Body.CachedKeys = h.keyCache.CachedKeys()

	return resp, nil
}

// RegisterRoutes registers health check routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Get(api, "/health", h.Check)
}

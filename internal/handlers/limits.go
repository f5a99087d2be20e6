package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/throttle-go/internal/events"
	"github.com/serroba/throttle-go/internal/ratelimit"
	"go.uber.org/zap"
)

// DenialLog exposes the recent denial history for the ops API.
type DenialLog interface {
	Recent(n int) []events.RequestDeniedEvent
}

// LimitsHandler handles ops operations against the counter store.
type LimitsHandler struct {
	store   ratelimit.Store
	denials DenialLog
	logger  *zap.Logger
}

// NewLimitsHandler creates a new ops handler over the counter store and
// denial log.
func NewLimitsHandler(store ratelimit.Store, denials DenialLog, logger *zap.Logger) *LimitsHandler {
	return &LimitsHandler{
		store:   store,
		denials: denials,
		logger:  logger,
	}
}

// GetLimit returns the counter state for a key. Expired and unknown keys
// both report 404: an expired counter is indistinguishable from no counter.
func (h *LimitsHandler) GetLimit(ctx context.Context, req *GetLimitRequest) (*GetLimitResponse, error) {
	hit, ok, err := h.store.Get(ctx, req.Key)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read counter", err)
	}

	if !ok {
		return nil, huma.Error404NotFound("no live counter for key")
	}

	resp := &GetLimitResponse{}
	resp.Body.Key = req.Key
	resp.Body.Count = hit.Count
	resp.Body.ResetTime = hit.ResetTime

	return resp, nil
}

// ResetLimit removes the counter for a key, live or expired.
func (h *LimitsHandler) ResetLimit(ctx context.Context, req *ResetLimitRequest) (*ResetLimitResponse, error) {
	if err := h.store.ResetKey(ctx, req.Key); err != nil {
		return nil, huma.Error500InternalServerError("failed to reset counter", err)
	}

	h.logger.Info("counter reset", zap.String("key", req.Key))

	return &ResetLimitResponse{Status: http.StatusNoContent}, nil
}

// ResetAll removes every counter.
func (h *LimitsHandler) ResetAll(ctx context.Context, _ *struct{}) (*ResetAllResponse, error) {
	if err := h.store.ResetAll(ctx); err != nil {
		return nil, huma.Error500InternalServerError("failed to reset counters", err)
	}

	h.logger.Info("all counters reset")

	return &ResetAllResponse{Status: http.StatusNoContent}, nil
}

// ListDenials returns the most recent rate limit denials.
func (h *LimitsHandler) ListDenials(_ context.Context, req *ListDenialsRequest) (*ListDenialsResponse, error) {
	recent := h.denials.Recent(req.Limit)

	resp := &ListDenialsResponse{}
	resp.Body.Denials = make([]Denial, 0, len(recent))

	for _, e := range recent {
		resp.Body.Denials = append(resp.Body.Denials, Denial{
			Key:       e.Key,
			ClientIP:  e.ClientIP,
			UserAgent: e.UserAgent,
			Method:    e.Method,
			Path:      e.Path,
			Count:     e.Count,
			ResetTime: e.ResetTime,
			DeniedAt:  e.DeniedAt,
		})
	}

	return resp, nil
}

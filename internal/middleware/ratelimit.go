package middleware

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/throttle-go/internal/clientkey"
	"github.com/serroba/throttle-go/internal/events"
	"github.com/serroba/throttle-go/internal/handlers"
	"github.com/serroba/throttle-go/internal/ratelimit"
	"go.uber.org/zap"
)

// KeyFunc derives the rate limit key for a request.
type KeyFunc func(ctx huma.Context) (string, error)

// ClientIPKey returns a KeyFunc that keys requests by client IP, with IPv6
// addresses collapsed to the configured subnet. The fallback when request
// metadata is missing also goes through the normalizer, so IPv6 clients
// cannot bypass collapsing on any path.
func ClientIPKey(keys *clientkey.Normalizer, subnetBits int) KeyFunc {
	return func(ctx huma.Context) (string, error) {
		ip := handlers.RequestMetaFromContext(ctx.Context()).ClientIP
		if ip == "" {
			ip = extractClientIP(ctx)
		}

		return keys.Normalize(ip, subnetBits)
	}
}

// RateLimiter returns a Huma middleware that rejects requests over the
// limit with 429. Denials are logged and published as events; a failed
// publish never blocks the rejection itself.
func RateLimiter(
	api huma.API,
	limiter ratelimit.Limiter,
	keyFn KeyFunc,
	logger *zap.Logger,
	publishDenied events.PublishRequestDenied,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		key, err := keyFn(ctx)
		if err != nil {
			logger.Error("failed to derive rate limit key", zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		allowed, hit, err := limiter.Allow(ctx.Context(), key)
		if err != nil {
			logger.Error("rate limit check failed", zap.String("key", key), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if !allowed {
			handleDenied(api, ctx, key, hit, logger, publishDenied)

			return
		}

		next(ctx)
	}
}

func handleDenied(
	api huma.API,
	ctx huma.Context,
	key string,
	hit ratelimit.Hit,
	logger *zap.Logger,
	publishDenied events.PublishRequestDenied,
) {
	meta := handlers.RequestMetaFromContext(ctx.Context())
	path := getOperationPath(ctx)

	logger.Warn("rate limit exceeded",
		zap.String("key", key),
		zap.String("client_ip", meta.ClientIP),
		zap.String("method", ctx.Method()),
		zap.String("path", path),
		zap.Int64("count", hit.Count),
		zap.Time("reset_time", hit.ResetTime),
	)

	if publishDenied != nil {
		event := &events.RequestDeniedEvent{
			Key:       key,
			ClientIP:  meta.ClientIP,
			UserAgent: meta.UserAgent,
			Method:    ctx.Method(),
			Path:      path,
			Count:     hit.Count,
			ResetTime: hit.ResetTime,
			DeniedAt:  time.Now(),
		}

		if err := publishDenied(event); err != nil {
			logger.Error("failed to publish denial event",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "rate limit exceeded")
}

// getOperationPath extracts the route template from the operation, if
// available.
func getOperationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}

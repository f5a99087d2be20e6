package middleware

import (
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/serroba/throttle-go/internal/handlers"
)

// RequestMeta is a middleware that adds a request id, client IP, and
// user-agent to the request context.
func RequestMeta(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		meta := handlers.RequestMeta{
			RequestID: uuid.NewString(),
			ClientIP:  extractClientIP(ctx),
			UserAgent: ctx.Header("User-Agent"),
		}

		newCtx := handlers.ContextWithRequestMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}

func extractClientIP(ctx huma.Context) string {
	// Check X-Forwarded-For first (may contain multiple IPs)
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		// Take the first IP (original client)
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}

		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP
	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to remote addr; strip port and any IPv6 brackets so the
	// result is a bare address the key normalizer can work with
	host := ctx.Host()
	if ip, _, err := net.SplitHostPort(host); err == nil {
		return ip
	}

	return strings.Trim(host, "[]")
}

package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the ops API for inspecting and resetting rate
// limit counters.
func RegisterRoutes(api huma.API, h *LimitsHandler) {
	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/limits/{key}",
		Summary:     "Get counter state",
		Description: "Returns the current hit count and window reset time for a client key.",
		Tags:        []string{"Limits"},
	}, h.GetLimit)

	huma.Register(api, huma.Operation{
		Method:      http.MethodDelete,
		Path:        "/limits/{key}",
		Summary:     "Reset one counter",
		Description: "Removes any counter for the client key, live or expired.",
		Tags:        []string{"Limits"},
	}, h.ResetLimit)

	huma.Register(api, huma.Operation{
		Method:      http.MethodDelete,
		Path:        "/limits",
		Summary:     "Reset all counters",
		Description: "Removes every counter in the store.",
		Tags:        []string{"Limits"},
	}, h.ResetAll)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/denials",
		Summary:     "List recent denials",
		Description: "Returns the most recent rate limit denials, newest first.",
		Tags:        []string{"Limits"},
	}, h.ListDenials)
}

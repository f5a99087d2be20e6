package events

import "time"

// TopicRequestDenied carries one message per rate-limited request.
const TopicRequestDenied = "ratelimit.denied"

// RequestDeniedEvent represents an event emitted when a request is rate
// limited.
type RequestDeniedEvent struct {
	Key       string    `json:"key"`
	ClientIP  string    `json:"clientIp"`
	UserAgent string    `json:"userAgent"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Count     int64     `json:"count"`
	ResetTime time.Time `json:"resetTime"`
	DeniedAt  time.Time `json:"deniedAt"`
}

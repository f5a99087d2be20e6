package handlers

import "time"

// GetLimitRequest is the request for reading a key's counter state.
type GetLimitRequest struct {
	Key string `doc:"The client key to look up" example:"2001:db8:85a3::/56" path:"key"`
}

// GetLimitResponse is the response for a live counter.
type GetLimitResponse struct {
	Body struct {
		Key       string    `doc:"The client key"                        example:"2001:db8:85a3::/56"   json:"key"`
		Count     int64     `doc:"Hits recorded in the current window"   example:"42"                   json:"count"`
		ResetTime time.Time `doc:"When the current window resets"        example:"2026-01-02T15:04:05Z" json:"resetTime"`
	}
}

// ResetLimitRequest is the request for clearing a key's counter.
type ResetLimitRequest struct {
	Key string `doc:"The client key to reset" example:"2001:db8:85a3::/56" path:"key"`
}

// ResetLimitResponse is the empty response for a reset.
type ResetLimitResponse struct {
	Status int
}

// ResetAllResponse is the empty response for a full reset.
type ResetAllResponse struct {
	Status int
}

// ListDenialsRequest is the request for the recent denial log.
type ListDenialsRequest struct {
	Limit int `default:"50" doc:"Maximum number of denials to return" maximum:"1000" minimum:"1" query:"limit"`
}

// Denial is one entry in the denial log.
type Denial struct {
	Key       string    `doc:"The client key that was limited" json:"key"`
	ClientIP  string    `doc:"The raw client IP"               json:"clientIp"`
	UserAgent string    `doc:"The client user agent"           json:"userAgent"`
	Method    string    `doc:"The HTTP method"                 json:"method"`
	Path      string    `doc:"The route template"              json:"path"`
	Count     int64     `doc:"The hit count at denial time"    json:"count"`
	ResetTime time.Time `doc:"When the key's window resets"    json:"resetTime"`
	DeniedAt  time.Time `doc:"When the denial happened"        json:"deniedAt"`
}

// ListDenialsResponse is the response for the recent denial log.
type ListDenialsResponse struct {
	Body struct {
		Denials []Denial `doc:"Recent denials, newest first" json:"denials"`
	}
}

package api

import "time"

// API Request/Response Types

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// InvalidateResponse reports a cache invalidation.
type InvalidateResponse struct {
	Window  string `json:"window"`
	Dropped int    `json:"dropped"`
}

// VersionResponse identifies the running server.
type VersionResponse struct {
	Version string    `json:"version"`
	Started time.Time `json:"started"`
	Uptime  string    `json:"uptime"`
}

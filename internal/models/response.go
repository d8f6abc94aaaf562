// Package models - API response types and error handling.
// Response structures are kept consistent across endpoints: machine-readable
// codes alongside human-readable messages, RFC3339 timestamps, omitempty on
// optional fields.
package models

import (
	"time"
)

// RateLimitedMessage is the body text sent with every 429. Clients match on
// retryAfterSeconds, not this string, but the wording is part of the public
// contract and kept stable.
const RateLimitedMessage = "Rate limit exceeded. Please slow down and try again."

// RateLimitedResponse is the JSON body of a rate-limit rejection.
type RateLimitedResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}

// NewRateLimitedResponse builds the rejection body for a denial that clears
// in retryAfterSeconds seconds.
func NewRateLimitedResponse(retryAfterSeconds int) *RateLimitedResponse {
	return &RateLimitedResponse{
		Error:             RateLimitedMessage,
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// ErrorResponse provides structured error information for gateway-originated
// failures (upstream unreachable, internal errors). Rate-limit denials use
// RateLimitedResponse instead.
type ErrorResponse struct {
	Error     string    `json:"error"`     // Error type (always "error")
	Message   string    `json:"message"`   // Human-readable error description
	Code      string    `json:"code"`      // Machine-readable error code
	Timestamp time.Time `json:"timestamp"` // Error occurrence time
}

// Gateway error codes.
const (
	ErrorCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE" // 502: upstream connection failed
	ErrorCodeInternalError       = "INTERNAL_ERROR"       // 500: gateway-side error
	ErrorCodeInvalidRequest      = "INVALID_REQUEST"      // 400: malformed request
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// Health status constants.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:    status,
		Timestamp: time.Now(),
	}
}

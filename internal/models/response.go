// Package models - API response types.
// This file defines the outgoing response structures with consistent
// JSON formatting across all endpoints.
package models

import (
	"time"
)

// TooManyRequestsResponse is the body of every throttled (429) response.
// The shape is part of the external contract: clients key off Error and
// use RetryAfter (whole seconds until the window resets) for backoff.
type TooManyRequestsResponse struct {
	Error      string `json:"error"`      // Always "Too Many Requests"
	Message    string `json:"message"`    // Human-readable explanation
	RetryAfter int    `json:"retryAfter"` // Seconds until the current window resets
}

// NewTooManyRequestsResponse builds the throttled response body.
// RetryAfter is rounded up so clients never retry before the window ends.
func NewTooManyRequestsResponse(message string, retryAfter time.Duration) *TooManyRequestsResponse {
	secs := int(retryAfter.Seconds())
	if retryAfter > time.Duration(secs)*time.Second {
		secs++
	}
	if secs < 0 {
		secs = 0
	}
	return &TooManyRequestsResponse{
		Error:      "Too Many Requests",
		Message:    message,
		RetryAfter: secs,
	}
}

// ErrorResponse provides structured error information for non-throttling
// failures (bad input, internal errors).
type ErrorResponse struct {
	Error     string    `json:"error"`          // Error type (always "error")
	Message   string    `json:"message"`        // Human-readable error description
	Code      string    `json:"code,omitempty"` // Machine-readable error code
	Timestamp time.Time `json:"timestamp"`      // Error occurrence time
}

// Standard error codes used across the API
const (
	ErrorCodeBadRequest    = "BAD_REQUEST"    // 400: Malformed input
	ErrorCodeNotFound      = "NOT_FOUND"      // 404: Resource doesn't exist
	ErrorCodeInternalError = "INTERNAL_ERROR" // 500: Server-side error
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// HealthCheckResponse reports service liveness and the active counter
// store backend.
type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Backend   string    `json:"backend,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
}

// Package cafe24 provides a client for the Cafe24 Admin API
package cafe24

import (
	"fmt"
	"time"
)

// APIError represents an error response from the Cafe24 Admin API.
type APIError struct {
	StatusCode int
	Message    string
	Response   map[string]any
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Cafe24 API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError indicates the retry budget ran out while the API kept
// answering 429.
type RateLimitError struct {
	RetryAfter time.Duration
	Endpoint   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Cafe24 rate limit exceeded (retry after %s, endpoint: %s)", e.RetryAfter, e.Endpoint)
}

// NetworkError wraps transport-level failures such as timeouts and
// connection resets once the retry budget is exhausted.
type NetworkError struct {
	Err      error
	Endpoint string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("Cafe24 network error: %v (endpoint: %s)", e.Err, e.Endpoint)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError indicates a request was rejected locally before any
// network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

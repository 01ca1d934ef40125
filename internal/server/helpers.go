package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/manwonyori/cafe24-hub/internal/auth"
	"github.com/manwonyori/cafe24-hub/internal/clients/cafe24"
	"github.com/manwonyori/cafe24-hub/internal/common"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// PathParam extracts a path parameter from the URL path.
// For a pattern like /api/products/{no}/price, calling PathParam(r, "/api/products/", "/price")
// extracts the {no} part.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix, return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// WriteDomainError translates the client error taxonomy onto HTTP status
// codes: authentication failures map to 401, local validation to 400, rate
// limiting to 429, upstream API errors keep their status and transport
// failures surface as 502.
func WriteDomainError(w http.ResponseWriter, logger *common.Logger, err error) {
	var (
		authErr    *auth.AuthenticationError
		expiredErr *auth.TokenExpiredError
		valErr     *cafe24.ValidationError
		rateErr    *cafe24.RateLimitError
		apiErr     *cafe24.APIError
		netErr     *cafe24.NetworkError
	)

	switch {
	case errors.As(err, &authErr):
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: authErr.Message, Code: "authentication_error"})
	case errors.As(err, &expiredErr):
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: expiredErr.Message, Code: "token_expired"})
	case errors.As(err, &valErr):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: valErr.Error(), Code: "validation_error"})
	case errors.As(err, &rateErr):
		WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: rateErr.Error(), Code: "rate_limit_exceeded"})
	case errors.As(err, &apiErr):
		WriteJSON(w, apiErr.StatusCode, ErrorResponse{Error: apiErr.Message, Code: "api_error"})
	case errors.As(err, &netErr):
		WriteJSON(w, http.StatusBadGateway, ErrorResponse{Error: netErr.Error(), Code: "network_error"})
	default:
		logger.Error().Err(err).Msg("Unhandled error in HTTP handler")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

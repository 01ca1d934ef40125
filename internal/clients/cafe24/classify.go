package cafe24

import (
	"net/http"
	"strconv"
	"time"
)

// outcomeKind tags how the pipeline should react to a response.
type outcomeKind int

const (
	outcomeSuccess outcomeKind = iota
	outcomeNoContent
	outcomeAuthRetry   // 401, refresh once then retry
	outcomeRateLimited // 429, wait Retry-After then retry
	outcomeClientError // other 4xx, never retried
	outcomeServerRetry // 5xx, linear backoff retry
)

// outcome is the result of classifying an HTTP response, decoupled from the
// sleep and retry side effects so the mapping is testable on its own.
type outcome struct {
	kind       outcomeKind
	retryAfter time.Duration
}

// defaultRetryAfter applies when a 429 omits the Retry-After header.
const defaultRetryAfter = 60 * time.Second

// classifyStatus maps a status code and headers onto a pipeline reaction.
// The split the pipeline depends on: 4xx means the request itself is wrong
// and must not be retried, 5xx and transport failures are transient.
func classifyStatus(statusCode int, header http.Header) outcome {
	switch {
	case statusCode == http.StatusNoContent:
		return outcome{kind: outcomeNoContent}
	case statusCode >= 200 && statusCode < 300:
		return outcome{kind: outcomeSuccess}
	case statusCode == http.StatusUnauthorized:
		return outcome{kind: outcomeAuthRetry}
	case statusCode == http.StatusTooManyRequests:
		return outcome{kind: outcomeRateLimited, retryAfter: parseRetryAfter(header)}
	case statusCode >= 400 && statusCode < 500:
		return outcome{kind: outcomeClientError}
	default:
		return outcome{kind: outcomeServerRetry}
	}
}

func parseRetryAfter(header http.Header) time.Duration {
	raw := header.Get("Retry-After")
	if raw == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

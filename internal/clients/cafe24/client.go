package cafe24

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/manwonyori/cafe24-hub/internal/auth"
	"github.com/manwonyori/cafe24-hub/internal/common"
	"github.com/manwonyori/cafe24-hub/internal/interfaces"
	"github.com/manwonyori/cafe24-hub/internal/models"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRateLimit  = 100 // requests per minute
)

// Client issues authenticated requests against the Cafe24 Admin API with
// self-throttling and classified retries.
type Client struct {
	baseURL    string
	mallID     string
	apiVersion string
	auth       interfaces.AuthManager
	logger     *common.Logger

	timeout    time.Duration
	maxRetries int
	rateLimit  int

	throttle *windowThrottle
	limiter  *rate.Limiter

	mu         sync.Mutex
	httpClient *http.Client
	closed     bool

	sleep func(ctx context.Context, d time.Duration) error
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithMaxRetries sets the retry budget per call
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

// WithRateLimit sets the per-minute request ceiling
func WithRateLimit(requestsPerMinute int) ClientOption {
	return func(c *Client) {
		c.rateLimit = requestsPerMinute
	}
}

// NewClient creates a Cafe24 Admin API client for the configured mall.
func NewClient(cfg *common.Cafe24Config, auth interfaces.AuthManager, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    cfg.BaseURL(),
		mallID:     cfg.MallID,
		apiVersion: cfg.APIVersion,
		auth:       auth,
		logger:     common.NewSilentLogger(),
		timeout:    cfg.GetTimeout(),
		maxRetries: cfg.MaxRetries,
		rateLimit:  cfg.RateLimit,
		sleep:      sleepContext,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.rateLimit <= 0 {
		c.rateLimit = DefaultRateLimit
	}

	for _, opt := range opts {
		opt(c)
	}

	c.throttle = newWindowThrottle(c.rateLimit)
	// Smooths bursts inside the window so requests spread across the minute.
	perSecond := rate.Limit(float64(c.rateLimit) / 60.0)
	c.limiter = rate.NewLimiter(perSecond, throttleBuffer)

	return c
}

// client returns the shared HTTP client, creating it on first use.
func (c *Client) client() (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c.httpClient, nil
}

// Close releases the underlying HTTP transport. The client cannot be used
// after closing.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
		c.httpClient = nil
	}
	c.closed = true
}

// Request performs an authenticated call with bounded retries. Responses
// are classified per attempt: 401 triggers at most one token refresh, 429
// honors Retry-After, other 4xx fail immediately, 5xx and transport
// failures retry until the budget runs out.
func (c *Client) Request(ctx context.Context, method, path string, params url.Values, body any, headers map[string]string) (map[string]any, error) {
	endpoint := "/" + strings.TrimPrefix(path, "/")

	budget := c.maxRetries
	refreshed := false

	for attempt := 1; ; attempt++ {
		if err := c.throttle.Wait(ctx); err != nil {
			return nil, err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		// Auth failures are not retried here, the manager already tried
		// refreshing on its own.
		authHeaders, err := c.auth.AuthHeaders(ctx)
		if err != nil {
			return nil, err
		}

		status, respHeader, respBody, err := c.do(ctx, method, endpoint, params, body, authHeaders, headers)
		if err != nil {
			if budget <= 0 {
				return nil, &NetworkError{Err: err, Endpoint: endpoint}
			}
			budget--
			if !isTimeout(err) {
				if sleepErr := c.sleep(ctx, time.Second); sleepErr != nil {
					return nil, sleepErr
				}
			}
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Int("budget", budget).Msg("Transport error, retrying")
			continue
		}

		switch result := classifyStatus(status, respHeader); result.kind {
		case outcomeSuccess:
			return parseEnvelope(status, respBody), nil

		case outcomeNoContent:
			return map[string]any{"message": "No Content"}, nil

		case outcomeAuthRetry:
			if refreshed || budget <= 0 {
				return nil, &auth.AuthenticationError{
					Message:    "invalid or expired token",
					StatusCode: status,
				}
			}
			refreshed = true
			budget--
			c.logger.Info().Str("endpoint", endpoint).Msg("Received 401, refreshing token once")
			if _, err := c.auth.RefreshAccessToken(ctx); err != nil {
				return nil, err
			}

		case outcomeRateLimited:
			if budget <= 0 {
				return nil, &RateLimitError{RetryAfter: result.retryAfter, Endpoint: endpoint}
			}
			budget--
			c.logger.Warn().Dur("retry_after", result.retryAfter).Str("endpoint", endpoint).Msg("Rate limited, backing off")
			if err := c.sleep(ctx, result.retryAfter); err != nil {
				return nil, err
			}

		case outcomeClientError:
			errBody := parseErrorBody(respBody)
			return nil, &APIError{
				StatusCode: status,
				Message:    errorMessage(errBody, status),
				Response:   errBody,
				Endpoint:   endpoint,
			}

		case outcomeServerRetry:
			if budget <= 0 {
				errBody := parseErrorBody(respBody)
				return nil, &APIError{
					StatusCode: status,
					Message:    errorMessage(errBody, status),
					Response:   errBody,
					Endpoint:   endpoint,
				}
			}
			budget--
			backoff := time.Duration(attempt) * 2 * time.Second
			c.logger.Warn().Int("status", status).Dur("backoff", backoff).Str("endpoint", endpoint).Msg("Server error, retrying")
			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}
}

// do issues one HTTP attempt and returns the raw status, headers and body.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body any, authHeaders, extraHeaders map[string]string) (int, http.Header, []byte, error) {
	requestURL := c.baseURL + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range authHeaders {
		req.Header.Set(key, value)
	}
	for key, value := range extraHeaders {
		req.Header.Set(key, value)
	}

	httpClient, err := c.client()
	if err != nil {
		return 0, nil, nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, resp.Header, respBody, nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	return c.Request(ctx, http.MethodGet, path, params, nil, nil)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, path string, body any) (map[string]any, error) {
	return c.Request(ctx, http.MethodPost, path, nil, body, nil)
}

// Put performs a PUT request
func (c *Client) Put(ctx context.Context, path string, body any) (map[string]any, error) {
	return c.Request(ctx, http.MethodPut, path, nil, body, nil)
}

// Patch performs a PATCH request
func (c *Client) Patch(ctx context.Context, path string, body any) (map[string]any, error) {
	return c.Request(ctx, http.MethodPatch, path, nil, body, nil)
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, path string) (map[string]any, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Ping reports whether the API answers an authenticated request.
func (c *Client) Ping(ctx context.Context) bool {
	return c.ping(ctx) == nil
}

func (c *Client) ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("limit", "1")
	_, err := c.Get(ctx, "/admin/products", params)
	return err
}

// APIInfo reports the configured connection details and current throttle
// state, probing the API for reachability.
func (c *Client) APIInfo(ctx context.Context) *models.APIInfo {
	info := &models.APIInfo{
		MallID:     c.mallID,
		APIVersion: c.apiVersion,
		BaseURL:    c.baseURL,
		RateLimit: &models.RateLimitInfo{
			RequestsPerMinute: c.rateLimit,
			CurrentCount:      c.throttle.Snapshot(),
		},
	}
	if err := c.ping(ctx); err != nil {
		info.Error = err.Error()
		return info
	}
	info.Connected = true
	return info
}

// parseEnvelope decodes a success body, falling back to a text envelope
// when the payload is not a JSON object.
func parseEnvelope(status int, body []byte) map[string]any {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil && parsed != nil {
		return parsed
	}
	message := "Success"
	if status == http.StatusCreated {
		message = "Created"
	}
	return map[string]any{"message": message, "data": string(body)}
}

func parseErrorBody(body []byte) map[string]any {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil || parsed == nil {
		return map[string]any{"message": strings.TrimSpace(string(body))}
	}
	return parsed
}

func errorMessage(errBody map[string]any, status int) string {
	if msg, ok := errBody["message"].(string); ok && msg != "" {
		return msg
	}
	if nested, ok := errBody["error"].(map[string]any); ok {
		if msg, ok := nested["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if status >= 500 {
		return fmt.Sprintf("server error: %d", status)
	}
	return fmt.Sprintf("client error: %d", status)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Compile-time check
var _ interfaces.Cafe24Client = (*Client)(nil)

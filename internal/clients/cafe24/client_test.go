package cafe24

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manwonyori/cafe24-hub/internal/auth"
	"github.com/manwonyori/cafe24-hub/internal/common"
	"github.com/manwonyori/cafe24-hub/internal/interfaces"
	"github.com/manwonyori/cafe24-hub/internal/models"
)

// fakeAuth satisfies the auth surface the client needs, counting refreshes.
type fakeAuth struct {
	token        string
	refreshCount int
	headersErr   error
}

func (f *fakeAuth) AuthorizationURL(string) string { return "" }

func (f *fakeAuth) ExchangeCode(context.Context, string) (*models.TokenResponse, error) {
	return nil, nil
}

func (f *fakeAuth) RefreshAccessToken(context.Context) (string, error) {
	f.refreshCount++
	f.token = "refreshed-token"
	return f.token, nil
}

func (f *fakeAuth) ValidToken(context.Context) (string, error) { return f.token, nil }

func (f *fakeAuth) AuthHeaders(context.Context) (map[string]string, error) {
	if f.headersErr != nil {
		return nil, f.headersErr
	}
	return map[string]string{
		"Authorization":        "Bearer " + f.token,
		"Content-Type":         "application/json",
		"X-Cafe24-Api-Version": "2024-06-01",
	}, nil
}

func (f *fakeAuth) IsAuthenticated(context.Context) bool { return true }

func (f *fakeAuth) Logout(context.Context) error { return nil }

func (f *fakeAuth) TokenStatus(context.Context) *models.TokenStatus { return &models.TokenStatus{} }

var _ interfaces.AuthManager = (*fakeAuth)(nil)

func testClientConfig() *common.Cafe24Config {
	return &common.Cafe24Config{
		MallID:     "manwonyori",
		APIVersion: "2024-06-01",
		Timeout:    "30s",
		MaxRetries: 3,
		RateLimit:  6000, // keep the per-second smoother out of the way
	}
}

// newTestClient wires a client against an httptest server with sleeps
// recorded instead of performed.
func newTestClient(t *testing.T, srv *httptest.Server, authMgr interfaces.AuthManager) (*Client, *[]time.Duration) {
	t.Helper()
	client := NewClient(testClientConfig(), authMgr, WithBaseURL(srv.URL))
	slept := &[]time.Duration{}
	client.sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	client.throttle.sleep = client.sleep
	t.Cleanup(client.Close)
	return client, slept
}

func TestRequest_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok1", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-06-01", r.Header.Get("X-Cafe24-Api-Version"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"products": [{"product_no": 1}]}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv, &fakeAuth{token: "tok1"})

	result, err := client.Get(context.Background(), "/admin/products", nil)
	require.NoError(t, err)
	assert.Contains(t, result, "products")
}

func TestRequest_NonJSONBodyFallsBackToEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text response"))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv, &fakeAuth{token: "tok1"})

	result, err := client.Get(context.Background(), "/admin/anything", nil)
	require.NoError(t, err)
	assert.Equal(t, "Success", result["message"])
	assert.Equal(t, "plain text response", result["data"])
}

func TestRequest_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv, &fakeAuth{token: "tok1"})

	result, err := client.Delete(context.Background(), "/admin/products/5")
	require.NoError(t, err)
	assert.Equal(t, "No Content", result["message"])
}

func TestRequest_401RefreshesExactlyOnce(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	authMgr := &fakeAuth{token: "stale"}
	client, _ := newTestClient(t, srv, authMgr)

	_, err := client.Get(context.Background(), "/admin/products", nil)

	var authErr *auth.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 1, authMgr.refreshCount, "refresh must run exactly once per outer call")
	assert.Equal(t, 2, attempts, "second 401 fails without another refresh")
}

func TestRequest_401ThenSuccessAfterRefresh(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if r.Header.Get("Authorization") != "Bearer refreshed-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	authMgr := &fakeAuth{token: "stale"}
	client, _ := newTestClient(t, srv, authMgr)

	result, err := client.Get(context.Background(), "/admin/products", nil)
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])
	assert.Equal(t, 1, authMgr.refreshCount)
	assert.Equal(t, 2, attempts)
}

func TestRequest_500ExhaustsBudget(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, slept := newTestClient(t, srv, &fakeAuth{token: "tok1"})

	_, err := client.Get(context.Background(), "/admin/products", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, 4, attempts, "budget of 3 retries means 4 total attempts")

	// Linear backoff: attempt*2 seconds for each retried attempt.
	require.Len(t, *slept, 3)
	assert.Equal(t, 2*time.Second, (*slept)[0])
	assert.Equal(t, 4*time.Second, (*slept)[1])
	assert.Equal(t, 6*time.Second, (*slept)[2])
}

func TestRequest_429HonorsRetryAfter(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	client, slept := newTestClient(t, srv, &fakeAuth{token: "tok1"})

	_, err := client.Get(context.Background(), "/admin/products", nil)
	require.NoError(t, err)
	require.Len(t, *slept, 1)
	assert.Equal(t, 5*time.Second, (*slept)[0])
}

func TestRequest_429BudgetExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, slept := newTestClient(t, srv, &fakeAuth{token: "tok1"})

	_, err := client.Get(context.Background(), "/admin/products", nil)

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, defaultRetryAfter, rateErr.RetryAfter)
	assert.Len(t, *slept, 3, "each retry waits before the next attempt")
}

func TestRequest_4xxFailsImmediately(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "invalid field"}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv, &fakeAuth{token: "tok1"})

	_, err := client.Post(context.Background(), "/admin/products", map[string]any{"bad": true})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid field", apiErr.Message)
	assert.Equal(t, 1, attempts, "client errors are never retried")
}

func TestRequest_AuthErrorPropagatesWithoutRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should be issued when auth headers fail")
	}))
	defer srv.Close()

	authMgr := &fakeAuth{headersErr: &auth.AuthenticationError{Message: "no valid access token"}}
	client, _ := newTestClient(t, srv, authMgr)

	_, err := client.Get(context.Background(), "/admin/products", nil)

	var authErr *auth.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestRequest_TransportErrorExhaustsBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connections now refused

	client, _ := newTestClient(t, srv, &fakeAuth{token: "tok1"})

	_, err := client.Get(context.Background(), "/admin/products", nil)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestClient_CloseRejectsFurtherUse(t *testing.T) {
	client := NewClient(testClientConfig(), &fakeAuth{token: "tok1"})
	client.Close()

	_, err := client.Get(context.Background(), "/admin/products", nil)
	require.Error(t, err)
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		want   outcomeKind
	}{
		{"ok", http.StatusOK, nil, outcomeSuccess},
		{"created", http.StatusCreated, nil, outcomeSuccess},
		{"no content", http.StatusNoContent, nil, outcomeNoContent},
		{"unauthorized", http.StatusUnauthorized, nil, outcomeAuthRetry},
		{"rate limited", http.StatusTooManyRequests, nil, outcomeRateLimited},
		{"bad request", http.StatusBadRequest, nil, outcomeClientError},
		{"not found", http.StatusNotFound, nil, outcomeClientError},
		{"server error", http.StatusInternalServerError, nil, outcomeServerRetry},
		{"bad gateway", http.StatusBadGateway, nil, outcomeServerRetry},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := classifyStatus(tc.status, tc.header)
			assert.Equal(t, tc.want, result.kind)
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	header := http.Header{}
	assert.Equal(t, defaultRetryAfter, parseRetryAfter(header))

	header.Set("Retry-After", "5")
	assert.Equal(t, 5*time.Second, parseRetryAfter(header))

	header.Set("Retry-After", "garbage")
	assert.Equal(t, defaultRetryAfter, parseRetryAfter(header))
}

func TestWindowThrottle_SleepsAtThreshold(t *testing.T) {
	throttle := newWindowThrottle(100)

	current := time.Unix(1_000_000, 0)
	throttle.now = func() time.Time { return current }

	var slept []time.Duration
	throttle.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		current = current.Add(d)
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 95; i++ {
		require.NoError(t, throttle.Wait(ctx))
	}
	assert.Empty(t, slept, "first 95 requests pass without waiting")
	assert.Equal(t, 95, throttle.Snapshot())

	// The 96th request hits ceiling-buffer and sleeps out the window.
	require.NoError(t, throttle.Wait(ctx))
	require.Len(t, slept, 1)
	assert.Equal(t, windowLength, slept[0])
	assert.Equal(t, 1, throttle.Snapshot(), "window restarts with the request that waited")
}

func TestWindowThrottle_WindowExpiryResetsCount(t *testing.T) {
	throttle := newWindowThrottle(100)

	current := time.Unix(1_000_000, 0)
	throttle.now = func() time.Time { return current }
	throttle.sleep = func(context.Context, time.Duration) error {
		t.Fatal("no sleep expected")
		return nil
	}

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		require.NoError(t, throttle.Wait(ctx))
	}
	assert.Equal(t, 50, throttle.Snapshot())

	current = current.Add(windowLength + time.Second)
	require.NoError(t, throttle.Wait(ctx))
	assert.Equal(t, 1, throttle.Snapshot())
}

func TestAPIInfo_ReportsThrottleState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"products": []}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv, &fakeAuth{token: "tok1"})

	info := client.APIInfo(context.Background())
	assert.True(t, info.Connected)
	assert.Equal(t, "manwonyori", info.MallID)
	require.NotNil(t, info.RateLimit)
	assert.Equal(t, 6000, info.RateLimit.RequestsPerMinute)
	assert.Equal(t, 1, info.RateLimit.CurrentCount)
}

func TestAPIInfo_ReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "nope"}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv, &fakeAuth{token: "tok1"})

	info := client.APIInfo(context.Background())
	assert.False(t, info.Connected)
	assert.Contains(t, info.Error, "nope")
}

func TestNewClient_Defaults(t *testing.T) {
	cfg := &common.Cafe24Config{MallID: "manwonyori", APIVersion: "2024-06-01"}
	client := NewClient(cfg, &fakeAuth{token: "tok1"})
	defer client.Close()

	assert.Equal(t, DefaultTimeout, client.timeout)
	assert.Equal(t, DefaultMaxRetries, client.maxRetries)
	assert.Equal(t, DefaultRateLimit, client.rateLimit)
	assert.Equal(t, "https://manwonyori.cafe24api.com/api/v2", client.baseURL)
}

// Verify the url.Values convenience argument is encoded onto the URL.
func TestRequest_EncodesParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "셔츠", r.URL.Query().Get("product_name"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv, &fakeAuth{token: "tok1"})

	params := url.Values{}
	params.Set("limit", "10")
	params.Set("product_name", "셔츠")
	_, err := client.Get(context.Background(), "/admin/products", params)
	require.NoError(t, err)
}

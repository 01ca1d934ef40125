package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/manwonyori/cafe24-hub/internal/common"
	"github.com/manwonyori/cafe24-hub/internal/interfaces"
	"github.com/manwonyori/cafe24-hub/internal/models"
)

const (
	// safetyMargin is how close to expiry an access token may get before a
	// proactive refresh kicks in.
	safetyMargin = 300 * time.Second

	// defaultAccessTTL applies when the token endpoint omits expires_in.
	defaultAccessTTL = 7200 * time.Second

	// refreshTokenTTL is fixed by Cafe24 at 30 days.
	refreshTokenTTL = 30 * 24 * time.Hour
)

// Manager drives the Cafe24 OAuth2 authorization-code flow and keeps the
// token store populated. All API calls obtain their bearer token here.
type Manager struct {
	config  *common.Config
	store   interfaces.TokenStore
	client  *http.Client
	logger  *common.Logger
	baseURL string
	now     func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithHTTPClient sets a custom HTTP client for token endpoint calls.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) {
		m.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithBaseURL overrides the mall-derived API base URL.
func WithBaseURL(baseURL string) ManagerOption {
	return func(m *Manager) {
		m.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates an OAuth manager backed by the given token store.
// Missing client credentials are tolerated here so a development server can
// still start; token endpoint calls fail with AuthenticationError until they
// are configured, and production startup rejects the config outright.
func NewManager(config *common.Config, store interfaces.TokenStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		config:  config,
		store:   store,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  common.NewSilentLogger(),
		baseURL: config.Cafe24.BaseURL(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AuthorizationURL builds the Cafe24 consent screen URL. An empty scope list
// defers to the scopes configured on the Cafe24 app itself.
func (m *Manager) AuthorizationURL(state string) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", m.config.Cafe24.ClientID)
	params.Set("redirect_uri", m.config.DefaultRedirectURI())
	if len(m.config.Cafe24.Scopes) > 0 {
		params.Set("scope", strings.Join(m.config.Cafe24.Scopes, " "))
	}
	if state != "" {
		params.Set("state", state)
	}
	return m.baseURL + "/oauth/authorize?" + params.Encode()
}

// ExchangeCode trades an authorization code for tokens and persists them.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (*models.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", m.config.DefaultRedirectURI())

	tokens, err := m.postTokenForm(ctx, form)
	if err != nil {
		return nil, err
	}
	if err := m.saveTokens(ctx, tokens); err != nil {
		return nil, err
	}

	m.logger.Info().Str("mall_id", m.config.Cafe24.MallID).Msg("Exchanged authorization code for tokens")
	return tokens, nil
}

// RefreshAccessToken obtains a new access token using the stored refresh
// token. A rejected refresh clears the store so the next status check
// reports unauthenticated instead of retrying a dead grant.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	refreshToken, ok := m.store.Get(ctx, models.TokenTypeRefresh)
	if !ok {
		return "", &TokenExpiredError{Message: "no refresh token available, re-authentication required"}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	tokens, err := m.postTokenForm(ctx, form)
	if err != nil {
		if authErr, isAuth := err.(*AuthenticationError); isAuth && authErr.StatusCode != 0 {
			m.logger.Warn().Int("status", authErr.StatusCode).Msg("Token refresh rejected, clearing stored tokens")
			if clearErr := m.store.ClearAll(ctx); clearErr != nil {
				m.logger.Error().Err(clearErr).Msg("Failed to clear tokens after rejected refresh")
			}
			return "", &TokenExpiredError{Message: "token refresh failed, re-authentication required"}
		}
		return "", err
	}
	if err := m.saveTokens(ctx, tokens); err != nil {
		return "", err
	}

	m.logger.Info().Msg("Refreshed access token")
	return tokens.AccessToken, nil
}

// ValidToken returns an access token guaranteed to outlive the safety
// margin, refreshing proactively when the stored one is close to expiry.
func (m *Manager) ValidToken(ctx context.Context) (string, error) {
	if secret, ok := m.store.Get(ctx, models.TokenTypeAccess); ok {
		if info, infoOK := m.store.Info(ctx, models.TokenTypeAccess); infoOK && info.ExpiresInSeconds > int64(safetyMargin.Seconds()) {
			return secret, nil
		}
		m.logger.Debug().Msg("Access token expiring soon, refreshing")
	}

	if _, ok := m.store.Get(ctx, models.TokenTypeRefresh); !ok {
		return "", &AuthenticationError{Message: "no valid access token, complete the authorization flow first"}
	}
	return m.RefreshAccessToken(ctx)
}

// AuthHeaders returns the headers every authenticated API request carries.
func (m *Manager) AuthHeaders(ctx context.Context) (map[string]string, error) {
	token, err := m.ValidToken(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization":        "Bearer " + token,
		"Content-Type":         "application/json",
		"X-Cafe24-Api-Version": m.config.Cafe24.APIVersion,
	}, nil
}

// IsAuthenticated reports whether an unexpired access token is stored.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	_, ok := m.store.Get(ctx, models.TokenTypeAccess)
	return ok
}

// Logout removes all stored tokens.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	m.logger.Info().Msg("Cleared stored tokens")
	return nil
}

// TokenStatus summarizes the stored tokens without exposing their secrets.
func (m *Manager) TokenStatus(ctx context.Context) *models.TokenStatus {
	status := &models.TokenStatus{}
	if info, ok := m.store.Info(ctx, models.TokenTypeAccess); ok {
		status.AccessToken = info
		status.Authenticated = !info.IsExpired
	}
	if info, ok := m.store.Info(ctx, models.TokenTypeRefresh); ok {
		status.RefreshToken = info
	}
	return status
}

// postTokenForm submits a form-encoded grant to the token endpoint using
// HTTP Basic client authentication.
func (m *Manager) postTokenForm(ctx context.Context, form url.Values) (*models.TokenResponse, error) {
	if m.config.Cafe24.ClientID == "" || m.config.Cafe24.ClientSecret == "" {
		return nil, &AuthenticationError{
			Message: "missing Cafe24 credentials, set CAFE24_CLIENT_ID and CAFE24_CLIENT_SECRET",
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthenticationError{Message: fmt.Sprintf("failed to build token request: %v", err)}
	}
	req.SetBasicAuth(m.config.Cafe24.ClientID, m.config.Cafe24.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &AuthenticationError{Message: fmt.Sprintf("token request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &AuthenticationError{Message: fmt.Sprintf("failed to read token response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		m.logger.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("Token endpoint returned an error")
		return nil, &AuthenticationError{
			Message:    fmt.Sprintf("token endpoint returned %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	var tokens models.TokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, &AuthenticationError{Message: fmt.Sprintf("invalid token response: %v", err)}
	}
	if tokens.AccessToken == "" {
		return nil, &AuthenticationError{Message: "token response missing access_token"}
	}
	return &tokens, nil
}

// saveTokens persists a token response. The refresh token is always stored
// with the fixed 30-day lifetime Cafe24 grants it.
func (m *Manager) saveTokens(ctx context.Context, tokens *models.TokenResponse) error {
	accessTTL := defaultAccessTTL
	if tokens.ExpiresIn > 0 {
		accessTTL = time.Duration(tokens.ExpiresIn) * time.Second
	}
	tokenType := tokens.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	err := m.store.Save(ctx, models.TokenTypeAccess, tokens.AccessToken, accessTTL, map[string]string{
		"token_type": tokenType,
		"scope":      tokens.Scope,
	})
	if err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}

	if tokens.RefreshToken != "" {
		if err := m.store.Save(ctx, models.TokenTypeRefresh, tokens.RefreshToken, refreshTokenTTL, nil); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
	}
	return nil
}

// Compile-time check
var _ interfaces.AuthManager = (*Manager)(nil)

package server

import (
	"net/http"
	"time"

	"github.com/manwonyori/cafe24-hub/internal/auth"
)

// handleAuthLogin handles GET /auth/login.
// Redirects the merchant to the Cafe24 consent screen with a signed state
// parameter for CSRF protection.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	state, err := auth.SignState([]byte(s.app.Config.Security.JWTSecret), time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign OAuth state")
		WriteError(w, http.StatusInternalServerError, "Failed to start login")
		return
	}

	http.Redirect(w, r, s.app.AuthManager.AuthorizationURL(state), http.StatusFound)
}

// handleAuthCallback handles GET /auth/callback?code=&state=&error=.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query()
	if oauthErr := query.Get("error"); oauthErr != "" {
		message := oauthErr
		if desc := query.Get("error_description"); desc != "" {
			message += ": " + desc
		}
		s.logger.Warn().Str("error", message).Msg("OAuth callback returned an error")
		WriteError(w, http.StatusBadRequest, message)
		return
	}

	code := query.Get("code")
	if code == "" {
		WriteError(w, http.StatusBadRequest, "Authorization code not provided")
		return
	}

	if err := auth.VerifyState(query.Get("state"), []byte(s.app.Config.Security.JWTSecret)); err != nil {
		s.logger.Warn().Err(err).Msg("OAuth state verification failed")
		WriteError(w, http.StatusBadRequest, "Invalid state parameter")
		return
	}

	if _, err := s.app.AuthManager.ExchangeCode(r.Context(), code); err != nil {
		s.logger.Error().Err(err).Msg("Code exchange failed")
		WriteDomainError(w, s.logger, err)
		return
	}

	s.logger.Info().Msg("OAuth authentication successful")
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"status":        s.app.AuthManager.TokenStatus(r.Context()),
	})
}

// handleAuthLogout handles GET /auth/logout.
func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	if err := s.app.AuthManager.Logout(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("Logout failed")
		WriteError(w, http.StatusInternalServerError, "Failed to clear tokens")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
}

// handleAuthStatus handles GET /auth/status.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.AuthManager.TokenStatus(r.Context()))
}

package server

import (
	"net/http"
	"time"

	"github.com/manwonyori/cafe24-hub/internal/common"
)

// handleRoot handles GET /, a small service summary for humans hitting the
// base URL.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"service":       "cafe24-hub",
		"version":       common.GetVersion(),
		"mall_id":       s.app.Config.Cafe24.MallID,
		"authenticated": s.app.AuthManager.IsAuthenticated(r.Context()),
		"endpoints": []string{
			"/auth/login", "/auth/callback", "/auth/logout", "/auth/status",
			"/api/products", "/api/products/{no}", "/api/search",
			"/api/health", "/api/version", "/api/info",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"authenticated": s.app.AuthManager.IsAuthenticated(r.Context()),
		"uptime":        time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleConfig handles GET /api/config, exposing only sanitized settings.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.Config.Sanitized())
}

// handleAPIInfo handles GET /api/info, probing upstream connectivity.
func (s *Server) handleAPIInfo(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.Cafe24.APIInfo(r.Context()))
}

// Package models defines the data types shared across Cafe24 Hub
package models

import "time"

// Well-known token types. Any other string is accepted as a caller-defined type.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenRecord is the persisted representation of a token. Secret is always
// ciphertext as stored; only the token store decrypts it.
type TokenRecord struct {
	Type      string            `json:"type"`
	Secret    string            `json:"token"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TokenInfo is the metadata view of a stored token: everything except the
// decrypted secret, plus computed expiry status.
type TokenInfo struct {
	Type             string            `json:"type"`
	CreatedAt        time.Time         `json:"created_at"`
	ExpiresAt        time.Time         `json:"expires_at"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	IsExpired        bool              `json:"is_expired"`
	ExpiresInSeconds int64             `json:"expires_in_seconds"`
}

// TokenStatus is the authentication status snapshot returned by /auth/status.
type TokenStatus struct {
	Authenticated bool       `json:"authenticated"`
	AccessToken   *TokenInfo `json:"access_token,omitempty"`
	RefreshToken  *TokenInfo `json:"refresh_token,omitempty"`
}

// TokenResponse is the Cafe24 OAuth token endpoint response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

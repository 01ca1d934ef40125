package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "2024-06-01", cfg.Cafe24.APIVersion)
	assert.Equal(t, 3, cfg.Cafe24.MaxRetries)
	assert.Equal(t, 100, cfg.Cafe24.RateLimit)
	assert.Equal(t, ".tokens.encrypted", cfg.Tokens.FilePath)
	assert.False(t, cfg.Cache.Enabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hub.toml")
	data := `
environment = "development"

[cafe24]
mall_id = "examplemall"
client_id = "file-client"
client_secret = "file-secret"
rate_limit = 40
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Setenv("CAFE24_CLIENT_ID", "env-client")
	t.Setenv("API_TIMEOUT", "45")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "examplemall", cfg.Cafe24.MallID)
	// Environment wins over the file
	assert.Equal(t, "env-client", cfg.Cafe24.ClientID)
	assert.Equal(t, "file-secret", cfg.Cafe24.ClientSecret)
	assert.Equal(t, 40, cfg.Cafe24.RateLimit)
	// Bare integers are treated as seconds
	assert.Equal(t, "45s", cfg.Cafe24.Timeout)
	assert.Equal(t, float64(45), cfg.Cafe24.GetTimeout().Seconds())
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "manwonyori", cfg.Cafe24.MallID)
}

func TestBaseURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Cafe24.MallID = "shopone"
	assert.Equal(t, "https://shopone.cafe24api.com/api/v2", cfg.Cafe24.BaseURL())
}

func TestDefaultRedirectURI(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Server.Port = 3000
	assert.Equal(t, "http://localhost:3000/auth/callback", cfg.DefaultRedirectURI())

	cfg.Cafe24.RedirectURI = "https://example.com/cb"
	assert.Equal(t, "https://example.com/cb", cfg.DefaultRedirectURI())
}

func TestValidate_ProductionRejectsPlaceholders(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Environment = "production"
	cfg.Cafe24.ClientID = "id"
	cfg.Cafe24.ClientSecret = "secret"

	// Placeholder JWT secret and empty encryption key are both rejected.
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encryption_key")
	assert.Contains(t, err.Error(), "jwt_secret")

	cfg.Security.EncryptionKey = "0123456789abcdef0123456789abcdef"
	cfg.Security.JWTSecret = "a-real-signing-secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ProductionRequiresCredentials(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Environment = "production"
	cfg.Security.EncryptionKey = "0123456789abcdef0123456789abcdef"
	cfg.Security.JWTSecret = "a-real-signing-secret"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client_id")

	// Development tolerates missing credentials
	cfg.Environment = "development"
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.HasCredentials())
}

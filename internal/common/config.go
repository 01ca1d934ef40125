// Package common provides shared utilities for Cafe24 Hub
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultJWTSecret is the placeholder signing secret shipped in the default
// config. Production startup refuses to run with it still in place.
const DefaultJWTSecret = "dev-jwt-secret-change-in-production"

// Config holds all configuration for Cafe24 Hub
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Cafe24      Cafe24Config   `toml:"cafe24"`
	Security    SecurityConfig `toml:"security"`
	Tokens      TokenConfig    `toml:"tokens"`
	Cache       CacheConfig    `toml:"cache"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Cafe24Config holds the Cafe24 admin API configuration.
type Cafe24Config struct {
	MallID       string   `toml:"mall_id"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	APIVersion   string   `toml:"api_version"`
	Timeout      string   `toml:"timeout"`
	MaxRetries   int      `toml:"max_retries"`
	RateLimit    int      `toml:"rate_limit"` // requests per 60-second window
	RedirectURI  string   `toml:"redirect_uri"`
	Scopes       []string `toml:"scopes"`
}

// GetTimeout parses and returns the timeout duration
func (c *Cafe24Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// BaseURL returns the mall-specific Cafe24 API base URL.
func (c *Cafe24Config) BaseURL() string {
	return fmt.Sprintf("https://%s.cafe24api.com/api/v2", c.MallID)
}

// SecurityConfig holds encryption and signing secrets.
type SecurityConfig struct {
	EncryptionKey string `toml:"encryption_key"`
	JWTSecret     string `toml:"jwt_secret"`
}

// TokenConfig holds token persistence configuration.
type TokenConfig struct {
	FilePath string `toml:"file_path"`
}

// CacheConfig holds the optional SurrealDB token cache configuration.
// The cache is disabled unless an address is set.
type CacheConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// Enabled reports whether a cache backend is configured.
func (c *CacheConfig) Enabled() bool {
	return c.Address != ""
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Cafe24: Cafe24Config{
			MallID:     "manwonyori",
			APIVersion: "2024-06-01",
			Timeout:    "30s",
			MaxRetries: 3,
			RateLimit:  100,
		},
		Security: SecurityConfig{
			JWTSecret: DefaultJWTSecret,
		},
		Tokens: TokenConfig{
			FilePath: ".tokens.encrypted",
		},
		Cache: CacheConfig{
			Namespace: "cafe24",
			Database:  "hub",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Apply environment overrides
	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Variable names match the ones used by the Cafe24 developer console docs.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("HUB_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("HUB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if v := os.Getenv("CAFE24_MALL_ID"); v != "" {
		config.Cafe24.MallID = v
	}
	if v := os.Getenv("CAFE24_CLIENT_ID"); v != "" {
		config.Cafe24.ClientID = v
	}
	if v := os.Getenv("CAFE24_CLIENT_SECRET"); v != "" {
		config.Cafe24.ClientSecret = v
	}
	if v := os.Getenv("CAFE24_REDIRECT_URI"); v != "" {
		config.Cafe24.RedirectURI = v
	}
	if v := os.Getenv("API_VERSION"); v != "" {
		config.Cafe24.APIVersion = v
	}
	if v := os.Getenv("API_TIMEOUT"); v != "" {
		// Bare integers are taken as seconds
		if _, err := strconv.Atoi(v); err == nil {
			v += "s"
		}
		config.Cafe24.Timeout = v
	}
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Cafe24.MaxRetries = n
		}
	}

	if v := os.Getenv("ENCRYPTION_KEY"); v != "" {
		config.Security.EncryptionKey = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.Security.JWTSecret = v
	}

	if v := os.Getenv("TOKEN_FILE"); v != "" {
		config.Tokens.FilePath = v
	}

	if v := os.Getenv("CACHE_ADDRESS"); v != "" {
		config.Cache.Address = v
	}
	if v := os.Getenv("CACHE_USERNAME"); v != "" {
		config.Cache.Username = v
	}
	if v := os.Getenv("CACHE_PASSWORD"); v != "" {
		config.Cache.Password = v
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
}

// Validate checks required configuration. Missing API credentials and
// placeholder secrets are fatal in production; development tolerates them
// (callers log a warning instead).
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}

	var errs []string
	if c.Cafe24.ClientID == "" {
		errs = append(errs, "cafe24.client_id is required")
	}
	if c.Cafe24.ClientSecret == "" {
		errs = append(errs, "cafe24.client_secret is required")
	}
	if c.Security.EncryptionKey == "" {
		errs = append(errs, "security.encryption_key must be set in production")
	}
	if c.Security.JWTSecret == DefaultJWTSecret {
		errs = append(errs, "security.jwt_secret must be changed in production")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// HasCredentials reports whether the Cafe24 client id and secret are configured.
func (c *Config) HasCredentials() bool {
	return c.Cafe24.ClientID != "" && c.Cafe24.ClientSecret != ""
}

// DefaultRedirectURI returns the OAuth redirect URI, falling back to an
// environment-dependent default when none is configured.
func (c *Config) DefaultRedirectURI() string {
	if c.Cafe24.RedirectURI != "" {
		return c.Cafe24.RedirectURI
	}
	if c.IsProduction() {
		return fmt.Sprintf("https://%s-hub.onrender.com/auth/callback", c.Cafe24.MallID)
	}
	return fmt.Sprintf("http://localhost:%d/auth/callback", c.Server.Port)
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Sanitized returns the configuration view served by /api/config:
// everything except secrets.
func (c *Config) Sanitized() map[string]any {
	return map[string]any{
		"environment": c.Environment,
		"mall_id":     c.Cafe24.MallID,
		"api_version": c.Cafe24.APIVersion,
		"timeout":     c.Cafe24.Timeout,
		"max_retries": c.Cafe24.MaxRetries,
		"rate_limit":  c.Cafe24.RateLimit,
		"scopes":      c.Cafe24.Scopes,
		"cache":       c.Cache.Enabled(),
	}
}

package app

import (
	"time"

	"github.com/manwonyori/cafe24-hub/internal/auth"
	"github.com/manwonyori/cafe24-hub/internal/clients/cafe24"
	"github.com/manwonyori/cafe24-hub/internal/common"
	"github.com/manwonyori/cafe24-hub/internal/interfaces"
	"github.com/manwonyori/cafe24-hub/internal/storage/surrealdb"
	"github.com/manwonyori/cafe24-hub/internal/token"
)

// App holds the initialized token store, auth manager and API client. It is
// the shared core used by cmd/cafe24-server.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	TokenStore  interfaces.TokenStore
	AuthManager interfaces.AuthManager
	Cafe24      interfaces.Cafe24Client
	StartupTime time.Time

	cache *surrealdb.TokenCache
}

// NewApp wires the application from configuration: encryption key, durable
// token file, optional SurrealDB cache, OAuth manager and the API client.
func NewApp(config *common.Config) (*App, error) {
	logger := common.NewLoggerFromConfig(config.Logging)

	a := &App{
		Config:      config,
		Logger:      logger,
		StartupTime: time.Now(),
	}

	key, err := encryptionKey(config, logger)
	if err != nil {
		return nil, err
	}
	cipher, err := token.NewCipher(key)
	if err != nil {
		return nil, err
	}

	durable := token.NewFileBackend(config.Tokens.FilePath, cipher)

	storeOpts := []token.StoreOption{token.WithLogger(logger)}
	if config.Cache.Enabled() {
		cache, err := surrealdb.Connect(config.Cache, logger)
		if err != nil {
			// The durable file keeps working without the cache.
			logger.Warn().Err(err).Str("address", config.Cache.Address).Msg("Token cache unavailable, continuing with file store only")
		} else {
			a.cache = cache
			storeOpts = append(storeOpts, token.WithCache(cache))
		}
	}

	a.TokenStore = token.NewStore(cipher, durable, storeOpts...)

	if !config.HasCredentials() {
		logger.Warn().Msg("Cafe24 credentials not configured, API calls will fail until CAFE24_CLIENT_ID and CAFE24_CLIENT_SECRET are set")
	}

	manager := auth.NewManager(config, a.TokenStore, auth.WithLogger(logger))
	a.AuthManager = manager

	a.Cafe24 = cafe24.NewClient(&config.Cafe24, manager, cafe24.WithLogger(logger))

	logger.Info().
		Str("mall_id", config.Cafe24.MallID).
		Str("environment", config.Environment).
		Bool("cache", a.cache != nil).
		Msg("Application initialized")

	return a, nil
}

// encryptionKey derives the token encryption key from configuration. In
// development a missing key falls back to a random one, which makes stored
// tokens unreadable after restart, so it logs loudly. Production refuses to
// start without a key via config validation.
func encryptionKey(config *common.Config, logger *common.Logger) ([]byte, error) {
	if config.Security.EncryptionKey != "" {
		return token.DeriveKey(config.Security.EncryptionKey)
	}
	logger.Warn().Msg("ENCRYPTION_KEY not set, using a random key; stored tokens will not survive a restart")
	return token.NewRandomKey()
}

// Close releases the API client transport and the cache connection.
func (a *App) Close() {
	if a.Cafe24 != nil {
		a.Cafe24.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close token cache")
		}
	}
}

// Package surrealdb implements the optional fast token cache on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/manwonyori/cafe24-hub/internal/common"
	"github.com/manwonyori/cafe24-hub/internal/interfaces"
	"github.com/manwonyori/cafe24-hub/internal/models"
)

const tokenTable = "cafe24_token"

// tokenRow is the DB-level representation of a cached token record.
// The secret column holds ciphertext; the cache never sees plaintext.
type tokenRow struct {
	Key       string            `json:"key"`
	Type      string            `json:"type"`
	Secret    string            `json:"secret"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TokenCache implements interfaces.TokenBackend using SurrealDB.
// Records carry the same expiry as the durable file so the two backends never
// disagree about liveness; the composing store applies lazy expiry on read.
type TokenCache struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// Connect opens a SurrealDB connection for the token cache and ensures the
// token table exists.
func Connect(cfg common.CacheConfig, logger *common.Logger) (*TokenCache, error) {
	ctx := context.Background()

	db, err := surrealdb.New(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": cfg.Username,
		"pass": cfg.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", tokenTable)
	if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
		return nil, fmt.Errorf("failed to define table %s: %w", tokenTable, err)
	}

	logger.Info().
		Str("address", cfg.Address).
		Str("namespace", cfg.Namespace).
		Str("database", cfg.Database).
		Msg("Token cache connected")

	return &TokenCache{db: db, logger: logger}, nil
}

// NewTokenCache wraps an existing connection, for tests.
func NewTokenCache(db *surrealdb.DB, logger *common.Logger) *TokenCache {
	return &TokenCache{db: db, logger: logger}
}

// cacheKey mirrors the legacy Redis key layout.
func cacheKey(tokenType string) string {
	return "cafe24:token:" + tokenType
}

func (c *TokenCache) Get(ctx context.Context, tokenType string) (*models.TokenRecord, error) {
	row, err := surrealdb.Select[tokenRow](ctx, c.db, surrealmodels.NewRecordID(tokenTable, cacheKey(tokenType)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached token: %w", err)
	}
	if row == nil || row.Type == "" {
		return nil, nil
	}

	return &models.TokenRecord{
		Type:      row.Type,
		Secret:    row.Secret,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
		Metadata:  row.Metadata,
	}, nil
}

func (c *TokenCache) Set(ctx context.Context, record *models.TokenRecord, _ time.Duration) error {
	row := tokenRow{
		Key:       cacheKey(record.Type),
		Type:      record.Type,
		Secret:    record.Secret,
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
		Metadata:  record.Metadata,
	}

	sql := fmt.Sprintf("UPSERT type::record('%s', $id) CONTENT $row", tokenTable)
	vars := map[string]any{"id": row.Key, "row": row}
	if _, err := surrealdb.Query[[]tokenRow](ctx, c.db, sql, vars); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}

func (c *TokenCache) Delete(ctx context.Context, tokenType string) error {
	rid := surrealmodels.NewRecordID(tokenTable, cacheKey(tokenType))
	if _, err := surrealdb.Delete[tokenRow](ctx, c.db, rid); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete cached token: %w", err)
	}
	return nil
}

func (c *TokenCache) Clear(ctx context.Context) error {
	sql := fmt.Sprintf("DELETE %s", tokenTable)
	if _, err := surrealdb.Query[any](ctx, c.db, sql, nil); err != nil {
		return fmt.Errorf("failed to clear token cache: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *TokenCache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close(context.Background())
}

// isNotFoundError reports whether the error represents a missing record.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no record")
}

var _ interfaces.TokenBackend = (*TokenCache)(nil)

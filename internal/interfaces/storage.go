// Package interfaces defines service contracts for Cafe24 Hub
package interfaces

import (
	"context"
	"time"

	"github.com/manwonyori/cafe24-hub/internal/models"
)

// TokenBackend is a single token storage backend. The store composes a
// mandatory durable file backend with an optional fast cache backend using a
// read-through / write-through strategy.
//
// Get returns (nil, nil) on a miss; errors are reserved for backend failures,
// which the store degrades to misses.
type TokenBackend interface {
	Get(ctx context.Context, tokenType string) (*models.TokenRecord, error)
	Set(ctx context.Context, record *models.TokenRecord, ttl time.Duration) error
	Delete(ctx context.Context, tokenType string) error
	Clear(ctx context.Context) error
}

// TokenStore is the secure token store consumed by the auth manager.
// Lookups never fail hard: a token that is absent, expired, or unreadable is
// simply reported as missing so callers can re-authenticate.
type TokenStore interface {
	Save(ctx context.Context, tokenType, secret string, ttl time.Duration, metadata map[string]string) error
	Get(ctx context.Context, tokenType string) (string, bool)
	Info(ctx context.Context, tokenType string) (*models.TokenInfo, bool)
	Delete(ctx context.Context, tokenType string) error
	ClearAll(ctx context.Context) error
}

package interfaces

import (
	"context"
	"net/url"

	"github.com/manwonyori/cafe24-hub/internal/models"
)

// AuthManager owns the OAuth flow against the Cafe24 token endpoint and
// derives request-ready authorization headers.
type AuthManager interface {
	// AuthorizationURL builds the OAuth authorize URL. Pure, no side effects.
	AuthorizationURL(state string) string
	// ExchangeCode trades an authorization code for tokens and persists them.
	ExchangeCode(ctx context.Context, code string) (*models.TokenResponse, error)
	// RefreshAccessToken obtains a new access token using the stored refresh
	// token. On upstream rejection all tokens are cleared.
	RefreshAccessToken(ctx context.Context) (string, error)
	// ValidToken returns an access token with more than the safety margin of
	// lifetime remaining, refreshing proactively when needed.
	ValidToken(ctx context.Context) (string, error)
	// AuthHeaders wraps ValidToken into ready-to-send request headers.
	AuthHeaders(ctx context.Context) (map[string]string, error)

	IsAuthenticated(ctx context.Context) bool
	Logout(ctx context.Context) error
	TokenStatus(ctx context.Context) *models.TokenStatus
}

// Cafe24Client issues authorized, retried, rate-limited admin API calls.
type Cafe24Client interface {
	Request(ctx context.Context, method, path string, params url.Values, body any, headers map[string]string) (map[string]any, error)
	Get(ctx context.Context, path string, params url.Values) (map[string]any, error)
	Post(ctx context.Context, path string, body any) (map[string]any, error)
	Put(ctx context.Context, path string, body any) (map[string]any, error)
	Patch(ctx context.Context, path string, body any) (map[string]any, error)
	Delete(ctx context.Context, path string) (map[string]any, error)

	// Product operations
	ListProducts(ctx context.Context, limit, offset int, fields []string, filters url.Values) (*models.ProductPage, error)
	ListAllProducts(ctx context.Context, fields []string) ([]map[string]any, error)
	GetProduct(ctx context.Context, productNo string) (map[string]any, error)
	SearchProducts(ctx context.Context, query, searchType string, limit int) ([]map[string]any, error)
	UpdateProduct(ctx context.Context, productNo string, updates map[string]any, shopNo int) error
	UpdateProductPrice(ctx context.Context, productNo, price, retailPrice, supplyPrice string, shopNo int) error
	UpdateProductStock(ctx context.Context, productNo string, quantity int, shopNo int) error
	GetProductVariants(ctx context.Context, productNo string) ([]map[string]any, error)
	BulkUpdatePrices(ctx context.Context, updates map[string]string, batchSize int) (*models.BulkUpdateResult, error)

	// Health
	Ping(ctx context.Context) bool
	APIInfo(ctx context.Context) *models.APIInfo

	// Close releases the underlying HTTP transport.
	Close()
}

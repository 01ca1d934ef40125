package token

import (
	"context"
	"time"

	"github.com/manwonyori/cafe24-hub/internal/common"
	"github.com/manwonyori/cafe24-hub/internal/interfaces"
	"github.com/manwonyori/cafe24-hub/internal/models"
)

// Store is the secure token store. Secrets are encrypted before they reach
// any backend; the durable file backend is mandatory, the cache backend is
// optional and read first. Every lookup applies lazy expiry: an expired
// record is deleted on sight and reported as a miss.
type Store struct {
	cipher  *Cipher
	durable interfaces.TokenBackend
	cache   interfaces.TokenBackend // may be nil
	logger  *common.Logger
	now     func() time.Time
}

// StoreOption configures the store
type StoreOption func(*Store)

// WithCache attaches an optional fast cache backend.
func WithCache(cache interfaces.TokenBackend) StoreOption {
	return func(s *Store) {
		s.cache = cache
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source, for expiry tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a token store over the mandatory durable backend.
func NewStore(cipher *Cipher, durable interfaces.TokenBackend, opts ...StoreOption) *Store {
	s := &Store{
		cipher:  cipher,
		durable: durable,
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save encrypts the secret and writes the record to every backend with a
// matching expiry, so the stores never disagree about liveness.
func (s *Store) Save(ctx context.Context, tokenType, secret string, ttl time.Duration, metadata map[string]string) error {
	encrypted, err := s.cipher.EncryptString(secret)
	if err != nil {
		return err
	}

	now := s.now()
	record := &models.TokenRecord{
		Type:      tokenType,
		Secret:    encrypted,
		CreatedAt: now.UTC(),
		ExpiresAt: now.Add(ttl).UTC(),
		Metadata:  metadata,
	}

	if err := s.durable.Set(ctx, record, ttl); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, record, ttl); err != nil {
			s.logger.Warn().Err(err).Str("type", tokenType).Msg("Token cache write failed")
		}
	}

	s.logger.Info().Str("type", tokenType).Time("expires_at", record.ExpiresAt).Msg("Token saved")
	return nil
}

// Get returns the decrypted secret, or false when the token is absent,
// expired, or unreadable. Backend failures degrade to a miss so callers can
// proceed to re-authentication.
func (s *Store) Get(ctx context.Context, tokenType string) (string, bool) {
	record := s.lookup(ctx, tokenType)
	if record == nil {
		return "", false
	}

	secret, err := s.cipher.DecryptString(record.Secret)
	if err != nil {
		s.logger.Error().Err(err).Str("type", tokenType).Msg("Token decryption failed")
		return "", false
	}
	return secret, true
}

// Info returns token metadata without the secret, plus computed expiry state.
// Unlike Get, an expired record is still reported (with IsExpired set) after
// removal, so status endpoints can show what just lapsed.
func (s *Store) Info(ctx context.Context, tokenType string) (*models.TokenInfo, bool) {
	record := s.read(ctx, tokenType)
	if record == nil {
		return nil, false
	}

	now := s.now()
	info := &models.TokenInfo{
		Type:             record.Type,
		CreatedAt:        record.CreatedAt,
		ExpiresAt:        record.ExpiresAt,
		Metadata:         record.Metadata,
		IsExpired:        now.After(record.ExpiresAt),
		ExpiresInSeconds: int64(record.ExpiresAt.Sub(now).Seconds()),
	}
	return info, true
}

// Delete removes the token from every backend. Deleting a token that does
// not exist is not an error.
func (s *Store) Delete(ctx context.Context, tokenType string) error {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, tokenType); err != nil {
			s.logger.Warn().Err(err).Str("type", tokenType).Msg("Token cache delete failed")
		}
	}
	return s.durable.Delete(ctx, tokenType)
}

// ClearAll removes every stored token from every backend.
func (s *Store) ClearAll(ctx context.Context) error {
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Token cache clear failed")
		}
	}
	if err := s.durable.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info().Msg("All tokens cleared")
	return nil
}

// lookup reads a record and applies lazy expiry.
func (s *Store) lookup(ctx context.Context, tokenType string) *models.TokenRecord {
	record := s.read(ctx, tokenType)
	if record == nil {
		return nil
	}

	if s.now().After(record.ExpiresAt) {
		s.logger.Warn().Str("type", tokenType).Msg("Token expired")
		if err := s.Delete(ctx, tokenType); err != nil {
			s.logger.Warn().Err(err).Str("type", tokenType).Msg("Expired token cleanup failed")
		}
		return nil
	}
	return record
}

// read fetches a raw record, cache first, durable store as fallback.
func (s *Store) read(ctx context.Context, tokenType string) *models.TokenRecord {
	if s.cache != nil {
		record, err := s.cache.Get(ctx, tokenType)
		if err != nil {
			s.logger.Warn().Err(err).Str("type", tokenType).Msg("Token cache read failed")
		} else if record != nil {
			return record
		}
	}

	record, err := s.durable.Get(ctx, tokenType)
	if err != nil {
		s.logger.Error().Err(err).Str("type", tokenType).Msg("Token store read failed")
		return nil
	}
	return record
}

var _ interfaces.TokenStore = (*Store)(nil)

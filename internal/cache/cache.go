package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/quotebook-api/internal/config"
	"go.uber.org/zap"
)

// Cache is a byte-oriented key value store with per-entry expiry
type Cache interface {
	// Get returns the cached value and whether it was present
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// NewCache creates a cache instance based on configuration
func NewCache(cfg *config.CacheConfig, logger *zap.Logger) (Cache, error) {
	switch cfg.Mode {
	case "redis":
		return NewRedisCache(cfg, logger)
	case "memory", "":
		logger.Info("Using in-memory cache")
		return NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unsupported cache mode: %s", cfg.Mode)
	}
}

// WorkspaceKey is the key of an account's collection snapshot
func WorkspaceKey(accountID uuid.UUID) string {
	return "workspace:" + accountID.String()
}

// WorkspaceGenerationKey holds a token that changes on every invalidation of
// the account's snapshot
func WorkspaceGenerationKey(accountID uuid.UUID) string {
	return WorkspaceKey(accountID) + ":gen"
}

// RevokedTokenKey is the key marking a signed-out token
func RevokedTokenKey(tokenID string) string {
	return "revoked:" + tokenID
}

// RevocationList stores signed-out token ids in a cache
type RevocationList struct {
	cache Cache
}

// NewRevocationList creates a revocation list on top of a cache
func NewRevocationList(c Cache) *RevocationList {
	return &RevocationList{cache: c}
}

// Revoke marks a token id as revoked for ttl
func (l *RevocationList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return l.cache.Set(ctx, RevokedTokenKey(tokenID), []byte("1"), ttl)
}

// IsRevoked reports whether a token id was revoked
func (l *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, ok, err := l.cache.Get(ctx, RevokedTokenKey(tokenID))
	return ok, err
}

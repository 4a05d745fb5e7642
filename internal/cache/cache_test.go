package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/config"
)

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "forever", []byte("b"), 0))

	value, ok, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), value)

	now = now.Add(time.Minute)

	_, ok, err = c.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok, "entries expire exactly at their deadline")

	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemoryCache_Sweep(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Second))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))
	assert.Equal(t, 3, c.Len())

	now = now.Add(2 * time.Second)
	assert.Equal(t, 2, c.Sweep())
	assert.Equal(t, 1, c.Len())
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	original := []byte("snapshot")
	require.NoError(t, c.Set(ctx, "k", original, 0))
	original[0] = 'X'

	value, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "snapshot", string(value))

	value[0] = 'Y'
	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "snapshot", string(again))

	require.NoError(t, c.Delete(ctx, "k", "missing"))
	_, ok, _ := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRevocationList(t *testing.T) {
	ctx := context.Background()
	list := NewRevocationList(NewMemoryCache())

	revoked, err := list.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "token-1", time.Hour))
	revoked, err = list.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("6f1c2c2e-6d59-4b59-9d1b-3c1f7a8e2b10")
	assert.Equal(t, "workspace:6f1c2c2e-6d59-4b59-9d1b-3c1f7a8e2b10", WorkspaceKey(id))
	assert.Equal(t, "workspace:6f1c2c2e-6d59-4b59-9d1b-3c1f7a8e2b10:gen", WorkspaceGenerationKey(id))
	assert.Equal(t, "revoked:abc", RevokedTokenKey("abc"))
}

func TestNewCache(t *testing.T) {
	c, err := NewCache(&config.CacheConfig{Mode: "memory"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	_, err = NewCache(&config.CacheConfig{Mode: "memcached"}, zap.NewNop())
	assert.Error(t, err)
}

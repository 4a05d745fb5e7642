package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVault map[string]string

func (f fakeVault) GetSecret(_ context.Context, name string) (string, error) {
	if value, ok := f[name]; ok {
		return value, nil
	}
	return "", errors.New("secret not found: " + name)
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		source      SecretSource
		environment string
		want        SecretSource
	}{
		{SourceAuto, "development", SourceEnvironment},
		{SourceAuto, "test", SourceEnvironment},
		{SourceAuto, "", SourceEnvironment},
		{SourceAuto, "staging", SourceVault},
		{SourceAuto, "production", SourceVault},
		{SourceEnvironment, "production", SourceEnvironment},
		{SourceVault, "development", SourceVault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveSource(tt.source, tt.environment), "%s/%s", tt.source, tt.environment)
	}
}

func TestProvider_Environment(t *testing.T) {
	t.Setenv("QUOTEBOOK_TEST_SECRET", "from-env")
	p := NewProviderWithGetter(SourceEnvironment, nil, zap.NewNop())

	value, err := p.GetSecret(context.Background(), "QUOTEBOOK_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	_, err = p.GetSecret(context.Background(), "QUOTEBOOK_TEST_MISSING")
	assert.Error(t, err)
	assert.False(t, p.IsVaultEnabled())
}

func TestProvider_Vault(t *testing.T) {
	p := NewProviderWithGetter(SourceVault, fakeVault{"jwt-secret": "vault-value"}, zap.NewNop())
	assert.True(t, p.IsVaultEnabled())

	value, err := p.GetSecretOrEnv(context.Background(), "jwt-secret", "QUOTEBOOK_TEST_JWT")
	require.NoError(t, err)
	assert.Equal(t, "vault-value", value)

	t.Setenv("QUOTEBOOK_TEST_JWT", "override")
	value, err = p.GetSecretOrEnv(context.Background(), "jwt-secret", "QUOTEBOOK_TEST_JWT")
	require.NoError(t, err)
	assert.Equal(t, "override", value, "an explicit environment variable wins")

	_, err = NewProviderWithGetter(SourceVault, nil, zap.NewNop()).GetSecret(context.Background(), "jwt-secret")
	assert.Error(t, err)
}

func TestNewProvider_VaultNameRequired(t *testing.T) {
	_, err := NewProvider(&ProviderConfig{Source: SourceAuto, Environment: "production"}, zap.NewNop())
	assert.Error(t, err)

	p, err := NewProvider(&ProviderConfig{Source: SourceAuto, Environment: "development"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, SourceEnvironment, p.Source())
}

func TestSecretCache(t *testing.T) {
	c := newSecretCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.put("db-password", "hunter2", time.Minute)
	value, ok := c.get("db-password")
	require.True(t, ok)
	assert.Equal(t, "hunter2", value)

	now = now.Add(time.Minute)
	_, ok = c.get("db-password")
	assert.False(t, ok)

	var disabled *secretCache
	disabled.put("x", "y", time.Hour)
	_, ok = disabled.get("x")
	assert.False(t, ok)
}

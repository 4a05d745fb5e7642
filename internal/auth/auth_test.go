package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/straye-as/quotebook-api/internal/auth"
	"github.com/straye-as/quotebook-api/internal/config"
)

const testSecret = "test-secret-with-enough-entropy"

type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{revoked: make(map[string]time.Duration)}
}

func (f *fakeRevocations) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.revoked[tokenID] = ttl
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.revoked[tokenID]
	return ok, nil
}

func signClaims(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	accountID := uuid.New()
	validator := auth.NewTokenValidator(&config.AuthConfig{JWTSecret: testSecret})
	future := time.Now().Add(time.Hour).Unix()

	t.Run("valid token", func(t *testing.T) {
		token := signClaims(t, testSecret, jwt.MapClaims{
			"sub":           accountID.String(),
			"email":         "owner@example.com",
			"session_id":    "sess-1",
			"exp":           future,
			"user_metadata": map[string]interface{}{"full_name": "Ada Owner"},
		})

		account, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, accountID, account.AccountID)
		assert.Equal(t, "owner@example.com", account.Email)
		assert.Equal(t, "Ada Owner", account.DisplayName)
		assert.Equal(t, "sess-1", account.TokenID)
		assert.Equal(t, auth.MethodBearer, account.Method)
		assert.Equal(t, future, account.ExpiresAt.Unix())
	})

	t.Run("expired token", func(t *testing.T) {
		token := signClaims(t, testSecret, jwt.MapClaims{
			"sub": accountID.String(),
			"exp": time.Now().Add(-time.Minute).Unix(),
		})
		_, err := validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		token := signClaims(t, testSecret, jwt.MapClaims{"sub": accountID.String()})
		_, err := validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signClaims(t, "another-secret", jwt.MapClaims{"sub": accountID.String(), "exp": future})
		_, err := validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("subject is not an account id", func(t *testing.T) {
		token := signClaims(t, testSecret, jwt.MapClaims{"sub": "user-42", "exp": future})
		_, err := validator.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("issuer enforced when configured", func(t *testing.T) {
		strict := auth.NewTokenValidator(&config.AuthConfig{JWTSecret: testSecret, Issuer: "https://id.example.com"})
		token := signClaims(t, testSecret, jwt.MapClaims{"sub": accountID.String(), "exp": future, "iss": "https://evil.example.com"})
		_, err := strict.ValidateToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("no secret configured", func(t *testing.T) {
		_, err := auth.NewTokenValidator(&config.AuthConfig{}).ValidateToken("anything")
		assert.ErrorIs(t, err, auth.ErrMissingKey)
	})
}

func TestIssueToken_RoundTrip(t *testing.T) {
	cfg := &config.AuthConfig{JWTSecret: testSecret, Issuer: "quotebook", Audience: "api"}
	validator := auth.NewTokenValidator(cfg)
	accountID := uuid.New()

	token, err := validator.IssueToken(accountID, "owner@example.com", 10*time.Minute)
	require.NoError(t, err)

	account, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, accountID, account.AccountID)
	assert.NotEmpty(t, account.TokenID)
}

type authFixture struct {
	cfg         *config.AuthConfig
	revocations *fakeRevocations
	middleware  *auth.Middleware
	handler     http.Handler
}

func newAuthFixture() *authFixture {
	cfg := &config.AuthConfig{JWTSecret: testSecret, APIKey: "service-key"}
	revocations := newFakeRevocations()
	m := auth.NewMiddleware(cfg, revocations, zap.NewNop())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := auth.MustFromContext(r.Context())
		w.Header().Set("X-Test-Account", account.AccountID.String())
		w.Header().Set("X-Test-Method", string(account.Method))
		w.WriteHeader(http.StatusOK)
	})
	return &authFixture{cfg: cfg, revocations: revocations, middleware: m, handler: m.Authenticate(next)}
}

func (f *authFixture) serve(headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_APIKey(t *testing.T) {
	f := newAuthFixture()
	accountID := uuid.New()

	rec := f.serve(map[string]string{"X-API-Key": "service-key", "X-Account-ID": accountID.String()})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, accountID.String(), rec.Header().Get("X-Test-Account"))
	assert.Equal(t, "api_key", rec.Header().Get("X-Test-Method"))

	rec = f.serve(map[string]string{"X-API-Key": "service-key"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "an API key needs an account id")

	rec = f.serve(map[string]string{"X-API-Key": "guessed", "X-Account-ID": accountID.String()})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_APIKeyDisabled(t *testing.T) {
	m := auth.NewMiddleware(&config.AuthConfig{JWTSecret: testSecret}, nil, zap.NewNop())
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "anything")
	req.Header.Set("X-Account-ID", uuid.NewString())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_Bearer(t *testing.T) {
	f := newAuthFixture()
	accountID := uuid.New()
	token, err := auth.NewTokenValidator(f.cfg).IssueToken(accountID, "owner@example.com", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"no token part", "Bearer", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
		{"scheme is case insensitive", "bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			rec := f.serve(headers)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, accountID.String(), rec.Header().Get("X-Test-Account"))
				assert.Equal(t, "bearer", rec.Header().Get("X-Test-Method"))
			}
		})
	}
}

func TestMiddleware_SignOutRevokesToken(t *testing.T) {
	f := newAuthFixture()
	validator := auth.NewTokenValidator(f.cfg)
	token, err := validator.IssueToken(uuid.New(), "owner@example.com", time.Hour)
	require.NoError(t, err)
	account, err := validator.ValidateToken(token)
	require.NoError(t, err)

	headers := map[string]string{"Authorization": "Bearer " + token}
	require.Equal(t, http.StatusOK, f.serve(headers).Code)

	require.NoError(t, f.middleware.SignOut(auth.WithAccountContext(context.Background(), account)))
	ttl, ok := f.revocations.revoked[account.TokenID]
	require.True(t, ok)
	assert.True(t, ttl > 0 && ttl <= time.Hour)

	assert.Equal(t, http.StatusUnauthorized, f.serve(headers).Code)
}

func TestMiddleware_SignOutWithoutBearer(t *testing.T) {
	f := newAuthFixture()

	require.NoError(t, f.middleware.SignOut(context.Background()))
	apiKeyCtx := auth.WithAccountContext(context.Background(), &auth.AccountContext{
		AccountID: uuid.New(),
		Method:    auth.MethodAPIKey,
	})
	require.NoError(t, f.middleware.SignOut(apiKeyCtx))
	expired := auth.WithAccountContext(context.Background(), &auth.AccountContext{
		AccountID: uuid.New(),
		Method:    auth.MethodBearer,
		TokenID:   "old",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, f.middleware.SignOut(expired))

	assert.Empty(t, f.revocations.revoked)
}

func TestMiddleware_SignOutTokenWithoutID(t *testing.T) {
	f := newAuthFixture()
	token := signClaims(t, testSecret, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	account, err := auth.NewTokenValidator(f.cfg).ValidateToken(token)
	require.NoError(t, err)
	require.Empty(t, account.TokenID)

	err = f.middleware.SignOut(auth.WithAccountContext(context.Background(), account))
	assert.ErrorIs(t, err, auth.ErrUnrevocableToken)
	assert.Empty(t, f.revocations.revoked)
}

func TestMiddleware_LogsAuthenticatedAccount(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := &config.AuthConfig{JWTSecret: testSecret, APIKey: "service-key"}
	m := auth.NewMiddleware(cfg, newFakeRevocations(), zap.New(core))
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	accountID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set("X-API-Key", "service-key")
	req.Header.Set("X-Account-ID", accountID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("request authenticated").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, accountID.String(), fields["account_id"])
	assert.Equal(t, "api_key", fields["auth_method"])
	assert.Equal(t, "/api/v1/customers", fields["path"])
}

func TestMiddleware_RevocationStoreDown(t *testing.T) {
	f := newAuthFixture()
	token, err := auth.NewTokenValidator(f.cfg).IssueToken(uuid.New(), "", time.Hour)
	require.NoError(t, err)
	f.revocations.err = errors.New("redis: connection refused")

	rec := f.serve(map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, rec.Code, "lookups that fail do not lock accounts out")
}

func TestContextHelpers(t *testing.T) {
	_, ok := auth.AccountID(context.Background())
	assert.False(t, ok)
	assert.Panics(t, func() { auth.MustFromContext(context.Background()) })

	accountID := uuid.New()
	ctx := auth.WithAccountID(context.Background(), accountID)
	got, ok := auth.AccountID(ctx)
	require.True(t, ok)
	assert.Equal(t, accountID, got)

	_, ok = auth.AccountID(auth.WithAccountContext(context.Background(), &auth.AccountContext{}))
	assert.False(t, ok, "a nil account id is anonymous")
}

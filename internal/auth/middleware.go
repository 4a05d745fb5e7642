package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/quotebook-api/internal/config"
	"github.com/straye-as/quotebook-api/internal/logger"
	"go.uber.org/zap"
)

// RevocationStore remembers signed-out token ids until they would have expired
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Middleware handles authentication for HTTP requests
type Middleware struct {
	validator   *TokenValidator
	apiKey      string
	revocations RevocationStore
	logger      *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.AuthConfig, revocations RevocationStore, logger *zap.Logger) *Middleware {
	return &Middleware{
		validator:   NewTokenValidator(cfg),
		apiKey:      cfg.APIKey,
		revocations: revocations,
		logger:      logger,
	}
}

// Authenticate resolves the account from an API key or a bearer token and
// rejects the request when neither is valid
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			if !m.validateAPIKey(apiKey) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			accountID, err := uuid.Parse(r.Header.Get("X-Account-ID"))
			if err != nil {
				http.Error(w, "Unauthorized: X-Account-ID header must be an account id", http.StatusUnauthorized)
				return
			}
			account := &AccountContext{
				AccountID:   accountID,
				DisplayName: "API key",
				Method:      MethodAPIKey,
			}
			m.logAuthenticated(r, account, start)
			next.ServeHTTP(w, r.WithContext(WithAccountContext(r.Context(), account)))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized: missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			http.Error(w, "Unauthorized: invalid authorization header format", http.StatusUnauthorized)
			return
		}

		account, err := m.validator.ValidateToken(parts[1])
		if err == nil {
			err = m.checkRevoked(r.Context(), account)
		}
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}

		m.logAuthenticated(r, account, start)
		next.ServeHTTP(w, r.WithContext(WithAccountContext(r.Context(), account)))
	})
}

// SignOut revokes the bearer token on the request context until it expires.
// API key sessions have nothing to revoke, and without a revocation store
// sign-out is a no-op. A bearer token without an id cannot be revoked.
func (m *Middleware) SignOut(ctx context.Context) error {
	account, ok := FromContext(ctx)
	if !ok || account.Method != MethodBearer || m.revocations == nil {
		return nil
	}
	if account.TokenID == "" {
		return ErrUnrevocableToken
	}
	ttl := time.Until(account.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := m.revocations.Revoke(ctx, account.TokenID, ttl); err != nil {
		return err
	}
	logger.WithAccount(m.logger, account.AccountID.String(), string(account.Method)).
		Info("token revoked", zap.Duration("ttl", ttl))
	return nil
}

func (m *Middleware) checkRevoked(ctx context.Context, account *AccountContext) error {
	if m.revocations == nil || account.TokenID == "" {
		return nil
	}
	revoked, err := m.revocations.IsRevoked(ctx, account.TokenID)
	if err != nil {
		// An unreachable revocation store must not lock every account out
		m.logger.Error("revocation lookup failed", zap.Error(err))
		return nil
	}
	if revoked {
		return ErrRevokedToken
	}
	return nil
}

func (m *Middleware) logAuthenticated(r *http.Request, account *AccountContext, start time.Time) {
	logger.WithAccount(m.logger, account.AccountID.String(), string(account.Method)).
		Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("auth_duration", time.Since(start)),
		)
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/straye-as/quotebook-api/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
	ErrMissingKey   = errors.New("jwt secret not configured")

	// ErrUnrevocableToken is returned on sign-out of a token with neither jti nor session_id
	ErrUnrevocableToken = errors.New("token carries no id and cannot be revoked")
)

// TokenValidator validates HS256 access tokens issued by the identity provider.
// The subject claim carries the account id.
type TokenValidator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenValidator creates a new token validator
func NewTokenValidator(cfg *config.AuthConfig) *TokenValidator {
	return &TokenValidator{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// ValidateToken parses and verifies a token and returns the account context
func (v *TokenValidator) ValidateToken(tokenString string) (*AccountContext, error) {
	if len(v.secret) == 0 {
		return nil, ErrMissingKey
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := claims.GetSubject()
	accountID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not an account id", ErrInvalidToken)
	}

	account := &AccountContext{
		AccountID:   accountID,
		Email:       extractString(claims, "email"),
		DisplayName: extractDisplayName(claims),
		Method:      MethodBearer,
		TokenID:     extractString(claims, "jti", "session_id"),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		account.ExpiresAt = exp.Time
	}
	return account, nil
}

// IssueToken signs a token for an account. Used by tooling and tests; production
// tokens come from the identity provider.
func (v *TokenValidator) IssueToken(accountID uuid.UUID, email string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrMissingKey
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   accountID.String(),
		"email": email,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if v.issuer != "" {
		claims["iss"] = v.issuer
	}
	if v.audience != "" {
		claims["aud"] = v.audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func extractString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if val, ok := claims[key]; ok {
			if str, ok := val.(string); ok && str != "" {
				return str
			}
		}
	}
	return ""
}

// extractDisplayName reads a top level name claim or user_metadata.full_name
func extractDisplayName(claims jwt.MapClaims) string {
	if name := extractString(claims, "name"); name != "" {
		return name
	}
	if meta, ok := claims["user_metadata"].(map[string]interface{}); ok {
		if name, ok := meta["full_name"].(string); ok {
			return name
		}
	}
	return ""
}

package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Method names how a request was authenticated
type Method string

const (
	MethodBearer Method = "bearer"
	MethodAPIKey Method = "api_key"
)

// AccountContext holds the authenticated account owner
type AccountContext struct {
	AccountID   uuid.UUID
	Email       string
	DisplayName string
	Method      Method

	// TokenID and ExpiresAt are set for bearer tokens and drive sign-out
	TokenID   string
	ExpiresAt time.Time
}

type contextKey string

const accountContextKey contextKey = "accountContext"

// WithAccountContext adds account context to the context
func WithAccountContext(ctx context.Context, account *AccountContext) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// FromContext extracts account context from the context
func FromContext(ctx context.Context) (*AccountContext, bool) {
	account, ok := ctx.Value(accountContextKey).(*AccountContext)
	return account, ok && account != nil
}

// MustFromContext extracts account context or panics
func MustFromContext(ctx context.Context) *AccountContext {
	account, ok := FromContext(ctx)
	if !ok {
		panic("account context not found in context")
	}
	return account
}

// AccountID returns the authenticated account id, or false when the context is anonymous
func AccountID(ctx context.Context) (uuid.UUID, bool) {
	account, ok := FromContext(ctx)
	if !ok || account.AccountID == uuid.Nil {
		return uuid.Nil, false
	}
	return account.AccountID, true
}

// WithAccountID is a shorthand used by background jobs that act on behalf of an account
func WithAccountID(ctx context.Context, accountID uuid.UUID) context.Context {
	return WithAccountContext(ctx, &AccountContext{AccountID: accountID})
}

package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/auth"
	"github.com/straye-as/quotebook-api/internal/domain"
)

// SignOuter revokes the credentials of the current request
type SignOuter interface {
	SignOut(ctx context.Context) error
}

type AuthHandler struct {
	signOuter SignOuter
	logger    *zap.Logger
}

func NewAuthHandler(signOuter SignOuter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		signOuter: signOuter,
		logger:    logger,
	}
}

// Me godoc
// @Summary Get current account
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.AccountDTO
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	respondJSON(w, http.StatusOK, domain.AccountDTO{
		AccountID:   account.AccountID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		AuthMethod:  string(account.Method),
	})
}

// SignOut godoc
// @Summary Sign out
// @Description Revokes the bearer token until it expires. API key sessions are unaffected.
// @Tags Auth
// @Success 204 "No Content"
// @Failure 400 {object} domain.ErrorResponse
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /auth/signout [post]
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.signOuter.SignOut(r.Context()); err != nil {
		if errors.Is(err, auth.ErrUnrevocableToken) {
			respondError(w, http.StatusBadRequest, "Token has no jti or session_id and cannot be revoked")
			return
		}
		h.logger.Error("failed to revoke token", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/service"
)

type WorkspaceHandler struct {
	workspaceService *service.WorkspaceService
	logger           *zap.Logger
}

func NewWorkspaceHandler(workspaceService *service.WorkspaceService, logger *zap.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceService: workspaceService,
		logger:           logger,
	}
}

// Get godoc
// @Summary Get the account workspace
// @Description All customers, quotations and invoices of the account plus their summaries, newest first
// @Tags Workspace
// @Produce json
// @Success 200 {object} domain.WorkspaceDTO
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /workspace [get]
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	workspace, err := h.workspaceService.Get(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "load workspace")
		return
	}
	respondJSON(w, http.StatusOK, workspace)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/service"
)

type ActivityHandler struct {
	activityService *service.ActivityService
	logger          *zap.Logger
}

func NewActivityHandler(activityService *service.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		logger:          logger,
	}
}

// List godoc
// @Summary List recent activities
// @Description Newest first. Without a limit the latest 50 entries are returned.
// @Tags Activities
// @Produce json
// @Param limit query int false "Maximum entries (max 200)" default(50)
// @Param targetId query string false "Only activities of this customer, quotation or invoice" format(uuid)
// @Success 200 {array} domain.ActivityDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /activities [get]
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var targetID *uuid.UUID
	if raw := r.URL.Query().Get("targetId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid targetId format")
			return
		}
		targetID = &id
	}

	activities, err := h.activityService.List(r.Context(), limit, targetID)
	if err != nil {
		respondServiceError(w, h.logger, err, "list activities")
		return
	}
	respondJSON(w, http.StatusOK, activities)
}

package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/service"
)

// maxSettingsBody bounds a settings document, including an inline logo
const maxSettingsBody = 1 << 20

type SettingsHandler struct {
	settingsService *service.SettingsService
	logger          *zap.Logger
}

func NewSettingsHandler(settingsService *service.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		logger:          logger,
	}
}

// GetAll godoc
// @Summary Get all settings
// @Description Returns the company, invoice and notification documents. Types never saved carry their defaults.
// @Tags Settings
// @Produce json
// @Success 200 {object} domain.SettingsDTO
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /settings [get]
func (h *SettingsHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.GetAll(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "get settings")
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// Get godoc
// @Summary Get one settings document
// @Tags Settings
// @Produce json
// @Param type path string true "Settings type" Enums(company, invoice, notifications)
// @Success 200 {object} domain.SettingDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /settings/{type} [get]
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settingType := domain.SettingType(chi.URLParam(r, "type"))

	setting, err := h.settingsService.Get(r.Context(), settingType)
	if err != nil {
		respondServiceError(w, h.logger, err, "get settings")
		return
	}
	respondJSON(w, http.StatusOK, setting)
}

// Put godoc
// @Summary Save a settings document
// @Description The body is the settings object itself and replaces the stored document
// @Tags Settings
// @Accept json
// @Produce json
// @Param type path string true "Settings type" Enums(company, invoice, notifications)
// @Param request body object true "Settings document"
// @Success 200 {object} domain.SettingDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /settings/{type} [put]
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	settingType := domain.SettingType(chi.URLParam(r, "type"))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSettingsBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !json.Valid(body) {
		respondError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	setting, err := h.settingsService.Upsert(r.Context(), settingType, json.RawMessage(body))
	if err != nil {
		respondServiceError(w, h.logger, err, "save settings")
		return
	}
	respondJSON(w, http.StatusOK, setting)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/straye-as/quotebook-api/internal/database"
)

// Pinger is implemented by dependencies that can report reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthHandler struct {
	db     *gorm.DB
	cache  interface{}
	logger *zap.Logger
}

// NewHealthHandler builds the health check endpoints. The cache is only checked
// when it implements Pinger.
func NewHealthHandler(db *gorm.DB, cache interface{}, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, logger: logger}
}

// Live godoc
// @Summary Liveness check
// @Tags Health
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Database godoc
// @Summary Database check
// @Description Pings the database and reports connection pool statistics
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	stats, err := database.HealthCheckWithStats(ctx, h.db)
	if err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats":   stats,
	})
}

// Ready godoc
// @Summary Readiness check
// @Description Checks every dependency the API needs to serve requests
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]dependencyStatus{}
	healthy := true

	if err := database.HealthCheck(ctx, h.db); err != nil {
		h.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
		healthy = false
	} else {
		checks["database"] = dependencyStatus{Status: "healthy"}
	}

	if pinger, ok := h.cache.(Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			h.logger.Error("Cache health check failed", zap.Error(err))
			checks["cache"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			healthy = false
		} else {
			checks["cache"] = dependencyStatus{Status: "healthy"}
		}
	}

	status, code := "ready", http.StatusOK
	if !healthy {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

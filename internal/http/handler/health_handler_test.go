package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/testutil"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)

	t.Run("liveness", func(t *testing.T) {
		h := NewHealthHandler(db, nil, zap.NewNop())
		rec := httptest.NewRecorder()
		h.Live(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("database stats", func(t *testing.T) {
		h := NewHealthHandler(db, nil, zap.NewNop())
		rec := httptest.NewRecorder()
		h.Database(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[map[string]interface{}](t, rec)
		assert.Equal(t, "healthy", body["status"])
		stats, ok := body["stats"].(map[string]interface{})
		require.True(t, ok)
		assert.EqualValues(t, 1, stats["maxOpenConnections"])
	})

	t.Run("ready with healthy cache", func(t *testing.T) {
		h := NewHealthHandler(db, stubPinger{}, zap.NewNop())
		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ready", decode[map[string]interface{}](t, rec)["status"])
	})

	t.Run("not ready when the cache is down", func(t *testing.T) {
		h := NewHealthHandler(db, stubPinger{err: errors.New("connection refused")}, zap.NewNop())
		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		body := decode[map[string]interface{}](t, rec)
		checks := body["checks"].(map[string]interface{})
		assert.Equal(t, "unhealthy", checks["cache"].(map[string]interface{})["status"])
		assert.Equal(t, "healthy", checks["database"].(map[string]interface{})["status"])
	})
}

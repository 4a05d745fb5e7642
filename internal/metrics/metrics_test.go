package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(Config{ServiceName: "quotebook-test", Environment: "test"})

	m.DocumentCreated("quotation")
	m.DocumentCreated("quotation")
	m.StatusTransition("invoice", "sent", "paid")
	m.Conversion(true)
	m.Conversion(false)
	m.Conversion(false)
	m.Dispatch("invoice", "reminder", nil)
	m.Dispatch("invoice", "reminder", errors.New("smtp down"))
	m.JobRun("status_sweep", 10*time.Millisecond, nil)
	m.CacheLookup("hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.documentsCreated.WithLabelValues("quotation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusTransitions.WithLabelValues("invoice", "sent", "paid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversions.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.conversions.WithLabelValues("existing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("invoice", "reminder", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("invoice", "reminder", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("status_sweep", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
}

func TestMetrics_HTTPStatusClass(t *testing.T) {
	m := New(Config{})

	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/customers", http.StatusOK, time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/customers", http.StatusNotFound, time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/customers", http.StatusConflict, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/v1/customers", "2xx")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/api/v1/customers", "4xx")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.DocumentCreated("invoice")
		m.StatusTransition("invoice", "save", "sent")
		m.Conversion(true)
		m.Dispatch("invoice", "delivery", nil)
		m.JobRun("payment_reminders", time.Second, nil)
		m.CacheLookup("miss")
		m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New(Config{ServiceName: "quotebook", Environment: "test"})
	m.DocumentCreated("invoice")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "quotebook_documents_created_total")
	assert.Contains(t, rec.Body.String(), `env="test"`)
}

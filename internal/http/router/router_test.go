package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/auth"
	"github.com/straye-as/quotebook-api/internal/cache"
	"github.com/straye-as/quotebook-api/internal/config"
	"github.com/straye-as/quotebook-api/internal/document"
	"github.com/straye-as/quotebook-api/internal/http/handler"
	"github.com/straye-as/quotebook-api/internal/http/middleware"
	"github.com/straye-as/quotebook-api/internal/mailer"
	"github.com/straye-as/quotebook-api/internal/metrics"
	"github.com/straye-as/quotebook-api/internal/repository"
	"github.com/straye-as/quotebook-api/internal/service"
	"github.com/straye-as/quotebook-api/internal/testutil"
)

const (
	testSecret = "router-test-secret"
	testAPIKey = "router-test-key"
)

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, doc *document.Document) ([]byte, error) {
	return []byte("%PDF-stub " + doc.Number), nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Name: "quotebook-test", Environment: "development", DueDays: 30, ValidityDays: 30},
		Auth: config.AuthConfig{JWTSecret: testSecret, APIKey: testAPIKey},
		Server: config.ServerConfig{
			RequestTimeout: 5,
			EnableSwagger:  true,
			EnableMetrics:  true,
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
		Security: config.SecurityConfig{FrameOptions: "DENY", ContentTypeNosniff: true},
		RateLimit: config.RateLimitConfig{
			Enabled:               true,
			RequestsPerMinute:     1000,
			RequestsPerMinuteAuth: 1000,
		},
	}
}

func newTestRouter(t *testing.T) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)
	memCache := cache.NewMemoryCache()
	m := metrics.New(metrics.Config{ServiceName: cfg.App.Name, Environment: cfg.App.Environment})

	customerRepo := repository.NewCustomerRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	workflow := service.WorkflowConfig{DueDays: cfg.App.DueDays, ValidityDays: cfg.App.ValidityDays}
	mirror := service.NewMirror(memCache, time.Minute, m, logger)

	activities := service.NewActivityService(repository.NewActivityRepository(db), logger)
	settings := service.NewSettingsService(repository.NewSettingRepository(db), activities, logger)
	numbers := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), settings, logger)
	customers := service.NewCustomerService(customerRepo, activities, mirror, logger)
	quotations := service.NewQuotationService(quotationRepo, customerRepo, numbers, activities, mirror, m, workflow, logger)
	invoices := service.NewInvoiceService(invoiceRepo, quotationRepo, customerRepo, numbers, activities, mirror, m, workflow, logger)
	documents := service.NewDocumentService(quotations, invoices, settings, stubRenderer{}, mailer.NewLogMailer(logger), nil, activities, m, logger)
	workspace := service.NewWorkspaceService(customerRepo, quotationRepo, invoiceRepo, mirror, logger)

	authMiddleware := auth.NewMiddleware(&cfg.Auth, cache.NewRevocationList(memCache), logger)
	rt := NewRouter(cfg, logger, m, authMiddleware, middleware.NewRateLimiter(&cfg.RateLimit, logger), Handlers{
		Auth:       handler.NewAuthHandler(authMiddleware, logger),
		Workspace:  handler.NewWorkspaceHandler(workspace, logger),
		Customers:  handler.NewCustomerHandler(customers, logger),
		Quotations: handler.NewQuotationHandler(quotations, invoices, documents, logger),
		Invoices:   handler.NewInvoiceHandler(invoices, documents, logger),
		Settings:   handler.NewSettingsHandler(settings, logger),
		Activities: handler.NewActivityHandler(activities, logger),
		Health:     handler.NewHealthHandler(db, memCache, logger),
	})
	return rt.Setup(), cfg
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicEndpoints(t *testing.T) {
	h, _ := newTestRouter(t)

	for _, path := range []string{"/health", "/health/db", "/health/ready", "/swagger/doc.json"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
	req.Header.Set("X-API-Key", "wrong")
	req.Header.Set("X-Account-ID", uuid.NewString())
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)
}

func TestRouter_APIKeyAccess(t *testing.T) {
	h, _ := newTestRouter(t)
	accountID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(`{"name":"Initech"}`))
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("X-Account-ID", accountID.String())
	rec := serve(h, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("X-Account-ID", accountID.String())
	rec = serve(h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), accountID.String())
	assert.Contains(t, rec.Body.String(), `"authMethod":"api_key"`)
}

func TestRouter_SignOutRevokesToken(t *testing.T) {
	h, cfg := newTestRouter(t)

	token, err := auth.NewTokenValidator(&cfg.Auth).IssueToken(uuid.New(), "owner@example.com", time.Hour)
	require.NoError(t, err)

	bearer := func(method, path string) *http.Request {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	rec := serve(h, bearer(http.MethodGet, "/api/v1/workspace"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(h, bearer(http.MethodPost, "/api/v1/auth/signout"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(h, bearer(http.MethodGet, "/api/v1/workspace"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)

	serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `quotebook_http_requests_total`)
	assert.Contains(t, rec.Body.String(), `route="/health"`)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/customers", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/straye-as/quotebook-api/internal/auth"
	"github.com/straye-as/quotebook-api/internal/cache"
	"github.com/straye-as/quotebook-api/internal/document"
	"github.com/straye-as/quotebook-api/internal/mailer"
	"github.com/straye-as/quotebook-api/internal/metrics"
	"github.com/straye-as/quotebook-api/internal/repository"
	"github.com/straye-as/quotebook-api/internal/service"
	"github.com/straye-as/quotebook-api/internal/storage"
	"github.com/straye-as/quotebook-api/internal/testutil"
)

type discardMailer struct{ sent int }

func (m *discardMailer) Send(context.Context, *mailer.Message) error {
	m.sent++
	return nil
}

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, doc *document.Document) ([]byte, error) {
	return []byte("%PDF-stub " + doc.Number), nil
}

type noopSignOut struct {
	calls int
	err   error
}

func (s *noopSignOut) SignOut(context.Context) error {
	s.calls++
	return s.err
}

// apiTest mounts every handler on a chi router the way the API router does,
// with a fixed account injected in place of authentication
type apiTest struct {
	t         *testing.T
	db        *gorm.DB
	accountID uuid.UUID
	mailer    *discardMailer
	signOut   *noopSignOut
	router    chi.Router
}

func newAPITest(t *testing.T) *apiTest {
	t.Helper()
	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)

	customerRepo := repository.NewCustomerRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	m := metrics.New(metrics.Config{ServiceName: "quotebook-test", Environment: "test"})
	mirror := service.NewMirror(cache.NewMemoryCache(), time.Minute, m, logger)
	workflow := service.WorkflowConfig{DueDays: 30, ValidityDays: 30}

	archive, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	activities := service.NewActivityService(repository.NewActivityRepository(db), logger)
	settings := service.NewSettingsService(repository.NewSettingRepository(db), activities, logger)
	numbers := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), settings, logger)
	customers := service.NewCustomerService(customerRepo, activities, mirror, logger)
	quotations := service.NewQuotationService(quotationRepo, customerRepo, numbers, activities, mirror, m, workflow, logger)
	invoices := service.NewInvoiceService(invoiceRepo, quotationRepo, customerRepo, numbers, activities, mirror, m, workflow, logger)
	mail := &discardMailer{}
	documents := service.NewDocumentService(quotations, invoices, settings, stubRenderer{}, mail, archive, activities, m, logger)
	workspace := service.NewWorkspaceService(customerRepo, quotationRepo, invoiceRepo, mirror, logger)

	at := &apiTest{t: t, db: db, accountID: uuid.New(), mailer: mail, signOut: &noopSignOut{}}

	customerHandler := NewCustomerHandler(customers, logger)
	quotationHandler := NewQuotationHandler(quotations, invoices, documents, logger)
	invoiceHandler := NewInvoiceHandler(invoices, documents, logger)
	settingsHandler := NewSettingsHandler(settings, logger)
	authHandler := NewAuthHandler(at.signOut, logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Header.Get("X-Anonymous") == "" {
				req = req.WithContext(auth.WithAccountContext(req.Context(), &auth.AccountContext{
					AccountID: at.accountID,
					Email:     "owner@example.com",
					Method:    auth.MethodBearer,
				}))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/auth/me", authHandler.Me)
	r.Post("/auth/signout", authHandler.SignOut)
	r.Get("/workspace", NewWorkspaceHandler(workspace, logger).Get)
	r.Get("/activities", NewActivityHandler(activities, logger).List)
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", customerHandler.List)
		r.Post("/", customerHandler.Create)
		r.Get("/{id}", customerHandler.GetByID)
		r.Put("/{id}", customerHandler.Update)
		r.Delete("/{id}", customerHandler.Delete)
	})
	r.Route("/quotations", func(r chi.Router) {
		r.Get("/", quotationHandler.List)
		r.Post("/", quotationHandler.Create)
		r.Get("/stats", quotationHandler.Stats)
		r.Get("/{id}", quotationHandler.GetByID)
		r.Delete("/{id}", quotationHandler.Delete)
		r.Put("/{id}/status", quotationHandler.UpdateStatus)
		r.Post("/{id}/send", quotationHandler.Send)
		r.Post("/{id}/convert", quotationHandler.Convert)
		r.Get("/{id}/pdf", quotationHandler.PDF)
	})
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", invoiceHandler.List)
		r.Post("/", invoiceHandler.Create)
		r.Get("/stats", invoiceHandler.Stats)
		r.Get("/{id}", invoiceHandler.GetByID)
		r.Delete("/{id}", invoiceHandler.Delete)
		r.Put("/{id}/status", invoiceHandler.UpdateStatus)
		r.Post("/{id}/mark-paid", invoiceHandler.MarkPaid)
		r.Post("/{id}/send", invoiceHandler.Send)
		r.Post("/{id}/reminder", invoiceHandler.Reminder)
		r.Get("/{id}/pdf", invoiceHandler.PDF)
	})
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", settingsHandler.GetAll)
		r.Get("/{type}", settingsHandler.Get)
		r.Put("/{type}", settingsHandler.Put)
	})
	at.router = r
	return at
}

func (at *apiTest) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	at.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(at.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	at.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (at *apiTest) doAnonymous(method, path string) *httptest.ResponseRecorder {
	at.t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Anonymous", "1")
	rec := httptest.NewRecorder()
	at.router.ServeHTTP(rec, req)
	return rec
}

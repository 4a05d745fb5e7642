package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/straye-as/quotebook-api/internal/cache"
	"github.com/straye-as/quotebook-api/internal/document"
	"github.com/straye-as/quotebook-api/internal/mailer"
	"github.com/straye-as/quotebook-api/internal/metrics"
	"github.com/straye-as/quotebook-api/internal/repository"
	"github.com/straye-as/quotebook-api/internal/storage"
	"github.com/straye-as/quotebook-api/internal/testutil"
)

var fixedNow = time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)

type recordingMailer struct {
	mu       sync.Mutex
	messages []*mailer.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg *mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) sent() []*mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*mailer.Message(nil), m.messages...)
}

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, doc *document.Document) ([]byte, error) {
	return []byte("%PDF-stub " + doc.Number), nil
}

type testEnv struct {
	db         *gorm.DB
	cache      *cache.MemoryCache
	mailer     *recordingMailer
	archive    *storage.LocalStorage
	metrics    *metrics.Metrics
	activities *ActivityService
	settings   *SettingsService
	customers  *CustomerService
	quotations *QuotationService
	invoices   *InvoiceService
	documents  *DocumentService
	workspace  *WorkspaceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	db := testutil.SetupTestDB(t)

	customerRepo := repository.NewCustomerRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	sequenceRepo := repository.NewNumberSequenceRepository(db)

	memCache := cache.NewMemoryCache()
	m := metrics.New(metrics.Config{ServiceName: "quotebook-test", Environment: "test"})
	mirror := NewMirror(memCache, time.Minute, m, logger)
	cfg := WorkflowConfig{DueDays: 30, ValidityDays: 30}

	archive, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	env := &testEnv{db: db, cache: memCache, mailer: &recordingMailer{}, archive: archive, metrics: m}
	env.activities = NewActivityService(activityRepo, logger)
	env.settings = NewSettingsService(settingRepo, env.activities, logger)
	numbers := NewNumberSequenceService(sequenceRepo, env.settings, logger)
	env.customers = NewCustomerService(customerRepo, env.activities, mirror, logger)
	env.quotations = NewQuotationService(quotationRepo, customerRepo, numbers, env.activities, mirror, m, cfg, logger)
	env.invoices = NewInvoiceService(invoiceRepo, quotationRepo, customerRepo, numbers, env.activities, mirror, m, cfg, logger)
	env.quotations.now = func() time.Time { return fixedNow }
	env.invoices.now = func() time.Time { return fixedNow }
	env.documents = NewDocumentService(env.quotations, env.invoices, env.settings, stubRenderer{}, env.mailer, archive, env.activities, m, logger)
	env.workspace = NewWorkspaceService(customerRepo, quotationRepo, invoiceRepo, mirror, logger)
	return env
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/cache"
	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/mapper"
	"github.com/straye-as/quotebook-api/internal/metrics"
	"github.com/straye-as/quotebook-api/internal/repository"
)

// Outlives any snapshot rebuild; an expired token only causes a skipped store.
const generationTTL = 24 * time.Hour

// Mirror keeps per-account workspace snapshots in the cache. Every successful
// mutation drops the snapshot so the next read rebuilds it from the database.
type Mirror struct {
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewMirror(c cache.Cache, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *Mirror {
	return &Mirror{cache: c, ttl: ttl, metrics: m, logger: logger}
}

// Invalidate drops the snapshot of the authenticated account
func (m *Mirror) Invalidate(ctx context.Context) {
	if accountID, err := requireAccount(ctx); err == nil {
		m.InvalidateAccount(ctx, accountID)
	}
}

// InvalidateAccount drops the snapshot of one account. The generation token
// is replaced first so a rebuild that started before the mutation never
// keeps its result.
func (m *Mirror) InvalidateAccount(ctx context.Context, accountID uuid.UUID) {
	if m == nil || m.cache == nil {
		return
	}
	if err := m.cache.Set(ctx, cache.WorkspaceGenerationKey(accountID), []byte(uuid.NewString()), generationTTL); err != nil {
		m.logger.Warn("failed to bump workspace generation",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
	}
	if err := m.cache.Delete(ctx, cache.WorkspaceKey(accountID)); err != nil {
		m.logger.Warn("failed to invalidate workspace snapshot",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
	}
}

// generation returns the current invalidation token of the account. An
// account that was never invalidated has the empty token.
func (m *Mirror) generation(ctx context.Context, accountID uuid.UUID) (string, error) {
	if m == nil || m.cache == nil {
		return "", nil
	}
	raw, _, err := m.cache.Get(ctx, cache.WorkspaceGenerationKey(accountID))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (m *Mirror) load(ctx context.Context, accountID uuid.UUID) (*domain.WorkspaceDTO, bool) {
	if m == nil || m.cache == nil {
		return nil, false
	}
	raw, ok, err := m.cache.Get(ctx, cache.WorkspaceKey(accountID))
	if err != nil {
		m.metrics.CacheLookup("error")
		m.logger.Warn("workspace cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		m.metrics.CacheLookup("miss")
		return nil, false
	}
	var snapshot domain.WorkspaceDTO
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		m.metrics.CacheLookup("error")
		m.logger.Warn("discarding unreadable workspace snapshot", zap.Error(err))
		m.InvalidateAccount(ctx, accountID)
		return nil, false
	}
	m.metrics.CacheLookup("hit")
	return &snapshot, true
}

// store caches a snapshot built while the account was at generation gen. If an
// invalidation happened since, the snapshot is stale and is dropped again.
func (m *Mirror) store(ctx context.Context, accountID uuid.UUID, gen string, snapshot *domain.WorkspaceDTO) {
	if m == nil || m.cache == nil {
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		m.logger.Warn("failed to encode workspace snapshot", zap.Error(err))
		return
	}
	if current, err := m.generation(ctx, accountID); err != nil || current != gen {
		m.logger.Debug("skipping stale workspace snapshot", zap.String("account_id", accountID.String()))
		return
	}
	if err := m.cache.Set(ctx, cache.WorkspaceKey(accountID), raw, m.ttl); err != nil {
		m.logger.Warn("failed to cache workspace snapshot", zap.Error(err))
		return
	}
	// An invalidation between the check and the write leaves a new token behind
	if current, err := m.generation(ctx, accountID); err != nil || current != gen {
		if err := m.cache.Delete(ctx, cache.WorkspaceKey(accountID)); err != nil {
			m.logger.Warn("failed to drop stale workspace snapshot", zap.Error(err))
		}
	}
}

// WorkspaceService returns the whole collection state of an account in one read
type WorkspaceService struct {
	customerRepo  *repository.CustomerRepository
	quotationRepo *repository.QuotationRepository
	invoiceRepo   *repository.InvoiceRepository
	mirror        *Mirror
	logger        *zap.Logger
}

func NewWorkspaceService(
	customerRepo *repository.CustomerRepository,
	quotationRepo *repository.QuotationRepository,
	invoiceRepo *repository.InvoiceRepository,
	mirror *Mirror,
	logger *zap.Logger,
) *WorkspaceService {
	return &WorkspaceService{
		customerRepo:  customerRepo,
		quotationRepo: quotationRepo,
		invoiceRepo:   invoiceRepo,
		mirror:        mirror,
		logger:        logger,
	}
}

// Get returns customers, quotations and invoices of the account, newest first,
// with their summaries
func (s *WorkspaceService) Get(ctx context.Context) (*domain.WorkspaceDTO, error) {
	accountID, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}

	if snapshot, ok := s.mirror.load(ctx, accountID); ok {
		return snapshot, nil
	}
	gen, err := s.mirror.generation(ctx, accountID)
	if err != nil {
		s.logger.Warn("workspace generation read failed", zap.Error(err))
		// Matches no real token, so this rebuild is served but not cached
		gen = "unknown"
	}

	customers, err := s.customerRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	quotations, err := s.quotationRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	invoices, err := s.invoiceRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	quotationStats, err := s.quotationRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute quotation stats: %w", err)
	}
	invoiceStats, err := s.invoiceRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute invoice stats: %w", err)
	}

	snapshot := &domain.WorkspaceDTO{
		Customers:      make([]domain.CustomerDTO, len(customers)),
		Quotations:     make([]domain.QuotationDTO, len(quotations)),
		Invoices:       make([]domain.InvoiceDTO, len(invoices)),
		QuotationStats: toQuotationStatsDTO(quotationStats),
		InvoiceStats:   toInvoiceStatsDTO(invoiceStats),
	}
	for i := range customers {
		snapshot.Customers[i] = mapper.ToCustomerDTO(&customers[i])
	}
	for i := range quotations {
		snapshot.Quotations[i] = mapper.ToQuotationDTO(&quotations[i])
	}
	for i := range invoices {
		snapshot.Invoices[i] = mapper.ToInvoiceDTO(&invoices[i])
	}

	s.mirror.store(ctx, accountID, gen, snapshot)
	return snapshot, nil
}

func toQuotationStatsDTO(stats *repository.QuotationStats) domain.QuotationStatsDTO {
	return domain.QuotationStatsDTO{
		Total:         stats.Total,
		AcceptedValue: stats.AcceptedValue.InexactFloat64(),
		SentCount:     stats.SentCount,
		DraftCount:    stats.DraftCount,
	}
}

func toInvoiceStatsDTO(stats *repository.InvoiceStats) domain.InvoiceStatsDTO {
	return domain.InvoiceStatsDTO{
		Total:            stats.Total,
		PaidAmount:       stats.PaidAmount.InexactFloat64(),
		OutstandingValue: stats.OutstandingValue.InexactFloat64(),
		OverdueAmount:    stats.OverdueAmount.InexactFloat64(),
		DraftCount:       stats.DraftCount,
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/mapper"
	"github.com/straye-as/quotebook-api/internal/metrics"
	"github.com/straye-as/quotebook-api/internal/repository"
)

// QuotationService implements the quotation side of the document workflow
type QuotationService struct {
	quotationRepo *repository.QuotationRepository
	customerRepo  *repository.CustomerRepository
	numbers       *NumberSequenceService
	activities    *ActivityService
	mirror        *Mirror
	metrics       *metrics.Metrics
	cfg           WorkflowConfig
	logger        *zap.Logger
	now           func() time.Time
}

func NewQuotationService(
	quotationRepo *repository.QuotationRepository,
	customerRepo *repository.CustomerRepository,
	numbers *NumberSequenceService,
	activities *ActivityService,
	mirror *Mirror,
	m *metrics.Metrics,
	cfg WorkflowConfig,
	logger *zap.Logger,
) *QuotationService {
	return &QuotationService{
		quotationRepo: quotationRepo,
		customerRepo:  customerRepo,
		numbers:       numbers,
		activities:    activities,
		mirror:        mirror,
		metrics:       m,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// Create numbers and stores a new quotation for one of the account's customers
func (s *QuotationService) Create(ctx context.Context, req *domain.CreateQuotationRequest) (*domain.QuotationDTO, error) {
	accountID, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}

	customer, err := loadDocumentCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.QuotationStatusSave
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown quotation status %q", ErrInvalidInput, status)
	}

	date, err := resolveDate(req.Date, today(s.now), "date")
	if err != nil {
		return nil, err
	}
	validUntil, err := resolveDate(req.ValidUntil, date.AddDate(0, 0, s.cfg.validityDays()), "validUntil")
	if err != nil {
		return nil, err
	}
	if validUntil.Before(date) {
		return nil, fmt.Errorf("%w: validUntil must not be before date", ErrInvalidInput)
	}

	items, amount, err := resolveItems(req.Items, req.Amount)
	if err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, domain.DocumentKindQuotation)
	if err != nil {
		return nil, err
	}

	quotation := &domain.Quotation{
		AccountID:       accountID,
		QuotationNumber: number,
		CustomerID:      customer.ID,
		Amount:          amount,
		Status:          status,
		Date:            date,
		ValidUntil:      validUntil,
		Items:           items,
		Notes:           strings.TrimSpace(req.Notes),
	}

	if err := s.quotationRepo.Create(ctx, quotation); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: quotation number %s already exists", ErrConflict, number)
		}
		return nil, fmt.Errorf("failed to create quotation: %w", err)
	}
	quotation.Customer = customer
	s.mirror.Invalidate(ctx)
	s.metrics.DocumentCreated(string(domain.DocumentKindQuotation))

	s.activities.Record(ctx, domain.ActivityTargetQuotation, quotation.ID,
		"Quotation created", fmt.Sprintf("Quotation %s for '%s' was created", number, customer.Name))

	s.logger.Info("quotation created",
		zap.String("account_id", accountID.String()),
		zap.String("quotation_id", quotation.ID.String()),
		zap.String("number", number))

	dto := mapper.ToQuotationDTO(quotation)
	return &dto, nil
}

func (s *QuotationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.QuotationDTO, error) {
	quotation, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToQuotationDTO(quotation)
	return &dto, nil
}

func (s *QuotationService) List(ctx context.Context, page, pageSize int, filters repository.DocumentFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}
	if filters.Status != "" && !domain.QuotationStatus(filters.Status).IsValid() {
		return nil, fmt.Errorf("%w: unknown quotation status %q", ErrInvalidInput, filters.Status)
	}
	page, pageSize = clampPage(page, pageSize)

	quotations, total, err := s.quotationRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	dtos := make([]domain.QuotationDTO, len(quotations))
	for i := range quotations {
		dtos[i] = mapper.ToQuotationDTO(&quotations[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *QuotationService) Stats(ctx context.Context) (*domain.QuotationStatsDTO, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}
	stats, err := s.quotationRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute quotation stats: %w", err)
	}
	dto := toQuotationStatsDTO(stats)
	return &dto, nil
}

// UpdateStatus moves the quotation along its lifecycle. Setting the current
// status again succeeds without writing.
func (s *QuotationService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.QuotationStatus) (*domain.QuotationDTO, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown quotation status %q", ErrInvalidInput, status)
	}
	quotation, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, quotation, status); err != nil {
		return nil, err
	}
	dto := mapper.ToQuotationDTO(quotation)
	return &dto, nil
}

func (s *QuotationService) transition(ctx context.Context, quotation *domain.Quotation, to domain.QuotationStatus) error {
	from := quotation.Status
	if from == to {
		return nil
	}
	if from.IsTerminal() {
		return fmt.Errorf("%w: quotation %s is already %s",
			ErrInvalidStatusTransition, quotation.QuotationNumber, from)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: quotation %s cannot move from %s to %s",
			ErrInvalidStatusTransition, quotation.QuotationNumber, from, to)
	}

	if err := s.quotationRepo.UpdateStatus(ctx, quotation.ID, from, to); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: quotation %s changed concurrently", ErrInvalidStatusTransition, quotation.QuotationNumber)
		}
		return fmt.Errorf("failed to update quotation status: %w", err)
	}
	quotation.Status = to
	quotation.UpdatedAt = s.now().UTC()
	s.mirror.Invalidate(ctx)
	s.metrics.StatusTransition(string(domain.DocumentKindQuotation), string(from), string(to))

	s.activities.Record(ctx, domain.ActivityTargetQuotation, quotation.ID,
		"Quotation status changed", fmt.Sprintf("Quotation %s moved from %s to %s", quotation.QuotationNumber, from, to))
	return nil
}

// Delete removes the quotation. An invoice converted from it stays and loses the link.
func (s *QuotationService) Delete(ctx context.Context, id uuid.UUID) error {
	quotation, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.quotationRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuotationNotFound
		}
		return fmt.Errorf("failed to delete quotation: %w", err)
	}
	s.mirror.Invalidate(ctx)

	s.activities.Record(ctx, domain.ActivityTargetQuotation, id,
		"Quotation deleted", fmt.Sprintf("Quotation %s was deleted", quotation.QuotationNumber))
	return nil
}

func (s *QuotationService) get(ctx context.Context, id uuid.UUID) (*domain.Quotation, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}
	quotation, err := s.quotationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuotationNotFound
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return quotation, nil
}

// loadDocumentCustomer resolves the customer a new document is issued to.
// An account without any customer gets ErrNoCustomers.
func loadDocumentCustomer(ctx context.Context, repo *repository.CustomerRepository, customerID uuid.UUID) (*domain.Customer, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	if count == 0 {
		return nil, ErrNoCustomers
	}
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customerId is required", ErrInvalidInput)
	}
	customer, err := repo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to verify customer: %w", err)
	}
	return customer, nil
}

// ExpireLapsed marks every account's save and sent quotations whose validity
// ended before asOf as expired. It runs without a request account.
func (s *QuotationService) ExpireLapsed(ctx context.Context, asOf time.Time) (int64, error) {
	accounts, affected, err := s.quotationRepo.ExpireLapsed(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to expire quotations: %w", err)
	}
	for _, accountID := range accounts {
		s.mirror.InvalidateAccount(ctx, accountID)
	}
	return affected, nil
}

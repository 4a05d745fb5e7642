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

// InvoiceService implements the invoice side of the document workflow,
// including conversion from quotations
type InvoiceService struct {
	invoiceRepo   *repository.InvoiceRepository
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

func NewInvoiceService(
	invoiceRepo *repository.InvoiceRepository,
	quotationRepo *repository.QuotationRepository,
	customerRepo *repository.CustomerRepository,
	numbers *NumberSequenceService,
	activities *ActivityService,
	mirror *Mirror,
	m *metrics.Metrics,
	cfg WorkflowConfig,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:   invoiceRepo,
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

// Create numbers and stores a new invoice. When quotationId is given the
// quotation must belong to the account and must not be invoiced yet.
func (s *InvoiceService) Create(ctx context.Context, req *domain.CreateInvoiceRequest) (*domain.InvoiceDTO, error) {
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
		status = domain.InvoiceStatusSave
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown invoice status %q", ErrInvalidInput, status)
	}

	if req.QuotationID != nil {
		if _, err := s.quotationRepo.GetByID(ctx, *req.QuotationID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrQuotationNotFound
			}
			return nil, fmt.Errorf("failed to verify quotation: %w", err)
		}
		if _, err := s.invoiceRepo.GetByQuotationID(ctx, *req.QuotationID); err == nil {
			return nil, ErrQuotationAlreadyInvoiced
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check existing invoice: %w", err)
		}
	}

	date, err := resolveDate(req.Date, today(s.now), "date")
	if err != nil {
		return nil, err
	}
	dueDate, err := resolveDate(req.DueDate, date.AddDate(0, 0, s.cfg.dueDays()), "dueDate")
	if err != nil {
		return nil, err
	}
	if dueDate.Before(date) {
		return nil, fmt.Errorf("%w: dueDate must not be before date", ErrInvalidInput)
	}

	items, amount, err := resolveItems(req.Items, req.Amount)
	if err != nil {
		return nil, err
	}

	invoice := &domain.Invoice{
		AccountID:   accountID,
		CustomerID:  customer.ID,
		QuotationID: req.QuotationID,
		Amount:      amount,
		Status:      status,
		Date:        date,
		DueDate:     dueDate,
		Items:       items,
		Notes:       strings.TrimSpace(req.Notes),
	}
	if status == domain.InvoiceStatusPaid {
		paidAt := s.now().UTC()
		invoice.PaidAt = &paidAt
	}

	if err := s.insert(ctx, invoice); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && req.QuotationID != nil {
			return nil, ErrQuotationAlreadyInvoiced
		}
		return nil, err
	}
	invoice.Customer = customer

	s.activities.Record(ctx, domain.ActivityTargetInvoice, invoice.ID,
		"Invoice created", fmt.Sprintf("Invoice %s for '%s' was created", invoice.InvoiceNumber, customer.Name))

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// ConvertFromQuotation derives the invoice of a quotation. Converting twice
// returns the first invoice with Created=false.
func (s *InvoiceService) ConvertFromQuotation(ctx context.Context, quotationID uuid.UUID) (*domain.ConversionResultDTO, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}

	quotation, err := s.quotationRepo.GetByID(ctx, quotationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuotationNotFound
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}

	if existing, err := s.invoiceRepo.GetByQuotationID(ctx, quotationID); err == nil {
		s.metrics.Conversion(false)
		return &domain.ConversionResultDTO{Invoice: mapper.ToInvoiceDTO(existing), Created: false}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing invoice: %w", err)
	}

	if !quotation.Status.IsConvertible() {
		return nil, fmt.Errorf("%w: quotation %s is %s", ErrQuotationNotConvertible, quotation.QuotationNumber, quotation.Status)
	}

	items, err := mapper.EncodeItems(mapper.ParseItems(quotation.Items))
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}

	date := today(s.now)
	invoice := &domain.Invoice{
		AccountID:   quotation.AccountID,
		CustomerID:  quotation.CustomerID,
		QuotationID: &quotation.ID,
		Amount:      quotation.Amount,
		Status:      domain.InvoiceStatusSave,
		Date:        date,
		DueDate:     date.AddDate(0, 0, s.cfg.dueDays()),
		Items:       items,
		Notes:       quotation.Notes,
	}

	if err := s.insert(ctx, invoice); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// A concurrent conversion won the unique index on quotation_id
		winner, getErr := s.invoiceRepo.GetByQuotationID(ctx, quotationID)
		if getErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		s.metrics.Conversion(false)
		return &domain.ConversionResultDTO{Invoice: mapper.ToInvoiceDTO(winner), Created: false}, nil
	}
	invoice.Customer = quotation.Customer
	s.metrics.Conversion(true)

	s.activities.Record(ctx, domain.ActivityTargetQuotation, quotation.ID,
		"Quotation converted", fmt.Sprintf("Quotation %s was converted to invoice %s", quotation.QuotationNumber, invoice.InvoiceNumber))

	s.logger.Info("quotation converted",
		zap.String("quotation_id", quotation.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber))

	return &domain.ConversionResultDTO{Invoice: mapper.ToInvoiceDTO(invoice), Created: true}, nil
}

// insert allocates the next invoice number and stores the row
func (s *InvoiceService) insert(ctx context.Context, invoice *domain.Invoice) error {
	number, err := s.numbers.Next(ctx, domain.DocumentKindInvoice)
	if err != nil {
		return err
	}
	invoice.InvoiceNumber = number

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	s.mirror.Invalidate(ctx)
	s.metrics.DocumentCreated(string(domain.DocumentKindInvoice))
	return nil
}

func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	invoice, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

func (s *InvoiceService) List(ctx context.Context, page, pageSize int, filters repository.DocumentFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}
	if filters.Status != "" && !domain.InvoiceStatus(filters.Status).IsValid() {
		return nil, fmt.Errorf("%w: unknown invoice status %q", ErrInvalidInput, filters.Status)
	}
	page, pageSize = clampPage(page, pageSize)

	invoices, total, err := s.invoiceRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	dtos := make([]domain.InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = mapper.ToInvoiceDTO(&invoices[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *InvoiceService) Stats(ctx context.Context) (*domain.InvoiceStatsDTO, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}
	stats, err := s.invoiceRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute invoice stats: %w", err)
	}
	dto := toInvoiceStatsDTO(stats)
	return &dto, nil
}

// UpdateStatus moves the invoice along its lifecycle. Setting the current
// status again succeeds without writing.
func (s *InvoiceService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.InvoiceStatus) (*domain.InvoiceDTO, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown invoice status %q", ErrInvalidInput, status)
	}
	invoice, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, invoice, status); err != nil {
		return nil, err
	}
	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// MarkAsPaid sets the status to paid and stamps paid_at. Nothing else changes.
func (s *InvoiceService) MarkAsPaid(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	return s.UpdateStatus(ctx, id, domain.InvoiceStatusPaid)
}

func (s *InvoiceService) transition(ctx context.Context, invoice *domain.Invoice, to domain.InvoiceStatus) error {
	from := invoice.Status
	if from == to {
		return nil
	}
	if from.IsTerminal() {
		return fmt.Errorf("%w: invoice %s is already %s",
			ErrInvalidStatusTransition, invoice.InvoiceNumber, from)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: invoice %s cannot move from %s to %s",
			ErrInvalidStatusTransition, invoice.InvoiceNumber, from, to)
	}

	var paidAt *time.Time
	if to == domain.InvoiceStatusPaid {
		now := s.now().UTC()
		paidAt = &now
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, invoice.ID, from, to, paidAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: invoice %s changed concurrently", ErrInvalidStatusTransition, invoice.InvoiceNumber)
		}
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	invoice.Status = to
	if paidAt != nil {
		invoice.PaidAt = paidAt
	}
	invoice.UpdatedAt = s.now().UTC()
	s.mirror.Invalidate(ctx)
	s.metrics.StatusTransition(string(domain.DocumentKindInvoice), string(from), string(to))

	s.activities.Record(ctx, domain.ActivityTargetInvoice, invoice.ID,
		"Invoice status changed", fmt.Sprintf("Invoice %s moved from %s to %s", invoice.InvoiceNumber, from, to))
	return nil
}

func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	invoice, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.invoiceRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvoiceNotFound
		}
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	s.mirror.Invalidate(ctx)

	s.activities.Record(ctx, domain.ActivityTargetInvoice, id,
		"Invoice deleted", fmt.Sprintf("Invoice %s was deleted", invoice.InvoiceNumber))
	return nil
}

func (s *InvoiceService) get(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// MarkOverdue flags every account's sent and pending invoices due before asOf
// as overdue. It runs without a request account.
func (s *InvoiceService) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	accounts, affected, err := s.invoiceRepo.MarkOverdue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue invoices: %w", err)
	}
	for _, accountID := range accounts {
		s.mirror.InvalidateAccount(ctx, accountID)
	}
	return affected, nil
}

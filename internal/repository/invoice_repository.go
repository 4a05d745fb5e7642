package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/quotebook-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var invoiceSortFields = map[string]string{
	"createdAt":     "invoices.created_at",
	"date":          "invoices.date",
	"dueDate":       "invoices.due_date",
	"amount":        "invoices.amount",
	"invoiceNumber": "invoices.invoice_number",
	"status":        "invoices.status",
}

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create inserts an invoice. A second invoice for the same quotation violates the
// unique index on quotation_id and fails with gorm.ErrDuplicatedKey.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error
}

// GetByID returns an account's invoice with its customer joined
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	query := r.db.WithContext(ctx).Preload("Customer").Where("invoices.id = ?", id)
	query = ApplyAccountFilterWithColumn(ctx, query, "invoices.account_id")
	if err := query.First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetByQuotationID returns the invoice converted from a quotation
func (r *InvoiceRepository) GetByQuotationID(ctx context.Context, quotationID uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	query := r.db.WithContext(ctx).Preload("Customer").Where("invoices.quotation_id = ?", quotationID)
	query = ApplyAccountFilterWithColumn(ctx, query, "invoices.account_id")
	if err := query.First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateStatus moves an invoice from one status to another while it is still in
// the expected status. paidAt is stored when moving to paid.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.InvoiceStatus, paidAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if to == domain.InvoiceStatusPaid {
		updates["paid_at"] = paidAt
	}

	query := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ? AND status = ?", id, from)
	query = ApplyAccountFilter(ctx, query)
	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes an account's invoice
func (r *InvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := ApplyAccountFilter(ctx, r.db.WithContext(ctx).Where("id = ?", id)).Delete(&domain.Invoice{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns one page of invoices. Search matches the invoice number, the
// customer name or the invoice id.
func (r *InvoiceRepository) List(ctx context.Context, page, pageSize int, filters DocumentFilters, sort SortConfig) ([]domain.Invoice, int64, error) {
	var invoices []domain.Invoice
	var total int64

	page, pageSize = normalizePage(page, pageSize)

	query := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Joins("LEFT JOIN customers ON customers.id = invoices.customer_id")
	query = ApplyAccountFilterWithColumn(ctx, query, "invoices.account_id")

	if filters.Search != "" {
		pattern := likePattern(filters.Search)
		query = query.Where(
			containsClause("invoices.invoice_number", "customers.name", textColumn(r.db, "invoices.id")),
			pattern, pattern, pattern,
		)
	}
	if filters.Status != "" {
		query = query.Where("invoices.status = ?", filters.Status)
	}
	if filters.CustomerID != nil {
		query = query.Where("invoices.customer_id = ?", *filters.CustomerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Customer").
		Order(BuildOrderClause(sort, invoiceSortFields, "invoices.created_at")).
		Offset(offset).Limit(pageSize).
		Find(&invoices).Error

	return invoices, total, err
}

// ListAll returns every invoice of the account with customers joined, newest first
func (r *InvoiceRepository) ListAll(ctx context.Context) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	query := ApplyAccountFilter(ctx, r.db.WithContext(ctx).Model(&domain.Invoice{}))
	err := query.Preload("Customer").Order("created_at DESC").Find(&invoices).Error
	return invoices, err
}

// InvoiceStats aggregates an account's invoices
type InvoiceStats struct {
	Total            int64
	PaidAmount       decimal.Decimal
	OutstandingValue decimal.Decimal
	OverdueAmount    decimal.Decimal
	DraftCount       int64
}

// Stats computes the summary shown above the invoice list. Outstanding covers
// sent and pending invoices.
func (r *InvoiceRepository) Stats(ctx context.Context) (*InvoiceStats, error) {
	var rows []struct {
		Status domain.InvoiceStatus
		Count  int64
		Total  decimal.Decimal
	}
	query := ApplyAccountFilter(ctx, r.db.WithContext(ctx).Model(&domain.Invoice{}))
	err := query.Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &InvoiceStats{
		PaidAmount:       decimal.Zero,
		OutstandingValue: decimal.Zero,
		OverdueAmount:    decimal.Zero,
	}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case domain.InvoiceStatusPaid:
			stats.PaidAmount = stats.PaidAmount.Add(row.Total)
		case domain.InvoiceStatusSent, domain.InvoiceStatusPending:
			stats.OutstandingValue = stats.OutstandingValue.Add(row.Total)
		case domain.InvoiceStatusOverdue:
			stats.OverdueAmount = stats.OverdueAmount.Add(row.Total)
		case domain.InvoiceStatusSave:
			stats.DraftCount += row.Count
		}
	}
	return stats, nil
}

// MarkOverdue flags sent and pending invoices whose due date is before cutoff,
// across all accounts. Returns the accounts that had invoices changed and the row count.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, cutoff time.Time) ([]uuid.UUID, int64, error) {
	var accounts []uuid.UUID
	var affected int64
	statuses := []domain.InvoiceStatus{domain.InvoiceStatusSent, domain.InvoiceStatusPending}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Invoice{}).
			Where("status IN ? AND due_date < ?", statuses, cutoff).
			Distinct().Pluck("account_id", &accounts).Error; err != nil {
			return err
		}
		if len(accounts) == 0 {
			return nil
		}
		result := tx.Model(&domain.Invoice{}).
			Where("status IN ? AND due_date < ?", statuses, cutoff).
			Updates(map[string]interface{}{
				"status":     domain.InvoiceStatusOverdue,
				"updated_at": time.Now().UTC(),
			})
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return nil, 0, err
	}
	return accounts, affected, nil
}

// ListReminderCandidates returns the account's unpaid invoices due on or before
// dueBy, oldest due date first
func (r *InvoiceRepository) ListReminderCandidates(ctx context.Context, dueBy time.Time) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	query := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Preload("Customer").
		Where("status IN ? AND due_date <= ?", []domain.InvoiceStatus{
			domain.InvoiceStatusSent, domain.InvoiceStatusPending, domain.InvoiceStatusOverdue,
		}, dueBy)
	query = ApplyAccountFilter(ctx, query)
	err := query.Order("due_date ASC").Find(&invoices).Error
	return invoices, err
}

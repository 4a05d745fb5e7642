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

// DocumentFilters narrows quotation and invoice list queries
type DocumentFilters struct {
	Search     string
	Status     string
	CustomerID *uuid.UUID
}

var quotationSortFields = map[string]string{
	"createdAt":       "quotations.created_at",
	"date":            "quotations.date",
	"validUntil":      "quotations.valid_until",
	"amount":          "quotations.amount",
	"quotationNumber": "quotations.quotation_number",
	"status":          "quotations.status",
}

type QuotationRepository struct {
	db *gorm.DB
}

func NewQuotationRepository(db *gorm.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

func (r *QuotationRepository) Create(ctx context.Context, quotation *domain.Quotation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(quotation).Error
}

// GetByID returns an account's quotation with its customer joined
func (r *QuotationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quotation, error) {
	var quotation domain.Quotation
	query := r.db.WithContext(ctx).Preload("Customer").Where("quotations.id = ?", id)
	query = ApplyAccountFilterWithColumn(ctx, query, "quotations.account_id")
	if err := query.First(&quotation).Error; err != nil {
		return nil, err
	}
	return &quotation, nil
}

// UpdateStatus moves a quotation from one status to another. The update only
// applies while the row is still in the expected status, so a concurrent change
// makes it report gorm.ErrRecordNotFound instead of overwriting.
func (r *QuotationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.QuotationStatus) error {
	query := r.db.WithContext(ctx).Model(&domain.Quotation{}).
		Where("id = ? AND status = ?", id, from)
	query = ApplyAccountFilter(ctx, query)
	result := query.Updates(map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a quotation and detaches any invoice converted from it
func (r *QuotationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		detach := tx.Model(&domain.Invoice{}).Where("quotation_id = ?", id)
		if err := ApplyAccountFilter(ctx, detach).Update("quotation_id", nil).Error; err != nil {
			return err
		}
		result := ApplyAccountFilter(ctx, tx.Where("id = ?", id)).Delete(&domain.Quotation{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// List returns one page of quotations. Search matches the quotation number,
// the customer name or the quotation id.
func (r *QuotationRepository) List(ctx context.Context, page, pageSize int, filters DocumentFilters, sort SortConfig) ([]domain.Quotation, int64, error) {
	var quotations []domain.Quotation
	var total int64

	page, pageSize = normalizePage(page, pageSize)

	query := r.db.WithContext(ctx).Model(&domain.Quotation{}).
		Joins("LEFT JOIN customers ON customers.id = quotations.customer_id")
	query = ApplyAccountFilterWithColumn(ctx, query, "quotations.account_id")

	if filters.Search != "" {
		pattern := likePattern(filters.Search)
		query = query.Where(
			containsClause("quotations.quotation_number", "customers.name", textColumn(r.db, "quotations.id")),
			pattern, pattern, pattern,
		)
	}
	if filters.Status != "" {
		query = query.Where("quotations.status = ?", filters.Status)
	}
	if filters.CustomerID != nil {
		query = query.Where("quotations.customer_id = ?", *filters.CustomerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Customer").
		Order(BuildOrderClause(sort, quotationSortFields, "quotations.created_at")).
		Offset(offset).Limit(pageSize).
		Find(&quotations).Error

	return quotations, total, err
}

// ListAll returns every quotation of the account with customers joined, newest first
func (r *QuotationRepository) ListAll(ctx context.Context) ([]domain.Quotation, error) {
	var quotations []domain.Quotation
	query := ApplyAccountFilter(ctx, r.db.WithContext(ctx).Model(&domain.Quotation{}))
	err := query.Preload("Customer").Order("created_at DESC").Find(&quotations).Error
	return quotations, err
}

// QuotationStats aggregates an account's quotations
type QuotationStats struct {
	Total         int64
	AcceptedValue decimal.Decimal
	SentCount     int64
	DraftCount    int64
}

// Stats computes the summary shown above the quotation list
func (r *QuotationRepository) Stats(ctx context.Context) (*QuotationStats, error) {
	var rows []struct {
		Status domain.QuotationStatus
		Count  int64
		Total  decimal.Decimal
	}
	query := ApplyAccountFilter(ctx, r.db.WithContext(ctx).Model(&domain.Quotation{}))
	err := query.Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &QuotationStats{AcceptedValue: decimal.Zero}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case domain.QuotationStatusAccepted:
			stats.AcceptedValue = stats.AcceptedValue.Add(row.Total)
		case domain.QuotationStatusSent:
			stats.SentCount += row.Count
		case domain.QuotationStatusSave:
			stats.DraftCount += row.Count
		}
	}
	return stats, nil
}

// ExpireLapsed marks save and sent quotations whose validity ended before cutoff as
// expired, across all accounts. Returns the accounts that had quotations changed and the row count.
func (r *QuotationRepository) ExpireLapsed(ctx context.Context, cutoff time.Time) ([]uuid.UUID, int64, error) {
	var accounts []uuid.UUID
	var affected int64
	statuses := []domain.QuotationStatus{domain.QuotationStatusSave, domain.QuotationStatusSent}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Quotation{}).
			Where("status IN ? AND valid_until < ?", statuses, cutoff).
			Distinct().Pluck("account_id", &accounts).Error; err != nil {
			return err
		}
		if len(accounts) == 0 {
			return nil
		}
		result := tx.Model(&domain.Quotation{}).
			Where("status IN ? AND valid_until < ?", statuses, cutoff).
			Updates(map[string]interface{}{
				"status":     domain.QuotationStatusExpired,
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

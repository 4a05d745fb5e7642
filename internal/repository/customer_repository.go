package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/quotebook-api/internal/domain"
	"gorm.io/gorm"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var customer domain.Customer
	query := r.db.WithContext(ctx).Where("id = ?", id)
	query = ApplyAccountFilter(ctx, query)
	err := query.First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	query := r.db.WithContext(ctx).Model(customer).Where("id = ?", customer.ID)
	query = ApplyAccountFilter(ctx, query)
	result := query.Select("name", "email", "phone", "address", "company", "updated_at").Updates(customer)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a customer owned by the account. Returns gorm.ErrRecordNotFound
// when nothing was deleted.
func (r *CustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := ApplyAccountFilter(ctx, r.db.WithContext(ctx).Where("id = ?", id))
	result := query.Delete(&domain.Customer{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns one page of customers matching search on name, email or id
func (r *CustomerRepository) List(ctx context.Context, page, pageSize int, search string) ([]domain.Customer, int64, error) {
	var customers []domain.Customer
	var total int64

	page, pageSize = normalizePage(page, pageSize)

	query := r.db.WithContext(ctx).Model(&domain.Customer{})
	query = ApplyAccountFilter(ctx, query)

	if search != "" {
		pattern := likePattern(search)
		query = query.Where(
			containsClause("name", "email", textColumn(r.db, "id")),
			pattern, pattern, pattern,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&customers).Error

	return customers, total, err
}

// ListAll returns every customer of the account, newest first
func (r *CustomerRepository) ListAll(ctx context.Context) ([]domain.Customer, error) {
	var customers []domain.Customer
	query := ApplyAccountFilter(ctx, r.db.WithContext(ctx).Model(&domain.Customer{}))
	err := query.Order("created_at DESC").Find(&customers).Error
	return customers, err
}

// Count returns the number of customers owned by the account
func (r *CustomerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	query := ApplyAccountFilter(ctx, r.db.WithContext(ctx).Model(&domain.Customer{}))
	err := query.Count(&count).Error
	return count, err
}

// CountReferences returns how many quotations and invoices point at the customer
func (r *CustomerRepository) CountReferences(ctx context.Context, customerID uuid.UUID) (int64, int64, error) {
	var quotations, invoices int64
	q := ApplyAccountFilter(ctx, r.db.WithContext(ctx).Model(&domain.Quotation{}).Where("customer_id = ?", customerID))
	if err := q.Count(&quotations).Error; err != nil {
		return 0, 0, err
	}
	i := ApplyAccountFilter(ctx, r.db.WithContext(ctx).Model(&domain.Invoice{}).Where("customer_id = ?", customerID))
	if err := i.Count(&invoices).Error; err != nil {
		return 0, 0, err
	}
	return quotations, invoices, nil
}

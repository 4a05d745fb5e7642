package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/mapper"
	"github.com/straye-as/quotebook-api/internal/repository"
)

type CustomerService struct {
	customerRepo *repository.CustomerRepository
	activities   *ActivityService
	mirror       *Mirror
	logger       *zap.Logger
}

func NewCustomerService(
	customerRepo *repository.CustomerRepository,
	activities *ActivityService,
	mirror *Mirror,
	logger *zap.Logger,
) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		activities:   activities,
		mirror:       mirror,
		logger:       logger,
	}
}

func (s *CustomerService) Create(ctx context.Context, req *domain.CreateCustomerRequest) (*domain.CustomerDTO, error) {
	accountID, err := requireAccount(ctx)
	if err != nil {
		return nil, err
	}

	customer := &domain.Customer{
		AccountID: accountID,
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     req.Phone,
		Address:   req.Address,
		Company:   req.Company,
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	s.mirror.Invalidate(ctx)

	s.activities.Record(ctx, domain.ActivityTargetCustomer, customer.ID,
		"Customer created", fmt.Sprintf("Customer '%s' was created", customer.Name))

	dto := mapper.ToCustomerDTO(customer)
	return &dto, nil
}

func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomerDTO, error) {
	customer, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToCustomerDTO(customer)
	return &dto, nil
}

func (s *CustomerService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateCustomerRequest) (*domain.CustomerDTO, error) {
	customer, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	customer.Name = strings.TrimSpace(req.Name)
	customer.Email = strings.TrimSpace(req.Email)
	customer.Phone = req.Phone
	customer.Address = req.Address
	customer.Company = req.Company

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	s.mirror.Invalidate(ctx)

	s.activities.Record(ctx, domain.ActivityTargetCustomer, customer.ID,
		"Customer updated", fmt.Sprintf("Customer '%s' was updated", customer.Name))

	dto := mapper.ToCustomerDTO(customer)
	return &dto, nil
}

// Delete removes a customer that no quotation or invoice references
func (s *CustomerService) Delete(ctx context.Context, id uuid.UUID) error {
	customer, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	quotations, invoices, err := s.customerRepo.CountReferences(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check customer references: %w", err)
	}
	if quotations > 0 || invoices > 0 {
		return fmt.Errorf("%w: %d quotations, %d invoices", ErrCustomerInUse, quotations, invoices)
	}

	if err := s.customerRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCustomerNotFound
		}
		// A document inserted after the reference check trips the foreign key
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return ErrCustomerInUse
		}
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	s.mirror.Invalidate(ctx)

	s.activities.Record(ctx, domain.ActivityTargetCustomer, id,
		"Customer deleted", fmt.Sprintf("Customer '%s' was deleted", customer.Name))
	return nil
}

func (s *CustomerService) List(ctx context.Context, page, pageSize int, search string) (*domain.PaginatedResponse, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}
	page, pageSize = clampPage(page, pageSize)

	customers, total, err := s.customerRepo.List(ctx, page, pageSize, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	dtos := make([]domain.CustomerDTO, len(customers))
	for i := range customers {
		dtos[i] = mapper.ToCustomerDTO(&customers[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *CustomerService) get(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	if _, err := requireAccount(ctx); err != nil {
		return nil, err
	}
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return customer, nil
}

// clampPage applies the list defaults: page 1, 20 per page, at most 200
func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > repository.MaxPageSize {
		pageSize = repository.MaxPageSize
	}
	return page, pageSize
}

func paginated(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

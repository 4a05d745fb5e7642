// Package testutil holds database and fixture helpers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/straye-as/quotebook-api/internal/auth"
	"github.com/straye-as/quotebook-api/internal/database"
	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/mapper"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&_foreign_keys=on", uuid.NewString())
	db, err := database.Open(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// AccountContext returns a context authenticated as a fresh account
func AccountContext() (context.Context, uuid.UUID) {
	accountID := uuid.New()
	return auth.WithAccountContext(context.Background(), &auth.AccountContext{
		AccountID:   accountID,
		Email:       gofakeit.Email(),
		DisplayName: gofakeit.Name(),
		Method:      auth.MethodBearer,
		TokenID:     uuid.NewString(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}), accountID
}

// CreateTestCustomer inserts a customer owned by accountID
func CreateTestCustomer(t *testing.T, db *gorm.DB, accountID uuid.UUID, name string) *domain.Customer {
	t.Helper()
	if name == "" {
		name = gofakeit.Company()
	}
	customer := &domain.Customer{
		AccountID: accountID,
		Name:      name,
		Email:     gofakeit.Email(),
		Phone:     gofakeit.Phone(),
		Address:   gofakeit.Street(),
		Company:   gofakeit.Company(),
	}
	require.NoError(t, db.Omit(clause.Associations).Create(customer).Error)
	return customer
}

// CreateTestQuotation inserts a quotation without going through numbering
func CreateTestQuotation(t *testing.T, db *gorm.DB, customer *domain.Customer, number string, status domain.QuotationStatus, amount float64) *domain.Quotation {
	t.Helper()
	items, err := mapper.EncodeItems(nil)
	require.NoError(t, err)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	quotation := &domain.Quotation{
		AccountID:       customer.AccountID,
		QuotationNumber: number,
		CustomerID:      customer.ID,
		Amount:          decimal.NewFromFloat(amount),
		Status:          status,
		Date:            today,
		ValidUntil:      today.AddDate(0, 0, 30),
		Items:           items,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(quotation).Error)
	return quotation
}

// CreateTestInvoice inserts an invoice without going through numbering
func CreateTestInvoice(t *testing.T, db *gorm.DB, customer *domain.Customer, number string, status domain.InvoiceStatus, amount float64, dueDate time.Time) *domain.Invoice {
	t.Helper()
	items, err := mapper.EncodeItems(nil)
	require.NoError(t, err)

	invoice := &domain.Invoice{
		AccountID:     customer.AccountID,
		InvoiceNumber: number,
		CustomerID:    customer.ID,
		Amount:        decimal.NewFromFloat(amount),
		Status:        status,
		Date:          dueDate.AddDate(0, 0, -30),
		DueDate:       dueDate,
		Items:         items,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(invoice).Error)
	return invoice
}

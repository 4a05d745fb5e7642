package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/straye-as/quotebook-api/internal/domain"
)

func TestQuotationStatus_CanTransitionTo(t *testing.T) {
	all := []domain.QuotationStatus{
		domain.QuotationStatusSave,
		domain.QuotationStatusSent,
		domain.QuotationStatusAccepted,
		domain.QuotationStatusRejected,
		domain.QuotationStatusExpired,
	}
	allowed := map[domain.QuotationStatus][]domain.QuotationStatus{
		domain.QuotationStatusSave:     all,
		domain.QuotationStatusSent:     {domain.QuotationStatusSent, domain.QuotationStatusAccepted, domain.QuotationStatusRejected, domain.QuotationStatusExpired},
		domain.QuotationStatusAccepted: {domain.QuotationStatusAccepted},
		domain.QuotationStatusRejected: {domain.QuotationStatusRejected},
		domain.QuotationStatusExpired:  {domain.QuotationStatusExpired},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
		assert.False(t, from.CanTransitionTo("approved"), "unknown targets are never reachable")
	}
}

func TestQuotationStatus_Predicates(t *testing.T) {
	assert.False(t, domain.QuotationStatus("draft").IsValid())
	assert.True(t, domain.QuotationStatusAccepted.IsTerminal())
	assert.False(t, domain.QuotationStatusSent.IsTerminal())

	assert.True(t, domain.QuotationStatusAccepted.IsConvertible())
	assert.True(t, domain.QuotationStatusSave.IsConvertible())
	assert.False(t, domain.QuotationStatusRejected.IsConvertible())
	assert.False(t, domain.QuotationStatusExpired.IsConvertible())
}

func TestInvoiceStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to domain.InvoiceStatus
		want     bool
	}{
		{domain.InvoiceStatusSave, domain.InvoiceStatusSent, true},
		{domain.InvoiceStatusSave, domain.InvoiceStatusPending, true},
		{domain.InvoiceStatusSave, domain.InvoiceStatusPaid, true},
		{domain.InvoiceStatusSave, domain.InvoiceStatusOverdue, false},
		{domain.InvoiceStatusPending, domain.InvoiceStatusSent, true},
		{domain.InvoiceStatusPending, domain.InvoiceStatusPaid, true},
		{domain.InvoiceStatusPending, domain.InvoiceStatusOverdue, true},
		{domain.InvoiceStatusPending, domain.InvoiceStatusSave, false},
		{domain.InvoiceStatusSent, domain.InvoiceStatusPaid, true},
		{domain.InvoiceStatusSent, domain.InvoiceStatusOverdue, true},
		{domain.InvoiceStatusSent, domain.InvoiceStatusPending, false},
		{domain.InvoiceStatusOverdue, domain.InvoiceStatusPaid, true},
		{domain.InvoiceStatusOverdue, domain.InvoiceStatusSent, false},
		{domain.InvoiceStatusPaid, domain.InvoiceStatusSent, false},
		{domain.InvoiceStatusPaid, domain.InvoiceStatusPaid, true},
		{domain.InvoiceStatusSent, "refunded", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestInvoiceStatus_Predicates(t *testing.T) {
	assert.True(t, domain.InvoiceStatusPaid.IsTerminal())
	assert.False(t, domain.InvoiceStatusOverdue.IsTerminal())

	assert.True(t, domain.InvoiceStatusPending.IsUnpaid())
	assert.False(t, domain.InvoiceStatusSave.IsUnpaid())
	assert.False(t, domain.InvoiceStatusPaid.IsUnpaid())

	assert.True(t, domain.InvoiceStatusSave.CanRemind())
	assert.True(t, domain.InvoiceStatusOverdue.CanRemind())
	assert.False(t, domain.InvoiceStatusPaid.CanRemind())
}

func TestLineItems(t *testing.T) {
	item := domain.NewLineItem("Hosting", decimal.RequireFromString("3"), decimal.RequireFromString("33.333"))
	assert.Equal(t, "100", item.Amount.String())

	total := domain.SumLineItems([]domain.LineItem{
		domain.NewLineItem("Design", decimal.NewFromInt(2), decimal.NewFromInt(500)),
		domain.NewLineItem("Build", decimal.NewFromInt(10), decimal.RequireFromString("145")),
	})
	assert.Equal(t, "2450", total.String())
	assert.True(t, domain.SumLineItems(nil).IsZero())
}

func TestSettingAndDocumentKinds(t *testing.T) {
	assert.True(t, domain.SettingTypeNotifications.IsValid())
	assert.False(t, domain.SettingType("billing").IsValid())
	assert.True(t, domain.DocumentKindInvoice.IsValid())
	assert.False(t, domain.DocumentKind("receipt").IsValid())
	assert.Equal(t, "Validation failed: custom", domain.GetValidationMessage("custom"))
}

package document

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straye-as/quotebook-api/internal/domain"
)

func sampleInvoice() *Document {
	return &Document{
		Kind:     domain.DocumentKindInvoice,
		Purpose:  PurposeDelivery,
		Number:   "INV-001",
		Status:   "sent",
		Date:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:  time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Customer: domain.Customer{BaseModel: domain.BaseModel{ID: uuid.New()}, Name: "Acme Corp", Email: "billing@acme.test"},
		Company:  domain.DefaultCompanySettings(),
		Items: []domain.LineItem{
			domain.NewLineItem("Consulting", decimal.NewFromInt(10), decimal.NewFromInt(245)),
		},
		Amount:   decimal.NewFromInt(2450),
		Notes:    "Thank you for your business!",
		Terms:    "Payment is due within 30 days of invoice date.",
		Currency: "INR",
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	renderer := NewPDFRenderer()

	out, err := renderer.Render(context.Background(), sampleInvoice())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestPDFRenderer_RenderQuotationWithoutItems(t *testing.T) {
	doc := sampleInvoice()
	doc.Kind = domain.DocumentKindQuotation
	doc.Number = "QUO-007"
	doc.ValidUntil = doc.DueDate
	doc.Items = nil

	out, err := NewPDFRenderer().Render(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestPDFRenderer_RenderNil(t *testing.T) {
	_, err := NewPDFRenderer().Render(context.Background(), nil)
	assert.Error(t, err)
}

func TestPDFRenderer_RenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFRenderer().Render(ctx, sampleInvoice())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocument_TitleAndFilename(t *testing.T) {
	doc := sampleInvoice()
	assert.Equal(t, "Invoice", doc.Title())
	assert.Equal(t, "INV-001.pdf", doc.Filename())

	doc.Kind = domain.DocumentKindQuotation
	doc.Number = "QUO/2025/1"
	assert.Equal(t, "Quotation", doc.Title())
	assert.Equal(t, "QUO-2025-1.pdf", doc.Filename())
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "12.50", FormatMoney(decimal.RequireFromString("12.5"), ""))
	assert.Contains(t, FormatMoney(decimal.NewFromInt(2450), "inr"), "INR ")
	assert.Contains(t, FormatMoney(decimal.NewFromInt(5), "XYZ1"), "XYZ1 ")
}

package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straye-as/quotebook-api/internal/domain"
)

func (at *apiTest) createCustomer(name, email string) domain.CustomerDTO {
	at.t.Helper()
	rec := at.do(http.MethodPost, "/customers", domain.CreateCustomerRequest{Name: name, Email: email})
	require.Equal(at.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.CustomerDTO](at.t, rec)
}

func TestQuotationHandler_CreateRequiresCustomers(t *testing.T) {
	at := newAPITest(t)

	rec := at.do(http.MethodPost, "/quotations", domain.CreateQuotationRequest{CustomerID: uuid.New(), Amount: 10})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, strings.ToLower(rec.Body.String()), "no customers available")

	at.createCustomer("Initech", "")
	rec = at.do(http.MethodPost, "/quotations", domain.CreateQuotationRequest{CustomerID: uuid.New(), Amount: 10})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQuotationHandler_CreateValidatesItems(t *testing.T) {
	at := newAPITest(t)
	customer := at.createCustomer("Initech", "")

	rec := at.do(http.MethodPost, "/quotations", domain.CreateQuotationRequest{
		CustomerID: customer.ID,
		Items:      []domain.LineItemRequest{{Description: "Consulting", Quantity: 1, Rate: -5}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[domain.APIError](t, rec).Errors, "items[0].rate")

	rec = at.do(http.MethodPost, "/quotations", map[string]interface{}{
		"customerId": customer.ID,
		"status":     "approved",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[domain.APIError](t, rec).Errors, "status")
}

func TestQuotationHandler_CreateAndConvert(t *testing.T) {
	at := newAPITest(t)
	customer := at.createCustomer("Initech", "ap@initech.test")

	rec := at.do(http.MethodPost, "/quotations", domain.CreateQuotationRequest{
		CustomerID: customer.ID,
		Date:       "2025-03-01",
		Items: []domain.LineItemRequest{
			{Description: "Design", Quantity: 2, Rate: 500},
			{Description: "Build", Quantity: 10, Rate: 145},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	quotation := decode[domain.QuotationDTO](t, rec)
	assert.Equal(t, "QUO-001", quotation.QuotationNumber)
	assert.Equal(t, 2450.0, quotation.Amount)
	assert.Equal(t, domain.QuotationStatusSave, quotation.Status)
	assert.Equal(t, "2025-03-31", quotation.ValidUntil)

	rec = at.do(http.MethodPost, "/quotations/"+quotation.ID.String()+"/convert", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[domain.ConversionResultDTO](t, rec)
	assert.True(t, first.Created)
	assert.Equal(t, "INV-001", first.Invoice.InvoiceNumber)
	assert.Equal(t, 2450.0, first.Invoice.Amount)
	assert.Equal(t, "/api/v1/invoices/"+first.Invoice.ID.String(), rec.Header().Get("Location"))

	rec = at.do(http.MethodPost, "/quotations/"+quotation.ID.String()+"/convert", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[domain.ConversionResultDTO](t, rec)
	assert.False(t, second.Created)
	assert.Equal(t, first.Invoice.ID, second.Invoice.ID)

	rec = at.do(http.MethodPost, "/invoices/"+first.Invoice.ID.String()+"/mark-paid", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode[domain.InvoiceDTO](t, rec)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
	assert.Equal(t, 2450.0, paid.Amount)
}

func TestQuotationHandler_StatusTransitions(t *testing.T) {
	at := newAPITest(t)
	customer := at.createCustomer("Initech", "")

	rec := at.do(http.MethodPost, "/quotations", domain.CreateQuotationRequest{CustomerID: customer.ID, Amount: 300, Status: domain.QuotationStatusSent})
	require.Equal(t, http.StatusCreated, rec.Code)
	quotation := decode[domain.QuotationDTO](t, rec)
	path := "/quotations/" + quotation.ID.String() + "/status"

	rec = at.do(http.MethodPut, path, domain.UpdateQuotationStatusRequest{Status: domain.QuotationStatusRejected})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.QuotationStatusRejected, decode[domain.QuotationDTO](t, rec).Status)

	rec = at.do(http.MethodPut, path, domain.UpdateQuotationStatusRequest{Status: domain.QuotationStatusAccepted})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = at.do(http.MethodPost, "/quotations/"+quotation.ID.String()+"/convert", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "rejected quotations are not convertible")
}

func TestQuotationHandler_SendAndPDF(t *testing.T) {
	at := newAPITest(t)
	withEmail := at.createCustomer("Initech", "ap@initech.test")
	withoutEmail := at.createCustomer("Hooli", "")

	rec := at.do(http.MethodPost, "/quotations", domain.CreateQuotationRequest{CustomerID: withEmail.ID, Amount: 120})
	require.Equal(t, http.StatusCreated, rec.Code)
	quotation := decode[domain.QuotationDTO](t, rec)

	rec = at.do(http.MethodPost, "/quotations/"+quotation.ID.String()+"/send", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.QuotationStatusSent, decode[domain.QuotationDTO](t, rec).Status)
	assert.Equal(t, 1, at.mailer.sent)

	rec = at.do(http.MethodGet, "/quotations/"+quotation.ID.String()+"/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="QUO-001.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-stub QUO-001", rec.Body.String())

	rec = at.do(http.MethodPost, "/quotations", domain.CreateQuotationRequest{CustomerID: withoutEmail.ID, Amount: 80})
	require.Equal(t, http.StatusCreated, rec.Code)
	unreachable := decode[domain.QuotationDTO](t, rec)

	rec = at.do(http.MethodPost, "/quotations/"+unreachable.ID.String()+"/send", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = at.do(http.MethodPost, "/quotations/"+unreachable.ID.String()+"/send", domain.SendDocumentRequest{Email: "cfo@hooli.test"})
	assert.Equal(t, http.StatusOK, rec.Code, "an explicit recipient overrides the missing customer email")
}

func TestQuotationHandler_ListFilters(t *testing.T) {
	at := newAPITest(t)
	initech := at.createCustomer("Initech", "")
	hooli := at.createCustomer("Hooli", "")

	for _, req := range []domain.CreateQuotationRequest{
		{CustomerID: initech.ID, Amount: 100},
		{CustomerID: initech.ID, Amount: 200, Status: domain.QuotationStatusSent},
		{CustomerID: hooli.ID, Amount: 300},
	} {
		rec := at.do(http.MethodPost, "/quotations", req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	type page struct {
		Data  []domain.QuotationDTO `json:"data"`
		Total int64                 `json:"total"`
	}

	rec := at.do(http.MethodGet, "/quotations?search=hooli", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[page](t, rec).Total)

	rec = at.do(http.MethodGet, "/quotations?status=sent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[page](t, rec).Total)

	rec = at.do(http.MethodGet, "/quotations?customerId="+initech.ID.String()+"&sortBy=amount&sortOrder=asc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[page](t, rec)
	require.Len(t, result.Data, 2)
	assert.Equal(t, 100.0, result.Data[0].Amount)

	rec = at.do(http.MethodGet, "/quotations?customerId=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = at.do(http.MethodGet, "/quotations/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[domain.QuotationStatsDTO](t, rec)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 1, stats.SentCount)
	assert.EqualValues(t, 2, stats.DraftCount)
}

func TestInvoiceHandler_PaymentFlow(t *testing.T) {
	at := newAPITest(t)
	customer := at.createCustomer("Initech", "ap@initech.test")

	rec := at.do(http.MethodPost, "/invoices", domain.CreateInvoiceRequest{
		CustomerID: customer.ID,
		Amount:     1000,
		Date:       "2025-01-15",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	invoice := decode[domain.InvoiceDTO](t, rec)
	assert.Equal(t, "INV-001", invoice.InvoiceNumber)
	assert.Equal(t, "2025-02-14", invoice.DueDate)
	base := "/invoices/" + invoice.ID.String()

	rec = at.do(http.MethodPost, base+"/send", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.InvoiceStatusSent, decode[domain.InvoiceDTO](t, rec).Status)

	rec = at.do(http.MethodPost, base+"/reminder", domain.SendDocumentRequest{Message: "Friendly nudge"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.InvoiceStatusSent, decode[domain.InvoiceDTO](t, rec).Status)
	assert.Equal(t, 2, at.mailer.sent)

	rec = at.do(http.MethodPost, base+"/mark-paid", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode[domain.InvoiceDTO](t, rec)
	assert.Equal(t, domain.InvoiceStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
	assert.Equal(t, 1000.0, paid.Amount)

	rec = at.do(http.MethodPost, base+"/reminder", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = at.do(http.MethodPut, base+"/status", domain.UpdateInvoiceStatusRequest{Status: domain.InvoiceStatusSent})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = at.do(http.MethodGet, "/invoices/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1000.0, decode[domain.InvoiceStatsDTO](t, rec).PaidAmount)

	rec = at.do(http.MethodGet, base+"/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="INV-001.pdf"`, rec.Header().Get("Content-Disposition"))

	rec = at.do(http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = at.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvoiceHandler_CreateForInvoicedQuotation(t *testing.T) {
	at := newAPITest(t)
	customer := at.createCustomer("Initech", "")

	rec := at.do(http.MethodPost, "/quotations", domain.CreateQuotationRequest{CustomerID: customer.ID, Amount: 50})
	require.Equal(t, http.StatusCreated, rec.Code)
	quotation := decode[domain.QuotationDTO](t, rec)

	rec = at.do(http.MethodPost, "/quotations/"+quotation.ID.String()+"/convert", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = at.do(http.MethodPost, "/invoices", domain.CreateInvoiceRequest{CustomerID: customer.ID, QuotationID: &quotation.ID, Amount: 50})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/service"
)

// InvoiceHandler serves invoices, payments and reminders
type InvoiceHandler struct {
	invoiceService  *service.InvoiceService
	documentService *service.DocumentService
	logger          *zap.Logger
}

func NewInvoiceHandler(invoiceService *service.InvoiceService, documentService *service.DocumentService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService:  invoiceService,
		documentService: documentService,
		logger:          logger,
	}
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Case-insensitive match on number, customer name or id"
// @Param status query string false "Filter by status" Enums(save, sent, pending, paid, overdue)
// @Param customerId query string false "Filter by customer" format(uuid)
// @Param sortBy query string false "Sort field" Enums(createdAt, date, dueDate, amount, invoiceNumber)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.InvoiceDTO}
// @Failure 400 {object} domain.ErrorResponse
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	filters, sort, ok := documentQuery(w, r)
	if !ok {
		return
	}

	result, err := h.invoiceService.List(r.Context(), page, pageSize, filters, sort)
	if err != nil {
		respondServiceError(w, h.logger, err, "list invoices")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Stats godoc
// @Summary Invoice summary
// @Tags Invoices
// @Produce json
// @Success 200 {object} domain.InvoiceStatsDTO
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/stats [get]
func (h *InvoiceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.invoiceService.Stats(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "compute invoice stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetByID godoc
// @Summary Get invoice by ID
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Success 200 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invoice")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get invoice")
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

// Create godoc
// @Summary Create invoice
// @Description Numbers the invoice, computes its amount from the line items and defaults the due date
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body domain.CreateInvoiceRequest true "Invoice data"
// @Success 201 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.ErrorResponse "Customer or quotation not found"
// @Failure 409 {object} domain.ErrorResponse "Quotation already invoiced"
// @Failure 422 {object} domain.ErrorResponse "No customers exist yet"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [post]
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateInvoiceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	invoice, err := h.invoiceService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create invoice")
		return
	}

	w.Header().Set("Location", "/api/v1/invoices/"+invoice.ID.String())
	respondJSON(w, http.StatusCreated, invoice)
}

// UpdateStatus godoc
// @Summary Change invoice status
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Param request body domain.UpdateInvoiceStatusRequest true "Target status"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Transition not allowed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/status [put]
func (h *InvoiceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invoice")
	if !ok {
		return
	}
	var req domain.UpdateInvoiceStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	invoice, err := h.invoiceService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondServiceError(w, h.logger, err, "update invoice status")
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

// MarkPaid godoc
// @Summary Mark invoice as paid
// @Description Sets the status to paid and stamps paidAt. No other field changes.
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Success 200 {object} domain.InvoiceDTO
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Invoice cannot be paid from its status"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/mark-paid [post]
func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invoice")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.MarkAsPaid(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "mark invoice as paid")
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

// Delete godoc
// @Summary Delete invoice
// @Tags Invoices
// @Param id path string true "Invoice ID" format(uuid)
// @Success 204 "No Content"
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invoice")
	if !ok {
		return
	}
	if err := h.invoiceService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete invoice")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Send godoc
// @Summary Email invoice to the customer
// @Description Mails the PDF, archives it and moves a save or pending invoice to sent
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Param request body domain.SendDocumentRequest false "Optional recipient override and message"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 404 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse "Customer has no email"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/send [post]
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invoice")
	if !ok {
		return
	}
	var req domain.SendDocumentRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	invoice, err := h.documentService.SendInvoice(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "send invoice")
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

// Reminder godoc
// @Summary Send a payment reminder
// @Description Mails a reminder with the invoice attached. The status is unchanged.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID" format(uuid)
// @Param request body domain.SendDocumentRequest false "Optional recipient override and message"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Invoice is paid"
// @Failure 422 {object} domain.ErrorResponse "Customer has no email"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/reminder [post]
func (h *InvoiceHandler) Reminder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invoice")
	if !ok {
		return
	}
	var req domain.SendDocumentRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	invoice, err := h.documentService.SendReminder(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "send payment reminder")
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

// PDF godoc
// @Summary Download invoice PDF
// @Tags Invoices
// @Produce application/pdf
// @Param id path string true "Invoice ID" format(uuid)
// @Success 200 {file} binary
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/pdf [get]
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "invoice")
	if !ok {
		return
	}
	rendered, err := h.documentService.InvoicePDF(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "render invoice")
		return
	}
	respondPDF(w, rendered.Filename, rendered.Content)
}

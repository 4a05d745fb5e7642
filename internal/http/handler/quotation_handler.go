package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/service"
)

// QuotationHandler serves quotations, their lifecycle and their conversion to invoices
type QuotationHandler struct {
	quotationService *service.QuotationService
	invoiceService   *service.InvoiceService
	documentService  *service.DocumentService
	logger           *zap.Logger
}

func NewQuotationHandler(
	quotationService *service.QuotationService,
	invoiceService *service.InvoiceService,
	documentService *service.DocumentService,
	logger *zap.Logger,
) *QuotationHandler {
	return &QuotationHandler{
		quotationService: quotationService,
		invoiceService:   invoiceService,
		documentService:  documentService,
		logger:           logger,
	}
}

// List godoc
// @Summary List quotations
// @Tags Quotations
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Case-insensitive match on number, customer name or id"
// @Param status query string false "Filter by status" Enums(save, sent, accepted, rejected, expired)
// @Param customerId query string false "Filter by customer" format(uuid)
// @Param sortBy query string false "Sort field" Enums(createdAt, date, validUntil, amount, quotationNumber)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.QuotationDTO}
// @Failure 400 {object} domain.ErrorResponse
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations [get]
func (h *QuotationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	filters, sort, ok := documentQuery(w, r)
	if !ok {
		return
	}

	result, err := h.quotationService.List(r.Context(), page, pageSize, filters, sort)
	if err != nil {
		respondServiceError(w, h.logger, err, "list quotations")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Stats godoc
// @Summary Quotation summary
// @Tags Quotations
// @Produce json
// @Success 200 {object} domain.QuotationStatsDTO
// @Failure 401 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/stats [get]
func (h *QuotationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.quotationService.Stats(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "compute quotation stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetByID godoc
// @Summary Get quotation by ID
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID" format(uuid)
// @Success 200 {object} domain.QuotationDTO
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id} [get]
func (h *QuotationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "quotation")
	if !ok {
		return
	}
	quotation, err := h.quotationService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "get quotation")
		return
	}
	respondJSON(w, http.StatusOK, quotation)
}

// Create godoc
// @Summary Create quotation
// @Description Numbers the quotation and computes its amount from the line items
// @Tags Quotations
// @Accept json
// @Produce json
// @Param request body domain.CreateQuotationRequest true "Quotation data"
// @Success 201 {object} domain.QuotationDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.ErrorResponse "Customer not found"
// @Failure 422 {object} domain.ErrorResponse "No customers exist yet"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations [post]
func (h *QuotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateQuotationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	quotation, err := h.quotationService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "create quotation")
		return
	}

	w.Header().Set("Location", "/api/v1/quotations/"+quotation.ID.String())
	respondJSON(w, http.StatusCreated, quotation)
}

// UpdateStatus godoc
// @Summary Change quotation status
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID" format(uuid)
// @Param request body domain.UpdateQuotationStatusRequest true "Target status"
// @Success 200 {object} domain.QuotationDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Transition not allowed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id}/status [put]
func (h *QuotationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "quotation")
	if !ok {
		return
	}
	var req domain.UpdateQuotationStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	quotation, err := h.quotationService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondServiceError(w, h.logger, err, "update quotation status")
		return
	}
	respondJSON(w, http.StatusOK, quotation)
}

// Delete godoc
// @Summary Delete quotation
// @Description An invoice converted from the quotation keeps existing without the link
// @Tags Quotations
// @Param id path string true "Quotation ID" format(uuid)
// @Success 204 "No Content"
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id} [delete]
func (h *QuotationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "quotation")
	if !ok {
		return
	}
	if err := h.quotationService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "delete quotation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Convert godoc
// @Summary Convert quotation to invoice
// @Description Returns 201 with the new invoice, or 200 with the invoice created by an earlier conversion
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID" format(uuid)
// @Success 200 {object} domain.ConversionResultDTO "Already converted"
// @Success 201 {object} domain.ConversionResultDTO
// @Failure 404 {object} domain.ErrorResponse
// @Failure 409 {object} domain.ErrorResponse "Quotation is rejected or expired"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id}/convert [post]
func (h *QuotationHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "quotation")
	if !ok {
		return
	}

	result, err := h.invoiceService.ConvertFromQuotation(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "convert quotation")
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
		w.Header().Set("Location", "/api/v1/invoices/"+result.Invoice.ID.String())
	}
	respondJSON(w, status, result)
}

// Send godoc
// @Summary Email quotation to the customer
// @Description Mails the PDF, archives it and moves a draft to sent
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID" format(uuid)
// @Param request body domain.SendDocumentRequest false "Optional recipient override and message"
// @Success 200 {object} domain.QuotationDTO
// @Failure 404 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse "Customer has no email"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id}/send [post]
func (h *QuotationHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "quotation")
	if !ok {
		return
	}
	var req domain.SendDocumentRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	quotation, err := h.documentService.SendQuotation(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "send quotation")
		return
	}
	respondJSON(w, http.StatusOK, quotation)
}

// PDF godoc
// @Summary Download quotation PDF
// @Tags Quotations
// @Produce application/pdf
// @Param id path string true "Quotation ID" format(uuid)
// @Success 200 {file} binary
// @Failure 404 {object} domain.ErrorResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id}/pdf [get]
func (h *QuotationHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "quotation")
	if !ok {
		return
	}
	rendered, err := h.documentService.QuotationPDF(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "render quotation")
		return
	}
	respondPDF(w, rendered.Filename, rendered.Content)
}

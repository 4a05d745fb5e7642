package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/service"
)

// looseEmail accepts anything shaped like local@domain.tld
var looseEmail = regexp.MustCompile(`^\S+@\S+\.\S+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("loose_email", func(fl validator.FieldLevel) bool {
		return looseEmail.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fieldPath(fe)] = formatValidationError(fe)
		}
	}

	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fields,
	})
}

// fieldPath drops the struct name from the namespace, e.g. items[0].rate
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// respondServiceError maps service errors to HTTP status codes. Anything
// unrecognised is logged and reported as a 500.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, action string) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		logger.Error("failed to "+action, zap.Error(err))
		message = "Failed to " + action
	}
	respondError(w, status, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, service.ErrCustomerNotFound):
		return http.StatusNotFound, "Customer not found"
	case errors.Is(err, service.ErrQuotationNotFound):
		return http.StatusNotFound, "Quotation not found"
	case errors.Is(err, service.ErrInvoiceNotFound):
		return http.StatusNotFound, "Invoice not found"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrNoCustomers):
		return http.StatusUnprocessableEntity, "No customers available. Create a customer before creating quotations or invoices"
	case errors.Is(err, service.ErrMissingRecipient):
		return http.StatusUnprocessableEntity, "The customer has no email address"
	case errors.Is(err, service.ErrInvalidStatusTransition),
		errors.Is(err, service.ErrQuotationNotConvertible),
		errors.Is(err, service.ErrReminderNotAllowed):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrCustomerInUse):
		return http.StatusConflict, "Customer is referenced by quotations or invoices"
	case errors.Is(err, service.ErrQuotationAlreadyInvoiced):
		return http.StatusConflict, "Quotation has already been invoiced"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "Conflicting update, please retry"
	case errors.Is(err, service.ErrInvalidSettingType):
		return http.StatusBadRequest, "Unknown settings type. Valid values: company, invoice, notifications"
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, ""
	}
}

// parseID reads a UUID path parameter and answers 400 when it is malformed
func parseID(w http.ResponseWriter, r *http.Request, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s ID format", what))
		return uuid.Nil, false
	}
	return id, true
}

// decodeAndValidate decodes the JSON body into dst and runs the struct validation
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// decodeOptional is decodeAndValidate for endpoints whose body may be empty
func decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	return decodeAndValidate(w, r, dst)
}

func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

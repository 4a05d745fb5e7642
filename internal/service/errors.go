package service

import "errors"

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when the request carries no account
	ErrUnauthorized = errors.New("unauthorized")
)

// Customer errors
var (
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrCustomerInUse is returned when deleting a customer that documents still reference
	ErrCustomerInUse = errors.New("customer is referenced by quotations or invoices")

	// ErrNoCustomers is returned when creating a document for an account without customers
	ErrNoCustomers = errors.New("no customers available")
)

// Document errors
var (
	ErrQuotationNotFound = errors.New("quotation not found")
	ErrInvoiceNotFound   = errors.New("invoice not found")

	// ErrInvalidStatusTransition is returned when the requested status is not reachable
	// from the current one, or the document changed concurrently
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrQuotationNotConvertible is returned when converting a rejected or expired quotation
	ErrQuotationNotConvertible = errors.New("quotation cannot be converted to an invoice")

	// ErrQuotationAlreadyInvoiced is returned when an invoice is created manually for a
	// quotation that already has one
	ErrQuotationAlreadyInvoiced = errors.New("quotation already has an invoice")

	// ErrMissingRecipient is returned when a document is sent to a customer without email
	ErrMissingRecipient = errors.New("no recipient email address")

	// ErrReminderNotAllowed is returned when reminding a paid invoice
	ErrReminderNotAllowed = errors.New("reminders can only be sent for unpaid invoices")
)

// Settings errors
var (
	ErrInvalidSettingType = errors.New("invalid setting type")
)

package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// DTOs for API responses

type CustomerDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Company   string    `json:"company,omitempty"`
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
}

type LineItemDTO struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

type QuotationDTO struct {
	ID              uuid.UUID       `json:"id"`
	QuotationNumber string          `json:"quotationNumber"`
	CustomerID      uuid.UUID       `json:"customerId"`
	Customer        *CustomerDTO    `json:"customer,omitempty"`
	Amount          float64         `json:"amount"`
	Status          QuotationStatus `json:"status"`
	Date            string          `json:"date"`
	ValidUntil      string          `json:"validUntil"`
	Items           []LineItemDTO   `json:"items"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

type InvoiceDTO struct {
	ID            uuid.UUID     `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	CustomerID    uuid.UUID     `json:"customerId"`
	Customer      *CustomerDTO  `json:"customer,omitempty"`
	QuotationID   *uuid.UUID    `json:"quotationId,omitempty"`
	Amount        float64       `json:"amount"`
	Status        InvoiceStatus `json:"status"`
	Date          string        `json:"date"`
	DueDate       string        `json:"dueDate"`
	PaidAt        *string       `json:"paidAt,omitempty"`
	Items         []LineItemDTO `json:"items"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
}

// ConversionResultDTO reports the invoice derived from a quotation and whether it is new
type ConversionResultDTO struct {
	Invoice InvoiceDTO `json:"invoice"`
	Created bool       `json:"created"`
}

type ActivityDTO struct {
	ID         uuid.UUID          `json:"id"`
	TargetType ActivityTargetType `json:"targetType"`
	TargetID   uuid.UUID          `json:"targetId"`
	Title      string             `json:"title"`
	Body       string             `json:"body,omitempty"`
	OccurredAt string             `json:"occurredAt"`
}

// QuotationStatsDTO summarises an account's quotations
type QuotationStatsDTO struct {
	Total         int64   `json:"total"`
	AcceptedValue float64 `json:"acceptedValue"`
	SentCount     int64   `json:"sentCount"`
	DraftCount    int64   `json:"draftCount"`
}

// InvoiceStatsDTO summarises an account's invoices
type InvoiceStatsDTO struct {
	Total            int64   `json:"total"`
	PaidAmount       float64 `json:"paidAmount"`
	OutstandingValue float64 `json:"outstandingValue"`
	OverdueAmount    float64 `json:"overdueAmount"`
	DraftCount       int64   `json:"draftCount"`
}

// WorkspaceDTO is the full per-account snapshot of all collections
type WorkspaceDTO struct {
	Customers      []CustomerDTO     `json:"customers"`
	Quotations     []QuotationDTO    `json:"quotations"`
	Invoices       []InvoiceDTO      `json:"invoices"`
	QuotationStats QuotationStatsDTO `json:"quotationStats"`
	InvoiceStats   InvoiceStatsDTO   `json:"invoiceStats"`
}

// SettingDTO is one configuration document
type SettingDTO struct {
	Type      SettingType     `json:"type"`
	Value     json.RawMessage `json:"value"`
	IsDefault bool            `json:"isDefault"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
}

// SettingsDTO holds all configuration documents of an account
type SettingsDTO struct {
	Company       SettingDTO `json:"company"`
	Invoice       SettingDTO `json:"invoice"`
	Notifications SettingDTO `json:"notifications"`
}

// AccountDTO describes the authenticated account
type AccountDTO struct {
	AccountID   uuid.UUID `json:"accountId"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	AuthMethod  string    `json:"authMethod"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Pagination
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Request DTOs

type CreateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email,omitempty" validate:"omitempty,loose_email,max=255"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
	Address string `json:"address,omitempty" validate:"max=500"`
	Company string `json:"company,omitempty" validate:"max=200"`
}

type UpdateCustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email,omitempty" validate:"omitempty,loose_email,max=255"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
	Address string `json:"address,omitempty" validate:"max=500"`
	Company string `json:"company,omitempty" validate:"max=200"`
}

type LineItemRequest struct {
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
}

type CreateQuotationRequest struct {
	CustomerID uuid.UUID         `json:"customerId" validate:"required"`
	Amount     float64           `json:"amount,omitempty" validate:"gte=0"`
	Status     QuotationStatus   `json:"status,omitempty" validate:"omitempty,oneof=save sent accepted rejected expired"`
	Date       string            `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ValidUntil string            `json:"validUntil,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Items      []LineItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
	Notes      string            `json:"notes,omitempty" validate:"max=5000"`
}

type CreateInvoiceRequest struct {
	CustomerID  uuid.UUID         `json:"customerId" validate:"required"`
	QuotationID *uuid.UUID        `json:"quotationId,omitempty"`
	Amount      float64           `json:"amount,omitempty" validate:"gte=0"`
	Status      InvoiceStatus     `json:"status,omitempty" validate:"omitempty,oneof=save sent pending paid overdue"`
	Date        string            `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DueDate     string            `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Items       []LineItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
	Notes       string            `json:"notes,omitempty" validate:"max=5000"`
}

type UpdateQuotationStatusRequest struct {
	Status QuotationStatus `json:"status" validate:"required,oneof=save sent accepted rejected expired"`
}

type UpdateInvoiceStatusRequest struct {
	Status InvoiceStatus `json:"status" validate:"required,oneof=save sent pending paid overdue"`
}

// SendDocumentRequest optionally overrides the recipient address
type SendDocumentRequest struct {
	Email   string `json:"email,omitempty" validate:"omitempty,loose_email"`
	Message string `json:"message,omitempty" validate:"max=2000"`
}

// CompanySettings is the company profile printed on documents
type CompanySettings struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Website   string `json:"website"`
	TaxNumber string `json:"taxNumber"`
	Logo      string `json:"logo"`
}

// InvoiceSettings holds numbering and currency preferences
type InvoiceSettings struct {
	Prefix          string `json:"prefix"`
	QuotationPrefix string `json:"quotationPrefix"`
	DefaultTerms    string `json:"defaultTerms"`
	DefaultNotes    string `json:"defaultNotes"`
	Currency        string `json:"currency"`
}

// NotificationSettings holds notification preferences
type NotificationSettings struct {
	EmailNotifications bool `json:"emailNotifications"`
	PaymentReminders   bool `json:"paymentReminders"`
	ReminderDays       int  `json:"reminderDays"`
}

// DefaultCompanySettings returns the company profile used before one is saved
func DefaultCompanySettings() CompanySettings {
	return CompanySettings{
		Name:      "Your Company Name",
		Email:     "info@yourcompany.com",
		Phone:     "+91 98765 43210",
		Address:   "123 Business Street, City, State 12345",
		Website:   "www.yourcompany.com",
		TaxNumber: "GSTIN123456789",
		Logo:      "",
	}
}

// DefaultInvoiceSettings returns the numbering preferences used before they are saved
func DefaultInvoiceSettings() InvoiceSettings {
	return InvoiceSettings{
		Prefix:          "INV",
		QuotationPrefix: "QUO",
		DefaultTerms:    "Payment is due within 30 days of invoice date.",
		DefaultNotes:    "Thank you for your business!",
		Currency:        "INR",
	}
}

// DefaultNotificationSettings returns the notification preferences used before they are saved
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		EmailNotifications: false,
		PaymentReminders:   false,
		ReminderDays:       3,
	}
}

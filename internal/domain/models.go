package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns an identity when the caller did not supply one
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Customer is a person or organisation the account does business with
type Customer struct {
	BaseModel
	AccountID uuid.UUID `gorm:"type:varchar(36);not null;index;column:account_id"`
	Name      string    `gorm:"type:varchar(200);not null;index"`
	Email     string    `gorm:"type:varchar(255)"`
	Phone     string    `gorm:"type:varchar(50)"`
	Address   string    `gorm:"type:varchar(500)"`
	Company   string    `gorm:"type:varchar(200)"`
}

// Quotation is a proposed sale sent to a customer before work is agreed
type Quotation struct {
	BaseModel
	AccountID       uuid.UUID       `gorm:"type:varchar(36);not null;index;column:account_id;uniqueIndex:idx_quotations_account_number,priority:1"`
	QuotationNumber string          `gorm:"type:varchar(50);not null;column:quotation_number;uniqueIndex:idx_quotations_account_number,priority:2"`
	CustomerID      uuid.UUID       `gorm:"type:varchar(36);not null;index;column:customer_id"`
	Customer        *Customer       `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Status          QuotationStatus `gorm:"type:varchar(20);not null;default:'save';index"`
	Date            time.Time       `gorm:"type:date;not null"`
	ValidUntil      time.Time       `gorm:"type:date;not null;column:valid_until"`
	Items           datatypes.JSON  `gorm:"column:items"`
	Notes           string          `gorm:"type:text"`
}

// Invoice is a billing document, optionally derived from a quotation
type Invoice struct {
	BaseModel
	AccountID     uuid.UUID       `gorm:"type:varchar(36);not null;index;column:account_id;uniqueIndex:idx_invoices_account_number,priority:1"`
	InvoiceNumber string          `gorm:"type:varchar(50);not null;column:invoice_number;uniqueIndex:idx_invoices_account_number,priority:2"`
	CustomerID    uuid.UUID       `gorm:"type:varchar(36);not null;index;column:customer_id"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	QuotationID   *uuid.UUID      `gorm:"type:varchar(36);uniqueIndex;column:quotation_id"`
	Quotation     *Quotation      `gorm:"foreignKey:QuotationID;constraint:OnDelete:SET NULL"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Status        InvoiceStatus   `gorm:"type:varchar(20);not null;default:'save';index"`
	Date          time.Time       `gorm:"type:date;not null"`
	DueDate       time.Time       `gorm:"type:date;not null;index;column:due_date"`
	PaidAt        *time.Time      `gorm:"column:paid_at"`
	Items         datatypes.JSON  `gorm:"column:items"`
	Notes         string          `gorm:"type:text"`
}

// LineItem is one billable row of a quotation or invoice
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// DocumentKind names the numbered document types
type DocumentKind string

const (
	DocumentKindQuotation DocumentKind = "quotation"
	DocumentKindInvoice   DocumentKind = "invoice"
)

// IsValid checks if the document kind is a known kind
func (k DocumentKind) IsValid() bool {
	return k == DocumentKindQuotation || k == DocumentKindInvoice
}

// NumberSequence tracks the last document number issued per account and kind
type NumberSequence struct {
	ID         uint         `gorm:"primaryKey;autoIncrement"`
	AccountID  uuid.UUID    `gorm:"type:varchar(36);not null;column:account_id;uniqueIndex:idx_number_sequences_account_kind,priority:1"`
	Kind       DocumentKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_number_sequences_account_kind,priority:2"`
	LastNumber int          `gorm:"not null;default:0;column:last_number"`
	UpdatedAt  time.Time    `gorm:"not null"`
}

func (NumberSequence) TableName() string {
	return "number_sequences"
}

// SettingType tags one of the per-account configuration documents
type SettingType string

const (
	SettingTypeCompany       SettingType = "company"
	SettingTypeInvoice       SettingType = "invoice"
	SettingTypeNotifications SettingType = "notifications"
)

// IsValid checks if the setting type is a known type
func (t SettingType) IsValid() bool {
	switch t {
	case SettingTypeCompany, SettingTypeInvoice, SettingTypeNotifications:
		return true
	}
	return false
}

// Setting stores one free-form configuration document per account and type
type Setting struct {
	BaseModel
	AccountID uuid.UUID      `gorm:"type:varchar(36);not null;column:account_id;uniqueIndex:idx_settings_account_type,priority:1"`
	Type      SettingType    `gorm:"type:varchar(50);not null;uniqueIndex:idx_settings_account_type,priority:2"`
	Value     datatypes.JSON `gorm:"not null"`
}

// ActivityTargetType represents the type of entity an activity is associated with
type ActivityTargetType string

const (
	ActivityTargetCustomer  ActivityTargetType = "Customer"
	ActivityTargetQuotation ActivityTargetType = "Quotation"
	ActivityTargetInvoice   ActivityTargetType = "Invoice"
	ActivityTargetSetting   ActivityTargetType = "Setting"
)

// Activity is an entry in the account's event timeline
type Activity struct {
	BaseModel
	AccountID  uuid.UUID          `gorm:"type:varchar(36);not null;index;column:account_id"`
	TargetType ActivityTargetType `gorm:"type:varchar(50);not null;index;column:target_type"`
	TargetID   uuid.UUID          `gorm:"type:varchar(36);not null;index;column:target_id"`
	Title      string             `gorm:"type:varchar(200);not null"`
	Body       string             `gorm:"type:varchar(2000)"`
	OccurredAt time.Time          `gorm:"not null;column:occurred_at"`
}

package document

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/straye-as/quotebook-api/internal/domain"
)

// Purpose tells the renderer and the mailer why a document is produced
type Purpose string

const (
	PurposeDelivery Purpose = "delivery"
	PurposeReminder Purpose = "reminder"
)

// Document is the printable view of a quotation or invoice
type Document struct {
	Kind       domain.DocumentKind
	Purpose    Purpose
	Number     string
	Status     string
	Date       time.Time
	ValidUntil time.Time // quotations only
	DueDate    time.Time // invoices only
	Customer   domain.Customer
	Company    domain.CompanySettings
	Items      []domain.LineItem
	Amount     decimal.Decimal
	Notes      string
	Terms      string
	Currency   string
	Message    string
}

// Title is the heading printed on the document and used as mail subject prefix
func (d *Document) Title() string {
	if d.Kind == domain.DocumentKindInvoice {
		return "Invoice"
	}
	return "Quotation"
}

// Filename is the attachment and archive name
func (d *Document) Filename() string {
	number := strings.TrimSpace(d.Number)
	if number == "" {
		number = string(d.Kind)
	}
	return strings.ReplaceAll(number, "/", "-") + ".pdf"
}

// Renderer turns a document into bytes
type Renderer interface {
	Render(ctx context.Context, doc *Document) ([]byte, error)
}

// FormatMoney prints an amount with thousands separators and the ISO currency code.
// Unknown codes are printed as given.
func FormatMoney(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if unit, err := currency.ParseISO(code); err == nil {
		code = unit.String()
	}
	p := message.NewPrinter(language.English)
	value := p.Sprintf("%.2f", amount.Round(2).InexactFloat64())
	if code == "" {
		return value
	}
	return code + " " + value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02 Jan 2006")
}

package mapper

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/straye-as/quotebook-api/internal/domain"
	"gorm.io/datatypes"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

// ToCustomerDTO converts Customer to CustomerDTO
func ToCustomerDTO(customer *domain.Customer) domain.CustomerDTO {
	return domain.CustomerDTO{
		ID:        customer.ID,
		Name:      customer.Name,
		Email:     customer.Email,
		Phone:     customer.Phone,
		Address:   customer.Address,
		Company:   customer.Company,
		CreatedAt: customer.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt: customer.UpdatedAt.UTC().Format(timestampLayout),
	}
}

// ToQuotationDTO converts Quotation to QuotationDTO, joining the customer when loaded
func ToQuotationDTO(quotation *domain.Quotation) domain.QuotationDTO {
	dto := domain.QuotationDTO{
		ID:              quotation.ID,
		QuotationNumber: quotation.QuotationNumber,
		CustomerID:      quotation.CustomerID,
		Amount:          quotation.Amount.InexactFloat64(),
		Status:          quotation.Status,
		Date:            quotation.Date.Format(dateLayout),
		ValidUntil:      quotation.ValidUntil.Format(dateLayout),
		Items:           ToLineItemDTOs(ParseItems(quotation.Items)),
		Notes:           quotation.Notes,
		CreatedAt:       quotation.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:       quotation.UpdatedAt.UTC().Format(timestampLayout),
	}
	if quotation.Customer != nil {
		customer := ToCustomerDTO(quotation.Customer)
		dto.Customer = &customer
	}
	return dto
}

// ToInvoiceDTO converts Invoice to InvoiceDTO, joining the customer when loaded
func ToInvoiceDTO(invoice *domain.Invoice) domain.InvoiceDTO {
	dto := domain.InvoiceDTO{
		ID:            invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		CustomerID:    invoice.CustomerID,
		QuotationID:   invoice.QuotationID,
		Amount:        invoice.Amount.InexactFloat64(),
		Status:        invoice.Status,
		Date:          invoice.Date.Format(dateLayout),
		DueDate:       invoice.DueDate.Format(dateLayout),
		Items:         ToLineItemDTOs(ParseItems(invoice.Items)),
		Notes:         invoice.Notes,
		CreatedAt:     invoice.CreatedAt.UTC().Format(timestampLayout),
		UpdatedAt:     invoice.UpdatedAt.UTC().Format(timestampLayout),
	}
	if invoice.PaidAt != nil {
		paidAt := invoice.PaidAt.UTC().Format(timestampLayout)
		dto.PaidAt = &paidAt
	}
	if invoice.Customer != nil {
		customer := ToCustomerDTO(invoice.Customer)
		dto.Customer = &customer
	}
	return dto
}

// ToActivityDTO converts Activity to ActivityDTO
func ToActivityDTO(activity *domain.Activity) domain.ActivityDTO {
	return domain.ActivityDTO{
		ID:         activity.ID,
		TargetType: activity.TargetType,
		TargetID:   activity.TargetID,
		Title:      activity.Title,
		Body:       activity.Body,
		OccurredAt: activity.OccurredAt.UTC().Format(timestampLayout),
	}
}

// ToLineItemDTOs converts line items; the result is never nil
func ToLineItemDTOs(items []domain.LineItem) []domain.LineItemDTO {
	out := make([]domain.LineItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, domain.LineItemDTO{
			Description: item.Description,
			Quantity:    item.Quantity.InexactFloat64(),
			Rate:        item.Rate.InexactFloat64(),
			Amount:      item.Amount.InexactFloat64(),
		})
	}
	return out
}

// ParseItems decodes a stored items column. Anything that is not a JSON array
// yields an empty slice; array elements that are not line item objects are skipped.
// Amounts missing from stored rows are derived from quantity and rate.
func ParseItems(raw datatypes.JSON) []domain.LineItem {
	items := []domain.LineItem{}
	if len(raw) == 0 {
		return items
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return items
	}

	for _, element := range elements {
		if string(element) == "null" {
			continue
		}
		var stored struct {
			Description string           `json:"description"`
			Quantity    decimal.Decimal  `json:"quantity"`
			Rate        decimal.Decimal  `json:"rate"`
			Amount      *decimal.Decimal `json:"amount"`
		}
		if err := json.Unmarshal(element, &stored); err != nil {
			continue
		}
		item := domain.NewLineItem(stored.Description, stored.Quantity, stored.Rate)
		if stored.Amount != nil {
			item.Amount = *stored.Amount
		}
		items = append(items, item)
	}
	return items
}

// EncodeItems serialises line items for storage
func EncodeItems(items []domain.LineItem) (datatypes.JSON, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// ItemsFromRequest converts request rows into line items with computed amounts
func ItemsFromRequest(reqs []domain.LineItemRequest) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, domain.NewLineItem(
			r.Description,
			decimal.NewFromFloat(r.Quantity),
			decimal.NewFromFloat(r.Rate),
		))
	}
	return items
}

// FormatDate renders a calendar date the way the API exposes it
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses an API calendar date as UTC midnight
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// FormatTimestamp renders an instant the way the API exposes it
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

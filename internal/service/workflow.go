package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/straye-as/quotebook-api/internal/domain"
	"github.com/straye-as/quotebook-api/internal/mapper"
)

const (
	defaultDueDays      = 30
	defaultValidityDays = 30
)

// WorkflowConfig holds the date defaults applied to new documents
type WorkflowConfig struct {
	// DueDays is added to an invoice's date when no due date is given
	DueDays int
	// ValidityDays is added to a quotation's date when no expiry is given
	ValidityDays int
}

func (c WorkflowConfig) dueDays() int {
	if c.DueDays <= 0 {
		return defaultDueDays
	}
	return c.DueDays
}

func (c WorkflowConfig) validityDays() int {
	if c.ValidityDays <= 0 {
		return defaultValidityDays
	}
	return c.ValidityDays
}

// today returns the current UTC calendar date at midnight
func today(now func() time.Time) time.Time {
	t := now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// resolveDate parses an optional API date, falling back to def
func resolveDate(value string, def time.Time, field string) (time.Time, error) {
	if value == "" {
		return def, nil
	}
	parsed, err := mapper.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrInvalidInput, field)
	}
	return parsed, nil
}

// resolveItems turns request rows into stored items and the document amount.
// With items present the amount is their sum; otherwise the requested amount is kept.
func resolveItems(reqs []domain.LineItemRequest, requested float64) (datatypes.JSON, decimal.Decimal, error) {
	items := mapper.ItemsFromRequest(reqs)
	encoded, err := mapper.EncodeItems(items)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to encode items: %w", err)
	}
	if len(items) > 0 {
		return encoded, domain.SumLineItems(items), nil
	}
	if requested < 0 {
		return nil, decimal.Zero, fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}
	return encoded, decimal.NewFromFloat(requested).Round(2), nil
}

package domain

import "github.com/shopspring/decimal"

// NewLineItem builds a line item with its amount computed as quantity x rate,
// rounded to two decimals
func NewLineItem(description string, quantity, rate decimal.Decimal) LineItem {
	return LineItem{
		Description: description,
		Quantity:    quantity,
		Rate:        rate,
		Amount:      quantity.Mul(rate).Round(2),
	}
}

// SumLineItems returns the document total of the given items
func SumLineItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Quantity.Mul(item.Rate))
	}
	return total.Round(2)
}

package domain

// QuotationStatus represents the lifecycle state of a quotation
type QuotationStatus string

const (
	QuotationStatusSave     QuotationStatus = "save"
	QuotationStatusSent     QuotationStatus = "sent"
	QuotationStatusAccepted QuotationStatus = "accepted"
	QuotationStatusRejected QuotationStatus = "rejected"
	QuotationStatusExpired  QuotationStatus = "expired"
)

// IsValid checks if the quotation status is a valid value
func (s QuotationStatus) IsValid() bool {
	switch s {
	case QuotationStatusSave, QuotationStatusSent, QuotationStatusAccepted,
		QuotationStatusRejected, QuotationStatusExpired:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed
func (s QuotationStatus) IsTerminal() bool {
	return s == QuotationStatusAccepted || s == QuotationStatusRejected || s == QuotationStatusExpired
}

// CanTransitionTo checks if a transition to the target status is allowed.
// Staying in the current status is always allowed.
func (s QuotationStatus) CanTransitionTo(target QuotationStatus) bool {
	if !target.IsValid() {
		return false
	}
	if s == target {
		return true
	}
	switch s {
	case QuotationStatusSave:
		return target != QuotationStatusSave
	case QuotationStatusSent:
		return target == QuotationStatusAccepted ||
			target == QuotationStatusRejected ||
			target == QuotationStatusExpired
	default:
		return false
	}
}

// IsConvertible reports whether an invoice may still be derived from the quotation
func (s QuotationStatus) IsConvertible() bool {
	return s == QuotationStatusSave || s == QuotationStatusSent || s == QuotationStatusAccepted
}

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusSave    InvoiceStatus = "save"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// IsValid checks if the invoice status is a valid value
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusSave, InvoiceStatusSent, InvoiceStatusPending,
		InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid
}

// IsUnpaid returns true for invoices that have been issued but not settled
func (s InvoiceStatus) IsUnpaid() bool {
	return s == InvoiceStatusSent || s == InvoiceStatusPending || s == InvoiceStatusOverdue
}

// CanTransitionTo checks if a transition to the target status is allowed.
// Staying in the current status is always allowed.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	if !target.IsValid() {
		return false
	}
	if s == target {
		return true
	}
	switch s {
	case InvoiceStatusSave:
		return target == InvoiceStatusSent || target == InvoiceStatusPending || target == InvoiceStatusPaid
	case InvoiceStatusPending:
		return target == InvoiceStatusSent || target == InvoiceStatusPaid || target == InvoiceStatusOverdue
	case InvoiceStatusSent:
		return target == InvoiceStatusPaid || target == InvoiceStatusOverdue
	case InvoiceStatusOverdue:
		return target == InvoiceStatusPaid
	default:
		return false
	}
}

// CanRemind reports whether a payment reminder may be sent in this status
func (s InvoiceStatus) CanRemind() bool {
	return s == InvoiceStatusSave || s.IsUnpaid()
}

package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeInvoiceCreated       = "InvoiceCreated"
	EventTypeInvoiceFinalized     = "InvoiceFinalized"
	EventTypeInvoiceCancelled     = "InvoiceCancelled"
	EventTypeInvoiceStatusChanged = "InvoiceStatusChanged"
	EventTypePaymentRecorded      = "PaymentRecorded"
	EventTypeInvoiceDerived       = "InvoiceDerived"
)

// InvoiceCreatedEvent is raised when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceType   InvoiceType     `json:"invoice_type"`
	Status        InvoiceStatus   `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	LineItemCount int             `json:"line_item_count"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateType, inv.ID, inv.OrganizationID, inv.CreatedAt),
		InvoiceNumber:   inv.InvoiceNumber,
		InvoiceType:     inv.InvoiceType,
		Status:          inv.Status,
		TotalAmount:     inv.TotalAmount,
		LineItemCount:   len(inv.LineItems),
	}
}

// InvoiceFinalizedEvent is raised when a draft enters the payment lifecycle
type InvoiceFinalizedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	Status        InvoiceStatus   `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewInvoiceFinalizedEvent creates a new InvoiceFinalizedEvent
func NewInvoiceFinalizedEvent(inv *Invoice) *InvoiceFinalizedEvent {
	return &InvoiceFinalizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceFinalized, AggregateType, inv.ID, inv.OrganizationID, *inv.FinalizedAt),
		InvoiceNumber:   inv.InvoiceNumber,
		Status:          inv.Status,
		TotalAmount:     inv.TotalAmount,
	}
}

// InvoiceCancelledEvent is raised when an invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	Reason        string          `json:"reason,omitempty"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, AggregateType, inv.ID, inv.OrganizationID, *inv.CancelledAt),
		InvoiceNumber:   inv.InvoiceNumber,
		Reason:          inv.CancelReason,
		AmountPaid:      inv.AmountPaid,
	}
}

// InvoiceStatusChangedEvent is raised on every status transition
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string        `json:"invoice_number"`
	From          InvoiceStatus `json:"from"`
	To            InvoiceStatus `json:"to"`
}

// NewInvoiceStatusChangedEvent creates a new InvoiceStatusChangedEvent
func NewInvoiceStatusChangedEvent(inv *Invoice, from, to InvoiceStatus, at time.Time) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceStatusChanged, AggregateType, inv.ID, inv.OrganizationID, at),
		InvoiceNumber:   inv.InvoiceNumber,
		From:            from,
		To:              to,
	}
}

// PaymentRecordedEvent is raised when a payment is appended to the ledger
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method,omitempty"`
	CurrencyCode  string          `json:"currency_code"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(inv *Invoice, p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateType, inv.ID, inv.OrganizationID, p.RecordedAt),
		InvoiceNumber:   inv.InvoiceNumber,
		PaymentID:       p.ID,
		Amount:          p.Amount,
		Method:          p.Method,
		CurrencyCode:    inv.CurrencyCode.String(),
		AmountPaid:      inv.AmountPaid,
		TotalAmount:     inv.TotalAmount,
	}
}

// InvoiceDerivedEvent is raised on a document created from another invoice
type InvoiceDerivedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber   string      `json:"invoice_number"`
	InvoiceType     InvoiceType `json:"invoice_type"`
	SourceInvoiceID uuid.UUID   `json:"source_invoice_id"`
	SourceType      InvoiceType `json:"source_type"`
}

// NewInvoiceDerivedEvent creates a new InvoiceDerivedEvent
func NewInvoiceDerivedEvent(derived, source *Invoice) *InvoiceDerivedEvent {
	return &InvoiceDerivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceDerived, AggregateType, derived.ID, derived.OrganizationID, derived.CreatedAt),
		InvoiceNumber:   derived.InvoiceNumber,
		InvoiceType:     derived.InvoiceType,
		SourceInvoiceID: source.ID,
		SourceType:      source.InvoiceType,
	}
}

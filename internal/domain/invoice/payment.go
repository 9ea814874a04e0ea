package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Payment is one entry of an invoice's payment ledger. Entries are never
// edited or removed once recorded.
type Payment struct {
	ID         uuid.UUID
	InvoiceID  uuid.UUID
	Amount     decimal.Decimal
	PaidOn     time.Time
	Method     PaymentMethod
	Notes      string
	RecordedAt time.Time
}

// PaymentInput carries a payment to record
type PaymentInput struct {
	Amount decimal.Decimal
	PaidOn time.Time
	Method PaymentMethod
	Notes  string
}

// ErrInvalidPaymentAmount is returned for payments that round to zero or below
var ErrInvalidPaymentAmount = shared.NewDomainError("INVALID_PAYMENT_AMOUNT", "Payment amount must be positive")

func newPayment(invoiceID uuid.UUID, in PaymentInput, now time.Time) (*Payment, error) {
	amount := valueobject.RoundMoney(in.Amount)
	if !amount.IsPositive() {
		return nil, ErrInvalidPaymentAmount
	}
	if !in.Method.IsValid() {
		return nil, shared.AsValidationError(shared.NewFieldError("method", "unknown payment method"))
	}
	paidOn := in.PaidOn
	if paidOn.IsZero() {
		paidOn = now
	}
	return &Payment{
		ID:         uuid.New(),
		InvoiceID:  invoiceID,
		Amount:     amount,
		PaidOn:     DateOf(paidOn),
		Method:     in.Method,
		Notes:      in.Notes,
		RecordedAt: now,
	}, nil
}

// Ledger is the append-only list of payments on an invoice, oldest first
type Ledger []Payment

// AmountPaid sums every entry
func (l Ledger) AmountPaid() decimal.Decimal {
	sum := decimal.Zero
	for i := range l {
		sum = sum.Add(l[i].Amount)
	}
	return valueobject.RoundMoney(sum)
}

// Append returns the ledger with p added at the end
func (l Ledger) Append(p Payment) Ledger {
	return append(l, p)
}

// Len returns the number of entries
func (l Ledger) Len() int {
	return len(l)
}

// Find returns the entry with the given id
func (l Ledger) Find(id uuid.UUID) (*Payment, bool) {
	for i := range l {
		if l[i].ID == id {
			return &l[i], true
		}
	}
	return nil, false
}

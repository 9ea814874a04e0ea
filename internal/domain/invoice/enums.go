package invoice

import "fmt"

// InvoiceType is the kind of document. It never changes after creation.
type InvoiceType string

const (
	TypeProForma    InvoiceType = "PRO_FORMA"
	TypeCommercial  InvoiceType = "COMMERCIAL"
	TypePackingList InvoiceType = "PACKING_LIST"
)

// IsValid checks if the type is a known InvoiceType
func (t InvoiceType) IsValid() bool {
	switch t {
	case TypeProForma, TypeCommercial, TypePackingList:
		return true
	}
	return false
}

// String returns the string representation of InvoiceType
func (t InvoiceType) String() string {
	return string(t)
}

// CarriesShipping reports whether physical and customs fields apply to the type
func (t InvoiceType) CarriesShipping() bool {
	return t == TypeCommercial || t == TypePackingList
}

// ParseInvoiceType converts external input into an InvoiceType
func ParseInvoiceType(s string) (InvoiceType, error) {
	t := InvoiceType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown invoice type %q", s)
	}
	return t, nil
}

// InvoiceStatus is the lifecycle status of an invoice
type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "DRAFT"
	StatusUnpaid        InvoiceStatus = "UNPAID"
	StatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	StatusPaid          InvoiceStatus = "PAID"
	StatusOverdue       InvoiceStatus = "OVERDUE"
	StatusCancelled     InvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is a known InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusUnpaid, StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true for CANCELLED, which nothing can leave
func (s InvoiceStatus) IsTerminal() bool {
	return s == StatusCancelled
}

// IsOpen returns true while money is still expected on the invoice
func (s InvoiceStatus) IsOpen() bool {
	return s == StatusUnpaid || s == StatusPartiallyPaid || s == StatusOverdue
}

// CanTransitionTo reports whether the state machine allows moving to target.
// Staying in the same status is always allowed.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	if s == target {
		return true
	}
	switch s {
	case StatusDraft:
		// finalize lands on whatever the resolver derives from the ledger
		return target != StatusDraft
	case StatusUnpaid, StatusPartiallyPaid, StatusOverdue:
		return target == StatusUnpaid || target == StatusPartiallyPaid || target == StatusOverdue ||
			target == StatusPaid || target == StatusCancelled
	case StatusPaid:
		return target == StatusCancelled
	}
	return false
}

// ParseInvoiceStatus converts external input into an InvoiceStatus
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	st := InvoiceStatus(s)
	if !st.IsValid() {
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
	return st, nil
}

// PricePerType selects which quantity a line item is priced against
type PricePerType string

const (
	PricePerUnit   PricePerType = "UNIT"
	PricePerCarton PricePerType = "CARTON"
)

// IsValid checks if the value is a known PricePerType
func (p PricePerType) IsValid() bool {
	return p == PricePerUnit || p == PricePerCarton
}

// String returns the string representation of PricePerType
func (p PricePerType) String() string {
	return string(p)
}

// ParsePricePerType converts external input into a PricePerType. Empty means UNIT.
func ParsePricePerType(s string) (PricePerType, error) {
	if s == "" {
		return PricePerUnit, nil
	}
	p := PricePerType(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown price basis %q", s)
	}
	return p, nil
}

// DiscountType says how DiscountValue is interpreted
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// IsValid checks if the value is a known DiscountType
func (d DiscountType) IsValid() bool {
	return d == DiscountPercentage || d == DiscountFixed
}

// String returns the string representation of DiscountType
func (d DiscountType) String() string {
	return string(d)
}

// ParseDiscountType converts external input into a DiscountType
func ParseDiscountType(s string) (DiscountType, error) {
	d := DiscountType(s)
	if !d.IsValid() {
		return "", fmt.Errorf("unknown discount type %q", s)
	}
	return d, nil
}

// PaymentMethod is how a payment was made. Empty means unspecified.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the value is a known PaymentMethod or unspecified
func (m PaymentMethod) IsValid() bool {
	switch m {
	case "", PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCreditCard,
		PaymentMethodCheque, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// ParsePaymentMethod converts external input into a PaymentMethod
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown payment method %q", s)
	}
	return m, nil
}

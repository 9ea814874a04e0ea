package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// AggregateType is the aggregate name used on domain events
const AggregateType = "Invoice"

// Domain errors raised by the invoice aggregate
var (
	ErrInvoiceCancelled     = shared.NewDomainError("INVOICE_CANCELLED", "Invoice is cancelled and cannot be changed")
	ErrInvoiceNotDraft      = shared.NewDomainError("INVOICE_NOT_DRAFT", "Only draft invoices can be finalized")
	ErrLineItemNotFound     = shared.NewDomainError("LINE_ITEM_NOT_FOUND", "Line item not found on this invoice")
	ErrLastLineItem         = shared.NewDomainError("LAST_LINE_ITEM", "An invoice must keep at least one line item")
	ErrPaidInvoiceUnderpaid = shared.NewDomainError("PAID_INVOICE_UNDERPAID", "A paid invoice cannot be changed to a total above the amount already paid")
	ErrInvalidInitialStatus = shared.NewDomainError("INVALID_INITIAL_STATUS", "New invoices start as DRAFT or UNPAID")
	ErrInvoiceHasPayments   = shared.NewDomainError("INVOICE_HAS_PAYMENTS", "An invoice with recorded payments cannot be deleted; cancel it instead")
)

// Shipping holds free-text customs metadata. It takes no part in calculations.
type Shipping struct {
	ContainerNumber string
	SealNumber      string
	HSCode          string
	BLNumber        string
}

// Invoice is the aggregate root: header, owned line items and the payment ledger.
// Totals and AmountPaid are derived and only change through recomputation.
type Invoice struct {
	shared.OrganizationAggregateRoot
	InvoiceNumber   string
	InvoiceType     InvoiceType
	Status          InvoiceStatus
	CurrencyCode    valueobject.CurrencyCode
	CustomerID      *uuid.UUID
	InvoiceDate     time.Time
	DueDate         *time.Time
	TaxPercentage   *decimal.Decimal
	DiscountType    *DiscountType
	DiscountValue   *decimal.Decimal
	Subtotal        decimal.Decimal
	TaxAmount       decimal.Decimal
	DiscountAmount  decimal.Decimal
	TotalAmount     decimal.Decimal
	AmountPaid      decimal.Decimal
	LineItems       []LineItem
	Payments        Ledger
	SourceInvoiceID *uuid.UUID
	Notes           string
	Shipping        Shipping
	FinalizedAt     *time.Time
	CancelledAt     *time.Time
	CancelReason    string
}

// HeaderInput is the editable header of an invoice
type HeaderInput struct {
	InvoiceNumber string
	CurrencyCode  valueobject.CurrencyCode
	CustomerID    *uuid.UUID
	InvoiceDate   time.Time
	DueDate       *time.Time
	TaxPercentage *decimal.Decimal
	DiscountType  *DiscountType
	DiscountValue *decimal.Decimal
	Notes         string
	Shipping      Shipping
}

// NewInvoiceParams describes an invoice to create
type NewInvoiceParams struct {
	HeaderInput
	InvoiceType   InvoiceType
	InitialStatus InvoiceStatus
	LineItems     []LineItemInput
	CreatedBy     *uuid.UUID
}

// NewInvoice creates a validated invoice owned by orgID with totals computed.
// InitialStatus defaults to DRAFT; UNPAID immediately runs the status rules.
func NewInvoice(orgID uuid.UUID, p NewInvoiceParams, now time.Time) (*Invoice, error) {
	if p.InitialStatus == "" {
		p.InitialStatus = StatusDraft
	}
	if p.InitialStatus != StatusDraft && p.InitialStatus != StatusUnpaid {
		return nil, ErrInvalidInitialStatus
	}
	if p.CurrencyCode == "" {
		p.CurrencyCode = valueobject.DefaultCurrency
	}
	if p.InvoiceDate.IsZero() {
		p.InvoiceDate = now
	}

	var errs error
	if !p.InvoiceType.IsValid() {
		errs = multierr.Append(errs, shared.NewFieldError("invoice_type", "must be PRO_FORMA, COMMERCIAL or PACKING_LIST"))
	}
	errs = multierr.Append(errs, p.HeaderInput.validate(p.InitialStatus))
	errs = multierr.Append(errs, validateLineInputs(p.LineItems, p.CurrencyCode))
	if err := shared.AsValidationError(errs); err != nil {
		return nil, err
	}

	inv := &Invoice{
		OrganizationAggregateRoot: shared.NewOrganizationAggregateRoot(orgID, now),
		InvoiceType:               p.InvoiceType,
		Status:                    p.InitialStatus,
		AmountPaid:                decimal.Zero,
		Payments:                  Ledger{},
	}
	inv.CreatedBy = copyUUID(p.CreatedBy)
	inv.applyHeader(p.HeaderInput)

	items := make([]LineItem, 0, len(p.LineItems))
	for i, in := range p.LineItems {
		item, err := newLineItem(inv.ID, in, inv.CurrencyCode, now)
		if err != nil {
			return nil, err
		}
		item.SortOrder = i
		items = append(items, *item)
	}
	inv.LineItems = inv.normalizeItems(items)
	inv.recompute(now)
	if inv.Status == StatusUnpaid {
		inv.Status = derive(inv.TotalAmount, inv.AmountPaid, inv.DueDate, now)
		inv.FinalizedAt = &now
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// Finalize moves a draft into the payment lifecycle. The resulting status is
// whatever the status rules derive from the ledger and due date.
func (inv *Invoice) Finalize(now time.Time) error {
	if inv.Status == StatusCancelled {
		return ErrInvoiceCancelled
	}
	if inv.Status != StatusDraft {
		return ErrInvoiceNotDraft
	}
	var errs error
	if inv.CustomerID == nil || *inv.CustomerID == uuid.Nil {
		errs = multierr.Append(errs, shared.NewFieldError("customer_id", "is required"))
	}
	if len(inv.LineItems) == 0 {
		errs = multierr.Append(errs, shared.NewFieldError("line_items", "at least one line item is required"))
	}
	if err := shared.AsValidationError(errs); err != nil {
		return err
	}

	inv.recompute(now)
	inv.FinalizedAt = &now
	inv.setStatus(derive(inv.TotalAmount, inv.AmountPaid, inv.DueDate, now), now)
	inv.AddDomainEvent(NewInvoiceFinalizedEvent(inv))
	inv.touch(now)
	return nil
}

// Cancel sets the terminal CANCELLED status. This is the only way out of PAID.
func (inv *Invoice) Cancel(reason string, now time.Time) error {
	if inv.Status == StatusCancelled {
		return ErrInvoiceCancelled
	}
	inv.CancelledAt = &now
	inv.CancelReason = strings.TrimSpace(reason)
	inv.setStatus(StatusCancelled, now)
	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))
	inv.touch(now)
	return nil
}

// Revise replaces the header and, when items is non-nil, the whole line item
// list. Nothing changes unless every input is valid.
func (inv *Invoice) Revise(h HeaderInput, items []LineItemInput, now time.Time) error {
	if inv.Status == StatusCancelled {
		return ErrInvoiceCancelled
	}
	if h.CurrencyCode == "" {
		h.CurrencyCode = inv.CurrencyCode
	}
	if h.InvoiceDate.IsZero() {
		h.InvoiceDate = inv.InvoiceDate
	}

	var errs error
	errs = multierr.Append(errs, h.validate(inv.Status))
	if items != nil {
		errs = multierr.Append(errs, validateLineInputs(items, h.CurrencyCode))
	} else if h.CurrencyCode != inv.CurrencyCode && len(inv.LineItems) > 0 {
		errs = multierr.Append(errs, shared.NewFieldError("currency_code",
			"cannot change while existing line items are priced in "+inv.CurrencyCode.String()))
	}
	if err := shared.AsValidationError(errs); err != nil {
		return err
	}

	candidate := inv.LineItems
	if items != nil {
		candidate = make([]LineItem, 0, len(items))
		for i, in := range items {
			item, err := newLineItem(inv.ID, in, h.CurrencyCode, now)
			if err != nil {
				return err
			}
			item.SortOrder = i
			candidate = append(candidate, *item)
		}
		candidate = inv.normalizeItems(candidate)
	}
	if err := inv.guardPaid(candidate, h.totalsInput()); err != nil {
		return err
	}

	inv.applyHeader(h)
	inv.LineItems = candidate
	inv.Recalculate(now)
	return nil
}

// AddLineItem appends a line item and recomputes totals and status
func (inv *Invoice) AddLineItem(in LineItemInput, now time.Time) (*LineItem, error) {
	if inv.Status == StatusCancelled {
		return nil, ErrInvoiceCancelled
	}
	item, err := newLineItem(inv.ID, in, inv.CurrencyCode, now)
	if err != nil {
		return nil, err
	}
	item.SortOrder = inv.nextSortOrder()

	candidate := make([]LineItem, len(inv.LineItems), len(inv.LineItems)+1)
	copy(candidate, inv.LineItems)
	candidate = inv.normalizeItems(append(candidate, *item))
	if err := inv.guardPaid(candidate, inv.totalsInput()); err != nil {
		return nil, err
	}

	inv.LineItems = candidate
	inv.Recalculate(now)
	return &inv.LineItems[len(inv.LineItems)-1], nil
}

// UpdateLineItem replaces the content of one line item
func (inv *Invoice) UpdateLineItem(itemID uuid.UUID, in LineItemInput, now time.Time) (*LineItem, error) {
	if inv.Status == StatusCancelled {
		return nil, ErrInvoiceCancelled
	}
	idx := inv.indexOfItem(itemID)
	if idx < 0 {
		return nil, ErrLineItemNotFound
	}
	in = in.withDefaults(inv.CurrencyCode)
	if err := in.validate(inv.CurrencyCode); err != nil {
		return nil, err
	}

	candidate := make([]LineItem, len(inv.LineItems))
	copy(candidate, inv.LineItems)
	candidate[idx].apply(in, now)
	candidate = inv.normalizeItems(candidate)
	if err := inv.guardPaid(candidate, inv.totalsInput()); err != nil {
		return nil, err
	}

	inv.LineItems = candidate
	inv.Recalculate(now)
	return &inv.LineItems[idx], nil
}

// RemoveLineItem deletes one line item. The last remaining item cannot be removed.
func (inv *Invoice) RemoveLineItem(itemID uuid.UUID, now time.Time) error {
	if inv.Status == StatusCancelled {
		return ErrInvoiceCancelled
	}
	idx := inv.indexOfItem(itemID)
	if idx < 0 {
		return ErrLineItemNotFound
	}
	if len(inv.LineItems) == 1 {
		return ErrLastLineItem
	}

	candidate := make([]LineItem, 0, len(inv.LineItems)-1)
	candidate = append(candidate, inv.LineItems[:idx]...)
	candidate = append(candidate, inv.LineItems[idx+1:]...)
	if err := inv.guardPaid(candidate, inv.totalsInput()); err != nil {
		return err
	}

	inv.LineItems = candidate
	inv.Recalculate(now)
	return nil
}

// RecordPayment appends a payment to the ledger, recomputes AmountPaid and
// re-runs the status rules. Payments above the balance are accepted and show
// up as a credit balance.
func (inv *Invoice) RecordPayment(in PaymentInput, now time.Time) (*Payment, error) {
	if inv.Status == StatusCancelled {
		return nil, ErrInvoiceCancelled
	}
	p, err := newPayment(inv.ID, in, now)
	if err != nil {
		return nil, err
	}
	inv.Payments = inv.Payments.Append(*p)
	inv.AmountPaid = inv.Payments.AmountPaid()
	inv.AddDomainEvent(NewPaymentRecordedEvent(inv, p))
	inv.setStatus(ResolveStatus(inv.Status, inv.TotalAmount, inv.AmountPaid, inv.DueDate, now), now)
	inv.touch(now)
	return p, nil
}

// Recalculate recomputes every line total and the invoice totals from scratch,
// then re-runs the status rules against the existing AmountPaid.
func (inv *Invoice) Recalculate(now time.Time) {
	inv.recompute(now)
	inv.setStatus(ResolveStatus(inv.Status, inv.TotalAmount, inv.AmountPaid, inv.DueDate, now), now)
	inv.touch(now)
}

// RefreshStatus re-runs the status rules as of now without touching totals.
// It reports whether the status changed.
func (inv *Invoice) RefreshStatus(now time.Time) bool {
	next := ResolveStatus(inv.Status, inv.TotalAmount, inv.AmountPaid, inv.DueDate, now)
	if next == inv.Status {
		return false
	}
	inv.setStatus(next, now)
	inv.touch(now)
	return true
}

// CheckDeletable rejects removal of invoices that carry ledger entries
func (inv *Invoice) CheckDeletable() error {
	if len(inv.Payments) > 0 {
		return ErrInvoiceHasPayments
	}
	return nil
}

// BalanceDue is what the customer still owes, never negative
func (inv *Invoice) BalanceDue() decimal.Decimal {
	return valueobject.NonNegative(inv.TotalAmount.Sub(inv.AmountPaid))
}

// CreditBalance is the amount paid in excess of the total, never negative
func (inv *Invoice) CreditBalance() decimal.Decimal {
	return valueobject.NonNegative(inv.AmountPaid.Sub(inv.TotalAmount))
}

// Totals returns the stored derived amounts
func (inv *Invoice) Totals() Totals {
	return Totals{
		Subtotal:       inv.Subtotal,
		TaxAmount:      inv.TaxAmount,
		DiscountAmount: inv.DiscountAmount,
		TotalAmount:    inv.TotalAmount,
	}
}

// FindLineItem returns the line item with the given id
func (inv *Invoice) FindLineItem(itemID uuid.UUID) (*LineItem, bool) {
	idx := inv.indexOfItem(itemID)
	if idx < 0 {
		return nil, false
	}
	return &inv.LineItems[idx], true
}

// Header returns the editable header
func (inv *Invoice) Header() HeaderInput {
	return HeaderInput{
		InvoiceNumber: inv.InvoiceNumber,
		CurrencyCode:  inv.CurrencyCode,
		CustomerID:    copyUUID(inv.CustomerID),
		InvoiceDate:   inv.InvoiceDate,
		DueDate:       copyTime(inv.DueDate),
		TaxPercentage: copyDecimal(inv.TaxPercentage),
		DiscountType:  copyDiscountType(inv.DiscountType),
		DiscountValue: copyDecimal(inv.DiscountValue),
		Notes:         inv.Notes,
		Shipping:      inv.Shipping,
	}
}

func (inv *Invoice) totalsInput() TotalsInput {
	return TotalsInput{
		TaxPercentage: inv.TaxPercentage,
		DiscountType:  inv.DiscountType,
		DiscountValue: inv.DiscountValue,
	}
}

func (inv *Invoice) recompute(now time.Time) {
	for i := range inv.LineItems {
		inv.LineItems[i].Recalculate()
	}
	t := ComputeTotals(inv.LineItems, inv.totalsInput())
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.DiscountAmount = t.DiscountAmount
	inv.TotalAmount = t.TotalAmount
	inv.AmountPaid = inv.Payments.AmountPaid()
}

// guardPaid rejects edits that would leave a PAID invoice owing money
func (inv *Invoice) guardPaid(items []LineItem, in TotalsInput) error {
	if inv.Status != StatusPaid {
		return nil
	}
	if ComputeTotals(items, in).TotalAmount.GreaterThan(inv.AmountPaid) {
		return ErrPaidInvoiceUnderpaid
	}
	return nil
}

func (inv *Invoice) setStatus(next InvoiceStatus, now time.Time) {
	if next == inv.Status {
		return
	}
	if !inv.Status.CanTransitionTo(next) {
		// the status rules never produce a forbidden move; keep the current one
		return
	}
	prev := inv.Status
	inv.Status = next
	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, prev, next, now))
}

func (inv *Invoice) touch(now time.Time) {
	inv.UpdatedAt = now
	inv.IncrementVersion()
}

func (inv *Invoice) applyHeader(h HeaderInput) {
	inv.InvoiceNumber = strings.TrimSpace(h.InvoiceNumber)
	inv.CurrencyCode = h.CurrencyCode
	inv.CustomerID = copyUUID(h.CustomerID)
	inv.InvoiceDate = DateOf(h.InvoiceDate)
	inv.DueDate = nil
	if h.DueDate != nil {
		d := DateOf(*h.DueDate)
		inv.DueDate = &d
	}
	inv.TaxPercentage = copyDecimal(h.TaxPercentage)
	inv.DiscountType = copyDiscountType(h.DiscountType)
	inv.DiscountValue = copyDecimal(h.DiscountValue)
	inv.Notes = h.Notes
	inv.Shipping = h.Shipping
}

// normalizeItems drops physical attributes on types that do not carry them
func (inv *Invoice) normalizeItems(items []LineItem) []LineItem {
	if inv.InvoiceType.CarriesShipping() {
		return items
	}
	for i := range items {
		items[i].clearPhysicalAttributes()
	}
	return items
}

func (inv *Invoice) indexOfItem(itemID uuid.UUID) int {
	for i := range inv.LineItems {
		if inv.LineItems[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (inv *Invoice) nextSortOrder() int {
	next := 0
	for i := range inv.LineItems {
		if inv.LineItems[i].SortOrder >= next {
			next = inv.LineItems[i].SortOrder + 1
		}
	}
	return next
}

func (h HeaderInput) totalsInput() TotalsInput {
	return TotalsInput{
		TaxPercentage: h.TaxPercentage,
		DiscountType:  h.DiscountType,
		DiscountValue: h.DiscountValue,
	}
}

func (h HeaderInput) validate(status InvoiceStatus) error {
	var errs error
	if isBlank(h.InvoiceNumber) {
		errs = multierr.Append(errs, shared.NewFieldError("invoice_number", "must not be blank"))
	}
	if !h.CurrencyCode.IsValid() {
		errs = multierr.Append(errs, shared.NewFieldError("currency_code", "must be three uppercase letters"))
	}
	if status != StatusDraft && (h.CustomerID == nil || *h.CustomerID == uuid.Nil) {
		errs = multierr.Append(errs, shared.NewFieldError("customer_id", "is required"))
	}
	if h.TaxPercentage != nil && h.TaxPercentage.IsNegative() {
		errs = multierr.Append(errs, shared.NewFieldError("tax_percentage", "must not be negative"))
	} else {
		errs = multierr.Append(errs, checkStorable("tax_percentage", h.TaxPercentage, ratePrecision))
	}
	if h.DiscountValue != nil && h.DiscountValue.IsNegative() {
		errs = multierr.Append(errs, shared.NewFieldError("discount_value", "must not be negative"))
	} else {
		errs = multierr.Append(errs, checkStorable("discount_value", h.DiscountValue, measurePrecision))
	}
	if h.DiscountValue != nil && h.DiscountType == nil {
		errs = multierr.Append(errs, shared.NewFieldError("discount_type", "is required when discount_value is set"))
	}
	if h.DiscountType != nil && !h.DiscountType.IsValid() {
		errs = multierr.Append(errs, shared.NewFieldError("discount_type", "must be PERCENTAGE or FIXED"))
	}
	return errs
}

func validateLineInputs(items []LineItemInput, currency valueobject.CurrencyCode) error {
	if len(items) == 0 {
		return shared.NewFieldError("line_items", "at least one line item is required")
	}
	var errs error
	for i, in := range items {
		if err := in.withDefaults(currency).validate(currency); err != nil {
			if ve, ok := err.(*shared.ValidationError); ok {
				errs = multierr.Append(errs, ve.Prefixed(fmt.Sprintf("line_items[%d]", i)))
				continue
			}
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyDiscountType(d *DiscountType) *DiscountType {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

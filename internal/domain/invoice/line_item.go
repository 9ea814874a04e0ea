package invoice

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// LineItem is one priced row of an invoice. It is owned by exactly one invoice.
type LineItem struct {
	ID              uuid.UUID
	InvoiceID       uuid.UUID
	ItemReference   *uuid.UUID
	Description     string
	QuantityUnits   *decimal.Decimal
	QuantityCartons *decimal.Decimal
	UnitLabel       string
	UnitPrice       decimal.Decimal
	PricePerType    PricePerType
	CurrencyCode    valueobject.CurrencyCode
	NetWeightKg     *decimal.Decimal
	GrossWeightKg   *decimal.Decimal
	MeasurementCBM  *decimal.Decimal
	Comments        string
	SortOrder       int
	// LineTotal is derived from UnitPrice and the effective quantity
	LineTotal decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItemInput carries the caller-editable content of a line item
type LineItemInput struct {
	ItemReference   *uuid.UUID
	Description     string
	QuantityUnits   *decimal.Decimal
	QuantityCartons *decimal.Decimal
	UnitLabel       string
	UnitPrice       decimal.Decimal
	PricePerType    PricePerType
	CurrencyCode    valueobject.CurrencyCode
	NetWeightKg     *decimal.Decimal
	GrossWeightKg   *decimal.Decimal
	MeasurementCBM  *decimal.Decimal
	Comments        string
}

// DefaultUnitLabel is used when a line item does not name its unit
const DefaultUnitLabel = "pieces"

// newLineItem builds a validated line item for an invoice in the given currency
func newLineItem(invoiceID uuid.UUID, in LineItemInput, currency valueobject.CurrencyCode, now time.Time) (*LineItem, error) {
	in = in.withDefaults(currency)
	if err := in.validate(currency); err != nil {
		return nil, err
	}
	item := &LineItem{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		CreatedAt: now,
	}
	item.apply(in, now)
	return item, nil
}

// apply copies validated input onto the item and recomputes the line total
func (li *LineItem) apply(in LineItemInput, now time.Time) {
	li.ItemReference = copyUUID(in.ItemReference)
	li.Description = in.Description
	li.QuantityUnits = copyDecimal(in.QuantityUnits)
	li.QuantityCartons = copyDecimal(in.QuantityCartons)
	li.UnitLabel = in.UnitLabel
	li.UnitPrice = in.UnitPrice
	li.PricePerType = in.PricePerType
	li.CurrencyCode = in.CurrencyCode
	li.NetWeightKg = copyDecimal(in.NetWeightKg)
	li.GrossWeightKg = copyDecimal(in.GrossWeightKg)
	li.MeasurementCBM = copyDecimal(in.MeasurementCBM)
	li.Comments = in.Comments
	li.UpdatedAt = now
	li.Recalculate()
}

// Recalculate recomputes LineTotal from price and quantity
func (li *LineItem) Recalculate() {
	li.LineTotal = CalculateLineTotal(li.UnitPrice, li.QuantityUnits, li.QuantityCartons, li.PricePerType)
}

// EffectiveQuantity returns the quantity the line is priced against
func (li *LineItem) EffectiveQuantity() decimal.Decimal {
	return EffectiveQuantity(li.QuantityUnits, li.QuantityCartons, li.PricePerType)
}

// Input returns the editable content of the item
func (li *LineItem) Input() LineItemInput {
	return LineItemInput{
		ItemReference:   copyUUID(li.ItemReference),
		Description:     li.Description,
		QuantityUnits:   copyDecimal(li.QuantityUnits),
		QuantityCartons: copyDecimal(li.QuantityCartons),
		UnitLabel:       li.UnitLabel,
		UnitPrice:       li.UnitPrice,
		PricePerType:    li.PricePerType,
		CurrencyCode:    li.CurrencyCode,
		NetWeightKg:     copyDecimal(li.NetWeightKg),
		GrossWeightKg:   copyDecimal(li.GrossWeightKg),
		MeasurementCBM:  copyDecimal(li.MeasurementCBM),
		Comments:        li.Comments,
	}
}

// HasPhysicalAttributes reports whether any packing-list measurement is set
func (li *LineItem) HasPhysicalAttributes() bool {
	return li.NetWeightKg != nil || li.GrossWeightKg != nil || li.MeasurementCBM != nil
}

func (li *LineItem) clearPhysicalAttributes() {
	li.NetWeightKg = nil
	li.GrossWeightKg = nil
	li.MeasurementCBM = nil
}

func (in LineItemInput) withDefaults(currency valueobject.CurrencyCode) LineItemInput {
	if in.CurrencyCode == "" {
		in.CurrencyCode = currency
	}
	if in.PricePerType == "" {
		in.PricePerType = PricePerUnit
	}
	if in.UnitLabel == "" {
		in.UnitLabel = DefaultUnitLabel
	}
	return in
}

func (in LineItemInput) validate(currency valueobject.CurrencyCode) error {
	var errs error
	if isBlank(in.Description) {
		errs = multierr.Append(errs, shared.NewFieldError("description", "must not be blank"))
	}
	if in.UnitPrice.IsNegative() {
		errs = multierr.Append(errs, shared.NewFieldError("unit_price", "must not be negative"))
	} else {
		errs = multierr.Append(errs, checkStorable("unit_price", &in.UnitPrice, measurePrecision))
	}
	if !in.PricePerType.IsValid() {
		errs = multierr.Append(errs, shared.NewFieldError("price_per_type", "must be UNIT or CARTON"))
	}
	switch {
	case !in.CurrencyCode.IsValid():
		errs = multierr.Append(errs, shared.NewFieldError("currency_code", "must be three uppercase letters"))
	case in.CurrencyCode != currency:
		errs = multierr.Append(errs, shared.NewFieldError("currency_code", "must match the invoice currency "+currency.String()))
	}
	errs = multierr.Append(errs, checkQuantity("quantity_units", in.QuantityUnits))
	errs = multierr.Append(errs, checkQuantity("quantity_cartons", in.QuantityCartons))
	errs = multierr.Append(errs, checkQuantity("net_weight_kg", in.NetWeightKg))
	errs = multierr.Append(errs, checkQuantity("gross_weight_kg", in.GrossWeightKg))
	errs = multierr.Append(errs, checkQuantity("measurement_cbm", in.MeasurementCBM))
	return shared.AsValidationError(errs)
}

// numericLimit mirrors the NUMERIC(precision, scale) column a value is stored in
type numericLimit struct {
	precision int32
	scale     int32
}

var (
	// prices, quantities, measurements and discount values
	measurePrecision = numericLimit{precision: 18, scale: 4}
	// tax percentages
	ratePrecision = numericLimit{precision: 9, scale: 4}
)

func checkQuantity(field string, d *decimal.Decimal) error {
	if d != nil && d.IsNegative() {
		return shared.NewFieldError(field, "must not be negative")
	}
	return checkStorable(field, d, measurePrecision)
}

// checkStorable rejects values a reload would round or the column would
// refuse, so a stored invoice recomputes to the same totals.
func checkStorable(field string, d *decimal.Decimal, limit numericLimit) error {
	if d == nil || valueobject.FitsNumeric(*d, limit.precision, limit.scale) {
		return nil
	}
	if !d.Equal(d.Truncate(limit.scale)) {
		return shared.NewFieldError(field, fmt.Sprintf("must have at most %d decimal places", limit.scale))
	}
	return shared.NewFieldError(field, fmt.Sprintf("must be less than %s", decimal.New(1, limit.precision-limit.scale)))
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func copyUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

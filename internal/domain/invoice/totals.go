package invoice

import (
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// TotalsInput holds the invoice-level pricing adjustments
type TotalsInput struct {
	TaxPercentage *decimal.Decimal
	DiscountType  *DiscountType
	DiscountValue *decimal.Decimal
}

// Totals is the result of a full recomputation of an invoice
type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// ComputeTotals derives subtotal, tax, discount and total from scratch.
//
// Each line total is recomputed and rounded before summation. Tax applies to
// the subtotal, never to the discounted amount. The discount is capped at the
// subtotal, so a discount alone can never make the total negative.
func ComputeTotals(items []LineItem, in TotalsInput) Totals {
	subtotal := decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(CalculateLineTotal(items[i].UnitPrice, items[i].QuantityUnits,
			items[i].QuantityCartons, items[i].PricePerType))
	}
	subtotal = valueobject.RoundMoney(subtotal)

	tax := decimal.Zero
	if in.TaxPercentage != nil && in.TaxPercentage.IsPositive() {
		tax = valueobject.PercentOf(subtotal, *in.TaxPercentage)
	}

	discount := decimal.Zero
	if in.DiscountType != nil && in.DiscountValue != nil {
		switch *in.DiscountType {
		case DiscountPercentage:
			discount = valueobject.PercentOf(subtotal, *in.DiscountValue)
		case DiscountFixed:
			discount = valueobject.RoundMoney(*in.DiscountValue)
		}
	}
	discount = valueobject.MinAmount(discount, subtotal)

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: discount,
		TotalAmount:    valueobject.RoundMoney(subtotal.Add(tax).Sub(discount)),
	}
}

// Equal reports whether both results carry the same amounts
func (t Totals) Equal(o Totals) bool {
	return t.Subtotal.Equal(o.Subtotal) && t.TaxAmount.Equal(o.TaxAmount) &&
		t.DiscountAmount.Equal(o.DiscountAmount) && t.TotalAmount.Equal(o.TotalAmount)
}

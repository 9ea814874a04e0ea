package invoice

import (
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// EffectiveQuantity picks the quantity a line is priced against: cartons when
// priced per carton and a carton count is present (zero counts as present),
// otherwise units when present, otherwise zero.
func EffectiveQuantity(quantityUnits, quantityCartons *decimal.Decimal, per PricePerType) decimal.Decimal {
	if per == PricePerCarton && quantityCartons != nil {
		return *quantityCartons
	}
	if quantityUnits != nil {
		return *quantityUnits
	}
	return decimal.Zero
}

// CalculateLineTotal returns round(unitPrice * effective quantity, 2), rounding
// half away from zero.
func CalculateLineTotal(unitPrice decimal.Decimal, quantityUnits, quantityCartons *decimal.Decimal, per PricePerType) decimal.Decimal {
	qty := EffectiveQuantity(quantityUnits, quantityCartons, per)
	return valueobject.RoundMoney(unitPrice.Mul(qty))
}

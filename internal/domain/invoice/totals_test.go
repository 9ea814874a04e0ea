package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func unitItem(price, qty string) LineItem {
	return LineItem{
		Description:   "item",
		UnitPrice:     dec(price),
		QuantityUnits: decPtr(qty),
		PricePerType:  PricePerUnit,
		CurrencyCode:  "USD",
	}
}

func discount(t DiscountType) *DiscountType {
	return &t
}

func TestComputeTotals(t *testing.T) {
	items := []LineItem{
		unitItem("10.00", "2"),
		unitItem("5.005", "3"),
		unitItem("0", "1"),
	}

	t.Run("no adjustments", func(t *testing.T) {
		got := ComputeTotals(items, TotalsInput{})
		assert.Equal(t, "35.02", got.Subtotal.StringFixed(2))
		assert.True(t, got.TaxAmount.IsZero())
		assert.True(t, got.DiscountAmount.IsZero())
		assert.Equal(t, "35.02", got.TotalAmount.StringFixed(2))
	})

	t.Run("percentage discount above 100 is clamped to subtotal", func(t *testing.T) {
		got := ComputeTotals(items, TotalsInput{
			TaxPercentage: decPtr("10"),
			DiscountType:  discount(DiscountPercentage),
			DiscountValue: decPtr("200"),
		})
		assert.Equal(t, "35.02", got.Subtotal.StringFixed(2))
		assert.Equal(t, "3.50", got.TaxAmount.StringFixed(2))
		assert.True(t, got.DiscountAmount.Equal(got.Subtotal))
		assert.True(t, got.TotalAmount.Equal(got.TaxAmount))
	})

	t.Run("tax is computed on subtotal not on discounted amount", func(t *testing.T) {
		got := ComputeTotals([]LineItem{unitItem("100", "1")}, TotalsInput{
			TaxPercentage: decPtr("10"),
			DiscountType:  discount(DiscountFixed),
			DiscountValue: decPtr("50"),
		})
		assert.Equal(t, "10.00", got.TaxAmount.StringFixed(2))
		assert.Equal(t, "50.00", got.DiscountAmount.StringFixed(2))
		assert.Equal(t, "60.00", got.TotalAmount.StringFixed(2))
	})

	t.Run("fixed discount is rounded and clamped", func(t *testing.T) {
		got := ComputeTotals([]LineItem{unitItem("20", "1")}, TotalsInput{
			DiscountType:  discount(DiscountFixed),
			DiscountValue: decPtr("5.555"),
		})
		assert.Equal(t, "5.56", got.DiscountAmount.StringFixed(2))

		got = ComputeTotals([]LineItem{unitItem("20", "1")}, TotalsInput{
			DiscountType:  discount(DiscountFixed),
			DiscountValue: decPtr("1000"),
		})
		assert.Equal(t, "20.00", got.DiscountAmount.StringFixed(2))
		assert.True(t, got.TotalAmount.IsZero())
	})

	t.Run("zero tax percentage yields no tax", func(t *testing.T) {
		got := ComputeTotals(items, TotalsInput{TaxPercentage: decPtr("0")})
		assert.True(t, got.TaxAmount.IsZero())
	})

	t.Run("discount value without type is ignored", func(t *testing.T) {
		got := ComputeTotals(items, TotalsInput{DiscountValue: decPtr("10")})
		assert.True(t, got.DiscountAmount.IsZero())
	})

	t.Run("zero line items yields zeros", func(t *testing.T) {
		got := ComputeTotals(nil, TotalsInput{
			TaxPercentage: decPtr("10"),
			DiscountType:  discount(DiscountFixed),
			DiscountValue: decPtr("5"),
		})
		assert.True(t, got.Subtotal.IsZero())
		assert.True(t, got.TaxAmount.IsZero())
		assert.True(t, got.DiscountAmount.IsZero())
		assert.True(t, got.TotalAmount.IsZero())
	})

	t.Run("ignores stale line totals", func(t *testing.T) {
		stale := unitItem("10", "3")
		stale.LineTotal = dec("999")
		got := ComputeTotals([]LineItem{stale}, TotalsInput{})
		assert.Equal(t, "30.00", got.Subtotal.StringFixed(2))
	})
}

func TestComputeTotals_Properties(t *testing.T) {
	prices := []string{"0", "0.01", "0.005", "1.995", "5.005", "19.99", "333.333", "1000"}
	qtys := []string{"0", "1", "2", "3", "7", "0.5", "12.25"}
	discounts := []struct {
		typ DiscountType
		val string
	}{
		{DiscountPercentage, "0"},
		{DiscountPercentage, "12.5"},
		{DiscountPercentage, "100"},
		{DiscountPercentage, "250"},
		{DiscountFixed, "0.015"},
		{DiscountFixed, "50"},
		{DiscountFixed, "1000000"},
	}

	var items []LineItem
	for i, p := range prices {
		items = append(items, unitItem(p, qtys[i%len(qtys)]))

		for _, d := range discounts {
			in := TotalsInput{
				TaxPercentage: decPtr("7.25"),
				DiscountType:  discount(d.typ),
				DiscountValue: decPtr(d.val),
			}
			got := ComputeTotals(items, in)

			expectedSubtotal := decimal.Zero
			for _, it := range items {
				expectedSubtotal = expectedSubtotal.Add(it.UnitPrice.Mul(*it.QuantityUnits).Round(2))
			}
			assert.True(t, got.Subtotal.Equal(expectedSubtotal.Round(2)), "per-line rounding before summation")
			assert.True(t, got.DiscountAmount.LessThanOrEqual(got.Subtotal), "discount never exceeds subtotal")
			assert.True(t, got.TotalAmount.Equal(got.Subtotal.Add(got.TaxAmount).Sub(got.DiscountAmount).Round(2)))
			assert.False(t, got.TotalAmount.IsNegative())

			again := ComputeTotals(items, in)
			assert.True(t, got.Equal(again), "recomputation is idempotent")
		}
	}
}

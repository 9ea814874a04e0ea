package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestEffectiveQuantity(t *testing.T) {
	tests := []struct {
		name    string
		units   *decimal.Decimal
		cartons *decimal.Decimal
		per     PricePerType
		want    string
	}{
		{"unit pricing uses units", decPtr("12"), decPtr("2"), PricePerUnit, "12"},
		{"carton pricing uses cartons", decPtr("12"), decPtr("2"), PricePerCarton, "2"},
		{"carton pricing with zero cartons keeps zero", decPtr("12"), decPtr("0"), PricePerCarton, "0"},
		{"carton pricing falls back to units", decPtr("12"), nil, PricePerCarton, "12"},
		{"unit pricing ignores cartons", nil, decPtr("2"), PricePerUnit, "0"},
		{"nothing present", nil, nil, PricePerUnit, "0"},
		{"zero units counts as present", decPtr("0"), nil, PricePerUnit, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveQuantity(tt.units, tt.cartons, tt.per)
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}
}

func TestCalculateLineTotal(t *testing.T) {
	t.Run("rounds half away from zero", func(t *testing.T) {
		got := CalculateLineTotal(dec("5.005"), decPtr("3"), nil, PricePerUnit)
		assert.Equal(t, "15.02", got.StringFixed(2))
	})

	t.Run("simple product", func(t *testing.T) {
		got := CalculateLineTotal(dec("10.00"), decPtr("2"), nil, PricePerUnit)
		assert.Equal(t, "20.00", got.StringFixed(2))
	})

	t.Run("zero price", func(t *testing.T) {
		got := CalculateLineTotal(decimal.Zero, decPtr("1"), nil, PricePerUnit)
		assert.True(t, got.IsZero())
	})

	t.Run("priced per carton", func(t *testing.T) {
		got := CalculateLineTotal(dec("48.50"), decPtr("240"), decPtr("10"), PricePerCarton)
		assert.Equal(t, "485.00", got.StringFixed(2))
	})

	t.Run("fractional quantities", func(t *testing.T) {
		got := CalculateLineTotal(dec("3.333"), decPtr("1.5"), nil, PricePerUnit)
		// 4.9995 rounds up
		assert.Equal(t, "5.00", got.StringFixed(2))
	})
}

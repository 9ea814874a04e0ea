package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"15.015", "15.02"},
		{"15.014", "15.01"},
		{"0.005", "0.01"},
		{"-15.015", "-15.02"},
		{"2.675", "2.68"},
		{"20", "20"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := RoundMoney(decimal.RequireFromString(tt.in))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestPercentOf(t *testing.T) {
	got := PercentOf(decimal.RequireFromString("35.02"), decimal.NewFromInt(10))
	assert.Equal(t, "3.5", got.String())

	got = PercentOf(decimal.RequireFromString("33.33"), decimal.RequireFromString("7.5"))
	assert.Equal(t, "2.5", got.String())
}

func TestMinAmountAndNonNegative(t *testing.T) {
	a := decimal.NewFromInt(5)
	b := decimal.NewFromInt(7)
	assert.True(t, MinAmount(a, b).Equal(a))
	assert.True(t, MinAmount(b, a).Equal(a))
	assert.True(t, NonNegative(decimal.NewFromInt(-3)).IsZero())
	assert.True(t, NonNegative(b).Equal(b))
}

func TestFitsNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1.0001", true},
		{"1.00005", false},
		{"1.50000", true},
		{"-2.1234", true},
		{"99999.9999", true},
		{"100000", false},
		{"0", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FitsNumeric(decimal.RequireFromString(tt.in), 9, 4))
		})
	}
}

func TestCurrencyCode(t *testing.T) {
	t.Run("accepts three uppercase letters", func(t *testing.T) {
		c, err := ParseCurrencyCode("EUR")
		require.NoError(t, err)
		assert.Equal(t, EUR, c)
	})

	for _, bad := range []string{"", "usd", "US", "USDD", "U5D", "Usd"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := ParseCurrencyCode(bad)
			assert.Error(t, err)
			assert.False(t, CurrencyCode(bad).IsValid())
		})
	}
}

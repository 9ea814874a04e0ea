package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places every stored amount carries
const MoneyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds d to MoneyPlaces using round-half-away-from-zero:
// 15.015 becomes 15.02 and -15.015 becomes -15.02. Banker's rounding is
// never used for invoice amounts.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// PercentOf returns round(base * percent / 100)
func PercentOf(base, percent decimal.Decimal) decimal.Decimal {
	return RoundMoney(base.Mul(percent).Div(hundred))
}

// MinAmount returns the smaller of a and b
func MinAmount(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// FitsNumeric reports whether d can be stored in a NUMERIC(precision, scale)
// column without rounding or overflow.
func FitsNumeric(d decimal.Decimal, precision, scale int32) bool {
	if !d.Equal(d.Truncate(scale)) {
		return false
	}
	return d.Abs().LessThan(decimal.New(1, precision-scale))
}

// NonNegative returns d, or zero when d is negative
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// CurrencyCode is an ISO 4217 style code: exactly three uppercase ASCII letters
type CurrencyCode string

// Common currency codes
const (
	USD CurrencyCode = "USD"
	EUR CurrencyCode = "EUR"
	GBP CurrencyCode = "GBP"
	CNY CurrencyCode = "CNY"
	INR CurrencyCode = "INR"
)

// DefaultCurrency is used when a document does not name one
const DefaultCurrency = USD

// IsValid reports whether c is three uppercase ASCII letters
func (c CurrencyCode) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}
	return true
}

// String returns the code
func (c CurrencyCode) String() string {
	return string(c)
}

// ParseCurrencyCode validates s without normalising case; "usd" is rejected
func ParseCurrencyCode(s string) (CurrencyCode, error) {
	c := CurrencyCode(s)
	if !c.IsValid() {
		return "", fmt.Errorf("currency code %q must be three uppercase letters", s)
	}
	return c, nil
}

package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestResolveStatus(t *testing.T) {
	yesterday := datePtr(2024, 3, 14)
	today := datePtr(2024, 3, 15)
	tomorrow := datePtr(2024, 3, 16)

	tests := []struct {
		name    string
		current InvoiceStatus
		total   string
		paid    string
		due     *time.Time
		want    InvoiceStatus
	}{
		{"nothing paid", StatusUnpaid, "100", "0", tomorrow, StatusUnpaid},
		{"partially paid", StatusUnpaid, "100", "60", tomorrow, StatusPartiallyPaid},
		{"fully paid", StatusPartiallyPaid, "100", "100", tomorrow, StatusPaid},
		{"over paid", StatusUnpaid, "100", "150", nil, StatusPaid},
		{"past due nothing paid", StatusUnpaid, "100", "0", yesterday, StatusOverdue},
		{"past due partially paid stays overdue", StatusOverdue, "100", "10", yesterday, StatusOverdue},
		{"past due fully paid", StatusOverdue, "100", "100", yesterday, StatusPaid},
		{"due today is not overdue", StatusUnpaid, "100", "0", today, StatusUnpaid},
		{"overdue with extended due date", StatusOverdue, "100", "0", tomorrow, StatusUnpaid},
		{"no due date never overdue", StatusUnpaid, "100", "0", nil, StatusUnpaid},
		{"zero total unpaid", StatusUnpaid, "0", "0", nil, StatusUnpaid},
		{"zero total with payment", StatusUnpaid, "0", "5", nil, StatusPaid},
		{"cancelled is absorbing", StatusCancelled, "100", "100", nil, StatusCancelled},
		{"cancelled past due", StatusCancelled, "100", "0", yesterday, StatusCancelled},
		{"draft unchanged", StatusDraft, "100", "100", yesterday, StatusDraft},
		{"paid stays paid after total increase", StatusPaid, "120", "100", nil, StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveStatus(tt.current, dec(tt.total), dec(tt.paid), tt.due, testNow)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsPastDue(t *testing.T) {
	t.Run("late in the day does not count", func(t *testing.T) {
		now := time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)
		assert.False(t, IsPastDue(datePtr(2024, 3, 15), now))
	})

	t.Run("first second of next day counts", func(t *testing.T) {
		now := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
		assert.True(t, IsPastDue(datePtr(2024, 3, 15), now))
	})

	t.Run("now in another zone is compared in UTC", func(t *testing.T) {
		zone := time.FixedZone("UTC+9", 9*3600)
		// 2024-03-16 08:00 in UTC+9 is still 2024-03-15 in UTC
		now := time.Date(2024, 3, 16, 8, 0, 0, 0, zone)
		assert.False(t, IsPastDue(datePtr(2024, 3, 15), now))
	})

	t.Run("nil due date", func(t *testing.T) {
		assert.False(t, IsPastDue(nil, testNow))
	})
}

func TestDateOf(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*3600)
	got := DateOf(time.Date(2024, 3, 15, 22, 0, 0, 0, zone))
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestInvoiceStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusDraft.CanTransitionTo(StatusUnpaid))
	assert.True(t, StatusDraft.CanTransitionTo(StatusPaid))
	assert.True(t, StatusUnpaid.CanTransitionTo(StatusOverdue))
	assert.True(t, StatusOverdue.CanTransitionTo(StatusPartiallyPaid))
	assert.True(t, StatusPaid.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusPaid.CanTransitionTo(StatusUnpaid))
	assert.False(t, StatusUnpaid.CanTransitionTo(StatusDraft))

	for _, s := range []InvoiceStatus{StatusDraft, StatusUnpaid, StatusPartiallyPaid, StatusPaid, StatusOverdue} {
		assert.False(t, StatusCancelled.CanTransitionTo(s), "CANCELLED -> %s", s)
	}
}

func TestParseEnums(t *testing.T) {
	typ, err := ParseInvoiceType("COMMERCIAL")
	assert.NoError(t, err)
	assert.Equal(t, TypeCommercial, typ)
	_, err = ParseInvoiceType("commercial")
	assert.Error(t, err)

	st, err := ParseInvoiceStatus("PARTIALLY_PAID")
	assert.NoError(t, err)
	assert.Equal(t, StatusPartiallyPaid, st)
	_, err = ParseInvoiceStatus("SETTLED")
	assert.Error(t, err)

	per, err := ParsePricePerType("")
	assert.NoError(t, err)
	assert.Equal(t, PricePerUnit, per)
	_, err = ParsePricePerType("PALLET")
	assert.Error(t, err)

	_, err = ParseDiscountType("PERCENT")
	assert.Error(t, err)

	m, err := ParsePaymentMethod("")
	assert.NoError(t, err)
	assert.Equal(t, PaymentMethod(""), m)
	_, err = ParsePaymentMethod("BITCOIN")
	assert.Error(t, err)
}

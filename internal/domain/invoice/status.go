package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// ResolveStatus derives the lifecycle status from totals, payments and the due
// date as of now.
//
// CANCELLED and DRAFT are never changed here: cancellation is explicit and a
// draft only leaves DRAFT through Finalize. PAID is kept once reached, even if
// a later edit lowers the total below the amount paid; the excess shows up as
// a credit balance instead.
func ResolveStatus(current InvoiceStatus, total, paid decimal.Decimal, dueDate *time.Time, now time.Time) InvoiceStatus {
	switch current {
	case StatusCancelled, StatusDraft, StatusPaid:
		return current
	}
	return derive(total, paid, dueDate, now)
}

// derive applies the payment rules without regard to the current status
func derive(total, paid decimal.Decimal, dueDate *time.Time, now time.Time) InvoiceStatus {
	pastDue := IsPastDue(dueDate, now)
	switch {
	case paid.GreaterThanOrEqual(total) && (total.IsPositive() || paid.IsPositive()):
		return StatusPaid
	case paid.IsPositive():
		if pastDue {
			return StatusOverdue
		}
		return StatusPartiallyPaid
	case pastDue:
		return StatusOverdue
	default:
		return StatusUnpaid
	}
}

// IsPastDue reports whether dueDate is a calendar day before now (UTC).
// An invoice due today is not yet past due.
func IsPastDue(dueDate *time.Time, now time.Time) bool {
	if dueDate == nil {
		return false
	}
	return DateOf(*dueDate).Before(DateOf(now.UTC()))
}

// DateOf returns midnight UTC of t's calendar date in t's own location
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

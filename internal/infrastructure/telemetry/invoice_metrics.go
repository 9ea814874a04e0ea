package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// InvoiceMetrics records invoice lifecycle activity. A nil *InvoiceMetrics
// records nothing.
type InvoiceMetrics struct {
	invoicesCreated   *Counter
	documentsDerived  *Counter
	paymentsRecorded  *Counter
	paymentAmount     *Histogram
	statusTransitions *Counter
	sweepRefreshed    *Counter
	sweepDuration     *Histogram
}

// NewInvoiceMetrics registers the invoice instruments on meter
func NewInvoiceMetrics(meter metric.Meter) (*InvoiceMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &InvoiceMetrics{}
	var err error
	if m.invoicesCreated, err = NewCounter(meter,
		"invoice_created_total", "Invoices created, including derived documents", "{invoices}"); err != nil {
		return nil, err
	}
	if m.documentsDerived, err = NewCounter(meter,
		"invoice_documents_derived_total", "Commercial invoices and packing lists generated", "{invoices}"); err != nil {
		return nil, err
	}
	if m.paymentsRecorded, err = NewCounter(meter,
		"invoice_payments_total", "Payments appended to invoice ledgers", "{payments}"); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "invoice_payment_amount",
		Description: "Recorded payment amounts",
		Unit:        "{currency_unit}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if m.statusTransitions, err = NewCounter(meter,
		"invoice_status_transitions_total", "Invoice status changes", "{transitions}"); err != nil {
		return nil, err
	}
	if m.sweepRefreshed, err = NewCounter(meter,
		"invoice_overdue_sweep_refreshed_total", "Invoices moved by the overdue sweeper", "{invoices}"); err != nil {
		return nil, err
	}
	if m.sweepDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "invoice_overdue_sweep_duration",
		Description: "Duration of one overdue sweep",
		Unit:        "s",
		Boundaries:  SweepDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// InvoiceCreated counts a new invoice of the given type
func (m *InvoiceMetrics) InvoiceCreated(ctx context.Context, invoiceType string) {
	if m == nil {
		return
	}
	m.invoicesCreated.Inc(ctx, AttrInvoiceType.String(invoiceType))
}

// DocumentDerived counts a document generated from another
func (m *InvoiceMetrics) DocumentDerived(ctx context.Context, invoiceType string) {
	if m == nil {
		return
	}
	m.documentsDerived.Inc(ctx, AttrInvoiceType.String(invoiceType))
}

// PaymentRecorded counts a payment and records its amount
func (m *InvoiceMetrics) PaymentRecorded(ctx context.Context, method, currency string, amount float64) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNSPECIFIED"
	}
	m.paymentsRecorded.Inc(ctx, AttrPaymentMethod.String(method), AttrCurrency.String(currency))
	m.paymentAmount.Record(ctx, amount, AttrCurrency.String(currency))
}

// StatusChanged counts a status transition
func (m *InvoiceMetrics) StatusChanged(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.Inc(ctx, AttrStatusFrom.String(from), AttrStatusTo.String(to))
}

// OverdueSweep records one sweeper run
func (m *InvoiceMetrics) OverdueSweep(ctx context.Context, d time.Duration, refreshed int) {
	if m == nil {
		return
	}
	m.sweepRefreshed.Add(ctx, int64(refreshed))
	m.sweepDuration.RecordDuration(ctx, d)
}

package invoice

import (
	"context"

	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
)

// MetricsHandler turns invoice events into business metrics
type MetricsHandler struct {
	metrics *telemetry.InvoiceMetrics
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(metrics *telemetry.InvoiceMetrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// EventTypes returns the event types this handler is interested in
func (h *MetricsHandler) EventTypes() []string {
	return []string{
		invoice.EventTypeInvoiceCreated,
		invoice.EventTypeInvoiceDerived,
		invoice.EventTypeInvoiceStatusChanged,
		invoice.EventTypePaymentRecorded,
	}
}

// Handle records the metric matching the event
func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *invoice.InvoiceCreatedEvent:
		h.metrics.InvoiceCreated(ctx, string(e.InvoiceType))
	case *invoice.InvoiceDerivedEvent:
		h.metrics.DocumentDerived(ctx, string(e.InvoiceType))
	case *invoice.InvoiceStatusChangedEvent:
		h.metrics.StatusChanged(ctx, string(e.From), string(e.To))
	case *invoice.PaymentRecordedEvent:
		h.metrics.PaymentRecorded(ctx, string(e.Method), e.CurrencyCode, e.Amount.InexactFloat64())
	}
	return nil
}

package invoice

import (
	"context"

	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ActivityLogger writes one structured log line per invoice event.
// It is the audit trail of who changed which invoice and how.
type ActivityLogger struct {
	logger *zap.Logger
}

// NewActivityLogger creates a new ActivityLogger
func NewActivityLogger(l *zap.Logger) *ActivityLogger {
	return &ActivityLogger{logger: l.Named("invoice.activity")}
}

// EventTypes returns the event types this handler is interested in
func (h *ActivityLogger) EventTypes() []string {
	return []string{
		invoice.EventTypeInvoiceCreated,
		invoice.EventTypeInvoiceFinalized,
		invoice.EventTypeInvoiceCancelled,
		invoice.EventTypeInvoiceStatusChanged,
		invoice.EventTypePaymentRecorded,
		invoice.EventTypeInvoiceDerived,
	}
}

// Handle logs the event
func (h *ActivityLogger) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("invoice_id", event.AggregateID().String()),
		zap.String("organization_id", event.OrganizationID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *invoice.InvoiceCreatedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("invoice_type", string(e.InvoiceType)),
			zap.String("status", string(e.Status)),
			zap.String("total_amount", e.TotalAmount.StringFixed(2)),
			zap.Int("line_items", e.LineItemCount),
		)
	case *invoice.InvoiceFinalizedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("status", string(e.Status)),
			zap.String("total_amount", e.TotalAmount.StringFixed(2)),
		)
	case *invoice.InvoiceCancelledEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("reason", e.Reason),
			zap.String("amount_paid", e.AmountPaid.StringFixed(2)),
		)
	case *invoice.InvoiceStatusChangedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("from", string(e.From)),
			zap.String("to", string(e.To)),
		)
	case *invoice.PaymentRecordedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("payment_id", e.PaymentID.String()),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.String("currency", e.CurrencyCode),
			zap.String("method", string(e.Method)),
			zap.String("amount_paid", e.AmountPaid.StringFixed(2)),
			zap.String("total_amount", e.TotalAmount.StringFixed(2)),
		)
	case *invoice.InvoiceDerivedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("invoice_type", string(e.InvoiceType)),
			zap.String("source_invoice_id", e.SourceInvoiceID.String()),
			zap.String("source_type", string(e.SourceType)),
		)
	}

	logger.Enrich(ctx, h.logger).Info("Invoice activity", fields...)
	return nil
}

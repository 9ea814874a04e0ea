package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const serviceSpanName = "invoice"

// InvoiceService handles invoice business operations. Every method is
// scoped by an explicit organization id.
type InvoiceService struct {
	repo        invoice.InvoiceRepository
	locker      shared.Locker
	idempotency *idempotencyGuard
	publisher   shared.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
}

// ServiceOption configures an InvoiceService
type ServiceOption func(*InvoiceService)

// WithEventPublisher publishes domain events after every committed change
func WithEventPublisher(publisher shared.EventPublisher) ServiceOption {
	return func(s *InvoiceService) {
		s.publisher = publisher
	}
}

// WithIdempotencyStore enables idempotency keys on payments and derived
// documents. pendingTTL bounds how long a crashed request blocks its key.
func WithIdempotencyStore(store shared.IdempotencyStore, ttl, pendingTTL time.Duration) ServiceOption {
	return func(s *InvoiceService) {
		if store == nil {
			s.idempotency = nil
			return
		}
		s.idempotency = &idempotencyGuard{store: store, ttl: ttl, pendingTTL: pendingTTL}
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *InvoiceService) {
		s.logger = l
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *InvoiceService) {
		s.now = now
	}
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(repo invoice.InvoiceRepository, locker shared.Locker, opts ...ServiceOption) *InvoiceService {
	s := &InvoiceService{
		repo:   repo,
		locker: locker,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.idempotency != nil {
		s.idempotency.logger = s.logger
	}
	return s
}

// Create creates a new invoice with its line items
func (s *InvoiceService) Create(ctx context.Context, orgID uuid.UUID, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceSpanName, "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrganizationID, orgID.String(),
		telemetry.SpanAttrInvoiceType, req.InvoiceType,
		telemetry.SpanAttrLineItems, len(req.LineItems),
	)

	params, err := toNewInvoiceParams(req)
	if err != nil {
		return nil, err
	}
	inv, err := invoice.NewInvoice(orgID, params, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publishEvents(ctx, inv)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, inv.ID.String(),
		telemetry.SpanAttrInvoiceStatus, string(inv.Status),
	)
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// GetByID retrieves a full invoice
func (s *InvoiceService) GetByID(ctx context.Context, orgID, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.repo.FindByIDForOrg(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// List retrieves invoice headers with filtering and pagination
func (s *InvoiceService) List(ctx context.Context, orgID uuid.UUID, filter InvoiceListFilter) (*shared.Paginated[InvoiceListItemResponse], error) {
	domainFilter, err := toInvoiceFilter(filter)
	if err != nil {
		return nil, err
	}

	invoices, err := s.repo.FindAllForOrg(ctx, orgID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountForOrg(ctx, orgID, domainFilter)
	if err != nil {
		return nil, err
	}

	page := shared.NewPaginated(ToInvoiceListItemResponses(invoices), total, domainFilter.Page, domainFilter.PageSize)
	return &page, nil
}

// Update replaces the header and optionally the full line item list
func (s *InvoiceService) Update(ctx context.Context, orgID, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceSpanName, "update")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrganizationID, orgID.String(), telemetry.SpanAttrInvoiceID, id.String())

	header, err := toHeaderInput(req.HeaderRequest)
	if err != nil {
		return nil, err
	}
	var items []invoice.LineItemInput
	if req.LineItems != nil {
		if items, err = toLineItemInputs(req.LineItems); err != nil {
			return nil, err
		}
	}

	inv, err := s.mutate(ctx, orgID, id, func(inv *invoice.Invoice) error {
		return inv.Revise(header, items, s.now())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// Delete removes an invoice that has no recorded payments
func (s *InvoiceService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceSpanName, "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrganizationID, orgID.String(), telemetry.SpanAttrInvoiceID, id.String())

	unlock, err := s.locker.Lock(ctx, orgID, id)
	if err != nil {
		return err
	}
	defer unlock()

	inv, err := s.repo.FindByIDForOrg(ctx, orgID, id)
	if err != nil {
		return err
	}
	if err := inv.CheckDeletable(); err != nil {
		return err
	}
	if err := s.repo.DeleteForOrg(ctx, orgID, id); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	logger.Enrich(ctx, s.logger).Info("Invoice deleted",
		zap.String("invoice_id", id.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
	)
	return nil
}

// Finalize moves a draft into the payment lifecycle
func (s *InvoiceService) Finalize(ctx context.Context, orgID, id uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceSpanName, "finalize")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrganizationID, orgID.String(), telemetry.SpanAttrInvoiceID, id.String())

	inv, err := s.mutate(ctx, orgID, id, func(inv *invoice.Invoice) error {
		return inv.Finalize(s.now())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceStatus, string(inv.Status))
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// Cancel sets the terminal CANCELLED status
func (s *InvoiceService) Cancel(ctx context.Context, orgID, id uuid.UUID, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceSpanName, "cancel")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrganizationID, orgID.String(), telemetry.SpanAttrInvoiceID, id.String())

	inv, err := s.mutate(ctx, orgID, id, func(inv *invoice.Invoice) error {
		return inv.Cancel(req.Reason, s.now())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// AddLineItem appends a line item and recomputes the invoice
func (s *InvoiceService) AddLineItem(ctx context.Context, orgID, id uuid.UUID, req LineItemRequest) (*LineItemMutationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceSpanName, "add_line_item")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrganizationID, orgID.String(), telemetry.SpanAttrInvoiceID, id.String())

	in, err := toLineItemInput(req)
	if err != nil {
		return nil, err
	}
	var itemID uuid.UUID
	inv, err := s.mutate(ctx, orgID, id, func(inv *invoice.Invoice) error {
		item, err := inv.AddLineItem(in, s.now())
		if err != nil {
			return err
		}
		itemID = item.ID
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return lineItemMutationResponse(inv, itemID), nil
}

// UpdateLineItem replaces the content of one line item
func (s *InvoiceService) UpdateLineItem(ctx context.Context, orgID, id, itemID uuid.UUID, req LineItemRequest) (*LineItemMutationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceSpanName, "update_line_item")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrganizationID, orgID.String(), telemetry.SpanAttrInvoiceID, id.String())

	in, err := toLineItemInput(req)
	if err != nil {
		return nil, err
	}
	inv, err := s.mutate(ctx, orgID, id, func(inv *invoice.Invoice) error {
		_, err := inv.UpdateLineItem(itemID, in, s.now())
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return lineItemMutationResponse(inv, itemID), nil
}

// RemoveLineItem deletes one line item and recomputes the invoice
func (s *InvoiceService) RemoveLineItem(ctx context.Context, orgID, id, itemID uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceSpanName, "remove_line_item")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrganizationID, orgID.String(), telemetry.SpanAttrInvoiceID, id.String())

	inv, err := s.mutate(ctx, orgID, id, func(inv *invoice.Invoice) error {
		return inv.RemoveLineItem(itemID, s.now())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	response := ToInvoiceResponse(inv)
	return &response, nil
}

// RecordPayment appends a payment to the ledger. With an idempotency key a
// retried request returns the payment recorded by the first one.
func (s *InvoiceService) RecordPayment(ctx context.Context, orgID, id uuid.UUID, req RecordPaymentRequest) (*RecordPaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceSpanName, "record_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrganizationID, orgID.String(),
		telemetry.SpanAttrInvoiceID, id.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	in, err := toPaymentInput(req)
	if err != nil {
		return nil, err
	}

	key := scopedKey(orgID, "payment", id, req.IdempotencyKey)
	var paymentID uuid.UUID
	var inv *invoice.Invoice
	resultID, replayed, err := s.idempotency.run(ctx, key, func() (uuid.UUID, error) {
		var merr error
		inv, merr = s.mutate(ctx, orgID, id, func(inv *invoice.Invoice) error {
			p, err := inv.RecordPayment(in, s.now())
			if err != nil {
				return err
			}
			paymentID = p.ID
			return nil
		})
		return paymentID, merr
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if replayed {
		if inv, err = s.repo.FindByIDForOrg(ctx, orgID, id); err != nil {
			return nil, err
		}
		paymentID = resultID
	}
	p, ok := inv.Payments.Find(paymentID)
	if !ok {
		return nil, shared.ErrNotFound
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, paymentID.String(), telemetry.SpanAttrInvoiceStatus, string(inv.Status))
	return &RecordPaymentResponse{
		Payment:  ToPaymentResponse(p),
		Invoice:  ToInvoiceResponse(inv),
		Replayed: replayed,
	}, nil
}

// ListPayments returns the payment ledger of an invoice, oldest first
func (s *InvoiceService) ListPayments(ctx context.Context, orgID, id uuid.UUID) ([]PaymentResponse, error) {
	inv, err := s.repo.FindByIDForOrg(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return ToPaymentResponses(inv.Payments), nil
}

// TransformToCommercial creates a COMMERCIAL invoice from a PRO_FORMA one
func (s *InvoiceService) TransformToCommercial(ctx context.Context, orgID, sourceID uuid.UUID, req TransformRequest) (*InvoiceResponse, bool, error) {
	return s.derive(ctx, orgID, sourceID, req, "transform_to_commercial", invoice.TransformToCommercial)
}

// GeneratePackingList creates a PACKING_LIST from a COMMERCIAL invoice
func (s *InvoiceService) GeneratePackingList(ctx context.Context, orgID, sourceID uuid.UUID, req TransformRequest) (*InvoiceResponse, bool, error) {
	return s.derive(ctx, orgID, sourceID, req, "generate_packing_list", invoice.GeneratePackingList)
}

type transformFunc func(src *invoice.Invoice, opts invoice.TransformOptions, now time.Time) (*invoice.Invoice, error)

// derive reads the source and stores the derived document in one transaction.
// The source is never written, so no lock is taken on it.
func (s *InvoiceService) derive(ctx context.Context, orgID, sourceID uuid.UUID, req TransformRequest, op string, transform transformFunc) (*InvoiceResponse, bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceSpanName, op)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrganizationID, orgID.String(), telemetry.SpanAttrSourceID, sourceID.String())

	opts, err := toTransformOptions(req)
	if err != nil {
		return nil, false, err
	}

	var derived *invoice.Invoice
	resultID, replayed, err := s.idempotency.run(ctx, scopedKey(orgID, op, sourceID, req.IdempotencyKey), func() (uuid.UUID, error) {
		src, err := s.repo.FindByIDForOrg(ctx, orgID, sourceID)
		if err != nil {
			return uuid.Nil, err
		}
		derived, err = transform(src, opts, s.now())
		if err != nil {
			return uuid.Nil, err
		}
		if err := s.repo.Create(ctx, derived); err != nil {
			return uuid.Nil, err
		}
		s.publishEvents(ctx, derived)
		return derived.ID, nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, false, err
	}
	if replayed {
		if derived, err = s.repo.FindByIDForOrg(ctx, orgID, resultID); err != nil {
			return nil, false, err
		}
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, derived.ID.String(),
		telemetry.SpanAttrInvoiceNumber, derived.InvoiceNumber,
	)
	response := ToInvoiceResponse(derived)
	return &response, replayed, nil
}

// GetDashboardStats aggregates the organization's invoices, optionally
// restricted to an invoice date range
func (s *InvoiceService) GetDashboardStats(ctx context.Context, orgID uuid.UUID, filter DashboardStatsFilter) (*DashboardStatsResponse, error) {
	from, ferr := parseDate("from_date", filter.FromDate)
	to, terr := parseDate("to_date", filter.ToDate)
	if err := shared.AsValidationError(multierr.Combine(ferr, terr)); err != nil {
		return nil, err
	}

	stats, err := s.repo.DashboardStats(ctx, orgID, from, to, s.now())
	if err != nil {
		return nil, err
	}
	return &DashboardStatsResponse{
		TotalInvoiced:    stats.TotalInvoiced,
		TotalCollected:   stats.TotalCollected,
		TotalOutstanding: stats.TotalOutstanding,
		OverdueCount:     stats.OverdueCount,
		InvoiceCount:     stats.InvoiceCount,
		FromDate:         formatDatePtr(from),
		ToDate:           formatDatePtr(to),
	}, nil
}

// RefreshOverdue re-runs the status rules for open invoices whose due date
// has passed, across all organizations. At most limit invoices are touched;
// limit <= 0 means no limit. One failing invoice does not stop the sweep.
func (s *InvoiceService) RefreshOverdue(ctx context.Context, limit int) (*RefreshResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceSpanName, "refresh_overdue")
	defer span.End()

	refs, err := s.repo.FindPastDueOpen(ctx, s.now(), limit)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &RefreshResult{Scanned: len(refs)}
	for _, ref := range refs {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		changed := false
		_, err := s.mutate(ctx, ref.OrganizationID, ref.InvoiceID, func(inv *invoice.Invoice) error {
			changed = inv.RefreshStatus(s.now())
			return nil
		})
		if err != nil {
			result.Failed++
			s.logger.Warn("Failed to refresh invoice status",
				zap.String("organization_id", ref.OrganizationID.String()),
				zap.String("invoice_id", ref.InvoiceID.String()),
				zap.Error(err),
			)
			continue
		}
		if changed {
			result.Refreshed++
		}
	}

	telemetry.SetAttributes(span, "scanned", result.Scanned, "refreshed", result.Refreshed, "failed", result.Failed)
	return result, nil
}

// mutate serialises writers of one invoice, applies fn under a row lock and
// publishes the resulting events once the transaction has committed
func (s *InvoiceService) mutate(ctx context.Context, orgID, id uuid.UUID, fn invoice.MutateFunc) (*invoice.Invoice, error) {
	unlock, err := s.locker.Lock(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	inv, err := s.repo.Mutate(ctx, orgID, id, fn)
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, inv)
	return inv, nil
}

// publishEvents hands pending domain events to the bus. Handler failures are
// logged; the change itself is already committed.
func (s *InvoiceService) publishEvents(ctx context.Context, inv *invoice.Invoice) {
	events := inv.GetDomainEvents()
	inv.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.Enrich(ctx, s.logger).Warn("Failed to handle invoice events",
			zap.String("invoice_id", inv.ID.String()),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}

func toNewInvoiceParams(req CreateInvoiceRequest) (invoice.NewInvoiceParams, error) {
	header, herr := toHeaderInput(req.HeaderRequest)
	items, ierr := toLineItemInputs(req.LineItems)
	typ, terr := invoice.ParseInvoiceType(req.InvoiceType)
	if terr != nil {
		terr = shared.NewFieldError("invoice_type", terr.Error())
	}
	var status invoice.InvoiceStatus
	if req.Status != "" {
		var serr error
		if status, serr = invoice.ParseInvoiceStatus(req.Status); serr != nil {
			terr = multierr.Combine(terr, shared.NewFieldError("status", serr.Error()))
		}
	}
	if err := shared.AsValidationError(multierr.Combine(herr, ierr, terr)); err != nil {
		return invoice.NewInvoiceParams{}, err
	}
	return invoice.NewInvoiceParams{
		HeaderInput:   header,
		InvoiceType:   typ,
		InitialStatus: status,
		LineItems:     items,
		CreatedBy:     req.CreatedBy,
	}, nil
}

func lineItemMutationResponse(inv *invoice.Invoice, itemID uuid.UUID) *LineItemMutationResponse {
	resp := &LineItemMutationResponse{Invoice: ToInvoiceResponse(inv)}
	if item, ok := inv.FindLineItem(itemID); ok {
		resp.LineItem = ToLineItemResponse(item)
	}
	return resp
}

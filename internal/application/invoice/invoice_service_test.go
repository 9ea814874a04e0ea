package invoice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/infrastructure/cache"
	"github.com/invoicing/backend/internal/infrastructure/event"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ==================== Fixtures ====================

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type eventRecorder struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (r *eventRecorder) EventTypes() []string { return nil }

func (r *eventRecorder) Handle(_ context.Context, e shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

func (r *eventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type failingHandler struct{}

func (failingHandler) EventTypes() []string { return nil }

func (failingHandler) Handle(context.Context, shared.DomainEvent) error {
	return errors.New("downstream unavailable")
}

type serviceFixture struct {
	svc      *InvoiceService
	repo     *persistence.GormInvoiceRepository
	store    *cache.InMemoryIdempotencyStore
	bus      *event.InMemoryEventBus
	recorder *eventRecorder
	clock    *testClock
	orgID    uuid.UUID
	ctx      context.Context
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, persistence.AutoMigrateInvoices(db))

	clock := &testClock{now: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)}
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	bus := event.NewInMemoryEventBus(zap.NewNop())
	recorder := &eventRecorder{}
	bus.Subscribe(recorder)

	repo := persistence.NewGormInvoiceRepository(db)
	svc := NewInvoiceService(repo, cache.NewInMemoryInvoiceLocker(5*time.Second),
		WithEventPublisher(bus),
		WithIdempotencyStore(store, time.Hour, time.Minute),
		WithClock(clock.Now),
	)
	return &serviceFixture{
		svc:      svc,
		repo:     repo,
		store:    store,
		bus:      bus,
		recorder: recorder,
		clock:    clock,
		orgID:    uuid.New(),
		ctx:      context.Background(),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func item(desc, price, qty string) LineItemRequest {
	return LineItemRequest{
		Description:   desc,
		UnitPrice:     dec(price),
		QuantityUnits: decPtr(qty),
	}
}

// createRequest builds an UNPAID PRO_FORMA invoice totalling 380.00:
// 200 + 150 = 350 subtotal, 10% tax, 5.00 fixed discount
func createRequest(number string) CreateInvoiceRequest {
	customerID := uuid.New()
	return CreateInvoiceRequest{
		HeaderRequest: HeaderRequest{
			InvoiceNumber: number,
			CurrencyCode:  "USD",
			CustomerID:    &customerID,
			InvoiceDate:   "2024-06-10",
			DueDate:       "2024-07-10",
			TaxPercentage: decPtr("10"),
			DiscountType:  "FIXED",
			DiscountValue: decPtr("5"),
		},
		InvoiceType: "PRO_FORMA",
		Status:      "UNPAID",
		LineItems: []LineItemRequest{
			item("Widget", "100", "2"),
			item("Gadget", "50", "3"),
		},
	}
}

func (f *serviceFixture) create(t *testing.T, req CreateInvoiceRequest) *InvoiceResponse {
	t.Helper()
	resp, err := f.svc.Create(f.ctx, f.orgID, req)
	require.NoError(t, err)
	return resp
}

func (f *serviceFixture) pay(t *testing.T, id uuid.UUID, amount string) *RecordPaymentResponse {
	t.Helper()
	resp, err := f.svc.RecordPayment(f.ctx, f.orgID, id, RecordPaymentRequest{Amount: dec(amount), Method: "BANK_TRANSFER"})
	require.NoError(t, err)
	return resp
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

// ==================== Create / Get / List ====================

func TestInvoiceService_Create(t *testing.T) {
	f := newServiceFixture(t)

	resp := f.create(t, createRequest("INV-100"))

	assert.Equal(t, "UNPAID", resp.Status)
	assert.Equal(t, "PRO_FORMA", resp.InvoiceType)
	assertAmount(t, "350", resp.Subtotal)
	assertAmount(t, "35", resp.TaxAmount)
	assertAmount(t, "5", resp.DiscountAmount)
	assertAmount(t, "380", resp.TotalAmount)
	assertAmount(t, "380", resp.BalanceDue)
	assert.Equal(t, "2024-07-10", *resp.DueDate)
	require.Len(t, resp.LineItems, 2)
	assertAmount(t, "200", resp.LineItems[0].LineTotal)
	assert.Equal(t, "pieces", resp.LineItems[0].UnitLabel)
	assert.NotNil(t, resp.FinalizedAt)
	assert.Equal(t, []string{invoice.EventTypeInvoiceCreated}, f.recorder.Types())

	got, err := f.svc.GetByID(f.ctx, f.orgID, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, got.ID)
	assertAmount(t, "380", got.TotalAmount)
	assert.Len(t, got.LineItems, 2)

	_, err = f.svc.GetByID(f.ctx, uuid.New(), resp.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestInvoiceService_Create_Validation(t *testing.T) {
	f := newServiceFixture(t)

	t.Run("wire fields are reported together", func(t *testing.T) {
		req := createRequest("INV-1")
		req.CurrencyCode = "usd"
		req.DueDate = "2024-13-01"
		req.LineItems[1].PricePerType = "PALLET"

		_, err := f.svc.Create(f.ctx, f.orgID, req)
		var ve *shared.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.True(t, ve.HasField("currency_code"))
		assert.True(t, ve.HasField("due_date"))
		assert.True(t, ve.HasField("line_items[1].price_per_type"))
	})

	t.Run("customer required once issued", func(t *testing.T) {
		req := createRequest("INV-2")
		req.CustomerID = nil

		_, err := f.svc.Create(f.ctx, f.orgID, req)
		var ve *shared.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.True(t, ve.HasField("customer_id"))
	})

	t.Run("draft without customer is accepted", func(t *testing.T) {
		req := createRequest("INV-3")
		req.CustomerID = nil
		req.Status = "DRAFT"

		resp, err := f.svc.Create(f.ctx, f.orgID, req)
		require.NoError(t, err)
		assert.Equal(t, "DRAFT", resp.Status)
		assert.Nil(t, resp.FinalizedAt)
	})
}

func TestInvoiceService_Create_ProFormaDropsPhysicalAttributes(t *testing.T) {
	f := newServiceFixture(t)
	req := createRequest("INV-100")
	req.LineItems[0].NetWeightKg = decPtr("12.5")
	req.LineItems[0].MeasurementCBM = decPtr("0.8")

	resp := f.create(t, req)
	assert.Nil(t, resp.LineItems[0].NetWeightKg)
	assert.Nil(t, resp.LineItems[0].MeasurementCBM)
}

func TestInvoiceService_List(t *testing.T) {
	f := newServiceFixture(t)
	for _, number := range []string{"INV-001", "INV-002", "ACME-003"} {
		f.create(t, createRequest(number))
	}
	draft := createRequest("INV-004")
	draft.Status = "DRAFT"
	f.create(t, draft)
	// other organization
	_, err := f.svc.Create(f.ctx, uuid.New(), createRequest("INV-999"))
	require.NoError(t, err)

	page, err := f.svc.List(f.ctx, f.orgID, InvoiceListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	page, err = f.svc.List(f.ctx, f.orgID, InvoiceListFilter{Search: "inv-00"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	page, err = f.svc.List(f.ctx, f.orgID, InvoiceListFilter{Status: "DRAFT"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "INV-004", page.Items[0].InvoiceNumber)

	page, err = f.svc.List(f.ctx, f.orgID, InvoiceListFilter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.TotalPages)

	_, err = f.svc.List(f.ctx, f.orgID, InvoiceListFilter{FromDate: "yesterday"})
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("from_date"))
}

// ==================== Header and line item edits ====================

func TestInvoiceService_Update(t *testing.T) {
	f := newServiceFixture(t)
	created := f.create(t, createRequest("INV-100"))

	req := UpdateInvoiceRequest{HeaderRequest: createRequest("INV-100").HeaderRequest}
	req.InvoiceNumber = "INV-100-A"
	req.TaxPercentage = nil
	req.DiscountType = "PERCENTAGE"
	req.DiscountValue = decPtr("10")
	req.Notes = "  revised terms  "

	resp, err := f.svc.Update(f.ctx, f.orgID, created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "INV-100-A", resp.InvoiceNumber)
	assert.Equal(t, "revised terms", resp.Notes)
	assert.Len(t, resp.LineItems, 2, "items are kept when none are sent")
	assertAmount(t, "350", resp.Subtotal)
	assertAmount(t, "0", resp.TaxAmount)
	assertAmount(t, "35", resp.DiscountAmount)
	assertAmount(t, "315", resp.TotalAmount)

	req.LineItems = []LineItemRequest{item("Bundle", "19.99", "3")}
	resp, err = f.svc.Update(f.ctx, f.orgID, created.ID, req)
	require.NoError(t, err)
	require.Len(t, resp.LineItems, 1)
	assertAmount(t, "59.97", resp.Subtotal)
	assertAmount(t, "6", resp.DiscountAmount)
	assertAmount(t, "53.97", resp.TotalAmount)

	req.LineItems = []LineItemRequest{}
	_, err = f.svc.Update(f.ctx, f.orgID, created.ID, req)
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("line_items"))

	_, err = f.svc.Update(f.ctx, f.orgID, uuid.New(), req)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestInvoiceService_LineItems(t *testing.T) {
	f := newServiceFixture(t)
	created := f.create(t, createRequest("INV-100"))

	added, err := f.svc.AddLineItem(f.ctx, f.orgID, created.ID, LineItemRequest{
		Description:     "Cartons",
		UnitPrice:       dec("12.50"),
		QuantityCartons: decPtr("4"),
		PricePerType:    "CARTON",
	})
	require.NoError(t, err)
	assertAmount(t, "50", added.LineItem.LineTotal)
	assert.Equal(t, 2, added.LineItem.SortOrder)
	assertAmount(t, "400", added.Invoice.Subtotal)
	assertAmount(t, "435", added.Invoice.TotalAmount)

	updated, err := f.svc.UpdateLineItem(f.ctx, f.orgID, created.ID, added.LineItem.ID, LineItemRequest{
		Description:     "Cartons",
		UnitPrice:       dec("10"),
		QuantityCartons: decPtr("4"),
		PricePerType:    "CARTON",
	})
	require.NoError(t, err)
	assertAmount(t, "40", updated.LineItem.LineTotal)
	assertAmount(t, "390", updated.Invoice.Subtotal)

	_, err = f.svc.UpdateLineItem(f.ctx, f.orgID, created.ID, uuid.New(), item("x", "1", "1"))
	assert.ErrorIs(t, err, invoice.ErrLineItemNotFound)

	_, err = f.svc.AddLineItem(f.ctx, f.orgID, created.ID, LineItemRequest{
		Description: "Euro part", UnitPrice: dec("1"), QuantityUnits: decPtr("1"), CurrencyCode: "EUR",
	})
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("currency_code"))

	resp, err := f.svc.RemoveLineItem(f.ctx, f.orgID, created.ID, added.LineItem.ID)
	require.NoError(t, err)
	assert.Len(t, resp.LineItems, 2)
	assertAmount(t, "380", resp.TotalAmount)

	_, err = f.svc.RemoveLineItem(f.ctx, f.orgID, created.ID, resp.LineItems[0].ID)
	require.NoError(t, err)
	got, err := f.svc.GetByID(f.ctx, f.orgID, created.ID)
	require.NoError(t, err)
	require.Len(t, got.LineItems, 1)
	_, err = f.svc.RemoveLineItem(f.ctx, f.orgID, created.ID, got.LineItems[0].ID)
	assert.ErrorIs(t, err, invoice.ErrLastLineItem)
}

// ==================== Lifecycle ====================

func TestInvoiceService_FinalizeDraft(t *testing.T) {
	f := newServiceFixture(t)
	req := createRequest("INV-100")
	req.Status = "DRAFT"
	req.CustomerID = nil
	created := f.create(t, req)

	_, err := f.svc.Finalize(f.ctx, f.orgID, created.ID)
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("customer_id"))

	update := UpdateInvoiceRequest{HeaderRequest: createRequest("INV-100").HeaderRequest}
	_, err = f.svc.Update(f.ctx, f.orgID, created.ID, update)
	require.NoError(t, err)

	f.recorder.Reset()
	resp, err := f.svc.Finalize(f.ctx, f.orgID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "UNPAID", resp.Status)
	assert.NotNil(t, resp.FinalizedAt)
	assert.Equal(t, []string{invoice.EventTypeInvoiceStatusChanged, invoice.EventTypeInvoiceFinalized}, f.recorder.Types())

	_, err = f.svc.Finalize(f.ctx, f.orgID, created.ID)
	assert.ErrorIs(t, err, invoice.ErrInvoiceNotDraft)
}

func TestInvoiceService_Cancel(t *testing.T) {
	f := newServiceFixture(t)
	created := f.create(t, createRequest("INV-100"))
	f.pay(t, created.ID, "100")

	resp, err := f.svc.Cancel(f.ctx, f.orgID, created.ID, CancelInvoiceRequest{Reason: "customer withdrew"})
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", resp.Status)
	assert.Equal(t, "customer withdrew", resp.CancelReason)
	assertAmount(t, "100", resp.AmountPaid)

	_, err = f.svc.Cancel(f.ctx, f.orgID, created.ID, CancelInvoiceRequest{})
	assert.ErrorIs(t, err, invoice.ErrInvoiceCancelled)
	_, err = f.svc.RecordPayment(f.ctx, f.orgID, created.ID, RecordPaymentRequest{Amount: dec("10")})
	assert.ErrorIs(t, err, invoice.ErrInvoiceCancelled)
	_, err = f.svc.AddLineItem(f.ctx, f.orgID, created.ID, item("late", "1", "1"))
	assert.ErrorIs(t, err, invoice.ErrInvoiceCancelled)
}

func TestInvoiceService_Delete(t *testing.T) {
	f := newServiceFixture(t)

	unpaid := f.create(t, createRequest("INV-100"))
	require.NoError(t, f.svc.Delete(f.ctx, f.orgID, unpaid.ID))
	_, err := f.svc.GetByID(f.ctx, f.orgID, unpaid.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	paid := f.create(t, createRequest("INV-101"))
	f.pay(t, paid.ID, "1")
	assert.ErrorIs(t, f.svc.Delete(f.ctx, f.orgID, paid.ID), invoice.ErrInvoiceHasPayments)

	assert.ErrorIs(t, f.svc.Delete(f.ctx, f.orgID, uuid.New()), shared.ErrNotFound)
}

// ==================== Payments ====================

func TestInvoiceService_RecordPayment(t *testing.T) {
	f := newServiceFixture(t)
	created := f.create(t, createRequest("INV-100"))
	f.recorder.Reset()

	first := f.pay(t, created.ID, "100")
	assert.Equal(t, "PARTIALLY_PAID", first.Invoice.Status)
	assertAmount(t, "100", first.Invoice.AmountPaid)
	assertAmount(t, "280", first.Invoice.BalanceDue)
	assert.Equal(t, "BANK_TRANSFER", first.Payment.Method)
	assert.Equal(t, "2024-06-10", first.Payment.PaymentDate)
	assert.False(t, first.Replayed)
	assert.Equal(t, []string{invoice.EventTypePaymentRecorded, invoice.EventTypeInvoiceStatusChanged}, f.recorder.Types())

	second := f.pay(t, created.ID, "280")
	assert.Equal(t, "PAID", second.Invoice.Status)
	assertAmount(t, "0", second.Invoice.BalanceDue)

	third := f.pay(t, created.ID, "10")
	assert.Equal(t, "PAID", third.Invoice.Status)
	assertAmount(t, "390", third.Invoice.AmountPaid)
	assertAmount(t, "10", third.Invoice.CreditBalance)

	payments, err := f.svc.ListPayments(f.ctx, f.orgID, created.ID)
	require.NoError(t, err)
	require.Len(t, payments, 3)

	_, err = f.svc.AddLineItem(f.ctx, f.orgID, created.ID, item("extra", "100", "1"))
	assert.ErrorIs(t, err, invoice.ErrPaidInvoiceUnderpaid)

	_, err = f.svc.RecordPayment(f.ctx, f.orgID, created.ID, RecordPaymentRequest{Amount: dec("0")})
	assert.ErrorIs(t, err, invoice.ErrInvalidPaymentAmount)

	_, err = f.svc.RecordPayment(f.ctx, f.orgID, created.ID, RecordPaymentRequest{Amount: dec("5"), PaymentDate: "10/06/2024"})
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("payment_date"))
}

func TestInvoiceService_RecordPayment_Idempotency(t *testing.T) {
	f := newServiceFixture(t)
	created := f.create(t, createRequest("INV-100"))

	t.Run("retry returns the original payment", func(t *testing.T) {
		req := RecordPaymentRequest{Amount: dec("50"), IdempotencyKey: "pay-1"}
		first, err := f.svc.RecordPayment(f.ctx, f.orgID, created.ID, req)
		require.NoError(t, err)
		again, err := f.svc.RecordPayment(f.ctx, f.orgID, created.ID, req)
		require.NoError(t, err)

		assert.True(t, again.Replayed)
		assert.Equal(t, first.Payment.ID, again.Payment.ID)
		assertAmount(t, "50", again.Invoice.AmountPaid)
	})

	t.Run("in-flight duplicate is rejected", func(t *testing.T) {
		key := scopedKey(f.orgID, "payment", created.ID, "pay-2")
		ok, err := f.store.Reserve(f.ctx, key, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = f.svc.RecordPayment(f.ctx, f.orgID, created.ID, RecordPaymentRequest{Amount: dec("50"), IdempotencyKey: "pay-2"})
		assert.ErrorIs(t, err, shared.ErrRequestInProgress)
	})

	t.Run("failure releases the key", func(t *testing.T) {
		_, err := f.svc.RecordPayment(f.ctx, f.orgID, created.ID, RecordPaymentRequest{Amount: dec("-1"), IdempotencyKey: "pay-3"})
		require.ErrorIs(t, err, invoice.ErrInvalidPaymentAmount)

		resp, err := f.svc.RecordPayment(f.ctx, f.orgID, created.ID, RecordPaymentRequest{Amount: dec("25"), IdempotencyKey: "pay-3"})
		require.NoError(t, err)
		assert.False(t, resp.Replayed)
	})

	t.Run("keys are scoped to the invoice", func(t *testing.T) {
		other := f.create(t, createRequest("INV-101"))
		resp, err := f.svc.RecordPayment(f.ctx, f.orgID, other.ID, RecordPaymentRequest{Amount: dec("50"), IdempotencyKey: "pay-1"})
		require.NoError(t, err)
		assert.False(t, resp.Replayed)
	})

	payments, err := f.svc.ListPayments(f.ctx, f.orgID, created.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestInvoiceService_ConcurrentPayments(t *testing.T) {
	f := newServiceFixture(t)
	created := f.create(t, createRequest("INV-100"))

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RecordPayment(f.ctx, f.orgID, created.ID, RecordPaymentRequest{Amount: dec("10"), Method: "CASH"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := f.svc.GetByID(f.ctx, f.orgID, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Payments, workers)
	assertAmount(t, "200", got.AmountPaid)
	assert.Equal(t, "PARTIALLY_PAID", got.Status)
}

// ==================== Derived documents ====================

func TestInvoiceService_DocumentChain(t *testing.T) {
	f := newServiceFixture(t)
	proForma := f.create(t, createRequest("INV-100"))
	f.pay(t, proForma.ID, "50")
	f.recorder.Reset()

	commercial, replayed, err := f.svc.TransformToCommercial(f.ctx, f.orgID, proForma.ID, TransformRequest{})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "INV-100-COMM", commercial.InvoiceNumber)
	assert.Equal(t, "COMMERCIAL", commercial.InvoiceType)
	assert.Equal(t, "UNPAID", commercial.Status)
	assert.Equal(t, proForma.ID, *commercial.SourceInvoiceID)
	assertAmount(t, "380", commercial.TotalAmount)
	assertAmount(t, "0", commercial.AmountPaid)
	assert.Empty(t, commercial.Payments)
	require.Len(t, commercial.LineItems, 2)
	assert.NotEqual(t, proForma.LineItems[0].ID, commercial.LineItems[0].ID)
	assert.Equal(t, []string{invoice.EventTypeInvoiceCreated, invoice.EventTypeInvoiceDerived}, f.recorder.Types())

	source, err := f.svc.GetByID(f.ctx, f.orgID, proForma.ID)
	require.NoError(t, err)
	assert.Equal(t, "PARTIALLY_PAID", source.Status, "source is only read")

	_, err = f.svc.AddLineItem(f.ctx, f.orgID, commercial.ID, LineItemRequest{
		Description:   "Crate",
		UnitPrice:     dec("20"),
		QuantityUnits: decPtr("1"),
		NetWeightKg:   decPtr("30"),
		GrossWeightKg: decPtr("32.5"),
	})
	require.NoError(t, err)

	packing, _, err := f.svc.GeneratePackingList(f.ctx, f.orgID, commercial.ID, TransformRequest{Status: "DRAFT"})
	require.NoError(t, err)
	assert.Equal(t, "PL-INV-100-COMM", packing.InvoiceNumber)
	assert.Equal(t, "PACKING_LIST", packing.InvoiceType)
	assert.Equal(t, "DRAFT", packing.Status)
	require.Len(t, packing.LineItems, 3)
	require.NotNil(t, packing.LineItems[2].GrossWeightKg)
	assertAmount(t, "32.5", *packing.LineItems[2].GrossWeightKg)

	_, _, err = f.svc.TransformToCommercial(f.ctx, f.orgID, commercial.ID, TransformRequest{})
	assert.ErrorIs(t, err, invoice.ErrInvalidSourceType)
	_, _, err = f.svc.GeneratePackingList(f.ctx, f.orgID, proForma.ID, TransformRequest{})
	assert.ErrorIs(t, err, invoice.ErrInvalidSourceType)

	// a cancelled source cannot be transformed
	_, err = f.svc.Cancel(f.ctx, f.orgID, commercial.ID, CancelInvoiceRequest{})
	require.NoError(t, err)
	_, _, err = f.svc.GeneratePackingList(f.ctx, f.orgID, commercial.ID, TransformRequest{})
	assert.ErrorIs(t, err, invoice.ErrInvoiceCancelled)
}

func TestInvoiceService_Transform_Idempotency(t *testing.T) {
	f := newServiceFixture(t)
	proForma := f.create(t, createRequest("INV-100"))

	req := TransformRequest{InvoiceNumber: "CI-2024-001", InvoiceDate: "2024-06-12", IdempotencyKey: "convert-1"}
	first, replayed, err := f.svc.TransformToCommercial(f.ctx, f.orgID, proForma.ID, req)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "CI-2024-001", first.InvoiceNumber)
	assert.Equal(t, "2024-06-12", first.InvoiceDate)

	again, replayed, err := f.svc.TransformToCommercial(f.ctx, f.orgID, proForma.ID, req)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, again.ID)

	page, err := f.svc.List(f.ctx, f.orgID, InvoiceListFilter{SourceID: proForma.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	// without a key every call creates a new document
	_, _, err = f.svc.TransformToCommercial(f.ctx, f.orgID, proForma.ID, TransformRequest{})
	require.NoError(t, err)
	page, err = f.svc.List(f.ctx, f.orgID, InvoiceListFilter{SourceID: proForma.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

// ==================== Reporting and sweeps ====================

func TestInvoiceService_GetDashboardStats(t *testing.T) {
	f := newServiceFixture(t)

	paid := f.create(t, createRequest("INV-1"))
	f.pay(t, paid.ID, "380")
	partial := f.create(t, createRequest("INV-2"))
	f.pay(t, partial.ID, "80")
	f.create(t, createRequest("INV-3"))
	cancelled := f.create(t, createRequest("INV-4"))
	_, err := f.svc.Cancel(f.ctx, f.orgID, cancelled.ID, CancelInvoiceRequest{})
	require.NoError(t, err)

	stats, err := f.svc.GetDashboardStats(f.ctx, f.orgID, DashboardStatsFilter{})
	require.NoError(t, err)
	assertAmount(t, "1140", stats.TotalInvoiced)
	assertAmount(t, "460", stats.TotalCollected)
	assertAmount(t, "680", stats.TotalOutstanding)
	assert.Equal(t, int64(0), stats.OverdueCount)
	assert.Equal(t, int64(4), stats.InvoiceCount)

	stats, err = f.svc.GetDashboardStats(f.ctx, f.orgID, DashboardStatsFilter{FromDate: "2024-07-01"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.InvoiceCount)
	assert.Equal(t, "2024-07-01", *stats.FromDate)

	_, err = f.svc.GetDashboardStats(f.ctx, f.orgID, DashboardStatsFilter{ToDate: "June"})
	var ve *shared.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.HasField("to_date"))
}

func TestInvoiceService_RefreshOverdue(t *testing.T) {
	f := newServiceFixture(t)
	open := f.create(t, createRequest("INV-1"))
	partial := f.create(t, createRequest("INV-2"))
	f.pay(t, partial.ID, "10")
	paid := f.create(t, createRequest("INV-3"))
	f.pay(t, paid.ID, "380")
	draft := createRequest("INV-4")
	draft.Status = "DRAFT"
	f.create(t, draft)

	result, err := f.svc.RefreshOverdue(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{}, *result)

	f.clock.Set(time.Date(2024, 7, 11, 0, 30, 0, 0, time.UTC))
	f.recorder.Reset()
	result, err = f.svc.RefreshOverdue(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Scanned: 2, Refreshed: 2}, *result)
	assert.Equal(t, []string{invoice.EventTypeInvoiceStatusChanged, invoice.EventTypeInvoiceStatusChanged}, f.recorder.Types())

	for _, id := range []uuid.UUID{open.ID, partial.ID} {
		got, err := f.svc.GetByID(f.ctx, f.orgID, id)
		require.NoError(t, err)
		assert.Equal(t, "OVERDUE", got.Status)
	}

	// settling an overdue invoice leaves OVERDUE
	resp := f.pay(t, partial.ID, "370")
	assert.Equal(t, "PAID", resp.Invoice.Status)

	result, err = f.svc.RefreshOverdue(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Scanned)
}

// ==================== Events ====================

func TestInvoiceService_HandlerFailureDoesNotFailTheChange(t *testing.T) {
	f := newServiceFixture(t)
	f.bus.Subscribe(failingHandler{})

	created := f.create(t, createRequest("INV-100"))
	resp := f.pay(t, created.ID, "10")
	assert.Equal(t, "PARTIALLY_PAID", resp.Invoice.Status)
}

func TestInvoiceService_WithoutIdempotencyOrPublisher(t *testing.T) {
	f := newServiceFixture(t)
	svc := NewInvoiceService(f.repo, cache.NewInMemoryInvoiceLocker(time.Second), WithClock(f.clock.Now))

	created, err := svc.Create(f.ctx, f.orgID, createRequest("INV-100"))
	require.NoError(t, err)

	req := RecordPaymentRequest{Amount: dec("10"), IdempotencyKey: "ignored"}
	_, err = svc.RecordPayment(f.ctx, f.orgID, created.ID, req)
	require.NoError(t, err)
	second, err := svc.RecordPayment(f.ctx, f.orgID, created.ID, req)
	require.NoError(t, err)
	assert.False(t, second.Replayed)
	assertAmount(t, "20", second.Invoice.AmountPaid)
	assert.Empty(t, f.recorder.Types())
}

package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Invoice", uuid.New(), uuid.New(), time.Now()),
	}
}

type testHandler struct {
	eventTypes []string
	mu         sync.Mutex
	handled    []string
	err        error
	panicWith  any
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event.EventType())
	h.mu.Unlock()
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.handled...)
}

func TestInMemoryEventBus_Routing(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	payments := &testHandler{eventTypes: []string{"PaymentRecorded"}}
	all := &testHandler{}
	explicit := &testHandler{eventTypes: []string{"ignored"}}
	bus.Subscribe(payments)
	bus.Subscribe(all)
	bus.Subscribe(explicit, "InvoiceCreated")

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("InvoiceCreated"),
		newTestEvent("PaymentRecorded"),
		newTestEvent("InvoiceCancelled"),
	))

	assert.Equal(t, []string{"PaymentRecorded"}, payments.seen())
	assert.Equal(t, []string{"InvoiceCreated", "PaymentRecorded", "InvoiceCancelled"}, all.seen())
	assert.Equal(t, []string{"InvoiceCreated"}, explicit.seen())

	bus.Unsubscribe(all)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("PaymentRecorded")))
	assert.Len(t, all.seen(), 3)
	assert.Len(t, payments.seen(), 2)
}

func TestInMemoryEventBus_HandlerFailures(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := &testHandler{err: errors.New("disk full")}
	panicking := &testHandler{panicWith: "boom"}
	healthy := &testHandler{}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("InvoiceCreated"))
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorContains(t, err, "disk full")
	assert.ErrorContains(t, err, "panicked")
	assert.Equal(t, []string{"InvoiceCreated"}, healthy.seen(), "delivery continues past failures")
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Stop(ctx))
	assert.ErrorIs(t, bus.Publish(ctx, newTestEvent("InvoiceCreated")), ErrBusStopped)

	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Publish(ctx, newTestEvent("InvoiceCreated")))
}

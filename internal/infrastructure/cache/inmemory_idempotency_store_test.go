package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore returns a store whose clock the test controls
func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *time.Time) {
	t.Helper()
	store := NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestInMemoryIdempotencyStore_Lifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation loses")

	v, found, err := store.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, shared.IdempotencyPending, v)

	require.NoError(t, store.Complete(ctx, "k1", `{"id":"abc"}`, time.Hour))
	v, found, err = store.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"id":"abc"}`, v)

	require.NoError(t, store.Release(ctx, "k1"))
	_, found, _ = store.Lookup(ctx, "k1")
	assert.True(t, found, "release never drops a completed result")
}

func TestInMemoryIdempotencyStore_ReleasePending(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, _ := store.Reserve(ctx, "k2", time.Minute)
	require.True(t, ok)
	require.NoError(t, store.Release(ctx, "k2"))

	_, found, _ := store.Lookup(ctx, "k2")
	assert.False(t, found)

	ok, _ = store.Reserve(ctx, "k2", time.Minute)
	assert.True(t, ok, "a released key can be reserved again")
	require.NoError(t, store.Release(ctx, "missing"))
}

func TestInMemoryIdempotencyStore_Expiry(t *testing.T) {
	store, now := newTestStore(t)
	ctx := context.Background()

	ok, _ := store.Reserve(ctx, "k3", time.Minute)
	require.True(t, ok)

	*now = now.Add(time.Minute)
	_, found, _ := store.Lookup(ctx, "k3")
	assert.False(t, found, "expired reservations are invisible")

	ok, _ = store.Reserve(ctx, "k3", time.Minute)
	assert.True(t, ok)

	*now = now.Add(2 * time.Minute)
	store.cleanup()
	assert.Zero(t, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentReserve(t *testing.T) {
	store, _ := newTestStore(t)
	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.Reserve(context.Background(), "race", time.Minute); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners)
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

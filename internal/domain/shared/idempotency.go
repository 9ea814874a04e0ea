package shared

import (
	"context"
	"time"
)

// IdempotencyPending is stored under a reserved key until the request completes
const IdempotencyPending = "pending"

// IdempotencyStore remembers the outcome of client requests that carry an
// idempotency key, so a retried request returns the original result instead
// of repeating a non-idempotent operation.
type IdempotencyStore interface {
	// Reserve claims key for ttl. It returns false if the key is already held.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete records the result of the request that reserved key
	Complete(ctx context.Context, key, result string, ttl time.Duration) error

	// Lookup returns the stored value for key. The value is IdempotencyPending
	// while the original request is still running.
	Lookup(ctx context.Context, key string) (string, bool, error)

	// Release drops a reservation after the request failed
	Release(ctx context.Context, key string) error

	Close() error
}

package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// idempotencyGuard runs an operation at most once per client key and
// remembers the id of what it created
type idempotencyGuard struct {
	store      shared.IdempotencyStore
	ttl        time.Duration
	pendingTTL time.Duration
	logger     *zap.Logger
}

// scopedKey binds a client key to the organization, operation and target so
// the same key cannot replay a different request. An empty client key
// disables the guard.
func scopedKey(orgID uuid.UUID, op string, targetID uuid.UUID, clientKey string) string {
	if clientKey == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s:%s", orgID, op, targetID, clientKey)
}

// run executes fn unless key was already used. It reports the stored id and
// true when the call is a replay of a completed request.
func (g *idempotencyGuard) run(ctx context.Context, key string, fn func() (uuid.UUID, error)) (uuid.UUID, bool, error) {
	if g == nil || key == "" {
		id, err := fn()
		return id, false, err
	}

	reserved, err := g.store.Reserve(ctx, key, g.pendingTTL)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if !reserved {
		return g.replay(ctx, key)
	}

	id, err := fn()
	if err != nil {
		if rerr := g.store.Release(context.WithoutCancel(ctx), key); rerr != nil {
			g.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(rerr))
		}
		return uuid.Nil, false, err
	}

	if cerr := g.store.Complete(context.WithoutCancel(ctx), key, id.String(), g.ttl); cerr != nil {
		// the operation succeeded; a retry may now repeat it
		g.logger.Warn("Failed to store idempotency result", zap.String("key", key), zap.Error(cerr))
	}
	return id, false, nil
}

func (g *idempotencyGuard) replay(ctx context.Context, key string) (uuid.UUID, bool, error) {
	value, found, err := g.store.Lookup(ctx, key)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("lookup idempotency key: %w", err)
	}
	if !found || value == shared.IdempotencyPending {
		return uuid.Nil, false, shared.ErrRequestInProgress
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt idempotency result for %s: %w", key, err)
	}
	return id, true, nil
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func lockKey(orgID, id uuid.UUID) string {
	return "invoice:lock:" + orgID.String() + ":" + id.String()
}

// InMemoryInvoiceLocker serialises writers per invoice inside one process.
// Entries are reference counted and dropped once nobody holds or waits.
type InMemoryInvoiceLocker struct {
	mu          sync.Mutex
	entries     map[string]*lockEntry
	waitTimeout time.Duration
}

type lockEntry struct {
	slot chan struct{}
	refs int
}

// NewInMemoryInvoiceLocker creates a process-local locker. A zero
// waitTimeout waits until the caller's context is done.
func NewInMemoryInvoiceLocker(waitTimeout time.Duration) *InMemoryInvoiceLocker {
	return &InMemoryInvoiceLocker{
		entries:     make(map[string]*lockEntry),
		waitTimeout: waitTimeout,
	}
}

// Lock blocks until the invoice is free, ctx is done or the wait times out.
func (l *InMemoryInvoiceLocker) Lock(ctx context.Context, orgID, id uuid.UUID) (shared.Unlock, error) {
	key := lockKey(orgID, id)

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{slot: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	var timeout <-chan time.Time
	if l.waitTimeout > 0 {
		timer := time.NewTimer(l.waitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	case <-timeout:
		l.release(key, e)
		return nil, shared.ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			l.release(key, e)
		})
	}, nil
}

func (l *InMemoryInvoiceLocker) release(key string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Size returns the number of invoices currently held or awaited
func (l *InMemoryInvoiceLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// releaseScript deletes the lock only if it still carries the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisInvoiceLocker serialises writers per invoice across processes using
// SET NX PX with a random token per holder.
type RedisInvoiceLocker struct {
	client        redis.UniversalClient
	ttl           time.Duration
	waitTimeout   time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
}

// RedisLockerOption configures a RedisInvoiceLocker
type RedisLockerOption func(*RedisInvoiceLocker)

// WithLockTTL sets how long a lock survives a crashed holder
func WithLockTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisInvoiceLocker) { l.ttl = ttl }
}

// WithLockWait sets the wait timeout and polling interval
func WithLockWait(timeout, retry time.Duration) RedisLockerOption {
	return func(l *RedisInvoiceLocker) {
		l.waitTimeout = timeout
		l.retryInterval = retry
	}
}

// WithLockLogger sets the logger used to report failed releases
func WithLockLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisInvoiceLocker) { l.logger = logger }
}

// NewRedisInvoiceLocker creates a distributed locker on client
func NewRedisInvoiceLocker(client redis.UniversalClient, opts ...RedisLockerOption) *RedisInvoiceLocker {
	l := &RedisInvoiceLocker{
		client:        client,
		ttl:           30 * time.Second,
		waitTimeout:   10 * time.Second,
		retryInterval: 50 * time.Millisecond,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock polls SET NX until it wins, ctx is done or the wait times out.
func (l *RedisInvoiceLocker) Lock(ctx context.Context, orgID, id uuid.UUID) (shared.Unlock, error) {
	key := lockKey(orgID, id)
	token := uuid.NewString()

	waitCtx := ctx
	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("acquire invoice lock: %w", err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, shared.ErrLockTimeout
		}
	}
}

func (l *RedisInvoiceLocker) unlocker(key, token string) shared.Unlock {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("Failed to release invoice lock", zap.String("key", key), zap.Error(err))
			}
		})
	}
}

var (
	_ shared.Locker = (*InMemoryInvoiceLocker)(nil)
	_ shared.Locker = (*RedisInvoiceLocker)(nil)
)

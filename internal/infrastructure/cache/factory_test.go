package cache

import (
	"testing"
	"time"

	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLocker(t *testing.T) {
	log := zap.NewNop()

	l, err := NewLocker(config.LockConfig{Backend: config.BackendMemory, WaitTimeout: time.Second}, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &InMemoryInvoiceLocker{}, l)

	_, err = NewLocker(config.LockConfig{Backend: config.BackendRedis}, nil, log)
	assert.Error(t, err)

	_, err = NewLocker(config.LockConfig{Backend: "etcd"}, nil, log)
	assert.Error(t, err)
}

func TestNewIdempotencyStore(t *testing.T) {
	log := zap.NewNop()

	s, err := NewIdempotencyStore(config.IdempotencyConfig{Enabled: false}, nil, log)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = NewIdempotencyStore(config.IdempotencyConfig{Enabled: true, Backend: config.BackendMemory}, nil, log)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NoError(t, s.Close())

	_, err = NewIdempotencyStore(config.IdempotencyConfig{Enabled: true, Backend: config.BackendRedis}, nil, log)
	assert.Error(t, err)
}

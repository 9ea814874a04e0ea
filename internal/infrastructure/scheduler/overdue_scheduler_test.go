package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	invoiceapp "github.com/invoicing/backend/internal/application/invoice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) RefreshOverdue(ctx context.Context, limit int) (*invoiceapp.RefreshResult, error) {
	args := m.Called(ctx, limit)
	var result *invoiceapp.RefreshResult
	if r := args.Get(0); r != nil {
		result = r.(*invoiceapp.RefreshResult)
	}
	return result, args.Error(1)
}

func TestDefaultOverdueSchedulerConfig(t *testing.T) {
	cfg := DefaultOverdueSchedulerConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, time.Hour, cfg.Interval)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, 5*time.Minute, cfg.JobTimeout)
}

func TestOverdueScheduler_Sweep(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	refresher := new(mockRefresher)
	refresher.On("RefreshOverdue", mock.Anything, 50).
		Return(&invoiceapp.RefreshResult{Scanned: 3, Refreshed: 2, Failed: 1}, nil).Once()

	s := NewOverdueScheduler(refresher, nil, zap.New(core), OverdueSchedulerConfig{
		Enabled: true, Interval: time.Hour, BatchSize: 50, JobTimeout: time.Second,
	})
	result := s.Sweep(context.Background())

	require.NotNil(t, result)
	assert.Equal(t, 2, result.Refreshed)
	entries := logs.FilterMessage("Overdue sweep completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ContextMap()["scanned"])
	refresher.AssertExpectations(t)
}

func TestOverdueScheduler_SweepFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	refresher := new(mockRefresher)
	refresher.On("RefreshOverdue", mock.Anything, 0).Return(nil, errors.New("database down")).Once()

	s := NewOverdueScheduler(refresher, nil, zap.New(core), OverdueSchedulerConfig{Enabled: true, Interval: time.Hour})
	assert.Nil(t, s.Sweep(context.Background()))
	assert.Equal(t, 1, logs.FilterMessage("Overdue sweep failed").Len())
	refresher.AssertExpectations(t)
}

func TestOverdueScheduler_StartStop(t *testing.T) {
	swept := make(chan struct{}, 10)
	refresher := new(mockRefresher)
	refresher.On("RefreshOverdue", mock.Anything, 10).
		Run(func(mock.Arguments) {
			select {
			case swept <- struct{}{}:
			default:
			}
		}).
		Return(&invoiceapp.RefreshResult{}, nil)

	s := NewOverdueScheduler(refresher, nil, zap.NewNop(), OverdueSchedulerConfig{
		Enabled: true, Interval: 20 * time.Millisecond, BatchSize: 10,
	})
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")
	assert.True(t, s.IsRunning())

	for i := 0; i < 2; i++ {
		select {
		case <-swept:
		case <-time.After(2 * time.Second):
			t.Fatal("sweep did not run")
		}
	}

	require.NoError(t, s.TriggerImmediateSweep(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.TriggerImmediateSweep(context.Background()), ErrSchedulerNotRunning)
}

func TestOverdueScheduler_Disabled(t *testing.T) {
	refresher := new(mockRefresher)
	s := NewOverdueScheduler(refresher, nil, zap.NewNop(), OverdueSchedulerConfig{Enabled: false, Interval: time.Hour})

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(context.Background()))
	refresher.AssertNotCalled(t, "RefreshOverdue", mock.Anything, mock.Anything)
}

func TestOverdueScheduler_InvalidInterval(t *testing.T) {
	s := NewOverdueScheduler(new(mockRefresher), nil, zap.NewNop(), OverdueSchedulerConfig{Enabled: true})
	assert.ErrorIs(t, s.Start(context.Background()), ErrInvalidConfig)
	assert.False(t, s.IsRunning())
}

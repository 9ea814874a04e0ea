package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newEnabledLogsProvider(t *testing.T) *LoggerProvider {
	t.Helper()
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:19999",
		ServiceName:       "test-service",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = lp.Shutdown(ctx)
	})
	return lp
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(context.Background()))

	var nilProvider *LoggerProvider
	assert.False(t, nilProvider.IsEnabled())
}

func TestNewZapOTELCore_Disabled(t *testing.T) {
	core := NewZapOTELCore("svc", nil, zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestNewZapOTELCore_LevelFilter(t *testing.T) {
	core := NewZapOTELCore("svc", newEnabledLogsProvider(t), zapcore.WarnLevel)

	_, isFiltered := core.(*levelFilterCore)
	require.True(t, isFiltered)
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}

func TestLevelFilterCore(t *testing.T) {
	observed, logs := observer.New(zapcore.DebugLevel)
	filtered := &levelFilterCore{Core: observed, minLevel: zapcore.WarnLevel}

	logger := zap.New(filtered.With([]zapcore.Field{zap.String("service", "test")}))
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0].Message)
	assert.Equal(t, "error", entries[1].Message)
	assert.Equal(t, "test", entries[0].ContextMap()["service"])
}

func TestBridge(t *testing.T) {
	observed, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(observed)

	t.Run("disabled provider returns base", func(t *testing.T) {
		assert.Same(t, base, Bridge(base, nil, "svc", zapcore.InfoLevel))
	})

	t.Run("enabled provider tees", func(t *testing.T) {
		bridged := Bridge(base, newEnabledLogsProvider(t), "svc", zapcore.InfoLevel)
		require.NotSame(t, base, bridged)

		bridged.Info("payment recorded", zap.String("invoice_id", "abc"))
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "payment recorded", logs.All()[0].Message)
	})
}

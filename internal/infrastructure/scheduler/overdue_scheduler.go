package scheduler

import (
	"context"
	"sync"
	"time"

	invoiceapp "github.com/invoicing/backend/internal/application/invoice"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OverdueRefresher re-runs the status rules for past-due open invoices
type OverdueRefresher interface {
	RefreshOverdue(ctx context.Context, limit int) (*invoiceapp.RefreshResult, error)
}

// OverdueSchedulerConfig holds configuration for the overdue sweeper
type OverdueSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval is the time between sweeps
	Interval time.Duration

	// BatchSize caps the invoices refreshed per sweep; 0 means no cap
	BatchSize int

	// JobTimeout is the maximum time for one sweep
	JobTimeout time.Duration
}

// DefaultOverdueSchedulerConfig returns default configuration
func DefaultOverdueSchedulerConfig() OverdueSchedulerConfig {
	return OverdueSchedulerConfig{
		Enabled:    true,
		Interval:   time.Hour,
		BatchSize:  500,
		JobTimeout: 5 * time.Minute,
	}
}

// OverdueScheduler periodically moves open invoices whose due date has
// passed to OVERDUE. The status rules depend on the current date, so stored
// statuses drift unless something re-evaluates them.
type OverdueScheduler struct {
	refresher OverdueRefresher
	metrics   *telemetry.InvoiceMetrics
	logger    *zap.Logger
	config    OverdueSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewOverdueScheduler creates a new overdue sweeper. metrics may be nil.
func NewOverdueScheduler(
	refresher OverdueRefresher,
	metrics *telemetry.InvoiceMetrics,
	logger *zap.Logger,
	config OverdueSchedulerConfig,
) *OverdueScheduler {
	return &OverdueScheduler{
		refresher: refresher,
		metrics:   metrics,
		logger:    logger,
		config:    config,
	}
}

// Start runs one sweep immediately and then one per interval
func (s *OverdueScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Overdue scheduler is disabled")
		return nil
	}
	if s.config.Interval <= 0 {
		s.mu.Unlock()
		return ErrInvalidConfig
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Overdue scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *OverdueScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Overdue scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Overdue scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *OverdueScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Overdue sweep loop stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one refresh pass synchronously
func (s *OverdueScheduler) Sweep(ctx context.Context) *invoiceapp.RefreshResult {
	sweepCtx := ctx
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		sweepCtx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	startTime := time.Now()
	result, err := s.refresher.RefreshOverdue(sweepCtx, s.config.BatchSize)
	duration := time.Since(startTime)

	if err != nil {
		s.logger.Error("Overdue sweep failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if result == nil {
			return nil
		}
	}

	s.metrics.OverdueSweep(ctx, duration, result.Refreshed)
	s.logger.Info("Overdue sweep completed",
		zap.Duration("duration", duration),
		zap.Int("scanned", result.Scanned),
		zap.Int("refreshed", result.Refreshed),
		zap.Int("failed", result.Failed),
	)
	return result
}

// TriggerImmediateSweep runs a sweep in the background
func (s *OverdueScheduler) TriggerImmediateSweep(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate overdue sweep")
	go func() {
		defer s.wg.Done()
		s.Sweep(ctx)
	}()
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *OverdueScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

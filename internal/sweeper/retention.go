package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/crivus/quiziq/internal/adapter"
	"github.com/crivus/quiziq/internal/logger"
	"github.com/crivus/quiziq/internal/store/schema"
)

// EventPurger deletes expired events in bounded batches.
type EventPurger interface {
	DeleteEventsBefore(ctx context.Context, cutoffTS int64, limit int) (int64, error)
}

// PolicySource resolves the current platform policy.
type PolicySource interface {
	Get(ctx context.Context) (*schema.Policy, error)
}

// RetentionSweeperConfig holds configuration for the retention sweeper
type RetentionSweeperConfig struct {
	Interval  time.Duration // Time to sleep between sweep cycles
	BatchSize int           // Events to delete per statement
}

// retentionSweeper implements the Sweeper interface. Each cycle it reads the
// policy's retention window and deletes events whose ts fell out of it. Leads
// are never purged; they are owner data, not telemetry.
type retentionSweeper struct {
	config    *RetentionSweeperConfig
	store     EventPurger
	policies  PolicySource
	clock     adapter.Clock
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewRetentionSweeper creates a new retention sweeper
func NewRetentionSweeper(
	config *RetentionSweeperConfig,
	st EventPurger,
	policies PolicySource,
	clock adapter.Clock,
) Sweeper {
	return &retentionSweeper{
		config:    config,
		store:     st,
		policies:  policies,
		clock:     clock,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *retentionSweeper) Name() string {
	return "retention-sweeper"
}

// Start begins the sweeper's main loop
func (s *retentionSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.Info("Starting retention sweeper",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Retention sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.Info("Retention sweeper stop requested")
			return nil
		default:
			if err := s.runSweepCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error(err)
				}
			}
			if !s.sleep(ctx, s.config.Interval) {
				return nil
			}
		}
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *retentionSweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.Info("Stopping retention sweeper")
	close(s.stopChan)

	select {
	case <-s.stoppedCh:
		logger.Info("Retention sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.Warn("Retention sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSweepCycle deletes one retention window's worth of expired events
func (s *retentionSweeper) runSweepCycle(ctx context.Context) error {
	pol, err := s.policies.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}
	if pol.RetentionDays < 1 {
		// Retention disabled, nothing to purge
		return nil
	}

	cutoff := s.clock.Now().AddDate(0, 0, -pol.RetentionDays).UnixMilli()

	var total int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopChan:
			return nil
		default:
		}

		deleted, err := s.store.DeleteEventsBefore(ctx, cutoff, s.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to purge expired events: %w", err)
		}
		total += deleted
		if deleted < int64(s.config.BatchSize) {
			break
		}
	}

	if total > 0 {
		logger.Info("Purged expired events",
			zap.Int64("deleted", total),
			zap.Int64("cutoff_ts", cutoff),
			zap.Int("retention_days", pol.RetentionDays),
		)
	}
	return nil
}

// sleep waits for the given duration, returning false if interrupted
func (s *retentionSweeper) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	case <-s.clock.After(d):
		return true
	}
}

// Package scheduler runs periodic background jobs inside the API process.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	salesapp "github.com/storeops/backend/internal/application/sales"
)

// QuoteExpirer moves overdue quotes to EXPIRED
type QuoteExpirer interface {
	ExpireOverdueQuotes(ctx context.Context) (*salesapp.ExpirySweepResult, error)
}

// QuoteExpiryJobConfig holds configuration for the quote expiry job
type QuoteExpiryJobConfig struct {
	// Interval is the time between sweeps
	Interval time.Duration
	// Timeout bounds a single sweep
	Timeout time.Duration
	// RunOnStart sweeps once immediately instead of waiting a full interval
	RunOnStart bool
}

// DefaultQuoteExpiryJobConfig returns default quote expiry job configuration
func DefaultQuoteExpiryJobConfig() QuoteExpiryJobConfig {
	return QuoteExpiryJobConfig{
		Interval:   15 * time.Minute,
		Timeout:    2 * time.Minute,
		RunOnStart: true,
	}
}

// Validate validates the configuration
func (c QuoteExpiryJobConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.Timeout <= 0 || c.Timeout > c.Interval {
		return fmt.Errorf("%w: timeout must be positive and no longer than the interval", ErrInvalidConfig)
	}
	return nil
}

// QuoteExpiryJob sweeps overdue quotes on an interval. It exists for
// deployments without an external trigger for POST /quotes/expire; both
// may run at once because a quote only expires through a versioned save.
type QuoteExpiryJob struct {
	config  QuoteExpiryJobConfig
	expirer QuoteExpirer
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  atomic.Bool
	last      *salesapp.ExpirySweepResult
	lastErr   error
}

// NewQuoteExpiryJob creates a new quote expiry job
func NewQuoteExpiryJob(config QuoteExpiryJobConfig, expirer QuoteExpirer, logger *zap.Logger) (*QuoteExpiryJob, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteExpiryJob{
		config:  config,
		expirer: expirer,
		logger:  logger.Named("quote_expiry"),
	}, nil
}

// Start starts the job loop. Starting a running job is a no-op.
func (j *QuoteExpiryJob) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.isRunning {
		return nil
	}
	j.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel

	j.wg.Add(1)
	go j.runLoop(ctx)

	j.logger.Info("Quote expiry job started",
		zap.Duration("interval", j.config.Interval),
		zap.Duration("timeout", j.config.Timeout),
	)
	return nil
}

// Stop stops the loop and waits for an in-flight sweep, bounded by ctx
func (j *QuoteExpiryJob) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return nil
	}
	j.isRunning = false
	cancel := j.cancel
	j.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		j.logger.Info("Quote expiry job stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports whether the loop is active
func (j *QuoteExpiryJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.isRunning
}

// LastResult returns the outcome of the most recent sweep
func (j *QuoteExpiryJob) LastResult() (*salesapp.ExpirySweepResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last, j.lastErr
}

func (j *QuoteExpiryJob) runLoop(ctx context.Context) {
	defer j.wg.Done()

	if j.config.RunOnStart {
		_, _ = j.RunOnce(ctx)
	}

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = j.RunOnce(ctx)
		}
	}
}

// RunOnce performs one sweep. Overlapping calls return ErrSweepInProgress.
func (j *QuoteExpiryJob) RunOnce(ctx context.Context) (*salesapp.ExpirySweepResult, error) {
	if !j.sweeping.CompareAndSwap(false, true) {
		return nil, ErrSweepInProgress
	}
	defer j.sweeping.Store(false)

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	start := time.Now()
	result, err := j.expirer.ExpireOverdueQuotes(ctx)
	if err != nil {
		j.logger.Error("Quote expiry sweep failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
	} else {
		j.logger.Debug("Quote expiry sweep finished",
			zap.Int("expired", result.Expired),
			zap.Int("failed", result.Failed),
			zap.Duration("duration", time.Since(start)),
		)
	}

	j.mu.Lock()
	if result != nil {
		j.last = result
	}
	j.lastErr = err
	j.mu.Unlock()
	return result, err
}

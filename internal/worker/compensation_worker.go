package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seatledger/seatledger/internal/metrics"
	"github.com/seatledger/seatledger/internal/repository"
	"github.com/seatledger/seatledger/pkg/logger"
	"go.uber.org/zap"
)

// CompensationWorkerConfig contains configuration for the compensation worker
type CompensationWorkerConfig struct {
	// PollInterval is the interval between scans of the compensation queue
	PollInterval time.Duration
	// BatchSize is the number of pending compensations drained per scan
	BatchSize int
}

// DefaultCompensationWorkerConfig returns default configuration
func DefaultCompensationWorkerConfig() *CompensationWorkerConfig {
	return &CompensationWorkerConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
	}
}

// CompensationWorker drains seat restores that were recorded with a cancel
// but not yet settled. Each settle is atomic with the applied flag, so a
// row is restored exactly once no matter how many drains see it.
type CompensationWorker struct {
	compensations repository.CompensationRepository
	config        *CompensationWorkerConfig
	log           *zap.Logger
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool

	// Stats
	totalApplied int64
	totalFailed  int64
	lastScanTime time.Time
}

// NewCompensationWorker creates a new compensation worker
func NewCompensationWorker(
	compensations repository.CompensationRepository,
	config *CompensationWorkerConfig,
) *CompensationWorker {
	if config == nil {
		config = DefaultCompensationWorkerConfig()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	return &CompensationWorker{
		compensations: compensations,
		config:        config,
		log:           logger.Get(),
		stopCh:        make(chan struct{}),
	}
}

// Start starts the compensation worker
func (w *CompensationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("compensation worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting compensation worker",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
	)

	w.wg.Add(1)
	go w.scan(ctx)

	return nil
}

// Stop stops the compensation worker and waits for the current scan
func (w *CompensationWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.log.Info("Stopping compensation worker")
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Compensation worker stopped")
}

// scan periodically drains pending compensations
func (w *CompensationWorker) scan(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.Drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain applies one batch of pending compensations and returns how many
// were applied
func (w *CompensationWorker) Drain(ctx context.Context) int {
	w.mu.Lock()
	w.lastScanTime = time.Now()
	w.mu.Unlock()

	pending, err := w.compensations.ListPending(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error("Failed to list pending compensations", zap.Error(err))
		return 0
	}
	if len(pending) == 0 {
		return 0
	}

	applied := 0
	for _, comp := range pending {
		if err := w.compensations.Apply(ctx, comp); err != nil {
			w.mu.Lock()
			w.totalFailed++
			w.mu.Unlock()

			w.log.Warn("Failed to apply compensation",
				zap.String("compensation_id", comp.ID),
				zap.String("event_id", comp.EventID),
				zap.Int("delta", comp.Delta),
				zap.Int("attempts", comp.Attempts+1),
				zap.Error(err),
			)
			if err := w.compensations.IncrementAttempts(ctx, comp.ID); err != nil {
				w.log.Error("Failed to record compensation attempt",
					zap.String("compensation_id", comp.ID),
					zap.Error(err),
				)
			}
			continue
		}

		applied++
		w.mu.Lock()
		w.totalApplied++
		w.mu.Unlock()

		metrics.RecordCompensationApplied(ctx, comp.EventID)
		w.log.Info("Applied seat compensation",
			zap.String("compensation_id", comp.ID),
			zap.String("event_id", comp.EventID),
			zap.String("reservation_id", comp.ReservationID),
			zap.Int("delta", comp.Delta),
			zap.String("reason", comp.Reason),
		)
	}

	return applied
}

// Stats returns a snapshot of worker counters
func (w *CompensationWorker) Stats() (applied, failed int64, lastScan time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.totalApplied, w.totalFailed, w.lastScanTime
}

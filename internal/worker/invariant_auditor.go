package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/observability"
	"go.uber.org/zap"
)

// LedgerAuditor reports redeem requests that break the hold/paid invariant.
type LedgerAuditor interface {
	Audit(ctx context.Context) ([]models.LedgerViolation, error)
}

// InvariantAuditor periodically scans redeem ledgers for violations.
type InvariantAuditor struct {
	svc      LedgerAuditor
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewInvariantAuditor constructs a worker with a ten minute default interval.
func NewInvariantAuditor(svc LedgerAuditor) *InvariantAuditor {
	return &InvariantAuditor{
		svc:      svc,
		interval: 10 * time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the run interval.
func (w *InvariantAuditor) WithInterval(interval time.Duration) *InvariantAuditor {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and audits at the configured interval.
func (w *InvariantAuditor) Start(ctx context.Context) {
	zap.L().Info("invariant auditor starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately at startup.
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("invariant auditor context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("invariant auditor stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *InvariantAuditor) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *InvariantAuditor) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *InvariantAuditor) runOnce(ctx context.Context) {
	violations, err := w.svc.Audit(ctx)
	if err != nil {
		observability.IncrementWorkerRun("invariant_auditor", "failed")
		zap.L().Error("invariant audit failed", zap.Error(err))
		return
	}
	result := "success"
	if len(violations) > 0 {
		result = "violations"
	}
	observability.IncrementWorkerRun("invariant_auditor", result)
}

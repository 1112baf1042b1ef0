package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ayo6706/cashdesk/internal/observability"
	"go.uber.org/zap"
)

// ExpiredLockReleaser releases processing locks whose lease has lapsed.
type ExpiredLockReleaser interface {
	ReleaseExpired(ctx context.Context) (int, error)
}

// LockReaper clears stale processing locks so abandoned modals do not block other agents.
// Safe for concurrent instances: expired rows are claimed with FOR UPDATE SKIP LOCKED.
type LockReaper struct {
	locks    ExpiredLockReleaser
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewLockReaper(locks ExpiredLockReleaser) *LockReaper {
	return &LockReaper{
		locks:    locks,
		interval: time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval sets how often leases are checked.
func (w *LockReaper) WithInterval(interval time.Duration) *LockReaper {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks until Stop is called or ctx is cancelled.
func (w *LockReaper) Start(ctx context.Context) {
	zap.L().Info("lock reaper starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("lock reaper context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("lock reaper stop signal received")
			return
		case <-ticker.C:
			w.ReapOnce(ctx)
		}
	}
}

func (w *LockReaper) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the reaper in a goroutine and returns a stop function.
func (w *LockReaper) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// ReapOnce runs a single pass and returns how many locks were released.
func (w *LockReaper) ReapOnce(ctx context.Context) int {
	n, err := w.locks.ReleaseExpired(ctx)
	if err != nil {
		observability.IncrementWorkerRun("lock_reaper", "failed")
		zap.L().Error("lock reaper run failed", zap.Int("released", n), zap.Error(err))
		return n
	}
	observability.IncrementWorkerRun("lock_reaper", "success")
	if n > 0 {
		zap.L().Info("expired processing locks released", zap.Int("released", n))
	}
	return n
}

func (w *LockReaper) String() string {
	return fmt.Sprintf("LockReaper(interval=%v)", w.interval)
}

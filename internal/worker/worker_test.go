package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReleaser struct {
	calls atomic.Int32
	n     int
	err   error
}

func (f *fakeReleaser) ReleaseExpired(context.Context) (int, error) {
	f.calls.Add(1)
	return f.n, f.err
}

type fakeAuditor struct {
	calls atomic.Int32
}

func (f *fakeAuditor) Audit(context.Context) ([]models.LedgerViolation, error) {
	f.calls.Add(1)
	return []models.LedgerViolation{{RedeemID: uuid.New()}}, nil
}

func TestLockReaperReapOnce(t *testing.T) {
	ok := &fakeReleaser{n: 3}
	assert.Equal(t, 3, NewLockReaper(ok).ReapOnce(context.Background()))

	failing := &fakeReleaser{n: 1, err: errors.New("db down")}
	assert.Equal(t, 1, NewLockReaper(failing).ReapOnce(context.Background()))
}

func TestLockReaperTicksUntilStopped(t *testing.T) {
	rel := &fakeReleaser{}
	w := NewLockReaper(rel).WithInterval(5 * time.Millisecond)
	stop := w.Run(context.Background())

	require.Eventually(t, func() bool { return rel.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	stop()
	stop()
	assert.Contains(t, w.String(), "5ms")
}

func TestInvariantAuditorRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	aud := &fakeAuditor{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w := NewInvariantAuditor(aud).WithInterval(time.Hour)
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return aud.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("auditor did not stop after cancel")
	}
}

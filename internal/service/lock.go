package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/observability"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const expiredLockBatch = 100

// AbandonHook runs inside the transaction that drops a lock outside its owning flow
// (manual release, admin release, lease expiry or takeover of an expired lease).
type AbandonHook func(ctx context.Context, q *repository.Queries, lock models.ExpiredLock) error

// LockService implements the processing_state soft lock with server-enforced leases.
type LockService struct {
	store QueryStore
	audit *AuditService
	ttl   time.Duration
	now   func() time.Time

	mu    sync.RWMutex
	hooks []AbandonHook
}

func NewLockService(store QueryStore, ttl time.Duration) *LockService {
	return &LockService{
		store: store,
		audit: NewAuditService(),
		ttl:   ttl,
		now:   time.Now,
	}
}

// RegisterAbandonHook adds a hook run whenever a lock is dropped outside its owning flow.
func (s *LockService) RegisterAbandonHook(h AbandonHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// TTL is the lease length. Zero disables expiry.
func (s *LockService) TTL() time.Duration {
	return s.ttl
}

// lockedByOther reports whether st is a live lease held by someone other than actor.
func (s *LockService) lockedByOther(st models.ProcessingState, actor uuid.UUID) bool {
	return st.LockedByOther(actor, s.now(), s.ttl)
}

func (s *LockService) staleBefore() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(-s.ttl)
}

func (s *LockService) runHooks(ctx context.Context, q *repository.Queries, lock models.ExpiredLock) error {
	s.mu.RLock()
	hooks := append([]AbandonHook(nil), s.hooks...)
	s.mu.RUnlock()
	for _, h := range hooks {
		if err := h(ctx, q, lock); err != nil {
			return err
		}
	}
	return nil
}

// Acquire claims the record for actor with a single conditional update, then re-reads it to
// confirm ownership.
func (s *LockService) Acquire(ctx context.Context, entity string, id, actor uuid.UUID, modal string) (models.ProcessingState, error) {
	var st models.ProcessingState
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		var err error
		st, err = s.acquireTx(ctx, q, entity, id, actor, modal)
		return err
	})
	return st, err
}

func (s *LockService) acquireTx(ctx context.Context, q *repository.Queries, entity string, id, actor uuid.UUID, modal string) (models.ProcessingState, error) {
	if modal == domain.ModalNone || !domain.IsModalType(modal) {
		return models.ProcessingState{}, ErrInvalidModal
	}
	prev, err := q.GetLock(ctx, entity, id)
	if err != nil {
		return models.ProcessingState{}, err
	}
	// an owner switching modals gives up the work of the previous modal
	if prev.HeldBy(actor) && prev.ModalType != modal {
		if err := s.runHooks(ctx, q, models.ExpiredLock{Entity: entity, ID: id, Owner: actor, ModalType: prev.ModalType}); err != nil {
			return models.ProcessingState{}, err
		}
	}

	rows, err := q.AcquireLock(ctx, repository.AcquireLockParams{
		Entity:      entity,
		ID:          id,
		Actor:       actor,
		ModalType:   modal,
		StaleBefore: s.staleBefore(),
	})
	if err != nil {
		return models.ProcessingState{}, err
	}

	current, err := q.GetLock(ctx, entity, id)
	if err != nil {
		return models.ProcessingState{}, err
	}
	if rows == 0 || !current.HeldBy(actor) {
		observability.IncrementLockEvent(entity, "conflict")
		return current, ErrLockHeld
	}

	if prev.Status == domain.ProcessingInProgress && prev.ProcessedBy != nil && *prev.ProcessedBy != actor {
		zap.L().Info("expired processing lock taken over",
			zap.String("entity", entity),
			zap.String("id", id.String()),
			zap.String("previous_owner", prev.ProcessedBy.String()),
			zap.String("actor", actor.String()))
		observability.IncrementLockEvent(entity, "expired")
		if err := s.runHooks(ctx, q, models.ExpiredLock{Entity: entity, ID: id, Owner: *prev.ProcessedBy, ModalType: prev.ModalType}); err != nil {
			return models.ProcessingState{}, err
		}
	}

	observability.IncrementLockEvent(entity, "acquired")
	return current, nil
}

// Release resets the record to idle. Releasing an idle record is a no-op.
func (s *LockService) Release(ctx context.Context, entity string, id, actor uuid.UUID) error {
	return s.store.RunInTx(ctx, func(q *repository.Queries) error {
		st, err := q.GetLock(ctx, entity, id)
		if err != nil {
			return err
		}
		if st.Status == domain.ProcessingIdle {
			return nil
		}
		if !st.HeldBy(actor) {
			return ErrLockNotHeld
		}
		rows, err := q.ReleaseLock(ctx, entity, id, actor)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "release lock"); err != nil {
			return err
		}
		observability.IncrementLockEvent(entity, "released")
		return s.runHooks(ctx, q, models.ExpiredLock{Entity: entity, ID: id, Owner: actor, ModalType: st.ModalType})
	})
}

// ForceRelease lets an admin clear a lock held by anyone.
func (s *LockService) ForceRelease(ctx context.Context, entity string, id, admin uuid.UUID) error {
	return s.store.RunInTx(ctx, func(q *repository.Queries) error {
		st, err := q.GetLock(ctx, entity, id)
		if err != nil {
			return err
		}
		if st.Status == domain.ProcessingIdle || st.ProcessedBy == nil {
			return nil
		}
		if _, err := q.ForceReleaseLock(ctx, entity, id); err != nil {
			return err
		}
		owner := *st.ProcessedBy
		metadata, err := encodeMetadata(map[string]any{"previous_owner": owner, "modal_type": st.ModalType})
		if err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, entityTypeForTable(entity), id, &admin, "lock_force_released", domain.ProcessingInProgress, domain.ProcessingIdle, metadata); err != nil {
			return err
		}
		observability.IncrementLockEvent(entity, "released")
		return s.runHooks(ctx, q, models.ExpiredLock{Entity: entity, ID: id, Owner: owner, ModalType: st.ModalType})
	})
}

// Current reads the processing state of a record.
func (s *LockService) Current(ctx context.Context, entity string, id uuid.UUID) (models.ProcessingState, error) {
	return s.store.Queries().GetLock(ctx, entity, id)
}

// Resume lists every record whose lock actor still holds, so a reconnecting client can reopen its modal.
func (s *LockService) Resume(ctx context.Context, actor uuid.UUID) ([]models.HeldLock, error) {
	locks, err := s.store.Queries().ListLocksHeldBy(ctx, actor)
	if err != nil {
		return nil, err
	}
	if s.ttl <= 0 {
		return locks, nil
	}
	live := locks[:0]
	cutoff := s.staleBefore()
	for _, l := range locks {
		if l.AcquiredAt.Before(cutoff) {
			continue
		}
		live = append(live, l)
	}
	return live, nil
}

// ReleaseExpired clears every lease older than the TTL and returns how many were released.
func (s *LockService) ReleaseExpired(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	total := 0
	var errs []error
	for _, entity := range repository.LockableEntities() {
		var released []models.ExpiredLock
		err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
			var err error
			released, err = q.ReleaseExpiredLocks(ctx, entity, s.staleBefore(), expiredLockBatch)
			if err != nil {
				return err
			}
			for _, l := range released {
				if err := s.runHooks(ctx, q, l); err != nil {
					return fmt.Errorf("abandon %s %s: %w", entity, l.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, l := range released {
			zap.L().Info("processing lock lease expired",
				zap.String("entity", entity),
				zap.String("id", l.ID.String()),
				zap.String("owner", l.Owner.String()),
				zap.String("modal_type", l.ModalType))
		}
		observability.AddLockEvents(entity, "expired", len(released))
		total += len(released)
	}
	return total, errors.Join(errs...)
}

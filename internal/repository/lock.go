package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/google/uuid"
)

// ErrUnknownEntity is returned for a table that carries no processing lock.
var ErrUnknownEntity = errors.New("unknown lockable entity")

// Lockable tables. Table names are interpolated into SQL only from this set.
const (
	EntityRedeemRequests   = "redeem_requests"
	EntityRechargeRequests = "recharge_requests"
	EntityTransferRequests = "transfer_requests"
)

var lockableTables = map[string]struct{}{
	EntityRedeemRequests:   {},
	EntityRechargeRequests: {},
	EntityTransferRequests: {},
}

// LockableEntities lists the tables carrying a processing lock.
func LockableEntities() []string {
	return []string{EntityRedeemRequests, EntityRechargeRequests, EntityTransferRequests}
}

func lockTable(entity string) (string, error) {
	if _, ok := lockableTables[entity]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}
	return entity, nil
}

type AcquireLockParams struct {
	Entity      string
	ID          uuid.UUID
	Actor       uuid.UUID
	ModalType   string
	StaleBefore time.Time
}

// AcquireLock is a compare-and-swap: it only writes when the row is idle, already owned by
// the actor, or its lease started before StaleBefore.
func (q *Queries) AcquireLock(ctx context.Context, arg AcquireLockParams) (int64, error) {
	table, err := lockTable(arg.Entity)
	if err != nil {
		return 0, err
	}
	query := `UPDATE ` + table + `
		SET processing_status = 'in_progress', locked_by = $2, modal_type = $3,
			lock_acquired_at = NOW(), updated_at = NOW()
		WHERE id = $1
			AND (processing_status = 'idle' OR locked_by = $2 OR lock_acquired_at < $4)`
	tag, err := q.db.Exec(ctx, query, arg.ID, arg.Actor, arg.ModalType, arg.StaleBefore)
	if err != nil {
		return 0, fmt.Errorf("acquire lock on %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// GetLock reads the processing state of a record.
func (q *Queries) GetLock(ctx context.Context, entity string, id uuid.UUID) (models.ProcessingState, error) {
	table, err := lockTable(entity)
	if err != nil {
		return models.ProcessingState{}, err
	}
	var st models.ProcessingState
	query := `SELECT processing_status, locked_by, modal_type, lock_acquired_at FROM ` + table + ` WHERE id = $1`
	if err := q.db.QueryRow(ctx, query, id).Scan(&st.Status, &st.ProcessedBy, &st.ModalType, &st.AcquiredAt); err != nil {
		return models.ProcessingState{}, notFound(err)
	}
	return st, nil
}

// ReleaseLock resets the record to idle when actor owns the lock.
func (q *Queries) ReleaseLock(ctx context.Context, entity string, id, actor uuid.UUID) (int64, error) {
	table, err := lockTable(entity)
	if err != nil {
		return 0, err
	}
	query := `UPDATE ` + table + `
		SET processing_status = 'idle', locked_by = NULL, modal_type = 'none', lock_acquired_at = NULL, updated_at = NOW()
		WHERE id = $1 AND locked_by = $2`
	tag, err := q.db.Exec(ctx, query, id, actor)
	if err != nil {
		return 0, fmt.Errorf("release lock on %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// ForceReleaseLock resets the record to idle regardless of owner.
func (q *Queries) ForceReleaseLock(ctx context.Context, entity string, id uuid.UUID) (int64, error) {
	table, err := lockTable(entity)
	if err != nil {
		return 0, err
	}
	query := `UPDATE ` + table + `
		SET processing_status = 'idle', locked_by = NULL, modal_type = 'none', lock_acquired_at = NULL, updated_at = NOW()
		WHERE id = $1 AND processing_status = 'in_progress'`
	tag, err := q.db.Exec(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("force release lock on %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// ListLocksHeldBy returns every record locked by actor across the lockable tables.
func (q *Queries) ListLocksHeldBy(ctx context.Context, actor uuid.UUID) ([]models.HeldLock, error) {
	query := `SELECT 'redeem_requests' AS entity, id, modal_type, lock_acquired_at FROM redeem_requests
			WHERE processing_status = 'in_progress' AND locked_by = $1
		UNION ALL
		SELECT 'recharge_requests', id, modal_type, lock_acquired_at FROM recharge_requests
			WHERE processing_status = 'in_progress' AND locked_by = $1
		UNION ALL
		SELECT 'transfer_requests', id, modal_type, lock_acquired_at FROM transfer_requests
			WHERE processing_status = 'in_progress' AND locked_by = $1
		ORDER BY lock_acquired_at DESC`
	rows, err := q.db.Query(ctx, query, actor)
	if err != nil {
		return nil, fmt.Errorf("list held locks: %w", err)
	}
	defer rows.Close()

	out := []models.HeldLock{}
	for rows.Next() {
		var (
			l          models.HeldLock
			acquiredAt *time.Time
		)
		if err := rows.Scan(&l.Entity, &l.ID, &l.ModalType, &acquiredAt); err != nil {
			return nil, fmt.Errorf("scan held lock: %w", err)
		}
		if acquiredAt != nil {
			l.AcquiredAt = *acquiredAt
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ReleaseExpiredLocks resets up to limit leases that started before staleBefore and returns their previous owners.
func (q *Queries) ReleaseExpiredLocks(ctx context.Context, entity string, staleBefore time.Time, limit int32) ([]models.ExpiredLock, error) {
	table, err := lockTable(entity)
	if err != nil {
		return nil, err
	}
	query := `WITH stale AS (
			SELECT id, locked_by, modal_type FROM ` + table + `
			WHERE processing_status = 'in_progress' AND lock_acquired_at < $1
			ORDER BY lock_acquired_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE ` + table + ` t
		SET processing_status = 'idle', locked_by = NULL, modal_type = 'none', lock_acquired_at = NULL, updated_at = NOW()
		FROM stale
		WHERE t.id = stale.id
		RETURNING stale.id, stale.locked_by, stale.modal_type`
	rows, err := q.db.Query(ctx, query, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("release expired locks on %s: %w", table, err)
	}
	defer rows.Close()

	var out []models.ExpiredLock
	for rows.Next() {
		var (
			l     models.ExpiredLock
			owner *uuid.UUID
		)
		if err := rows.Scan(&l.ID, &owner, &l.ModalType); err != nil {
			return nil, fmt.Errorf("scan expired lock: %w", err)
		}
		l.Entity = entity
		if owner != nil {
			l.Owner = *owner
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

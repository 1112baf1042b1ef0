package repository

import (
	"context"
	"fmt"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transferColumns = `id, player_id, from_platform, to_platform, amount, status, processed_by, processed_at, reason,
	processing_status, locked_by, modal_type, lock_acquired_at, created_at, updated_at`

func scanTransfer(row pgx.Row) (*models.TransferRequest, error) {
	var t models.TransferRequest
	err := row.Scan(
		&t.ID, &t.PlayerID, &t.FromPlatform, &t.ToPlatform, (*int64)(&t.Amount), &t.Status,
		&t.ProcessedBy, &t.ProcessedAt, &t.Reason,
		&t.Processing.Status, &t.Processing.ProcessedBy, &t.Processing.ModalType, &t.Processing.AcquiredAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type CreateTransferRequestParams struct {
	PlayerID     uuid.UUID
	FromPlatform string
	ToPlatform   string
	Amount       domain.Amount
}

func (q *Queries) CreateTransferRequest(ctx context.Context, arg CreateTransferRequestParams) (*models.TransferRequest, error) {
	query := `INSERT INTO transfer_requests (player_id, from_platform, to_platform, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + transferColumns
	t, err := scanTransfer(q.db.QueryRow(ctx, query, arg.PlayerID, arg.FromPlatform, arg.ToPlatform, int64(arg.Amount)))
	if err != nil {
		return nil, fmt.Errorf("create transfer request: %w", err)
	}
	return t, nil
}

func (q *Queries) GetTransferRequest(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE id = $1`
	t, err := scanTransfer(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (q *Queries) GetTransferRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	query := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE id = $1 FOR UPDATE`
	t, err := scanTransfer(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (q *Queries) ListTransferRequests(ctx context.Context, arg ListParams) ([]*models.TransferRequest, error) {
	arg = arg.normalized()
	query := `SELECT ` + transferColumns + ` FROM transfer_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`
	rows, err := q.db.Query(ctx, query, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("list transfer requests: %w", err)
	}
	defer rows.Close()

	out := []*models.TransferRequest{}
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer request: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type FinishTransferRequestParams struct {
	ID          uuid.UUID
	Status      string
	ProcessedBy uuid.UUID
	Reason      string
}

// FinishTransferRequest stamps the decision on a pending transfer and resets its lock.
func (q *Queries) FinishTransferRequest(ctx context.Context, arg FinishTransferRequestParams) (*models.TransferRequest, error) {
	query := `UPDATE transfer_requests
		SET status = $2, processed_by = $3, processed_at = NOW(), reason = $4,
			processing_status = 'idle', locked_by = NULL, modal_type = 'none', lock_acquired_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + transferColumns
	t, err := scanTransfer(q.db.QueryRow(ctx, query, arg.ID, arg.Status, arg.ProcessedBy, arg.Reason))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

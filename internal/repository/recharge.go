package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const rechargeColumns = `id, player_id, amount, bonus_amount, credits_loaded, payment_method, status,
	assigned_redeem, assigned_ct, screenshot_url,
	processing_status, locked_by, modal_type, lock_acquired_at, created_at, updated_at`

func scanRecharge(row pgx.Row) (*models.RechargeRequest, error) {
	var (
		r        models.RechargeRequest
		assigned []byte
	)
	err := row.Scan(
		&r.ID, &r.PlayerID,
		(*int64)(&r.Amount), (*int64)(&r.BonusAmount), (*int64)(&r.CreditsLoaded),
		&r.PaymentMethod, &r.Status,
		&assigned, &r.AssignedCT, &r.ScreenshotURL,
		&r.Processing.Status, &r.Processing.ProcessedBy, &r.Processing.ModalType, &r.Processing.AcquiredAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(assigned) > 0 && string(assigned) != "null" {
		var ar models.AssignedRedeem
		if err := json.Unmarshal(assigned, &ar); err != nil {
			return nil, fmt.Errorf("decode assigned redeem: %w", err)
		}
		r.AssignedRedeem = &ar
	}
	return &r, nil
}

type CreateRechargeRequestParams struct {
	PlayerID      uuid.UUID
	Amount        domain.Amount
	BonusAmount   domain.Amount
	PaymentMethod string
}

func (q *Queries) CreateRechargeRequest(ctx context.Context, arg CreateRechargeRequestParams) (*models.RechargeRequest, error) {
	query := `INSERT INTO recharge_requests (player_id, amount, bonus_amount, payment_method)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + rechargeColumns
	r, err := scanRecharge(q.db.QueryRow(ctx, query, arg.PlayerID, int64(arg.Amount), int64(arg.BonusAmount), arg.PaymentMethod))
	if err != nil {
		return nil, fmt.Errorf("create recharge request: %w", err)
	}
	return r, nil
}

func (q *Queries) GetRechargeRequest(ctx context.Context, id uuid.UUID) (*models.RechargeRequest, error) {
	query := `SELECT ` + rechargeColumns + ` FROM recharge_requests WHERE id = $1`
	r, err := scanRecharge(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (q *Queries) GetRechargeRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.RechargeRequest, error) {
	query := `SELECT ` + rechargeColumns + ` FROM recharge_requests WHERE id = $1 FOR UPDATE`
	r, err := scanRecharge(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (q *Queries) ListRechargeRequests(ctx context.Context, arg ListParams) ([]*models.RechargeRequest, error) {
	arg = arg.normalized()
	query := `SELECT ` + rechargeColumns + ` FROM recharge_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`
	rows, err := q.db.Query(ctx, query, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("list recharge requests: %w", err)
	}
	defer rows.Close()

	out := []*models.RechargeRequest{}
	for rows.Next() {
		r, err := scanRecharge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recharge request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AssignRechargeToRedeem matches a pending recharge to a redeem request.
// The assigned_ct IS NULL guard keeps a recharge from being matched to a tag and a player at once.
func (q *Queries) AssignRechargeToRedeem(ctx context.Context, id uuid.UUID, assigned models.AssignedRedeem) (int64, error) {
	payload, err := json.Marshal(assigned)
	if err != nil {
		return 0, fmt.Errorf("encode assigned redeem: %w", err)
	}
	query := `UPDATE recharge_requests
		SET status = 'assigned', assigned_redeem = $2, assigned_ct = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND assigned_ct IS NULL`
	tag, err := q.db.Exec(ctx, query, id, payload)
	if err != nil {
		return 0, fmt.Errorf("assign recharge to redeem: %w", err)
	}
	return tag.RowsAffected(), nil
}

// AssignRechargeToTag matches a pending recharge to a company tag.
func (q *Queries) AssignRechargeToTag(ctx context.Context, id, tagID uuid.UUID) (int64, error) {
	query := `UPDATE recharge_requests
		SET status = 'assigned', assigned_ct = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending' AND assigned_ct IS NULL AND assigned_redeem IS NULL`
	tag, err := q.db.Exec(ctx, query, id, tagID)
	if err != nil {
		return 0, fmt.Errorf("assign recharge to tag: %w", err)
	}
	return tag.RowsAffected(), nil
}

type UpdateRechargeStatusParams struct {
	ID         uuid.UUID
	FromStatus string
	Status     string
}

// UpdateRechargeStatus moves a recharge between statuses when it is still in FromStatus.
func (q *Queries) UpdateRechargeStatus(ctx context.Context, arg UpdateRechargeStatusParams) (int64, error) {
	query := `UPDATE recharge_requests SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`
	tag, err := q.db.Exec(ctx, query, arg.ID, arg.FromStatus, arg.Status)
	if err != nil {
		return 0, fmt.Errorf("update recharge status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) SubmitRechargeScreenshot(ctx context.Context, id uuid.UUID, url string) (int64, error) {
	query := `UPDATE recharge_requests
		SET status = 'sc_submitted', screenshot_url = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ('assigned', 'assigned_and_hold')`
	tag, err := q.db.Exec(ctx, query, id, url)
	if err != nil {
		return 0, fmt.Errorf("submit recharge screenshot: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) CompleteRechargeRequest(ctx context.Context, id uuid.UUID, fromStatus string, creditsLoaded domain.Amount) (int64, error) {
	query := `UPDATE recharge_requests
		SET status = 'completed', credits_loaded = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`
	tag, err := q.db.Exec(ctx, query, id, fromStatus, int64(creditsLoaded))
	if err != nil {
		return 0, fmt.Errorf("complete recharge request: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RejectRechargeScreenshot clears both assignments; RequeueRechargeRequest makes the recharge
// matchable again.
func (q *Queries) RejectRechargeScreenshot(ctx context.Context, id uuid.UUID) (int64, error) {
	query := `UPDATE recharge_requests
		SET status = 'sc_rejected', assigned_redeem = NULL, assigned_ct = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'sc_submitted'`
	tag, err := q.db.Exec(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("reject recharge screenshot: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RequeueRechargeRequest moves a rejected recharge back to pending and drops its stale screenshot.
func (q *Queries) RequeueRechargeRequest(ctx context.Context, id uuid.UUID) (int64, error) {
	query := `UPDATE recharge_requests
		SET status = 'pending', screenshot_url = '', updated_at = NOW()
		WHERE id = $1 AND status = 'sc_rejected'`
	tag, err := q.db.Exec(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("requeue recharge request: %w", err)
	}
	return tag.RowsAffected(), nil
}

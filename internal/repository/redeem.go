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

const redeemColumns = `id, player_id, total_amount, amount_hold, amount_paid, payment_methods, status,
	verified_by, verification_notes, verified_at,
	processing_status, locked_by, modal_type, lock_acquired_at, created_at, updated_at`

func scanRedeem(row pgx.Row) (*models.RedeemRequest, error) {
	var (
		r       models.RedeemRequest
		methods []byte
	)
	err := row.Scan(
		&r.ID, &r.PlayerID,
		(*int64)(&r.TotalAmount), (*int64)(&r.AmountHold), (*int64)(&r.AmountPaid),
		&methods, &r.Status,
		&r.VerifiedBy, &r.VerificationNotes, &r.VerifiedAt,
		&r.Processing.Status, &r.Processing.ProcessedBy, &r.Processing.ModalType, &r.Processing.AcquiredAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(methods) > 0 {
		if err := json.Unmarshal(methods, &r.PaymentMethods); err != nil {
			return nil, fmt.Errorf("decode payment methods: %w", err)
		}
	}
	if r.PaymentMethods == nil {
		r.PaymentMethods = []models.PaymentMethod{}
	}
	r.AmountAvailable = r.Ledger().Available()
	return &r, nil
}

type CreateRedeemRequestParams struct {
	PlayerID       uuid.UUID
	TotalAmount    domain.Amount
	PaymentMethods []models.PaymentMethod
	Status         string
}

func (q *Queries) CreateRedeemRequest(ctx context.Context, arg CreateRedeemRequestParams) (*models.RedeemRequest, error) {
	methods, err := json.Marshal(arg.PaymentMethods)
	if err != nil {
		return nil, fmt.Errorf("encode payment methods: %w", err)
	}
	query := `INSERT INTO redeem_requests (player_id, total_amount, payment_methods, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + redeemColumns
	r, err := scanRedeem(q.db.QueryRow(ctx, query, arg.PlayerID, int64(arg.TotalAmount), methods, arg.Status))
	if err != nil {
		return nil, fmt.Errorf("create redeem request: %w", err)
	}
	return r, nil
}

func (q *Queries) GetRedeemRequest(ctx context.Context, id uuid.UUID) (*models.RedeemRequest, error) {
	query := `SELECT ` + redeemColumns + ` FROM redeem_requests WHERE id = $1`
	r, err := scanRedeem(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// GetRedeemRequestForUpdate row-locks the request until the surrounding transaction ends.
func (q *Queries) GetRedeemRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.RedeemRequest, error) {
	query := `SELECT ` + redeemColumns + ` FROM redeem_requests WHERE id = $1 FOR UPDATE`
	r, err := scanRedeem(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (q *Queries) ListRedeemRequests(ctx context.Context, arg ListParams) ([]*models.RedeemRequest, error) {
	arg = arg.normalized()
	query := `SELECT ` + redeemColumns + ` FROM redeem_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`
	rows, err := q.db.Query(ctx, query, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("list redeem requests: %w", err)
	}
	defer rows.Close()

	out := []*models.RedeemRequest{}
	for rows.Next() {
		r, err := scanRedeem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redeem request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type UpdateRedeemAmountsParams struct {
	ID         uuid.UUID
	AmountHold domain.Amount
	AmountPaid domain.Amount
	Status     string
}

// UpdateRedeemAmounts writes hold, paid and status together. The table CHECK rejects a broken ledger.
func (q *Queries) UpdateRedeemAmounts(ctx context.Context, arg UpdateRedeemAmountsParams) (int64, error) {
	query := `UPDATE redeem_requests
		SET amount_hold = $2, amount_paid = $3, status = $4, updated_at = NOW()
		WHERE id = $1`
	tag, err := q.db.Exec(ctx, query, arg.ID, int64(arg.AmountHold), int64(arg.AmountPaid), arg.Status)
	if err != nil {
		return 0, fmt.Errorf("update redeem amounts: %w", err)
	}
	return tag.RowsAffected(), nil
}

type UpdateRedeemVerificationParams struct {
	ID         uuid.UUID
	FromStatus string
	Status     string
	VerifiedBy uuid.UUID
	Notes      string
}

// UpdateRedeemVerification stamps the verifier and clears the processing lock.
func (q *Queries) UpdateRedeemVerification(ctx context.Context, arg UpdateRedeemVerificationParams) (int64, error) {
	query := `UPDATE redeem_requests
		SET status = $3, verified_by = $4, verification_notes = $5, verified_at = NOW(),
			processing_status = 'idle', locked_by = NULL, modal_type = 'none', lock_acquired_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status = $2`
	tag, err := q.db.Exec(ctx, query, arg.ID, arg.FromStatus, arg.Status, arg.VerifiedBy, arg.Notes)
	if err != nil {
		return 0, fmt.Errorf("update redeem verification: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListLedgerViolations returns redeem requests whose amounts break the hold/paid invariant.
func (q *Queries) ListLedgerViolations(ctx context.Context, limit int32) ([]models.LedgerViolation, error) {
	query := `SELECT id, total_amount, amount_hold, amount_paid FROM redeem_requests
		WHERE amount_hold < 0 OR amount_paid < 0 OR amount_hold + amount_paid > total_amount
		ORDER BY updated_at DESC
		LIMIT $1`
	rows, err := q.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger violations: %w", err)
	}
	defer rows.Close()

	var out []models.LedgerViolation
	for rows.Next() {
		var v models.LedgerViolation
		if err := rows.Scan(&v.RedeemID, (*int64)(&v.TotalAmount), (*int64)(&v.AmountHold), (*int64)(&v.AmountPaid)); err != nil {
			return nil, fmt.Errorf("scan ledger violation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

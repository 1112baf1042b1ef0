package repository

import (
	"context"
	"fmt"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const paymentOperationColumns = `id, redeem_id, actor_id, amount, stage, company_tag_id, identifier, reference, notes,
	prev_status, failure_reason, created_at, updated_at`

func scanPaymentOperation(row pgx.Row) (*models.PaymentOperation, error) {
	var op models.PaymentOperation
	err := row.Scan(
		&op.ID, &op.RedeemID, &op.ActorID, (*int64)(&op.Amount), &op.Stage, &op.CompanyTagID,
		&op.Identifier, &op.Reference, &op.Notes, &op.PrevStatus, &op.FailureReason,
		&op.CreatedAt, &op.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

type CreatePaymentOperationParams struct {
	RedeemID   uuid.UUID
	ActorID    uuid.UUID
	Amount     domain.Amount
	PrevStatus string
}

func (q *Queries) CreatePaymentOperation(ctx context.Context, arg CreatePaymentOperationParams) (*models.PaymentOperation, error) {
	query := `INSERT INTO payment_operations (redeem_id, actor_id, amount, stage, prev_status)
		VALUES ($1, $2, $3, 'holding', $4)
		RETURNING ` + paymentOperationColumns
	op, err := scanPaymentOperation(q.db.QueryRow(ctx, query, arg.RedeemID, arg.ActorID, int64(arg.Amount), arg.PrevStatus))
	if err != nil {
		return nil, fmt.Errorf("create payment operation: %w", err)
	}
	return op, nil
}

func (q *Queries) GetPaymentOperation(ctx context.Context, id uuid.UUID) (*models.PaymentOperation, error) {
	query := `SELECT ` + paymentOperationColumns + ` FROM payment_operations WHERE id = $1`
	op, err := scanPaymentOperation(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return op, nil
}

func (q *Queries) GetPaymentOperationForUpdate(ctx context.Context, id uuid.UUID) (*models.PaymentOperation, error) {
	query := `SELECT ` + paymentOperationColumns + ` FROM payment_operations WHERE id = $1 FOR UPDATE`
	op, err := scanPaymentOperation(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return op, nil
}

// GetOpenPaymentOperation returns the redeem's operation that is still in holding or settlement_selected.
func (q *Queries) GetOpenPaymentOperation(ctx context.Context, redeemID uuid.UUID) (*models.PaymentOperation, error) {
	query := `SELECT ` + paymentOperationColumns + ` FROM payment_operations
		WHERE redeem_id = $1 AND stage IN ('holding', 'settlement_selected')
		FOR UPDATE`
	op, err := scanPaymentOperation(q.db.QueryRow(ctx, query, redeemID))
	if err != nil {
		return nil, notFound(err)
	}
	return op, nil
}

type SelectSettlementParams struct {
	ID           uuid.UUID
	CompanyTagID uuid.UUID
	Identifier   string
}

func (q *Queries) SelectPaymentSettlement(ctx context.Context, arg SelectSettlementParams) (*models.PaymentOperation, error) {
	query := `UPDATE payment_operations
		SET stage = 'settlement_selected', company_tag_id = $2, identifier = $3, updated_at = NOW()
		WHERE id = $1 AND stage IN ('holding', 'settlement_selected')
		RETURNING ` + paymentOperationColumns
	op, err := scanPaymentOperation(q.db.QueryRow(ctx, query, arg.ID, arg.CompanyTagID, arg.Identifier))
	if err != nil {
		return nil, notFound(err)
	}
	return op, nil
}

type MarkPaymentSettlingParams struct {
	ID        uuid.UUID
	Reference string
	Notes     string
}

// MarkPaymentSettling claims a selected operation for settlement. Only one caller can win the claim.
func (q *Queries) MarkPaymentSettling(ctx context.Context, arg MarkPaymentSettlingParams) (int64, error) {
	query := `UPDATE payment_operations
		SET stage = 'settling', reference = $2, notes = $3, updated_at = NOW()
		WHERE id = $1 AND stage = 'settlement_selected'`
	tag, err := q.db.Exec(ctx, query, arg.ID, arg.Reference, arg.Notes)
	if err != nil {
		return 0, fmt.Errorf("mark payment settling: %w", err)
	}
	return tag.RowsAffected(), nil
}

type UpdatePaymentStageParams struct {
	ID            uuid.UUID
	FromStage     []string
	Stage         string
	FailureReason string
}

func (q *Queries) UpdatePaymentStage(ctx context.Context, arg UpdatePaymentStageParams) (*models.PaymentOperation, error) {
	query := `UPDATE payment_operations
		SET stage = $3, failure_reason = $4, updated_at = NOW()
		WHERE id = $1 AND stage = ANY($2)
		RETURNING ` + paymentOperationColumns
	op, err := scanPaymentOperation(q.db.QueryRow(ctx, query, arg.ID, arg.FromStage, arg.Stage, arg.FailureReason))
	if err != nil {
		return nil, notFound(err)
	}
	return op, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const companyTagColumns = `id, cashtag, payment_method, balance, limit_amount, status, procured_by, procurement_cost,
	total_received, total_withdrawn, transaction_count, created_at, updated_at`

func scanCompanyTag(row pgx.Row) (*models.CompanyTag, error) {
	var t models.CompanyTag
	err := row.Scan(
		&t.ID, &t.Cashtag, &t.PaymentMethod,
		(*int64)(&t.Balance), (*int64)(&t.Limit), &t.Status, &t.ProcuredBy, (*int64)(&t.ProcurementCost),
		(*int64)(&t.TotalReceived), (*int64)(&t.TotalWithdrawn), &t.TransactionCount,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type CreateCompanyTagParams struct {
	Cashtag         string
	PaymentMethod   string
	Balance         domain.Amount
	Limit           domain.Amount
	ProcuredBy      *uuid.UUID
	ProcurementCost domain.Amount
}

func (q *Queries) CreateCompanyTag(ctx context.Context, arg CreateCompanyTagParams) (*models.CompanyTag, error) {
	query := `INSERT INTO company_tags (cashtag, payment_method, balance, limit_amount, procured_by, procurement_cost)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + companyTagColumns
	t, err := scanCompanyTag(q.db.QueryRow(ctx, query,
		arg.Cashtag, arg.PaymentMethod, int64(arg.Balance), int64(arg.Limit), arg.ProcuredBy, int64(arg.ProcurementCost)))
	if err != nil {
		return nil, fmt.Errorf("create company tag: %w", err)
	}
	return t, nil
}

func (q *Queries) GetCompanyTag(ctx context.Context, id uuid.UUID) (*models.CompanyTag, error) {
	query := `SELECT ` + companyTagColumns + ` FROM company_tags WHERE id = $1`
	t, err := scanCompanyTag(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (q *Queries) GetCompanyTagForUpdate(ctx context.Context, id uuid.UUID) (*models.CompanyTag, error) {
	query := `SELECT ` + companyTagColumns + ` FROM company_tags WHERE id = $1 FOR UPDATE`
	t, err := scanCompanyTag(q.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (q *Queries) ListCompanyTags(ctx context.Context, arg ListParams) ([]*models.CompanyTag, error) {
	arg = arg.normalized()
	query := `SELECT ` + companyTagColumns + ` FROM company_tags
		WHERE ($1 = '' OR status = $1)
		ORDER BY cashtag ASC
		LIMIT $2 OFFSET $3`
	rows, err := q.db.Query(ctx, query, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("list company tags: %w", err)
	}
	defer rows.Close()

	out := []*models.CompanyTag{}
	for rows.Next() {
		t, err := scanCompanyTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateCompanyTagStatus(ctx context.Context, id uuid.UUID, status string) (*models.CompanyTag, error) {
	query := `UPDATE company_tags SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + companyTagColumns
	t, err := scanCompanyTag(q.db.QueryRow(ctx, query, id, status))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

type AdjustCompanyTagBalanceParams struct {
	ID             uuid.UUID
	BalanceDelta   domain.Amount
	ReceivedDelta  domain.Amount
	WithdrawnDelta domain.Amount
	CountDelta     int64
}

// AdjustCompanyTagBalance applies deltas to the tag's balance and counters.
func (q *Queries) AdjustCompanyTagBalance(ctx context.Context, arg AdjustCompanyTagBalanceParams) (*models.CompanyTag, error) {
	query := `UPDATE company_tags
		SET balance = balance + $2,
			total_received = total_received + $3,
			total_withdrawn = total_withdrawn + $4,
			transaction_count = transaction_count + $5,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + companyTagColumns
	t, err := scanCompanyTag(q.db.QueryRow(ctx, query,
		arg.ID, int64(arg.BalanceDelta), int64(arg.ReceivedDelta), int64(arg.WithdrawnDelta), arg.CountDelta))
	if err != nil {
		return nil, fmt.Errorf("adjust company tag balance: %w", notFound(err))
	}
	return t, nil
}

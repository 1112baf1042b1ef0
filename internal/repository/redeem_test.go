package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var redeemColumnNames = []string{
	"id", "player_id", "total_amount", "amount_hold", "amount_paid", "payment_methods", "status",
	"verified_by", "verification_notes", "verified_at",
	"processing_status", "locked_by", "modal_type", "lock_acquired_at", "created_at", "updated_at",
}

func TestQueries_GetRedeemRequestForUpdate(t *testing.T) {
	id := uuid.New()
	player := uuid.New()
	now := time.Now().UTC()
	query := regexp.QuoteMeta(`FROM redeem_requests WHERE id = $1 FOR UPDATE`)

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		wantErr   error
		check     func(t *testing.T, r *models.RedeemRequest)
	}{
		{
			name: "decodes amounts and payment methods",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(query).WithArgs(id).WillReturnRows(
					pgxmock.NewRows(redeemColumnNames).AddRow(
						id, player, int64(500_000_000), int64(200_000_000), int64(50_000_000),
						[]byte(`[{"type":"cashapp","username":"$player"}]`), domain.RedeemStatusQueuedPartiallyAssigned,
						nil, "", nil,
						domain.ProcessingIdle, nil, domain.ModalNone, nil, now, now,
					))
			},
			check: func(t *testing.T, r *models.RedeemRequest) {
				assert.Equal(t, domain.NewAmount(500), r.TotalAmount)
				assert.Equal(t, domain.NewAmount(200), r.AmountHold)
				assert.Equal(t, domain.NewAmount(50), r.AmountPaid)
				assert.Equal(t, domain.NewAmount(250), r.AmountAvailable)
				require.Len(t, r.PaymentMethods, 1)
				assert.True(t, r.AcceptsPaymentMethod("cashapp"))
				assert.Nil(t, r.Processing.ProcessedBy)
			},
		},
		{
			name: "not found",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(query).WithArgs(id).WillReturnError(pgx.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.mockSetup(mock)

			r, err := New(mock).GetRedeemRequestForUpdate(context.Background(), id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, r)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestQueries_UpdateRedeemAmounts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`SET amount_hold = $2, amount_paid = $3, status = $4, updated_at = NOW()`)).
		WithArgs(id, int64(0), int64(150_000_000), domain.RedeemStatusQueuedPartiallyPaid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := New(mock).UpdateRedeemAmounts(context.Background(), UpdateRedeemAmountsParams{
		ID:         id,
		AmountHold: 0,
		AmountPaid: domain.NewAmount(150),
		Status:     domain.RedeemStatusQueuedPartiallyPaid,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_ListRedeemRequests_NormalizesPaging(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE ($1 = '' OR status = $1)`)).
		WithArgs(domain.RedeemStatusQueued, int32(50), int32(0)).
		WillReturnRows(pgxmock.NewRows(redeemColumnNames))

	out, err := New(mock).ListRedeemRequests(context.Background(), ListParams{Status: domain.RedeemStatusQueued, Limit: 10_000, Offset: -4})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_AssignRechargeToRedeem_Guarded(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND status = 'pending' AND assigned_ct IS NULL`)).
		WithArgs(id, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	n, err := New(mock).AssignRechargeToRedeem(context.Background(), id, models.AssignedRedeem{
		RedeemID: uuid.New(),
		Amount:   domain.NewAmount(100),
		Type:     domain.MatchTypeFull,
	})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

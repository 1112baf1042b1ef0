package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries_AcquireLock(t *testing.T) {
	id := uuid.New()
	actor := uuid.New()
	acquireSQL := regexp.QuoteMeta(`AND (processing_status = 'idle' OR locked_by = $2 OR lock_acquired_at < $4)`)

	tests := []struct {
		name      string
		entity    string
		mockSetup func(mock pgxmock.PgxPoolIface)
		want      int64
		wantErr   error
	}{
		{
			name:   "idle row is claimed",
			entity: EntityRedeemRequests,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE redeem_requests`+`(?s).*`+acquireSQL).
					WithArgs(id, actor, domain.ModalPayment, pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
			want: 1,
		},
		{
			name:   "row held by someone else is untouched",
			entity: EntityTransferRequests,
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`UPDATE transfer_requests`+`(?s).*`+acquireSQL).
					WithArgs(id, actor, domain.ModalPayment, pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			want: 0,
		},
		{
			name:      "unknown table is rejected before any SQL",
			entity:    "users; DROP TABLE users",
			mockSetup: func(pgxmock.PgxPoolIface) {},
			wantErr:   ErrUnknownEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.mockSetup(mock)

			got, err := New(mock).AcquireLock(context.Background(), AcquireLockParams{
				Entity:      tt.entity,
				ID:          id,
				Actor:       actor,
				ModalType:   domain.ModalPayment,
				StaleBefore: time.Now().Add(-15 * time.Minute),
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestQueries_GetLock(t *testing.T) {
	id := uuid.New()
	owner := uuid.New()
	acquired := time.Now().UTC().Truncate(time.Second)
	getSQL := regexp.QuoteMeta(`SELECT processing_status, locked_by, modal_type, lock_acquired_at FROM recharge_requests WHERE id = $1`)

	t.Run("held", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(getSQL).WithArgs(id).WillReturnRows(
			pgxmock.NewRows([]string{"processing_status", "locked_by", "modal_type", "lock_acquired_at"}).
				AddRow(domain.ProcessingInProgress, &owner, domain.ModalAssign, &acquired))

		st, err := New(mock).GetLock(context.Background(), EntityRechargeRequests, id)
		require.NoError(t, err)
		assert.True(t, st.HeldBy(owner))
		assert.Equal(t, domain.ModalAssign, st.ModalType)
		require.NotNil(t, st.AcquiredAt)
		assert.Equal(t, acquired, *st.AcquiredAt)
	})

	t.Run("missing row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(getSQL).WithArgs(id).WillReturnError(pgx.ErrNoRows)

		_, err = New(mock).GetLock(context.Background(), EntityRechargeRequests, id)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestQueries_ReleaseExpiredLocks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	staleID := uuid.New()
	owner := uuid.New()
	staleBefore := time.Now().Add(-15 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
		WithArgs(staleBefore, int32(100)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "locked_by", "modal_type"}).
			AddRow(staleID, &owner, domain.ModalPayment))

	got, err := New(mock).ReleaseExpiredLocks(context.Background(), EntityRedeemRequests, staleBefore, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, EntityRedeemRequests, got[0].Entity)
	assert.Equal(t, staleID, got[0].ID)
	assert.Equal(t, owner, got[0].Owner)
	assert.Equal(t, domain.ModalPayment, got[0].ModalType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries_ReleaseLock_PropagatesErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id, actor := uuid.New(), uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $1 AND locked_by = $2`)).
		WithArgs(id, actor).
		WillReturnError(errors.New("connection reset"))

	_, err = New(mock).ReleaseLock(context.Background(), EntityTransferRequests, id, actor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "release lock on transfer_requests")
}

package service

import (
	"context"
	"testing"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationApproveAndReject(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	svc := NewVerificationService(f.store, NewLockService(f.store, testLeaseTTL))

	approveMe := f.redeem(t, units(50), domain.RedeemStatusVerificationPending, "cashapp")
	rejectMe := f.redeem(t, units(70), domain.RedeemStatusVerificationPending, "chime")
	f.redeem(t, units(90), domain.RedeemStatusQueued, "cashapp")

	pending, err := svc.List(ctx, "", 50, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	approved, err := svc.Approve(ctx, approveMe.ID, f.alice.ID, "id matches")
	require.NoError(t, err)
	assert.Equal(t, domain.RedeemStatusQueued, approved.Status)
	require.NotNil(t, approved.VerifiedBy)
	assert.Equal(t, f.alice.ID, *approved.VerifiedBy)
	assert.Equal(t, "id matches", approved.VerificationNotes)
	assert.NotNil(t, approved.VerifiedAt)
	assert.Equal(t, domain.ProcessingIdle, approved.Processing.Status)

	rejected, err := svc.Reject(ctx, rejectMe.ID, f.alice.ID, "document expired")
	require.NoError(t, err)
	assert.Equal(t, domain.RedeemStatusVerificationFailed, rejected.Status)

	_, err = svc.Approve(ctx, approveMe.ID, f.alice.ID, "again")
	require.ErrorIs(t, err, ErrNotVerificationPending)

	_, err = svc.List(ctx, domain.RedeemStatusQueued, 50, 0)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

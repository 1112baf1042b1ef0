package service

import (
	"context"
	"testing"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/gateway"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignRedeemRequestValidatesInput(t *testing.T) {
	svc := NewAssignmentService(nil, NewLockService(nil, testLeaseTTL))
	cases := []struct {
		name      string
		amount    domain.Amount
		matchType string
		want      error
	}{
		{name: "zero_amount", amount: 0, matchType: "full", want: domain.ErrInvalidAmount},
		{name: "negative_amount", amount: -5, matchType: "partial", want: domain.ErrInvalidAmount},
		{name: "unknown_match", amount: units(1), matchType: "half", want: ErrInvalidMatchType},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AssignRedeemRequest(context.Background(), AssignRedeemRequest{
				RechargeID: uuid.New(),
				RedeemID:   uuid.New(),
				ActorID:    uuid.New(),
				Amount:     tc.amount,
				MatchType:  tc.matchType,
			})
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAssignRedeemRequestHappyPath(t *testing.T) {
	f := setupTestDB(t)
	svc := NewAssignmentService(f.store, NewLockService(f.store, testLeaseTTL))

	recharge := f.recharge(t, units(100), 0)
	redeem := f.redeem(t, units(100), domain.RedeemStatusQueued, "cashapp")

	res, err := svc.AssignRedeemRequest(context.Background(), AssignRedeemRequest{
		RechargeID:    recharge.ID,
		RedeemID:      redeem.ID,
		ActorID:       f.alice.ID,
		Amount:        units(100),
		MatchType:     "full",
		RedeemPlayer:  &f.player.ID,
		PaymentMethod: "cashapp",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RechargeStatusAssigned, res.Recharge.Status)
	require.NotNil(t, res.Recharge.AssignedRedeem)
	assert.Equal(t, units(100), res.Recharge.AssignedRedeem.Amount)
	assert.Equal(t, domain.MatchTypeFull, res.Recharge.AssignedRedeem.Type)
	assert.Equal(t, redeem.ID, res.Recharge.AssignedRedeem.RedeemID)

	after := f.reloadRedeem(t, redeem.ID)
	assert.Equal(t, units(100), after.AmountHold)
	assert.Equal(t, domain.RedeemStatusQueuedFullyAssigned, after.Status)
}

func TestAssignRedeemRequestRejectsOverHold(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	svc := NewAssignmentService(f.store, NewLockService(f.store, testLeaseTTL))

	redeem := f.redeem(t, units(100), domain.RedeemStatusQueued, "cashapp")
	_, err := f.pool.Exec(ctx, `UPDATE redeem_requests SET amount_hold = $1, status = 'queued_partially_assigned' WHERE id = $2`, int64(units(80)), redeem.ID)
	require.NoError(t, err)
	recharge := f.recharge(t, units(30), 0)

	_, err = svc.AssignRedeemRequest(ctx, AssignRedeemRequest{
		RechargeID: recharge.ID,
		RedeemID:   redeem.ID,
		ActorID:    f.alice.ID,
		Amount:     units(30),
		MatchType:  "partial",
	})
	require.ErrorIs(t, err, domain.ErrExceedsTotal)
	assert.EqualError(t, err, "Cannot exceed total withdrawal amount")

	after := f.reloadRedeem(t, redeem.ID)
	assert.Equal(t, units(80), after.AmountHold)
	assert.Equal(t, domain.RedeemStatusQueuedPartiallyAssigned, after.Status)
	untouched := f.reloadRecharge(t, recharge.ID)
	assert.Equal(t, domain.RechargeStatusPending, untouched.Status)
	assert.Nil(t, untouched.AssignedRedeem)
}

func TestAssignRedeemRequestRefusesLockedRecharge(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	locks := NewLockService(f.store, testLeaseTTL)
	svc := NewAssignmentService(f.store, locks)

	recharge := f.recharge(t, units(50), 0)
	redeem := f.redeem(t, units(100), domain.RedeemStatusQueued, "cashapp")
	_, err := locks.Acquire(ctx, repository.EntityRechargeRequests, recharge.ID, f.bob.ID, domain.ModalAssign)
	require.NoError(t, err)

	_, err = svc.AssignRedeemRequest(ctx, AssignRedeemRequest{
		RechargeID: recharge.ID, RedeemID: redeem.ID, ActorID: f.alice.ID, Amount: units(50), MatchType: "partial",
	})
	require.ErrorIs(t, err, ErrLockHeld)
}

func TestAssignRedeemRequestRefusesTagMatchedRecharge(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	svc := NewAssignmentService(f.store, NewLockService(f.store, testLeaseTTL))

	tag := f.tag(t, "cashapp", 0, 0)
	recharge := f.recharge(t, units(50), 0)
	redeem := f.redeem(t, units(100), domain.RedeemStatusQueued, "cashapp")
	_, err := f.pool.Exec(ctx, `UPDATE recharge_requests SET assigned_ct = $1 WHERE id = $2`, tag.ID, recharge.ID)
	require.NoError(t, err)

	_, err = svc.AssignRedeemRequest(ctx, AssignRedeemRequest{
		RechargeID: recharge.ID, RedeemID: redeem.ID, ActorID: f.alice.ID, Amount: units(50), MatchType: "partial",
	})
	require.ErrorIs(t, err, ErrAlreadyAssignedToTag)
	assert.Equal(t, domain.Amount(0), f.reloadRedeem(t, redeem.ID).AmountHold)
}

func TestAssignCompanyTagCreditsTag(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	svc := NewAssignmentService(f.store, NewLockService(f.store, testLeaseTTL))

	tag := f.tag(t, "cashapp", units(20), units(100))
	recharge := f.recharge(t, units(50), 0)

	res, err := svc.AssignCompanyTag(ctx, AssignTagRequest{RechargeID: recharge.ID, TagID: tag.ID, ActorID: f.alice.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.RechargeStatusAssigned, res.Recharge.Status)
	require.NotNil(t, res.Recharge.AssignedCT)
	assert.Equal(t, tag.ID, *res.Recharge.AssignedCT)

	credited := f.reloadTag(t, tag.ID)
	assert.Equal(t, units(70), credited.Balance)
	assert.Equal(t, units(50), credited.TotalReceived)
	assert.Equal(t, int64(1), credited.TransactionCount)

	over := f.recharge(t, units(40), 0)
	_, err = svc.AssignCompanyTag(ctx, AssignTagRequest{RechargeID: over.ID, TagID: tag.ID, ActorID: f.alice.ID})
	require.ErrorIs(t, err, ErrTagLimitExceeded)

	_, err = svc.AssignCompanyTag(ctx, AssignTagRequest{RechargeID: recharge.ID, TagID: tag.ID, ActorID: f.alice.ID})
	require.ErrorIs(t, err, ErrRechargeNotPending)
}

func TestAssignCompanyTagRequiresActiveTag(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	svc := NewAssignmentService(f.store, NewLockService(f.store, testLeaseTTL))

	tag := f.tag(t, "cashapp", 0, 0)
	_, err := f.store.Queries().UpdateCompanyTagStatus(ctx, tag.ID, domain.TagStatusPaused)
	require.NoError(t, err)
	recharge := f.recharge(t, units(10), 0)

	_, err = svc.AssignCompanyTag(ctx, AssignTagRequest{RechargeID: recharge.ID, TagID: tag.ID, ActorID: f.alice.ID})
	require.ErrorIs(t, err, gateway.ErrTagNotActive)
}

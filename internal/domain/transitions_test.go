package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionRedeem(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{RedeemStatusPending, RedeemStatusVerificationPending, true},
		{RedeemStatusVerificationPending, RedeemStatusQueued, true},
		{RedeemStatusVerificationPending, RedeemStatusVerificationFailed, true},
		{RedeemStatusVerificationPending, RedeemStatusCompleted, false},
		{RedeemStatusQueued, RedeemStatusQueuedPartiallyPaid, true},
		{RedeemStatusQueuedFullyAssigned, RedeemStatusCompleted, true},
		{RedeemStatusCompleted, RedeemStatusQueued, false},
		{RedeemStatusRejected, RedeemStatusQueued, false},
		{RedeemStatusQueued, RedeemStatusQueued, true},
		{" QUEUED ", RedeemStatusCompleted, true},
		{"unknown", RedeemStatusQueued, false},
	}
	for _, tc := range cases {
		t.Run(tc.from+"->"+tc.to, func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransitionRedeem(tc.from, tc.to))
		})
	}
}

func TestCanTransitionRecharge(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{RechargeStatusPending, RechargeStatusAssigned, true},
		{RechargeStatusAssigned, RechargeStatusSCSubmitted, true},
		{RechargeStatusSCSubmitted, RechargeStatusCompleted, true},
		{RechargeStatusSCSubmitted, RechargeStatusSCRejected, true},
		{RechargeStatusSCRejected, RechargeStatusPending, true},
		{RechargeStatusSCRejected, RechargeStatusAssigned, false},
		{RechargeStatusCompleted, RechargeStatusDisputed, true},
		{RechargeStatusPending, RechargeStatusCompleted, false},
		{RechargeStatusDisputed, RechargeStatusCompleted, false},
	}
	for _, tc := range cases {
		t.Run(tc.from+"->"+tc.to, func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransitionRecharge(tc.from, tc.to))
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, IsRedeemStatus(RedeemStatusQueuedPartiallyAssigned))
	assert.False(t, IsRedeemStatus("draft"))
	assert.True(t, IsRechargeStatus(RechargeStatusSCProcessed))
	assert.True(t, IsPayableRedeemStatus(RedeemStatusQueuedFullyAssigned))
	assert.False(t, IsPayableRedeemStatus(RedeemStatusVerificationPending))
	assert.True(t, IsModalType(ModalPayment))
	assert.False(t, IsModalType("edit_modal"))
	assert.True(t, IsTagStatus(TagStatusPaused))
}

package domain

import "strings"

var redeemTransitions = map[string]map[string]struct{}{
	RedeemStatusPending: {
		RedeemStatusVerificationPending: {},
		RedeemStatusQueued:              {},
		RedeemStatusRejected:            {},
	},
	RedeemStatusVerificationPending: {
		RedeemStatusQueued:             {},
		RedeemStatusVerificationFailed: {},
	},
	RedeemStatusVerificationFailed: {
		RedeemStatusVerificationPending: {},
		RedeemStatusRejected:            {},
	},
	RedeemStatusQueued: {
		RedeemStatusQueuedPartiallyPaid:     {},
		RedeemStatusQueuedPartiallyAssigned: {},
		RedeemStatusQueuedFullyAssigned:     {},
		RedeemStatusCompleted:               {},
		RedeemStatusRejected:                {},
	},
	RedeemStatusQueuedPartiallyPaid: {
		RedeemStatusQueued:                  {},
		RedeemStatusQueuedPartiallyAssigned: {},
		RedeemStatusQueuedFullyAssigned:     {},
		RedeemStatusCompleted:               {},
	},
	RedeemStatusQueuedPartiallyAssigned: {
		RedeemStatusQueued:              {},
		RedeemStatusQueuedPartiallyPaid: {},
		RedeemStatusQueuedFullyAssigned: {},
		RedeemStatusCompleted:           {},
	},
	RedeemStatusQueuedFullyAssigned: {
		RedeemStatusQueued:                  {},
		RedeemStatusQueuedPartiallyPaid:     {},
		RedeemStatusQueuedPartiallyAssigned: {},
		RedeemStatusCompleted:               {},
	},
	RedeemStatusCompleted: {},
	RedeemStatusRejected:  {},
}

var rechargeTransitions = map[string]map[string]struct{}{
	RechargeStatusPending: {
		RechargeStatusAssigned: {},
		RechargeStatusFailed:   {},
	},
	RechargeStatusAssigned: {
		RechargeStatusAssignedAndHold: {},
		RechargeStatusSCSubmitted:     {},
		RechargeStatusCompleted:       {},
		RechargeStatusFailed:          {},
	},
	RechargeStatusAssignedAndHold: {
		RechargeStatusSCSubmitted: {},
		RechargeStatusCompleted:   {},
	},
	RechargeStatusSCSubmitted: {
		RechargeStatusSCProcessed: {},
		RechargeStatusSCRejected:  {},
		RechargeStatusCompleted:   {},
	},
	RechargeStatusSCProcessed: {
		RechargeStatusCompleted: {},
	},
	RechargeStatusSCRejected: {
		RechargeStatusPending: {},
	},
	RechargeStatusCompleted: {
		RechargeStatusDisputed: {},
	},
	RechargeStatusFailed:   {},
	RechargeStatusDisputed: {},
}

func normalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func canTransition(table map[string]map[string]struct{}, from, to string) bool {
	from = normalizeStatus(from)
	to = normalizeStatus(to)
	next, ok := table[from]
	if !ok {
		return false
	}
	if from == to {
		return true
	}
	_, ok = next[to]
	return ok
}

// CanTransitionRedeem reports whether a redeem request may move from one status to another.
func CanTransitionRedeem(from, to string) bool {
	return canTransition(redeemTransitions, from, to)
}

// CanTransitionRecharge reports whether a recharge request may move from one status to another.
func CanTransitionRecharge(from, to string) bool {
	return canTransition(rechargeTransitions, from, to)
}

// IsRedeemStatus reports whether s is a known redeem status.
func IsRedeemStatus(s string) bool {
	_, ok := redeemTransitions[normalizeStatus(s)]
	return ok
}

// IsRechargeStatus reports whether s is a known recharge status.
func IsRechargeStatus(s string) bool {
	_, ok := rechargeTransitions[normalizeStatus(s)]
	return ok
}

// IsPayableRedeemStatus reports whether a payment may be started for a redeem in status s.
func IsPayableRedeemStatus(s string) bool {
	switch normalizeStatus(s) {
	case RedeemStatusQueued, RedeemStatusQueuedPartiallyPaid,
		RedeemStatusQueuedPartiallyAssigned, RedeemStatusQueuedFullyAssigned:
		return true
	}
	return false
}

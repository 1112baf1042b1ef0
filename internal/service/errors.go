package service

import (
	"errors"
)

var (
	ErrLockHeld      = errors.New("being processed by another user")
	ErrLockNotHeld   = errors.New("processing lock is not held by you")
	ErrInvalidModal  = errors.New("invalid modal type")
	ErrInvalidStatus = errors.New("invalid status filter")

	ErrRedeemNotPayable        = errors.New("redeem request is not in a payable status")
	ErrOperationNotOpen        = errors.New("payment operation is no longer open")
	ErrOperationNotConfirmable = errors.New("payment operation cannot be confirmed")
	ErrNotOperationOwner       = errors.New("payment operation belongs to another agent")
	ErrSettlementRequired      = errors.New("company tag and identifier are required")
	ErrPaymentMethodMismatch   = errors.New("company tag payment method does not match the redeem request")

	ErrRechargeNotPending    = errors.New("recharge request is not pending")
	ErrAlreadyAssigned       = errors.New("recharge request is already assigned")
	ErrAlreadyAssignedToTag  = errors.New("recharge request is already assigned to a company tag")
	ErrAssignExceedsRecharge = errors.New("assigned amount exceeds the recharge amount")
	ErrInvalidMatchType      = errors.New("match type must be full or partial")
	ErrTagLimitExceeded      = errors.New("company tag limit exceeded")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrReasonRequired        = errors.New("reason is required")
	ErrScreenshotRequired    = errors.New("screenshot url is required")

	ErrTransferNotPending     = errors.New("transfer request is not pending")
	ErrNotVerificationPending = errors.New("redeem request is not pending verification")

	ErrInvalidTagStatus = errors.New("status must be active, paused or disabled")
	ErrCashtagRequired  = errors.New("cashtag and payment_method are required")
)

// SettlementError reports a failed settlement after the payment was compensated.
// Its message is the settlement error, unchanged.
type SettlementError struct {
	Err error
}

func (e *SettlementError) Error() string {
	return e.Err.Error()
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}

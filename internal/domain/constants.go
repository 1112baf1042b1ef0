package domain

// Redeem request statuses.
const (
	RedeemStatusPending                 = "pending"
	RedeemStatusQueued                  = "queued"
	RedeemStatusQueuedPartiallyPaid     = "queued_partially_paid"
	RedeemStatusQueuedPartiallyAssigned = "queued_partially_assigned"
	RedeemStatusQueuedFullyAssigned     = "queued_fully_assigned"
	RedeemStatusVerificationPending     = "verification_pending"
	RedeemStatusVerificationFailed      = "verification_failed"
	RedeemStatusRejected                = "rejected"
	RedeemStatusCompleted               = "completed"
)

// Recharge request statuses.
const (
	RechargeStatusPending         = "pending"
	RechargeStatusAssigned        = "assigned"
	RechargeStatusAssignedAndHold = "assigned_and_hold"
	RechargeStatusSCSubmitted     = "sc_submitted"
	RechargeStatusSCProcessed     = "sc_processed"
	RechargeStatusSCRejected      = "sc_rejected"
	RechargeStatusCompleted       = "completed"
	RechargeStatusFailed          = "failed"
	RechargeStatusDisputed        = "disputed"
)

// Company tag statuses.
const (
	TagStatusActive   = "active"
	TagStatusPaused   = "paused"
	TagStatusDisabled = "disabled"
)

// Transfer request statuses.
const (
	TransferStatusPending   = "pending"
	TransferStatusCompleted = "completed"
	TransferStatusRejected  = "rejected"
)

// Processing state (soft lock) values.
const (
	ProcessingIdle       = "idle"
	ProcessingInProgress = "in_progress"

	ModalNone         = "none"
	ModalPayment      = "payment_modal"
	ModalVerification = "verification_modal"
	ModalAssign       = "assign_modal"
	ModalTransfer     = "transfer_modal"
	ModalRecharge     = "recharge_modal"
)

// Payment operation stages.
const (
	StageHolding            = "holding"
	StageSettlementSelected = "settlement_selected"
	StageSettling           = "settling"
	StageCommitted          = "committed"
	StageCancelled          = "cancelled"
	StageFailed             = "failed"
)

// Match types for recharge assignment.
const (
	MatchTypeFull    = "full"
	MatchTypePartial = "partial"
)

// Agent departments and roles.
const (
	DepartmentFinance      = "finance"
	DepartmentSupport      = "support"
	DepartmentVerification = "verification"
	DepartmentAdmin        = "admin"

	RoleAgent = "agent"
	RoleAdmin = "admin"
)

// Activity log entity types.
const (
	EntityRedeem     = "redeem_request"
	EntityRecharge   = "recharge_request"
	EntityCompanyTag = "company_tag"
	EntityTransfer   = "transfer_request"
	EntityPayment    = "payment_operation"
)

// ConfirmationText must be typed by the operator before an irreversible action is committed.
const ConfirmationText = "process"

var modalTypes = map[string]struct{}{
	ModalNone:         {},
	ModalPayment:      {},
	ModalVerification: {},
	ModalAssign:       {},
	ModalTransfer:     {},
	ModalRecharge:     {},
}

// IsModalType reports whether m is a known modal type.
func IsModalType(m string) bool {
	_, ok := modalTypes[m]
	return ok
}

// IsTagStatus reports whether s is a valid company tag status.
func IsTagStatus(s string) bool {
	switch s {
	case TagStatusActive, TagStatusPaused, TagStatusDisabled:
		return true
	}
	return false
}

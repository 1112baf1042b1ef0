package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

type Player struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentMethod is one way a player can receive funds.
type PaymentMethod struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// ProcessingState is the soft lock an agent holds while a modal is open on a record.
type ProcessingState struct {
	Status      string     `json:"status"`
	ProcessedBy *uuid.UUID `json:"processed_by"`
	ModalType   string     `json:"modal_type"`
	AcquiredAt  *time.Time `json:"acquired_at,omitempty"`
}

// IdleProcessingState is the state of an unlocked record.
func IdleProcessingState() ProcessingState {
	return ProcessingState{Status: domain.ProcessingIdle, ModalType: domain.ModalNone}
}

// HeldBy reports whether actor owns the lock.
func (p ProcessingState) HeldBy(actor uuid.UUID) bool {
	return p.Status == domain.ProcessingInProgress && p.ProcessedBy != nil && *p.ProcessedBy == actor
}

// Expired reports whether the lease is older than ttl. A zero ttl never expires.
func (p ProcessingState) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || p.AcquiredAt == nil {
		return false
	}
	return now.Sub(*p.AcquiredAt) > ttl
}

// LockedByOther reports whether a live lock is held by someone other than actor.
func (p ProcessingState) LockedByOther(actor uuid.UUID, now time.Time, ttl time.Duration) bool {
	if p.Status != domain.ProcessingInProgress || p.ProcessedBy == nil {
		return false
	}
	if *p.ProcessedBy == actor {
		return false
	}
	return !p.Expired(now, ttl)
}

type RedeemRequest struct {
	ID                uuid.UUID       `json:"id"`
	PlayerID          uuid.UUID       `json:"player_id"`
	TotalAmount       domain.Amount   `json:"total_amount"`
	AmountHold        domain.Amount   `json:"amount_hold"`
	AmountPaid        domain.Amount   `json:"amount_paid"`
	AmountAvailable   domain.Amount   `json:"amount_available"`
	PaymentMethods    []PaymentMethod `json:"payment_methods"`
	Status            string          `json:"status"`
	VerifiedBy        *uuid.UUID      `json:"verified_by,omitempty"`
	VerificationNotes string          `json:"verification_notes,omitempty"`
	VerifiedAt        *time.Time      `json:"verified_at,omitempty"`
	Processing        ProcessingState `json:"processing_state"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Ledger returns the monetary view of the request.
func (r *RedeemRequest) Ledger() domain.Ledger {
	return domain.Ledger{Total: r.TotalAmount, Hold: r.AmountHold, Paid: r.AmountPaid}
}

// ApplyLedger copies amounts back from l.
func (r *RedeemRequest) ApplyLedger(l domain.Ledger) {
	r.TotalAmount = l.Total
	r.AmountHold = l.Hold
	r.AmountPaid = l.Paid
	r.AmountAvailable = l.Available()
}

// AcceptsPaymentMethod reports whether one of the player's payment methods has type method.
func (r *RedeemRequest) AcceptsPaymentMethod(method string) bool {
	for _, pm := range r.PaymentMethods {
		if strings.EqualFold(pm.Type, method) {
			return true
		}
	}
	return false
}

// AssignedRedeem records the redeem request a recharge was matched against.
type AssignedRedeem struct {
	RedeemID      uuid.UUID     `json:"redeem_id"`
	Amount        domain.Amount `json:"amount"`
	Type          string        `json:"type"`
	AssignedAt    time.Time     `json:"assigned_at"`
	RedeemPlayer  *uuid.UUID    `json:"redeem_player,omitempty"`
	PaymentMethod string        `json:"payment_method,omitempty"`
}

type RechargeRequest struct {
	ID             uuid.UUID       `json:"id"`
	PlayerID       uuid.UUID       `json:"player_id"`
	Amount         domain.Amount   `json:"amount"`
	BonusAmount    domain.Amount   `json:"bonus_amount"`
	CreditsLoaded  domain.Amount   `json:"credits_loaded"`
	PaymentMethod  string          `json:"payment_method"`
	Status         string          `json:"status"`
	AssignedRedeem *AssignedRedeem `json:"assigned_redeem,omitempty"`
	AssignedCT     *uuid.UUID      `json:"assigned_ct,omitempty"`
	ScreenshotURL  string          `json:"screenshot_url,omitempty"`
	Processing     ProcessingState `json:"processing_state"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type CompanyTag struct {
	ID               uuid.UUID     `json:"id"`
	Cashtag          string        `json:"cashtag"`
	PaymentMethod    string        `json:"payment_method"`
	Balance          domain.Amount `json:"balance"`
	Limit            domain.Amount `json:"limit"`
	Status           string        `json:"status"`
	ProcuredBy       *uuid.UUID    `json:"procured_by,omitempty"`
	ProcurementCost  domain.Amount `json:"procurement_cost"`
	TotalReceived    domain.Amount `json:"total_received"`
	TotalWithdrawn   domain.Amount `json:"total_withdrawn"`
	TransactionCount int64         `json:"transaction_count"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// CanReceive reports whether crediting amount keeps the tag within its limit. A zero limit is unlimited.
func (t *CompanyTag) CanReceive(amount domain.Amount) bool {
	return t.Limit <= 0 || t.Balance+amount <= t.Limit
}

type TransferRequest struct {
	ID           uuid.UUID       `json:"id"`
	PlayerID     uuid.UUID       `json:"player_id"`
	FromPlatform string          `json:"from_platform"`
	ToPlatform   string          `json:"to_platform"`
	Amount       domain.Amount   `json:"amount"`
	Status       string          `json:"status"`
	ProcessedBy  *uuid.UUID      `json:"processed_by,omitempty"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Processing   ProcessingState `json:"processing_state"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PaymentOperation tracks one Process Payment flow from hold to commit or cancel.
type PaymentOperation struct {
	ID            uuid.UUID     `json:"id"`
	RedeemID      uuid.UUID     `json:"redeem_id"`
	ActorID       uuid.UUID     `json:"actor_id"`
	Amount        domain.Amount `json:"amount"`
	Stage         string        `json:"stage"`
	CompanyTagID  *uuid.UUID    `json:"company_tag_id,omitempty"`
	Identifier    string        `json:"identifier,omitempty"`
	Reference     string        `json:"reference,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	PrevStatus    string        `json:"-"`
	FailureReason string        `json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Open reports whether the operation can still be confirmed or cancelled.
func (o *PaymentOperation) Open() bool {
	return o.Stage == domain.StageHolding || o.Stage == domain.StageSettlementSelected
}

type ActivityLog struct {
	ID         uuid.UUID       `json:"id"`
	EntityType string          `json:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id"`
	ActorID    *uuid.UUID      `json:"actor_id,omitempty"`
	Action     string          `json:"action"`
	PrevState  string          `json:"prev_state,omitempty"`
	NextState  string          `json:"next_state,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// HeldLock is a record whose lock is owned by an agent.
type HeldLock struct {
	Entity     string    `json:"entity"`
	ID         uuid.UUID `json:"id"`
	ModalType  string    `json:"modal_type"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// ExpiredLock is a lease released by the reaper.
type ExpiredLock struct {
	Entity    string
	ID        uuid.UUID
	Owner     uuid.UUID
	ModalType string
}

// LedgerViolation is a redeem request whose amounts break the ledger invariant.
type LedgerViolation struct {
	RedeemID    uuid.UUID
	TotalAmount domain.Amount
	AmountHold  domain.Amount
	AmountPaid  domain.Amount
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAmount        = errors.New("amount must be greater than zero")
	ErrAmountUnavailable    = errors.New("Amount no longer available")
	ErrExceedsTotal         = errors.New("Cannot exceed total withdrawal amount")
	ErrExceedsHeld          = errors.New("Cannot process more than the held amount")
	ErrConfirmationMismatch = errors.New(`confirmation text must be "process"`)
	ErrLedgerInvariant      = errors.New("redeem ledger invariant violated")
)

// Ledger is the monetary view of a redeem request.
//
// Invariant: Hold >= 0, Paid >= 0 and Hold+Paid <= Total.
type Ledger struct {
	Total Amount
	Hold  Amount
	Paid  Amount
}

// Available is the amount not yet held or paid.
func (l Ledger) Available() Amount {
	return l.Total - l.Hold - l.Paid
}

// Validate checks the ledger invariant.
func (l Ledger) Validate() error {
	if l.Total < 0 || l.Hold < 0 || l.Paid < 0 {
		return fmt.Errorf("%w: negative amount (total=%s hold=%s paid=%s)", ErrLedgerInvariant, l.Total, l.Hold, l.Paid)
	}
	if l.Hold+l.Paid > l.Total {
		return fmt.Errorf("%w: hold %s + paid %s exceeds total %s", ErrLedgerInvariant, l.Hold, l.Paid, l.Total)
	}
	return nil
}

// BeginHold scopes the hold to a single payment operation of amount a.
// The hold is assigned, not accumulated.
func (l Ledger) BeginHold(a Amount) (Ledger, error) {
	if a <= 0 {
		return l, ErrInvalidAmount
	}
	if a > l.Available() {
		return l, ErrAmountUnavailable
	}
	l.Hold = a
	return l, l.Validate()
}

// Commit moves a from hold to paid.
func (l Ledger) Commit(a Amount) (Ledger, error) {
	if a <= 0 {
		return l, ErrInvalidAmount
	}
	newHold := l.Hold - a
	if newHold < 0 {
		return l, ErrExceedsHeld
	}
	l.Hold = newHold
	l.Paid += a
	return l, l.Validate()
}

// CancelHold drops the hold of the in-flight operation.
func (l Ledger) CancelHold() Ledger {
	l.Hold = 0
	return l
}

// AddHold reserves a for a recharge assignment.
func (l Ledger) AddHold(a Amount) (Ledger, error) {
	if a <= 0 {
		return l, ErrInvalidAmount
	}
	if l.Hold+a+l.Paid > l.Total {
		return l, ErrExceedsTotal
	}
	l.Hold += a
	return l, l.Validate()
}

// ReleaseHold gives back a previously assigned hold, never going below zero.
func (l Ledger) ReleaseHold(a Amount) Ledger {
	l.Hold -= a
	if l.Hold < 0 {
		l.Hold = 0
	}
	return l
}

// SettleHold records a of assigned funds as paid once the matching recharge is processed.
// It consumes up to a of the hold; a payment flow may already have replaced the assigned hold.
func (l Ledger) SettleHold(a Amount) (Ledger, error) {
	if a <= 0 {
		return l, ErrInvalidAmount
	}
	next := l.ReleaseHold(a)
	next.Paid += a
	if next.Hold+next.Paid > next.Total {
		return l, ErrExceedsTotal
	}
	return next, next.Validate()
}

// ReverseCommit undoes a committed payment of a and drops the remaining hold, as Cancel would.
func (l Ledger) ReverseCommit(a Amount) (Ledger, error) {
	if a <= 0 {
		return l, ErrInvalidAmount
	}
	if l.Paid < a {
		return l, fmt.Errorf("%w: cannot reverse %s from paid %s", ErrLedgerInvariant, a, l.Paid)
	}
	l.Paid -= a
	return l.CancelHold(), nil
}

// QueueStatus derives the queue status from the amounts.
func (l Ledger) QueueStatus() string {
	switch {
	case l.Total > 0 && l.Paid == l.Total:
		return RedeemStatusCompleted
	case l.Hold > 0 && l.Hold+l.Paid == l.Total:
		return RedeemStatusQueuedFullyAssigned
	case l.Hold > 0:
		return RedeemStatusQueuedPartiallyAssigned
	case l.Paid > 0:
		return RedeemStatusQueuedPartiallyPaid
	default:
		return RedeemStatusQueued
	}
}

// PaymentStatus is the status written after a committed payment.
func (l Ledger) PaymentStatus() string {
	if l.Paid == l.Total {
		return RedeemStatusCompleted
	}
	return RedeemStatusQueuedPartiallyPaid
}

// CancelStatus is the status written after a cancelled payment.
func (l Ledger) CancelStatus() string {
	if l.Paid > 0 {
		return RedeemStatusQueuedPartiallyPaid
	}
	return RedeemStatusQueued
}

// AssignStatus is the status written after a recharge is matched to the redeem.
func (l Ledger) AssignStatus() string {
	if l.Hold == l.Total {
		return RedeemStatusQueuedFullyAssigned
	}
	return RedeemStatusQueuedPartiallyAssigned
}

// ConfirmationMatches reports whether the operator typed the confirmation text.
func ConfirmationMatches(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), ConfirmationText)
}

// RequireConfirmation returns ErrConfirmationMismatch unless text matches.
func RequireConfirmation(text string) error {
	if !ConfirmationMatches(text) {
		return ErrConfirmationMismatch
	}
	return nil
}

package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/google/uuid"
)

// RedeemService serves read access to redeem requests.
type RedeemService struct {
	store QueryStore
}

func NewRedeemService(store QueryStore) *RedeemService {
	return &RedeemService{store: store}
}

func (s *RedeemService) List(ctx context.Context, status string, limit, offset int32) ([]*models.RedeemRequest, error) {
	params := listParams(status, limit, offset)
	if params.Status != "" && !domain.IsRedeemStatus(params.Status) {
		return nil, ErrInvalidStatus
	}
	return s.store.Queries().ListRedeemRequests(ctx, params)
}

func (s *RedeemService) Get(ctx context.Context, id uuid.UUID) (*models.RedeemRequest, error) {
	return s.store.Queries().GetRedeemRequest(ctx, id)
}

// writeRedeemLedger persists new amounts and status for a row-locked redeem request,
// enforcing the status transition map and recording the change.
func writeRedeemLedger(ctx context.Context, q *repository.Queries, audit *AuditService, redeem *models.RedeemRequest, next domain.Ledger, status string, actorID *uuid.UUID, action string, metadata map[string]any) error {
	if !domain.CanTransitionRedeem(redeem.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, redeem.Status, status)
	}
	return persistRedeemLedger(ctx, q, audit, redeem, next, status, actorID, action, metadata)
}

// persistRedeemLedger writes without the transition check. Only compensation uses it directly,
// since undoing a payment may reopen a completed request.
func persistRedeemLedger(ctx context.Context, q *repository.Queries, audit *AuditService, redeem *models.RedeemRequest, next domain.Ledger, status string, actorID *uuid.UUID, action string, metadata map[string]any) error {
	if err := next.Validate(); err != nil {
		return err
	}

	rows, err := q.UpdateRedeemAmounts(ctx, repository.UpdateRedeemAmountsParams{
		ID:         redeem.ID,
		AmountHold: next.Hold,
		AmountPaid: next.Paid,
		Status:     status,
	})
	if err != nil {
		return err
	}
	if err := requireExactlyOne(rows, "update redeem amounts"); err != nil {
		return err
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	prev := redeem.Ledger()
	metadata["amount_hold"] = map[string]domain.Amount{"from": prev.Hold, "to": next.Hold}
	metadata["amount_paid"] = map[string]domain.Amount{"from": prev.Paid, "to": next.Paid}
	encoded, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}
	if err := audit.Write(ctx, q, domain.EntityRedeem, redeem.ID, actorID, action, redeem.Status, status, encoded); err != nil {
		return err
	}

	redeem.ApplyLedger(next)
	redeem.Status = status
	return nil
}

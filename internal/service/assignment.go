package service

import (
	"context"
	"strings"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/gateway"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/google/uuid"
)

// AssignmentService matches pending recharge requests to redeem requests (P2P) or company tags (CT).
type AssignmentService struct {
	store QueryStore
	locks *LockService
	audit *AuditService
}

func NewAssignmentService(store QueryStore, locks *LockService) *AssignmentService {
	return &AssignmentService{store: store, locks: locks, audit: NewAuditService()}
}

type AssignRedeemRequest struct {
	RechargeID    uuid.UUID
	RedeemID      uuid.UUID
	ActorID       uuid.UUID
	Amount        domain.Amount
	MatchType     string
	RedeemPlayer  *uuid.UUID
	PaymentMethod string
}

type AssignmentResult struct {
	Recharge *models.RechargeRequest `json:"recharge"`
	Redeem   *models.RedeemRequest   `json:"redeem,omitempty"`
	Tag      *models.CompanyTag      `json:"company_tag,omitempty"`
}

// AssignRedeemRequest moves amount of a pending recharge onto a redeem request's hold.
// Both rows are locked in one transaction, recharge first.
func (s *AssignmentService) AssignRedeemRequest(ctx context.Context, req AssignRedeemRequest) (*AssignmentResult, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	matchType := strings.ToLower(strings.TrimSpace(req.MatchType))
	if matchType != domain.MatchTypeFull && matchType != domain.MatchTypePartial {
		return nil, ErrInvalidMatchType
	}

	result := &AssignmentResult{}
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		recharge, err := q.GetRechargeRequestForUpdate(ctx, req.RechargeID)
		if err != nil {
			return err
		}
		if recharge.Status != domain.RechargeStatusPending {
			return ErrRechargeNotPending
		}
		if s.locks.lockedByOther(recharge.Processing, req.ActorID) {
			return ErrLockHeld
		}
		if recharge.AssignedCT != nil {
			return ErrAlreadyAssignedToTag
		}
		if req.Amount > recharge.Amount {
			return ErrAssignExceedsRecharge
		}

		redeem, err := q.GetRedeemRequestForUpdate(ctx, req.RedeemID)
		if err != nil {
			return err
		}
		if s.locks.lockedByOther(redeem.Processing, req.ActorID) {
			return ErrLockHeld
		}
		if !domain.IsPayableRedeemStatus(redeem.Status) {
			return ErrRedeemNotPayable
		}
		next, err := redeem.Ledger().AddHold(req.Amount)
		if err != nil {
			return err
		}

		assigned := models.AssignedRedeem{
			RedeemID:      redeem.ID,
			Amount:        req.Amount,
			Type:          matchType,
			AssignedAt:    s.locks.now().UTC(),
			RedeemPlayer:  req.RedeemPlayer,
			PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		}
		if assigned.RedeemPlayer == nil {
			player := redeem.PlayerID
			assigned.RedeemPlayer = &player
		}
		if assigned.PaymentMethod == "" && len(redeem.PaymentMethods) > 0 {
			assigned.PaymentMethod = redeem.PaymentMethods[0].Type
		}

		rows, err := q.AssignRechargeToRedeem(ctx, recharge.ID, assigned)
		if err != nil {
			return err
		}
		if rows != 1 {
			return ErrAlreadyAssignedToTag
		}
		if err := writeRedeemLedger(ctx, q, s.audit, redeem, next, next.AssignStatus(), &req.ActorID, "recharge_assigned", map[string]any{
			"recharge_id": recharge.ID,
			"amount":      req.Amount,
			"match_type":  matchType,
		}); err != nil {
			return err
		}
		if _, err := q.ReleaseLock(ctx, repository.EntityRechargeRequests, recharge.ID, req.ActorID); err != nil {
			return err
		}
		metadata, err := encodeMetadata(map[string]any{"assigned_redeem": assigned})
		if err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, domain.EntityRecharge, recharge.ID, &req.ActorID, "assign_redeem", recharge.Status, domain.RechargeStatusAssigned, metadata); err != nil {
			return err
		}

		if result.Recharge, err = q.GetRechargeRequest(ctx, recharge.ID); err != nil {
			return err
		}
		result.Redeem = redeem
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type AssignTagRequest struct {
	RechargeID uuid.UUID
	TagID      uuid.UUID
	ActorID    uuid.UUID
}

// AssignCompanyTag settles a pending recharge through a company tag and credits the tag.
func (s *AssignmentService) AssignCompanyTag(ctx context.Context, req AssignTagRequest) (*AssignmentResult, error) {
	result := &AssignmentResult{}
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		recharge, err := q.GetRechargeRequestForUpdate(ctx, req.RechargeID)
		if err != nil {
			return err
		}
		if recharge.Status != domain.RechargeStatusPending {
			return ErrRechargeNotPending
		}
		if s.locks.lockedByOther(recharge.Processing, req.ActorID) {
			return ErrLockHeld
		}
		if recharge.AssignedCT != nil || recharge.AssignedRedeem != nil {
			return ErrAlreadyAssigned
		}

		tag, err := q.GetCompanyTagForUpdate(ctx, req.TagID)
		if err != nil {
			return err
		}
		if tag.Status != domain.TagStatusActive {
			return gateway.ErrTagNotActive
		}
		if !tag.CanReceive(recharge.Amount) {
			return ErrTagLimitExceeded
		}

		rows, err := q.AssignRechargeToTag(ctx, recharge.ID, tag.ID)
		if err != nil {
			return err
		}
		if rows != 1 {
			return ErrAlreadyAssigned
		}
		updated, err := q.AdjustCompanyTagBalance(ctx, repository.AdjustCompanyTagBalanceParams{
			ID:            tag.ID,
			BalanceDelta:  recharge.Amount,
			ReceivedDelta: recharge.Amount,
			CountDelta:    1,
		})
		if err != nil {
			return err
		}
		if _, err := q.ReleaseLock(ctx, repository.EntityRechargeRequests, recharge.ID, req.ActorID); err != nil {
			return err
		}

		metadata, err := encodeMetadata(map[string]any{"recharge_id": recharge.ID, "amount": recharge.Amount})
		if err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, domain.EntityCompanyTag, tag.ID, &req.ActorID, "deposit", tag.Balance.String(), updated.Balance.String(), metadata); err != nil {
			return err
		}
		metadata, err = encodeMetadata(map[string]any{"company_tag_id": tag.ID, "cashtag": tag.Cashtag})
		if err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, domain.EntityRecharge, recharge.ID, &req.ActorID, "assign_tag", recharge.Status, domain.RechargeStatusAssigned, metadata); err != nil {
			return err
		}

		if result.Recharge, err = q.GetRechargeRequest(ctx, recharge.ID); err != nil {
			return err
		}
		result.Tag = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

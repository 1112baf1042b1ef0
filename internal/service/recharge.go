package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/google/uuid"
)

// RechargeService runs the screenshot review and completion steps of a matched recharge.
type RechargeService struct {
	store QueryStore
	locks *LockService
	audit *AuditService
}

func NewRechargeService(store QueryStore, locks *LockService) *RechargeService {
	return &RechargeService{store: store, locks: locks, audit: NewAuditService()}
}

func (s *RechargeService) List(ctx context.Context, status string, limit, offset int32) ([]*models.RechargeRequest, error) {
	params := listParams(status, limit, offset)
	if params.Status != "" && !domain.IsRechargeStatus(params.Status) {
		return nil, ErrInvalidStatus
	}
	return s.store.Queries().ListRechargeRequests(ctx, params)
}

func (s *RechargeService) Get(ctx context.Context, id uuid.UUID) (*models.RechargeRequest, error) {
	return s.store.Queries().GetRechargeRequest(ctx, id)
}

// lockedRecharge loads the recharge for update and refuses it when another agent holds its lock
// or it cannot move to next.
func (s *RechargeService) lockedRecharge(ctx context.Context, q *repository.Queries, id, actor uuid.UUID, next string) (*models.RechargeRequest, error) {
	recharge, err := q.GetRechargeRequestForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.locks.lockedByOther(recharge.Processing, actor) {
		return nil, ErrLockHeld
	}
	if recharge.Status == next || !domain.CanTransitionRecharge(recharge.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, recharge.Status, next)
	}
	return recharge, nil
}

// SubmitScreenshot records the player's payment proof for an assigned recharge.
func (s *RechargeService) SubmitScreenshot(ctx context.Context, id, actor uuid.UUID, url string) (*models.RechargeRequest, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrScreenshotRequired
	}
	var out *models.RechargeRequest
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		recharge, err := s.lockedRecharge(ctx, q, id, actor, domain.RechargeStatusSCSubmitted)
		if err != nil {
			return err
		}
		rows, err := q.SubmitRechargeScreenshot(ctx, recharge.ID, url)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "submit recharge screenshot"); err != nil {
			return err
		}
		metadata, err := encodeMetadata(map[string]any{"screenshot_url": url})
		if err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, domain.EntityRecharge, recharge.ID, &actor, "screenshot_submitted", recharge.Status, domain.RechargeStatusSCSubmitted, metadata); err != nil {
			return err
		}
		out, err = q.GetRechargeRequest(ctx, recharge.ID)
		return err
	})
	return out, err
}

// Process completes a recharge: credits are loaded and the assigned amount on the matched
// redeem request moves from hold to paid.
func (s *RechargeService) Process(ctx context.Context, id, actor uuid.UUID, confirmation string) (*models.RechargeRequest, error) {
	if err := domain.RequireConfirmation(confirmation); err != nil {
		return nil, err
	}
	var out *models.RechargeRequest
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		recharge, err := s.lockedRecharge(ctx, q, id, actor, domain.RechargeStatusCompleted)
		if err != nil {
			return err
		}
		if recharge.AssignedRedeem == nil && recharge.AssignedCT == nil {
			return fmt.Errorf("%w: recharge is not matched", ErrInvalidTransition)
		}

		if ar := recharge.AssignedRedeem; ar != nil {
			redeem, err := q.GetRedeemRequestForUpdate(ctx, ar.RedeemID)
			if err != nil {
				return err
			}
			if s.locks.lockedByOther(redeem.Processing, actor) {
				return ErrLockHeld
			}
			next, err := redeem.Ledger().SettleHold(ar.Amount)
			if err != nil {
				return err
			}
			if err := writeRedeemLedger(ctx, q, s.audit, redeem, next, next.QueueStatus(), &actor, "recharge_processed", map[string]any{
				"recharge_id": recharge.ID,
				"amount":      ar.Amount,
			}); err != nil {
				return err
			}
		}

		credits := recharge.Amount + recharge.BonusAmount
		rows, err := q.CompleteRechargeRequest(ctx, recharge.ID, recharge.Status, credits)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "complete recharge request"); err != nil {
			return err
		}
		if _, err := q.ReleaseLock(ctx, repository.EntityRechargeRequests, recharge.ID, actor); err != nil {
			return err
		}
		metadata, err := encodeMetadata(map[string]any{"credits_loaded": credits})
		if err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, domain.EntityRecharge, recharge.ID, &actor, "processed", recharge.Status, domain.RechargeStatusCompleted, metadata); err != nil {
			return err
		}
		out, err = q.GetRechargeRequest(ctx, recharge.ID)
		return err
	})
	return out, err
}

// RejectScreenshot refuses the payment proof and undoes the match. The recharge stays in
// sc_rejected until Requeue returns it to the pending queue.
func (s *RechargeService) RejectScreenshot(ctx context.Context, id, actor uuid.UUID, reason string) (*models.RechargeRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	var out *models.RechargeRequest
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		recharge, err := s.lockedRecharge(ctx, q, id, actor, domain.RechargeStatusSCRejected)
		if err != nil {
			return err
		}

		if ar := recharge.AssignedRedeem; ar != nil {
			redeem, err := q.GetRedeemRequestForUpdate(ctx, ar.RedeemID)
			if err != nil {
				return err
			}
			if s.locks.lockedByOther(redeem.Processing, actor) {
				return ErrLockHeld
			}
			next := redeem.Ledger().ReleaseHold(ar.Amount)
			if err := writeRedeemLedger(ctx, q, s.audit, redeem, next, next.QueueStatus(), &actor, "recharge_unassigned", map[string]any{
				"recharge_id": recharge.ID,
				"amount":      ar.Amount,
			}); err != nil {
				return err
			}
		}
		if recharge.AssignedCT != nil {
			if err := s.reverseTagCredit(ctx, q, *recharge.AssignedCT, recharge, actor); err != nil {
				return err
			}
		}

		rows, err := q.RejectRechargeScreenshot(ctx, recharge.ID)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "reject recharge screenshot"); err != nil {
			return err
		}
		if _, err := q.ReleaseLock(ctx, repository.EntityRechargeRequests, recharge.ID, actor); err != nil {
			return err
		}
		metadata, err := encodeMetadata(map[string]any{"reason": reason})
		if err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, domain.EntityRecharge, recharge.ID, &actor, "screenshot_rejected", recharge.Status, domain.RechargeStatusSCRejected, metadata); err != nil {
			return err
		}
		out, err = q.GetRechargeRequest(ctx, recharge.ID)
		return err
	})
	return out, err
}

// Requeue returns a rejected recharge to pending so it can be matched again.
func (s *RechargeService) Requeue(ctx context.Context, id, actor uuid.UUID) (*models.RechargeRequest, error) {
	var out *models.RechargeRequest
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		recharge, err := s.lockedRecharge(ctx, q, id, actor, domain.RechargeStatusPending)
		if err != nil {
			return err
		}
		rows, err := q.RequeueRechargeRequest(ctx, recharge.ID)
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "requeue recharge request"); err != nil {
			return err
		}
		if _, err := q.ReleaseLock(ctx, repository.EntityRechargeRequests, recharge.ID, actor); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, domain.EntityRecharge, recharge.ID, &actor, "requeued", recharge.Status, domain.RechargeStatusPending, nil); err != nil {
			return err
		}
		out, err = q.GetRechargeRequest(ctx, recharge.ID)
		return err
	})
	return out, err
}

func (s *RechargeService) reverseTagCredit(ctx context.Context, q *repository.Queries, tagID uuid.UUID, recharge *models.RechargeRequest, actor uuid.UUID) error {
	tag, err := q.GetCompanyTagForUpdate(ctx, tagID)
	if err != nil {
		return err
	}
	if tag.Balance < recharge.Amount {
		return fmt.Errorf("reverse credit on %s: balance %s is below %s", tag.Cashtag, tag.Balance, recharge.Amount)
	}
	updated, err := q.AdjustCompanyTagBalance(ctx, repository.AdjustCompanyTagBalanceParams{
		ID:            tag.ID,
		BalanceDelta:  -recharge.Amount,
		ReceivedDelta: -recharge.Amount,
		CountDelta:    -1,
	})
	if err != nil {
		return err
	}
	metadata, err := encodeMetadata(map[string]any{"recharge_id": recharge.ID, "amount": recharge.Amount})
	if err != nil {
		return err
	}
	return s.audit.Write(ctx, q, domain.EntityCompanyTag, tag.ID, &actor, "deposit_reversed", tag.Balance.String(), updated.Balance.String(), metadata)
}

// Dispute flags a completed recharge.
func (s *RechargeService) Dispute(ctx context.Context, id, actor uuid.UUID, reason string) (*models.RechargeRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	var out *models.RechargeRequest
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		recharge, err := s.lockedRecharge(ctx, q, id, actor, domain.RechargeStatusDisputed)
		if err != nil {
			return err
		}
		rows, err := q.UpdateRechargeStatus(ctx, repository.UpdateRechargeStatusParams{
			ID:         recharge.ID,
			FromStatus: recharge.Status,
			Status:     domain.RechargeStatusDisputed,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "dispute recharge request"); err != nil {
			return err
		}
		metadata, err := encodeMetadata(map[string]any{"reason": reason})
		if err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, domain.EntityRecharge, recharge.ID, &actor, "disputed", recharge.Status, domain.RechargeStatusDisputed, metadata); err != nil {
			return err
		}
		out, err = q.GetRechargeRequest(ctx, recharge.ID)
		return err
	})
	return out, err
}

package service

import (
	"context"
	"strings"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/google/uuid"
)

// VerificationService approves or rejects redeem requests awaiting identity verification.
type VerificationService struct {
	store QueryStore
	locks *LockService
	audit *AuditService
}

func NewVerificationService(store QueryStore, locks *LockService) *VerificationService {
	return &VerificationService{store: store, locks: locks, audit: NewAuditService()}
}

// List defaults to requests pending verification.
func (s *VerificationService) List(ctx context.Context, status string, limit, offset int32) ([]*models.RedeemRequest, error) {
	params := listParams(status, limit, offset)
	switch params.Status {
	case "":
		params.Status = domain.RedeemStatusVerificationPending
	case domain.RedeemStatusVerificationPending, domain.RedeemStatusVerificationFailed:
	default:
		return nil, ErrInvalidStatus
	}
	return s.store.Queries().ListRedeemRequests(ctx, params)
}

func (s *VerificationService) Approve(ctx context.Context, id, actor uuid.UUID, notes string) (*models.RedeemRequest, error) {
	return s.decide(ctx, id, actor, domain.RedeemStatusQueued, "verification_approved", notes)
}

func (s *VerificationService) Reject(ctx context.Context, id, actor uuid.UUID, notes string) (*models.RedeemRequest, error) {
	return s.decide(ctx, id, actor, domain.RedeemStatusVerificationFailed, "verification_rejected", notes)
}

func (s *VerificationService) decide(ctx context.Context, id, actor uuid.UUID, status, action, notes string) (*models.RedeemRequest, error) {
	notes = strings.TrimSpace(notes)
	var out *models.RedeemRequest
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		redeem, err := q.GetRedeemRequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if redeem.Status != domain.RedeemStatusVerificationPending {
			return ErrNotVerificationPending
		}
		if _, err := s.locks.acquireTx(ctx, q, repository.EntityRedeemRequests, redeem.ID, actor, domain.ModalVerification); err != nil {
			return err
		}

		rows, err := q.UpdateRedeemVerification(ctx, repository.UpdateRedeemVerificationParams{
			ID:         redeem.ID,
			FromStatus: redeem.Status,
			Status:     status,
			VerifiedBy: actor,
			Notes:      notes,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "update redeem verification"); err != nil {
			return err
		}
		metadata, err := encodeMetadata(map[string]any{"notes": notes})
		if err != nil {
			return err
		}
		if err := s.audit.Write(ctx, q, domain.EntityRedeem, redeem.ID, &actor, action, redeem.Status, status, metadata); err != nil {
			return err
		}
		out, err = q.GetRedeemRequest(ctx, redeem.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/google/uuid"
)

// TransferService approves or rejects platform-to-platform balance transfers.
type TransferService struct {
	store QueryStore
	locks *LockService
	audit *AuditService
}

func NewTransferService(store QueryStore, locks *LockService) *TransferService {
	return &TransferService{store: store, locks: locks, audit: NewAuditService()}
}

func (s *TransferService) List(ctx context.Context, status string, limit, offset int32) ([]*models.TransferRequest, error) {
	params := listParams(status, limit, offset)
	switch params.Status {
	case "", domain.TransferStatusPending, domain.TransferStatusCompleted, domain.TransferStatusRejected:
	default:
		return nil, ErrInvalidStatus
	}
	return s.store.Queries().ListTransferRequests(ctx, params)
}

func (s *TransferService) Get(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	return s.store.Queries().GetTransferRequest(ctx, id)
}

// Approve completes a pending transfer and records the balance movement.
func (s *TransferService) Approve(ctx context.Context, id, actor uuid.UUID, confirmation string) (*models.TransferRequest, error) {
	if err := domain.RequireConfirmation(confirmation); err != nil {
		return nil, err
	}
	return s.finish(ctx, id, actor, domain.TransferStatusCompleted, "")
}

// Reject closes a pending transfer. A reason is required.
func (s *TransferService) Reject(ctx context.Context, id, actor uuid.UUID, confirmation, reason string) (*models.TransferRequest, error) {
	if err := domain.RequireConfirmation(confirmation); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return s.finish(ctx, id, actor, domain.TransferStatusRejected, reason)
}

func (s *TransferService) finish(ctx context.Context, id, actor uuid.UUID, status, reason string) (*models.TransferRequest, error) {
	var out *models.TransferRequest
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		transfer, err := q.GetTransferRequestForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if transfer.Status != domain.TransferStatusPending {
			return ErrTransferNotPending
		}
		if _, err := s.locks.acquireTx(ctx, q, repository.EntityTransferRequests, transfer.ID, actor, domain.ModalTransfer); err != nil {
			return err
		}

		out, err = q.FinishTransferRequest(ctx, repository.FinishTransferRequestParams{
			ID:          transfer.ID,
			Status:      status,
			ProcessedBy: actor,
			Reason:      reason,
		})
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTransferNotPending
		}
		if err != nil {
			return err
		}

		action := "transfer_rejected"
		metadata := map[string]any{"reason": reason}
		if status == domain.TransferStatusCompleted {
			action = "transfer_balance"
			metadata = map[string]any{
				"player_id":     transfer.PlayerID,
				"from_platform": transfer.FromPlatform,
				"to_platform":   transfer.ToPlatform,
				"amount":        transfer.Amount,
			}
		}
		encoded, err := encodeMetadata(metadata)
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, q, domain.EntityTransfer, transfer.ID, &actor, action, transfer.Status, status, encoded)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/gateway"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/observability"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService drives the Process Payment flow on redeem requests:
// hold, settlement selection, typed confirmation, commit and cancel.
type PaymentService struct {
	store   QueryStore
	locks   *LockService
	settler gateway.Settler
	audit   *AuditService
}

func NewPaymentService(store QueryStore, locks *LockService, settler gateway.Settler) *PaymentService {
	s := &PaymentService{
		store:   store,
		locks:   locks,
		settler: settler,
		audit:   NewAuditService(),
	}
	locks.RegisterAbandonHook(s.abandonOnLockLoss)
	return s
}

type BeginHoldRequest struct {
	RedeemID uuid.UUID
	ActorID  uuid.UUID
	Amount   domain.Amount
}

// BeginHold locks the redeem request with payment_modal and scopes its hold to the new operation.
func (s *PaymentService) BeginHold(ctx context.Context, req BeginHoldRequest) (*models.PaymentOperation, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var op *models.PaymentOperation
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
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

		// a previous operation left open is superseded before the lock is (re)claimed
		open, err := q.GetOpenPaymentOperation(ctx, redeem.ID)
		switch {
		case err == nil:
			if err := s.cancelTx(ctx, q, open, req.ActorID, domain.StageCancelled, "superseded by a new hold"); err != nil {
				return err
			}
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		if _, err := s.locks.acquireTx(ctx, q, repository.EntityRedeemRequests, redeem.ID, req.ActorID, domain.ModalPayment); err != nil {
			return err
		}

		// amounts may have moved since the modal opened
		redeem, err = q.GetRedeemRequest(ctx, req.RedeemID)
		if err != nil {
			return err
		}
		next, err := redeem.Ledger().BeginHold(req.Amount)
		if err != nil {
			return err
		}

		op, err = q.CreatePaymentOperation(ctx, repository.CreatePaymentOperationParams{
			RedeemID:   redeem.ID,
			ActorID:    req.ActorID,
			Amount:     req.Amount,
			PrevStatus: redeem.Status,
		})
		if err != nil {
			return err
		}
		if err := writeRedeemLedger(ctx, q, s.audit, redeem, next, redeem.Status, &req.ActorID, "payment_hold", map[string]any{
			"payment_id": op.ID,
			"amount":     req.Amount,
		}); err != nil {
			return err
		}
		return s.audit.Write(ctx, q, domain.EntityPayment, op.ID, &req.ActorID, "hold", "", domain.StageHolding, nil)
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

type SelectSettlementRequest struct {
	OperationID  uuid.UUID
	ActorID      uuid.UUID
	CompanyTagID uuid.UUID
	Identifier   string
}

// SelectSettlement records the company tag and identifier the payment will be settled through.
func (s *PaymentService) SelectSettlement(ctx context.Context, req SelectSettlementRequest) (*models.PaymentOperation, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if req.CompanyTagID == uuid.Nil || identifier == "" {
		return nil, ErrSettlementRequired
	}

	var op *models.PaymentOperation
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		current, err := q.GetPaymentOperationForUpdate(ctx, req.OperationID)
		if err != nil {
			return err
		}
		if current.ActorID != req.ActorID {
			return ErrNotOperationOwner
		}
		if !current.Open() {
			return ErrOperationNotOpen
		}
		redeem, err := q.GetRedeemRequest(ctx, current.RedeemID)
		if err != nil {
			return err
		}
		if !redeem.Processing.HeldBy(req.ActorID) {
			return ErrLockNotHeld
		}
		tag, err := q.GetCompanyTag(ctx, req.CompanyTagID)
		if err != nil {
			return fmt.Errorf("company tag: %w", err)
		}
		if tag.Status != domain.TagStatusActive {
			return gateway.ErrTagNotActive
		}
		if !redeem.AcceptsPaymentMethod(tag.PaymentMethod) {
			return ErrPaymentMethodMismatch
		}

		op, err = q.SelectPaymentSettlement(ctx, repository.SelectSettlementParams{
			ID:           current.ID,
			CompanyTagID: tag.ID,
			Identifier:   identifier,
		})
		if err != nil {
			return err
		}
		metadata, err := encodeMetadata(map[string]any{"company_tag_id": tag.ID, "cashtag": tag.Cashtag, "identifier": identifier})
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, q, domain.EntityPayment, op.ID, &req.ActorID, "settlement_selected", current.Stage, op.Stage, metadata)
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

type ConfirmRequest struct {
	OperationID  uuid.UUID
	ActorID      uuid.UUID
	Confirmation string
	Reference    string
	Notes        string
}

// Confirm commits the held amount as paid and settles it. A failed settlement is compensated
// and reported as *SettlementError.
func (s *PaymentService) Confirm(ctx context.Context, req ConfirmRequest) (*models.PaymentOperation, error) {
	if err := domain.RequireConfirmation(req.Confirmation); err != nil {
		return nil, err
	}

	var (
		op         *models.PaymentOperation
		settlement gateway.Settlement
	)
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		var err error
		op, err = q.GetPaymentOperationForUpdate(ctx, req.OperationID)
		if err != nil {
			return err
		}
		if op.ActorID != req.ActorID {
			return ErrNotOperationOwner
		}
		if op.Stage != domain.StageSettlementSelected || op.CompanyTagID == nil {
			return ErrOperationNotConfirmable
		}
		redeem, err := q.GetRedeemRequestForUpdate(ctx, op.RedeemID)
		if err != nil {
			return err
		}
		if !redeem.Processing.HeldBy(req.ActorID) {
			return ErrLockNotHeld
		}

		next, err := redeem.Ledger().Commit(op.Amount)
		if err != nil {
			return err
		}
		if err := writeRedeemLedger(ctx, q, s.audit, redeem, next, next.PaymentStatus(), &req.ActorID, "payment_commit", map[string]any{
			"payment_id": op.ID,
			"amount":     op.Amount,
		}); err != nil {
			return err
		}

		rows, err := q.MarkPaymentSettling(ctx, repository.MarkPaymentSettlingParams{
			ID:        op.ID,
			Reference: strings.TrimSpace(req.Reference),
			Notes:     strings.TrimSpace(req.Notes),
		})
		if err != nil {
			return err
		}
		if rows != 1 {
			return ErrOperationNotConfirmable
		}
		if err := s.audit.Write(ctx, q, domain.EntityPayment, op.ID, &req.ActorID, "commit", domain.StageSettlementSelected, domain.StageSettling, nil); err != nil {
			return err
		}

		settlement = gateway.Settlement{
			PaymentID:    op.ID,
			RedeemID:     op.RedeemID,
			ActorID:      req.ActorID,
			Amount:       op.Amount,
			CompanyTagID: *op.CompanyTagID,
			Identifier:   op.Identifier,
			Reference:    strings.TrimSpace(req.Reference),
			Notes:        strings.TrimSpace(req.Notes),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if settleErr := s.settler.Settle(ctx, settlement); settleErr != nil {
		observability.IncrementSettlement("failed")
		zap.L().Warn("payment settlement failed",
			zap.String("payment_id", op.ID.String()),
			zap.String("redeem_id", op.RedeemID.String()),
			zap.Error(settleErr))
		if compErr := s.compensate(ctx, op, req.ActorID, settleErr); compErr != nil {
			zap.L().Error("payment compensation failed; manual reconciliation required",
				zap.String("payment_id", op.ID.String()),
				zap.String("redeem_id", op.RedeemID.String()),
				zap.Error(compErr))
			return nil, &SettlementError{Err: errors.Join(settleErr, compErr)}
		}
		return nil, &SettlementError{Err: settleErr}
	}
	observability.IncrementSettlement("settled")

	var committed *models.PaymentOperation
	err = s.store.RunInTx(ctx, func(q *repository.Queries) error {
		if _, err := q.ReleaseLock(ctx, repository.EntityRedeemRequests, op.RedeemID, req.ActorID); err != nil {
			return err
		}
		var err error
		committed, err = q.UpdatePaymentStage(ctx, repository.UpdatePaymentStageParams{
			ID:        op.ID,
			FromStage: []string{domain.StageSettling},
			Stage:     domain.StageCommitted,
		})
		if err != nil {
			return err
		}
		return s.audit.Write(ctx, q, domain.EntityPayment, op.ID, &req.ActorID, "settled", domain.StageSettling, domain.StageCommitted, nil)
	})
	if err != nil {
		// money already moved; the lock will lapse with its lease
		zap.L().Error("finalize settled payment", zap.String("payment_id", op.ID.String()), zap.Error(err))
		op.Stage = domain.StageSettling
		return op, nil
	}
	return committed, nil
}

// compensate reverses a committed payment whose settlement failed.
func (s *PaymentService) compensate(ctx context.Context, op *models.PaymentOperation, actor uuid.UUID, cause error) error {
	return s.store.RunInTx(ctx, func(q *repository.Queries) error {
		redeem, err := q.GetRedeemRequestForUpdate(ctx, op.RedeemID)
		if err != nil {
			return err
		}
		next, err := redeem.Ledger().ReverseCommit(op.Amount)
		if err != nil {
			return err
		}
		if err := persistRedeemLedger(ctx, q, s.audit, redeem, next, next.CancelStatus(), &actor, "payment_compensated", map[string]any{
			"payment_id": op.ID,
			"amount":     op.Amount,
			"error":      cause.Error(),
		}); err != nil {
			return err
		}
		if _, err := q.ReleaseLock(ctx, repository.EntityRedeemRequests, op.RedeemID, actor); err != nil {
			return err
		}
		if _, err := q.UpdatePaymentStage(ctx, repository.UpdatePaymentStageParams{
			ID:            op.ID,
			FromStage:     []string{domain.StageSettling},
			Stage:         domain.StageFailed,
			FailureReason: cause.Error(),
		}); err != nil {
			return err
		}
		return s.audit.Write(ctx, q, domain.EntityPayment, op.ID, &actor, "settlement_failed", domain.StageSettling, domain.StageFailed, nil)
	})
}

type CancelPaymentRequest struct {
	OperationID uuid.UUID
	ActorID     uuid.UUID
}

// Cancel drops the operation's hold and releases the lock.
func (s *PaymentService) Cancel(ctx context.Context, req CancelPaymentRequest) (*models.PaymentOperation, error) {
	var op *models.PaymentOperation
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		current, err := q.GetPaymentOperationForUpdate(ctx, req.OperationID)
		if err != nil {
			return err
		}
		if current.ActorID != req.ActorID {
			return ErrNotOperationOwner
		}
		if !current.Open() {
			return ErrOperationNotOpen
		}
		if err := s.cancelTx(ctx, q, current, req.ActorID, domain.StageCancelled, ""); err != nil {
			return err
		}
		op, err = q.GetPaymentOperation(ctx, current.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// cancelTx resets the hold of an open operation and releases its owner's lock.
func (s *PaymentService) cancelTx(ctx context.Context, q *repository.Queries, op *models.PaymentOperation, actor uuid.UUID, stage, reason string) error {
	redeem, err := q.GetRedeemRequestForUpdate(ctx, op.RedeemID)
	if err != nil {
		return err
	}
	next := redeem.Ledger().CancelHold()
	if err := writeRedeemLedger(ctx, q, s.audit, redeem, next, next.CancelStatus(), &actor, "payment_cancel", map[string]any{
		"payment_id": op.ID,
		"reason":     reason,
	}); err != nil {
		return err
	}
	if _, err := q.ReleaseLock(ctx, repository.EntityRedeemRequests, op.RedeemID, op.ActorID); err != nil {
		return err
	}
	if _, err := q.UpdatePaymentStage(ctx, repository.UpdatePaymentStageParams{
		ID:            op.ID,
		FromStage:     []string{domain.StageHolding, domain.StageSettlementSelected},
		Stage:         stage,
		FailureReason: reason,
	}); err != nil {
		return err
	}
	return s.audit.Write(ctx, q, domain.EntityPayment, op.ID, &actor, "cancel", op.Stage, stage, nil)
}

// abandonOnLockLoss cancels the open payment of a redeem whose payment lock was dropped outside the flow.
func (s *PaymentService) abandonOnLockLoss(ctx context.Context, q *repository.Queries, lock models.ExpiredLock) error {
	if lock.Entity != repository.EntityRedeemRequests || lock.ModalType != domain.ModalPayment {
		return nil
	}
	op, err := q.GetOpenPaymentOperation(ctx, lock.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	zap.L().Info("cancelling abandoned payment operation",
		zap.String("payment_id", op.ID.String()),
		zap.String("redeem_id", op.RedeemID.String()),
		zap.String("owner", lock.Owner.String()))
	return s.cancelTx(ctx, q, op, lock.Owner, domain.StageCancelled, "processing lock released")
}

func (s *PaymentService) Get(ctx context.Context, id uuid.UUID) (*models.PaymentOperation, error) {
	return s.store.Queries().GetPaymentOperation(ctx, id)
}

// Open returns the redeem's operation still awaiting confirmation, for reopening the payment modal.
func (s *PaymentService) Open(ctx context.Context, redeemID uuid.UUID) (*models.PaymentOperation, error) {
	var op *models.PaymentOperation
	err := s.store.RunInTx(ctx, func(q *repository.Queries) error {
		var err error
		op, err = q.GetOpenPaymentOperation(ctx, redeemID)
		return err
	})
	return op, err
}

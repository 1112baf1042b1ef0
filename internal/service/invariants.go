package service

import (
	"context"

	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/observability"
	"go.uber.org/zap"
)

const invariantScanLimit = 500

// InvariantService checks stored redeem ledgers for hold + paid > total or negative amounts.
type InvariantService struct {
	store QueryStore
}

func NewInvariantService(store QueryStore) *InvariantService {
	return &InvariantService{store: store}
}

func (s *InvariantService) Audit(ctx context.Context) ([]models.LedgerViolation, error) {
	violations, err := s.store.Queries().ListLedgerViolations(ctx, invariantScanLimit)
	if err != nil {
		return nil, err
	}
	observability.RecordInvariantViolations(len(violations))
	for _, v := range violations {
		zap.L().Error("redeem ledger invariant violated",
			zap.String("redeem_id", v.RedeemID.String()),
			zap.String("total_amount", v.TotalAmount.String()),
			zap.String("amount_hold", v.AmountHold.String()),
			zap.String("amount_paid", v.AmountPaid.String()))
	}
	return violations, nil
}

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/repository"
)

var (
	ErrTagNotActive           = errors.New("company tag is not active")
	ErrInsufficientTagBalance = errors.New("insufficient company tag balance")
)

// TxRunner runs fn in a database transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(q *repository.Queries) error) error
}

// TagSettler debits the selected company tag for a payment.
type TagSettler struct {
	store TxRunner
}

func NewTagSettler(store TxRunner) *TagSettler {
	return &TagSettler{store: store}
}

func (s *TagSettler) Settle(ctx context.Context, st Settlement) error {
	if st.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	return s.store.RunInTx(ctx, func(q *repository.Queries) error {
		tag, err := q.GetCompanyTagForUpdate(ctx, st.CompanyTagID)
		if err != nil {
			return fmt.Errorf("load company tag: %w", err)
		}
		if tag.Status != domain.TagStatusActive {
			return fmt.Errorf("%w: %s is %s", ErrTagNotActive, tag.Cashtag, tag.Status)
		}
		if tag.Balance < st.Amount {
			return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientTagBalance, tag.Cashtag, tag.Balance, st.Amount)
		}

		updated, err := q.AdjustCompanyTagBalance(ctx, repository.AdjustCompanyTagBalanceParams{
			ID:             tag.ID,
			BalanceDelta:   -st.Amount,
			WithdrawnDelta: st.Amount,
			CountDelta:     1,
		})
		if err != nil {
			return err
		}

		metadata, err := json.Marshal(map[string]any{
			"payment_id": st.PaymentID,
			"redeem_id":  st.RedeemID,
			"amount":     st.Amount,
			"reference":  st.Reference,
			"identifier": st.Identifier,
			"notes":      st.Notes,
		})
		if err != nil {
			return fmt.Errorf("encode settlement metadata: %w", err)
		}
		actor := st.ActorID
		return q.CreateActivityLog(ctx, repository.CreateActivityLogParams{
			EntityType: domain.EntityCompanyTag,
			EntityID:   tag.ID,
			ActorID:    &actor,
			Action:     "withdrawal",
			PrevState:  tag.Balance.String(),
			NextState:  updated.Balance.String(),
			Metadata:   metadata,
		})
	})
}

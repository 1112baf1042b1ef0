package gateway

import (
	"context"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/google/uuid"
)

// Settlement describes the money movement behind a confirmed payment.
type Settlement struct {
	PaymentID    uuid.UUID
	RedeemID     uuid.UUID
	ActorID      uuid.UUID
	Amount       domain.Amount
	CompanyTagID uuid.UUID
	Identifier   string
	Reference    string
	Notes        string
}

// Settler moves the money for a confirmed payment. Its error is shown to the operator verbatim.
type Settler interface {
	Settle(ctx context.Context, s Settlement) error
}

// SettlerFunc adapts a function to the Settler interface.
type SettlerFunc func(ctx context.Context, s Settlement) error

func (f SettlerFunc) Settle(ctx context.Context, s Settlement) error {
	return f(ctx, s)
}

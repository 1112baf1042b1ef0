package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/google/uuid"
)

// AuditService writes append-only activity log entries.
type AuditService struct{}

func NewAuditService() *AuditService {
	return &AuditService{}
}

// Write stores a single immutable activity record inside the caller's transaction.
func (s *AuditService) Write(ctx context.Context, qtx *repository.Queries, entityType string, entityID uuid.UUID, actorID *uuid.UUID, action, prevState, nextState string, metadata []byte) error {
	if err := qtx.CreateActivityLog(ctx, repository.CreateActivityLogParams{
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		PrevState:  prevState,
		NextState:  nextState,
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

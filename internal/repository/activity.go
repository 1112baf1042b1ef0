package repository

import (
	"context"
	"fmt"

	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/google/uuid"
)

type CreateActivityLogParams struct {
	EntityType string
	EntityID   uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	PrevState  string
	NextState  string
	Metadata   []byte
}

func (q *Queries) CreateActivityLog(ctx context.Context, arg CreateActivityLogParams) error {
	query := `INSERT INTO activity_logs (entity_type, entity_id, actor_id, action, prev_state, next_state, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := q.db.Exec(ctx, query, arg.EntityType, arg.EntityID, arg.ActorID, arg.Action, arg.PrevState, arg.NextState, arg.Metadata)
	if err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

func (q *Queries) ListActivityLogs(ctx context.Context, entityType string, entityID uuid.UUID, limit int32) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT id, entity_type, entity_id, actor_id, action, prev_state, next_state, metadata, created_at
		FROM activity_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3`
	rows, err := q.db.Query(ctx, query, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	out := []models.ActivityLog{}
	for rows.Next() {
		var (
			l        models.ActivityLog
			metadata []byte
		)
		if err := rows.Scan(&l.ID, &l.EntityType, &l.EntityID, &l.ActorID, &l.Action, &l.PrevState, &l.NextState, &metadata, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		l.Metadata = metadata
		out = append(out, l)
	}
	return out, rows.Err()
}

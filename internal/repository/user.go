package repository

import (
	"context"
	"fmt"

	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/google/uuid"
)

type CreateUserParams struct {
	Username   string
	Email      string
	Department string
	Role       string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (*models.User, error) {
	var u models.User
	query := `INSERT INTO users (username, email, department, role) VALUES ($1, $2, $3, $4)
		RETURNING id, username, email, department, role, created_at`
	err := q.db.QueryRow(ctx, query, arg.Username, arg.Email, arg.Department, arg.Role).
		Scan(&u.ID, &u.Username, &u.Email, &u.Department, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (q *Queries) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	query := `SELECT id, username, email, department, role, created_at FROM users WHERE id = $1`
	err := q.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Username, &u.Email, &u.Department, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (q *Queries) CreatePlayer(ctx context.Context, username, platform string) (*models.Player, error) {
	var p models.Player
	query := `INSERT INTO players (username, platform) VALUES ($1, $2)
		RETURNING id, username, platform, created_at`
	err := q.db.QueryRow(ctx, query, username, platform).Scan(&p.ID, &p.Username, &p.Platform, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	return &p, nil
}

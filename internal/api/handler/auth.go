package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ayo6706/cashdesk/internal/api/middleware"
	"github.com/ayo6706/cashdesk/internal/models"
	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tokenTTL = 12 * time.Hour

// UserLookup loads back-office agents.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type AuthHandler struct {
	users UserLookup
}

func NewAuthHandler(users UserLookup) *AuthHandler {
	return &AuthHandler{users: users}
}

// Login handles POST /v1/auth/login. Agents are identified by user_id only; credentials
// live with the identity provider in front of this service.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	uid, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user_id")
		return
	}

	user, err := h.users.GetUser(r.Context(), uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(w, r, http.StatusNotFound, "auth/user-not-found", "User not found")
			return
		}
		zap.L().Error("login lookup failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "auth/login-failed", "Failed to log in")
		return
	}

	tokenString, err := SignToken(user, time.Now())
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, "auth/sign-failed", "Failed to sign token")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"token": tokenString,
		"user":  user,
	})
}

// SignToken issues the HS256 token AuthMiddleware accepts.
func SignToken(user *models.User, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    user.ID.String(),
		"sub":        user.ID.String(),
		"role":       user.Role,
		"department": user.Department,
		"iat":        now.Unix(),
		"nbf":        now.Add(-30 * time.Second).Unix(),
		"exp":        now.Add(tokenTTL).Unix(),
	}
	if iss := middleware.JWTIssuer(); iss != "" {
		claims["iss"] = iss
	}
	if aud := middleware.JWTAudience(); aud != "" {
		claims["aud"] = aud
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(middleware.JWTSecret())
}

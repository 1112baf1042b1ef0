package handler

import (
	"net/http"

	"github.com/ayo6706/cashdesk/internal/repository"
	"github.com/ayo6706/cashdesk/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var entityAliases = map[string]string{
	"redeems":   repository.EntityRedeemRequests,
	"recharges": repository.EntityRechargeRequests,
	"transfers": repository.EntityTransferRequests,
}

// LockHandler exposes the processing-state soft lock.
type LockHandler struct {
	locks *service.LockService
}

func NewLockHandler(locks *service.LockService) *LockHandler {
	return &LockHandler{locks: locks}
}

func lockTarget(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	entity := chi.URLParam(r, "entity")
	if alias, ok := entityAliases[entity]; ok {
		entity = alias
	}
	id, ok := pathID(w, r, "id")
	return entity, id, ok
}

type acquireLockRequest struct {
	ModalType string `json:"modal_type"`
}

// Acquire handles POST /v1/locks/{entity}/{id}
func (h *LockHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	entity, id, ok := lockTarget(w, r)
	if !ok {
		return
	}
	var req acquireLockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	state, err := h.locks.Acquire(r.Context(), entity, id, actorID, req.ModalType)
	if err != nil {
		writeServiceError(w, r, err, "acquire lock")
		return
	}
	RespondJSON(w, http.StatusOK, state)
}

// Release handles DELETE /v1/locks/{entity}/{id}
func (h *LockHandler) Release(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	entity, id, ok := lockTarget(w, r)
	if !ok {
		return
	}
	if err := h.locks.Release(r.Context(), entity, id, actorID); err != nil {
		writeServiceError(w, r, err, "release lock")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Current handles GET /v1/locks/{entity}/{id}
func (h *LockHandler) Current(w http.ResponseWriter, r *http.Request) {
	entity, id, ok := lockTarget(w, r)
	if !ok {
		return
	}
	state, err := h.locks.Current(r.Context(), entity, id)
	if err != nil {
		writeServiceError(w, r, err, "read lock")
		return
	}
	RespondJSON(w, http.StatusOK, state)
}

// Mine handles GET /v1/locks/mine, the records a reconnecting agent should resume.
func (h *LockHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	held, err := h.locks.Resume(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, r, err, "list held locks")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"items": held, "count": len(held)})
}

// ForceRelease handles DELETE /v1/admin/locks/{entity}/{id} (admin only).
func (h *LockHandler) ForceRelease(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	entity, id, ok := lockTarget(w, r)
	if !ok {
		return
	}
	if err := h.locks.ForceRelease(r.Context(), entity, id, actorID); err != nil {
		writeServiceError(w, r, err, "force release lock")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

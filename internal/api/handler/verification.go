package handler

import (
	"net/http"

	"github.com/ayo6706/cashdesk/internal/service"
)

type VerificationHandler struct {
	verifications *service.VerificationService
}

func NewVerificationHandler(verifications *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verifications: verifications}
}

// List handles GET /v1/verification?status=
func (h *VerificationHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, err := h.verifications.List(r.Context(), p.Status, p.Limit, p.Offset)
	if err != nil {
		writeServiceError(w, r, err, "list verification queue")
		return
	}
	respondPage(w, p, items, len(items))
}

type verificationDecisionRequest struct {
	Notes string `json:"notes"`
}

// Approve handles POST /v1/verification/{id}/approve
func (h *VerificationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// Reject handles POST /v1/verification/{id}/reject
func (h *VerificationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *VerificationHandler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req verificationDecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	decide, operation := h.verifications.Reject, "reject verification"
	if approve {
		decide, operation = h.verifications.Approve, "approve verification"
	}
	redeem, err := decide(r.Context(), id, actorID, req.Notes)
	if err != nil {
		writeServiceError(w, r, err, operation)
		return
	}
	RespondJSON(w, http.StatusOK, redeem)
}

package handler

import (
	"net/http"

	"github.com/ayo6706/cashdesk/internal/service"
)

// TransferHandler serves platform-to-platform transfer requests.
type TransferHandler struct {
	transfers *service.TransferService
}

func NewTransferHandler(transfers *service.TransferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

// List handles GET /v1/transfers?status=
func (h *TransferHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, err := h.transfers.List(r.Context(), p.Status, p.Limit, p.Offset)
	if err != nil {
		writeServiceError(w, r, err, "list transfer requests")
		return
	}
	respondPage(w, p, items, len(items))
}

// Get handles GET /v1/transfers/{id}
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	transfer, err := h.transfers.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "get transfer request")
		return
	}
	RespondJSON(w, http.StatusOK, transfer)
}

type transferDecisionRequest struct {
	Confirmation string `json:"confirmation"`
	Reason       string `json:"reason"`
}

// Approve handles POST /v1/transfers/{id}/approve
func (h *TransferHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req transferDecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	transfer, err := h.transfers.Approve(r.Context(), id, actorID, req.Confirmation)
	if err != nil {
		writeServiceError(w, r, err, "approve transfer")
		return
	}
	RespondJSON(w, http.StatusOK, transfer)
}

// Reject handles POST /v1/transfers/{id}/reject
func (h *TransferHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req transferDecisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	transfer, err := h.transfers.Reject(r.Context(), id, actorID, req.Confirmation, req.Reason)
	if err != nil {
		writeServiceError(w, r, err, "reject transfer")
		return
	}
	RespondJSON(w, http.StatusOK, transfer)
}

package handler

import (
	"net/http"

	"github.com/ayo6706/cashdesk/internal/service"
)

// RedeemHandler serves the redeem request queues.
type RedeemHandler struct {
	redeems  *service.RedeemService
	payments *service.PaymentService
}

func NewRedeemHandler(redeems *service.RedeemService, payments *service.PaymentService) *RedeemHandler {
	return &RedeemHandler{redeems: redeems, payments: payments}
}

// List handles GET /v1/redeems?status=&limit=&offset=
func (h *RedeemHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, err := h.redeems.List(r.Context(), p.Status, p.Limit, p.Offset)
	if err != nil {
		writeServiceError(w, r, err, "list redeem requests")
		return
	}
	respondPage(w, p, items, len(items))
}

// Get handles GET /v1/redeems/{id}
func (h *RedeemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	redeem, err := h.redeems.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "get redeem request")
		return
	}
	RespondJSON(w, http.StatusOK, redeem)
}

// OpenPayment handles GET /v1/redeems/{id}/payment, the operation a reconnecting agent resumes.
func (h *RedeemHandler) OpenPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	op, err := h.payments.Open(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "get open payment")
		return
	}
	RespondJSON(w, http.StatusOK, op)
}

package handler

import (
	"net/http"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/service"
	"github.com/google/uuid"
)

// PaymentHandler drives the Process Payment flow: hold, settlement choice, confirm or cancel.
type PaymentHandler struct {
	payments *service.PaymentService
}

func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type beginHoldRequest struct {
	Amount domain.Amount `json:"amount"`
}

// BeginHold handles POST /v1/redeems/{id}/payments
func (h *PaymentHandler) BeginHold(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	redeemID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req beginHoldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", domain.ErrInvalidAmount.Error())
		return
	}

	op, err := h.payments.BeginHold(r.Context(), service.BeginHoldRequest{
		RedeemID: redeemID,
		ActorID:  actorID,
		Amount:   req.Amount,
	})
	if err != nil {
		writeServiceError(w, r, err, "begin payment")
		return
	}
	RespondJSON(w, http.StatusCreated, op)
}

type selectSettlementRequest struct {
	CompanyTagID string `json:"company_tag_id"`
	Identifier   string `json:"identifier"`
}

// SelectSettlement handles POST /v1/payments/{opID}/settlement
func (h *PaymentHandler) SelectSettlement(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	opID, ok := pathID(w, r, "opID")
	if !ok {
		return
	}
	var req selectSettlementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tagID, err := uuid.Parse(req.CompanyTagID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "payment/settlement-required", service.ErrSettlementRequired.Error())
		return
	}

	op, err := h.payments.SelectSettlement(r.Context(), service.SelectSettlementRequest{
		OperationID:  opID,
		ActorID:      actorID,
		CompanyTagID: tagID,
		Identifier:   req.Identifier,
	})
	if err != nil {
		writeServiceError(w, r, err, "select settlement")
		return
	}
	RespondJSON(w, http.StatusOK, op)
}

type confirmPaymentRequest struct {
	Confirmation string `json:"confirmation"`
	Reference    string `json:"reference"`
	Notes        string `json:"notes"`
}

// Confirm handles POST /v1/payments/{opID}/confirm. The route is idempotency-keyed.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	opID, ok := pathID(w, r, "opID")
	if !ok {
		return
	}
	var req confirmPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !domain.ConfirmationMatches(req.Confirmation) {
		RespondError(w, r, http.StatusBadRequest, "request/confirmation-mismatch", domain.ErrConfirmationMismatch.Error())
		return
	}

	op, err := h.payments.Confirm(r.Context(), service.ConfirmRequest{
		OperationID:  opID,
		ActorID:      actorID,
		Confirmation: req.Confirmation,
		Reference:    req.Reference,
		Notes:        req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, err, "confirm payment")
		return
	}
	RespondJSON(w, http.StatusOK, op)
}

// Cancel handles POST /v1/payments/{opID}/cancel
func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	opID, ok := pathID(w, r, "opID")
	if !ok {
		return
	}
	op, err := h.payments.Cancel(r.Context(), service.CancelPaymentRequest{OperationID: opID, ActorID: actorID})
	if err != nil {
		writeServiceError(w, r, err, "cancel payment")
		return
	}
	RespondJSON(w, http.StatusOK, op)
}

// Get handles GET /v1/payments/{opID}
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	opID, ok := pathID(w, r, "opID")
	if !ok {
		return
	}
	op, err := h.payments.Get(r.Context(), opID)
	if err != nil {
		writeServiceError(w, r, err, "get payment")
		return
	}
	RespondJSON(w, http.StatusOK, op)
}

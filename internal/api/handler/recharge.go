package handler

import (
	"net/http"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/service"
	"github.com/google/uuid"
)

// RechargeHandler serves recharge queues, assignment and the screenshot review steps.
type RechargeHandler struct {
	recharges   *service.RechargeService
	assignments *service.AssignmentService
}

func NewRechargeHandler(recharges *service.RechargeService, assignments *service.AssignmentService) *RechargeHandler {
	return &RechargeHandler{recharges: recharges, assignments: assignments}
}

// List handles GET /v1/recharges?status=&limit=&offset=
func (h *RechargeHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, err := h.recharges.List(r.Context(), p.Status, p.Limit, p.Offset)
	if err != nil {
		writeServiceError(w, r, err, "list recharge requests")
		return
	}
	respondPage(w, p, items, len(items))
}

// Get handles GET /v1/recharges/{id}
func (h *RechargeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	recharge, err := h.recharges.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "get recharge request")
		return
	}
	RespondJSON(w, http.StatusOK, recharge)
}

type assignRedeemRequest struct {
	RedeemID      string        `json:"redeem_id"`
	Amount        domain.Amount `json:"amount"`
	MatchType     string        `json:"match_type"`
	RedeemPlayer  *uuid.UUID    `json:"redeem_player,omitempty"`
	PaymentMethod string        `json:"payment_method"`
}

// AssignRedeem handles POST /v1/recharges/{id}/assign-redeem (P2P match).
func (h *RechargeHandler) AssignRedeem(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	rechargeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req assignRedeemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	redeemID, err := uuid.Parse(req.RedeemID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-redeem-id", "Invalid redeem_id")
		return
	}

	result, err := h.assignments.AssignRedeemRequest(r.Context(), service.AssignRedeemRequest{
		RechargeID:    rechargeID,
		RedeemID:      redeemID,
		ActorID:       actorID,
		Amount:        req.Amount,
		MatchType:     req.MatchType,
		RedeemPlayer:  req.RedeemPlayer,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeServiceError(w, r, err, "assign redeem request")
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

type assignTagRequest struct {
	CompanyTagID string `json:"company_tag_id"`
}

// AssignTag handles POST /v1/recharges/{id}/assign-tag (CT match).
func (h *RechargeHandler) AssignTag(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	rechargeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req assignTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tagID, err := uuid.Parse(req.CompanyTagID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-company-tag-id", "Invalid company_tag_id")
		return
	}

	result, err := h.assignments.AssignCompanyTag(r.Context(), service.AssignTagRequest{
		RechargeID: rechargeID,
		TagID:      tagID,
		ActorID:    actorID,
	})
	if err != nil {
		writeServiceError(w, r, err, "assign company tag")
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

type rechargeActionRequest struct {
	ScreenshotURL string `json:"screenshot_url"`
	Confirmation  string `json:"confirmation"`
	Reason        string `json:"reason"`
}

// SubmitScreenshot handles POST /v1/recharges/{id}/screenshot
func (h *RechargeHandler) SubmitScreenshot(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "submit screenshot", func(id, actor uuid.UUID, req rechargeActionRequest) (any, error) {
		return h.recharges.SubmitScreenshot(r.Context(), id, actor, req.ScreenshotURL)
	})
}

// Process handles POST /v1/recharges/{id}/process
func (h *RechargeHandler) Process(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "process recharge", func(id, actor uuid.UUID, req rechargeActionRequest) (any, error) {
		return h.recharges.Process(r.Context(), id, actor, req.Confirmation)
	})
}

// RejectScreenshot handles POST /v1/recharges/{id}/reject-screenshot
func (h *RechargeHandler) RejectScreenshot(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "reject screenshot", func(id, actor uuid.UUID, req rechargeActionRequest) (any, error) {
		return h.recharges.RejectScreenshot(r.Context(), id, actor, req.Reason)
	})
}

// Dispute handles POST /v1/recharges/{id}/dispute
func (h *RechargeHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "dispute recharge", func(id, actor uuid.UUID, req rechargeActionRequest) (any, error) {
		return h.recharges.Dispute(r.Context(), id, actor, req.Reason)
	})
}

// Requeue handles POST /v1/recharges/{id}/requeue
func (h *RechargeHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	recharge, err := h.recharges.Requeue(r.Context(), id, actorID)
	if err != nil {
		writeServiceError(w, r, err, "requeue recharge")
		return
	}
	RespondJSON(w, http.StatusOK, recharge)
}

func (h *RechargeHandler) act(w http.ResponseWriter, r *http.Request, operation string, fn func(id, actor uuid.UUID, req rechargeActionRequest) (any, error)) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req rechargeActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := fn(id, actorID, req)
	if err != nil {
		writeServiceError(w, r, err, operation)
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

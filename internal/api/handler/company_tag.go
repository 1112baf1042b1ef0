package handler

import (
	"net/http"

	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/service"
)

// CompanyTagHandler manages the company cashtags payments settle through.
type CompanyTagHandler struct {
	tags *service.CompanyTagService
}

func NewCompanyTagHandler(tags *service.CompanyTagService) *CompanyTagHandler {
	return &CompanyTagHandler{tags: tags}
}

type createCompanyTagRequest struct {
	Cashtag         string        `json:"cashtag"`
	PaymentMethod   string        `json:"payment_method"`
	Balance         domain.Amount `json:"balance"`
	Limit           domain.Amount `json:"limit"`
	ProcurementCost domain.Amount `json:"procurement_cost"`
}

// Create handles POST /v1/company-tags
func (h *CompanyTagHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	var req createCompanyTagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tag, err := h.tags.Create(r.Context(), service.CreateCompanyTagRequest{
		ActorID:         actorID,
		Cashtag:         req.Cashtag,
		PaymentMethod:   req.PaymentMethod,
		Balance:         req.Balance,
		Limit:           req.Limit,
		ProcurementCost: req.ProcurementCost,
	})
	if err != nil {
		writeServiceError(w, r, err, "create company tag")
		return
	}
	RespondJSON(w, http.StatusCreated, tag)
}

// List handles GET /v1/company-tags?status=
func (h *CompanyTagHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePage(w, r)
	if !ok {
		return
	}
	items, err := h.tags.List(r.Context(), p.Status, p.Limit, p.Offset)
	if err != nil {
		writeServiceError(w, r, err, "list company tags")
		return
	}
	respondPage(w, p, items, len(items))
}

// Get handles GET /v1/company-tags/{id}
func (h *CompanyTagHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tag, err := h.tags.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "get company tag")
		return
	}
	RespondJSON(w, http.StatusOK, tag)
}

type setTagStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus handles PATCH /v1/company-tags/{id}/status
func (h *CompanyTagHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorOrReject(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req setTagStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tag, err := h.tags.SetStatus(r.Context(), id, actorID, req.Status)
	if err != nil {
		writeServiceError(w, r, err, "update company tag status")
		return
	}
	RespondJSON(w, http.StatusOK, tag)
}

// Activity handles GET /v1/company-tags/{id}/activity
func (h *CompanyTagHandler) Activity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	activity, err := h.tags.Activity(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "read company tag activity")
		return
	}
	RespondJSON(w, http.StatusOK, activity)
}

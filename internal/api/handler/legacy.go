package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayo6706/cashdesk/internal/legacy"
	"go.uber.org/zap"
)

// LegacyHandler reads through to the legacy back-office API.
type LegacyHandler struct {
	client *legacy.Client
}

func NewLegacyHandler(client *legacy.Client) *LegacyHandler {
	return &LegacyHandler{client: client}
}

// RedeemRequests handles GET /v1/legacy/redeem-requests?status=
func (h *LegacyHandler) RedeemRequests(w http.ResponseWriter, r *http.Request) {
	if !h.client.Enabled() {
		RespondError(w, r, http.StatusServiceUnavailable, "legacy/not-configured", legacy.ErrNotConfigured.Error())
		return
	}
	items, err := h.client.RedeemRequests(r.Context(), strings.TrimSpace(r.URL.Query().Get("status")))
	if err != nil {
		var apiErr *legacy.APIError
		if errors.As(err, &apiErr) {
			RespondError(w, r, http.StatusBadGateway, "legacy/api-error", apiErr.Message)
			return
		}
		zap.L().Warn("legacy redeem requests failed", zap.Error(err))
		RespondError(w, r, http.StatusBadGateway, "legacy/unavailable", "legacy api unavailable")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

package handler

import (
	"net/http"

	"github.com/ayo6706/cashdesk/internal/api/middleware"
	"github.com/ayo6706/cashdesk/internal/realtime"
	"go.uber.org/zap"
)

// RealtimeHandler upgrades agents to the row-change websocket feed.
type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Subscribe handles GET /v1/realtime?tables=redeem_requests,company_tags
func (h *RealtimeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	tables, err := realtime.ParseTables(r.URL.Query().Get("tables"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "realtime/unknown-table", err.Error())
		return
	}
	userID := middleware.UserIDFromContext(r.Context())
	if err := h.hub.ServeWS(w, r, userID, tables); err != nil {
		zap.L().Warn("realtime subscribe failed", zap.Error(err), zap.String("user_id", userID))
	}
}

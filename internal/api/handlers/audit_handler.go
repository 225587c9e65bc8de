package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"auction-bidgate/internal/services"
	"auction-bidgate/pkg/logger"

	"github.com/gorilla/mux"
)

type AuditHandler struct {
	audit *services.AuditService
	log   logger.Logger
}

func NewAuditHandler(audit *services.AuditService, log logger.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, log: log}
}

// ListAttempts serves GET /api/v1/users/{telegramID}/attempts?limit=N.
func (h *AuditHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	telegramID, err := strconv.ParseInt(mux.Vars(r)["telegramID"], 10, 64)
	if err != nil || telegramID <= 0 {
		http.Error(w, "valid telegram id required", http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}

	attempts, err := h.audit.Attempts(r.Context(), telegramID, limit)
	if err != nil {
		h.log.Error("Failed to list attempts", "telegram_id", telegramID, "error", err)
		http.Error(w, "failed to list attempts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(attempts)
}

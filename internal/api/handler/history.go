package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/moneyflow/notifier/internal/api/respond"
)

const maxHistoryLimit = 200

// ListHistory returns the caller's most recent deliveries.
// @Summary Notification history
// @Tags history
// @Produce json
// @Param X-User-ID header string true "Caller user id"
// @Param limit query int false "Max entries (default 50, max 200)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Router /notifications/history [get]
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := h.History.ListByUser(r.Context(), user, limit)
	if err != nil {
		h.Logger.Error("History read failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"notifications": entries,
		"count":         len(entries),
	})
}

// MarkRead records that the caller opened a notification.
// @Summary Mark notification read
// @Tags history
// @Produce json
// @Param X-User-ID header string true "Caller user id"
// @Param id path int true "History entry id"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /notifications/history/{id}/read [post]
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", "id must be an integer")
		return
	}

	found, err := h.History.MarkRead(r.Context(), user, id)
	if err != nil {
		h.Logger.Error("Mark read failed", "user", user, "id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}
	if !found {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Notification not found")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"success": true})
}

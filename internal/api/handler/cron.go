package handler

import (
	"net/http"

	"github.com/moneyflow/notifier/internal/api/respond"
	"github.com/moneyflow/notifier/internal/model"
)

// CronRequest selects which alert categories to run.
type CronRequest struct {
	Type string `json:"type" example:"all"`
}

// RunNotifications runs the alert generator on demand for an external
// scheduler. Auth is enforced by the router.
// @Summary Run scheduled notifications
// @Description Evaluates expense_reminders, budget_alerts, weekly_reports, monthly_reports or all, and returns per-category counts.
// @Tags cron
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer <CRON_SECRET_TOKEN>"
// @Param body body CronRequest true "Notification type"
// @Success 200 {object} alerts.RunResult
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /cron/notifications [post]
func (h *Handler) RunNotifications(w http.ResponseWriter, r *http.Request) {
	var req CronRequest
	if err := respond.DecodeJSON(w, r, &req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON", err.Error())
		return
	}

	categories, err := model.ParseScheduled(req.Type)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_TYPE", "Invalid notification type")
		return
	}

	result, err := h.Generator.Run(r.Context(), categories)
	if err != nil {
		h.Logger.Error("Cron run failed", "type", req.Type, "error", err)
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "RUN_FAILED", "Notification run failed", err.Error())
		return
	}

	h.Logger.Info("Cron run finished", "type", req.Type, "summary", result.Summary())
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"message":    "Notifications processed",
		"type":       req.Type,
		"categories": result.Categories,
		"durationMs": result.Duration.Milliseconds(),
	})
}

package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/moneyflow/notifier/internal/api/respond"
	"github.com/moneyflow/notifier/internal/model"
	"github.com/moneyflow/notifier/internal/subscriptions"
)

// SubscribeRequest registers a browser push endpoint. The keys may be sent
// flat or nested the way PushSubscription.toJSON() produces them.
type SubscribeRequest struct {
	Endpoint string     `json:"endpoint"`
	P256dh   string     `json:"p256dh"`
	Auth     string     `json:"auth"`
	Keys     model.Keys `json:"keys"`
}

func (req SubscribeRequest) keys() model.Keys {
	k := model.Keys{P256dh: req.P256dh, Auth: req.Auth}
	if k.P256dh == "" {
		k.P256dh = req.Keys.P256dh
	}
	if k.Auth == "" {
		k.Auth = req.Keys.Auth
	}
	return k
}

// SendRequest is a manual notification to the caller's own devices.
type SendRequest struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Type  string                 `json:"type"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// Subscribe registers or refreshes a push subscription.
// @Summary Register push subscription
// @Description Upserts the caller's subscription for an endpoint and makes sure default preferences exist.
// @Tags push
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller user id"
// @Param body body SubscribeRequest true "Subscription"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /push/subscribe [post]
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var req SubscribeRequest
	if err := respond.DecodeJSON(w, r, &req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON", err.Error())
		return
	}

	sub, err := h.Subscriptions.Upsert(r.Context(), user, req.Endpoint, req.keys())
	if errors.Is(err, subscriptions.ErrMissingField) {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_FIELDS", "Missing required fields")
		return
	}
	if err != nil {
		h.Logger.Error("Subscribe failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}

	if _, err := h.Preferences.Get(r.Context(), user); err != nil {
		h.Logger.Warn("Default preferences not created", "user", user, "error", err)
	}

	h.Logger.Info("Push subscription registered", "user", user, "subscription", sub.ID, "endpoint", sub.ShortEndpoint())
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"success": true, "id": sub.ID})
}

// Unsubscribe removes one of the caller's subscriptions.
// @Summary Remove push subscription
// @Description Deletes the caller's subscription for the given endpoint. Removing a missing endpoint succeeds.
// @Tags push
// @Produce json
// @Param X-User-ID header string true "Caller user id"
// @Param endpoint query string true "Push endpoint URL"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Router /push/subscribe [delete]
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	endpoint := r.URL.Query().Get("endpoint")
	if endpoint == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_ENDPOINT", "endpoint query parameter is required")
		return
	}

	if err := h.Subscriptions.Remove(r.Context(), user, endpoint); err != nil {
		h.Logger.Error("Unsubscribe failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Cleanup removes every subscription the caller owns.
// @Summary Remove all push subscriptions
// @Tags push
// @Produce json
// @Param X-User-ID header string true "Caller user id"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} respond.ErrorResponse
// @Router /push/cleanup [post]
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	n, err := h.Subscriptions.RemoveAllByUser(r.Context(), user)
	if err != nil {
		h.Logger.Error("Cleanup failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}

	msg := "All subscriptions cleaned up"
	if n == 0 {
		msg = "No subscriptions found"
	} else {
		h.Logger.Info("Cleaned up subscriptions", "user", user, "removed", n)
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"message": msg, "removed": n})
}

// Debug reports the caller's subscriptions with truncated endpoints.
// @Summary Debug push subscriptions
// @Tags push
// @Produce json
// @Param X-User-ID header string true "Caller user id"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} respond.ErrorResponse
// @Router /push/debug [get]
func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	subs, err := h.Subscriptions.ListByUser(r.Context(), user)
	if err != nil {
		h.Logger.Error("Debug listing failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}

	type debugSub struct {
		ID        int64     `json:"id"`
		Endpoint  string    `json:"endpoint"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
	out := make([]debugSub, 0, len(subs))
	for _, s := range subs {
		out = append(out, debugSub{ID: s.ID, Endpoint: s.ShortEndpoint(), CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt})
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"userId":            user,
		"subscriptionCount": len(subs),
		"subscriptions":     out,
		"environment": map[string]interface{}{
			"hasVapidPublicKey":  h.cfg.VAPIDPublicKey != "",
			"hasVapidPrivateKey": h.cfg.VAPIDPrivateKey != "",
			"environment":        h.cfg.Environment,
		},
	})
}

// VAPIDPublicKey returns the application server key browsers subscribe with.
// @Summary VAPID public key
// @Tags push
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} respond.ErrorResponse
// @Router /push/vapid-public-key [get]
func (h *Handler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	if h.cfg.VAPIDPublicKey == "" {
		respond.WriteError(w, http.StatusServiceUnavailable, "PUSH_DISABLED", "Web push is not configured")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{"publicKey": h.cfg.VAPIDPublicKey})
}

// GetPreferences returns the caller's flags, creating defaults on first read.
// @Summary Get notification preferences
// @Tags preferences
// @Produce json
// @Param X-User-ID header string true "Caller user id"
// @Success 200 {object} model.Preferences
// @Failure 401 {object} respond.ErrorResponse
// @Router /push/preferences [get]
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	prefs, err := h.Preferences.Get(r.Context(), user)
	if err != nil {
		h.Logger.Error("Preferences read failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, prefs)
}

// UpdatePreferences applies a partial update; omitted flags keep their value.
// @Summary Update notification preferences
// @Tags preferences
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller user id"
// @Param body body model.PreferencesPatch true "Flags to change"
// @Success 200 {object} model.Preferences
// @Failure 400 {object} respond.ErrorResponse
// @Failure 401 {object} respond.ErrorResponse
// @Router /push/preferences [put]
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var patch model.PreferencesPatch
	if err := respond.DecodeJSON(w, r, &patch); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON", err.Error())
		return
	}

	prefs, err := h.Preferences.Update(r.Context(), user, patch)
	if err != nil {
		h.Logger.Error("Preferences update failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, prefs)
}

// Send pushes an ad-hoc notification to the caller's devices.
// @Summary Send a notification to yourself
// @Tags push
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller user id"
// @Param body body SendRequest true "Notification"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /push/send [post]
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}

	var req SendRequest
	if err := respond.DecodeJSON(w, r, &req); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON", err.Error())
		return
	}
	if req.Type == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_FIELDS", "Missing required fields")
		return
	}
	category, err := model.ParseCategory(req.Type)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_TYPE", "Unknown notification type", err.Error())
		return
	}

	var payload model.Payload
	if req.Data != nil {
		payload = model.CustomPayload{Tag: category, Data: req.Data}
	}
	msg, err := model.NewMessage(req.Title, req.Body, category, payload)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "MISSING_FIELDS", "Missing required fields", err.Error())
		return
	}

	report, err := h.Dispatcher.Dispatch(r.Context(), user, msg)
	if err != nil {
		h.Logger.Error("Manual send failed", "user", user, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}
	if report.NoSubscriptions {
		respond.WriteError(w, http.StatusNotFound, "NO_SUBSCRIPTIONS", "No push subscriptions found")
		return
	}

	h.Logger.Info("Manual notification sent", "user", user, "summary", report.Summary())
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"sent":         report.Sent,
		"failed":       report.Failed,
		"removed":      report.Removed,
		"total":        report.Total,
		"deduplicated": report.Deduplicated,
	})
}

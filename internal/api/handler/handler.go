// Package handler provides HTTP handlers for all API endpoints.
// Handlers talk to the stores through narrow interfaces so the router can
// be served from Postgres in production and from memory in tests.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/moneyflow/notifier/internal/alerts"
	"github.com/moneyflow/notifier/internal/api/respond"
	"github.com/moneyflow/notifier/internal/config"
	"github.com/moneyflow/notifier/internal/model"
	"github.com/moneyflow/notifier/internal/notifications"
)

// Subscriptions is the registry surface the push endpoints use.
type Subscriptions interface {
	Upsert(ctx context.Context, userID uuid.UUID, endpoint string, keys model.Keys) (model.Subscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Subscription, error)
	Remove(ctx context.Context, userID uuid.UUID, endpoint string) error
	RemoveAllByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Preferences reads and patches per-user flags.
type Preferences interface {
	Get(ctx context.Context, userID uuid.UUID) (model.Preferences, error)
	Update(ctx context.Context, userID uuid.UUID, patch model.PreferencesPatch) (model.Preferences, error)
}

// History lists deliveries and records read receipts.
type History interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.HistoryEntry, error)
	MarkRead(ctx context.Context, userID uuid.UUID, id int64) (bool, error)
}

// Dispatcher fans a message out to a user's devices.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID uuid.UUID, msg model.Message) (notifications.Report, error)
}

// Generator runs the scheduled alert categories.
type Generator interface {
	Run(ctx context.Context, categories []model.Category) (alerts.RunResult, error)
}

// Checker reports backend health for /health/db.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// StatsProvider reports dedup store statistics for /health/cache.
type StatsProvider interface {
	Stats(ctx context.Context) map[string]interface{}
}

// Deps bundles every handler dependency. DB and Cache may be nil.
type Deps struct {
	Subscriptions Subscriptions
	Preferences   Preferences
	History       History
	Dispatcher    Dispatcher
	Generator     Generator
	DB            Checker
	Cache         StatsProvider
	Logger        *slog.Logger
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	Deps
	cfg *config.Config
}

// New creates a Handler with shared dependencies.
func New(deps Deps, cfg *config.Config) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Handler{Deps: deps, cfg: cfg}
}

type ctxKey struct{}

// WithUserID attaches the authenticated caller to ctx.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// UserID returns the caller set by WithUserID.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	return id, ok
}

// caller writes a 401 and returns false when no identity is attached.
func caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := UserID(r.Context())
	if !ok {
		respond.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing user identity")
	}
	return id, ok
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Money Flow Notifications API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil || h.DB.HealthCheck(r.Context()) != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns dedup store statistics.
// @Summary Dedup store health check
// @Description Returns content-dedup store statistics (backend, active keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{"backend": "disabled"}
	if h.Cache != nil {
		stats = h.Cache.Stats(r.Context())
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     stats,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

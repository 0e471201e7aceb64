package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/moneyflow/notifier/internal/api/handler"
	"github.com/moneyflow/notifier/internal/config"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps handler.Deps, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", cfg.UserIDHeader},
		ExposedHeaders:   []string{"X-Process-Time"},
		AllowCredentials: true,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(deps, cfg)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public: browsers fetch the key before they have subscribed
		r.Get("/push/vapid-public-key", h.VAPIDPublicKey)

		// External scheduler
		r.With(CronAuthMiddleware(cfg.CronSecret)).Post("/cron/notifications", h.RunNotifications)

		// Caller-scoped
		r.Group(func(r chi.Router) {
			r.Use(IdentityMiddleware(cfg.UserIDHeader))

			r.Post("/push/subscribe", h.Subscribe)
			r.Delete("/push/subscribe", h.Unsubscribe)
			r.Post("/push/cleanup", h.Cleanup)
			r.Get("/push/debug", h.Debug)
			r.Get("/push/preferences", h.GetPreferences)
			r.Put("/push/preferences", h.UpdatePreferences)
			r.Post("/push/send", h.Send)

			r.Get("/notifications/history", h.ListHistory)
			r.Post("/notifications/history/{id}/read", h.MarkRead)
		})
	})

	return r
}

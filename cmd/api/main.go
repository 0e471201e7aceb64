// Command api is the Money Flow notifications server.
//
// Usage:
//
//	moneyflow-notifier
//	API_PORT=8080 SCHEDULER_ENABLED=true moneyflow-notifier

// @title Money Flow Notifications API
// @version 1.0.0
// @description Web push delivery for Money Flow: subscription registry, notification preferences, delivery history and the scheduled alert trigger.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @contact.name Money Flow
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/moneyflow/notifier/internal/api"
	"github.com/moneyflow/notifier/internal/app"
	"github.com/moneyflow/notifier/internal/config"
	"github.com/moneyflow/notifier/internal/db"
	"github.com/moneyflow/notifier/internal/listener"
	"github.com/moneyflow/notifier/internal/maintenance"

	_ "github.com/moneyflow/notifier/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	if missing, err := pool.CheckSchema(ctx); err != nil {
		logger.Warn("Schema check failed", "error", err)
	} else if len(missing) > 0 {
		logger.Warn("Schema incomplete, run `notifyctl migrate`", "missing", missing)
	}

	// Wire services
	transport, err := app.Transport(cfg, false, logger)
	if err != nil {
		logger.Error("Push transport unavailable", "error", err)
		os.Exit(1)
	}
	svc, err := app.Build(pool, cfg, transport, logger)
	if err != nil {
		logger.Error("Failed to wire services", "error", err)
		os.Exit(1)
	}
	defer svc.Dedup.Close()

	// Start LISTEN/NOTIFY consumer for payment confirmations
	if cfg.ListenerEnabled {
		go listener.New(cfg.DatabaseURL, svc.Preferences, svc.Dispatcher, cfg.DispatchConcurrency, logger).Start(ctx)
	} else {
		logger.Info("Payment listener disabled (LISTENER_ENABLED=false)")
	}

	// Start alert tickers; otherwise an external cron hits /cron/notifications
	if cfg.SchedulerEnabled {
		go maintenance.Start(ctx, svc.Generator, svc.Dedup, maintenance.Config{
			AlertInterval:  cfg.AlertInterval,
			ReportInterval: cfg.ReportInterval,
		}, logger)
	} else {
		logger.Info("Alert scheduler disabled (SCHEDULER_ENABLED=false)")
	}

	// Create router
	router := api.NewRouter(svc.HandlerDeps(pool, logger), cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // cron runs fan out to every eligible user
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Money Flow notifications API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}

// Package app wires the stores and services both binaries share.
package app

import (
	"fmt"
	"log/slog"

	"github.com/moneyflow/notifier/internal/alerts"
	"github.com/moneyflow/notifier/internal/api/handler"
	"github.com/moneyflow/notifier/internal/cache"
	"github.com/moneyflow/notifier/internal/config"
	"github.com/moneyflow/notifier/internal/db"
	"github.com/moneyflow/notifier/internal/notifications"
	"github.com/moneyflow/notifier/internal/preferences"
	"github.com/moneyflow/notifier/internal/records"
	"github.com/moneyflow/notifier/internal/subscriptions"
)

// Services is the wired object graph.
type Services struct {
	Subscriptions *subscriptions.Store
	Preferences   *preferences.Store
	Records       *records.Store
	History       *notifications.HistoryStore
	Watermarks    *alerts.WatermarkStore
	Dedup         cache.Store
	Dispatcher    *notifications.Dispatcher
	Generator     *alerts.Generator
}

// Build wires every service over pool. transport decides how pushes leave
// the process. The caller owns Dedup and must Close it.
func Build(pool *db.Pool, cfg *config.Config, transport notifications.Transport, logger *slog.Logger) (*Services, error) {
	calc, err := alerts.NewCalculator(cfg.AlertTimezone, cfg.WeekStart, cfg.BudgetThreshold)
	if err != nil {
		return nil, fmt.Errorf("alert calculator: %w", err)
	}

	s := &Services{
		Subscriptions: subscriptions.NewStore(pool.Pool),
		Preferences:   preferences.NewStore(pool.Pool),
		Records:       records.NewStore(pool.Pool),
		History:       notifications.NewHistoryStore(pool.Pool),
		Watermarks:    alerts.NewWatermarkStore(pool.Pool),
		Dedup:         cache.Open(cfg.RedisAddr, cfg.RedisPassword),
	}

	s.Dispatcher = notifications.NewDispatcher(s.Subscriptions, s.History, transport, notifications.Options{
		Concurrency: cfg.DispatchConcurrency,
		Deduper:     s.Dedup,
		DedupWindow: cfg.DedupWindow,
	}, logger)

	s.Generator = alerts.NewGenerator(alerts.GeneratorConfig{
		Preferences: s.Preferences,
		Records:     s.Records,
		Dispatcher:  s.Dispatcher,
		Watermarks:  s.Watermarks,
		Calculator:  calc,
		Workers:     cfg.GeneratorConcurrency,
	}, logger)

	logger.Info("Services wired",
		"redis_dedup", cfg.RedisAddr != "",
		"timezone", calc.Location,
		"week_start", calc.WeekStart,
		"budget_threshold", calc.Threshold)
	return s, nil
}

// HandlerDeps exposes the services to the HTTP layer.
func (s *Services) HandlerDeps(pool *db.Pool, logger *slog.Logger) handler.Deps {
	return handler.Deps{
		Subscriptions: s.Subscriptions,
		Preferences:   s.Preferences,
		History:       s.History,
		Dispatcher:    s.Dispatcher,
		Generator:     s.Generator,
		DB:            pool,
		Cache:         s.Dedup,
		Logger:        logger,
	}
}

// Transport picks the push transport. dryRun logs payloads instead of
// sending them.
func Transport(cfg *config.Config, dryRun bool, logger *slog.Logger) (notifications.Transport, error) {
	if dryRun {
		return notifications.LogSender{Logger: logger}, nil
	}
	sender := notifications.NewWebPushSender(notifications.WebPushConfig{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Subscriber: cfg.VAPIDSubscriber,
		TTL:        cfg.PushTTL,
	}, logger)
	if sender == nil {
		return nil, fmt.Errorf("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY are required to send pushes")
	}
	return sender, nil
}

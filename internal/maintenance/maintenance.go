// Package maintenance runs periodic background tasks as Go tickers.
// Replaces an external cron: alert cadence is driven from Go since the API
// is already a persistent, long-running service (required for
// LISTEN/NOTIFY).
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/moneyflow/notifier/internal/alerts"
	"github.com/moneyflow/notifier/internal/model"
)

// Config controls task intervals. Zero duration disables a task.
type Config struct {
	AlertInterval  time.Duration // Expense reminders + budget alerts
	ReportInterval time.Duration // Weekly + monthly reports (watermarked)
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		AlertInterval:  24 * time.Hour,
		ReportInterval: 6 * time.Hour,
	}
}

// Runner is the generator entrypoint the tickers call.
type Runner interface {
	Run(ctx context.Context, categories []model.Category) (alerts.RunResult, error)
}

// Locker makes sure only one instance runs a task per tick. Claim returns
// false when another holder has it.
type Locker interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

var (
	alertCategories  = []model.Category{model.ExpenseReminder, model.BudgetAlert}
	reportCategories = []model.Category{model.WeeklyReport, model.MonthlyReport}
)

// Start launches all configured tickers. Blocks until ctx is cancelled.
// Intended to be called with `go`. locker may be nil.
func Start(ctx context.Context, runner Runner, locker Locker, cfg Config, logger *slog.Logger) {
	logger.Info("Alert scheduler started",
		"alerts", cfg.AlertInterval,
		"reports", cfg.ReportInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Alerts: due-tomorrow reminders and budget threshold checks
	if cfg.AlertInterval > 0 {
		t := time.NewTicker(cfg.AlertInterval)
		tickers = append(tickers, t)
		task := Task{Name: "alerts", Categories: alertCategories, Lock: cfg.AlertInterval / 2}
		go runLoop(ctx, t.C, task.Name, func() { task.Run(ctx, runner, locker, logger) })
	}

	// Reports: safe to run often, watermarks drop repeats within a period
	if cfg.ReportInterval > 0 {
		t := time.NewTicker(cfg.ReportInterval)
		tickers = append(tickers, t)
		task := Task{Name: "reports", Categories: reportCategories, Lock: cfg.ReportInterval / 2}
		go runLoop(ctx, t.C, task.Name, func() { task.Run(ctx, runner, locker, logger) })
	}

	<-ctx.Done()
	logger.Info("Alert scheduler stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, name string, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

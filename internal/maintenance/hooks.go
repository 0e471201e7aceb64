package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/moneyflow/notifier/internal/alerts"
	"github.com/moneyflow/notifier/internal/model"
)

// Task is one scheduled generator invocation.
type Task struct {
	Name       string
	Categories []model.Category
	Lock       time.Duration // how long the run lock is held; 0 disables it
}

// Run executes the task once. With a locker, a tick another instance has
// already claimed is skipped. Returns whether the generator ran.
func (t Task) Run(ctx context.Context, runner Runner, locker Locker, logger *slog.Logger) bool {
	key := "notify:lock:" + t.Name
	if locker != nil && t.Lock > 0 {
		ok, err := locker.Claim(ctx, key, t.Lock)
		if err != nil {
			logger.Warn("Scheduler lock unavailable, running anyway", "task", t.Name, "error", err)
		} else if !ok {
			logger.Info("Scheduler tick skipped, held by another instance", "task", t.Name)
			return false
		}
	}

	RunNow(ctx, runner, t.Categories, logger)
	return true
}

// RunNow runs the generator for categories and logs the outcome.
func RunNow(ctx context.Context, runner Runner, categories []model.Category, logger *slog.Logger) (alerts.RunResult, error) {
	start := time.Now()
	result, err := runner.Run(ctx, categories)
	dur := time.Since(start).Round(time.Millisecond)

	if err != nil {
		logger.Warn("Alert run failed",
			"categories", categories, "duration", dur, "error", err)
		return result, err
	}
	logger.Info("Alert run finished",
		"categories", categories, "duration", dur, "summary", result.Summary())
	return result, nil
}

package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/moneyflow/notifier/internal/model"
	"github.com/moneyflow/notifier/internal/notifications"
	"github.com/moneyflow/notifier/internal/records"
)

const defaultWorkers = 10

// Eligibility lists the users with a category enabled.
type Eligibility interface {
	ListEligible(ctx context.Context, c model.Category) ([]uuid.UUID, error)
}

// RecordReader is the time-ranged read surface of the record store.
type RecordReader interface {
	QueryExpenses(ctx context.Context, userID uuid.UUID, r records.Range) ([]records.Expense, error)
	QueryDueExpenses(ctx context.Context, userID uuid.UUID, r records.Range) ([]records.Expense, error)
	QueryIncomes(ctx context.Context, userID uuid.UUID, r records.Range) ([]records.Income, error)
}

// Dispatcher sends one message to one user.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID uuid.UUID, msg model.Message) (notifications.Report, error)
}

// Watermarks tracks periodic reports already delivered.
type Watermarks interface {
	Get(ctx context.Context, userID uuid.UUID, c model.Category) (time.Time, bool, error)
	Mark(ctx context.Context, userID uuid.UUID, c model.Category, periodStart time.Time) error
}

// CategorySummary counts what happened to one category in a run.
type CategorySummary struct {
	Category        model.Category       `json:"category"`
	Eligible        int                  `json:"eligible"`
	Processed       int                  `json:"processed"`
	Fired           int                  `json:"fired"`
	Errored         int                  `json:"errored"`
	Skipped         int                  `json:"skipped"`
	NoSubscriptions int                  `json:"noSubscriptions"`
	Delivery        notifications.Report `json:"delivery"`
	Error           string               `json:"error,omitempty"`
}

// RunResult is the outcome of one Run.
type RunResult struct {
	Categories []CategorySummary `json:"categories"`
	Duration   time.Duration     `json:"duration"`
}

// Summary returns a log-friendly one-liner.
func (r RunResult) Summary() string {
	parts := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		if c.Error != "" {
			parts = append(parts, fmt.Sprintf("%s: error=%q", c.Category, c.Error))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: eligible=%d fired=%d errored=%d skipped=%d sent=%d",
			c.Category, c.Eligible, c.Fired, c.Errored, c.Skipped, c.Delivery.Sent))
	}
	return strings.Join(parts, "; ") + fmt.Sprintf(" (%s)", r.Duration.Round(time.Millisecond))
}

// Category returns the summary for c, if it was run.
func (r RunResult) Category(c model.Category) (CategorySummary, bool) {
	for _, s := range r.Categories {
		if s.Category == c {
			return s, true
		}
	}
	return CategorySummary{}, false
}

// GeneratorConfig wires a Generator. Watermarks may be nil, in which case
// periodic reports are sent on every run.
type GeneratorConfig struct {
	Preferences Eligibility
	Records     RecordReader
	Dispatcher  Dispatcher
	Watermarks  Watermarks
	Calculator  Calculator
	Workers     int
	Now         func() time.Time
}

// Generator evaluates scheduled categories for every eligible user.
type Generator struct {
	prefs      Eligibility
	records    RecordReader
	dispatcher Dispatcher
	watermarks Watermarks
	calc       Calculator
	workers    int
	now        func() time.Time
	logger     *slog.Logger
}

func NewGenerator(cfg GeneratorConfig, logger *slog.Logger) *Generator {
	if cfg.Workers < 1 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Generator{
		prefs:      cfg.Preferences,
		records:    cfg.Records,
		dispatcher: cfg.Dispatcher,
		watermarks: cfg.Watermarks,
		calc:       cfg.Calculator,
		workers:    cfg.Workers,
		now:        cfg.Now,
		logger:     logger,
	}
}

// Run evaluates each category once for each eligible user and dispatches
// to the users for whom it fires. Per-user failures are counted, never
// returned. Run fails only when no category could list its users, or when
// ctx is cancelled.
func (g *Generator) Run(ctx context.Context, categories []model.Category) (RunResult, error) {
	start := time.Now()
	now := g.now()
	var result RunResult

	seen := make(map[model.Category]bool)
	var listErr error
	for _, c := range categories {
		if seen[c] {
			continue
		}
		seen[c] = true

		if !c.IsScheduled() {
			return result, fmt.Errorf("%w: %q is not a scheduled category", model.ErrInvalidCategory, c)
		}

		summary, err := g.runCategory(ctx, c, now)
		if err != nil && ctx.Err() == nil {
			summary.Error = err.Error()
			listErr = errors.Join(listErr, err)
		}
		result.Categories = append(result.Categories, summary)

		if ctx.Err() != nil {
			break
		}
	}
	result.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("alert run: %w", err)
	}
	if listErr != nil && allFailed(result.Categories) {
		return result, fmt.Errorf("alert run: %w", listErr)
	}

	g.logger.Info("Alert run complete", "summary", result.Summary())
	return result, nil
}

func allFailed(cs []CategorySummary) bool {
	for _, c := range cs {
		if c.Error == "" {
			return false
		}
	}
	return len(cs) > 0
}

func (g *Generator) runCategory(ctx context.Context, c model.Category, now time.Time) (CategorySummary, error) {
	summary := CategorySummary{Category: c}

	ids, err := g.prefs.ListEligible(ctx, c)
	if err != nil {
		g.logger.Error("List eligible users failed", "category", c, "error", err)
		return summary, fmt.Errorf("list eligible for %s: %w", c, err)
	}

	users := make([]uuid.UUID, 0, len(ids))
	dup := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !dup[id] {
			dup[id] = true
			users = append(users, id)
		}
	}
	summary.Eligible = len(users)

	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(g.workers)

	for _, user := range users {
		user := user
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			out := g.evaluate(ctx, c, user, now)

			mu.Lock()
			defer mu.Unlock()
			summary.Processed++
			if out.fired {
				summary.Fired++
			}
			if out.errored {
				summary.Errored++
			}
			if out.skipped {
				summary.Skipped++
			}
			if out.report.NoSubscriptions {
				summary.NoSubscriptions++
			}
			if !out.report.Deduplicated {
				summary.Delivery.Add(out.report)
			}
			return nil
		})
	}
	_ = eg.Wait()

	return summary, nil
}

type userOutcome struct {
	fired   bool
	errored bool
	skipped bool
	report  notifications.Report
}

func (g *Generator) evaluate(ctx context.Context, c model.Category, user uuid.UUID, now time.Time) userOutcome {
	var out userOutcome

	msg, fires, period, err := g.build(ctx, c, user, now)
	if errors.Is(err, errAlreadySent) {
		out.skipped = true
		return out
	}
	if err != nil {
		g.logger.Warn("Evaluate alert failed", "category", c, "user_id", user, "error", err)
		out.errored = true
		return out
	}
	if !fires {
		return out
	}

	out.fired = true
	report, err := g.dispatcher.Dispatch(ctx, user, msg)
	out.report = report
	if err != nil {
		g.logger.Warn("Dispatch alert failed", "category", c, "user_id", user, "error", err)
		out.errored = true
		return out
	}
	if report.Deduplicated {
		out.skipped = true
	}

	if g.watermarks != nil && !period.IsZero() && report.Sent > 0 {
		if err := g.watermarks.Mark(ctx, user, c, period); err != nil {
			g.logger.Warn("Record report watermark failed", "category", c, "user_id", user, "error", err)
		}
	}
	return out
}

var errAlreadySent = errors.New("report already sent for this period")

// build reads the records c needs and asks the calculator whether it
// fires. For periodic reports it also returns the period start.
func (g *Generator) build(ctx context.Context, c model.Category, user uuid.UUID, now time.Time) (model.Message, bool, time.Time, error) {
	switch c {
	case model.ExpenseReminder:
		due, err := g.records.QueryDueExpenses(ctx, user, g.calc.ReminderWindow(now))
		if err != nil {
			return model.Message{}, false, time.Time{}, err
		}
		msg, ok, err := g.calc.ExpenseReminder(now, due)
		return msg, ok, time.Time{}, err

	case model.BudgetAlert:
		exps, incs, err := g.readRange(ctx, user, g.calc.MonthWindow(now))
		if err != nil {
			return model.Message{}, false, time.Time{}, err
		}
		msg, ok, err := g.calc.BudgetAlert(exps, incs)
		return msg, ok, time.Time{}, err

	case model.WeeklyReport, model.MonthlyReport:
		window := g.calc.WeekWindow(now)
		if c == model.MonthlyReport {
			window = g.calc.MonthWindow(now)
		}
		if err := g.checkWatermark(ctx, c, user, window.Start); err != nil {
			return model.Message{}, false, time.Time{}, err
		}
		exps, incs, err := g.readRange(ctx, user, window)
		if err != nil {
			return model.Message{}, false, time.Time{}, err
		}
		var msg model.Message
		if c == model.WeeklyReport {
			msg, err = g.calc.WeeklyReport(now, exps, incs)
		} else {
			msg, err = g.calc.MonthlyReport(now, exps, incs)
		}
		return msg, err == nil, window.Start, err
	}
	return model.Message{}, false, time.Time{}, fmt.Errorf("%w: %q", model.ErrInvalidCategory, c)
}

func (g *Generator) checkWatermark(ctx context.Context, c model.Category, user uuid.UUID, periodStart time.Time) error {
	if g.watermarks == nil {
		return nil
	}
	last, ok, err := g.watermarks.Get(ctx, user, c)
	if err != nil {
		// Fail open.
		g.logger.Warn("Read report watermark failed", "category", c, "user_id", user, "error", err)
		return nil
	}
	if ok && !last.Before(periodStart) {
		return errAlreadySent
	}
	return nil
}

func (g *Generator) readRange(ctx context.Context, user uuid.UUID, r records.Range) ([]records.Expense, []records.Income, error) {
	exps, err := g.records.QueryExpenses(ctx, user, r)
	if err != nil {
		return nil, nil, err
	}
	incs, err := g.records.QueryIncomes(ctx, user, r)
	if err != nil {
		return nil, nil, err
	}
	return exps, incs, nil
}

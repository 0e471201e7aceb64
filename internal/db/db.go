// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema migration and health checking.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyflow/notifier/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool. The schema must already
// be applied: statements are prepared on every new connection.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Migrate applies the embedded schema over a dedicated connection, so it
// works against a database the pool could not yet prepare statements for.
func Migrate(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// CheckSchema returns the notification tables that are missing.
func (p *Pool) CheckSchema(ctx context.Context) ([]string, error) {
	tables := []string{
		config.SubscriptionsTable,
		config.PreferencesTable,
		config.HistoryTable,
		config.WatermarksTable,
	}
	var missing []string
	for _, t := range tables {
		var exists bool
		if err := p.QueryRow(ctx, "table_exists", t).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check table %s: %w", t, err)
		}
		if !exists {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

// registerPreparedStatements registers all statements the stores use.
// Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",
		"table_exists": "SELECT to_regclass($1::text) IS NOT NULL",

		// Subscription registry
		"subscription_upsert": `
			INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, endpoint) DO UPDATE
			SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth, updated_at = NOW()
			RETURNING id, user_id, endpoint, p256dh, auth, created_at, updated_at`,
		"subscriptions_by_user": `
			SELECT id, user_id, endpoint, p256dh, auth, created_at, updated_at
			FROM push_subscriptions WHERE user_id = $1 ORDER BY id`,
		"subscription_delete":          "DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2",
		"subscription_delete_by_id":    "DELETE FROM push_subscriptions WHERE id = $1",
		"subscriptions_delete_by_user": "DELETE FROM push_subscriptions WHERE user_id = $1",

		// Preferences
		"preferences_get": `
			SELECT user_id, expense_reminders, budget_alerts, payment_confirmations,
			       weekly_reports, monthly_reports, created_at, updated_at
			FROM notification_preferences WHERE user_id = $1`,
		// Returns a row even when a concurrent first read inserted it.
		"preferences_get_or_create": `
			INSERT INTO notification_preferences (user_id) VALUES ($1)
			ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			RETURNING user_id, expense_reminders, budget_alerts, payment_confirmations,
			          weekly_reports, monthly_reports, created_at, updated_at`,
		"preferences_update": `
			INSERT INTO notification_preferences (
				user_id, expense_reminders, budget_alerts, payment_confirmations,
				weekly_reports, monthly_reports
			) VALUES (
				$1, COALESCE($2::boolean, TRUE), COALESCE($3::boolean, TRUE), COALESCE($4::boolean, TRUE),
				COALESCE($5::boolean, FALSE), COALESCE($6::boolean, TRUE)
			)
			ON CONFLICT (user_id) DO UPDATE SET
				expense_reminders     = COALESCE($2::boolean, notification_preferences.expense_reminders),
				budget_alerts         = COALESCE($3::boolean, notification_preferences.budget_alerts),
				payment_confirmations = COALESCE($4::boolean, notification_preferences.payment_confirmations),
				weekly_reports        = COALESCE($5::boolean, notification_preferences.weekly_reports),
				monthly_reports       = COALESCE($6::boolean, notification_preferences.monthly_reports),
				updated_at            = NOW()
			RETURNING user_id, expense_reminders, budget_alerts, payment_confirmations,
			          weekly_reports, monthly_reports, created_at, updated_at`,
		"preferences_eligible_expense_reminder":     "SELECT user_id FROM notification_preferences WHERE expense_reminders",
		"preferences_eligible_budget_alert":         "SELECT user_id FROM notification_preferences WHERE budget_alerts",
		"preferences_eligible_weekly_report":        "SELECT user_id FROM notification_preferences WHERE weekly_reports",
		"preferences_eligible_monthly_report":       "SELECT user_id FROM notification_preferences WHERE monthly_reports",
		"preferences_eligible_payment_confirmation": "SELECT user_id FROM notification_preferences WHERE payment_confirmations",

		// Delivery history
		"history_insert": `
			INSERT INTO notification_history (user_id, title, body, type, data)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, sent_at`,
		"history_by_user": `
			SELECT id, user_id, title, body, type, data, sent_at, read_at
			FROM notification_history WHERE user_id = $1
			ORDER BY sent_at DESC, id DESC LIMIT $2`,
		"history_mark_read": `
			UPDATE notification_history SET read_at = COALESCE(read_at, NOW())
			WHERE id = $1 AND user_id = $2`,

		// Report watermarks
		"watermark_get": "SELECT period_start FROM notification_watermarks WHERE user_id = $1 AND category = $2",
		"watermark_set": `
			INSERT INTO notification_watermarks (user_id, category, period_start)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, category) DO UPDATE
			SET period_start = GREATEST(notification_watermarks.period_start, EXCLUDED.period_start),
			    updated_at = NOW()`,

		// Record store (read-only)
		"expenses_in_range": `
			SELECT id, title, amount, date, due_date, paid_at FROM expenses
			WHERE user_id = $1 AND date >= $2 AND date <= $3`,
		"expenses_due_unpaid": `
			SELECT id, title, amount, date, due_date, paid_at FROM expenses
			WHERE user_id = $1 AND due_date >= $2 AND due_date <= $3 AND paid_at IS NULL`,
		"incomes_in_range": `
			SELECT id, amount, date FROM incomes
			WHERE user_id = $1 AND date >= $2 AND date <= $3`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}

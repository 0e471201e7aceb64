// Package preferences stores the per-user category flags that gate alerts.
// A user's row is created with defaults the first time it is read.
package preferences

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyflow/notifier/internal/model"
)

// Store is the Postgres-backed preference store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a preference store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get returns the user's preferences, creating the default row on first
// access. Concurrent first reads converge on one row.
func (s *Store) Get(ctx context.Context, userID uuid.UUID) (model.Preferences, error) {
	p, err := scanPreferences(s.pool.QueryRow(ctx, "preferences_get", userID))
	if errors.Is(err, pgx.ErrNoRows) {
		p, err = scanPreferences(s.pool.QueryRow(ctx, "preferences_get_or_create", userID))
	}
	if err != nil {
		return model.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return p, nil
}

// Update merges the non-nil fields of patch into the user's row, creating
// it with defaults first if needed, and bumps updated_at.
func (s *Store) Update(ctx context.Context, userID uuid.UUID, patch model.PreferencesPatch) (model.Preferences, error) {
	p, err := scanPreferences(s.pool.QueryRow(ctx, "preferences_update", userID,
		patch.ExpenseReminders, patch.BudgetAlerts, patch.PaymentConfirmations,
		patch.WeeklyReports, patch.MonthlyReports,
	))
	if err != nil {
		return model.Preferences{}, fmt.Errorf("update preferences: %w", err)
	}
	return p, nil
}

// ListEligible returns the users whose flag for c is set. Users that have
// never been read have no row and are not eligible.
func (s *Store) ListEligible(ctx context.Context, c model.Category) ([]uuid.UUID, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidCategory, c)
	}
	rows, err := s.pool.Query(ctx, "preferences_eligible_"+string(c))
	if err != nil {
		return nil, fmt.Errorf("list eligible %s: %w", c, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan eligible user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanPreferences(row pgx.Row) (model.Preferences, error) {
	var p model.Preferences
	err := row.Scan(
		&p.UserID, &p.ExpenseReminders, &p.BudgetAlerts, &p.PaymentConfirmations,
		&p.WeeklyReports, &p.MonthlyReports, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

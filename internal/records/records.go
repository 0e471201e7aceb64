// Package records reads the expenses and incomes the alert generator
// evaluates. The finance app owns these tables; this package never writes.
package records

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Range is a closed time interval: both Start and End are included.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside r, endpoints included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

type Expense struct {
	ID      int64
	Title   string
	Amount  decimal.Decimal
	Date    time.Time
	DueDate *time.Time
	PaidAt  *time.Time
}

// Unpaid reports whether no payment has been recorded.
func (e Expense) Unpaid() bool { return e.PaidAt == nil }

type Income struct {
	ID     int64
	Amount decimal.Decimal
	Date   time.Time
}

// Store is the Postgres-backed record reader.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a record reader over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// QueryExpenses returns the user's expenses dated inside r.
func (s *Store) QueryExpenses(ctx context.Context, userID uuid.UUID, r Range) ([]Expense, error) {
	return s.queryExpenses(ctx, "expenses_in_range", userID, r)
}

// QueryDueExpenses returns the user's unpaid expenses whose due date falls
// inside r.
func (s *Store) QueryDueExpenses(ctx context.Context, userID uuid.UUID, r Range) ([]Expense, error) {
	return s.queryExpenses(ctx, "expenses_due_unpaid", userID, r)
}

func (s *Store) queryExpenses(ctx context.Context, stmt string, userID uuid.UUID, r Range) ([]Expense, error) {
	rows, err := s.pool.Query(ctx, stmt, userID, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.Title, &e.Amount, &e.Date, &e.DueDate, &e.PaidAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// QueryIncomes returns the user's incomes dated inside r.
func (s *Store) QueryIncomes(ctx context.Context, userID uuid.UUID, r Range) ([]Income, error) {
	rows, err := s.pool.Query(ctx, "incomes_in_range", userID, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("query incomes: %w", err)
	}
	defer rows.Close()

	var out []Income
	for rows.Next() {
		var in Income
		if err := rows.Scan(&in.ID, &in.Amount, &in.Date); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// SumExpenses adds amounts exactly.
func SumExpenses(es []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range es {
		total = total.Add(e.Amount)
	}
	return total
}

// SumIncomes adds amounts exactly.
func SumIncomes(is []Income) decimal.Decimal {
	total := decimal.Zero
	for _, in := range is {
		total = total.Add(in.Amount)
	}
	return total
}

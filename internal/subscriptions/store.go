// Package subscriptions is the durable registry of push endpoints per user.
//
// (user_id, endpoint) is unique. Upsert relies on the store's unique
// constraint rather than check-then-insert, so concurrent registrations of
// the same endpoint converge on one row.
package subscriptions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyflow/notifier/internal/model"
)

// ErrMissingField is returned when an endpoint or key is empty.
var ErrMissingField = errors.New("endpoint, p256dh and auth are required")

// Store is the Postgres-backed registry.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a registry over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Upsert inserts the subscription or, if (userID, endpoint) exists, rotates
// its keys and bumps updated_at. The row id never changes on update.
func (s *Store) Upsert(ctx context.Context, userID uuid.UUID, endpoint string, keys model.Keys) (model.Subscription, error) {
	if err := validate(endpoint, keys); err != nil {
		return model.Subscription{}, err
	}

	var sub model.Subscription
	err := s.pool.QueryRow(ctx, "subscription_upsert", userID, endpoint, keys.P256dh, keys.Auth).Scan(
		&sub.ID, &sub.UserID, &sub.Endpoint, &sub.Keys.P256dh, &sub.Keys.Auth, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return model.Subscription{}, fmt.Errorf("upsert subscription: %w", err)
	}
	return sub, nil
}

// ListByUser returns every subscription the user owns; empty if none.
func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Subscription, error) {
	rows, err := s.pool.Query(ctx, "subscriptions_by_user", userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []model.Subscription{}
	for rows.Next() {
		var sub model.Subscription
		if err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.Endpoint, &sub.Keys.P256dh, &sub.Keys.Auth, &sub.CreatedAt, &sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Remove deletes the user's subscription for endpoint. Missing rows are not
// an error.
func (s *Store) Remove(ctx context.Context, userID uuid.UUID, endpoint string) error {
	if _, err := s.pool.Exec(ctx, "subscription_delete", userID, endpoint); err != nil {
		return fmt.Errorf("remove subscription: %w", err)
	}
	return nil
}

// RemoveByID deletes one subscription; used when delivery proves it dead.
func (s *Store) RemoveByID(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, "subscription_delete_by_id", id); err != nil {
		return fmt.Errorf("remove subscription %d: %w", id, err)
	}
	return nil
}

// RemoveAllByUser deletes every subscription for userID and returns how
// many were removed.
func (s *Store) RemoveAllByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, "subscriptions_delete_by_user", userID)
	if err != nil {
		return 0, fmt.Errorf("remove subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func validate(endpoint string, keys model.Keys) error {
	if endpoint == "" || keys.P256dh == "" || keys.Auth == "" {
		return ErrMissingField
	}
	return nil
}

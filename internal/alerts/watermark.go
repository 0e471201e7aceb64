package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyflow/notifier/internal/model"
)

// WatermarkStore remembers the latest reporting period a periodic
// category was delivered for, per user. Marks only move forward.
type WatermarkStore struct {
	pool *pgxpool.Pool
}

func NewWatermarkStore(pool *pgxpool.Pool) *WatermarkStore {
	return &WatermarkStore{pool: pool}
}

// Get returns the stored period start, or false if none.
func (s *WatermarkStore) Get(ctx context.Context, userID uuid.UUID, c model.Category) (time.Time, bool, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx, "watermark_get", userID, string(c)).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get watermark: %w", err)
	}
	return t, true, nil
}

// Mark records periodStart unless a later period is already stored.
func (s *WatermarkStore) Mark(ctx context.Context, userID uuid.UUID, c model.Category, periodStart time.Time) error {
	if _, err := s.pool.Exec(ctx, "watermark_set", userID, string(c), periodStart); err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}

type watermarkKey struct {
	userID   uuid.UUID
	category model.Category
}

// MemoryWatermarks is an in-process WatermarkStore.
type MemoryWatermarks struct {
	mu    sync.Mutex
	marks map[watermarkKey]time.Time
}

func NewMemoryWatermarks() *MemoryWatermarks {
	return &MemoryWatermarks{marks: make(map[watermarkKey]time.Time)}
}

func (m *MemoryWatermarks) Get(_ context.Context, userID uuid.UUID, c model.Category) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.marks[watermarkKey{userID, c}]
	return t, ok, nil
}

func (m *MemoryWatermarks) Mark(_ context.Context, userID uuid.UUID, c model.Category, periodStart time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := watermarkKey{userID, c}
	if cur, ok := m.marks[k]; !ok || periodStart.After(cur) {
		m.marks[k] = periodStart
	}
	return nil
}

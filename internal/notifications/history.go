package notifications

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneyflow/notifier/internal/model"
)

const defaultHistoryLimit = 50

// HistoryStore is the append-only delivery log in Postgres. Only read_at
// is ever updated.
type HistoryStore struct {
	pool *pgxpool.Pool
}

func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Insert appends entry and returns it with ID and SentAt filled in.
func (s *HistoryStore) Insert(ctx context.Context, entry model.HistoryEntry) (model.HistoryEntry, error) {
	var data any
	if len(entry.Data) > 0 {
		data = entry.Data
	}
	err := s.pool.QueryRow(ctx, "history_insert",
		entry.UserID, entry.Title, entry.Body, string(entry.Category), data,
	).Scan(&entry.ID, &entry.SentAt)
	if err != nil {
		return model.HistoryEntry{}, fmt.Errorf("insert history: %w", err)
	}
	return entry, nil
}

// ListByUser returns the user's most recent entries, newest first.
func (s *HistoryStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.pool.Query(ctx, "history_by_user", userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := []model.HistoryEntry{}
	for rows.Next() {
		var e model.HistoryEntry
		var category string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Body, &category, &e.Data, &e.SentAt, &e.ReadAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Category = model.Category(category)
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkRead sets read_at on one of the user's entries. Returns false if the
// entry does not exist or belongs to someone else. Marking twice keeps the
// first timestamp.
func (s *HistoryStore) MarkRead(ctx context.Context, userID uuid.UUID, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, "history_mark_read", id, userID)
	if err != nil {
		return false, fmt.Errorf("mark history %d read: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MemoryHistory is an in-process HistoryStore.
type MemoryHistory struct {
	mu      sync.Mutex
	nextID  int64
	entries []model.HistoryEntry
	now     func() time.Time
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{now: time.Now}
}

func (m *MemoryHistory) Insert(_ context.Context, entry model.HistoryEntry) (model.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	entry.ID = m.nextID
	entry.SentAt = m.now()
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *MemoryHistory) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []model.HistoryEntry{}
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryHistory) MarkRead(_ context.Context, userID uuid.UUID, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == id && m.entries[i].UserID == userID {
			if m.entries[i].ReadAt == nil {
				now := m.now()
				m.entries[i].ReadAt = &now
			}
			return true, nil
		}
	}
	return false, nil
}

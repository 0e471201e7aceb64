package preferences

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moneyflow/notifier/internal/model"
)

// Memory is an in-process preference store with the same semantics as Store.
type Memory struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Preferences
	now  func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rows: make(map[uuid.UUID]model.Preferences), now: time.Now}
}

func (m *Memory) Get(_ context.Context, userID uuid.UUID) (model.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(userID), nil
}

func (m *Memory) Update(_ context.Context, userID uuid.UUID, patch model.PreferencesPatch) (model.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := patch.Apply(m.getLocked(userID))
	p.UpdatedAt = m.now()
	m.rows[userID] = p
	return p, nil
}

func (m *Memory) ListEligible(_ context.Context, c model.Category) ([]uuid.UUID, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidCategory, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []uuid.UUID
	for id, p := range m.rows {
		if p.Enabled(c) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// Set replaces a user's row outright. Used to seed fixtures.
func (m *Memory) Set(p model.Preferences) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[p.UserID] = p
}

func (m *Memory) getLocked(userID uuid.UUID) model.Preferences {
	if p, ok := m.rows[userID]; ok {
		return p
	}
	now := m.now()
	p := model.DefaultPreferences(userID)
	p.CreatedAt, p.UpdatedAt = now, now
	m.rows[userID] = p
	return p
}

package subscriptions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moneyflow/notifier/internal/model"
)

type memKey struct {
	userID   uuid.UUID
	endpoint string
}

// Memory is an in-process registry with the same semantics as Store.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	rows   map[memKey]model.Subscription
	now    func() time.Time
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{rows: make(map[memKey]model.Subscription), now: time.Now}
}

func (m *Memory) Upsert(_ context.Context, userID uuid.UUID, endpoint string, keys model.Keys) (model.Subscription, error) {
	if err := validate(endpoint, keys); err != nil {
		return model.Subscription{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := memKey{userID, endpoint}
	if sub, ok := m.rows[k]; ok {
		sub.Keys = keys
		sub.UpdatedAt = now
		m.rows[k] = sub
		return sub, nil
	}

	m.nextID++
	sub := model.Subscription{
		ID:        m.nextID,
		UserID:    userID,
		Endpoint:  endpoint,
		Keys:      keys,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.rows[k] = sub
	return sub, nil
}

func (m *Memory) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := []model.Subscription{}
	for k, sub := range m.rows {
		if k.userID == userID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

func (m *Memory) Remove(_ context.Context, userID uuid.UUID, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, memKey{userID, endpoint})
	return nil
}

func (m *Memory) RemoveByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, sub := range m.rows {
		if sub.ID == id {
			delete(m.rows, k)
			return nil
		}
	}
	return nil
}

func (m *Memory) RemoveAllByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.rows {
		if k.userID == userID {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

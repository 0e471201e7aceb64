package records

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process record store for tests and dry runs.
type Memory struct {
	mu       sync.RWMutex
	expenses map[uuid.UUID][]Expense
	incomes  map[uuid.UUID][]Income
}

func NewMemory() *Memory {
	return &Memory{
		expenses: make(map[uuid.UUID][]Expense),
		incomes:  make(map[uuid.UUID][]Income),
	}
}

func (m *Memory) AddExpense(userID uuid.UUID, e Expense) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[userID] = append(m.expenses[userID], e)
}

func (m *Memory) AddIncome(userID uuid.UUID, in Income) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incomes[userID] = append(m.incomes[userID], in)
}

func (m *Memory) QueryExpenses(_ context.Context, userID uuid.UUID, r Range) ([]Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Expense
	for _, e := range m.expenses[userID] {
		if r.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) QueryDueExpenses(_ context.Context, userID uuid.UUID, r Range) ([]Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Expense
	for _, e := range m.expenses[userID] {
		if e.DueDate != nil && e.Unpaid() && r.Contains(*e.DueDate) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) QueryIncomes(_ context.Context, userID uuid.UUID, r Range) ([]Income, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Income
	for _, in := range m.incomes[userID] {
		if r.Contains(in.Date) {
			out = append(out, in)
		}
	}
	return out, nil
}

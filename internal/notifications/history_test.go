package notifications

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneyflow/notifier/internal/db/dbtest"
	"github.com/moneyflow/notifier/internal/model"
)

type historyStore interface {
	Insert(ctx context.Context, entry model.HistoryEntry) (model.HistoryEntry, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.HistoryEntry, error)
	MarkRead(ctx context.Context, userID uuid.UUID, id int64) (bool, error)
}

func historyImplementations() map[string]func(t *testing.T) historyStore {
	return map[string]func(t *testing.T) historyStore{
		"memory":   func(t *testing.T) historyStore { return NewMemoryHistory() },
		"postgres": func(t *testing.T) historyStore { return NewHistoryStore(dbtest.Open(t)) },
	}
}

func TestHistoryInsertAndList(t *testing.T) {
	for name, open := range historyImplementations() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			user := uuid.New()

			first, err := s.Insert(ctx, model.HistoryEntry{UserID: user, Title: "A", Body: "a", Category: model.WeeklyReport})
			require.NoError(t, err)
			assert.NotZero(t, first.ID)
			assert.False(t, first.SentAt.IsZero())

			_, err = s.Insert(ctx, model.HistoryEntry{
				UserID: user, Title: "B", Body: "b", Category: model.BudgetAlert,
				Data: json.RawMessage(`{"percentage":"85"}`),
			})
			require.NoError(t, err)

			entries, err := s.ListByUser(ctx, user, 10)
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, "B", entries[0].Title, "newest first")
			assert.JSONEq(t, `{"percentage":"85"}`, string(entries[0].Data))
			assert.Nil(t, entries[1].ReadAt)

			limited, err := s.ListByUser(ctx, user, 1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)
		})
	}
}

func TestHistoryMarkRead(t *testing.T) {
	for name, open := range historyImplementations() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			owner, other := uuid.New(), uuid.New()

			e, err := s.Insert(ctx, model.HistoryEntry{UserID: owner, Title: "A", Body: "a", Category: model.MonthlyReport})
			require.NoError(t, err)

			ok, err := s.MarkRead(ctx, other, e.ID)
			require.NoError(t, err)
			assert.False(t, ok, "other users cannot mark it")

			ok, err = s.MarkRead(ctx, owner, e.ID)
			require.NoError(t, err)
			assert.True(t, ok)

			entries, err := s.ListByUser(ctx, owner, 0)
			require.NoError(t, err)
			require.NotNil(t, entries[0].ReadAt)
			first := *entries[0].ReadAt

			ok, err = s.MarkRead(ctx, owner, e.ID)
			require.NoError(t, err)
			assert.True(t, ok)
			entries, _ = s.ListByUser(ctx, owner, 0)
			assert.True(t, first.Equal(*entries[0].ReadAt), "first read time is kept")
		})
	}
}

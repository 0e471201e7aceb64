package preferences

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneyflow/notifier/internal/db/dbtest"
	"github.com/moneyflow/notifier/internal/model"
)

type store interface {
	Get(ctx context.Context, userID uuid.UUID) (model.Preferences, error)
	Update(ctx context.Context, userID uuid.UUID, patch model.PreferencesPatch) (model.Preferences, error)
	ListEligible(ctx context.Context, c model.Category) ([]uuid.UUID, error)
}

func implementations() map[string]func(t *testing.T) store {
	return map[string]func(t *testing.T) store{
		"memory":   func(t *testing.T) store { return NewMemory() },
		"postgres": func(t *testing.T) store { return NewStore(dbtest.Open(t)) },
	}
}

func boolPtr(b bool) *bool { return &b }

func TestGetCreatesDefaults(t *testing.T) {
	for name, open := range implementations() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			user := uuid.New()

			p, err := s.Get(context.Background(), user)
			require.NoError(t, err)
			assert.Equal(t, user, p.UserID)
			assert.True(t, p.ExpenseReminders)
			assert.True(t, p.BudgetAlerts)
			assert.True(t, p.PaymentConfirmations)
			assert.False(t, p.WeeklyReports)
			assert.True(t, p.MonthlyReports)
		})
	}
}

func TestConcurrentGetCreatesOneRow(t *testing.T) {
	for name, open := range implementations() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			users := make([]uuid.UUID, 20)
			for i := range users {
				users[i] = uuid.New()
			}

			// Release every first read at once so they race on the insert.
			start := make(chan struct{})
			var wg sync.WaitGroup
			for _, user := range users {
				user := user
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						<-start
						p, err := s.Get(ctx, user)
						if assert.NoError(t, err) {
							assert.Equal(t, user, p.UserID)
							assert.True(t, p.BudgetAlerts)
							assert.False(t, p.WeeklyReports)
						}
					}()
				}
			}
			close(start)
			wg.Wait()

			ids, err := s.ListEligible(ctx, model.BudgetAlert)
			require.NoError(t, err)
			counts := make(map[uuid.UUID]int)
			for _, id := range ids {
				counts[id]++
			}
			for _, user := range users {
				assert.Equal(t, 1, counts[user], "user %s", user)
			}
		})
	}
}

func TestUpdateMergesPartialPatch(t *testing.T) {
	for name, open := range implementations() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			user := uuid.New()

			before, err := s.Get(ctx, user)
			require.NoError(t, err)

			after, err := s.Update(ctx, user, model.PreferencesPatch{
				BudgetAlerts:  boolPtr(false),
				WeeklyReports: boolPtr(true),
			})
			require.NoError(t, err)
			assert.False(t, after.BudgetAlerts)
			assert.True(t, after.WeeklyReports)
			assert.True(t, after.ExpenseReminders)
			assert.True(t, after.MonthlyReports)
			assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))

			again, err := s.Get(ctx, user)
			require.NoError(t, err)
			assert.Equal(t, after.BudgetAlerts, again.BudgetAlerts)
			assert.Equal(t, after.WeeklyReports, again.WeeklyReports)
		})
	}
}

func TestUpdateWithoutPriorRowAppliesOverDefaults(t *testing.T) {
	for name, open := range implementations() {
		t.Run(name, func(t *testing.T) {
			p, err := open(t).Update(context.Background(), uuid.New(), model.PreferencesPatch{
				MonthlyReports: boolPtr(false),
			})
			require.NoError(t, err)
			assert.False(t, p.MonthlyReports)
			assert.True(t, p.ExpenseReminders)
			assert.False(t, p.WeeklyReports)
		})
	}
}

func TestListEligibleFiltersByFlag(t *testing.T) {
	for name, open := range implementations() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			on, off := uuid.New(), uuid.New()

			_, err := s.Update(ctx, on, model.PreferencesPatch{WeeklyReports: boolPtr(true)})
			require.NoError(t, err)
			_, err = s.Get(ctx, off)
			require.NoError(t, err)

			ids, err := s.ListEligible(ctx, model.WeeklyReport)
			require.NoError(t, err)
			assert.Contains(t, ids, on)
			assert.NotContains(t, ids, off)
		})
	}
}

func TestListEligibleRejectsUnknownCategory(t *testing.T) {
	_, err := NewMemory().ListEligible(context.Background(), model.Category("nope"))
	assert.ErrorIs(t, err, model.ErrInvalidCategory)
}

package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneyflow/notifier/internal/db/dbtest"
	"github.com/moneyflow/notifier/internal/model"
)

func TestWatermarkStore(t *testing.T) {
	s := NewWatermarkStore(dbtest.Open(t))
	ctx := context.Background()
	user := uuid.New()

	_, ok, err := s.Get(ctx, user, model.WeeklyReport)
	require.NoError(t, err)
	assert.False(t, ok)

	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Mark(ctx, user, model.MonthlyReport, march))
	require.NoError(t, s.Mark(ctx, user, model.MonthlyReport, feb))

	got, ok, err := s.Get(ctx, user, model.MonthlyReport)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(march), "older period does not overwrite")
}

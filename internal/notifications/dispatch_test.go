package notifications

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mocks "github.com/moneyflow/notifier/internal/mocks/notifications"
	"github.com/moneyflow/notifier/internal/model"
	"github.com/moneyflow/notifier/internal/subscriptions"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustMessage(t *testing.T) model.Message {
	t.Helper()
	msg, err := model.NewMessage("Budget Alert", "You've spent 85.0% of your monthly income.", model.BudgetAlert, nil)
	require.NoError(t, err)
	return msg
}

func seed(t *testing.T, reg *subscriptions.Memory, user uuid.UUID, endpoints ...string) {
	t.Helper()
	for _, ep := range endpoints {
		_, err := reg.Upsert(context.Background(), user, ep, model.Keys{P256dh: "p", Auth: "a"})
		require.NoError(t, err)
	}
}

func TestDispatchPartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := subscriptions.NewMemory()
	history := NewMemoryHistory()
	transport := mocks.NewMockTransport(ctrl)
	user := uuid.New()
	seed(t, reg, user, "https://push.example/ok", "https://push.example/gone", "https://push.example/flaky")

	transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub model.Subscription, _ []byte) (int, error) {
			switch sub.Endpoint {
			case "https://push.example/ok":
				return http.StatusCreated, nil
			case "https://push.example/gone":
				return http.StatusGone, &StatusError{StatusCode: http.StatusGone}
			default:
				return 0, errors.New("dial tcp: connection reset by peer")
			}
		}).Times(3)

	d := NewDispatcher(reg, history, transport, Options{Concurrency: 3}, testLogger())
	report, err := d.Dispatch(context.Background(), user, mustMessage(t))
	require.NoError(t, err)

	assert.Equal(t, Report{Sent: 1, Failed: 2, Removed: 1, Total: 3}, report)

	remaining, err := reg.ListByUser(context.Background(), user)
	require.NoError(t, err)
	var endpoints []string
	for _, s := range remaining {
		endpoints = append(endpoints, s.Endpoint)
	}
	assert.ElementsMatch(t, []string{"https://push.example/ok", "https://push.example/flaky"}, endpoints)

	entries, err := history.ListByUser(context.Background(), user, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.BudgetAlert, entries[0].Category)
}

func TestDispatchTransientFailureKeepsSubscription(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := subscriptions.NewMemory()
	transport := mocks.NewMockTransport(ctrl)
	user := uuid.New()
	seed(t, reg, user, "https://push.example/1")

	transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(http.StatusInternalServerError, &StatusError{StatusCode: http.StatusInternalServerError})

	report, err := NewDispatcher(reg, NewMemoryHistory(), transport, Options{}, testLogger()).
		Dispatch(context.Background(), user, mustMessage(t))
	require.NoError(t, err)
	assert.Equal(t, Report{Failed: 1, Total: 1}, report)

	subs, _ := reg.ListByUser(context.Background(), user)
	assert.Len(t, subs, 1)
}

func TestDispatchNoSubscriptions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transport := mocks.NewMockTransport(ctrl) // no calls expected

	report, err := NewDispatcher(subscriptions.NewMemory(), NewMemoryHistory(), transport, Options{}, testLogger()).
		Dispatch(context.Background(), uuid.New(), mustMessage(t))
	require.NoError(t, err)
	assert.True(t, report.NoSubscriptions)
	assert.Zero(t, report.Total)
	assert.ErrorIs(t, report.Err(), ErrNoSubscriptions)
}

func TestDispatchRegistryUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := mocks.NewMockRegistry(ctrl)
	reg.EXPECT().ListByUser(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := NewDispatcher(reg, NewMemoryHistory(), mocks.NewMockTransport(ctrl), Options{}, testLogger()).
		Dispatch(context.Background(), uuid.New(), mustMessage(t))
	assert.ErrorContains(t, err, "connection refused")
}

func TestDispatchBestEffortSideEffects(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	user := uuid.New()
	subs := []model.Subscription{
		{ID: 1, UserID: user, Endpoint: "https://push.example/1"},
		{ID: 2, UserID: user, Endpoint: "https://push.example/2"},
		{ID: 3, UserID: user, Endpoint: "https://push.example/3"},
	}

	reg := mocks.NewMockRegistry(ctrl)
	reg.EXPECT().ListByUser(gomock.Any(), user).Return(subs, nil)
	reg.EXPECT().RemoveByID(gomock.Any(), int64(3)).Return(errors.New("deadlock detected"))

	history := mocks.NewMockHistoryWriter(ctrl)
	history.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(model.HistoryEntry{}, errors.New("disk full")).Times(2)

	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, sub model.Subscription, _ []byte) (int, error) {
			if sub.ID == 3 {
				return http.StatusNotFound, nil
			}
			return http.StatusCreated, nil
		}).Times(3)

	report, err := NewDispatcher(reg, history, transport, Options{Concurrency: 2}, testLogger()).
		Dispatch(context.Background(), user, mustMessage(t))
	require.NoError(t, err)
	assert.Equal(t, Report{Sent: 2, Failed: 1, Removed: 0, Total: 3}, report)
}

func TestDispatchCancellationDiscardsResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := uuid.New()
	subs := []model.Subscription{
		{ID: 1, UserID: user, Endpoint: "https://push.example/1"},
		{ID: 2, UserID: user, Endpoint: "https://push.example/2"},
		{ID: 3, UserID: user, Endpoint: "https://push.example/3"},
	}

	reg := mocks.NewMockRegistry(ctrl)
	reg.EXPECT().ListByUser(gomock.Any(), user).Return(subs, nil)
	// No RemoveByID or Insert expected.
	history := mocks.NewMockHistoryWriter(ctrl)

	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, model.Subscription, []byte) (int, error) {
			cancel()
			return http.StatusGone, nil
		}).Times(1)

	report, err := NewDispatcher(reg, history, transport, Options{Concurrency: 1}, testLogger()).
		Dispatch(ctx, user, mustMessage(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, report.Skipped)
	assert.Zero(t, report.Sent)
	assert.Zero(t, report.Removed)
}

func TestDispatchSkipsDuplicateContent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := subscriptions.NewMemory()
	user := uuid.New()
	seed(t, reg, user, "https://push.example/1")
	msg := mustMessage(t)

	dedup := mocks.NewMockDeduper(ctrl)
	dedup.EXPECT().Claim(gomock.Any(), ContentKey(user, msg), 5*time.Minute).Return(false, nil)

	report, err := NewDispatcher(reg, NewMemoryHistory(), mocks.NewMockTransport(ctrl),
		Options{Deduper: dedup, DedupWindow: 5 * time.Minute}, testLogger()).
		Dispatch(context.Background(), user, msg)
	require.NoError(t, err)
	assert.Equal(t, Report{Deduplicated: true}, report, "nothing attempted, nothing counted")
}

func TestDispatchReleasesClaimWhenNothingSent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := subscriptions.NewMemory()
	user := uuid.New()
	seed(t, reg, user, "https://push.example/1")
	msg := mustMessage(t)
	key := ContentKey(user, msg)

	dedup := mocks.NewMockDeduper(ctrl)
	dedup.EXPECT().Claim(gomock.Any(), key, gomock.Any()).Return(true, nil)
	dedup.EXPECT().Release(gomock.Any(), key).Return(nil)

	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, errors.New("timeout"))

	report, err := NewDispatcher(reg, NewMemoryHistory(), transport, Options{Deduper: dedup}, testLogger()).
		Dispatch(context.Background(), user, msg)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
}

func TestDispatchProceedsWhenDedupFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	reg := subscriptions.NewMemory()
	user := uuid.New()
	seed(t, reg, user, "https://push.example/1")

	dedup := mocks.NewMockDeduper(ctrl)
	dedup.EXPECT().Claim(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))

	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(http.StatusCreated, nil)

	report, err := NewDispatcher(reg, NewMemoryHistory(), transport, Options{Deduper: dedup}, testLogger()).
		Dispatch(context.Background(), user, mustMessage(t))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
}

func TestContentKeyDependsOnContent(t *testing.T) {
	user := uuid.New()
	a, _ := model.NewMessage("Title", "Body", model.BudgetAlert, nil)
	b, _ := model.NewMessage("Title", "Body!", model.BudgetAlert, nil)
	c, _ := model.NewMessage("Title", "Body", model.MonthlyReport, nil)

	assert.Equal(t, ContentKey(user, a), ContentKey(user, a))
	assert.NotEqual(t, ContentKey(user, a), ContentKey(user, b))
	assert.NotEqual(t, ContentKey(user, a), ContentKey(user, c))
	assert.NotEqual(t, ContentKey(user, a), ContentKey(uuid.New(), a))
}

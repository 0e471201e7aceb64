package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneyflow/notifier/internal/alerts"
	"github.com/moneyflow/notifier/internal/api/handler"
	"github.com/moneyflow/notifier/internal/config"
	"github.com/moneyflow/notifier/internal/model"
	"github.com/moneyflow/notifier/internal/notifications"
	"github.com/moneyflow/notifier/internal/preferences"
	"github.com/moneyflow/notifier/internal/subscriptions"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls [][]model.Category
}

func (g *fakeGenerator) Run(_ context.Context, cats []model.Category) (alerts.RunResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, cats)
	out := alerts.RunResult{}
	for _, c := range cats {
		out.Categories = append(out.Categories, alerts.CategorySummary{Category: c})
	}
	return out, nil
}

type testServer struct {
	router  http.Handler
	subs    *subscriptions.Memory
	prefs   *preferences.Memory
	history *notifications.MemoryHistory
	gen     *fakeGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ts := &testServer{
		subs:    subscriptions.NewMemory(),
		prefs:   preferences.NewMemory(),
		history: notifications.NewMemoryHistory(),
		gen:     &fakeGenerator{},
	}
	transport := notifications.TransportFunc(func(_ context.Context, sub model.Subscription, _ []byte) (int, error) {
		if strings.Contains(sub.Endpoint, "gone") {
			return http.StatusGone, &notifications.StatusError{StatusCode: http.StatusGone}
		}
		return http.StatusCreated, nil
	})
	dispatcher := notifications.NewDispatcher(ts.subs, ts.history, transport, notifications.Options{}, logger)

	cfg := &config.Config{
		CORSAllowOrigins: []string{"http://localhost:3000"},
		UserIDHeader:     "X-User-ID",
		CronSecret:       "s3cret",
		VAPIDPublicKey:   "BPublicKey",
		Environment:      "test",
	}
	ts.router = NewRouter(handler.Deps{
		Subscriptions: ts.subs,
		Preferences:   ts.prefs,
		History:       ts.history,
		Dispatcher:    dispatcher,
		Generator:     ts.gen,
		Logger:        logger,
	}, cfg)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, user uuid.UUID, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != uuid.Nil {
		req.Header.Set("X-User-ID", user.String())
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func TestIdentityRequired(t *testing.T) {
	ts := newTestServer(t)

	rec, body := ts.do(t, http.MethodGet, "/api/v1/push/preferences", uuid.Nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/push/preferences", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubscribeCreatesDefaultPreferences(t *testing.T) {
	ts := newTestServer(t)
	user := uuid.New()

	rec, _ := ts.do(t, http.MethodPost, "/api/v1/push/subscribe", user,
		`{"endpoint":"https://push.example/1","p256dh":"p","auth":"a"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	eligible, err := ts.prefs.ListEligible(context.Background(), model.BudgetAlert)
	require.NoError(t, err)
	assert.Contains(t, eligible, user)

	subs, err := ts.subs.ListByUser(context.Background(), user)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestSubscribeAcceptsNestedKeys(t *testing.T) {
	ts := newTestServer(t)
	user := uuid.New()

	rec, _ := ts.do(t, http.MethodPost, "/api/v1/push/subscribe", user,
		`{"endpoint":"https://push.example/1","keys":{"p256dh":"p","auth":"a"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	subs, _ := ts.subs.ListByUser(context.Background(), user)
	require.Len(t, subs, 1)
	assert.Equal(t, model.Keys{P256dh: "p", Auth: "a"}, subs[0].Keys)
}

func TestSubscribeMissingFields(t *testing.T) {
	ts := newTestServer(t)
	rec, body := ts.do(t, http.MethodPost, "/api/v1/push/subscribe", uuid.New(), `{"endpoint":"https://push.example/1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_FIELDS", errorCode(body))
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	user := uuid.New()
	ts.do(t, http.MethodPost, "/api/v1/push/subscribe", user, `{"endpoint":"https://push.example/1","p256dh":"p","auth":"a"}`)

	for i := 0; i < 2; i++ {
		rec, _ := ts.do(t, http.MethodDelete, "/api/v1/push/subscribe?endpoint=https://push.example/1", user, "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec, _ := ts.do(t, http.MethodDelete, "/api/v1/push/subscribe", user, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendAndHistory(t *testing.T) {
	ts := newTestServer(t)
	user := uuid.New()

	rec, body := ts.do(t, http.MethodPost, "/api/v1/push/send", user, `{"title":"Hi","body":"There","type":"budget_alert"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NO_SUBSCRIPTIONS", errorCode(body))

	ts.do(t, http.MethodPost, "/api/v1/push/subscribe", user, `{"endpoint":"https://push.example/ok","p256dh":"p","auth":"a"}`)
	ts.do(t, http.MethodPost, "/api/v1/push/subscribe", user, `{"endpoint":"https://push.example/gone","p256dh":"p","auth":"a"}`)

	rec, body = ts.do(t, http.MethodPost, "/api/v1/push/send", user,
		`{"title":"Hi","body":"There","type":"budget_alert","data":{"source":"manual"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["sent"])
	assert.EqualValues(t, 1, body["failed"])
	assert.EqualValues(t, 1, body["removed"])
	assert.EqualValues(t, 2, body["total"])

	rec, body = ts.do(t, http.MethodGet, "/api/v1/notifications/history", user, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	entries := body["notifications"].([]interface{})
	entry := entries[0].(map[string]interface{})
	assert.Equal(t, "budget_alert", entry["type"])
	id := int64(entry["id"].(float64))

	path := "/api/v1/notifications/history/" + jsonInt(id) + "/read"
	rec, _ = ts.do(t, http.MethodPost, path, uuid.New(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "another user cannot read it")
	rec, _ = ts.do(t, http.MethodPost, path, user, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestSendValidation(t *testing.T) {
	ts := newTestServer(t)
	user := uuid.New()

	rec, body := ts.do(t, http.MethodPost, "/api/v1/push/send", user, `{"title":"Hi","body":"There","type":"lottery"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TYPE", errorCode(body))

	rec, body = ts.do(t, http.MethodPost, "/api/v1/push/send", user, `{"title":"","body":"There","type":"budget_alert"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_FIELDS", errorCode(body))
}

func TestPreferencesPartialUpdate(t *testing.T) {
	ts := newTestServer(t)
	user := uuid.New()

	rec, body := ts.do(t, http.MethodGet, "/api/v1/push/preferences", user, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["weeklyReports"])
	assert.Equal(t, true, body["budgetAlerts"])

	rec, body = ts.do(t, http.MethodPut, "/api/v1/push/preferences", user, `{"weeklyReports":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["weeklyReports"])
	assert.Equal(t, true, body["budgetAlerts"])
	assert.Equal(t, true, body["expenseReminders"])
}

func TestCleanupAndDebug(t *testing.T) {
	ts := newTestServer(t)
	user := uuid.New()
	long := "https://fcm.googleapis.com/fcm/send/abcdefghijklmnopqrstuvwxyz0123456789"
	ts.do(t, http.MethodPost, "/api/v1/push/subscribe", user, `{"endpoint":"`+long+`","p256dh":"p","auth":"a"}`)
	ts.do(t, http.MethodPost, "/api/v1/push/subscribe", user, `{"endpoint":"https://push.example/2","p256dh":"p","auth":"a"}`)

	rec, body := ts.do(t, http.MethodGet, "/api/v1/push/debug", user, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["subscriptionCount"])
	first := body["subscriptions"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, long[:50]+"...", first["endpoint"])
	env := body["environment"].(map[string]interface{})
	assert.Equal(t, true, env["hasVapidPublicKey"])
	assert.Equal(t, false, env["hasVapidPrivateKey"])

	rec, body = ts.do(t, http.MethodPost, "/api/v1/push/cleanup", user, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["removed"])

	_, body = ts.do(t, http.MethodPost, "/api/v1/push/cleanup", user, "")
	assert.EqualValues(t, 0, body["removed"])
}

func TestVAPIDPublicKeyIsPublic(t *testing.T) {
	ts := newTestServer(t)
	rec, body := ts.do(t, http.MethodGet, "/api/v1/push/vapid-public-key", uuid.Nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BPublicKey", body["publicKey"])
}

func TestCronTrigger(t *testing.T) {
	ts := newTestServer(t)

	cron := func(auth, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cron/notifications", strings.NewReader(body))
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, req)
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return rec, out
	}

	rec, _ := cron("", `{"type":"all"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = cron("Bearer wrong", `{"type":"all"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := cron("Bearer s3cret", `{"type":"payment_confirmations"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_TYPE", errorCode(body))
	assert.Empty(t, ts.gen.calls)

	rec, body = cron("Bearer s3cret", `{"type":"all"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["categories"], 4)

	rec, _ = cron("Bearer s3cret", `{"type":"budget_alerts"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.gen.calls, 2)
	assert.Equal(t, model.Scheduled, ts.gen.calls[0])
	assert.Equal(t, []model.Category{model.BudgetAlert}, ts.gen.calls[1])
}

func TestHealthDBWithoutDatabase(t *testing.T) {
	ts := newTestServer(t)
	rec, body := ts.do(t, http.MethodGet, "/health/db", uuid.Nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", body["status"])

	rec, _ = ts.do(t, http.MethodGet, "/health", uuid.Nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))
}

func TestRateLimit(t *testing.T) {
	h := RateLimitMiddleware(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

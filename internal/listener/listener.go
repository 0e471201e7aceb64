// Package listener provides a Postgres LISTEN/NOTIFY consumer for payment
// events. It holds a dedicated pgx connection (not from the pool) listening
// on the `expense_paid` channel.
//
// When an expense's paid_at is set, the trigger in schema.sql fires
// pg_notify and this consumer sends the owner a payment confirmation if
// they have that category enabled.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/moneyflow/notifier/internal/alerts"
	"github.com/moneyflow/notifier/internal/model"
	"github.com/moneyflow/notifier/internal/notifications"
)

const (
	Channel          = "expense_paid"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second

	defaultConcurrency = 20
)

// PaymentEvent is the JSON payload from pg_notify('expense_paid', ...).
type PaymentEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	ExpenseID int64     `json:"expense_id"`
	Title     string    `json:"title"`
	Amount    string    `json:"amount"`
	PaidAt    string    `json:"paid_at"`
}

// paidAtLayouts covers timestamp and timestamptz as rendered by
// json_build_object.
var paidAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// PaidTime parses PaidAt, falling back to now when absent or malformed.
func (e PaymentEvent) PaidTime(now time.Time) time.Time {
	for _, layout := range paidAtLayouts {
		if t, err := time.Parse(layout, e.PaidAt); err == nil {
			return t
		}
	}
	return now
}

// Preferences reads a user's flags.
type Preferences interface {
	Get(ctx context.Context, userID uuid.UUID) (model.Preferences, error)
}

// Dispatcher sends one message to one user.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID uuid.UUID, msg model.Message) (notifications.Report, error)
}

// Listener turns payment events into confirmations.
type Listener struct {
	dbURL      string
	prefs      Preferences
	dispatcher Dispatcher
	logger     *slog.Logger

	// slots caps in-flight confirmations; wg tracks them for shutdown.
	slots chan struct{}
	wg    sync.WaitGroup
}

// New builds a listener handling at most concurrency events at once.
func New(dbURL string, prefs Preferences, dispatcher Dispatcher, concurrency int, logger *slog.Logger) *Listener {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Listener{
		dbURL:      dbURL,
		prefs:      prefs,
		dispatcher: dispatcher,
		logger:     logger,
		slots:      make(chan struct{}, concurrency),
	}
}

// Start opens a dedicated connection and listens on the expense_paid
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled and in-flight confirmations finish. Intended to be called
// with `go`.
func (l *Listener) Start(ctx context.Context) {
	defer l.wg.Wait()
	backoff := reconnectBackoff

	for {
		err := l.listenLoop(ctx)
		if ctx.Err() != nil {
			l.logger.Info("Payment listener stopped (context cancelled)")
			return
		}

		l.logger.Error("Payment listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func (l *Listener) listenLoop(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+Channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", Channel, err)
	}
	l.logger.Info("Payment listener connected", "channel", Channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		if !l.spawn(ctx, notification.Payload) {
			return ctx.Err()
		}
	}
}

// spawn handles payload on its own goroutine once a slot frees up. When all
// slots are busy it blocks, leaving later notifications queued on the
// connection. Returns false if ctx ends first.
func (l *Listener) spawn(ctx context.Context, payload string) bool {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return false
	}

	l.wg.Add(1)
	go func() {
		defer func() {
			<-l.slots
			l.wg.Done()
		}()
		if err := l.HandlePayload(ctx, payload); err != nil {
			l.logger.Warn("Payment confirmation failed", "payload", payload, "error", err)
		}
	}()
	return true
}

// HandlePayload parses one event and, if the owner wants confirmations,
// dispatches one.
func (l *Listener) HandlePayload(ctx context.Context, payload string) error {
	var event PaymentEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return fmt.Errorf("parse payment event: %w", err)
	}
	if event.UserID == uuid.Nil {
		return fmt.Errorf("payment event for expense %d has no user_id", event.ExpenseID)
	}

	l.logger.Info("Payment event received",
		"user_id", event.UserID, "expense_id", event.ExpenseID, "amount", event.Amount)

	prefs, err := l.prefs.Get(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	if !prefs.Enabled(model.PaymentConfirmation) {
		return nil
	}

	msg, err := alerts.PaymentConfirmation(event.ExpenseID, event.Title, event.Amount, event.PaidTime(time.Now()))
	if err != nil {
		return err
	}

	report, err := l.dispatcher.Dispatch(ctx, event.UserID, msg)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if report.Total > 0 {
		l.logger.Info("Payment confirmation dispatched",
			"user_id", event.UserID, "expense_id", event.ExpenseID, "summary", report.Summary())
	}
	return nil
}

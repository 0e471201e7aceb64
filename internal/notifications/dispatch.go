package notifications

//go:generate mockgen -source=dispatch.go -destination=../mocks/notifications/dispatch_mock.go -package=mocks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moneyflow/notifier/internal/model"
)

// ErrNoSubscriptions is what Report.Err returns for a user with no
// registered endpoints.
var ErrNoSubscriptions = errors.New("no push subscriptions")

// Registry is the subscription surface the dispatcher needs.
type Registry interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Subscription, error)
	RemoveByID(ctx context.Context, id int64) error
}

// HistoryWriter appends delivery history.
type HistoryWriter interface {
	Insert(ctx context.Context, entry model.HistoryEntry) (model.HistoryEntry, error)
}

// Deduper suppresses identical dispatches inside a time window. Claim
// returns false when key was already claimed and has not expired.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Report summarises one dispatch. Sent+Failed+Skipped == Total. A
// deduplicated dispatch attempts nothing and reports all zeros.
type Report struct {
	Sent            int  `json:"sent"`
	Failed          int  `json:"failed"`
	Removed         int  `json:"removed"`
	Total           int  `json:"total"`
	Skipped         int  `json:"skipped,omitempty"`
	NoSubscriptions bool `json:"noSubscriptions,omitempty"`
	Deduplicated    bool `json:"deduplicated,omitempty"`
}

// Err returns ErrNoSubscriptions when the user had nothing to send to.
func (r Report) Err() error {
	if r.NoSubscriptions {
		return ErrNoSubscriptions
	}
	return nil
}

// Summary returns a log-friendly one-liner.
func (r Report) Summary() string {
	return fmt.Sprintf("sent=%d failed=%d removed=%d total=%d skipped=%d",
		r.Sent, r.Failed, r.Removed, r.Total, r.Skipped)
}

// Add folds other into r.
func (r *Report) Add(other Report) {
	r.Sent += other.Sent
	r.Failed += other.Failed
	r.Removed += other.Removed
	r.Total += other.Total
	r.Skipped += other.Skipped
}

// Options tunes a Dispatcher. Zero values pick defaults; a nil Deduper
// disables content dedup.
type Options struct {
	Concurrency int
	Deduper     Deduper
	DedupWindow time.Duration
}

// Dispatcher fans a message out to all of a user's endpoints.
type Dispatcher struct {
	subs      Registry
	history   HistoryWriter
	transport Transport
	dedup     Deduper
	dedupTTL  time.Duration
	workers   int
	logger    *slog.Logger
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(subs Registry, history HistoryWriter, transport Transport, opts Options, logger *slog.Logger) *Dispatcher {
	workers := opts.Concurrency
	if workers < 1 {
		workers = defaultConcurrency
	}
	ttl := opts.DedupWindow
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Dispatcher{
		subs:      subs,
		history:   history,
		transport: transport,
		dedup:     opts.Deduper,
		dedupTTL:  ttl,
		workers:   workers,
		logger:    logger,
	}
}

// Dispatch sends msg to every subscription userID owns.
//
// A user with no subscriptions yields a zero report with NoSubscriptions
// set. The only error besides cancellation is a failure to list the
// user's subscriptions. Once ctx is cancelled, sends not yet started are
// skipped and results of in-flight sends are discarded without touching
// the registry or history.
func (d *Dispatcher) Dispatch(ctx context.Context, userID uuid.UUID, msg model.Message) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, fmt.Errorf("dispatch: %w", err)
	}

	subs, err := d.subs.ListByUser(ctx, userID)
	if err != nil {
		return Report{}, fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return Report{NoSubscriptions: true}, nil
	}

	env, err := NewEnvelope(msg)
	if err != nil {
		return Report{}, err
	}
	payload, err := env.Encode()
	if err != nil {
		return Report{}, fmt.Errorf("encode envelope: %w", err)
	}
	data, err := msg.PayloadJSON()
	if err != nil {
		return Report{}, err
	}

	key, claimed := d.claim(ctx, userID, msg)
	if key != "" && !claimed {
		d.logger.Info("Duplicate notification suppressed",
			"user_id", userID, "category", msg.Category(), "title", msg.Title())
		return Report{Deduplicated: true}, nil
	}

	report := Report{Total: len(subs)}

	workers := d.workers
	if workers > len(subs) {
		workers = len(subs)
	}

	ch := make(chan model.Subscription, len(subs))
	for _, s := range subs {
		ch <- s
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range ch {
				if ctx.Err() != nil {
					mu.Lock()
					report.Skipped++
					mu.Unlock()
					continue
				}

				status, sendErr := d.transport.Send(ctx, sub, payload)
				if ctx.Err() != nil {
					mu.Lock()
					report.Skipped++
					mu.Unlock()
					continue
				}

				outcome := Classify(status, sendErr)
				removed := false
				switch outcome {
				case Delivered:
					d.recordHistory(ctx, userID, msg, data)
				case PermanentFailure:
					removed = d.prune(ctx, sub, status, sendErr)
				default:
					d.logger.Warn("Push send failed",
						"user_id", userID, "subscription_id", sub.ID,
						"endpoint", sub.ShortEndpoint(), "status", status, "error", sendErr)
				}

				mu.Lock()
				switch outcome {
				case Delivered:
					report.Sent++
				default:
					report.Failed++
				}
				if removed {
					report.Removed++
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if key != "" && report.Sent == 0 {
		// Nothing went out, so a retry must not be suppressed.
		if err := d.dedup.Release(context.WithoutCancel(ctx), key); err != nil {
			d.logger.Warn("Release dedup key failed", "user_id", userID, "error", err)
		}
	}

	d.logger.Info("Dispatch complete",
		"user_id", userID, "category", msg.Category(), "summary", report.Summary())

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("dispatch: %w", err)
	}
	return report, nil
}

// claim returns the dedup key and whether this dispatch owns it. An empty
// key means dedup is off or unavailable.
func (d *Dispatcher) claim(ctx context.Context, userID uuid.UUID, msg model.Message) (string, bool) {
	if d.dedup == nil {
		return "", true
	}
	key := ContentKey(userID, msg)
	ok, err := d.dedup.Claim(ctx, key, d.dedupTTL)
	if err != nil {
		d.logger.Warn("Dedup unavailable, sending anyway", "user_id", userID, "error", err)
		return "", true
	}
	return key, ok
}

func (d *Dispatcher) recordHistory(ctx context.Context, userID uuid.UUID, msg model.Message, data []byte) {
	_, err := d.history.Insert(ctx, model.HistoryEntry{
		UserID:   userID,
		Title:    msg.Title(),
		Body:     msg.Body(),
		Category: msg.Category(),
		Data:     data,
	})
	if err != nil {
		d.logger.Warn("Record notification history failed",
			"user_id", userID, "category", msg.Category(), "error", err)
	}
}

func (d *Dispatcher) prune(ctx context.Context, sub model.Subscription, status int, sendErr error) bool {
	if err := d.subs.RemoveByID(ctx, sub.ID); err != nil {
		d.logger.Warn("Remove expired subscription failed",
			"subscription_id", sub.ID, "error", err)
		return false
	}
	d.logger.Info("Removed expired subscription",
		"subscription_id", sub.ID, "endpoint", sub.ShortEndpoint(), "status", status, "error", sendErr)
	return true
}

// ContentKey identifies a message by owner and content.
func ContentKey(userID uuid.UUID, msg model.Message) string {
	h := sha256.New()
	h.Write([]byte(userID.String()))
	h.Write([]byte{0})
	h.Write([]byte(msg.Category()))
	h.Write([]byte{0})
	h.Write([]byte(msg.Title()))
	h.Write([]byte{0})
	h.Write([]byte(msg.Body()))
	return "notify:dedup:" + hex.EncodeToString(h.Sum(nil))
}

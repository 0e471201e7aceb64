package notifications

//go:generate mockgen -source=sender.go -destination=../mocks/notifications/transport_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/moneyflow/notifier/internal/model"
)

// Transport delivers one encrypted payload to one endpoint. It returns the
// HTTP status the push service answered with (0 if none) and an error for
// anything other than a 2xx.
type Transport interface {
	Send(ctx context.Context, sub model.Subscription, payload []byte) (int, error)
}

// StatusError is returned when the push service answers with a non-2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("push service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("push service returned %d: %s", e.StatusCode, e.Body)
}

// --------------------------------------------------------------------------
// Web Push (VAPID)
// --------------------------------------------------------------------------

// WebPushConfig holds the VAPID identity used to sign requests.
type WebPushConfig struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
	TTL        time.Duration
	HTTPClient *http.Client
}

// WebPushSender sends through the browser vendors' push services.
type WebPushSender struct {
	cfg    WebPushConfig
	logger *slog.Logger
}

// NewWebPushSender creates a sender. Returns nil when either VAPID key is
// missing (push disabled).
func NewWebPushSender(cfg WebPushConfig, logger *slog.Logger) *WebPushSender {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebPushSender{cfg: cfg, logger: logger}
}

func (s *WebPushSender) Send(ctx context.Context, sub model.Subscription, payload []byte) (int, error) {
	if s == nil {
		return 0, errors.New("web push is not configured")
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.cfg.HTTPClient,
		Subscriber:      s.cfg.Subscriber, // webpush-go adds mailto: itself
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             int(s.cfg.TTL.Seconds()),
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return 0, fmt.Errorf("push to %s: %w", sub.ShortEndpoint(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// --------------------------------------------------------------------------
// Log-only transport
// --------------------------------------------------------------------------

// LogSender logs each send and reports it delivered. Used for dry runs.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, sub model.Subscription, payload []byte) (int, error) {
	s.Logger.Info("Push send (dry run)",
		"subscription_id", sub.ID, "endpoint", sub.ShortEndpoint(), "bytes", len(payload))
	return http.StatusCreated, nil
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, sub model.Subscription, payload []byte) (int, error)

func (f TransportFunc) Send(ctx context.Context, sub model.Subscription, payload []byte) (int, error) {
	return f(ctx, sub, payload)
}

// --------------------------------------------------------------------------
// Outcome classification
// --------------------------------------------------------------------------

// Outcome is the result of one send attempt. It is never persisted.
type Outcome int

const (
	Delivered Outcome = iota
	TransientFailure
	PermanentFailure
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case PermanentFailure:
		return "permanent_failure"
	default:
		return "transient_failure"
	}
}

// Classify maps a transport result to an Outcome. 404 and 410, as a status
// or a wrapped *StatusError, mean the endpoint is gone for good. Error text
// is never inspected: network errors embed the endpoint URL. Everything
// else is transient.
func Classify(status int, err error) Outcome {
	if status == http.StatusGone || status == http.StatusNotFound {
		return PermanentFailure
	}
	if err == nil {
		if status == 0 || (status >= 200 && status < 300) {
			return Delivered
		}
		return TransientFailure
	}

	var se *StatusError
	if errors.As(err, &se) && (se.StatusCode == http.StatusGone || se.StatusCode == http.StatusNotFound) {
		return PermanentFailure
	}
	return TransientFailure
}

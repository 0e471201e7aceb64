// Package notifications delivers a message to every push endpoint a user
// owns.
//
// Dispatch: load subscriptions → fan out sends on a bounded pool → classify
// each outcome → record history for deliveries, prune endpoints the push
// service reports gone. Transient failures are counted and left alone.
package notifications

import (
	"encoding/json"
	"fmt"

	"github.com/moneyflow/notifier/internal/model"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultConcurrency = 20
	envelopeTag        = "money-flow-notification"
	iconPath           = "/icon-192x192.png"
	defaultURL         = "/"
)

// --------------------------------------------------------------------------
// Push envelope
// --------------------------------------------------------------------------

// Action is a button shown on the notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Envelope is the JSON document the service worker receives.
type Envelope struct {
	Title              string         `json:"title"`
	Body               string         `json:"body"`
	Icon               string         `json:"icon"`
	Badge              string         `json:"badge"`
	Data               map[string]any `json:"data"`
	Actions            []Action       `json:"actions"`
	RequireInteraction bool           `json:"requireInteraction"`
	Tag                string         `json:"tag"`
}

// NewEnvelope wraps msg for the browser. Payload fields are merged into
// data alongside url and type; url and type cannot be overridden.
func NewEnvelope(msg model.Message) (Envelope, error) {
	data := map[string]any{}

	raw, err := msg.PayloadJSON()
	if err != nil {
		return Envelope{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return Envelope{}, fmt.Errorf("flatten %s payload: %w", msg.Category(), err)
		}
	}
	data["url"] = defaultURL
	data["type"] = string(msg.Category())

	return Envelope{
		Title: msg.Title(),
		Body:  msg.Body(),
		Icon:  iconPath,
		Badge: iconPath,
		Data:  data,
		Actions: []Action{
			{Action: "open", Title: "Open App", Icon: iconPath},
			{Action: "close", Title: "Close", Icon: iconPath},
		},
		RequireInteraction: true,
		Tag:                envelopeTag,
	}, nil
}

// Encode marshals the envelope.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

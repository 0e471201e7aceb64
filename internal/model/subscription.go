package model

import (
	"time"

	"github.com/google/uuid"
)

// Keys are the two secrets a browser hands out with a push subscription.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is one push endpoint owned by one user. (UserID, Endpoint)
// is unique.
type Subscription struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	Keys      Keys      `json:"keys"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShortEndpoint truncates the endpoint for logs and debug output.
func (s Subscription) ShortEndpoint() string {
	if len(s.Endpoint) <= 50 {
		return s.Endpoint
	}
	return s.Endpoint[:50] + "..."
}

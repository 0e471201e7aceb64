package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry records one successful delivery. Only ReadAt ever changes.
type HistoryEntry struct {
	ID       int64           `json:"id"`
	UserID   uuid.UUID       `json:"user_id"`
	Title    string          `json:"title"`
	Body     string          `json:"body"`
	Category Category        `json:"type"`
	Data     json.RawMessage `json:"data,omitempty"`
	SentAt   time.Time       `json:"sent_at"`
	ReadAt   *time.Time      `json:"read_at,omitempty"`
}

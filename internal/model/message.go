package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidMessage is returned by NewMessage for malformed input.
var ErrInvalidMessage = errors.New("invalid notification message")

// Payload is the structured data attached to a message. Each scheduled
// category has its own variant carrying only the fields its template uses.
type Payload interface {
	Category() Category
}

// ExpenseReminderPayload accompanies bills due today or tomorrow.
type ExpenseReminderPayload struct {
	ExpenseCount int             `json:"expenseCount"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	DueDate      string          `json:"dueDate"`
}

func (ExpenseReminderPayload) Category() Category { return ExpenseReminder }

// BudgetAlertPayload carries the month-to-date spend ratio.
type BudgetAlertPayload struct {
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	Percentage    decimal.Decimal `json:"percentage"`
}

func (BudgetAlertPayload) Category() Category { return BudgetAlert }

// WeeklyReportPayload summarises one calendar week.
type WeeklyReportPayload struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	Balance       decimal.Decimal `json:"balance"`
	WeekStart     string          `json:"weekStart"`
	WeekEnd       string          `json:"weekEnd"`
}

func (WeeklyReportPayload) Category() Category { return WeeklyReport }

// MonthlyReportPayload summarises one calendar month.
type MonthlyReportPayload struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	Balance       decimal.Decimal `json:"balance"`
	MonthStart    string          `json:"monthStart"`
	MonthEnd      string          `json:"monthEnd"`
}

func (MonthlyReportPayload) Category() Category { return MonthlyReport }

// PaymentConfirmationPayload is attached to "payment recorded" events.
type PaymentConfirmationPayload struct {
	ExpenseID    int64     `json:"expenseId,omitempty"`
	ExpenseTitle string    `json:"expenseTitle"`
	Amount       string    `json:"amount"`
	PaidAt       time.Time `json:"paidAt"`
}

func (PaymentConfirmationPayload) Category() Category { return PaymentConfirmation }

// CustomPayload is free-form data supplied by ad-hoc senders.
type CustomPayload struct {
	Tag  Category
	Data map[string]any
}

func (p CustomPayload) Category() Category { return p.Tag }

// MarshalJSON flattens the custom data.
func (p CustomPayload) MarshalJSON() ([]byte, error) {
	if p.Data == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Data)
}

// Message is an immutable notification. Build it with NewMessage.
type Message struct {
	title    string
	body     string
	category Category
	payload  Payload
}

// NewMessage validates and builds a message. The payload may be nil; when
// set, its category must match.
func NewMessage(title, body string, category Category, payload Payload) (Message, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" {
		return Message{}, fmt.Errorf("%w: title is required", ErrInvalidMessage)
	}
	if body == "" {
		return Message{}, fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	if !category.Valid() {
		return Message{}, fmt.Errorf("%w: %w: %q", ErrInvalidMessage, ErrInvalidCategory, category)
	}
	if payload != nil && payload.Category() != category {
		return Message{}, fmt.Errorf("%w: payload for %q attached to %q",
			ErrInvalidMessage, payload.Category(), category)
	}
	return Message{title: title, body: body, category: category, payload: payload}, nil
}

func (m Message) Title() string      { return m.title }
func (m Message) Body() string       { return m.body }
func (m Message) Category() Category { return m.category }
func (m Message) Payload() Payload   { return m.payload }

// PayloadJSON encodes the payload, or returns nil when there is none.
func (m Message) PayloadJSON() (json.RawMessage, error) {
	if m.payload == nil {
		return nil, nil
	}
	b, err := json.Marshal(m.payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", m.category, err)
	}
	return b, nil
}

package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScheduled(t *testing.T) {
	tests := []struct {
		in      string
		want    []Category
		wantErr bool
	}{
		{in: "all", want: Scheduled},
		{in: "expense_reminders", want: []Category{ExpenseReminder}},
		{in: "budget_alert", want: []Category{BudgetAlert}},
		{in: "weekly_reports, monthly_reports, weekly_report", want: []Category{WeeklyReport, MonthlyReport}},
		{in: "payment_confirmation", wantErr: true},
		{in: "nonsense", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScheduled(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidCategory), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences(uuid.New())
	assert.True(t, p.Enabled(ExpenseReminder))
	assert.True(t, p.Enabled(BudgetAlert))
	assert.True(t, p.Enabled(PaymentConfirmation))
	assert.True(t, p.Enabled(MonthlyReport))
	assert.False(t, p.Enabled(WeeklyReport))
}

func TestPreferencesPatchKeepsUnsetFields(t *testing.T) {
	off, on := false, true
	p := DefaultPreferences(uuid.New())
	got := PreferencesPatch{BudgetAlerts: &off, WeeklyReports: &on}.Apply(p)

	assert.False(t, got.BudgetAlerts)
	assert.True(t, got.WeeklyReports)
	assert.True(t, got.ExpenseReminders)
	assert.True(t, got.PaymentConfirmations)
	assert.True(t, got.MonthlyReports)
}

func TestNewMessageValidation(t *testing.T) {
	_, err := NewMessage("", "body", BudgetAlert, nil)
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = NewMessage("title", "  ", BudgetAlert, nil)
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = NewMessage("title", "body", Category("bogus"), nil)
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = NewMessage("title", "body", BudgetAlert, ExpenseReminderPayload{})
	assert.ErrorIs(t, err, ErrInvalidMessage)

	msg, err := NewMessage("Budget Alert", "body", BudgetAlert, BudgetAlertPayload{
		TotalExpenses: decimal.RequireFromString("801"),
		TotalIncome:   decimal.RequireFromString("1000"),
		Percentage:    decimal.RequireFromString("80.1"),
	})
	require.NoError(t, err)
	assert.Equal(t, BudgetAlert, msg.Category())

	raw, err := msg.PayloadJSON()
	require.NoError(t, err)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "80.1", decoded["percentage"])
}

func TestCustomPayloadFlattens(t *testing.T) {
	msg, err := NewMessage("Hi", "There", PaymentConfirmation, CustomPayload{
		Tag:  PaymentConfirmation,
		Data: map[string]any{"source": "manual"},
	})
	require.NoError(t, err)

	raw, err := msg.PayloadJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"manual"}`, string(raw))
}

func TestShortEndpoint(t *testing.T) {
	long := Subscription{Endpoint: "https://fcm.googleapis.com/fcm/send/abcdefghijklmnopqrstuvwxyz0123456789"}
	assert.Len(t, long.ShortEndpoint(), 53)
	short := Subscription{Endpoint: "https://push.example/1"}
	assert.Equal(t, short.Endpoint, short.ShortEndpoint())
}

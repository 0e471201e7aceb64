package model

import (
	"time"

	"github.com/google/uuid"
)

// Preferences gates each alert category for one user.
type Preferences struct {
	UserID               uuid.UUID `json:"user_id"`
	ExpenseReminders     bool      `json:"expenseReminders"`
	BudgetAlerts         bool      `json:"budgetAlerts"`
	PaymentConfirmations bool      `json:"paymentConfirmations"`
	WeeklyReports        bool      `json:"weeklyReports"`
	MonthlyReports       bool      `json:"monthlyReports"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DefaultPreferences returns the flags a user starts with. Everything is on
// except the weekly report.
func DefaultPreferences(userID uuid.UUID) Preferences {
	return Preferences{
		UserID:               userID,
		ExpenseReminders:     true,
		BudgetAlerts:         true,
		PaymentConfirmations: true,
		WeeklyReports:        false,
		MonthlyReports:       true,
	}
}

// Enabled reports whether the flag for c is set.
func (p Preferences) Enabled(c Category) bool {
	switch c {
	case ExpenseReminder:
		return p.ExpenseReminders
	case BudgetAlert:
		return p.BudgetAlerts
	case PaymentConfirmation:
		return p.PaymentConfirmations
	case WeeklyReport:
		return p.WeeklyReports
	case MonthlyReport:
		return p.MonthlyReports
	}
	return false
}

// PreferencesPatch is a partial update; nil fields keep their prior value.
type PreferencesPatch struct {
	ExpenseReminders     *bool `json:"expenseReminders,omitempty"`
	BudgetAlerts         *bool `json:"budgetAlerts,omitempty"`
	PaymentConfirmations *bool `json:"paymentConfirmations,omitempty"`
	WeeklyReports        *bool `json:"weeklyReports,omitempty"`
	MonthlyReports       *bool `json:"monthlyReports,omitempty"`
}

// Apply merges the patch into p and returns the result.
func (pp PreferencesPatch) Apply(p Preferences) Preferences {
	if pp.ExpenseReminders != nil {
		p.ExpenseReminders = *pp.ExpenseReminders
	}
	if pp.BudgetAlerts != nil {
		p.BudgetAlerts = *pp.BudgetAlerts
	}
	if pp.PaymentConfirmations != nil {
		p.PaymentConfirmations = *pp.PaymentConfirmations
	}
	if pp.WeeklyReports != nil {
		p.WeeklyReports = *pp.WeeklyReports
	}
	if pp.MonthlyReports != nil {
		p.MonthlyReports = *pp.MonthlyReports
	}
	return p
}

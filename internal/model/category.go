// Package model holds the value types shared by the notification packages:
// alert categories, push subscriptions, preferences, messages and delivery
// history entries.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Category tags a notification with the alert class that produced it.
type Category string

const (
	ExpenseReminder     Category = "expense_reminder"
	BudgetAlert         Category = "budget_alert"
	WeeklyReport        Category = "weekly_report"
	MonthlyReport       Category = "monthly_report"
	PaymentConfirmation Category = "payment_confirmation"
)

// ErrInvalidCategory is returned when a category name is not recognised.
var ErrInvalidCategory = errors.New("invalid notification category")

// Scheduled lists the categories the alert generator evaluates on "all".
// Payment confirmations are event-triggered and never scheduled.
var Scheduled = []Category{ExpenseReminder, BudgetAlert, WeeklyReport, MonthlyReport}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case ExpenseReminder, BudgetAlert, WeeklyReport, MonthlyReport, PaymentConfirmation:
		return true
	}
	return false
}

// IsScheduled reports whether the generator may evaluate c.
func (c Category) IsScheduled() bool {
	for _, s := range Scheduled {
		if s == c {
			return true
		}
	}
	return false
}

// triggerAliases maps the plural names accepted by the cron trigger.
var triggerAliases = map[string]Category{
	"expense_reminders": ExpenseReminder,
	"budget_alerts":     BudgetAlert,
	"weekly_reports":    WeeklyReport,
	"monthly_reports":   MonthlyReport,
}

// ParseCategory accepts either the category tag or its plural trigger alias.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := triggerAliases[s]; ok {
		return c, nil
	}
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// ParseScheduled resolves a trigger request ("all", a category, or a
// comma-separated list) into a de-duplicated set of scheduled categories.
func ParseScheduled(s string) ([]Category, error) {
	if strings.TrimSpace(strings.ToLower(s)) == "all" {
		return append([]Category(nil), Scheduled...), nil
	}

	var out []Category
	seen := make(map[Category]bool)
	for _, part := range strings.Split(s, ",") {
		c, err := ParseCategory(part)
		if err != nil {
			return nil, err
		}
		if !c.IsScheduled() {
			return nil, fmt.Errorf("%w: %q is not a scheduled category", ErrInvalidCategory, c)
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

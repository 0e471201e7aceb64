// Package alerts decides which scheduled alerts fire for a user and runs
// them across every eligible user.
//
// Calculator is pure: given "now" and the records the store returned, it
// computes windows, totals and the message. Generator does the I/O.
package alerts

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moneyflow/notifier/internal/model"
	"github.com/moneyflow/notifier/internal/records"
)

const dateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// Calculator holds the locale settings windows are computed in.
type Calculator struct {
	Location  *time.Location
	WeekStart time.Weekday
	Threshold decimal.Decimal
}

// NewCalculator parses threshold (a fraction such as "0.8").
func NewCalculator(loc *time.Location, weekStart time.Weekday, threshold string) (Calculator, error) {
	if loc == nil {
		loc = time.UTC
	}
	th, err := decimal.NewFromString(threshold)
	if err != nil {
		return Calculator{}, fmt.Errorf("budget threshold %q: %w", threshold, err)
	}
	if !th.IsPositive() {
		return Calculator{}, fmt.Errorf("budget threshold %q must be positive", threshold)
	}
	return Calculator{Location: loc, WeekStart: weekStart, Threshold: th}, nil
}

// DefaultCalculator uses UTC, Sunday-start weeks and an 80% threshold.
func DefaultCalculator() Calculator {
	return Calculator{Location: time.UTC, WeekStart: time.Sunday, Threshold: decimal.RequireFromString("0.8")}
}

func (c Calculator) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Calculator) midnight(now time.Time) time.Time {
	t := now.In(c.loc())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc())
}

// ReminderWindow is [today 00:00, tomorrow 00:00], both ends included.
func (c Calculator) ReminderWindow(now time.Time) records.Range {
	today := c.midnight(now)
	return records.Range{Start: today, End: today.AddDate(0, 0, 1)}
}

// WeekWindow is the calendar week containing now.
func (c Calculator) WeekWindow(now time.Time) records.Range {
	today := c.midnight(now)
	offset := (int(today.Weekday()) - int(c.WeekStart) + 7) % 7
	start := today.AddDate(0, 0, -offset)
	return records.Range{Start: start, End: start.AddDate(0, 0, 7).Add(-time.Nanosecond)}
}

// MonthWindow is the calendar month containing now.
func (c Calculator) MonthWindow(now time.Time) records.Range {
	t := now.In(c.loc())
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, c.loc())
	return records.Range{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// ExpenseReminder fires when at least one unpaid expense is due inside the
// reminder window.
func (c Calculator) ExpenseReminder(now time.Time, due []records.Expense) (model.Message, bool, error) {
	window := c.ReminderWindow(now)

	count := 0
	total := decimal.Zero
	for _, e := range due {
		if e.DueDate == nil || !e.Unpaid() || !window.Contains(*e.DueDate) {
			continue
		}
		count++
		total = total.Add(e.Amount)
	}
	if count == 0 {
		return model.Message{}, false, nil
	}

	msg, err := model.NewMessage(
		"Upcoming Bills Due Tomorrow",
		fmt.Sprintf("You have %d bill(s) due tomorrow totaling %s", count, money(total)),
		model.ExpenseReminder,
		model.ExpenseReminderPayload{
			ExpenseCount: count,
			TotalAmount:  total,
			DueDate:      window.End.Format(dateLayout),
		},
	)
	return msg, err == nil, err
}

// BudgetAlert fires when expenses exceed Threshold of income. No income
// never fires.
func (c Calculator) BudgetAlert(expenses []records.Expense, incomes []records.Income) (model.Message, bool, error) {
	spent := records.SumExpenses(expenses)
	earned := records.SumIncomes(incomes)

	if !earned.IsPositive() || !spent.GreaterThan(earned.Mul(c.Threshold)) {
		return model.Message{}, false, nil
	}

	pct := spent.Mul(hundred).Div(earned)
	msg, err := model.NewMessage(
		"Budget Alert",
		fmt.Sprintf("You've spent %s%% of your monthly income. Consider reviewing your expenses.", pct.StringFixed(1)),
		model.BudgetAlert,
		model.BudgetAlertPayload{
			TotalExpenses: spent,
			TotalIncome:   earned,
			Percentage:    pct.Round(2),
		},
	)
	return msg, err == nil, err
}

// WeeklyReport always produces a summary, even for an empty week.
func (c Calculator) WeeklyReport(now time.Time, expenses []records.Expense, incomes []records.Income) (model.Message, error) {
	w := c.WeekWindow(now)
	in, out, bal := totals(expenses, incomes)
	return model.NewMessage(
		"Weekly Financial Summary",
		fmt.Sprintf("This week: Income %s, Expenses %s, Balance %s", money(in), money(out), money(bal)),
		model.WeeklyReport,
		model.WeeklyReportPayload{
			TotalIncome:   in,
			TotalExpenses: out,
			Balance:       bal,
			WeekStart:     w.Start.Format(dateLayout),
			WeekEnd:       w.End.Format(dateLayout),
		},
	)
}

// MonthlyReport always produces a summary, even for an empty month.
func (c Calculator) MonthlyReport(now time.Time, expenses []records.Expense, incomes []records.Income) (model.Message, error) {
	m := c.MonthWindow(now)
	in, out, bal := totals(expenses, incomes)
	return model.NewMessage(
		"Monthly Financial Summary",
		fmt.Sprintf("This month: Income %s, Expenses %s, Balance %s", money(in), money(out), money(bal)),
		model.MonthlyReport,
		model.MonthlyReportPayload{
			TotalIncome:   in,
			TotalExpenses: out,
			Balance:       bal,
			MonthStart:    m.Start.Format(dateLayout),
			MonthEnd:      m.End.Format(dateLayout),
		},
	)
}

// PaymentConfirmation is sent when an expense is marked paid. amount is
// shown as given.
func PaymentConfirmation(expenseID int64, title, amount string, paidAt time.Time) (model.Message, error) {
	if d, err := decimal.NewFromString(amount); err == nil {
		amount = d.StringFixed(2)
	}
	return model.NewMessage(
		"Payment Confirmed",
		fmt.Sprintf(`Payment of $%s for "%s" has been recorded.`, amount, title),
		model.PaymentConfirmation,
		model.PaymentConfirmationPayload{
			ExpenseID:    expenseID,
			ExpenseTitle: title,
			Amount:       amount,
			PaidAt:       paidAt,
		},
	)
}

func totals(expenses []records.Expense, incomes []records.Income) (income, spent, balance decimal.Decimal) {
	income = records.SumIncomes(incomes)
	spent = records.SumExpenses(expenses)
	return income, spent, income.Sub(spent)
}

// money renders an amount for display. Only here is rounding applied.
func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/store"
)

// CategoryTotal is a settled total attributed to one category. Entries
// without a category are grouped under an empty name.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// DailyBalance is one day of the running-balance series: the day's settled
// income and expense and the balance carried through the end of that day.
type DailyBalance struct {
	Date    time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// Summary aggregates a tenant's financial position over a period.
type Summary struct {
	TotalBalance        decimal.Decimal // current balance across active accounts
	IncomeTotal         decimal.Decimal // settled income in the period
	ExpenseTotal        decimal.Decimal // settled expense in the period
	IncomeByCategory    []CategoryTotal
	ExpenseByCategory   []CategoryTotal
	UpcomingReceivables decimal.Decimal // pending income due today or later
	UpcomingPayables    decimal.Decimal // pending expense due today or later
	OverduePayables     decimal.Decimal // pending expense past due
	Daily               []DailyBalance
}

// Summarize computes the period summary. The daily series starts from an
// opening balance (initial balances of every account, active or not,
// created on or before the period start, adjusted by every settled entry
// strictly before it) and carries each day's settled income and expense
// forward. All arithmetic is exact decimal.
func (e *Engine) Summarize(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) (*Summary, error) {
	if periodEnd.Before(periodStart) {
		return nil, fmt.Errorf("%w: period end precedes period start", ledger.ErrValidation)
	}

	q := e.conn.DB()
	summary := &Summary{}

	accounts, err := store.ListAccounts(ctx, q, tenantID, true)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		summary.TotalBalance = summary.TotalBalance.Add(account.CurrentBalance)
	}

	// Settled activity inside the period, grouped by category.
	inPeriod, err := store.SettledBetween(ctx, q, tenantID, &periodStart, &periodEnd)
	if err != nil {
		return nil, err
	}
	incomeByCat := map[string]decimal.Decimal{}
	expenseByCat := map[string]decimal.Decimal{}
	incomeByDay := map[string]decimal.Decimal{}
	expenseByDay := map[string]decimal.Decimal{}
	for _, entry := range inPeriod {
		day := ledger.FormatDate(entry.PaymentDate)
		switch entry.Kind {
		case ledger.Income:
			summary.IncomeTotal = summary.IncomeTotal.Add(entry.Amount)
			incomeByCat[entry.CategoryName] = incomeByCat[entry.CategoryName].Add(entry.Amount)
			incomeByDay[day] = incomeByDay[day].Add(entry.Amount)
		case ledger.Expense:
			summary.ExpenseTotal = summary.ExpenseTotal.Add(entry.Amount)
			expenseByCat[entry.CategoryName] = expenseByCat[entry.CategoryName].Add(entry.Amount)
			expenseByDay[day] = expenseByDay[day].Add(entry.Amount)
		}
	}
	summary.IncomeByCategory = sortedTotals(incomeByCat)
	summary.ExpenseByCategory = sortedTotals(expenseByCat)

	// Outstanding receivables/payables.
	today := e.today()
	pending, err := store.PendingEntries(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	for _, entry := range pending {
		switch {
		case entry.Kind == ledger.Income && !entry.DueDate.Before(today):
			summary.UpcomingReceivables = summary.UpcomingReceivables.Add(entry.Amount)
		case entry.Kind == ledger.Expense && !entry.DueDate.Before(today):
			summary.UpcomingPayables = summary.UpcomingPayables.Add(entry.Amount)
		case entry.Kind == ledger.Expense:
			summary.OverduePayables = summary.OverduePayables.Add(entry.Amount)
		}
	}

	// Opening balance: initial balances of accounts existing at the period
	// start, plus all settled activity strictly before it. Deactivated
	// accounts count here: their settled history is still in the series.
	allAccounts, err := store.ListAccounts(ctx, q, tenantID, false)
	if err != nil {
		return nil, err
	}
	opening := decimal.Zero
	for _, account := range allAccounts {
		created := time.Date(account.CreatedAt.Year(), account.CreatedAt.Month(), account.CreatedAt.Day(), 0, 0, 0, 0, time.UTC)
		if !created.After(periodStart) {
			opening = opening.Add(account.InitialBalance)
		}
	}
	dayBefore := periodStart.AddDate(0, 0, -1)
	before, err := store.SettledBetween(ctx, q, tenantID, nil, &dayBefore)
	if err != nil {
		return nil, err
	}
	for _, entry := range before {
		if entry.Kind == ledger.Income {
			opening = opening.Add(entry.Amount)
		} else {
			opening = opening.Sub(entry.Amount)
		}
	}

	running := opening
	for day := periodStart; !day.After(periodEnd); day = day.AddDate(0, 0, 1) {
		key := ledger.FormatDate(day)
		income := incomeByDay[key]
		expense := expenseByDay[key]
		running = running.Add(income).Sub(expense)
		summary.Daily = append(summary.Daily, DailyBalance{
			Date:    day,
			Income:  income,
			Expense: expense,
			Balance: running,
		})
	}

	return summary, nil
}

func sortedTotals(byCategory map[string]decimal.Decimal) []CategoryTotal {
	totals := make([]CategoryTotal, 0, len(byCategory))
	for name, total := range byCategory {
		totals = append(totals, CategoryTotal{Category: name, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Category < totals[j].Category })
	return totals
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
)

// SettledEntry is one settled income/expense row used by the summary
// aggregation. Transfers are excluded: they net to zero across a tenant's
// accounts and carry no category.
type SettledEntry struct {
	Kind         ledger.TransactionKind
	Amount       decimal.Decimal
	PaymentDate  time.Time
	CategoryName string
}

// SettledBetween retrieves settled (paid) income and expense entries whose
// payment date falls in [from, to]. A nil bound leaves that side open.
// Amounts are aggregated by the engine in exact decimal arithmetic, never
// in SQL floats.
func SettledBetween(ctx context.Context, q db.Querier, tenantID uuid.UUID, from, to *time.Time) ([]SettledEntry, error) {
	query := `
		SELECT t.kind, t.amount, t.payment_date, COALESCE(c.name, '')
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.tenant_id = ? AND t.status = ? AND t.payment_date IS NOT NULL
		  AND t.kind IN (?, ?)
	`
	args := []any{tenantID.String(), string(ledger.StatusPaid), string(ledger.Income), string(ledger.Expense)}
	if from != nil {
		query += ` AND t.payment_date >= ?`
		args = append(args, ledger.FormatDate(*from))
	}
	if to != nil {
		query += ` AND t.payment_date <= ?`
		args = append(args, ledger.FormatDate(*to))
	}
	query += ` ORDER BY t.payment_date`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settled entries: %w", err)
	}
	defer rows.Close()

	var entries []SettledEntry
	for rows.Next() {
		var (
			entry              SettledEntry
			kindStr, amountStr string
			paymentStr         string
		)
		if err := rows.Scan(&kindStr, &amountStr, &paymentStr, &entry.CategoryName); err != nil {
			return nil, fmt.Errorf("failed to scan settled entry: %w", err)
		}
		entry.Kind = ledger.TransactionKind(kindStr)
		if entry.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("invalid amount: %w", err)
		}
		if entry.PaymentDate, err = ledger.ParseDate(paymentStr); err != nil {
			return nil, fmt.Errorf("invalid payment date: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// PendingEntry is one open (pending) income/expense row used by the
// receivables/payables aggregation.
type PendingEntry struct {
	Kind    ledger.TransactionKind
	Amount  decimal.Decimal
	DueDate time.Time
}

// PendingEntries retrieves all pending income and expense entries of a
// tenant, ordered by due date.
func PendingEntries(ctx context.Context, q db.Querier, tenantID uuid.UUID) ([]PendingEntry, error) {
	query := `
		SELECT kind, amount, due_date
		FROM transactions
		WHERE tenant_id = ? AND status = ? AND kind IN (?, ?)
		ORDER BY due_date
	`
	rows, err := q.QueryContext(ctx, query,
		tenantID.String(), string(ledger.StatusPending), string(ledger.Income), string(ledger.Expense))
	if err != nil {
		return nil, fmt.Errorf("failed to query pending entries: %w", err)
	}
	defer rows.Close()

	var entries []PendingEntry
	for rows.Next() {
		var (
			entry              PendingEntry
			kindStr, amountStr string
			dueStr             string
		)
		if err := rows.Scan(&kindStr, &amountStr, &dueStr); err != nil {
			return nil, fmt.Errorf("failed to scan pending entry: %w", err)
		}
		entry.Kind = ledger.TransactionKind(kindStr)
		if entry.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("invalid amount: %w", err)
		}
		if entry.DueDate, err = ledger.ParseDate(dueStr); err != nil {
			return nil, fmt.Errorf("invalid due date: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

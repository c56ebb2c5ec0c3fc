package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
)

// openTestDB opens a throwaway database under t.TempDir.
func openTestDB(t *testing.T) *db.Connection {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// insertTx is a shorthand for planting a transaction row referencing the
// given account, to exercise the soft/hard delete rule.
func insertTx(t *testing.T, conn *db.Connection, tenantID uuid.UUID, source uuid.UUID, mutate func(*ledger.Transaction)) *ledger.Transaction {
	t.Helper()
	tx := &ledger.Transaction{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Kind:        ledger.Expense,
		Description: "test expense",
		Amount:      dec("10.00"),
		IssueDate:   date(2025, time.January, 1),
		DueDate:     date(2025, time.January, 10),
		Status:      ledger.StatusPending,
		Recurrence:  ledger.RecurNone,
		SourceID:    source,
	}
	if mutate != nil {
		mutate(tx)
	}
	require.NoError(t, InsertTransaction(context.Background(), conn.DB(), tx))
	return tx
}

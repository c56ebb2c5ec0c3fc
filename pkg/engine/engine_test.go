package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/store"
)

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

type fixture struct {
	engine  *Engine
	conn    *db.Connection
	tenant  uuid.UUID
	cash    *ledger.Account
	savings *ledger.Account
}

// newFixture opens a throwaway database with two accounts and pins the
// engine clock to 2025-06-15.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	e := New(conn)
	e.now = func() time.Time { return date(2025, time.June, 15) }

	ctx := context.Background()
	tenant := uuid.New()
	cash, err := store.CreateAccount(ctx, conn.DB(), tenant, store.CreateAccountParams{
		Name: "Cash", Kind: ledger.AccountCash, InitialBalance: dec("500.00"),
	})
	require.NoError(t, err)
	savings, err := store.CreateAccount(ctx, conn.DB(), tenant, store.CreateAccountParams{
		Name: "Savings", Kind: ledger.AccountSavings, InitialBalance: dec("0.00"),
	})
	require.NoError(t, err)

	return &fixture{engine: e, conn: conn, tenant: tenant, cash: cash, savings: savings}
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	account, err := store.GetAccount(context.Background(), f.conn.DB(), f.tenant, id)
	require.NoError(t, err)
	return account.CurrentBalance
}

// checkInvariant recomputes every account balance from scratch and
// compares it against the incrementally maintained one.
func (f *fixture) checkInvariant(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	accounts, err := store.ListAccounts(ctx, f.conn.DB(), f.tenant, false)
	require.NoError(t, err)

	rows, _, err := store.ListTransactions(ctx, f.conn.DB(), f.tenant, store.TransactionFilter{}, store.Page{Limit: 10000}, "", false)
	require.NoError(t, err)

	for _, account := range accounts {
		expected := account.InitialBalance
		for _, row := range rows {
			if !row.Settled() {
				continue
			}
			for _, effect := range ledger.TransactionEffects(&row.Transaction) {
				if effect.AccountID == account.ID {
					expected = expected.Add(effect.Delta)
				}
			}
		}
		assert.True(t, account.CurrentBalance.Equal(expected),
			"account %s: stored %s, derived %s", account.Name, account.CurrentBalance, expected)
	}
}

func paidInput(f *fixture, kind ledger.TransactionKind, amount string) CreateInput {
	paid := date(2025, time.June, 1)
	in := CreateInput{
		Kind:        kind,
		Description: "entry",
		Amount:      dec(amount),
		IssueDate:   date(2025, time.June, 1),
		DueDate:     date(2025, time.June, 10),
		Status:      ledger.StatusPaid,
		PaymentDate: &paid,
		SourceID:    f.cash.ID,
		Actor:       "tester",
	}
	if kind == ledger.Transfer {
		in.DestinationID = &f.savings.ID
	}
	return in
}

func TestCreateSettledIncome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, children, err := f.engine.Create(ctx, f.tenant, paidInput(f, ledger.Income, "150.00"))
	require.NoError(t, err)
	assert.Empty(t, children)
	assert.True(t, root.Settled())

	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("650.00")))
	f.checkInvariant(t)
}

func TestCreatePendingHasNoBalanceEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := paidInput(f, ledger.Expense, "99.00")
	in.Status = ledger.StatusPending
	in.PaymentDate = nil

	_, _, err := f.engine.Create(ctx, f.tenant, in)
	require.NoError(t, err)

	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("500.00")))
	f.checkInvariant(t)
}

func TestCreateSettledTransferMovesBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.engine.Create(ctx, f.tenant, paidInput(f, ledger.Transfer, "100.00"))
	require.NoError(t, err)

	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("400.00")))
	assert.True(t, f.balance(t, f.savings.ID).Equal(dec("100.00")))
	f.checkInvariant(t)
}

func TestCreateTransferValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := paidInput(f, ledger.Transfer, "10.00")
	in.DestinationID = nil
	_, _, err := f.engine.Create(ctx, f.tenant, in)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	in = paidInput(f, ledger.Transfer, "10.00")
	in.DestinationID = &f.cash.ID // same as source
	_, _, err = f.engine.Create(ctx, f.tenant, in)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	// Balances untouched by rejected operations.
	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("500.00")))
	assert.True(t, f.balance(t, f.savings.ID).Equal(dec("0.00")))
}

func TestCreateRejectsCrossTenantAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := paidInput(f, ledger.Income, "10.00")
	_, _, err := f.engine.Create(ctx, uuid.New(), in)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestCreateCategoryKindMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	incomeCat, err := store.CreateCategory(ctx, f.conn.DB(), f.tenant, store.CreateCategoryParams{
		Name: "Salary", Kind: ledger.CategoryIncome,
	})
	require.NoError(t, err)

	in := paidInput(f, ledger.Expense, "10.00")
	in.CategoryID = &incomeCat.ID
	_, _, err = f.engine.Create(ctx, f.tenant, in)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	// Transfers never carry a category.
	either, err := store.CreateCategory(ctx, f.conn.DB(), f.tenant, store.CreateCategoryParams{
		Name: "Misc", Kind: ledger.CategoryEither,
	})
	require.NoError(t, err)
	in = paidInput(f, ledger.Transfer, "10.00")
	in.CategoryID = &either.ID
	_, _, err = f.engine.Create(ctx, f.tenant, in)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestCreateRecurringSeries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := paidInput(f, ledger.Expense, "50.00")
	in.Status = ledger.StatusPending
	in.PaymentDate = nil
	in.Description = "gym"
	in.DueDate = date(2025, time.January, 31)
	in.Recurrence = ledger.RecurMonthly
	in.Installments = 3

	root, children, err := f.engine.Create(ctx, f.tenant, in)
	require.NoError(t, err)

	assert.Equal(t, "gym (1/4)", root.Description)
	require.Len(t, children, 3)

	wantDue := []time.Time{
		date(2025, time.March, 3),  // Jan 31 + 1 month, normalized
		date(2025, time.March, 31), // + 2 months
		date(2025, time.May, 1),    // + 3 months, normalized
	}
	for i, child := range children {
		assert.Equal(t, ledger.StatusPending, child.Status)
		assert.Nil(t, child.PaymentDate)
		assert.Equal(t, ledger.RecurNone, child.Recurrence)
		require.NotNil(t, child.ParentID)
		assert.Equal(t, root.ID, *child.ParentID)
		assert.True(t, child.DueDate.Equal(wantDue[i]), "child %d due %s", i, child.DueDate)
	}
	assert.Equal(t, "gym (2/4)", children[0].Description)
	assert.Equal(t, "gym (3/4)", children[1].Description)
	assert.Equal(t, "gym (4/4)", children[2].Description)

	// Persisted, not just returned.
	stored, err := store.ListChildren(ctx, f.conn.DB(), f.tenant, root.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestCreateRecurringDefaultsToTwelve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := paidInput(f, ledger.Expense, "10.00")
	in.Status = ledger.StatusPending
	in.PaymentDate = nil
	in.Recurrence = ledger.RecurWeekly

	root, children, err := f.engine.Create(ctx, f.tenant, in)
	require.NoError(t, err)
	assert.Len(t, children, ledger.DefaultInstallments)
	assert.Equal(t, "entry (1/13)", root.Description)
}

func TestUpdateNoopKeepsBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, _, err := f.engine.Create(ctx, f.tenant, paidInput(f, ledger.Income, "150.00"))
	require.NoError(t, err)

	got, err := f.engine.Update(ctx, f.tenant, root.ID, UpdateInput{Actor: "tester"})
	require.NoError(t, err)
	assert.True(t, got.Settled())

	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("650.00")))
	f.checkInvariant(t)
}

func TestUpdateSettledAmountReconcilesTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, _, err := f.engine.Create(ctx, f.tenant, paidInput(f, ledger.Expense, "100.00"))
	require.NoError(t, err)
	require.True(t, f.balance(t, f.cash.ID).Equal(dec("400.00")))

	newAmount := dec("60.00")
	_, err = f.engine.Update(ctx, f.tenant, root.ID, UpdateInput{Amount: &newAmount, Actor: "tester"})
	require.NoError(t, err)

	// Old -100 undone, new -60 applied.
	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("440.00")))
	f.checkInvariant(t)
}

func TestUpdateSettledSourceAccountMovesEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, _, err := f.engine.Create(ctx, f.tenant, paidInput(f, ledger.Income, "80.00"))
	require.NoError(t, err)

	_, err = f.engine.Update(ctx, f.tenant, root.ID, UpdateInput{SourceID: &f.savings.ID, Actor: "tester"})
	require.NoError(t, err)

	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("500.00")))
	assert.True(t, f.balance(t, f.savings.ID).Equal(dec("80.00")))
	f.checkInvariant(t)
}

func TestUpdateStatusGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := paidInput(f, ledger.Expense, "10.00")
	in.Status = ledger.StatusPending
	in.PaymentDate = nil
	root, _, err := f.engine.Create(ctx, f.tenant, in)
	require.NoError(t, err)

	cancelled := ledger.StatusCancelled
	_, err = f.engine.Update(ctx, f.tenant, root.ID, UpdateInput{Status: &cancelled, Actor: "tester"})
	require.NoError(t, err)

	paid := ledger.StatusPaid
	when := date(2025, time.June, 2)
	_, err = f.engine.Update(ctx, f.tenant, root.ID, UpdateInput{
		Status: &paid, SetPaymentDate: true, PaymentDate: &when, Actor: "tester",
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidStatusTransition)
	f.checkInvariant(t)
}

func TestPayAndReverse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := paidInput(f, ledger.Expense, "120.00")
	in.Status = ledger.StatusPending
	in.PaymentDate = nil
	root, _, err := f.engine.Create(ctx, f.tenant, in)
	require.NoError(t, err)

	// Pay with default payment date (the pinned clock).
	got, err := f.engine.SetPaymentStatus(ctx, f.tenant, root.ID, PaymentInput{Pay: true, Actor: "tester"})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, got.Status)
	require.NotNil(t, got.PaymentDate)
	assert.True(t, got.PaymentDate.Equal(date(2025, time.June, 15)))
	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("380.00")))

	// Paying again is a no-op.
	_, err = f.engine.SetPaymentStatus(ctx, f.tenant, root.ID, PaymentInput{Pay: true, Actor: "tester"})
	require.NoError(t, err)
	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("380.00")))

	// Reverse undoes the effect but keeps the payment date.
	got, err = f.engine.SetPaymentStatus(ctx, f.tenant, root.ID, PaymentInput{Pay: false, Actor: "tester"})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusReversed, got.Status)
	assert.NotNil(t, got.PaymentDate)
	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("500.00")))

	// Reversing a reversed transaction is rejected.
	_, err = f.engine.SetPaymentStatus(ctx, f.tenant, root.ID, PaymentInput{Pay: false, Actor: "tester"})
	assert.ErrorIs(t, err, ledger.ErrInvalidStatusTransition)
	f.checkInvariant(t)
}

func TestPayWithAmountRestatement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := paidInput(f, ledger.Income, "100.00")
	in.Status = ledger.StatusPending
	in.PaymentDate = nil
	root, _, err := f.engine.Create(ctx, f.tenant, in)
	require.NoError(t, err)

	actual := dec("110.00")
	when := date(2025, time.June, 12)
	got, err := f.engine.SetPaymentStatus(ctx, f.tenant, root.ID, PaymentInput{
		Pay: true, PaymentDate: &when, Amount: &actual, Actor: "tester",
	})
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(actual))
	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("610.00")))
	f.checkInvariant(t)
}

func TestDeleteCascadesAndReverses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := paidInput(f, ledger.Expense, "50.00")
	in.Description = "subscription"
	in.Recurrence = ledger.RecurMonthly
	in.Installments = 2

	root, children, err := f.engine.Create(ctx, f.tenant, in)
	require.NoError(t, err)
	require.Len(t, children, 2)

	// Settle both children too.
	for _, child := range children {
		_, err := f.engine.SetPaymentStatus(ctx, f.tenant, child.ID, PaymentInput{Pay: true, Actor: "tester"})
		require.NoError(t, err)
	}
	require.True(t, f.balance(t, f.cash.ID).Equal(dec("350.00")))

	deleted, err := f.engine.Delete(ctx, f.tenant, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("500.00")))
	_, err = store.GetTransaction(ctx, f.conn.DB(), f.tenant, root.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	for _, child := range children {
		_, err = store.GetTransaction(ctx, f.conn.DB(), f.tenant, child.ID)
		assert.ErrorIs(t, err, ledger.ErrNotFound)
	}
	f.checkInvariant(t)
}

func TestDeletePendingChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := paidInput(f, ledger.Expense, "75.00")
	in.Status = ledger.StatusPending
	in.PaymentDate = nil
	root, _, err := f.engine.Create(ctx, f.tenant, in)
	require.NoError(t, err)

	deleted, err := f.engine.Delete(ctx, f.tenant, root.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	assert.True(t, f.balance(t, f.cash.ID).Equal(dec("500.00")))
}

func TestBalanceInvariantUnderMixedSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Settled income, pending expense, settled transfer.
	income, _, err := f.engine.Create(ctx, f.tenant, paidInput(f, ledger.Income, "200.00"))
	require.NoError(t, err)

	pendingIn := paidInput(f, ledger.Expense, "40.00")
	pendingIn.Status = ledger.StatusPending
	pendingIn.PaymentDate = nil
	pending, _, err := f.engine.Create(ctx, f.tenant, pendingIn)
	require.NoError(t, err)

	_, _, err = f.engine.Create(ctx, f.tenant, paidInput(f, ledger.Transfer, "300.00"))
	require.NoError(t, err)
	f.checkInvariant(t)

	// Pay, edit, reverse, delete in sequence.
	_, err = f.engine.SetPaymentStatus(ctx, f.tenant, pending.ID, PaymentInput{Pay: true, Actor: "tester"})
	require.NoError(t, err)
	f.checkInvariant(t)

	newAmount := dec("55.00")
	_, err = f.engine.Update(ctx, f.tenant, pending.ID, UpdateInput{Amount: &newAmount, Actor: "tester"})
	require.NoError(t, err)
	f.checkInvariant(t)

	_, err = f.engine.SetPaymentStatus(ctx, f.tenant, income.ID, PaymentInput{Pay: false, Actor: "tester"})
	require.NoError(t, err)
	f.checkInvariant(t)

	_, err = f.engine.Delete(ctx, f.tenant, pending.ID)
	require.NoError(t, err)
	f.checkInvariant(t)
}

func TestListReportsDerivedLate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := paidInput(f, ledger.Expense, "10.00")
	in.Status = ledger.StatusPending
	in.PaymentDate = nil
	in.DueDate = date(2025, time.June, 1) // before the pinned clock
	root, _, err := f.engine.Create(ctx, f.tenant, in)
	require.NoError(t, err)

	rows, _, err := f.engine.List(ctx, f.tenant, store.TransactionFilter{}, store.Page{}, "", false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ledger.StatusLate, rows[0].Status)

	// The stored status is untouched.
	stored, err := store.GetTransaction(ctx, f.conn.DB(), f.tenant, root.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, stored.Status)
}

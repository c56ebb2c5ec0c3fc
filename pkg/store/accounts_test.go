package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
)

func TestCreateAndGetAccount(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	account, err := CreateAccount(ctx, conn.DB(), tenant, CreateAccountParams{
		Name:           "Main Checking",
		Kind:           ledger.AccountChecking,
		InitialBalance: dec("500.00"),
		Color:          "#336699",
	})
	require.NoError(t, err)
	assert.Equal(t, tenant, account.TenantID)
	assert.True(t, account.Active)
	assert.True(t, account.CurrentBalance.Equal(dec("500.00")))

	got, err := GetAccount(ctx, conn.DB(), tenant, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main Checking", got.Name)
	assert.Equal(t, ledger.AccountChecking, got.Kind)
}

func TestCreateAccountValidation(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	_, err := CreateAccount(ctx, conn.DB(), uuid.New(), CreateAccountParams{Name: "", Kind: ledger.AccountCash})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = CreateAccount(ctx, conn.DB(), uuid.New(), CreateAccountParams{Name: "x", Kind: "wallet"})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestGetAccountWrongTenantIsNotFound(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	account, err := CreateAccount(ctx, conn.DB(), uuid.New(), CreateAccountParams{
		Name: "Savings", Kind: ledger.AccountSavings,
	})
	require.NoError(t, err)

	_, err = GetAccount(ctx, conn.DB(), uuid.New(), account.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestUpdateAccountInitialBalanceShiftsCurrent(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	account, err := CreateAccount(ctx, conn.DB(), tenant, CreateAccountParams{
		Name: "Cash", Kind: ledger.AccountCash, InitialBalance: dec("100.00"),
	})
	require.NoError(t, err)

	// Simulate settled activity.
	require.NoError(t, ApplyAccountDelta(ctx, conn.DB(), tenant, account.ID, dec("-30.00")))

	newInitial := dec("150.00")
	updated, err := UpdateAccount(ctx, conn.DB(), tenant, account.ID, UpdateAccountParams{
		InitialBalance: &newInitial,
	})
	require.NoError(t, err)

	// Current moved by the same +50.00 difference: 70 -> 120.
	assert.True(t, updated.CurrentBalance.Equal(dec("120.00")), "got %s", updated.CurrentBalance)
	assert.True(t, updated.InitialBalance.Equal(dec("150.00")))
}

func TestApplyAccountDelta(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	account, err := CreateAccount(ctx, conn.DB(), tenant, CreateAccountParams{
		Name: "Cash", Kind: ledger.AccountCash, InitialBalance: dec("10.50"),
	})
	require.NoError(t, err)

	require.NoError(t, ApplyAccountDelta(ctx, conn.DB(), tenant, account.ID, dec("0.25")))
	require.NoError(t, ApplyAccountDelta(ctx, conn.DB(), tenant, account.ID, dec("-20.00")))

	got, err := GetAccount(ctx, conn.DB(), tenant, account.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(dec("-9.25")), "got %s", got.CurrentBalance)

	err = ApplyAccountDelta(ctx, conn.DB(), tenant, uuid.New(), dec("1.00"))
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestAccountMutationsComposeInOneTransaction(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	account, err := CreateAccount(ctx, conn.DB(), tenant, CreateAccountParams{
		Name: "Cash", Kind: ledger.AccountCash, InitialBalance: dec("100.00"),
	})
	require.NoError(t, err)

	// The read-modify-write of an initial-balance edit and a concurrent
	// reconciliation delta must land in the same transaction to compose.
	err = conn.Transaction(ctx, func(tx *sql.Tx) error {
		if err := ApplyAccountDelta(ctx, tx, tenant, account.ID, dec("-30.00")); err != nil {
			return err
		}
		newInitial := dec("150.00")
		_, err := UpdateAccount(ctx, tx, tenant, account.ID, UpdateAccountParams{InitialBalance: &newInitial})
		return err
	})
	require.NoError(t, err)

	got, err := GetAccount(ctx, conn.DB(), tenant, account.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(dec("120.00")), "got %s", got.CurrentBalance)

	// A failing transaction leaves the balance untouched.
	boom := errors.New("boom")
	err = conn.Transaction(ctx, func(tx *sql.Tx) error {
		if err := ApplyAccountDelta(ctx, tx, tenant, account.ID, dec("-999.00")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err = GetAccount(ctx, conn.DB(), tenant, account.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentBalance.Equal(dec("120.00")))
}

func TestDeleteAccountHardWhenUnreferenced(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	account, err := CreateAccount(ctx, conn.DB(), tenant, CreateAccountParams{
		Name: "Scratch", Kind: ledger.AccountOther,
	})
	require.NoError(t, err)

	soft, err := DeleteAccount(ctx, conn.DB(), tenant, account.ID)
	require.NoError(t, err)
	assert.False(t, soft)

	_, err = GetAccount(ctx, conn.DB(), tenant, account.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDeleteAccountSoftWhenReferenced(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	account, err := CreateAccount(ctx, conn.DB(), tenant, CreateAccountParams{
		Name: "Card", Kind: ledger.AccountCreditCard,
	})
	require.NoError(t, err)
	insertTx(t, conn, tenant, account.ID, nil)

	soft, err := DeleteAccount(ctx, conn.DB(), tenant, account.ID)
	require.NoError(t, err)
	assert.True(t, soft)

	got, err := GetAccount(ctx, conn.DB(), tenant, account.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestDeleteAccountSoftWhenReferencedAsDestination(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	source, err := CreateAccount(ctx, conn.DB(), tenant, CreateAccountParams{
		Name: "From", Kind: ledger.AccountChecking,
	})
	require.NoError(t, err)
	dest, err := CreateAccount(ctx, conn.DB(), tenant, CreateAccountParams{
		Name: "To", Kind: ledger.AccountSavings,
	})
	require.NoError(t, err)

	insertTx(t, conn, tenant, source.ID, func(tx *ledger.Transaction) {
		tx.Kind = ledger.Transfer
		tx.DestinationID = &dest.ID
	})

	soft, err := DeleteAccount(ctx, conn.DB(), tenant, dest.ID)
	require.NoError(t, err)
	assert.True(t, soft)
}

func TestListAccountsFiltersActive(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	tenant := uuid.New()

	_, err := CreateAccount(ctx, conn.DB(), tenant, CreateAccountParams{Name: "A", Kind: ledger.AccountCash})
	require.NoError(t, err)
	inactive, err := CreateAccount(ctx, conn.DB(), tenant, CreateAccountParams{Name: "B", Kind: ledger.AccountCash})
	require.NoError(t, err)

	off := false
	_, err = UpdateAccount(ctx, conn.DB(), tenant, inactive.ID, UpdateAccountParams{Active: &off})
	require.NoError(t, err)

	all, err := ListAccounts(ctx, conn.DB(), tenant, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := ListAccounts(ctx, conn.DB(), tenant, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "A", active[0].Name)
}

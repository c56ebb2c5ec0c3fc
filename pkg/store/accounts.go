package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
)

// accountRefQuery counts transactions referencing an account as source or
// destination. Used by the shared soft/hard delete rule.
const accountRefQuery = `
	SELECT COUNT(*) FROM transactions
	WHERE tenant_id = ?1 AND (source_account_id = ?2 OR destination_account_id = ?2)
`

// CreateAccountParams holds the caller-supplied fields of a new account.
type CreateAccountParams struct {
	Name           string
	Kind           ledger.AccountKind
	InitialBalance decimal.Decimal
	Color          string
}

// CreateAccount inserts a new account. The current balance starts equal to
// the initial balance.
func CreateAccount(ctx context.Context, q db.Querier, tenantID uuid.UUID, p CreateAccountParams) (*ledger.Account, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: account name is required", ledger.ErrValidation)
	}
	if !p.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown account kind %q", ledger.ErrValidation, p.Kind)
	}

	id := uuid.New()
	query := `
		INSERT INTO accounts (id, tenant_id, name, kind, initial_balance, current_balance, color, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`
	_, err := q.ExecContext(ctx, query,
		id.String(),
		tenantID.String(),
		p.Name,
		string(p.Kind),
		p.InitialBalance.String(),
		p.InitialBalance.String(),
		p.Color,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return GetAccount(ctx, q, tenantID, id)
}

// GetAccount retrieves one account by id within a tenant.
func GetAccount(ctx context.Context, q db.Querier, tenantID, id uuid.UUID) (*ledger.Account, error) {
	query := `
		SELECT id, tenant_id, name, kind, initial_balance, current_balance, color, active, created_at, updated_at
		FROM accounts
		WHERE tenant_id = ? AND id = ?
	`
	return scanAccount(q.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// ListAccounts retrieves a tenant's accounts ordered by name. With
// onlyActive set, deactivated accounts are filtered out.
func ListAccounts(ctx context.Context, q db.Querier, tenantID uuid.UUID, onlyActive bool) ([]ledger.Account, error) {
	query := `
		SELECT id, tenant_id, name, kind, initial_balance, current_balance, color, active, created_at, updated_at
		FROM accounts
		WHERE tenant_id = ?
	`
	if onlyActive {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name`

	rows, err := q.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

// UpdateAccountParams holds the optional fields of a partial account
// update; nil fields keep their current value.
type UpdateAccountParams struct {
	Name           *string
	Kind           *ledger.AccountKind
	InitialBalance *decimal.Decimal
	Color          *string
	Active         *bool
}

// UpdateAccount applies a partial update. Changing the initial balance
// shifts the current balance by the same difference, so the balance
// invariant keeps holding without touching any transaction.
func UpdateAccount(ctx context.Context, q db.Querier, tenantID, id uuid.UUID, p UpdateAccountParams) (*ledger.Account, error) {
	account, err := GetAccount(ctx, q, tenantID, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		if *p.Name == "" {
			return nil, fmt.Errorf("%w: account name is required", ledger.ErrValidation)
		}
		account.Name = *p.Name
	}
	if p.Kind != nil {
		if !p.Kind.Valid() {
			return nil, fmt.Errorf("%w: unknown account kind %q", ledger.ErrValidation, *p.Kind)
		}
		account.Kind = *p.Kind
	}
	if p.InitialBalance != nil {
		diff := p.InitialBalance.Sub(account.InitialBalance)
		account.InitialBalance = *p.InitialBalance
		account.CurrentBalance = account.CurrentBalance.Add(diff)
	}
	if p.Color != nil {
		account.Color = *p.Color
	}
	if p.Active != nil {
		account.Active = *p.Active
	}

	query := `
		UPDATE accounts
		SET name = ?, kind = ?, initial_balance = ?, current_balance = ?, color = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND id = ?
	`
	_, err = q.ExecContext(ctx, query,
		account.Name,
		string(account.Kind),
		account.InitialBalance.String(),
		account.CurrentBalance.String(),
		account.Color,
		account.Active,
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return GetAccount(ctx, q, tenantID, id)
}

// DeleteAccount removes an account, or deactivates it when any transaction
// still references it. Returns true when the account was soft-deleted.
func DeleteAccount(ctx context.Context, q db.Querier, tenantID, id uuid.UUID) (bool, error) {
	if _, err := GetAccount(ctx, q, tenantID, id); err != nil {
		return false, err
	}
	return deleteOrDeactivate(ctx, q, "accounts", accountRefQuery, tenantID, id)
}

// ApplyAccountDelta shifts an account's current balance by a signed amount.
// Only the transaction engine calls this, inside the same database
// transaction as the row mutation that produced the delta; calling it from
// anywhere else breaks the balance invariant.
func ApplyAccountDelta(ctx context.Context, q db.Querier, tenantID, id uuid.UUID, delta decimal.Decimal) error {
	var raw string
	query := `SELECT current_balance FROM accounts WHERE tenant_id = ? AND id = ?`
	err := q.QueryRowContext(ctx, query, tenantID.String(), id.String()).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("account %s: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid balance in database: %w", err)
	}

	update := `UPDATE accounts SET current_balance = ?, updated_at = CURRENT_TIMESTAMP WHERE tenant_id = ? AND id = ?`
	if _, err := q.ExecContext(ctx, update, balance.Add(delta).String(), tenantID.String(), id.String()); err != nil {
		return fmt.Errorf("failed to apply balance delta: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*ledger.Account, error) {
	var (
		account          ledger.Account
		idStr, tenantStr string
		kindStr          string
		initial, current string
	)
	err := row.Scan(
		&idStr,
		&tenantStr,
		&account.Name,
		&kindStr,
		&initial,
		&current,
		&account.Color,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account: %w", ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	if account.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid account id: %w", err)
	}
	if account.TenantID, err = uuid.Parse(tenantStr); err != nil {
		return nil, fmt.Errorf("invalid tenant id: %w", err)
	}
	account.Kind = ledger.AccountKind(kindStr)
	if account.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return nil, fmt.Errorf("invalid initial balance: %w", err)
	}
	if account.CurrentBalance, err = decimal.NewFromString(current); err != nil {
		return nil, fmt.Errorf("invalid current balance: %w", err)
	}
	return &account, nil
}

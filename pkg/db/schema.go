// Package db provides SQLite persistence for the ledger engine: the
// connection wrapper, the schema, and the serializable transaction helper
// every balance-touching operation runs inside.
package db

// Schema defines the SQL statements to create database tables.
// Every table is tenant-scoped and every lookup index leads with tenant_id.
const Schema = `
-- Financial accounts
-- current_balance is only ever mutated by the transaction engine's
-- reconciliation path, inside the same transaction as the row change
-- that caused it.
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,                -- checking, savings, investment, credit-card, debit-card, cash, other
    initial_balance TEXT NOT NULL,     -- decimal string
    current_balance TEXT NOT NULL,     -- decimal string
    color TEXT NOT NULL DEFAULT '',
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_accounts_tenant
    ON accounts(tenant_id, id);

CREATE INDEX IF NOT EXISTS idx_accounts_tenant_active
    ON accounts(tenant_id, active);

-- Hierarchical income/expense categories (self-referencing parent)
CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    kind TEXT NOT NULL,                -- income, expense, either
    color TEXT NOT NULL DEFAULT '',
    icon TEXT NOT NULL DEFAULT '',
    parent_id TEXT REFERENCES categories(id),
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_categories_tenant
    ON categories(tenant_id, id);

CREATE INDEX IF NOT EXISTS idx_categories_tenant_parent
    ON categories(tenant_id, parent_id);

-- Cost center tags
CREATE TABLE IF NOT EXISTS cost_centers (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    color TEXT NOT NULL DEFAULT '',
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_cost_centers_tenant
    ON cost_centers(tenant_id, id);

-- Ledger transactions (self-referencing parent for installment series)
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    kind TEXT NOT NULL,                -- income, expense, transfer
    description TEXT NOT NULL,
    amount TEXT NOT NULL,              -- positive decimal string
    issue_date TEXT NOT NULL,          -- YYYY-MM-DD
    due_date TEXT NOT NULL,            -- YYYY-MM-DD
    payment_date TEXT,                 -- YYYY-MM-DD, set iff paid/reversed
    status TEXT NOT NULL,              -- pending, paid, late, cancelled, reversed
    recurrence TEXT NOT NULL DEFAULT 'none',
    source_account_id TEXT NOT NULL REFERENCES accounts(id),
    destination_account_id TEXT REFERENCES accounts(id),
    category_id TEXT REFERENCES categories(id),
    cost_center_id TEXT REFERENCES cost_centers(id),
    parent_id TEXT REFERENCES transactions(id),
    reconciled INTEGER NOT NULL DEFAULT 0,
    notes TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL DEFAULT '',
    updated_by TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transactions_tenant
    ON transactions(tenant_id, id);

CREATE INDEX IF NOT EXISTS idx_transactions_tenant_due
    ON transactions(tenant_id, due_date);

CREATE INDEX IF NOT EXISTS idx_transactions_tenant_status
    ON transactions(tenant_id, status);

CREATE INDEX IF NOT EXISTS idx_transactions_tenant_parent
    ON transactions(tenant_id, parent_id);

CREATE INDEX IF NOT EXISTS idx_transactions_tenant_source
    ON transactions(tenant_id, source_account_id);

CREATE INDEX IF NOT EXISTS idx_transactions_tenant_payment
    ON transactions(tenant_id, payment_date);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.db.Exec(Schema); err != nil {
		return err
	}
	return nil
}

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

const transactionColumns = `
	id, tenant_id, kind, description, amount, issue_date, due_date, payment_date,
	status, recurrence, source_account_id, destination_account_id, category_id,
	cost_center_id, parent_id, reconciled, notes, created_by, updated_by,
	created_at, updated_at
`

// InsertTransaction persists a fully-built transaction row. The engine
// owns field validation; the store only moves data.
func InsertTransaction(ctx context.Context, q db.Querier, t *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, tenant_id, kind, description, amount, issue_date, due_date, payment_date,
			status, recurrence, source_account_id, destination_account_id, category_id,
			cost_center_id, parent_id, reconciled, notes, created_by, updated_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		t.ID.String(),
		t.TenantID.String(),
		string(t.Kind),
		t.Description,
		t.Amount.String(),
		ledger.FormatDate(t.IssueDate),
		ledger.FormatDate(t.DueDate),
		nullDate(t.PaymentDate),
		string(t.Status),
		string(t.Recurrence),
		t.SourceID.String(),
		nullUUID(t.DestinationID),
		nullUUID(t.CategoryID),
		nullUUID(t.CostCenterID),
		nullUUID(t.ParentID),
		t.Reconciled,
		t.Notes,
		t.CreatedBy,
		t.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// GetTransaction retrieves one transaction by id within a tenant.
func GetTransaction(ctx context.Context, q db.Querier, tenantID, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tenant_id = ? AND id = ?`
	return scanTransaction(q.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// UpdateTransaction overwrites the mutable columns of an existing row with
// the merged values the engine computed.
func UpdateTransaction(ctx context.Context, q db.Querier, t *ledger.Transaction) error {
	query := `
		UPDATE transactions SET
			kind = ?, description = ?, amount = ?, issue_date = ?, due_date = ?,
			payment_date = ?, status = ?, recurrence = ?, source_account_id = ?,
			destination_account_id = ?, category_id = ?, cost_center_id = ?,
			reconciled = ?, notes = ?, updated_by = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND id = ?
	`
	result, err := q.ExecContext(ctx, query,
		string(t.Kind),
		t.Description,
		t.Amount.String(),
		ledger.FormatDate(t.IssueDate),
		ledger.FormatDate(t.DueDate),
		nullDate(t.PaymentDate),
		string(t.Status),
		string(t.Recurrence),
		t.SourceID.String(),
		nullUUID(t.DestinationID),
		nullUUID(t.CategoryID),
		nullUUID(t.CostCenterID),
		t.Reconciled,
		t.Notes,
		t.UpdatedBy,
		t.TenantID.String(),
		t.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, ledger.ErrNotFound)
	}
	return nil
}

// DeleteTransaction removes one transaction row.
func DeleteTransaction(ctx context.Context, q db.Querier, tenantID, id uuid.UUID) error {
	result, err := q.ExecContext(ctx, `DELETE FROM transactions WHERE tenant_id = ? AND id = ?`,
		tenantID.String(), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transaction %s: %w", id, ledger.ErrNotFound)
	}
	return nil
}

// ListChildren retrieves the installments pointing at a root transaction,
// ordered by due date.
func ListChildren(ctx context.Context, q db.Querier, tenantID, parentID uuid.UUID) ([]ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE tenant_id = ? AND parent_id = ? ORDER BY due_date`
	rows, err := q.QueryContext(ctx, query, tenantID.String(), parentID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	var children []ledger.Transaction
	for rows.Next() {
		child, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, *child)
	}
	return children, rows.Err()
}

func scanTransaction(row scanner) (*ledger.Transaction, error) {
	var (
		t                             ledger.Transaction
		idStr, tenantStr, sourceStr   string
		kindStr, statusStr, recurStr  string
		amountStr, issueStr, dueStr   string
		payment, dest, category       sql.NullString
		costCenter, parent            sql.NullString
	)
	err := row.Scan(
		&idStr,
		&tenantStr,
		&kindStr,
		&t.Description,
		&amountStr,
		&issueStr,
		&dueStr,
		&payment,
		&statusStr,
		&recurStr,
		&sourceStr,
		&dest,
		&category,
		&costCenter,
		&parent,
		&t.Reconciled,
		&t.Notes,
		&t.CreatedBy,
		&t.UpdatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction: %w", ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if err := fillScannedTransaction(&t,
		idStr, tenantStr, sourceStr, kindStr, statusStr, recurStr,
		amountStr, issueStr, dueStr, payment, dest, category, costCenter, parent,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

// fillScannedTransaction parses the raw scanned columns into the
// transaction's typed fields.
func fillScannedTransaction(t *ledger.Transaction,
	idStr, tenantStr, sourceStr, kindStr, statusStr, recurStr,
	amountStr, issueStr, dueStr string,
	payment, dest, category, costCenter, parent sql.NullString,
) error {
	var err error
	if t.ID, err = uuid.Parse(idStr); err != nil {
		return fmt.Errorf("invalid transaction id: %w", err)
	}
	if t.TenantID, err = uuid.Parse(tenantStr); err != nil {
		return fmt.Errorf("invalid tenant id: %w", err)
	}
	if t.SourceID, err = uuid.Parse(sourceStr); err != nil {
		return fmt.Errorf("invalid source account id: %w", err)
	}
	t.Kind = ledger.TransactionKind(kindStr)
	t.Status = ledger.TransactionStatus(statusStr)
	t.Recurrence = ledger.Recurrence(recurStr)
	if t.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if t.IssueDate, err = ledger.ParseDate(issueStr); err != nil {
		return fmt.Errorf("invalid issue date: %w", err)
	}
	if t.DueDate, err = ledger.ParseDate(dueStr); err != nil {
		return fmt.Errorf("invalid due date: %w", err)
	}
	if t.PaymentDate, err = scanDatePtr(payment); err != nil {
		return err
	}
	if t.DestinationID, err = scanUUIDPtr(dest); err != nil {
		return err
	}
	if t.CategoryID, err = scanUUIDPtr(category); err != nil {
		return err
	}
	if t.CostCenterID, err = scanUUIDPtr(costCenter); err != nil {
		return err
	}
	if t.ParentID, err = scanUUIDPtr(parent); err != nil {
		return err
	}
	return nil
}

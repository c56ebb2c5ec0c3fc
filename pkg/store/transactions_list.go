package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
)

// TransactionFilter narrows a transaction listing. Nil fields do not
// filter. AccountID matches the source or the destination side. A Status
// filter of late selects pending transactions past due as of Today.
type TransactionFilter struct {
	Kind         *ledger.TransactionKind
	Status       *ledger.TransactionStatus
	DueFrom      *time.Time
	DueTo        *time.Time
	AccountID    *uuid.UUID
	CategoryID   *uuid.UUID
	CostCenterID *uuid.UUID
	Reconciled   *bool
	Recurrence   *ledger.Recurrence
	Today        time.Time
}

// Page bounds a listing. A non-positive limit falls back to 50.
type Page struct {
	Limit  int
	Offset int
}

// sortColumns is the allow-list of sortable fields. Anything else is
// rejected rather than interpolated into SQL.
var sortColumns = map[string]string{
	"due_date":    "t.due_date",
	"issue_date":  "t.issue_date",
	"amount":      "CAST(t.amount AS REAL)",
	"description": "t.description",
	"status":      "t.status",
	"created_at":  "t.created_at",
}

// TransactionRow is a listed transaction joined with the display names of
// its account, category, and cost center references.
type TransactionRow struct {
	ledger.Transaction
	SourceName      string
	DestinationName string
	CategoryName    string
	CostCenterName  string
}

// ListTransactions retrieves a filtered, sorted, paginated page of a
// tenant's transactions along with the total match count.
func ListTransactions(ctx context.Context, q db.Querier, tenantID uuid.UUID, f TransactionFilter, p Page, sortBy string, descending bool) ([]TransactionRow, int, error) {
	where := `WHERE t.tenant_id = ?`
	args := []any{tenantID.String()}

	if f.Kind != nil {
		where += ` AND t.kind = ?`
		args = append(args, string(*f.Kind))
	}
	if f.Status != nil {
		if *f.Status == ledger.StatusLate {
			// Derived classification: stored pending, past due.
			where += ` AND t.status = ? AND t.due_date < ?`
			args = append(args, string(ledger.StatusPending), ledger.FormatDate(f.Today))
		} else {
			where += ` AND t.status = ?`
			args = append(args, string(*f.Status))
		}
	}
	if f.DueFrom != nil {
		where += ` AND t.due_date >= ?`
		args = append(args, ledger.FormatDate(*f.DueFrom))
	}
	if f.DueTo != nil {
		where += ` AND t.due_date <= ?`
		args = append(args, ledger.FormatDate(*f.DueTo))
	}
	if f.AccountID != nil {
		where += ` AND (t.source_account_id = ? OR t.destination_account_id = ?)`
		args = append(args, f.AccountID.String(), f.AccountID.String())
	}
	if f.CategoryID != nil {
		where += ` AND t.category_id = ?`
		args = append(args, f.CategoryID.String())
	}
	if f.CostCenterID != nil {
		where += ` AND t.cost_center_id = ?`
		args = append(args, f.CostCenterID.String())
	}
	if f.Reconciled != nil {
		where += ` AND t.reconciled = ?`
		args = append(args, *f.Reconciled)
	}
	if f.Recurrence != nil {
		where += ` AND t.recurrence = ?`
		args = append(args, string(*f.Recurrence))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM transactions t ` + where
	if err := q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	if sortBy == "" {
		sortBy = "due_date"
	}
	column, ok := sortColumns[sortBy]
	if !ok {
		return nil, 0, fmt.Errorf("%w: unknown sort field %q", ledger.ErrValidation, sortBy)
	}
	direction := "ASC"
	if descending {
		direction = "DESC"
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + prefixedTransactionColumns + `,
			sa.name,
			COALESCE(da.name, ''),
			COALESCE(c.name, ''),
			COALESCE(cc.name, '')
		FROM transactions t
		JOIN accounts sa ON sa.id = t.source_account_id
		LEFT JOIN accounts da ON da.id = t.destination_account_id
		LEFT JOIN categories c ON c.id = t.category_id
		LEFT JOIN cost_centers cc ON cc.id = t.cost_center_id
		` + where + `
		ORDER BY ` + column + ` ` + direction + `, t.id
		LIMIT ? OFFSET ?
	`
	args = append(args, limit, p.Offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var result []TransactionRow
	for rows.Next() {
		row, err := scanTransactionRow(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *row)
	}
	return result, total, rows.Err()
}

const prefixedTransactionColumns = `
	t.id, t.tenant_id, t.kind, t.description, t.amount, t.issue_date, t.due_date,
	t.payment_date, t.status, t.recurrence, t.source_account_id,
	t.destination_account_id, t.category_id, t.cost_center_id, t.parent_id,
	t.reconciled, t.notes, t.created_by, t.updated_by, t.created_at, t.updated_at
`

func scanTransactionRow(rows *sql.Rows) (*TransactionRow, error) {
	var (
		row                          TransactionRow
		idStr, tenantStr, sourceStr  string
		kindStr, statusStr, recurStr string
		amountStr, issueStr, dueStr  string
		payment, dest, category      sql.NullString
		costCenter, parent           sql.NullString
	)
	err := rows.Scan(
		&idStr,
		&tenantStr,
		&kindStr,
		&row.Description,
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
		&row.Reconciled,
		&row.Notes,
		&row.CreatedBy,
		&row.UpdatedBy,
		&row.CreatedAt,
		&row.UpdatedAt,
		&row.SourceName,
		&row.DestinationName,
		&row.CategoryName,
		&row.CostCenterName,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction row: %w", err)
	}

	if err := fillScannedTransaction(&row.Transaction,
		idStr, tenantStr, sourceStr, kindStr, statusStr, recurStr,
		amountStr, issueStr, dueStr, payment, dest, category, costCenter, parent,
	); err != nil {
		return nil, err
	}
	return &row, nil
}

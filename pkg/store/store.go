// Package store implements tenant-scoped SQL persistence for accounts,
// categories, cost centers, and transactions. Every function takes a
// db.Querier so the same code runs against the bare connection or inside
// the engine's serializable transaction.
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

// deleteOrDeactivate implements the shared soft/hard delete rule used by
// accounts, categories, and cost centers: an entity referenced by any
// transaction is deactivated (soft delete), an unreferenced one is removed.
// refQuery must count transaction references and take (tenant_id, id) args.
// Returns true when the entity was soft-deleted.
func deleteOrDeactivate(ctx context.Context, q db.Querier, table, refQuery string, tenantID, id uuid.UUID) (bool, error) {
	var refs int
	if err := q.QueryRowContext(ctx, refQuery, tenantID.String(), id.String()).Scan(&refs); err != nil {
		return false, fmt.Errorf("failed to count references: %w", err)
	}

	if refs > 0 {
		query := fmt.Sprintf(`UPDATE %s SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE tenant_id = ? AND id = ?`, table)
		if _, err := q.ExecContext(ctx, query, tenantID.String(), id.String()); err != nil {
			return false, fmt.Errorf("failed to deactivate: %w", err)
		}
		return true, nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = ? AND id = ?`, table)
	result, err := q.ExecContext(ctx, query, tenantID.String(), id.String())
	if err != nil {
		return false, fmt.Errorf("failed to delete: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, ledger.ErrNotFound
	}
	return false, nil
}

// nullUUID converts an optional UUID to its database representation.
func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// scanUUIDPtr converts a nullable id column back to an optional UUID.
func scanUUIDPtr(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid id in database: %w", err)
	}
	return &id, nil
}

// nullDate converts an optional calendar date to its database representation.
func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ledger.FormatDate(*t)
}

// scanDatePtr converts a nullable date column back to an optional date.
func scanDatePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := ledger.ParseDate(s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid date in database: %w", err)
	}
	return &t, nil
}

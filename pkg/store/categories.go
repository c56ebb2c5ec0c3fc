package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
)

const categoryRefQuery = `
	SELECT COUNT(*) FROM transactions
	WHERE tenant_id = ?1 AND category_id = ?2
`

// CreateCategoryParams holds the caller-supplied fields of a new category.
type CreateCategoryParams struct {
	Name     string
	Kind     ledger.CategoryKind
	Color    string
	Icon     string
	ParentID *uuid.UUID
}

// CreateCategory inserts a new category, optionally under a parent that
// must already exist for the tenant.
func CreateCategory(ctx context.Context, q db.Querier, tenantID uuid.UUID, p CreateCategoryParams) (*ledger.Category, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: category name is required", ledger.ErrValidation)
	}
	if !p.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown category kind %q", ledger.ErrValidation, p.Kind)
	}
	if p.ParentID != nil {
		if _, err := GetCategory(ctx, q, tenantID, *p.ParentID); err != nil {
			return nil, err
		}
	}

	id := uuid.New()
	query := `
		INSERT INTO categories (id, tenant_id, name, kind, color, icon, parent_id, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`
	_, err := q.ExecContext(ctx, query,
		id.String(),
		tenantID.String(),
		p.Name,
		string(p.Kind),
		p.Color,
		p.Icon,
		nullUUID(p.ParentID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return GetCategory(ctx, q, tenantID, id)
}

// GetCategory retrieves one category by id within a tenant.
func GetCategory(ctx context.Context, q db.Querier, tenantID, id uuid.UUID) (*ledger.Category, error) {
	query := `
		SELECT id, tenant_id, name, kind, color, icon, parent_id, active, created_at, updated_at
		FROM categories
		WHERE tenant_id = ? AND id = ?
	`
	return scanCategory(q.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// ListCategories retrieves a tenant's categories ordered by name,
// optionally filtered by kind and/or active flag.
func ListCategories(ctx context.Context, q db.Querier, tenantID uuid.UUID, kind *ledger.CategoryKind, onlyActive bool) ([]ledger.Category, error) {
	query := `
		SELECT id, tenant_id, name, kind, color, icon, parent_id, active, created_at, updated_at
		FROM categories
		WHERE tenant_id = ?
	`
	args := []any{tenantID.String()}
	if kind != nil {
		query += ` AND kind = ?`
		args = append(args, string(*kind))
	}
	if onlyActive {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []ledger.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	return categories, rows.Err()
}

// UpdateCategoryParams holds the optional fields of a partial category
// update. SetParent distinguishes "re-parent to ParentID (possibly nil,
// meaning top level)" from "leave the parent alone".
type UpdateCategoryParams struct {
	Name      *string
	Kind      *ledger.CategoryKind
	Color     *string
	Icon      *string
	Active    *bool
	SetParent bool
	ParentID  *uuid.UUID
}

// UpdateCategory applies a partial update. Re-parenting walks the new
// parent chain upward and rejects with ErrCycleDetected when the category
// itself is encountered; the walk is capped by the tenant's category count
// so it terminates even on corrupt data.
func UpdateCategory(ctx context.Context, q db.Querier, tenantID, id uuid.UUID, p UpdateCategoryParams) (*ledger.Category, error) {
	category, err := GetCategory(ctx, q, tenantID, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		if *p.Name == "" {
			return nil, fmt.Errorf("%w: category name is required", ledger.ErrValidation)
		}
		category.Name = *p.Name
	}
	if p.Kind != nil {
		if !p.Kind.Valid() {
			return nil, fmt.Errorf("%w: unknown category kind %q", ledger.ErrValidation, *p.Kind)
		}
		category.Kind = *p.Kind
	}
	if p.Color != nil {
		category.Color = *p.Color
	}
	if p.Icon != nil {
		category.Icon = *p.Icon
	}
	if p.Active != nil {
		category.Active = *p.Active
	}
	if p.SetParent {
		if p.ParentID != nil {
			if err := checkCategoryCycle(ctx, q, tenantID, id, *p.ParentID); err != nil {
				return nil, err
			}
		}
		category.ParentID = p.ParentID
	}

	query := `
		UPDATE categories
		SET name = ?, kind = ?, color = ?, icon = ?, parent_id = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND id = ?
	`
	_, err = q.ExecContext(ctx, query,
		category.Name,
		string(category.Kind),
		category.Color,
		category.Icon,
		nullUUID(category.ParentID),
		category.Active,
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	return GetCategory(ctx, q, tenantID, id)
}

// checkCategoryCycle verifies that making newParent the parent of id keeps
// the tree acyclic. It walks parent links upward from newParent; finding
// id on the way means the re-parent would close a cycle.
func checkCategoryCycle(ctx context.Context, q db.Querier, tenantID, id, newParent uuid.UUID) error {
	if newParent == id {
		return fmt.Errorf("category %s: %w", id, ledger.ErrCycleDetected)
	}

	// Safety cap: never walk more steps than the tenant has categories,
	// so pre-existing corrupt chains cannot loop forever.
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE tenant_id = ?`, tenantID.String()).Scan(&total); err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}

	current := newParent
	for steps := 0; steps <= total; steps++ {
		node, err := GetCategory(ctx, q, tenantID, current)
		if err != nil {
			return err
		}
		if node.ParentID == nil {
			return nil
		}
		if *node.ParentID == id {
			return fmt.Errorf("category %s: %w", id, ledger.ErrCycleDetected)
		}
		current = *node.ParentID
	}
	return fmt.Errorf("category %s: parent chain exceeds category count: %w", id, ledger.ErrCycleDetected)
}

// DeleteCategory removes a category, or deactivates it when transactions
// still reference it. Deletion is blocked with ErrHasChildren while child
// categories exist. Returns true when the category was soft-deleted.
func DeleteCategory(ctx context.Context, q db.Querier, tenantID, id uuid.UUID) (bool, error) {
	if _, err := GetCategory(ctx, q, tenantID, id); err != nil {
		return false, err
	}

	var children int
	query := `SELECT COUNT(*) FROM categories WHERE tenant_id = ? AND parent_id = ?`
	if err := q.QueryRowContext(ctx, query, tenantID.String(), id.String()).Scan(&children); err != nil {
		return false, fmt.Errorf("failed to count child categories: %w", err)
	}
	if children > 0 {
		return false, fmt.Errorf("category %s: %w", id, ledger.ErrHasChildren)
	}

	return deleteOrDeactivate(ctx, q, "categories", categoryRefQuery, tenantID, id)
}

func scanCategory(row scanner) (*ledger.Category, error) {
	var (
		category         ledger.Category
		idStr, tenantStr string
		kindStr          string
		parent           sql.NullString
	)
	err := row.Scan(
		&idStr,
		&tenantStr,
		&category.Name,
		&kindStr,
		&category.Color,
		&category.Icon,
		&parent,
		&category.Active,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category: %w", ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}

	if category.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid category id: %w", err)
	}
	if category.TenantID, err = uuid.Parse(tenantStr); err != nil {
		return nil, fmt.Errorf("invalid tenant id: %w", err)
	}
	category.Kind = ledger.CategoryKind(kindStr)
	if category.ParentID, err = scanUUIDPtr(parent); err != nil {
		return nil, err
	}
	return &category, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
)

const costCenterRefQuery = `
	SELECT COUNT(*) FROM transactions
	WHERE tenant_id = ?1 AND cost_center_id = ?2
`

// CreateCostCenterParams holds the caller-supplied fields of a new cost
// center.
type CreateCostCenterParams struct {
	Name        string
	Description string
	Color       string
}

// CreateCostCenter inserts a new cost center.
func CreateCostCenter(ctx context.Context, q db.Querier, tenantID uuid.UUID, p CreateCostCenterParams) (*ledger.CostCenter, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: cost center name is required", ledger.ErrValidation)
	}

	id := uuid.New()
	query := `
		INSERT INTO cost_centers (id, tenant_id, name, description, color, active)
		VALUES (?, ?, ?, ?, ?, 1)
	`
	_, err := q.ExecContext(ctx, query,
		id.String(),
		tenantID.String(),
		p.Name,
		p.Description,
		p.Color,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cost center: %w", err)
	}

	return GetCostCenter(ctx, q, tenantID, id)
}

// GetCostCenter retrieves one cost center by id within a tenant.
func GetCostCenter(ctx context.Context, q db.Querier, tenantID, id uuid.UUID) (*ledger.CostCenter, error) {
	query := `
		SELECT id, tenant_id, name, description, color, active, created_at, updated_at
		FROM cost_centers
		WHERE tenant_id = ? AND id = ?
	`
	return scanCostCenter(q.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// ListCostCenters retrieves a tenant's cost centers ordered by name.
func ListCostCenters(ctx context.Context, q db.Querier, tenantID uuid.UUID, onlyActive bool) ([]ledger.CostCenter, error) {
	query := `
		SELECT id, tenant_id, name, description, color, active, created_at, updated_at
		FROM cost_centers
		WHERE tenant_id = ?
	`
	if onlyActive {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name`

	rows, err := q.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list cost centers: %w", err)
	}
	defer rows.Close()

	var centers []ledger.CostCenter
	for rows.Next() {
		center, err := scanCostCenter(rows)
		if err != nil {
			return nil, err
		}
		centers = append(centers, *center)
	}
	return centers, rows.Err()
}

// UpdateCostCenterParams holds the optional fields of a partial cost
// center update; nil fields keep their current value.
type UpdateCostCenterParams struct {
	Name        *string
	Description *string
	Color       *string
	Active      *bool
}

// UpdateCostCenter applies a partial update.
func UpdateCostCenter(ctx context.Context, q db.Querier, tenantID, id uuid.UUID, p UpdateCostCenterParams) (*ledger.CostCenter, error) {
	center, err := GetCostCenter(ctx, q, tenantID, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		if *p.Name == "" {
			return nil, fmt.Errorf("%w: cost center name is required", ledger.ErrValidation)
		}
		center.Name = *p.Name
	}
	if p.Description != nil {
		center.Description = *p.Description
	}
	if p.Color != nil {
		center.Color = *p.Color
	}
	if p.Active != nil {
		center.Active = *p.Active
	}

	query := `
		UPDATE cost_centers
		SET name = ?, description = ?, color = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = ? AND id = ?
	`
	_, err = q.ExecContext(ctx, query,
		center.Name,
		center.Description,
		center.Color,
		center.Active,
		tenantID.String(),
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update cost center: %w", err)
	}

	return GetCostCenter(ctx, q, tenantID, id)
}

// DeleteCostCenter removes a cost center, or deactivates it when any
// transaction still references it. Returns true when it was soft-deleted.
func DeleteCostCenter(ctx context.Context, q db.Querier, tenantID, id uuid.UUID) (bool, error) {
	if _, err := GetCostCenter(ctx, q, tenantID, id); err != nil {
		return false, err
	}
	return deleteOrDeactivate(ctx, q, "cost_centers", costCenterRefQuery, tenantID, id)
}

func scanCostCenter(row scanner) (*ledger.CostCenter, error) {
	var (
		center           ledger.CostCenter
		idStr, tenantStr string
	)
	err := row.Scan(
		&idStr,
		&tenantStr,
		&center.Name,
		&center.Description,
		&center.Color,
		&center.Active,
		&center.CreatedAt,
		&center.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cost center: %w", ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cost center: %w", err)
	}

	if center.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid cost center id: %w", err)
	}
	if center.TenantID, err = uuid.Parse(tenantStr); err != nil {
		return nil, fmt.Errorf("invalid tenant id: %w", err)
	}
	return &center, nil
}

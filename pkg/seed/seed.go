// Package seed bootstraps a tenant from a YAML file declaring its
// accounts, category tree, and cost centers. The whole file is applied in
// one database transaction: a half-seeded tenant is never visible.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/store"
)

// AccountSeed declares one account.
type AccountSeed struct {
	Name           string `yaml:"name"`
	Kind           string `yaml:"kind"`
	InitialBalance string `yaml:"initial_balance"`
	Color          string `yaml:"color"`
}

// CategorySeed declares one category and, recursively, its children.
type CategorySeed struct {
	Name     string         `yaml:"name"`
	Kind     string         `yaml:"kind"`
	Color    string         `yaml:"color"`
	Icon     string         `yaml:"icon"`
	Children []CategorySeed `yaml:"children"`
}

// CostCenterSeed declares one cost center.
type CostCenterSeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
}

// File is the root of a seed document.
type File struct {
	Accounts    []AccountSeed    `yaml:"accounts"`
	Categories  []CategorySeed   `yaml:"categories"`
	CostCenters []CostCenterSeed `yaml:"cost_centers"`
}

// Result reports what a seed run created.
type Result struct {
	Accounts    int
	Categories  int
	CostCenters int
}

// LoadFile reads and parses a seed document.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &file, nil
}

// Apply creates every declared entity for the tenant inside one database
// transaction.
func Apply(ctx context.Context, conn *db.Connection, tenantID uuid.UUID, file *File) (*Result, error) {
	result := &Result{}
	err := conn.Transaction(ctx, func(tx *sql.Tx) error {
		for _, a := range file.Accounts {
			balance := decimal.Zero
			if a.InitialBalance != "" {
				var err error
				if balance, err = decimal.NewFromString(a.InitialBalance); err != nil {
					return fmt.Errorf("%w: account %q: bad initial balance %q", ledger.ErrValidation, a.Name, a.InitialBalance)
				}
			}
			_, err := store.CreateAccount(ctx, tx, tenantID, store.CreateAccountParams{
				Name:           a.Name,
				Kind:           ledger.AccountKind(a.Kind),
				InitialBalance: balance,
				Color:          a.Color,
			})
			if err != nil {
				return fmt.Errorf("account %q: %w", a.Name, err)
			}
			result.Accounts++
		}

		for _, c := range file.Categories {
			if err := applyCategory(ctx, tx, tenantID, c, nil, result); err != nil {
				return err
			}
		}

		for _, cc := range file.CostCenters {
			_, err := store.CreateCostCenter(ctx, tx, tenantID, store.CreateCostCenterParams{
				Name:        cc.Name,
				Description: cc.Description,
				Color:       cc.Color,
			})
			if err != nil {
				return fmt.Errorf("cost center %q: %w", cc.Name, err)
			}
			result.CostCenters++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyCategory creates one category and recurses into its children. A
// child without an explicit kind inherits its parent's.
func applyCategory(ctx context.Context, tx *sql.Tx, tenantID uuid.UUID, c CategorySeed, parentID *uuid.UUID, result *Result) error {
	kind := c.Kind
	created, err := store.CreateCategory(ctx, tx, tenantID, store.CreateCategoryParams{
		Name:     c.Name,
		Kind:     ledger.CategoryKind(kind),
		Color:    c.Color,
		Icon:     c.Icon,
		ParentID: parentID,
	})
	if err != nil {
		return fmt.Errorf("category %q: %w", c.Name, err)
	}
	result.Categories++

	for _, child := range c.Children {
		if child.Kind == "" {
			child.Kind = kind
		}
		if err := applyCategory(ctx, tx, tenantID, child, &created.ID, result); err != nil {
			return err
		}
	}
	return nil
}

package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/store"
)

var (
	categoryName   string
	categoryKind   string
	categoryColor  string
	categoryIcon   string
	categoryParent string
	categoryAll    bool
)

// categoryCmd represents the category command group.
var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage the category tree",
}

var categoryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a category",
	Long: `Create a category, optionally under a parent. Re-parenting that
would close a cycle is rejected.

Example:
  ledger category add --name Housing --kind expense
  ledger category add --name Rent --kind expense --parent <housing-id>`,
	Run: runCategoryAdd,
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	Run:   runCategoryList,
}

var categoryRmCmd = &cobra.Command{
	Use:   "rm <category-id>",
	Short: "Remove a category",
	Long: `Remove a category. A category with child categories cannot be
removed; one referenced by transactions is deactivated instead.`,
	Args: cobra.ExactArgs(1),
	Run:  runCategoryRm,
}

func init() {
	categoryAddCmd.Flags().StringVar(&categoryName, "name", "", "category name (required)")
	categoryAddCmd.Flags().StringVar(&categoryKind, "kind", "", "category kind (income|expense|either) (required)")
	categoryAddCmd.Flags().StringVar(&categoryColor, "color", "", "display color")
	categoryAddCmd.Flags().StringVar(&categoryIcon, "icon", "", "display icon")
	categoryAddCmd.Flags().StringVar(&categoryParent, "parent", "", "parent category id")
	categoryAddCmd.MarkFlagRequired("name")
	categoryAddCmd.MarkFlagRequired("kind")

	categoryListCmd.Flags().StringVar(&categoryKind, "kind", "", "filter by kind (income|expense|either)")
	categoryListCmd.Flags().BoolVar(&categoryAll, "all", false, "include inactive categories")

	categoryCmd.AddCommand(categoryAddCmd)
	categoryCmd.AddCommand(categoryListCmd)
	categoryCmd.AddCommand(categoryRmCmd)
}

func runCategoryAdd(cmd *cobra.Command, args []string) {
	conn, _, tenant := openLedger()
	defer conn.Close()

	var parentID *uuid.UUID
	if categoryParent != "" {
		id, err := uuid.Parse(categoryParent)
		exitOnError(err, "invalid parent id")
		parentID = &id
	}

	var category *ledger.Category
	err := mutate(conn, func(tx *sql.Tx) error {
		var err error
		category, err = store.CreateCategory(context.Background(), tx, tenant, store.CreateCategoryParams{
			Name:     categoryName,
			Kind:     ledger.CategoryKind(categoryKind),
			Color:    categoryColor,
			Icon:     categoryIcon,
			ParentID: parentID,
		})
		return err
	})
	exitOnError(err, "failed to create category")

	fmt.Printf("Created category %s (%s)\n", category.Name, category.ID)
}

func runCategoryList(cmd *cobra.Command, args []string) {
	conn, _, tenant := openLedger()
	defer conn.Close()

	var kind *ledger.CategoryKind
	if categoryKind != "" {
		k := ledger.CategoryKind(categoryKind)
		kind = &k
	}

	categories, err := store.ListCategories(context.Background(), conn.DB(), tenant, kind, !categoryAll)
	exitOnError(err, "failed to list categories")

	for _, category := range categories {
		parent := ""
		if category.ParentID != nil {
			parent = fmt.Sprintf("  parent=%s", *category.ParentID)
		}
		marker := ""
		if !category.Active {
			marker = " (inactive)"
		}
		fmt.Printf("%s  %-20s %-8s%s%s\n", category.ID, category.Name, category.Kind, parent, marker)
	}
}

func runCategoryRm(cmd *cobra.Command, args []string) {
	conn, _, tenant := openLedger()
	defer conn.Close()

	id, err := uuid.Parse(args[0])
	exitOnError(err, "invalid category id")

	var soft bool
	err = mutate(conn, func(tx *sql.Tx) error {
		var err error
		soft, err = store.DeleteCategory(context.Background(), tx, tenant, id)
		return err
	})
	exitOnError(err, "failed to remove category")

	if soft {
		fmt.Println("Category is referenced by transactions; deactivated instead")
	} else {
		fmt.Println("Category removed")
	}
}

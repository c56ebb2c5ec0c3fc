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
	costCenterName        string
	costCenterDescription string
	costCenterColor       string
	costCenterAll         bool
)

// costCenterCmd represents the costcenter command group.
var costCenterCmd = &cobra.Command{
	Use:   "costcenter",
	Short: "Manage cost centers",
}

var costCenterAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a cost center",
	Run:   runCostCenterAdd,
}

var costCenterListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cost centers",
	Run:   runCostCenterList,
}

var costCenterRmCmd = &cobra.Command{
	Use:   "rm <costcenter-id>",
	Short: "Remove a cost center",
	Args:  cobra.ExactArgs(1),
	Run:   runCostCenterRm,
}

func init() {
	costCenterAddCmd.Flags().StringVar(&costCenterName, "name", "", "cost center name (required)")
	costCenterAddCmd.Flags().StringVar(&costCenterDescription, "description", "", "description")
	costCenterAddCmd.Flags().StringVar(&costCenterColor, "color", "", "display color")
	costCenterAddCmd.MarkFlagRequired("name")

	costCenterListCmd.Flags().BoolVar(&costCenterAll, "all", false, "include inactive cost centers")

	costCenterCmd.AddCommand(costCenterAddCmd)
	costCenterCmd.AddCommand(costCenterListCmd)
	costCenterCmd.AddCommand(costCenterRmCmd)
}

func runCostCenterAdd(cmd *cobra.Command, args []string) {
	conn, _, tenant := openLedger()
	defer conn.Close()

	var center *ledger.CostCenter
	err := mutate(conn, func(tx *sql.Tx) error {
		var err error
		center, err = store.CreateCostCenter(context.Background(), tx, tenant, store.CreateCostCenterParams{
			Name:        costCenterName,
			Description: costCenterDescription,
			Color:       costCenterColor,
		})
		return err
	})
	exitOnError(err, "failed to create cost center")

	fmt.Printf("Created cost center %s (%s)\n", center.Name, center.ID)
}

func runCostCenterList(cmd *cobra.Command, args []string) {
	conn, _, tenant := openLedger()
	defer conn.Close()

	centers, err := store.ListCostCenters(context.Background(), conn.DB(), tenant, !costCenterAll)
	exitOnError(err, "failed to list cost centers")

	for _, center := range centers {
		marker := ""
		if !center.Active {
			marker = " (inactive)"
		}
		fmt.Printf("%s  %-20s %s%s\n", center.ID, center.Name, center.Description, marker)
	}
}

func runCostCenterRm(cmd *cobra.Command, args []string) {
	conn, _, tenant := openLedger()
	defer conn.Close()

	id, err := uuid.Parse(args[0])
	exitOnError(err, "invalid cost center id")

	var soft bool
	err = mutate(conn, func(tx *sql.Tx) error {
		var err error
		soft, err = store.DeleteCostCenter(context.Background(), tx, tenant, id)
		return err
	})
	exitOnError(err, "failed to remove cost center")

	if soft {
		fmt.Println("Cost center is referenced by transactions; deactivated instead")
	} else {
		fmt.Println("Cost center removed")
	}
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/seed"
)

var seedFile string

// seedCmd represents the seed command.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Bootstrap a tenant from a YAML file",
	Long: `Create a tenant's accounts, category tree, and cost centers from a
YAML declaration. The whole file is applied in one database
transaction: on any error nothing is created.

Example:
  ledger seed --file tenant.yaml`,
	Run: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "seed YAML file (required)")
	seedCmd.MarkFlagRequired("file")
}

func runSeed(cmd *cobra.Command, args []string) {
	conn, _, tenant := openLedger()
	defer conn.Close()

	file, err := seed.LoadFile(seedFile)
	exitOnError(err, "failed to load seed file")

	result, err := seed.Apply(context.Background(), conn, tenant, file)
	exitOnError(err, "failed to apply seed")

	slog.Info("Seed applied",
		"accounts", result.Accounts,
		"categories", result.Categories,
		"cost_centers", result.CostCenters,
	)
	fmt.Printf("Created %d accounts, %d categories, %d cost centers\n",
		result.Accounts, result.Categories, result.CostCenters)
}

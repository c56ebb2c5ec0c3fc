// Package cmd provides CLI commands for the ledger engine.
package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/config"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/engine"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
)

var (
	cfgFile    string
	dbPath     string
	tenantFlag string
	debug      bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Multi-tenant personal ledger over SQLite",
	Long: `ledger manages accounts, categories, cost centers, and transactions
for one or more tenants in a single SQLite database.

All balance-changing operations run in one serializable database
transaction, so an account balance always equals its initial balance
plus the sum of its settled transaction effects.

Example:
  ledger init
  ledger seed --file tenant.yaml
  ledger tx add --kind expense --description "Rent" --amount 1200 --due 2025-07-01 --source <account-id>
  ledger summary --from 2025-07-01 --to 2025-07-31`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides LEDGER_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&tenantFlag, "tenant", "", "tenant id (overrides LEDGER_TENANT_ID)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(costCenterCmd)
	rootCmd.AddCommand(txCmd)
	rootCmd.AddCommand(summaryCmd)
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")

	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if tenantFlag != "" {
		cfg.TenantID = tenantFlag
	}
	return cfg
}

// openLedger opens the database and resolves the tenant id. Every command
// except init needs both.
func openLedger() (*db.Connection, *engine.Engine, uuid.UUID) {
	cfg := loadConfig()
	err := cfg.Validate("dbPath", "tenantId")
	exitOnError(err, "invalid configuration")

	tenant, err := uuid.Parse(cfg.TenantID)
	exitOnError(err, "invalid tenant id")

	slog.Debug("Opening database", "path", cfg.DBPath)
	conn, err := db.Open(cfg.DBPath)
	exitOnError(err, "failed to open database")

	return conn, engine.New(conn), tenant
}

// mutate runs a store mutation in one serializable transaction, so its
// validation reads and writes cannot interleave with a concurrent engine
// reconciliation. Busy/locked responses surface as ErrConcurrencyConflict,
// as the engine does.
func mutate(conn *db.Connection, fn func(tx *sql.Tx) error) error {
	err := conn.Transaction(context.Background(), fn)
	if err != nil && db.IsBusy(err) {
		return fmt.Errorf("%w: %v", ledger.ErrConcurrencyConflict, err)
	}
	return err
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/db"
)

// initCmd represents the init command.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and its schema",
	Long: `Create the SQLite database file and apply the schema.

Opening an existing database is harmless: the schema statements are
idempotent.

Example:
  ledger init --db ./ledger.db`,
	Run: runInit,
}

func runInit(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	err := cfg.Validate("dbPath")
	exitOnError(err, "invalid configuration")

	conn, err := db.Open(cfg.DBPath)
	exitOnError(err, "failed to initialize database")
	defer conn.Close()

	slog.Info("Database initialized", "path", conn.Path())
	fmt.Printf("Database ready at %s\n", conn.Path())
}

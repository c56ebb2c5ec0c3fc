package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/store"
)

var (
	accountName    string
	accountKind    string
	accountBalance string
	accountColor   string
	accountAll     bool
	accountActive  bool
)

// accountCmd represents the account command group.
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts",
}

var accountAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an account",
	Long: `Create an account. The current balance starts equal to the initial
balance.

Example:
  ledger account add --name "Main Checking" --kind checking --balance 1500.00`,
	Run: runAccountAdd,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Run:   runAccountList,
}

var accountUpdateCmd = &cobra.Command{
	Use:   "update <account-id>",
	Short: "Update an account",
	Long: `Update an account. Changing the initial balance shifts the current
balance by the same difference, so settled history keeps adding up.`,
	Args: cobra.ExactArgs(1),
	Run:  runAccountUpdate,
}

var accountRmCmd = &cobra.Command{
	Use:   "rm <account-id>",
	Short: "Remove an account",
	Long: `Remove an account. An account referenced by transactions is
deactivated instead of removed, so history stays intact.`,
	Args: cobra.ExactArgs(1),
	Run:  runAccountRm,
}

func init() {
	accountAddCmd.Flags().StringVar(&accountName, "name", "", "account name (required)")
	accountAddCmd.Flags().StringVar(&accountKind, "kind", "checking", "account kind (checking|savings|investment|credit-card|debit-card|cash|other)")
	accountAddCmd.Flags().StringVar(&accountBalance, "balance", "0", "initial balance")
	accountAddCmd.Flags().StringVar(&accountColor, "color", "", "display color")
	accountAddCmd.MarkFlagRequired("name")

	accountListCmd.Flags().BoolVar(&accountAll, "all", false, "include inactive accounts")

	accountUpdateCmd.Flags().StringVar(&accountName, "name", "", "new name")
	accountUpdateCmd.Flags().StringVar(&accountKind, "kind", "", "new kind")
	accountUpdateCmd.Flags().StringVar(&accountBalance, "balance", "", "new initial balance")
	accountUpdateCmd.Flags().StringVar(&accountColor, "color", "", "new display color")
	accountUpdateCmd.Flags().BoolVar(&accountActive, "active", true, "active flag")

	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountUpdateCmd)
	accountCmd.AddCommand(accountRmCmd)
}

func runAccountAdd(cmd *cobra.Command, args []string) {
	conn, _, tenant := openLedger()
	defer conn.Close()

	balance, err := decimal.NewFromString(accountBalance)
	exitOnError(err, "invalid balance")

	var account *ledger.Account
	err = mutate(conn, func(tx *sql.Tx) error {
		var err error
		account, err = store.CreateAccount(context.Background(), tx, tenant, store.CreateAccountParams{
			Name:           accountName,
			Kind:           ledger.AccountKind(accountKind),
			InitialBalance: balance,
			Color:          accountColor,
		})
		return err
	})
	exitOnError(err, "failed to create account")

	fmt.Printf("Created account %s (%s)\n", account.Name, account.ID)
}

func runAccountList(cmd *cobra.Command, args []string) {
	conn, _, tenant := openLedger()
	defer conn.Close()

	accounts, err := store.ListAccounts(context.Background(), conn.DB(), tenant, !accountAll)
	exitOnError(err, "failed to list accounts")

	total := decimal.Zero
	for _, account := range accounts {
		marker := ""
		if !account.Active {
			marker = " (inactive)"
		}
		fmt.Printf("%s  %-20s %-12s %12s%s\n",
			account.ID, account.Name, account.Kind, account.CurrentBalance, marker)
		if account.Active {
			total = total.Add(account.CurrentBalance)
		}
	}
	fmt.Printf("\nTotal balance: %s\n", total)
}

func runAccountUpdate(cmd *cobra.Command, args []string) {
	conn, _, tenant := openLedger()
	defer conn.Close()

	id, err := uuid.Parse(args[0])
	exitOnError(err, "invalid account id")

	params := store.UpdateAccountParams{}
	if cmd.Flags().Changed("name") {
		params.Name = &accountName
	}
	if cmd.Flags().Changed("kind") {
		kind := ledger.AccountKind(accountKind)
		params.Kind = &kind
	}
	if cmd.Flags().Changed("balance") {
		balance, err := decimal.NewFromString(accountBalance)
		exitOnError(err, "invalid balance")
		params.InitialBalance = &balance
	}
	if cmd.Flags().Changed("color") {
		params.Color = &accountColor
	}
	if cmd.Flags().Changed("active") {
		params.Active = &accountActive
	}

	var account *ledger.Account
	err = mutate(conn, func(tx *sql.Tx) error {
		var err error
		account, err = store.UpdateAccount(context.Background(), tx, tenant, id, params)
		return err
	})
	exitOnError(err, "failed to update account")

	fmt.Printf("Updated account %s, balance %s\n", account.Name, account.CurrentBalance)
}

func runAccountRm(cmd *cobra.Command, args []string) {
	conn, _, tenant := openLedger()
	defer conn.Close()

	id, err := uuid.Parse(args[0])
	exitOnError(err, "invalid account id")

	var soft bool
	err = mutate(conn, func(tx *sql.Tx) error {
		var err error
		soft, err = store.DeleteAccount(context.Background(), tx, tenant, id)
		return err
	})
	exitOnError(err, "failed to remove account")

	if soft {
		fmt.Println("Account is referenced by transactions; deactivated instead")
	} else {
		fmt.Println("Account removed")
	}
}

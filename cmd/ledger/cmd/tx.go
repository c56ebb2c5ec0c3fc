package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/engine"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
	"github.com/shunichi-ikebuchi/ledger-engine/pkg/store"
)

var (
	txKind         string
	txDescription  string
	txAmount       string
	txIssue        string
	txDue          string
	txSource       string
	txDestination  string
	txCategory     string
	txCostCenter   string
	txNotes        string
	txRecurrence   string
	txInstallments int
	txPaid         bool
	txPaidOn       string
	txActor        string

	txFilterStatus string
	txFilterFrom   string
	txFilterTo     string
	txReconciled   bool
	txFilterLimit  int
	txFilterOffset int
	txSortBy       string
	txSortDesc     bool
)

// defaultActor is the audit actor recorded when --actor is not given.
func defaultActor() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "cli"
}

// txCmd represents the tx command group.
var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Manage transactions",
}

var txAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a transaction",
	Long: `Create a transaction. A recurrence creates the whole installment
series up front; a transfer moves money between two accounts and needs
--destination.

Example:
  ledger tx add --kind expense --description "Rent" --amount 1200 --due 2025-07-01 --source <account-id>
  ledger tx add --kind expense --description "Gym" --amount 50 --due 2025-07-05 --source <account-id> --recurrence monthly --installments 11`,
	Run: runTxAdd,
}

var txListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions",
	Run:   runTxList,
}

var txPayCmd = &cobra.Command{
	Use:   "pay <tx-id>",
	Short: "Mark a transaction paid",
	Long: `Mark a pending or late transaction as paid and apply its balance
effect. Paying an already paid transaction is a no-op.`,
	Args: cobra.ExactArgs(1),
	Run:  runTxPay,
}

var txReverseCmd = &cobra.Command{
	Use:   "reverse <tx-id>",
	Short: "Reverse a paid transaction",
	Long: `Undo the balance effect of a paid transaction. The record and its
payment date stay, with status reversed.`,
	Args: cobra.ExactArgs(1),
	Run:  runTxReverse,
}

var txRmCmd = &cobra.Command{
	Use:   "rm <tx-id>",
	Short: "Delete a transaction",
	Long: `Delete a transaction. Deleting the root of an installment series
deletes every child; every settled member has its balance effect
reversed first.`,
	Args: cobra.ExactArgs(1),
	Run:  runTxRm,
}

func init() {
	txAddCmd.Flags().StringVar(&txKind, "kind", "expense", "transaction kind (income|expense|transfer)")
	txAddCmd.Flags().StringVar(&txDescription, "description", "", "description (required)")
	txAddCmd.Flags().StringVar(&txAmount, "amount", "", "amount (required)")
	txAddCmd.Flags().StringVar(&txIssue, "issue", "", "issue date (YYYY-MM-DD, default today)")
	txAddCmd.Flags().StringVar(&txDue, "due", "", "due date (YYYY-MM-DD) (required)")
	txAddCmd.Flags().StringVar(&txSource, "source", "", "source account id (required)")
	txAddCmd.Flags().StringVar(&txDestination, "destination", "", "destination account id (transfers only)")
	txAddCmd.Flags().StringVar(&txCategory, "category", "", "category id")
	txAddCmd.Flags().StringVar(&txCostCenter, "costcenter", "", "cost center id")
	txAddCmd.Flags().StringVar(&txNotes, "notes", "", "free-form notes")
	txAddCmd.Flags().StringVar(&txRecurrence, "recurrence", "", "recurrence (daily|weekly|biweekly|monthly|bimonthly|quarterly|semiannual|annual)")
	txAddCmd.Flags().IntVar(&txInstallments, "installments", 0, "number of future installments (default 12)")
	txAddCmd.Flags().BoolVar(&txPaid, "paid", false, "create already paid")
	txAddCmd.Flags().StringVar(&txPaidOn, "paid-on", "", "payment date (YYYY-MM-DD, default today, implies --paid)")
	txAddCmd.Flags().StringVar(&txActor, "actor", defaultActor(), "audit actor")
	txAddCmd.MarkFlagRequired("description")
	txAddCmd.MarkFlagRequired("amount")
	txAddCmd.MarkFlagRequired("due")
	txAddCmd.MarkFlagRequired("source")

	txListCmd.Flags().StringVar(&txKind, "kind", "", "filter by kind")
	txListCmd.Flags().StringVar(&txFilterStatus, "status", "", "filter by status (pending|paid|late|cancelled|reversed)")
	txListCmd.Flags().StringVar(&txFilterFrom, "from", "", "due date lower bound (YYYY-MM-DD)")
	txListCmd.Flags().StringVar(&txFilterTo, "to", "", "due date upper bound (YYYY-MM-DD)")
	txListCmd.Flags().StringVar(&txSource, "account", "", "filter by account id (source or destination)")
	txListCmd.Flags().StringVar(&txCategory, "category", "", "filter by category id")
	txListCmd.Flags().StringVar(&txCostCenter, "costcenter", "", "filter by cost center id")
	txListCmd.Flags().BoolVar(&txReconciled, "reconciled", false, "filter by reconciled flag")
	txListCmd.Flags().IntVar(&txFilterLimit, "limit", 0, "page size (default 50)")
	txListCmd.Flags().IntVar(&txFilterOffset, "offset", 0, "page offset")
	txListCmd.Flags().StringVar(&txSortBy, "sort", "", "sort field (due_date|issue_date|amount|description|status|created_at)")
	txListCmd.Flags().BoolVar(&txSortDesc, "desc", false, "sort descending")

	txPayCmd.Flags().StringVar(&txPaidOn, "on", "", "payment date (YYYY-MM-DD, default today)")
	txPayCmd.Flags().StringVar(&txAmount, "amount", "", "restate the amount at payment time")
	txPayCmd.Flags().StringVar(&txActor, "actor", defaultActor(), "audit actor")

	txReverseCmd.Flags().StringVar(&txActor, "actor", defaultActor(), "audit actor")

	txCmd.AddCommand(txAddCmd)
	txCmd.AddCommand(txListCmd)
	txCmd.AddCommand(txPayCmd)
	txCmd.AddCommand(txReverseCmd)
	txCmd.AddCommand(txRmCmd)
}

func runTxAdd(cmd *cobra.Command, args []string) {
	conn, eng, tenant := openLedger()
	defer conn.Close()

	amount, err := decimal.NewFromString(txAmount)
	exitOnError(err, "invalid amount")
	due, err := ledger.ParseDate(txDue)
	exitOnError(err, "invalid due date")

	issue := time.Now().UTC().Truncate(24 * time.Hour)
	if txIssue != "" {
		issue, err = ledger.ParseDate(txIssue)
		exitOnError(err, "invalid issue date")
	}

	source, err := uuid.Parse(txSource)
	exitOnError(err, "invalid source account id")

	in := engine.CreateInput{
		Kind:          ledger.TransactionKind(txKind),
		Description:   txDescription,
		Amount:        amount,
		IssueDate:     issue,
		DueDate:       due,
		SourceID:      source,
		DestinationID: parseOptionalID(txDestination, "destination"),
		CategoryID:    parseOptionalID(txCategory, "category"),
		CostCenterID:  parseOptionalID(txCostCenter, "cost center"),
		Notes:         txNotes,
		Recurrence:    ledger.Recurrence(txRecurrence),
		Installments:  txInstallments,
		Actor:         txActor,
	}

	if txPaid || txPaidOn != "" {
		paidOn := issue
		if txPaidOn != "" {
			paidOn, err = ledger.ParseDate(txPaidOn)
			exitOnError(err, "invalid payment date")
		}
		in.Status = ledger.StatusPaid
		in.PaymentDate = &paidOn
	}

	root, children, err := eng.Create(context.Background(), tenant, in)
	exitOnError(err, "failed to create transaction")

	slog.Info("Transaction created", "id", root.ID, "children", len(children))
	fmt.Printf("Created %s (%s)\n", root.Description, root.ID)
	for _, child := range children {
		fmt.Printf("  %s due %s (%s)\n", child.Description, ledger.FormatDate(child.DueDate), child.ID)
	}
}

func runTxList(cmd *cobra.Command, args []string) {
	conn, eng, tenant := openLedger()
	defer conn.Close()

	filter := store.TransactionFilter{
		AccountID:    parseOptionalID(txSource, "account"),
		CategoryID:   parseOptionalID(txCategory, "category"),
		CostCenterID: parseOptionalID(txCostCenter, "cost center"),
	}
	if txKind != "" {
		kind := ledger.TransactionKind(txKind)
		filter.Kind = &kind
	}
	if txFilterStatus != "" {
		status := ledger.TransactionStatus(txFilterStatus)
		filter.Status = &status
	}
	if txFilterFrom != "" {
		from, err := ledger.ParseDate(txFilterFrom)
		exitOnError(err, "invalid from date")
		filter.DueFrom = &from
	}
	if txFilterTo != "" {
		to, err := ledger.ParseDate(txFilterTo)
		exitOnError(err, "invalid to date")
		filter.DueTo = &to
	}
	if cmd.Flags().Changed("reconciled") {
		filter.Reconciled = &txReconciled
	}

	rows, total, err := eng.List(context.Background(), tenant, filter,
		store.Page{Limit: txFilterLimit, Offset: txFilterOffset}, txSortBy, txSortDesc)
	exitOnError(err, "failed to list transactions")

	for _, row := range rows {
		account := row.SourceName
		if row.DestinationName != "" {
			account += " -> " + row.DestinationName
		}
		fmt.Printf("%s  %s  %-8s %-9s %10s  %-24s %s\n",
			row.ID, ledger.FormatDate(row.DueDate), row.Kind, row.Status,
			row.Amount, row.Description, account)
	}
	fmt.Printf("\n%d of %d transactions\n", len(rows), total)
}

func runTxPay(cmd *cobra.Command, args []string) {
	conn, eng, tenant := openLedger()
	defer conn.Close()

	id, err := uuid.Parse(args[0])
	exitOnError(err, "invalid transaction id")

	in := engine.PaymentInput{Pay: true, Actor: txActor}
	if txPaidOn != "" {
		on, err := ledger.ParseDate(txPaidOn)
		exitOnError(err, "invalid payment date")
		in.PaymentDate = &on
	}
	if txAmount != "" {
		amount, err := decimal.NewFromString(txAmount)
		exitOnError(err, "invalid amount")
		in.Amount = &amount
	}

	t, err := eng.SetPaymentStatus(context.Background(), tenant, id, in)
	exitOnError(err, "failed to pay transaction")

	fmt.Printf("Paid %s on %s\n", t.Description, ledger.FormatDate(*t.PaymentDate))
}

func runTxReverse(cmd *cobra.Command, args []string) {
	conn, eng, tenant := openLedger()
	defer conn.Close()

	id, err := uuid.Parse(args[0])
	exitOnError(err, "invalid transaction id")

	t, err := eng.SetPaymentStatus(context.Background(), tenant, id, engine.PaymentInput{Pay: false, Actor: txActor})
	exitOnError(err, "failed to reverse transaction")

	fmt.Printf("Reversed %s\n", t.Description)
}

func runTxRm(cmd *cobra.Command, args []string) {
	conn, eng, tenant := openLedger()
	defer conn.Close()

	id, err := uuid.Parse(args[0])
	exitOnError(err, "invalid transaction id")

	children, err := eng.Delete(context.Background(), tenant, id)
	exitOnError(err, "failed to delete transaction")

	if children > 0 {
		fmt.Printf("Deleted transaction and %d installments\n", children)
	} else {
		fmt.Println("Deleted transaction")
	}
}

// parseOptionalID parses an optional uuid flag, exiting on a malformed
// value.
func parseOptionalID(value, what string) *uuid.UUID {
	if value == "" {
		return nil
	}
	id, err := uuid.Parse(value)
	exitOnError(err, fmt.Sprintf("invalid %s id", what))
	return &id
}

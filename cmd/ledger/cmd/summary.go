package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-engine/pkg/ledger"
)

var (
	summaryFrom  string
	summaryTo    string
	summaryDaily bool
)

// summaryCmd represents the summary command.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Display a period summary",
	Long: `Display settled income and expense for a period, grouped by
category, plus outstanding receivables and payables and the total
balance across active accounts.

Example:
  ledger summary --from 2025-07-01 --to 2025-07-31
  ledger summary --from 2025-07-01 --to 2025-07-31 --daily`,
	Run: runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryFrom, "from", "", "period start (YYYY-MM-DD) (required)")
	summaryCmd.Flags().StringVar(&summaryTo, "to", "", "period end (YYYY-MM-DD) (required)")
	summaryCmd.Flags().BoolVar(&summaryDaily, "daily", false, "show the daily running-balance series")
	summaryCmd.MarkFlagRequired("from")
	summaryCmd.MarkFlagRequired("to")
}

func runSummary(cmd *cobra.Command, args []string) {
	conn, eng, tenant := openLedger()
	defer conn.Close()

	from, err := ledger.ParseDate(summaryFrom)
	exitOnError(err, "invalid from date")
	to, err := ledger.ParseDate(summaryTo)
	exitOnError(err, "invalid to date")

	summary, err := eng.Summarize(context.Background(), tenant, from, to)
	exitOnError(err, "failed to build summary")

	fmt.Printf("\n=== Summary %s .. %s ===\n", summaryFrom, summaryTo)
	fmt.Printf("Total balance:        %12s\n", summary.TotalBalance)
	fmt.Printf("Income (settled):     %12s\n", summary.IncomeTotal)
	fmt.Printf("Expense (settled):    %12s\n", summary.ExpenseTotal)
	fmt.Printf("Upcoming receivables: %12s\n", summary.UpcomingReceivables)
	fmt.Printf("Upcoming payables:    %12s\n", summary.UpcomingPayables)
	fmt.Printf("Overdue payables:     %12s\n", summary.OverduePayables)

	if len(summary.IncomeByCategory) > 0 {
		fmt.Println("\nIncome by category:")
		for _, total := range summary.IncomeByCategory {
			fmt.Printf("  %-24s %12s\n", categoryLabel(total.Category), total.Total)
		}
	}
	if len(summary.ExpenseByCategory) > 0 {
		fmt.Println("\nExpense by category:")
		for _, total := range summary.ExpenseByCategory {
			fmt.Printf("  %-24s %12s\n", categoryLabel(total.Category), total.Total)
		}
	}

	if summaryDaily {
		fmt.Println("\nDaily balance:")
		for _, day := range summary.Daily {
			fmt.Printf("  %s  +%10s  -%10s  = %12s\n",
				ledger.FormatDate(day.Date), day.Income, day.Expense, day.Balance)
		}
	}
	fmt.Println()
}

func categoryLabel(name string) string {
	if name == "" {
		return "(uncategorized)"
	}
	return name
}

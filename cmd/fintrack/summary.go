package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/spf13/cobra"
)

func (a *cli) summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard summary for one or more statements",
		Long: `Import bank statements (CSV or XLSX) into a scratch ledger and print
totals, month-over-month trends and the category breakdown.`,
		Example: `  fintrack summary --file statement.csv
  fintrack summary --file jan.csv --file feb.xlsx --now 2024-02-29 --json`,
		RunE: a.runSummary,
	}

	cmd.Flags().StringSlice("file", nil, "statement file to import (repeatable)")
	cmd.Flags().String("now", "", "summary date as YYYY-MM-DD (default: today)")
	cmd.Flags().Bool("json", false, "print the summary as JSON")

	_ = a.v.BindPFlag("summary.file", cmd.Flags().Lookup("file"))
	_ = a.v.BindPFlag("summary.now", cmd.Flags().Lookup("now"))
	_ = a.v.BindPFlag("summary.json", cmd.Flags().Lookup("json"))

	return cmd
}

func (a *cli) runSummary(cmd *cobra.Command, _ []string) error {
	now, err := resolveNow(a.v.GetString("summary.now"))
	if err != nil {
		return err
	}

	ledger, err := a.loadLedger(cmd.Context(), a.v.GetStringSlice("summary.file"), now)
	if err != nil {
		return err
	}

	summary, err := ledger.Summary(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to compute summary: %w", err)
	}

	if a.v.GetBool("summary.json") {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summaryOutput{
			Summary:     summary,
			TopCategory: summary.TopCategory(),
			AsOf:        now,
		})
	}

	return printSummary(cmd.OutOrStdout(), summary, a.v.GetString("currency"), now)
}

type summaryOutput struct {
	Summary     services.Summary `json:"summary"`
	TopCategory string           `json:"top_category"`
	AsOf        time.Time        `json:"as_of"`
}

func printSummary(out io.Writer, summary services.Summary, currency string, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "As of\t%s\n", now.Format("2006-01-02"))
	fmt.Fprintf(w, "Transactions\t%d\n", summary.Total)
	fmt.Fprintf(w, "Income\t%s\t%s\n", services.FormatAmount(summary.Income, currency), services.FormatPercent(summary.Trend.Income))
	fmt.Fprintf(w, "Expenses\t%s\t%s\n", services.FormatAmount(summary.Expenses, currency), services.FormatPercent(summary.Trend.Expenses))
	fmt.Fprintf(w, "Balance\t%s\n", services.FormatAmount(summary.Balance, currency))
	fmt.Fprintf(w, "Top category\t%s\n", summary.TopCategory())

	if len(summary.Breakdown) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "CATEGORY\tAMOUNT")
		for _, c := range summary.Breakdown {
			fmt.Fprintf(w, "%s\t%s\n", c.Name, services.FormatAmount(c.Amount, currency))
		}
	}

	return w.Flush()
}

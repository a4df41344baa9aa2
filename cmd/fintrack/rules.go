package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ashmitsharp/fintrack-api/internal/models"
	"github.com/ashmitsharp/fintrack-api/internal/services"
	"github.com/spf13/cobra"
)

func (a *cli) rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the default categorization rules",
	}

	cmd.AddCommand(a.rulesListCmd())
	cmd.AddCommand(a.rulesTestCmd())

	return cmd
}

func (a *cli) rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules by priority",
		RunE: func(cmd *cobra.Command, _ []string) error {
			categorizer := services.NewCategorizer(services.NewMemoryRuleStore(services.DefaultRules()...))
			rules, err := categorizer.Rules(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRIORITY\tMATCH\tKEYWORD\tCATEGORY")
			for _, r := range rules {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Priority, r.MatchType, r.Keyword, r.Category)
			}
			return w.Flush()
		},
	}
}

func (a *cli) rulesTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <description>...",
		Short: "Show the category each description would receive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			categorizer := services.NewCategorizer(services.NewMemoryRuleStore(services.DefaultRules()...))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DESCRIPTION\tCATEGORY")
			for _, description := range args {
				category, err := categorizer.Categorize(cmd.Context(), description)
				if err != nil {
					return fmt.Errorf("failed to categorize %q: %w", description, err)
				}
				if category == "" {
					category = models.DefaultCategory + " (no match)"
				}
				fmt.Fprintf(w, "%s\t%s\n", strings.TrimSpace(description), category)
			}
			return w.Flush()
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-advisor/internal/store"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all experiments",
		Long:  `List all experiments with their state and total counts.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				experiments, err := s.ListExperiments(ctx)
				if err != nil {
					return fmt.Errorf("failed to list experiments: %w", err)
				}

				if len(experiments) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No experiments yet.")
					fmt.Fprintln(cmd.OutOrStdout())
					fmt.Fprintln(cmd.OutOrStdout(), "Create one with:")
					fmt.Fprintln(cmd.OutOrStdout(), `  ab-advisor create hero --variants "A,B"`)
					return nil
				}

				// Print table
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tMETRIC\tSTATE\tVARIANTS\tTRAFFIC\tSUCCESSES\tWINNER\tCREATED")

				for _, exp := range experiments {
					counts, err := s.GetVariantCounts(ctx, exp.Name)
					if err != nil {
						return fmt.Errorf("failed to get counts for experiment %s: %w", exp.Name, err)
					}

					totalTraffic := 0
					totalSuccesses := 0
					for _, c := range counts {
						totalTraffic += c.Traffic
						totalSuccesses += c.Successes
					}

					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
						exp.Name,
						exp.Metric,
						strings.ToUpper(string(exp.State)),
						len(exp.Variants),
						formatNumber(totalTraffic),
						formatNumber(totalSuccesses),
						orDash(exp.Winner),
						exp.CreatedAt.Format("2006-01-02"),
					)
				}

				return w.Flush()
			})
		},
	}
}

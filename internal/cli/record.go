package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-advisor/internal/advisor"
)

func newRecordCmd(a *app) *cobra.Command {
	var (
		traffic   int
		successes int
		set       bool
	)

	cmd := &cobra.Command{
		Use:   "record <name> <variant>",
		Short: "Record traffic and successes for a variant",
		Long: `Add traffic and successes to a variant, or replace its totals with --set.
The variant is given by name or index.

Examples:
  ab-advisor record hero "Ship Faster" --traffic 1200 --successes 84
  ab-advisor record hero 1 --traffic 5000 --successes 410 --set`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, variant := args[0], args[1]

			return a.withAdvisor(func(svc *advisor.Service) error {
				ctx := context.Background()
				if err := svc.Record(ctx, name, variant, traffic, successes, set); err != nil {
					return friendly(name, err)
				}

				_, in, err := svc.Counts(ctx, name)
				if err != nil {
					return friendly(name, err)
				}
				for i, v := range in.Variants {
					if v.Name == variant || strconv.Itoa(i) == variant {
						fmt.Fprintf(cmd.OutOrStdout(), "%s / %s: %s traffic, %s successes\n",
							name, v.Name, formatNumber(v.Traffic), formatNumber(v.Successes))
						break
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&traffic, "traffic", "t", 0, "traffic to add (or set)")
	cmd.Flags().IntVarP(&successes, "successes", "s", 0, "successes to add (or set)")
	cmd.Flags().BoolVar(&set, "set", false, "replace the totals instead of adding")

	return cmd
}

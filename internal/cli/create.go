package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-advisor/internal/advisor"
	"github.com/gkobilansky/ab-advisor/internal/decision"
)

func newCreateCmd(a *app) *cobra.Command {
	var (
		variants string
		metric   string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new experiment",
		Long: `Create a named experiment with 2 to 5 variants. The first variant is the control.

Examples:
  ab-advisor create hero --variants "Ship Faster,Build Better"
  ab-advisor create checkout --variants "Control,One Page,Express" --metric conversion`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			variantList := splitList(variants)

			return a.withAdvisor(func(svc *advisor.Service) error {
				exp, err := svc.Create(context.Background(), name, metric, variantList)
				if err != nil {
					return friendly(name, err)
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Created experiment '%s' (%s) with %d variants:\n", exp.Name, exp.Metric, len(exp.Variants))
				for i, v := range exp.Variants {
					suffix := ""
					if i == 0 {
						suffix = " (control)"
					}
					fmt.Fprintf(w, "  %d: %s%s\n", i, v, suffix)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&variants, "variants", "v", "", "comma-separated variant names (required)")
	cmd.Flags().StringVarP(&metric, "metric", "m", string(decision.MetricCTR), "metric: ctr or conversion")
	cmd.MarkFlagRequired("variants")

	return cmd
}

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-advisor/internal/advisor"
	"github.com/gkobilansky/ab-advisor/internal/store"
)

func newResultsCmd(a *app) *cobra.Command {
	var (
		save   bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "results <name>",
		Short: "Show the decision for an experiment",
		Long: `Run the significance test on an experiment's current counts and show
rates, confidence intervals, lift and the verdict.

With --save the decision is also added to the experiment's history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return a.withAdvisor(func(svc *advisor.Service) error {
				ctx := context.Background()

				var (
					ev  *advisor.Evaluation
					rec *store.DecisionRecord
					err error
				)
				if save {
					ev, rec, err = svc.EvaluateAndSave(ctx, name)
				} else {
					ev, err = svc.Evaluate(ctx, name)
				}
				if err != nil {
					return friendly(name, err)
				}

				if asJSON {
					return writeJSON(cmd.OutOrStdout(), ev.Result)
				}

				w := cmd.OutOrStdout()
				exp := ev.Experiment
				fmt.Fprintf(w, "EXPERIMENT: %s\n", exp.Name)
				fmt.Fprintf(w, "METRIC: %s\n", ev.Input.Metric.Noun())
				fmt.Fprintf(w, "STATE: %s\n", exp.State)
				if exp.Winner != "" {
					fmt.Fprintf(w, "CONCLUDED WINNER: %s\n", exp.Winner)
				}
				fmt.Fprintf(w, "CREATED: %s\n", exp.CreatedAt.Format("2006-01-02"))
				fmt.Fprintln(w)

				printResult(w, ev.Result)

				if rec != nil {
					fmt.Fprintf(w, "\nSaved decision %s\n", rec.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "save the decision to the experiment history")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")

	return cmd
}

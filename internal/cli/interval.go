package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-advisor/internal/format"
	"github.com/gkobilansky/ab-advisor/internal/stats"
)

type intervalOutput struct {
	Successes  int     `json:"successes"`
	Trials     int     `json:"trials"`
	Confidence float64 `json:"confidence"`
	Rate       float64 `json:"rate"`
	Low        float64 `json:"ciLow"`
	High       float64 `json:"ciHigh"`
}

func newIntervalCmd(a *app) *cobra.Command {
	var (
		confidence float64
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "interval <successes> <trials>",
		Short: "Wilson score interval for a single rate",
		Long: `Print the Wilson score confidence interval for successes out of trials.

Examples:
  ab-advisor interval 50 1000
  ab-advisor interval 3 12 --confidence 0.99`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			successes, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid successes %q: %w", args[0], err)
			}
			trials, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid trials %q: %w", args[1], err)
			}
			if successes < 0 || trials < 0 || successes > trials {
				return fmt.Errorf("need 0 <= successes <= trials, got %d/%d", successes, trials)
			}
			if confidence <= 0 || confidence >= 1 {
				return fmt.Errorf("confidence must be between 0 and 1, got %v", confidence)
			}

			out := intervalOutput{Successes: successes, Trials: trials, Confidence: confidence}
			out.Low, out.High = stats.WilsonInterval(successes, trials, confidence)
			if trials > 0 {
				out.Rate = float64(successes) / float64(trials)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			if trials == 0 {
				fmt.Fprintln(w, "No trials: the interval is undefined.")
				return nil
			}
			fmt.Fprintf(w, "RATE: %s (%s)\n", format.Pct(out.Rate), format.Counts(successes, trials))
			fmt.Fprintf(w, "%.4g%% CI: [%s, %s]\n", confidence*100, format.Pct(out.Low), format.Pct(out.High))
			return nil
		},
	}

	cmd.Flags().Float64VarP(&confidence, "confidence", "c", 0.95, "confidence level")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

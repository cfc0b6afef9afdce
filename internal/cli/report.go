package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-advisor/internal/advisor"
	"github.com/gkobilansky/ab-advisor/internal/decision"
	"github.com/gkobilansky/ab-advisor/internal/report"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		out      string
		file     string
		variants []string
		metric   string
	)

	cmd := &cobra.Command{
		Use:   "report [name]",
		Short: "Write a text report of a decision",
		Long: `Write the A/B test results summary for a stored experiment, or for counts
given with --file or --variant.

The report goes to stdout unless --out is set. When --out is a directory
the file is named AB_Test_Results_<date>.txt.

Examples:
  ab-advisor report hero
  ab-advisor report hero --out ./reports
  ab-advisor report --variant A:1000:50 --variant B:1000:70 --out summary.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()

			var (
				res *decision.Result
				m   decision.Metric
			)
			switch {
			case len(args) == 1:
				if file != "" || len(variants) > 0 {
					return errors.New("give an experiment name or --file/--variant, not both")
				}
				err := a.withAdvisor(func(svc *advisor.Service) error {
					ev, err := svc.Evaluate(context.Background(), args[0])
					if err != nil {
						return friendly(args[0], err)
					}
					res, m = ev.Result, ev.Input.Metric
					return nil
				})
				if err != nil {
					return err
				}
			default:
				req, err := buildRequest(cmd, variants, file, metric, false)
				if err != nil {
					return err
				}
				in, err := req.ToInput()
				if err != nil {
					return err
				}
				if res, err = decision.Decide(in); err != nil {
					return err
				}
				m = in.Metric
			}

			if out == "" || out == "-" {
				return report.Write(cmd.OutOrStdout(), res, m, report.Options{Date: now, Color: out == ""})
			}

			path := out
			if info, err := os.Stat(out); err == nil && info.IsDir() {
				path = filepath.Join(out, report.DefaultFileName(now))
			}
			if err := os.WriteFile(path, []byte(report.Render(res, m, report.Options{Date: now})), 0644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}

			a.logger.Info("report written", "path", path)
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory (default stdout)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read counts from a .json or .yaml file")
	cmd.Flags().StringArrayVar(&variants, "variant", nil, "variant as name:traffic:successes (repeatable)")
	cmd.Flags().StringVarP(&metric, "metric", "m", string(decision.MetricCTR), "metric for --variant input")
	cmd.MarkFlagsMutuallyExclusive("variant", "file")

	return cmd
}

package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-advisor/internal/advisor"
	"github.com/gkobilansky/ab-advisor/internal/input"
)

func newExportCmd(a *app) *cobra.Command {
	var exportFormat string

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Export variant counts",
		Long: `Export an experiment's variant counts as CSV or JSON.

The JSON form is the same shape 'decide --file' reads, so an export can be
decided on or shared without the database.

Examples:
  ab-advisor export hero --format csv > hero.csv
  ab-advisor export hero --format json > hero.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if exportFormat != "csv" && exportFormat != "json" {
				return fmt.Errorf("invalid format: must be 'csv' or 'json'")
			}

			return a.withAdvisor(func(svc *advisor.Service) error {
				_, in, err := svc.Counts(context.Background(), name)
				if err != nil {
					return friendly(name, err)
				}

				req := input.FromInput(in)
				if exportFormat == "csv" {
					return exportCSV(cmd.OutOrStdout(), req)
				}
				return writeJSON(cmd.OutOrStdout(), req)
			})
		},
	}

	cmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv or json)")

	return cmd
}

func exportCSV(out io.Writer, req input.Request) error {
	w := csv.NewWriter(out)

	// Write header
	if err := w.Write([]string{"index", "variant", "traffic", "successes", "rate"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Write rows
	for i, v := range req.Variants {
		rate := 0.0
		if v.Traffic > 0 {
			rate = float64(v.Successes) / float64(v.Traffic)
		}
		row := []string{
			strconv.Itoa(i),
			v.Name,
			strconv.Itoa(v.Traffic),
			strconv.Itoa(v.Successes),
			strconv.FormatFloat(rate, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	return w.Error()
}

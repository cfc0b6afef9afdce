package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-advisor/internal/advisor"
	"github.com/gkobilansky/ab-advisor/internal/format"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <name>",
		Short: "List saved decisions for an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return a.withAdvisor(func(svc *advisor.Service) error {
				records, err := svc.History(context.Background(), name)
				if err != nil {
					return friendly(name, err)
				}

				if len(records) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No saved decisions for '%s'. Save one with: ab-advisor results %s --save\n", name, name)
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSAVED\tTEST\tP-VALUE\tSIGNIFICANT\tWINNER\tLEADER")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						shortID(r.ID),
						r.CreatedAt.Format("2006-01-02 15:04"),
						r.TestName,
						format.P(r.PValue),
						yesNo(r.Significant),
						orDash(r.Winner),
						orDash(r.Leader),
					)
				}
				return w.Flush()
			})
		},
	}

	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

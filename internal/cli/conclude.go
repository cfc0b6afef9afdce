package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-advisor/internal/advisor"
)

func newConcludeCmd(a *app) *cobra.Command {
	var variant string

	cmd := &cobra.Command{
		Use:   "conclude <name>",
		Short: "Mark an experiment completed with a winner",
		Long: `Complete an experiment. Without --variant the current statistically
significant winner is used, and the command fails when there is none.

Examples:
  ab-advisor conclude hero
  ab-advisor conclude hero --variant "Build Better"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			return a.withAdvisor(func(svc *advisor.Service) error {
				winner, err := svc.Conclude(context.Background(), name, variant)
				if errors.Is(err, advisor.ErrNoWinner) {
					return fmt.Errorf("'%s' has no statistically significant winner yet; pick one with --variant", name)
				}
				if err != nil {
					return friendly(name, err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Concluded experiment '%s' with winner %q.\n", name, winner)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&variant, "variant", "v", "", "winning variant name or index (default: the significant winner)")

	return cmd
}

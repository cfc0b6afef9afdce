package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newTokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Show the API token of the running server",
		Long: `Show the API token written by 'ab-advisor serve'.

Use this when you've scrolled past the startup message.

Example:
  ab-advisor token`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(a.tokenFilePath())
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("no server running. Start with: ab-advisor serve")
				}
				return fmt.Errorf("failed to read token file: %w", err)
			}

			token := strings.TrimSpace(string(data))
			if token == "" {
				return fmt.Errorf("token file is empty. Restart the server with: ab-advisor serve")
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "API token: %s\n", token)
			fmt.Fprintln(w)
			fmt.Fprintf(w, "Example: curl -H \"Authorization: Bearer %s\" http://localhost:%d/api/experiments\n", token, a.cfg.Port)
			return nil
		},
	}
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gkobilansky/ab-advisor/internal/config"
	"github.com/gkobilansky/ab-advisor/internal/server"
	"github.com/gkobilansky/ab-advisor/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the ab-advisor HTTP server.

The server provides:
  - POST /api/decide for stateless decisions
  - Experiment endpoints under /api/experiments (token required)
  - Prometheus metrics at /metrics
  - Health check at /health

Without --token a random token is generated and printed.

Example:
  ab-advisor serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.SQLiteStore) error {
				srv, err := server.New(s, server.Options{
					Port:      a.cfg.Port,
					Token:     a.cfg.Token,
					TokenFile: a.tokenFilePath(),
					Logger:    a.logger,
				})
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				fmt.Fprintln(w)
				fmt.Fprintf(w, "ab-advisor running on http://localhost:%d\n", srv.Port())
				fmt.Fprintf(w, "API token: %s\n", srv.Token())
				fmt.Fprintln(w)
				fmt.Fprintln(w, "Press Ctrl+C to stop")

				ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return srv.Start(ctx)
			})
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "port to listen on (env ABA_PORT)")
	cmd.Flags().String("token", "", "API token (env ABA_TOKEN, default random)")
	a.bind(config.KeyPort, cmd.Flags().Lookup("port"))
	a.bind(config.KeyToken, cmd.Flags().Lookup("token"))

	return cmd
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gkobilansky/ab-advisor/internal/config"
	"github.com/gkobilansky/ab-advisor/internal/logging"
)

// app holds state shared by all commands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        config.Config
	logger     *slog.Logger
}

func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree with its own configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: config.New(), logger: logging.Discard()}

	rootCmd := &cobra.Command{
		Use:   "ab-advisor",
		Short: "A/B Test Advisor - decide whether an experiment has a winner",
		Long: `A/B Test Advisor picks the right significance test for your experiment,
tells you whether a variant is a winner or only leading, and prints
confidence intervals and lift against the control.

Decide on counts directly, or track named experiments in an embedded
SQLite database and serve them over an HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (yaml)")
	flags.String("db", "./ab-advisor.db", "database path (env ABA_DB_PATH)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	a.bind(config.KeyDBPath, flags.Lookup("db"))
	a.bind(config.KeyLogLevel, flags.Lookup("log-level"))
	a.bind(config.KeyLogFormat, flags.Lookup("log-format"))

	rootCmd.AddCommand(
		newDecideCmd(a),
		newIntervalCmd(a),
		newCreateCmd(a),
		newRecordCmd(a),
		newResultsCmd(a),
		newHistoryCmd(a),
		newConcludeCmd(a),
		newReportCmd(a),
		newExportCmd(a),
		newListCmd(a),
		newDeleteCmd(a),
		newServeCmd(a),
		newTokenCmd(a),
	)

	return rootCmd
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) bind(key string, flag *pflag.Flag) {
	if err := a.v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s: %v", key, err))
	}
}

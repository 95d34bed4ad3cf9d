package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/stateflow/internal/cli"
	"github.com/aretw0/stateflow/internal/config"
	"github.com/aretw0/stateflow/internal/logging"
	"github.com/spf13/cobra"
)

var (
	settings  = config.New()
	cfg       *config.Config
	logger    = logging.NewNop()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "stateflow",
	Short:         "stateflow is a workflow engine for finite state machines",
	Long:          `stateflow stores workflow definitions (states plus guarded actions), starts instances of them and moves each instance forward one explicit action at a time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.BindFlags(settings, cmd.Flags()); err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(settings, path)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, logCloser, err = cli.NewLogger(cfg.Log)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./stateflow.yaml when present)")
	flags.String("storage", config.DriverMemory, "Storage driver: memory, file, redis or postgres")
	flags.String("dir", ".stateflow", "Base directory for the file storage driver")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-file", "", "Also write logs to this rotating file")
	flags.String("redis", "localhost:6379", "Redis address for the redis storage driver")
	flags.String("dsn", "", "PostgreSQL DSN for the postgres storage driver")
}

// withApp builds the orchestrator for one command and tears it down afterwards.
func withApp(ctx context.Context, fn func(app *cli.App) error) error {
	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to release resources", "err", err)
		}
	}()
	return fn(app)
}

// warnEphemeral tells one-shot commands that their changes vanish with the process.
func warnEphemeral(cmd *cobra.Command) {
	if cfg.Storage.Driver == config.DriverMemory {
		cli.PrintSystemMessage(cmd.ErrOrStderr(), "memory storage does not persist between invocations; use --storage file for CLI workflows")
	}
}

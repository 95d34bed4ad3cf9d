package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/stateflow/internal/cli"
	"github.com/aretw0/stateflow/internal/presentation/tui"
	httpadapter "github.com/aretw0/stateflow/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Starts the orchestrator behind a JSON REST API with server-sent events, an OpenAPI document and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		return withApp(sc, func(app *cli.App) error {
			opts := []httpadapter.Option{
				httpadapter.WithLogger(logger),
				httpadapter.WithStreams(app.Streams),
			}
			if app.Metrics != nil {
				opts = append(opts, httpadapter.WithMetricsHandler(app.Metrics.Handler()))
			}

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           httpadapter.NewHandler(app.Service, opts...),
				ReadHeaderTimeout: 10 * time.Second,
			}

			if tui.IsInteractive(os.Stderr) {
				tui.PrintBanner(os.Stderr)
			}

			serverErrors := make(chan error, 1)
			go func() {
				logger.Info("HTTP server listening", "address", srv.Addr, "storage", cfg.Storage.Driver)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				return fmt.Errorf("server error: %w", err)

			case <-sc.Done():
				logger.Info("Shutdown started", "signal", fmt.Sprint(sc.Signal()))

				ctx, cancel := context.WithTimeout(context.WithoutCancel(sc), cfg.Server.ShutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(ctx); err != nil {
					logger.Error("Graceful shutdown did not complete", "timeout", cfg.Server.ShutdownTimeout, "err", err)
					if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("error killing server: %w", err)
					}
				}
				logger.Info("HTTP server stopped gracefully")
				return nil
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
}

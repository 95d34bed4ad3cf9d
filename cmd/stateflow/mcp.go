package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aretw0/stateflow/internal/cli"
	"github.com/aretw0/stateflow/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the orchestrator as MCP tools, so AI agents can author definitions and drive instances.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		return withApp(sc, func(app *cli.App) error {
			srv := mcp.NewServer(app.Service, mcp.WithLogger(logger))

			switch transport {
			case "stdio":
				// Stdout carries JSON-RPC.
				log.SetOutput(os.Stderr)
				logger.Info("Starting stateflow MCP Server (Stdio)")
				return srv.ServeStdio()
			case "sse":
				addr := fmt.Sprintf(":%d", port)
				baseURL := fmt.Sprintf("http://localhost:%d", port)
				if err := srv.ServeSSE(sc, addr, baseURL); err != nil {
					return err
				}
				logger.Info("MCP Server stopped gracefully")
				return nil
			default:
				return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}

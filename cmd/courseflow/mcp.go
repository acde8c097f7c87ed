package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/courseflow"
	"github.com/aretw0/courseflow/internal/cli"
	"github.com/aretw0/courseflow/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the dialogue flow as MCP tools, so a model host can start sessions and call
record_topic_interest, go_back_to_topics and exit_conversation directly.
State updates are sent to clients as notifications/courseflow/state.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfigAndLogger(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Stdout carries JSON-RPC on stdio.
		log.SetOutput(os.Stderr)

		ctx, stop := cli.ShutdownContext(cmd.Context())
		defer stop()

		notifier := mcp.NewNotifier()
		app, backend, err := cli.NewApp(ctx, cfg, logger, cli.AppOptions{Sink: notifier})
		if err != nil {
			return err
		}
		defer backend.Close()

		srv := mcp.NewServer(app.Service, notifier,
			mcp.WithLogger(logger),
			mcp.WithVersion(courseflow.Version),
		)

		switch transport {
		case "stdio":
			logger.Info("starting courseflow MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("starting courseflow MCP server (SSE)", "port", port)
			if err := srv.ServeSSE(ctx, port); err != nil {
				return fmt.Errorf("MCP server execution failed: %w", err)
			}
			logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	qmcp "github.com/quartzbi/quartz/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the workspace's
data sources and API key activity as tools for AI agents like Claude. Supports
stdio (default) and HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for direct integration with Claude Desktop or other MCP clients.

In HTTP mode, the server listens on the specified port for streamable HTTP
connections.`,
		Example: `  quartz mcp                               # stdio mode (for Claude Desktop)
  quartz mcp --transport http --port 3001  # HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(transport string, port int) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("init config store: %w", err)
	}
	defer store.Close()

	registry := newRegistry()
	defer registry.CloseAll()

	// Connect all active sources
	sources, err := store.ListSources(context.Background())
	if err != nil {
		logger.Warn("failed to load sources", "error", err)
	}
	for i := range sources {
		src := &sources[i]
		if !src.IsActive {
			continue
		}
		if err := registry.Connect(src.Name, connectionConfig(src)); err != nil {
			logger.Error("failed to connect source", "source", src.Name, "error", err)
		} else {
			logger.Info("connected source", "source", src.Name, "driver", src.Driver)
		}
	}

	mcpSrv := qmcp.NewMCPServer(registry, store, logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		return mcpSrv.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}

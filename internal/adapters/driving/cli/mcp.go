package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbot/internal/adapters/driving/mcp"
	"github.com/custodia-labs/ragbot/internal/app"
)

var mcpPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ask
questions about your documents.

By default the server communicates over stdio using JSON-RPC. Use --port
to serve the streamable HTTP transport instead.

Examples:
  # Stdio mode (default, for desktop assistants)
  ragbot mcp

  # HTTP mode (for MCP Inspector, remote access)
  ragbot mcp --port 8081

Assistant configuration:
  {
    "mcpServers": {
      "ragbot": {
        "command": "/path/to/ragbot",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		server, err := mcp.NewServer(&mcp.Ports{
			Chat:      a.Chat,
			Documents: a.Documents,
			Sessions:  a.Sessions,
			UserID:    userID,
		})
		if err != nil {
			return err
		}

		if mcpPort > 0 {
			addr := fmt.Sprintf(":%d", mcpPort)
			cmd.PrintErrf("MCP server listening on http://localhost%s\n", addr)
			return server.RunHTTP(ctx, addr)
		}
		return server.Run(ctx)
	})
}

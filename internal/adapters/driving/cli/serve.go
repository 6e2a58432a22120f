package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbot/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/ragbot/internal/app"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves uploads, streamed chat (server-sent events) and sessions over
HTTP until interrupted.

When an identity service is configured every /v1 request must carry
"Authorization: Bearer <access token>" and acts on that user's data.
Otherwise all requests act on the local user.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default [server] addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		addr := serveAddr
		if addr == "" {
			addr = a.Config.Server.Addr
		}

		router := httpapi.NewRouter(httpapi.Deps{
			Documents:   a.Documents,
			Chat:        a.Chat,
			Sessions:    a.Sessions,
			Auth:        a.Auth,
			RequireAuth: a.RemoteIdentity(),
		})

		cmd.Printf("RAGbot API listening on http://%s\n", addr)
		return httpapi.NewServer(addr, router).Run(ctx)
	})
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbot/internal/app"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/services"
)

// Export formats.
const (
	formatMarkdown = "markdown"
	formatText     = "text"
)

var (
	exportFormat     string
	exportOutput     string
	clearSessionsYes bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
	Long:  `List, create, show, export, import, or delete chat sessions.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session",
	Args:  cobra.NoArgs,
	RunE:  runSessionsNew,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export a session as Markdown or text",
	Long: `Writes the session transcript to stdout or to --output.
Markdown exports can be read back with 'ragbot sessions import'.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsExport,
}

var sessionsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a Markdown transcript as a new session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsImport,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [session-id]",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all your sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsClear,
}

func init() {
	sessionsExportCmd.Flags().StringVarP(&exportFormat, "format", "f", formatMarkdown, "export format (markdown or text)")
	sessionsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	sessionsClearCmd.Flags().BoolVarP(&clearSessionsYes, "yes", "y", false, "skip confirmation")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsExportCmd)
	sessionsCmd.AddCommand(sessionsImportCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		sessions, err := a.Sessions.List(ctx, userID)
		if err != nil {
			return err
		}

		if len(sessions) == 0 {
			cmd.Println("No sessions yet. Start one with 'ragbot sessions new' or 'ragbot chat'.")
			return nil
		}

		cmd.Println("Sessions:")
		for i := range sessions {
			cmd.Printf("  %s  %s  (updated %s)\n",
				sessions[i].ID, sessions[i].Title, sessions[i].UpdatedAt.Local().Format(time.DateTime))
		}
		return nil
	})
}

func runSessionsNew(cmd *cobra.Command, _ []string) error {
	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		session, err := a.Sessions.Create(ctx, userID)
		if err != nil {
			return err
		}
		cmd.Printf("Created session %s\n", session.ID)
		cmd.Printf("Ask in it with: ragbot ask --session %s \"your question\"\n", session.ID)
		return nil
	})
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		session, err := a.Sessions.Get(ctx, userID, args[0])
		if err != nil {
			return err
		}
		cmd.Print(a.Sessions.ExportText(session))
		return nil
	})
}

func runSessionsExport(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(exportFormat)
	if format != formatMarkdown && format != formatText {
		return &userError{msg: fmt.Sprintf("Unknown format %q. Use markdown or text.", exportFormat)}
	}

	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		session, err := a.Sessions.Get(ctx, userID, args[0])
		if err != nil {
			return err
		}

		content := a.Sessions.ExportMarkdown(session)
		if format == formatText {
			content = a.Sessions.ExportText(session)
		}

		if exportOutput == "" {
			cmd.Print(content)
			return nil
		}
		if err := os.WriteFile(exportOutput, []byte(content), 0600); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		cmd.Printf("Exported %q to %s\n", sessionTitle(session), exportOutput)
		return nil
	})
}

func runSessionsImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}
	transcript, err := services.ParseMarkdown(string(data))
	if err != nil {
		return err
	}

	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		session, err := a.Sessions.Import(ctx, userID, transcript)
		if err != nil {
			return err
		}
		cmd.Printf("Imported %q as session %s (%d messages)\n", session.Title, session.ID, len(session.Messages))
		return nil
	})
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		if err := a.Sessions.Delete(ctx, userID, args[0]); err != nil {
			return err
		}
		cmd.Printf("Deleted session %s\n", args[0])
		return nil
	})
}

func runSessionsClear(cmd *cobra.Command, _ []string) error {
	if !clearSessionsYes && !confirm(cmd, "Delete all your sessions?") {
		cmd.Println("Cancelled.")
		return nil
	}

	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		n, err := a.Sessions.ClearAll(ctx, userID)
		if err != nil {
			return err
		}
		cmd.Printf("Deleted %d %s\n", n, plural(n, "session"))
		return nil
	})
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// sessionTitle falls back to the default title for untitled sessions.
func sessionTitle(s *domain.Session) string {
	if s.Title == "" {
		return domain.DefaultSessionTitle
	}
	return s.Title
}

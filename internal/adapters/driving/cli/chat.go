package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui"
	"github.com/custodia-labs/ragbot/internal/app"
	"github.com/custodia-labs/ragbot/internal/core/services"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat",
	Long: `Opens the terminal chat interface.

Controls:
  Enter   - Send question
  Ctrl+N  - New chat
  Ctrl+O  - Sessions
  Ctrl+D  - Documents
  Esc     - Back / stop answer
  F1      - Toggle help
  Ctrl+C  - Quit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		ports := &tui.Ports{
			Conversation: services.NewConversation(a.Chat, a.Sessions, services.WithSaveErrors(true)),
			Sessions:     a.Sessions,
			Documents:    a.Documents,
			UserID:       userID,
		}

		ui, err := tui.NewApp(ctx, ports)
		if err != nil {
			return fmt.Errorf("failed to create TUI: %w", err)
		}
		if err := ui.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	})
}

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbot/internal/app"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all your documents and sessions",
	Long: `Removes every indexed chunk and every chat session you own.
Other users' data is untouched.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip confirmation")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if !clearYes && !confirm(cmd, "Delete all your documents and sessions?") {
		cmd.Println("Cancelled.")
		return nil
	}

	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		if err := a.Documents.ClearAll(ctx, userID); err != nil {
			return err
		}
		n, err := a.Sessions.ClearAll(ctx, userID)
		if err != nil {
			return err
		}
		cmd.Printf("Cleared all documents and %d %s\n", n, plural(n, "session"))
		return nil
	})
}

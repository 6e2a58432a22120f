package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbot/internal/app"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage uploaded documents",
	Long:    `List, delete, or count your uploaded documents.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a document and all its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document and chunk counts",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsStats,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsStatsCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		names, err := a.Documents.List(ctx, userID)
		if err != nil {
			return err
		}

		if len(names) == 0 {
			cmd.Println("No documents uploaded yet.")
			return nil
		}

		cmd.Println("Documents:")
		for _, name := range names {
			cmd.Printf("  %s\n", name)
		}
		cmd.Printf("\nTotal: %d documents\n", len(names))
		return nil
	})
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		if err := a.Documents.Delete(ctx, userID, args[0]); err != nil {
			return err
		}
		cmd.Printf("Deleted %s\n", args[0])
		return nil
	})
}

func runDocumentsStats(cmd *cobra.Command, _ []string) error {
	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		stats, err := a.Documents.Stats(ctx, userID)
		if err != nil {
			return err
		}
		cmd.Printf("Documents: %d\n", stats.Documents)
		cmd.Printf("Chunks:    %d\n", stats.Chunks)
		return nil
	})
}

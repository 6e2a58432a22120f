package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbot/internal/app"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/services"
)

var (
	askSession    string
	askSaveErrors bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Streams an answer grounded in your uploaded documents and lists the
documents it drew on.

With --session the question joins that session: earlier turns are used to
rewrite follow-up questions and both the question and the answer are
saved to it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session to continue and record into")
	askCmd.Flags().BoolVar(&askSaveErrors, "save-errors", false, "record failed answers in the session")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return &userError{msg: "Please enter a question."}
	}

	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		events, err := askEvents(ctx, a, userID, question)
		if err != nil {
			return err
		}
		return printStream(ctx, cmd, events)
	})
}

func askEvents(ctx context.Context, a *app.App, userID, question string) (<-chan domain.StreamEvent, error) {
	if askSession == "" {
		return a.Chat.Ask(ctx, userID, question, nil), nil
	}
	conv := services.NewConversation(a.Chat, a.Sessions, services.WithSaveErrors(askSaveErrors))
	return conv.Ask(ctx, userID, askSession, question)
}

// printStream writes chunks as they arrive, then the sources. A stream
// that ends without a terminal event was cancelled.
func printStream(ctx context.Context, cmd *cobra.Command, events <-chan domain.StreamEvent) error {
	out := cmd.OutOrStdout()
	streamed := false
	for ev := range events {
		switch ev.Kind {
		case domain.EventChunk:
			streamed = true
			fmt.Fprint(out, ev.Text)
		case domain.EventComplete:
			if !streamed {
				fmt.Fprint(out, ev.FullText)
			}
			fmt.Fprintln(out)
			if ev.RewrittenQuery != "" && verbose {
				fmt.Fprintf(out, "\nSearched for: %s\n", ev.RewrittenQuery)
			}
			if len(ev.Sources) > 0 {
				fmt.Fprintf(out, "\nSources: %s\n", strings.Join(ev.Sources, ", "))
			}
			return nil
		case domain.EventError:
			if streamed {
				fmt.Fprintln(out)
			}
			return &userError{msg: ev.Message}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return &userError{msg: "The answer ended unexpectedly."}
}

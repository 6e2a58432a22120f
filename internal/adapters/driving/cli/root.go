// Package cli implements the ragbot command line.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragbot/internal/app"
	"github.com/custodia-labs/ragbot/internal/config"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/services"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// version is set at build time.
var version = "dev"

var (
	cfgFile string
	dataDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ragbot",
	Short: "Chat with your documents",
	Long: `RAGbot answers questions about the documents you upload.

Documents are extracted, chunked and embedded into a vector index. Each
question is rewritten against the conversation so far, matched against
your chunks, re-ranked and answered by a language model that streams its
reply and cites the documents it used.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.ragbot/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.ragbot)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion records the build version shown by `ragbot version`.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command until it finishes or the process is
// interrupted. Errors are printed in their user-facing form.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		rootCmd.PrintErrln("Error: " + errorText(err))
	}
	return err
}

// userError carries a message that is already fit to show.
type userError struct {
	msg string
}

func (e *userError) Error() string { return e.msg }

func errorText(err error) string {
	var ue *userError
	if errors.As(err, &ue) {
		return ue.msg
	}
	return domain.UserMessage(err)
}

// openApp builds the application container. Tests replace it.
var openApp = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.Options{Dir: dataDir})
}

// openAuth builds only the sign-in service and reports whether a remote
// identity provider is configured. Tests replace it.
var openAuth = func(_ context.Context) (*services.AuthService, bool, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, false, err
	}
	svc, err := app.NewAuth(cfg, app.Options{Dir: dataDir})
	if err != nil {
		return nil, false, err
	}
	return svc, cfg.Identity.URL != "", nil
}

// configPath resolves --config, then --data-dir, then the default.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if dataDir != "" {
		return filepath.Join(dataDir, "config.toml")
	}
	return ""
}

// withApp runs fn against a freshly built container and closes it after.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, w := range a.Warnings {
		cmd.PrintErrln("Warning: " + w)
	}
	return fn(ctx, a)
}

// withUser is withApp for commands acting on one user's data.
func withUser(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, userID string) error) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		userID, err := a.UserID(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, a, userID)
	})
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/app"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driving"
	"github.com/custodia-labs/ragbot/internal/logger"
	"github.com/custodia-labs/ragbot/internal/normalisers"
)

// defaultWatchDebounce batches the burst of events an editor or copy
// produces for one file.
const defaultWatchDebounce = 500 * time.Millisecond

var (
	watchSkipExisting bool
	watchDebounce     time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Upload documents as they appear in a folder",
	Long: `Uploads every supported file already in the folder, then keeps
uploading files as they are created or changed until interrupted. A
changed file replaces its earlier chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchSkipExisting, "skip-existing", false, "only upload files changed after start")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", defaultWatchDebounce, "quiet period before uploading a changed file")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch folder: %w", err)
	}
	if !info.IsDir() {
		return &userError{msg: fmt.Sprintf("%s is not a folder.", dir)}
	}

	return withUser(cmd, func(ctx context.Context, a *app.App, userID string) error {
		w := &folderWatcher{
			docs:     a.Documents,
			userID:   userID,
			supports: normalisers.NewDefaultRegistry().Supports,
			debounce: watchDebounce,
			out:      cmd.OutOrStdout(),
		}
		cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
		return w.run(ctx, dir, !watchSkipExisting)
	})
}

// folderWatcher uploads supported files from one folder as they change.
type folderWatcher struct {
	docs     driving.DocumentService
	userID   string
	supports func(name string) bool
	debounce time.Duration
	out      io.Writer
}

// run blocks until ctx ends. With initial set, files already present are
// uploaded first.
func (w *folderWatcher) run(ctx context.Context, dir string, initial bool) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if initial {
		existing, err := w.existing(dir)
		if err != nil {
			return err
		}
		w.upload(ctx, existing)
	}

	pending := make(map[string]struct{})
	flush := time.NewTimer(w.debounce)
	flush.Stop()
	defer flush.Stop()

	log := logger.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.supports(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			flush.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))

		case <-flush.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			w.upload(ctx, paths)
		}
	}
}

func (w *folderWatcher) existing(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && w.supports(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

// upload sends each readable file. Files removed before the upload ran
// are skipped silently.
func (w *folderWatcher) upload(ctx context.Context, paths []string) {
	var files []domain.UploadFile
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			fmt.Fprintf(w.out, "✗ %s: %v\n", filepath.Base(p), err)
			continue
		}
		files = append(files, domain.UploadFile{Name: filepath.Base(p), Data: data})
	}
	if len(files) == 0 {
		return
	}

	for _, r := range w.docs.Upload(ctx, w.userID, files) {
		if r.Err != nil {
			fmt.Fprintf(w.out, "✗ %s: %s\n", r.FileName, domain.UserMessage(r.Err))
			continue
		}
		fmt.Fprintf(w.out, "✓ %s (%d %s)\n", r.FileName, r.Chunks, plural(r.Chunks, "chunk"))
	}
}

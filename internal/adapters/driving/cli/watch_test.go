package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/normalisers"
)

func TestWatchCmd_Flags(t *testing.T) {
	debounce := watchCmd.Flags().Lookup("debounce")
	require.NotNil(t, debounce)
	assert.Equal(t, defaultWatchDebounce.String(), debounce.DefValue)
	assert.NotNil(t, watchCmd.Flags().Lookup("skip-existing"))
}

func TestWatchCmd_RejectsFile(t *testing.T) {
	setupTestApp(t)
	path := writeFile(t, t.TempDir(), "notes.txt", serverNotes)

	_, err := runCLI(t, "", "watch", path)

	require.Error(t, err)
	assert.Equal(t, path+" is not a folder.", errorText(err))
}

func TestFolderWatcher_UploadsExistingAndNewFiles(t *testing.T) {
	env := setupTestApp(t)
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", serverNotes)
	writeFile(t, dir, "photo.png", "ignored")

	out := new(bytes.Buffer)
	w := &folderWatcher{
		docs:     env.app.Documents,
		userID:   domain.LocalUserID,
		supports: normalisers.NewDefaultRegistry().Supports,
		debounce: 20 * time.Millisecond,
		out:      out,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.run(ctx, dir, true) }()

	documents := func() []string {
		names, _ := env.app.Documents.List(context.Background(), domain.LocalUserID)
		return names
	}
	require.Eventually(t, func() bool { return len(documents()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "budget.txt"), []byte("The budget is $4,000."), 0600))
	require.Eventually(t, func() bool { return len(documents()) == 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}

	assert.Equal(t, []string{"budget.txt", "notes.txt"}, documents())
	assert.Contains(t, out.String(), "✓ notes.txt (1 chunk)")
	assert.Contains(t, out.String(), "✓ budget.txt (1 chunk)")
	assert.NotContains(t, out.String(), "photo.png")
}

func TestFolderWatcher_SkipExisting(t *testing.T) {
	env := setupTestApp(t)
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", serverNotes)

	w := &folderWatcher{
		docs:     env.app.Documents,
		userID:   domain.LocalUserID,
		supports: normalisers.NewDefaultRegistry().Supports,
		debounce: 20 * time.Millisecond,
		out:      new(bytes.Buffer),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, w.run(ctx, dir, false))

	names, err := env.app.Documents.List(context.Background(), domain.LocalUserID)
	require.NoError(t, err)
	assert.Empty(t, names)
}

package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
)

func testDefaults() map[string]string {
	return map[string]string{
		driven.PromptQueryRewrite: "Chat History:\n%s\n\nLatest Question: %s\n\nStandalone Question:",
		driven.PromptRAGSystem:    "HISTORY:\n%s\n\nCONTEXT:\n%s\n\nQUESTION: %s",
	}
}

func newTestStore(t *testing.T, dir string) *PromptStore {
	t.Helper()
	store, err := NewPromptStore(dir, testDefaults())
	require.NoError(t, err)
	return store
}

func TestPromptStore_ImplementsInterface(t *testing.T) {
	var _ driven.PromptStore = (*PromptStore)(nil)
}

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store := newTestStore(t, dir)

	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store := newTestStore(t, "")

	assert.Equal(t, filepath.Join(home, ".ragbot", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)

	_, err := store.Load(driven.PromptQueryRewrite)
	require.NoError(t, err)

	for _, f := range []string{"query_rewrite.txt", "rag_system.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_ReturnsDefaultContent(t *testing.T) {
	store := newTestStore(t, t.TempDir())

	prompt, err := store.Load(driven.PromptQueryRewrite)

	require.NoError(t, err)
	assert.Contains(t, prompt, "Standalone Question:")
	assert.Contains(t, prompt, "%s")
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	customContent := "History %s then question %s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "query_rewrite.txt"), []byte(customContent), 0600))

	store := newTestStore(t, dir)
	prompt, err := store.Load(driven.PromptQueryRewrite)

	require.NoError(t, err)
	assert.Equal(t, customContent, prompt)
}

func TestPromptStore_Load_FallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)

	_, _ = store.Load(driven.PromptRAGSystem)
	require.NoError(t, os.Remove(filepath.Join(dir, "rag_system.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptRAGSystem)

	require.NoError(t, err)
	assert.Equal(t, testDefaults()[driven.PromptRAGSystem], prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store := newTestStore(t, t.TempDir())

	_, err := store.Load("nonexistent_prompt")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent_prompt")
}

func TestPromptStore_Load_CachesResults(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)

	prompt1, err := store.Load(driven.PromptQueryRewrite)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "query_rewrite.txt"), []byte("modified content"), 0600))

	prompt2, err := store.Load(driven.PromptQueryRewrite)
	require.NoError(t, err)
	assert.Equal(t, prompt1, prompt2)
}

func TestPromptStore_Reload_ClearsCache(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, dir)

	_, err := store.Load(driven.PromptQueryRewrite)
	require.NoError(t, err)

	modifiedContent := "modified: %s %s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "query_rewrite.txt"), []byte(modifiedContent), 0600))
	store.Reload()

	prompt, err := store.Load(driven.PromptQueryRewrite)
	require.NoError(t, err)
	assert.Equal(t, modifiedContent, prompt)
}

func TestPromptStore_Load_ConcurrentAccess(t *testing.T) {
	store := newTestStore(t, t.TempDir())

	const goroutines = 50
	var wg sync.WaitGroup
	wg.Add(goroutines)
	results := make(chan string, goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			prompt, err := store.Load(driven.PromptRAGSystem)
			assert.NoError(t, err)
			results <- prompt
		}()
	}
	wg.Wait()
	close(results)

	for prompt := range results {
		assert.Equal(t, testDefaults()[driven.PromptRAGSystem], prompt)
	}
}

func TestPromptStore_DoesNotOverwriteExistingFiles(t *testing.T) {
	dir := t.TempDir()
	customContent := "pre-existing custom prompt"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "query_rewrite.txt"), []byte(customContent), 0600))

	store := newTestStore(t, dir)
	_, _ = store.Load(driven.PromptRAGSystem)

	data, err := os.ReadFile(filepath.Join(dir, "query_rewrite.txt"))
	require.NoError(t, err)
	assert.Equal(t, customContent, string(data))
}

func TestPromptStore_TrimsWhitespace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "query_rewrite.txt"), []byte("\n\n  history %s question %s  \n\n"), 0600))

	store := newTestStore(t, dir)
	prompt, err := store.Load(driven.PromptQueryRewrite)

	require.NoError(t, err)
	assert.Equal(t, "history %s question %s", prompt)
}

func TestPromptStore_DefaultsAreCopied(t *testing.T) {
	defaults := testDefaults()
	store, err := NewPromptStore(t.TempDir(), defaults)
	require.NoError(t, err)

	defaults[driven.PromptRAGSystem] = "mutated"
	store.initOnce.Do(func() { store.initErr = os.ErrPermission })

	prompt, err := store.Load(driven.PromptRAGSystem)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", prompt)
}

func TestPromptStore_Load_IgnoresFileWithWrongPlaceholders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rag_system.txt"), []byte("Answer: %s"), 0600))

	store := newTestStore(t, dir)
	prompt, err := store.Load(driven.PromptRAGSystem)

	require.NoError(t, err)
	assert.Equal(t, testDefaults()[driven.PromptRAGSystem], prompt)
}

func TestPromptStore_Load_EscapedPercentIsNotAPlaceholder(t *testing.T) {
	dir := t.TempDir()
	custom := "100%% grounded. History %s, question %s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "query_rewrite.txt"), []byte(custom), 0600))

	store := newTestStore(t, dir)
	prompt, err := store.Load(driven.PromptQueryRewrite)

	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, 0, placeholders("plain"))
	assert.Equal(t, 2, placeholders("%s and %s"))
	assert.Equal(t, 1, placeholders("%%s is literal, %s is not"))
}

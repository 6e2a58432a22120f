package cli

import (
	"bytes"
	"context"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/adapters/driven/auth"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/ragbot/internal/app"
	"github.com/custodia-labs/ragbot/internal/config"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/core/services"
	"github.com/custodia-labs/ragbot/internal/normalisers"
	"github.com/custodia-labs/ragbot/internal/postprocessors/chunker"
)

const wordDims = 128

// wordEmbedder hashes words into a fixed-size count vector.
type wordEmbedder struct{}

func (wordEmbedder) vector(text string) []float32 {
	v := make([]float32, wordDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%wordDims]++
	}
	return v
}

func (e wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e wordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (wordEmbedder) Dimensions() int              { return wordDims }
func (wordEmbedder) ModelName() string            { return "words" }
func (wordEmbedder) Ping(_ context.Context) error { return nil }
func (wordEmbedder) Close() error                 { return nil }

// cannedLLM streams the same reply to every question.
type cannedLLM struct {
	mu      sync.Mutex
	reply   []string
	failure error
	rewrite string
	streams int
}

func (l *cannedLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// Blank keeps the original question.
	return l.rewrite, nil
}

func (l *cannedLLM) Stream(ctx context.Context, _ []driven.ChatMessage, _ driven.GenerateOptions) (<-chan driven.StreamChunk, error) {
	l.mu.Lock()
	l.streams++
	reply, failure := l.reply, l.failure
	l.mu.Unlock()

	out := make(chan driven.StreamChunk)
	go func() {
		defer close(out)
		for _, text := range reply {
			select {
			case out <- driven.StreamChunk{Content: text}:
			case <-ctx.Done():
				return
			}
		}
		last := driven.StreamChunk{Done: true}
		if failure != nil {
			last = driven.StreamChunk{Err: failure}
		}
		select {
		case out <- last:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func (l *cannedLLM) ModelName() string            { return "canned" }
func (l *cannedLLM) Ping(_ context.Context) error { return nil }
func (l *cannedLLM) Close() error                 { return nil }

// testEnv is an in-memory application behind the commands.
type testEnv struct {
	app    *app.App
	llm    *cannedLLM
	dir    string
	remote bool
}

// setupTestApp points openApp and openAuth at in-memory services for the
// duration of the test.
func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	llm := &cannedLLM{reply: []string{"The server ", "has 64 cores."}}
	index := vectorindex.NewIndex(memory.NewVectorStore(), wordEmbedder{})
	identities, err := file.NewIdentityStore(filepath.Join(dir, "identity.toml"))
	require.NoError(t, err)

	rag := domain.DefaultRAGSettings()
	env := &testEnv{
		llm: llm,
		dir: dir,
		app: &app.App{
			Config:    config.Default(),
			Documents: services.NewDocumentService(normalisers.NewDefaultRegistry(), chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(0)), index),
			Chat:      services.NewChatService(index, llm, nil, nil, rag),
			Sessions:  services.NewSessionService(memory.NewSessionStore()),
			Auth:      services.NewAuthService(auth.NewLocalProvider(), identities),
		},
	}

	oldApp, oldAuth := openApp, openAuth
	openApp = func(context.Context) (*app.App, error) {
		// A copy, so closing it leaves the shared services usable.
		c := *env.app
		return &c, nil
	}
	openAuth = func(context.Context) (*services.AuthService, bool, error) {
		return env.app.Auth, env.remote, nil
	}
	t.Cleanup(func() {
		openApp, openAuth = oldApp, oldAuth
	})
	return env
}

// upload indexes text for the local user directly.
func (e *testEnv) upload(t *testing.T, name, text string) {
	t.Helper()
	results := e.app.Documents.Upload(context.Background(), domain.LocalUserID,
		[]domain.UploadFile{{Name: name, Data: []byte(text)}})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
}

// runCLI executes the root command with args and stdin and returns the
// combined output.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default; cobra keeps values
// between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

const serverNotes = "The new build server has 64 cores and 512 GB of memory.\n\n" +
	"Cats sleep for most of the day and purr when content."

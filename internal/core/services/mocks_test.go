package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
)

// bagOfWords embeds text as hashed word counts, so texts sharing words
// are similar and unrelated texts are not.
type bagOfWords struct{}

const bagOfWordsDims = 256

func (bagOfWords) vector(text string) []float32 {
	v := make([]float32, bagOfWordsDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%bagOfWordsDims]++
	}
	return v
}

func (b bagOfWords) Embed(_ context.Context, text string) ([]float32, error) {
	return b.vector(text), nil
}

func (b bagOfWords) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = b.vector(t)
	}
	return out, nil
}

func (bagOfWords) Dimensions() int { return bagOfWordsDims }
func (bagOfWords) ModelName() string { return "bag-of-words" }
func (bagOfWords) Ping(_ context.Context) error { return nil }
func (bagOfWords) Close() error { return nil }

// failingEmbedder embeds like bagOfWords until down is set.
type failingEmbedder struct {
	bagOfWords
	down bool
}

func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.down {
		return nil, errors.New("embedding service down")
	}
	return f.bagOfWords.EmbedBatch(ctx, texts)
}

// mockLLM scripts Generate and Stream.
type mockLLM struct {
	mu sync.Mutex

	generateFn func(prompt string) (string, error)

	// streamChunks are emitted in order, then streamErr if set, else Done.
	streamChunks   []string
	streamErr      error
	streamStartErr error
	// blockAfter stops sending after that many chunks until ctx ends.
	blockAfter int

	generatePrompts []string
	streamMessages  [][]driven.ChatMessage
	generateOpts    []driven.GenerateOptions
	streamOpts      []driven.GenerateOptions
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.generatePrompts = append(m.generatePrompts, prompt)
	m.generateOpts = append(m.generateOpts, opts)
	fn := m.generateFn
	m.mu.Unlock()

	if fn == nil {
		return "", errors.New("generate not scripted")
	}
	return fn(prompt)
}

func (m *mockLLM) Stream(ctx context.Context, messages []driven.ChatMessage, opts driven.GenerateOptions) (<-chan driven.StreamChunk, error) {
	m.mu.Lock()
	m.streamMessages = append(m.streamMessages, messages)
	m.streamOpts = append(m.streamOpts, opts)
	m.mu.Unlock()

	if m.streamStartErr != nil {
		return nil, m.streamStartErr
	}

	out := make(chan driven.StreamChunk)
	go func() {
		defer close(out)
		send := func(c driven.StreamChunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for i, text := range m.streamChunks {
			if m.blockAfter > 0 && i == m.blockAfter {
				<-ctx.Done()
				return
			}
			if !send(driven.StreamChunk{Content: text}) {
				return
			}
		}
		if m.streamErr != nil {
			send(driven.StreamChunk{Err: m.streamErr})
			return
		}
		send(driven.StreamChunk{Done: true})
	}()
	return out, nil
}

func (m *mockLLM) ModelName() string { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error { return nil }

func (m *mockLLM) calls() (generate, stream int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.generatePrompts), len(m.streamMessages)
}

func (m *mockLLM) lastStreamPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.streamMessages) == 0 {
		return ""
	}
	msgs := m.streamMessages[len(m.streamMessages)-1]
	return msgs[len(msgs)-1].Content
}

// mockReranker scores candidates by a fixed function or fails.
type mockReranker struct {
	score func(c domain.RetrievedCandidate) float64
	err   error
	calls int
}

func (m *mockReranker) Rerank(_ context.Context, _ string, candidates []domain.RetrievedCandidate, _ int) ([]domain.RankedCandidate, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.RankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, domain.RankedCandidate{Content: c.Content, Metadata: c.Metadata, Score: m.score(c)})
	}
	// Input order and length are kept.
	return out, nil
}

func (m *mockReranker) Close() error { return nil }

// mockPromptStore serves templates from a map.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockIdentityProvider scripts identity calls.
type mockIdentityProvider struct {
	signUp     domain.Identity
	signIn     domain.Identity
	err        error
	signOutErr error
	signedOut  []string
}

func (m *mockIdentityProvider) SignUp(_ context.Context, email, _ string) (domain.Identity, error) {
	if m.err != nil {
		return domain.Identity{}, m.err
	}
	id := m.signUp
	id.Email = email
	return id, nil
}

func (m *mockIdentityProvider) SignIn(_ context.Context, email, _ string) (domain.Identity, error) {
	if m.err != nil {
		return domain.Identity{}, m.err
	}
	id := m.signIn
	id.Email = email
	return id, nil
}

func (m *mockIdentityProvider) SignOut(_ context.Context, token string) error {
	m.signedOut = append(m.signedOut, token)
	return m.signOutErr
}

func (m *mockIdentityProvider) Verify(_ context.Context, token string) (domain.Identity, error) {
	if token != m.signIn.AccessToken {
		return domain.Identity{}, domain.ErrAuthRequired
	}
	return m.signIn, nil
}

// memoryIdentityStore keeps one identity in memory.
type memoryIdentityStore struct {
	identity domain.Identity
}

func (s *memoryIdentityStore) Load() (domain.Identity, error) { return s.identity, nil }
func (s *memoryIdentityStore) Save(id domain.Identity) error { s.identity = id; return nil }
func (s *memoryIdentityStore) Clear() error { s.identity = domain.Identity{}; return nil }

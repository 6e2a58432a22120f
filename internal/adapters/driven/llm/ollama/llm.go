// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/httpclient"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL  = "http://localhost:11434"
	DefaultLLMModel = "llama3.2"
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// HTTPOptions tune the underlying connector.
	HTTPOptions []httpclient.Option
}

// LLMService provides LLM operations using Ollama.
type LLMService struct {
	conn  *httpclient.Connector
	model string
}

// options holds generation parameters.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatLine is one NDJSON line of a streamed /api/chat response.
type chatLine struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}

	opts := append([]httpclient.Option{httpclient.WithRequestTimeout(0)}, cfg.HTTPOptions...)
	return &LLMService{
		conn:  httpclient.New(cfg.BaseURL, opts...),
		model: cfg.Model,
	}
}

// Generate produces a complete response to a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := generateRequest{
		Model:   s.model,
		Prompt:  prompt,
		Options: toOptions(opts),
	}

	var resp generateResponse
	if err := s.conn.DoJSON(ctx, http.MethodPost, "/api/generate", req, &resp); err != nil {
		return "", fmt.Errorf("ollama: generate: %w", err)
	}
	return resp.Response, nil
}

// Stream produces the response incrementally from newline-delimited JSON.
func (s *LLMService) Stream(ctx context.Context, messages []driven.ChatMessage, opts driven.GenerateOptions) (<-chan driven.StreamChunk, error) {
	msgs := make([]chatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	req := chatRequest{
		Model:    s.model,
		Messages: msgs,
		Stream:   true,
		Options:  toOptions(opts),
	}

	resp, err := s.conn.Stream(ctx, http.MethodPost, "/api/chat", req)
	if err != nil {
		return nil, fmt.Errorf("ollama: stream: %w", err)
	}

	ch := make(chan driven.StreamChunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		emit := func(chunk driven.StreamChunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}
		fail := func(err error) {
			if ctx.Err() == nil {
				emit(driven.StreamChunk{Err: fmt.Errorf("ollama: %w", err)})
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			if len(scanner.Bytes()) == 0 {
				continue
			}
			var line chatLine
			if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
				fail(fmt.Errorf("decode stream line: %w", err))
				return
			}
			if line.Error != "" {
				fail(errors.New(line.Error))
				return
			}
			if line.Message.Content != "" && !emit(driven.StreamChunk{Content: line.Message.Content}) {
				return
			}
			if line.Done {
				emit(driven.StreamChunk{Done: true})
				return
			}
		}
		if err := scanner.Err(); err != nil {
			fail(err)
			return
		}
		fail(errors.New("stream ended before completion"))
	}()
	return ch, nil
}

func toOptions(opts driven.GenerateOptions) *options {
	if opts.MaxTokens <= 0 && opts.Temperature <= 0 && len(opts.StopWords) == 0 {
		return nil
	}
	return &options{
		NumPredict:  opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.StopWords,
	}
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the /api/tags endpoint.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.conn.DoJSON(ctx, http.MethodGet, "/api/tags", nil, nil); err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

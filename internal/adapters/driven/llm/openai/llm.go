// Package openai provides an LLM service adapter for the OpenAI chat
// completions API and OpenAI-compatible providers such as Groq.
package openai

import (
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
	DefaultBaseURL  = "https://api.openai.com/v1"
	DefaultLLMModel = "gpt-4o-mini"

	// GroqBaseURL is Groq's OpenAI-compatible endpoint.
	GroqBaseURL = "https://api.groq.com/openai/v1"
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Set GroqBaseURL or another compatible endpoint here.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// HTTPOptions tune the underlying connector.
	HTTPOptions []httpclient.Option
}

// LLMService provides LLM operations using the chat completions API.
type LLMService struct {
	conn  *httpclient.Connector
	model string
}

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
	Stream      bool                `json:"stream,omitempty"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new chat completions LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}

	// Streams are bounded by the caller's context, not a client timeout.
	opts := append([]httpclient.Option{
		httpclient.WithBearerToken(cfg.APIKey),
		httpclient.WithRequestTimeout(0),
	}, cfg.HTTPOptions...)

	return &LLMService{
		conn:  httpclient.New(cfg.BaseURL, opts...),
		model: cfg.Model,
	}, nil
}

// Generate produces a complete response to a single user prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := s.request([]driven.ChatMessage{{Role: "user", Content: prompt}}, opts)

	var resp chatCompletionResponse
	if err := s.conn.DoJSON(ctx, http.MethodPost, "/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no response choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream produces the response incrementally from server-sent events.
func (s *LLMService) Stream(ctx context.Context, messages []driven.ChatMessage, opts driven.GenerateOptions) (<-chan driven.StreamChunk, error) {
	req := s.request(messages, opts)
	req.Stream = true

	resp, err := s.conn.Stream(ctx, http.MethodPost, "/chat/completions", req,
		httpclient.WithRequestHeader("Accept", "text/event-stream"))
	if err != nil {
		return nil, fmt.Errorf("openai: stream: %w", err)
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

		done := false
		err := httpclient.ReadSSE(resp.Body, func(_, data string) error {
			if data == "[DONE]" {
				done = true
				return httpclient.ErrStopStream
			}
			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return fmt.Errorf("decode stream chunk: %w", err)
			}
			if chunk.Error != nil {
				return fmt.Errorf("provider error: %s", chunk.Error.Message)
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				return nil
			}
			if !emit(driven.StreamChunk{Content: chunk.Choices[0].Delta.Content}) {
				return ctx.Err()
			}
			return nil
		})

		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			emit(driven.StreamChunk{Err: fmt.Errorf("openai: %w", err)})
		case !done:
			emit(driven.StreamChunk{Err: errors.New("openai: stream ended before completion")})
		default:
			emit(driven.StreamChunk{Done: true})
		}
	}()
	return ch, nil
}

func (s *LLMService) request(messages []driven.ChatMessage, opts driven.GenerateOptions) chatCompletionRequest {
	msgs := make([]chatCompletionMsg, len(messages))
	for i, m := range messages {
		msgs[i] = chatCompletionMsg{Role: m.Role, Content: m.Content}
	}

	req := chatCompletionRequest{
		Model:     s.model,
		Messages:  msgs,
		MaxTokens: opts.MaxTokens,
		Stop:      opts.StopWords,
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		req.Temperature = &t
	}
	return req
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// BaseURL returns the API endpoint, which distinguishes OpenAI from Groq.
func (s *LLMService) BaseURL() string {
	return s.conn.BaseURL()
}

// Ping validates the API key against the /models endpoint.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.conn.DoJSON(ctx, http.MethodGet, "/models", nil, nil); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}


// Package anthropic provides an LLM service adapter using the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/httpclient"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultMaxTokens = 1024

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// HTTPOptions tune the underlying connector.
	HTTPOptions []httpclient.Option
}

// LLMService provides LLM operations using the Messages API.
type LLMService struct {
	conn  *httpclient.Connector
	model string
}

type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	StopSeqs    []string          `json:"stop_sequences,omitempty"`
	Stream      bool              `json:"stream,omitempty"`
}

type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := append([]httpclient.Option{
		httpclient.WithHeader("x-api-key", cfg.APIKey),
		httpclient.WithHeader("anthropic-version", anthropicVersion),
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

	var resp messagesResponse
	if err := s.conn.DoJSON(ctx, http.MethodPost, "/v1/messages", req, &resp); err != nil {
		return "", fmt.Errorf("anthropic: messages: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("anthropic: no text content returned")
	}
	return b.String(), nil
}

// Stream produces the response incrementally from server-sent events.
// System messages are lifted into the request's system field.
func (s *LLMService) Stream(ctx context.Context, messages []driven.ChatMessage, opts driven.GenerateOptions) (<-chan driven.StreamChunk, error) {
	req := s.request(messages, opts)
	req.Stream = true

	resp, err := s.conn.Stream(ctx, http.MethodPost, "/v1/messages", req,
		httpclient.WithRequestHeader("Accept", "text/event-stream"))
	if err != nil {
		return nil, fmt.Errorf("anthropic: stream: %w", err)
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
			var ev streamEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return fmt.Errorf("decode stream event: %w", err)
			}
			switch ev.Type {
			case "content_block_delta":
				if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
					if !emit(driven.StreamChunk{Content: ev.Delta.Text}) {
						return ctx.Err()
					}
				}
			case "message_stop":
				done = true
				return httpclient.ErrStopStream
			case "error":
				if ev.Error != nil {
					return fmt.Errorf("provider error: %s", ev.Error.Message)
				}
				return errors.New("provider error")
			}
			return nil
		})

		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			emit(driven.StreamChunk{Err: fmt.Errorf("anthropic: %w", err)})
		case !done:
			emit(driven.StreamChunk{Err: errors.New("anthropic: stream ended before completion")})
		default:
			emit(driven.StreamChunk{Done: true})
		}
	}()
	return ch, nil
}

func (s *LLMService) request(messages []driven.ChatMessage, opts driven.GenerateOptions) messagesRequest {
	req := messagesRequest{
		Model:     s.model,
		MaxTokens: opts.MaxTokens,
		StopSeqs:  opts.StopWords,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		req.Temperature = &t
	}

	var system []string
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, messagesMessage{Role: m.Role, Content: m.Content})
	}
	req.System = strings.Join(system, "\n\n")
	return req
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key against the /v1/models endpoint.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.conn.DoJSON(ctx, http.MethodGet, "/v1/models", nil, nil); err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

// Package ollama provides an embedding service adapter using Ollama.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/httpclient"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "all-minilm"
	DefaultDimensions = 384
)

// Config holds configuration for the Ollama embedding service.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: all-minilm).
	Model string

	// Dimensions is the vector size. Zero for a custom model means it is
	// learned from the first response.
	Dimensions int

	// HTTPOptions tune the underlying connector.
	HTTPOptions []httpclient.Option
}

// EmbeddingService generates embeddings using Ollama's /api/embed, which
// accepts a batch of inputs in one call. Every response is checked
// against the expected dimensionality.
type EmbeddingService struct {
	conn       *httpclient.Connector
	model      string
	dimensions atomic.Int64
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbeddingService creates a new Ollama embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" || cfg.Model == DefaultModel {
		cfg.Model = DefaultModel
		if cfg.Dimensions == 0 {
			cfg.Dimensions = DefaultDimensions
		}
	}

	s := &EmbeddingService{
		conn:  httpclient.New(cfg.BaseURL, cfg.HTTPOptions...),
		model: cfg.Model,
	}
	s.dimensions.Store(int64(cfg.Dimensions))
	return s
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embedResponse
	req := embedRequest{Model: s.model, Input: texts}
	if err := s.conn.DoJSON(ctx, http.MethodPost, "/api/embed", req, &resp); err != nil {
		return nil, fmt.Errorf("ollama: embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	if err := s.checkDimensions(resp.Embeddings); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

func (s *EmbeddingService) checkDimensions(vectors [][]float32) error {
	for _, v := range vectors {
		want := s.dimensions.Load()
		if want == 0 {
			s.dimensions.CompareAndSwap(0, int64(len(v)))
			want = s.dimensions.Load()
		}
		if int64(len(v)) != want {
			return fmt.Errorf("ollama: %s returned a %d-dimensional vector, expected %d", s.model, len(v), want)
		}
	}
	return nil
}

// Dimensions returns the vector size, or 0 while it is still unknown.
func (s *EmbeddingService) Dimensions() int {
	return int(s.dimensions.Load())
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the /api/tags endpoint without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if err := s.conn.DoJSON(ctx, http.MethodGet, "/api/tags", nil, nil); err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

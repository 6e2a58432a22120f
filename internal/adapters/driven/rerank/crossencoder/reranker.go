// Package crossencoder provides a re-ranker adapter for HTTP cross-encoder
// services exposing a /rerank endpoint (text-embeddings-inference,
// Jina, Cohere-compatible gateways).
package crossencoder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/httpclient"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// DefaultModel is the cross-encoder requested when none is configured.
const DefaultModel = "ms-marco-MiniLM-L-12-v2"

// Config holds configuration for the cross-encoder client.
type Config struct {
	// URL is the service base URL (required).
	URL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model is the cross-encoder model name.
	Model string

	// HTTPOptions tune the underlying connector.
	HTTPOptions []httpclient.Option
}

// Reranker scores candidates through a remote cross-encoder.
type Reranker struct {
	conn  *httpclient.Connector
	model string
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// New creates a cross-encoder re-ranker.
func New(cfg Config) (*Reranker, error) {
	if cfg.URL == "" {
		return nil, errors.New("crossencoder: URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := append([]httpclient.Option{httpclient.WithBearerToken(cfg.APIKey)}, cfg.HTTPOptions...)
	return &Reranker{
		conn:  httpclient.New(cfg.URL, opts...),
		model: cfg.Model,
	}, nil
}

// Rerank returns at most topK candidates ordered by descending relevance.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.RetrievedCandidate, topK int) ([]domain.RankedCandidate, error) {
	if len(candidates) == 0 || topK <= 0 {
		return []domain.RankedCandidate{}, nil
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Content
	}

	var resp rerankResponse
	req := rerankRequest{Model: r.model, Query: query, Documents: docs, TopN: topK}
	if err := r.conn.DoJSON(ctx, http.MethodPost, "/rerank", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRerankUnavailable, err)
	}

	results := resp.Results
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	ranked := make([]domain.RankedCandidate, 0, min(topK, len(results)))
	seen := make(map[int]bool, len(results))
	for _, res := range results {
		if len(ranked) == topK {
			break
		}
		if res.Index < 0 || res.Index >= len(candidates) || seen[res.Index] {
			continue
		}
		seen[res.Index] = true
		c := candidates[res.Index]
		ranked = append(ranked, domain.RankedCandidate{
			Content:  c.Content,
			Metadata: c.Metadata,
			Score:    res.RelevanceScore,
		})
	}
	return ranked, nil
}

// Close releases resources.
func (r *Reranker) Close() error {
	return nil
}

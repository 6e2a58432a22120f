package driven

import (
	"context"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// Reranker scores candidates against a query with a model more precise
// than embedding similarity, typically a cross-encoder.
// This is an optional service - when nil, candidates keep similarity order.
type Reranker interface {
	// Rerank returns at most topK candidates by descending relevance.
	Rerank(ctx context.Context, query string, candidates []domain.RetrievedCandidate, topK int) ([]domain.RankedCandidate, error)

	// Close releases resources.
	Close() error
}

package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// Reranker orders candidates with an optional cross-encoder, falling back
// to similarity order when it is missing or fails.
type Reranker struct {
	reranker driven.Reranker
}

// NewReranker wraps reranker, which may be nil.
func NewReranker(reranker driven.Reranker) *Reranker {
	return &Reranker{reranker: reranker}
}

// Rerank returns at most topK candidates by descending relevance.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.RetrievedCandidate, topK int) []domain.RankedCandidate {
	if len(candidates) == 0 || topK <= 0 {
		return []domain.RankedCandidate{}
	}

	log := logger.FromContext(ctx)
	if r.reranker == nil {
		log.Debug("re-ranker not configured, keeping similarity order")
		return truncate(candidates, topK)
	}

	ranked, err := r.reranker.Rerank(ctx, query, candidates, topK)
	if err != nil {
		log.Warn("re-ranking failed, keeping similarity order",
			zap.Error(domain.ErrRerankUnavailable), zap.NamedError("cause", err))
		return truncate(candidates, topK)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// truncate keeps the first k candidates in their similarity order.
func truncate(candidates []domain.RetrievedCandidate, k int) []domain.RankedCandidate {
	n := min(k, len(candidates))
	out := make([]domain.RankedCandidate, n)
	for i := range n {
		c := candidates[i]
		out[i] = domain.RankedCandidate{Content: c.Content, Metadata: c.Metadata, Score: c.Score}
	}
	return out
}

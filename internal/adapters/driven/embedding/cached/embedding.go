// Package cached decorates an embedding service with an in-memory TTL
// cache keyed by model and text. Repeated questions and re-uploads of
// unchanged documents skip the provider round trip.
package cached

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultTTL is how long an embedding stays cached.
const DefaultTTL = 10 * time.Minute

// EmbeddingService caches the vectors of an inner service.
type EmbeddingService struct {
	inner driven.EmbeddingService
	cache *gocache.Cache
}

// New wraps inner. A non-positive ttl uses DefaultTTL.
func New(inner driven.EmbeddingService, ttl time.Duration) *EmbeddingService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &EmbeddingService{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Embed returns the cached vector or computes and caches it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	key := s.key(text)
	if v, ok := s.cache.Get(key); ok {
		return v.([]float32), nil
	}

	embedding, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, embedding)
	return embedding, nil
}

// EmbedBatch embeds only the texts not already cached, in one inner call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	result := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := s.cache.Get(s.key(text)); ok {
			result[i] = v.([]float32)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return result, nil
	}

	computed, err := s.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missing) {
		return nil, fmt.Errorf("%s: got %d embeddings for %d inputs", s.inner.ModelName(), len(computed), len(missing))
	}
	for j, embedding := range computed {
		result[missingIdx[j]] = embedding
		s.cache.SetDefault(s.key(missing[j]), embedding)
	}
	return result, nil
}

// Dimensions returns the inner service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the inner service's model.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping forwards to the inner service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Len returns the number of cached vectors.
func (s *EmbeddingService) Len() int {
	return s.cache.ItemCount()
}

// Close flushes the cache and closes the inner service.
func (s *EmbeddingService) Close() error {
	s.cache.Flush()
	return s.inner.Close()
}

func (s *EmbeddingService) key(text string) string {
	sum := sha256.Sum256([]byte(s.inner.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

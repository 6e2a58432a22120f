// Package vectorindex implements driven.VectorIndex on top of pluggable
// storage backends. Index owns embedding, batching and tenant checks so
// each Store only persists and searches vectors.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// DefaultBatchSize is the number of chunks embedded and stored per call.
const DefaultBatchSize = 100

// Store is a low-level vector backend. Every method is scoped to one
// tenant and must never return another tenant's vectors.
type Store interface {
	// Upsert writes vectors, overwriting any with the same ID, and returns
	// how many the backend acknowledged.
	Upsert(ctx context.Context, vectors []domain.IndexedVector) (int, error)

	// Search returns up to k candidates by descending cosine similarity.
	Search(ctx context.Context, userID string, vector []float32, k int) ([]domain.RetrievedCandidate, error)

	// Sources returns the distinct source names.
	Sources(ctx context.Context, userID string) ([]string, error)

	// DeleteSource removes every vector of one source.
	DeleteSource(ctx context.Context, userID, source string) error

	// DeleteSourceFrom removes the vectors of one source whose chunk id is
	// fromChunkID or higher.
	DeleteSourceFrom(ctx context.Context, userID, source string, fromChunkID int) error

	// DeleteUser removes every vector of the tenant.
	DeleteUser(ctx context.Context, userID string) error

	// Count returns the number of stored vectors, or 0 if unknown.
	Count(ctx context.Context, userID string) (int, error)

	// Name identifies the backend.
	Name() string

	// Close releases resources.
	Close() error
}

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// errCountMismatch is wrapped when a backend stores fewer vectors than sent.
var errCountMismatch = errors.New("backend stored fewer vectors than submitted")

// Index embeds chunks and delegates persistence to a Store.
type Index struct {
	store     Store
	embedder  driven.EmbeddingService
	batchSize int
}

// Option configures an Index.
type Option func(*Index)

// WithBatchSize sets how many chunks are embedded and upserted per batch.
func WithBatchSize(n int) Option {
	return func(i *Index) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// NewIndex creates an index over store using embedder for both documents
// and queries.
func NewIndex(store Store, embedder driven.EmbeddingService, opts ...Option) *Index {
	idx := &Index{
		store:     store,
		embedder:  embedder,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Upsert embeds and stores chunks in batches.
func (i *Index) Upsert(ctx context.Context, userID string, chunks []domain.Chunk) (int, error) {
	if userID == "" {
		return 0, domain.ErrMissingTenant
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	log := logger.FromContext(ctx).With(zap.String("backend", i.store.Name()))
	stored := 0
	for start := 0; start < len(chunks); start += i.batchSize {
		end := min(start+i.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}

		embeddings, err := i.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return stored, &domain.RetrievalError{
				Op: "upsert", Expected: len(chunks), Stored: stored,
				Err: fmt.Errorf("embedding batch: %w", err),
			}
		}
		if len(embeddings) != len(batch) {
			return stored, &domain.RetrievalError{
				Op: "upsert", Expected: len(chunks), Stored: stored,
				Err: fmt.Errorf("embedding returned %d vectors for %d chunks", len(embeddings), len(batch)),
			}
		}

		vectors := make([]domain.IndexedVector, len(batch))
		for j, c := range batch {
			vectors[j] = domain.IndexedVector{
				ID:        domain.VectorID(userID, c.Metadata.Source, c.Metadata.ChunkID),
				Embedding: embeddings[j],
				UserID:    userID,
				Source:    c.Metadata.Source,
				ChunkID:   c.Metadata.ChunkID,
				Content:   c.Content,
			}
		}

		n, err := i.store.Upsert(ctx, vectors)
		stored += n
		if err != nil {
			return stored, &domain.RetrievalError{Op: "upsert", Expected: len(chunks), Stored: stored, Err: err}
		}
		log.Debug("upserted batch", zap.Int("stored", n), zap.Int("batch", len(batch)))
	}

	if stored != len(chunks) {
		return stored, &domain.RetrievalError{Op: "upsert", Expected: len(chunks), Stored: stored, Err: errCountMismatch}
	}
	return stored, nil
}

// Query embeds queryText and returns up to k similar chunks. Failures of
// the embedder or backend are logged and yield an empty result.
func (i *Index) Query(ctx context.Context, userID, queryText string, k int) ([]domain.RetrievedCandidate, error) {
	if userID == "" {
		return nil, domain.ErrMissingTenant
	}
	if k <= 0 || strings.TrimSpace(queryText) == "" {
		return []domain.RetrievedCandidate{}, nil
	}

	log := logger.FromContext(ctx).With(zap.String("backend", i.store.Name()))

	vector, err := i.embedder.Embed(ctx, queryText)
	if err != nil {
		log.Warn("query embedding failed", zap.Error(&domain.RetrievalError{Op: "query", Err: err}))
		return []domain.RetrievedCandidate{}, nil
	}

	candidates, err := i.store.Search(ctx, userID, vector, k)
	if err != nil {
		log.Warn("vector search failed", zap.Error(&domain.RetrievalError{Op: "query", Err: err}))
		return []domain.RetrievedCandidate{}, nil
	}
	if candidates == nil {
		candidates = []domain.RetrievedCandidate{}
	}
	return candidates, nil
}

// ListDocumentNames returns the sorted distinct source names.
func (i *Index) ListDocumentNames(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, domain.ErrMissingTenant
	}

	sources, err := i.store.Sources(ctx, userID)
	if err != nil {
		return nil, &domain.RetrievalError{Op: "list", Err: err}
	}

	seen := make(map[string]bool, len(sources))
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		names = append(names, s)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteDocument removes all chunks of one source.
func (i *Index) DeleteDocument(ctx context.Context, userID, source string) error {
	if userID == "" {
		return domain.ErrMissingTenant
	}
	if source == "" {
		return fmt.Errorf("%w: document name is required", domain.ErrInvalidInput)
	}

	if err := i.store.DeleteSource(ctx, userID, source); err != nil {
		return &domain.RetrievalError{Op: "delete", Err: err}
	}
	return nil
}

// TrimDocument removes the chunks of source numbered keep and above, left
// over from a longer earlier version of the document.
func (i *Index) TrimDocument(ctx context.Context, userID, source string, keep int) error {
	if userID == "" {
		return domain.ErrMissingTenant
	}
	if source == "" {
		return fmt.Errorf("%w: document name is required", domain.ErrInvalidInput)
	}

	if err := i.store.DeleteSourceFrom(ctx, userID, source, max(keep, 0)); err != nil {
		return &domain.RetrievalError{Op: "trim", Err: err}
	}
	return nil
}

// ClearAll removes all chunks of the tenant.
func (i *Index) ClearAll(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrMissingTenant
	}

	if err := i.store.DeleteUser(ctx, userID); err != nil {
		return &domain.RetrievalError{Op: "clear", Err: err}
	}
	return nil
}

// CountChunks returns the stored chunk count.
func (i *Index) CountChunks(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, domain.ErrMissingTenant
	}

	n, err := i.store.Count(ctx, userID)
	if err != nil {
		return 0, &domain.RetrievalError{Op: "count", Err: err}
	}
	return n, nil
}

// Backend names the underlying store.
func (i *Index) Backend() string {
	return i.store.Name()
}

// Close releases the store. The embedder is owned by the caller.
func (i *Index) Close() error {
	return i.store.Close()
}

package driven

import (
	"context"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// VectorIndex provides per-tenant storage and similarity search over
// embedded chunks. Every operation takes the tenant's user ID and must
// reject an empty one with domain.ErrMissingTenant; results never cross
// tenants.
//
// Implementations may be backed by a managed remote service (Qdrant,
// PostgreSQL with pgvector) or a local embedded store (SQLite). Callers
// are backend-agnostic.
type VectorIndex interface {
	// Upsert embeds and stores chunks, overwriting any with the same
	// (user, source, chunk id). Returns the number of chunks stored. When
	// fewer are stored than submitted, the error is a *domain.RetrievalError
	// carrying the mismatch.
	Upsert(ctx context.Context, userID string, chunks []domain.Chunk) (int, error)

	// Query returns up to k candidates by descending similarity to
	// queryText. Backend failures are logged and yield an empty result.
	Query(ctx context.Context, userID, queryText string, k int) ([]domain.RetrievedCandidate, error)

	// ListDocumentNames returns the sorted distinct source names.
	ListDocumentNames(ctx context.Context, userID string) ([]string, error)

	// DeleteDocument removes all chunks of one source.
	DeleteDocument(ctx context.Context, userID, source string) error

	// TrimDocument removes the chunks of one source whose chunk id is keep
	// or higher.
	TrimDocument(ctx context.Context, userID, source string, keep int) error

	// ClearAll removes all chunks of the tenant.
	ClearAll(ctx context.Context, userID string) error

	// CountChunks returns the stored chunk count. Backends that cannot
	// count cheaply under a tenant filter may return 0.
	CountChunks(ctx context.Context, userID string) (int, error)

	// Backend names the implementation (e.g. "qdrant", "sqlite").
	Backend() string

	// Close releases resources.
	Close() error
}

package driving

import (
	"context"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// DocumentService manages a user's uploaded documents.
type DocumentService interface {
	// Upload extracts, chunks and indexes each file. Failures are reported
	// per file and never abort the rest of the batch.
	Upload(ctx context.Context, userID string, files []domain.UploadFile) []domain.UploadResult

	// List returns the distinct document names.
	List(ctx context.Context, userID string) ([]string, error)

	// Delete removes one document's chunks.
	Delete(ctx context.Context, userID, name string) error

	// Stats returns document and chunk counts.
	Stats(ctx context.Context, userID string) (domain.DocumentStats, error)

	// ClearAll removes every indexed chunk of the user.
	ClearAll(ctx context.Context, userID string) error
}

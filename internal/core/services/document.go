package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/core/ports/driving"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// Splitter breaks extracted text into chunks tagged with the document name.
type Splitter interface {
	Split(text, documentName string) ([]domain.Chunk, error)
}

// DocumentService ingests uploads into a user's vector index.
type DocumentService struct {
	extractors driven.ExtractorRegistry
	splitter   Splitter
	index      driven.VectorIndex
}

// NewDocumentService creates a new document service.
func NewDocumentService(extractors driven.ExtractorRegistry, splitter Splitter, index driven.VectorIndex) *DocumentService {
	return &DocumentService{
		extractors: extractors,
		splitter:   splitter,
		index:      index,
	}
}

// Upload extracts, chunks and indexes each file in turn. A failing file
// is reported in its result and the rest of the batch continues.
func (s *DocumentService) Upload(ctx context.Context, userID string, files []domain.UploadFile) []domain.UploadResult {
	ctx = logger.WithAction(logger.WithFields(ctx, zap.String("user_id", userID)), "upload")
	logger.Section("Upload")

	results := make([]domain.UploadResult, 0, len(files))
	for _, f := range files {
		name := filepath.Base(f.Name)
		n, err := s.ingest(ctx, userID, name, f.Data)
		if err != nil {
			logger.FromContext(ctx).Warn("upload failed", zap.String("file", name), zap.Error(err))
		} else {
			logger.Info("Indexed %s (%d chunks)", name, n)
		}
		results = append(results, domain.UploadResult{FileName: name, Chunks: n, Err: err})
	}
	return results
}

func (s *DocumentService) ingest(ctx context.Context, userID, name string, data []byte) (int, error) {
	if userID == "" {
		return 0, domain.ErrMissingTenant
	}

	text, err := s.extractors.Extract(ctx, data, name)
	if err != nil {
		return 0, err
	}

	chunks, err := s.splitter.Split(text, name)
	if err != nil {
		return 0, err
	}
	logger.Debug("Split %s into %d chunks", name, len(chunks))

	// Chunk ids are positional, so the upsert overwrites an earlier version
	// in place. Its extra chunks are dropped only once the new ones are in.
	n, err := s.index.Upsert(ctx, userID, chunks)
	if err != nil {
		return n, &domain.DocumentError{FileName: name, Err: err}
	}
	if err := s.index.TrimDocument(ctx, userID, name, len(chunks)); err != nil {
		return n, &domain.DocumentError{FileName: name, Err: err}
	}
	return n, nil
}

// List returns the user's document names.
func (s *DocumentService) List(ctx context.Context, userID string) ([]string, error) {
	return s.index.ListDocumentNames(ctx, userID)
}

// Delete removes one document.
func (s *DocumentService) Delete(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: document name is required", domain.ErrInvalidInput)
	}
	return s.index.DeleteDocument(ctx, userID, name)
}

// Stats returns document and chunk counts.
func (s *DocumentService) Stats(ctx context.Context, userID string) (domain.DocumentStats, error) {
	names, err := s.index.ListDocumentNames(ctx, userID)
	if err != nil {
		return domain.DocumentStats{}, err
	}
	chunks, err := s.index.CountChunks(ctx, userID)
	if err != nil {
		return domain.DocumentStats{}, err
	}
	return domain.DocumentStats{Documents: len(names), Chunks: chunks}, nil
}

// ClearAll removes every indexed chunk of the user.
func (s *DocumentService) ClearAll(ctx context.Context, userID string) error {
	return s.index.ClearAll(ctx, userID)
}

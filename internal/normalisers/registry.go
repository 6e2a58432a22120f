package normalisers

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/normalisers/docx"
	"github.com/custodia-labs/ragbot/internal/normalisers/pdf"
	"github.com/custodia-labs/ragbot/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps file extensions to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]driven.Extractor)}
}

// NewDefaultRegistry creates a registry with the PDF, DOCX and plain text
// extractors.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(plaintext.New())
	return r
}

// Register adds an extractor for each of its extensions. A later
// registration for the same extension replaces the earlier one.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range extractor.Extensions() {
		r.extractors[strings.ToLower(ext)] = extractor
	}
}

// Extract dispatches data to the extractor for fileName's extension.
func (r *Registry) Extract(ctx context.Context, data []byte, fileName string) (string, error) {
	extractor, ok := r.lookup(fileName)
	if !ok {
		return "", &domain.DocumentError{FileName: fileName, Err: domain.ErrUnsupportedFormat}
	}

	text, err := extractor.Extract(ctx, data, fileName)
	if err != nil {
		return "", &domain.DocumentError{FileName: fileName, Err: err}
	}
	return text, nil
}

// Supports reports whether fileName has a registered extractor.
func (r *Registry) Supports(fileName string) bool {
	_, ok := r.lookup(fileName)
	return ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (r *Registry) lookup(fileName string) (driven.Extractor, bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	extractor, ok := r.extractors[ext]
	return extractor, ok
}

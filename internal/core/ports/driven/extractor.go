package driven

import "context"

// Extractor turns an uploaded file into plain text.
// Each extractor handles one file format.
type Extractor interface {
	// Extensions returns the lower-case file extensions handled, with dot.
	Extensions() []string

	// Extract returns the plain text content of data.
	Extract(ctx context.Context, data []byte, fileName string) (string, error)
}

// ExtractorRegistry selects the extractor for a file by its extension.
type ExtractorRegistry interface {
	// Extract dispatches to the matching extractor. Files with no matching
	// extractor fail with domain.ErrUnsupportedFormat.
	Extract(ctx context.Context, data []byte, fileName string) (string, error)

	// Supports reports whether the file's extension has an extractor.
	Supports(fileName string) bool

	// Extensions returns all supported extensions, sorted.
	Extensions() []string
}

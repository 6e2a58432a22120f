// Package chunker splits extracted document text into overlapping chunks.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultSeparators are tried in order: paragraph break, line break,
// space, then character boundary.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Processor splits text recursively on a preference-ordered list of
// separators, merging pieces into chunks of at most chunkSize characters
// and carrying up to overlap characters of trailing context into the
// next chunk.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator list. The list should end with ""
// so oversized runs can always be split.
func WithSeparators(separators ...string) Option {
	return func(p *Processor) {
		if len(separators) > 0 {
			p.separators = separators
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Split breaks text into chunks tagged with documentName and a zero-based
// chunk id. Blank text fails with domain.ErrEmptyDocument.
func (p *Processor) Split(text, documentName string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &domain.DocumentError{FileName: documentName, Err: domain.ErrEmptyDocument}
	}

	pieces := p.split(text, p.separators)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		chunks = append(chunks, domain.Chunk{
			Content: piece,
			Metadata: domain.ChunkMetadata{
				Source:  documentName,
				ChunkID: len(chunks),
			},
		})
	}
	return chunks, nil
}

// split picks the first separator present in text, splits on it and
// recurses into pieces that are still too large.
func (p *Processor) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	var pieces []string
	if separator == "" {
		pieces = splitRunes(text)
	} else {
		pieces = strings.Split(text, separator)
	}

	var result, pending []string
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		if utf8.RuneCountInString(piece) < p.chunkSize {
			pending = append(pending, piece)
			continue
		}

		if len(pending) > 0 {
			result = append(result, p.merge(pending, separator)...)
			pending = nil
		}
		if len(remaining) == 0 {
			result = append(result, piece)
		} else {
			result = append(result, p.split(piece, remaining)...)
		}
	}
	if len(pending) > 0 {
		result = append(result, p.merge(pending, separator)...)
	}
	return result
}

// merge joins small pieces into chunks no longer than chunkSize. When a
// chunk is emitted, leading pieces are dropped until at most overlap
// characters remain to start the next chunk.
func (p *Processor) merge(pieces []string, separator string) []string {
	sepLen := utf8.RuneCountInString(separator)

	var chunks, current []string
	total := 0
	for _, piece := range pieces {
		length := utf8.RuneCountInString(piece)

		if total+length+joinCost(current, sepLen) > p.chunkSize && len(current) > 0 {
			if chunk := join(current, separator); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > p.overlap || (total > 0 && total+length+joinCost(current, sepLen) > p.chunkSize) {
				total -= utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}

		current = append(current, piece)
		total += length
		if len(current) > 1 {
			total += sepLen
		}
	}

	if chunk := join(current, separator); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// joinCost is the separator length added when appending to current.
func joinCost(current []string, sepLen int) int {
	if len(current) > 0 {
		return sepLen
	}
	return 0
}

func join(pieces []string, separator string) string {
	return strings.TrimSpace(strings.Join(pieces, separator))
}

func splitRunes(text string) []string {
	pieces := make([]string, 0, utf8.RuneCountInString(text))
	for _, r := range text {
		pieces = append(pieces, string(r))
	}
	return pieces
}

package domain

import (
	"strconv"

	"github.com/google/uuid"
)

// vectorNamespace scopes VectorID so the same triple never collides with
// UUIDs generated for other purposes.
var vectorNamespace = uuid.MustParse("6f1c2b7e-4d8a-5e3f-9a10-2c7b8e4d6f01")

// VectorID returns the deterministic point ID for a chunk. It is a UUIDv5
// over user, source and chunk id, so re-indexing a document overwrites its
// previous vectors in every backend.
func VectorID(userID, source string, chunkID int) string {
	name := userID + "\x00" + source + "\x00" + strconv.Itoa(chunkID)
	return uuid.NewSHA1(vectorNamespace, []byte(name)).String()
}

// ChunkMetadata locates a chunk within its document.
type ChunkMetadata struct {
	// Source is the document display name (usually the file name).
	Source string `json:"source"`

	// ChunkID is the zero-based sequence index within the document.
	ChunkID int `json:"chunk_id"`
}

// Chunk represents a contiguous span of a document's text.
// Chunks are created at upload time and never mutated.
type Chunk struct {
	// Content is the text payload.
	Content string

	// Metadata holds the source name and position.
	Metadata ChunkMetadata
}

// IndexedVector is the persisted unit inside a vector index.
type IndexedVector struct {
	// ID is derived deterministically from (UserID, Source, ChunkID) so
	// re-upserting the same chunk overwrites rather than duplicates.
	ID string

	// Embedding is the fixed-length vector for Content.
	Embedding []float32

	// UserID scopes the vector to a tenant.
	UserID string

	// Source is the document display name.
	Source string

	// ChunkID is the position within the document.
	ChunkID int

	// Content is the original text, denormalised for retrieval.
	Content string
}

// RetrievedCandidate is a similarity search result.
// It never exposes the owning user ID.
type RetrievedCandidate struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`

	// Score is the similarity score, higher is more similar.
	Score float64 `json:"score"`
}

// RankedCandidate is a re-ranked result. Score holds the re-ranker
// relevance score.
type RankedCandidate struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float64       `json:"score"`
}

// DocumentStats summarises a tenant's index.
type DocumentStats struct {
	Documents int `json:"documents"`

	// Chunks may be 0 when the backend cannot count cheaply.
	Chunks int `json:"chunks"`
}

// UploadFile is one file submitted for ingestion.
type UploadFile struct {
	Name string
	Data []byte
}

// UploadResult reports the outcome of ingesting one file.
type UploadResult struct {
	FileName string `json:"file_name"`
	Chunks   int    `json:"chunks"`
	Err      error  `json:"-"`
}

// OK reports whether the file was ingested.
func (r UploadResult) OK() bool {
	return r.Err == nil
}

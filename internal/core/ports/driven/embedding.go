package driven

import "context"

// EmbeddingService turns chunk text and questions into vectors. Uploads
// and queries must go through the same service, since an index holds
// vectors of a single dimensionality.
type EmbeddingService interface {
	// Embed returns the vector for a single question or chunk.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input, in input order. An empty
	// input yields an empty result and no request.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the length of every returned vector.
	Dimensions() int

	// ModelName identifies the embedding model in logs.
	ModelName() string

	// Ping checks reachability and credentials without embedding anything.
	Ping(ctx context.Context) error

	Close() error
}

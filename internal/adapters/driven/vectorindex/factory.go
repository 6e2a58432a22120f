package vectorindex

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/vectorindex/pgvector"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/vectorindex/qdrant"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/httpclient"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// Ensure every backend implements Store.
var (
	_ Store = (*memory.VectorStore)(nil)
	_ Store = (*sqlite.VectorStore)(nil)
	_ Store = (*qdrant.Store)(nil)
	_ Store = (*pgvector.Store)(nil)
)

// Config selects and tunes the backend.
type Config struct {
	// Backend is the resolved backend. Empty means sqlite.
	Backend domain.VectorBackend

	QdrantURL    string
	QdrantAPIKey string
	Collection   string

	PostgresDSN string

	// LocalPath is the SQLite data directory. Empty means ~/.ragbot/data.
	LocalPath string

	// BatchSize is the number of chunks per embed/upsert call.
	BatchSize int

	// RateLimit caps requests per second to a remote backend. Zero is unlimited.
	RateLimit float64

	// RetryAttempts and RetryDelay tune retries of remote calls.
	RetryAttempts uint
	RetryDelay    time.Duration

	// HTTPOptions are appended to the remote backend's connector options.
	HTTPOptions []httpclient.Option
}

// New opens the configured backend and wraps it in an Index. The
// backend is chosen once here and never changes for the life of the
// returned index.
func New(ctx context.Context, cfg Config, embedder driven.EmbeddingService) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding service is required", domain.ErrVectorIndexUnavailable)
	}
	if cfg.Backend == "" {
		cfg.Backend = domain.VectorBackendSQLite
	}

	store, err := openStore(ctx, cfg, embedder)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrVectorIndexUnavailable, cfg.Backend, err)
	}

	logger.FromContext(ctx).Debug("vector index opened",
		zap.String("backend", store.Name()),
		zap.String("embedding_model", embedder.ModelName()))

	return NewIndex(store, embedder, WithBatchSize(cfg.BatchSize)), nil
}

func openStore(ctx context.Context, cfg Config, embedder driven.EmbeddingService) (Store, error) {
	switch cfg.Backend {
	case domain.VectorBackendMemory:
		return memory.NewVectorStore(), nil

	case domain.VectorBackendSQLite:
		// The vector store owns its own handle so closing the index does
		// not close a session store sharing the same file.
		db, err := sqlite.NewStore(cfg.LocalPath)
		if err != nil {
			return nil, err
		}
		return db.VectorStore(), nil

	case domain.VectorBackendQdrant:
		dims, err := dimensions(ctx, embedder)
		if err != nil {
			return nil, err
		}
		opts := make([]httpclient.Option, 0, len(cfg.HTTPOptions)+1)
		if cfg.RateLimit > 0 {
			opts = append(opts, httpclient.WithRateLimit(cfg.RateLimit, 1))
		}
		opts = append(opts, cfg.HTTPOptions...)
		return qdrant.New(qdrant.Config{
			URL:         cfg.QdrantURL,
			APIKey:      cfg.QdrantAPIKey,
			Collection:  cfg.Collection,
			Dimensions:  dims,
			HTTPOptions: opts,
		})

	case domain.VectorBackendPgvector:
		dims, err := dimensions(ctx, embedder)
		if err != nil {
			return nil, err
		}
		return pgvector.Open(ctx, pgvector.Config{
			DSN:        cfg.PostgresDSN,
			Dimensions: dims,
			Attempts:   cfg.RetryAttempts,
			Delay:      cfg.RetryDelay,
		})

	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}

// dimensions returns the embedder's vector size, probing with one
// embedding call when the model is not in the known table.
func dimensions(ctx context.Context, embedder driven.EmbeddingService) (int, error) {
	if d := embedder.Dimensions(); d > 0 {
		return d, nil
	}
	v, err := embedder.Embed(ctx, "dimension check")
	if err != nil {
		return 0, fmt.Errorf("detect embedding dimensions: %w", err)
	}
	if len(v) == 0 {
		return 0, fmt.Errorf("embedding model %s returned an empty vector", embedder.ModelName())
	}
	return len(v), nil
}

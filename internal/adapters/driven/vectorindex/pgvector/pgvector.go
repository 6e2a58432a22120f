// Package pgvector is a vector backend for PostgreSQL with the pgvector
// extension. The table is created on open with the embedding dimension
// of the configured model and searched with the cosine operator.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// Config holds configuration for the pgvector backend.
type Config struct {
	// DSN is the PostgreSQL connection string (required).
	DSN string

	// Dimensions is the embedding size of the vector column (required).
	Dimensions int

	// Attempts bounds retries of one upsert batch. Zero means 3.
	Attempts uint

	// Delay is the initial backoff between attempts. Zero means 200ms.
	Delay time.Duration
}

// Store keeps vectors in the rag_chunks table.
type Store struct {
	db         *pgxpool.Pool
	dimensions int
	retryOpts  []retry.Option
}

// Open creates the extension, connects a pool with the vector type
// registered, and ensures the table and indexes exist.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("pgvector: DSN is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, errors.New("pgvector: dimensions must be positive")
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay == 0 {
		cfg.Delay = 200 * time.Millisecond
	}

	// The type can only be registered once the extension exists.
	if err := createExtension(ctx, cfg.DSN); err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg.DSN, postgres.PoolConfig{
		AfterConnect: func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		},
	})
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:         pool,
		dimensions: cfg.Dimensions,
		retryOpts: []retry.Option{
			retry.Attempts(cfg.Attempts),
			retry.Delay(cfg.Delay),
			retry.LastErrorOnly(true),
		},
	}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func createExtension(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create extension: %w", err)
	}
	return nil
}

// migrate is idempotent. The column width depends on the embedding
// model, so the DDL is built at runtime instead of shipped as files.
func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rag_chunks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			source TEXT NOT NULL,
			chunk_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.dimensions),
		`CREATE INDEX IF NOT EXISTS idx_rag_chunks_user_source ON rag_chunks (user_id, source)`,
		`CREATE INDEX IF NOT EXISTS idx_rag_chunks_embedding ON rag_chunks USING hnsw (embedding vector_cosine_ops)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}
	return nil
}

// Upsert writes vectors in one transaction, retrying the whole batch on
// failure.
func (s *Store) Upsert(ctx context.Context, vectors []domain.IndexedVector) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}
	for _, v := range vectors {
		if v.UserID == "" {
			return 0, domain.ErrMissingTenant
		}
		if len(v.Embedding) != s.dimensions {
			return 0, fmt.Errorf("pgvector: vector %s has %d dimensions, column expects %d",
				v.ID, len(v.Embedding), s.dimensions)
		}
	}

	opts := make([]retry.Option, 0, len(s.retryOpts)+2)
	opts = append(opts, s.retryOpts...)
	opts = append(opts,
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.FromContext(ctx).Warn("pgvector upsert failed, retrying",
				zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)

	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
				batch := &pgx.Batch{}
				for _, v := range vectors {
					batch.Queue(`
						INSERT INTO rag_chunks (id, user_id, source, chunk_id, content, embedding)
						VALUES ($1, $2, $3, $4, $5, $6)
						ON CONFLICT (id) DO UPDATE SET
							content = EXCLUDED.content,
							embedding = EXCLUDED.embedding
					`, v.ID, v.UserID, v.Source, v.ChunkID, v.Content, pgv.NewVector(v.Embedding))
				}
				return tx.SendBatch(ctx, batch).Close()
			})
		},
		opts...,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert %d vectors after %d attempts: %w", len(vectors), attempt, err)
	}
	return len(vectors), nil
}

// Search returns the user's k nearest chunks with score 1 - cosine distance.
func (s *Store) Search(ctx context.Context, userID string, vector []float32, k int) ([]domain.RetrievedCandidate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT source, chunk_id, content, 1 - (embedding <=> $2) AS score
		FROM rag_chunks
		WHERE user_id = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`, userID, pgv.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RetrievedCandidate, error) {
		var c domain.RetrievedCandidate
		err := row.Scan(&c.Metadata.Source, &c.Metadata.ChunkID, &c.Content, &c.Score)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan search results: %w", err)
	}
	return results, nil
}

// Sources returns the user's distinct source names in order.
func (s *Store) Sources(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT source FROM rag_chunks WHERE user_id = $1 ORDER BY source
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	sources, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan sources: %w", err)
	}
	return sources, nil
}

// DeleteSource removes the user's chunks of one source.
func (s *Store) DeleteSource(ctx context.Context, userID, source string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM rag_chunks WHERE user_id = $1 AND source = $2`, userID, source)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}

// DeleteSourceFrom removes the user's chunks of one source from
// fromChunkID onwards.
func (s *Store) DeleteSourceFrom(ctx context.Context, userID, source string, fromChunkID int) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM rag_chunks WHERE user_id = $1 AND source = $2 AND chunk_id >= $3`,
		userID, source, fromChunkID)
	if err != nil {
		return fmt.Errorf("delete source tail: %w", err)
	}
	return nil
}

// DeleteUser removes all of the user's chunks.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM rag_chunks WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Count returns the number of the user's chunks.
func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM rag_chunks WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Name identifies the backend.
func (s *Store) Name() string {
	return string(domain.VectorBackendPgvector)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

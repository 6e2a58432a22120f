// Package qdrant is a vector backend for a remote Qdrant service, spoken
// to over its REST API. The collection is created with cosine distance
// on first use and every point carries its tenant in the payload.
package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/httpclient"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "ragbot"

// scrollPageSize bounds each page when listing sources.
const scrollPageSize = 256

// Config holds configuration for the Qdrant backend.
type Config struct {
	// URL is the Qdrant base URL (required).
	URL string

	// APIKey is sent in the api-key header when set.
	APIKey string

	// Collection is the collection name.
	Collection string

	// Dimensions is the embedding size used when creating the collection.
	Dimensions int

	// HTTPOptions tune the underlying connector.
	HTTPOptions []httpclient.Option
}

// Store is a minimal REST client to Qdrant.
type Store struct {
	conn       *httpclient.Connector
	collection string
	dimensions int

	mu    sync.Mutex
	ready bool
}

type point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

type payload struct {
	UserID  string `json:"user_id"`
	Source  string `json:"source"`
	ChunkID int    `json:"chunk_id"`
	Text    string `json:"text"`
}

type condition struct {
	Key   string      `json:"key"`
	Match *matchValue `json:"match,omitempty"`
	Range *rangeValue `json:"range,omitempty"`
}

type matchValue struct {
	Value string `json:"value"`
}

type rangeValue struct {
	GTE int `json:"gte"`
}

type filter struct {
	Must []condition `json:"must"`
}

func newFilter(pairs ...string) filter {
	f := filter{Must: make([]condition, 0, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		f.Must = append(f.Must, condition{Key: pairs[i], Match: &matchValue{Value: pairs[i+1]}})
	}
	return f
}

// New creates a Qdrant backend.
func New(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant: URL is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, errors.New("qdrant: dimensions must be positive")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	opts := append([]httpclient.Option{httpclient.WithHeader("api-key", cfg.APIKey)}, cfg.HTTPOptions...)
	return &Store{
		conn:       httpclient.New(cfg.URL, opts...),
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
	}, nil
}

func (s *Store) path(suffix string) string {
	return "/collections/" + url.PathEscape(s.collection) + suffix
}

// ensureCollection creates the collection and the user_id payload index
// unless the collection already exists.
func (s *Store) ensureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	err := s.conn.DoJSON(ctx, http.MethodGet, s.path(""), nil, nil)
	switch {
	case err == nil:
	case httpclient.StatusCode(err) == http.StatusNotFound:
		body := map[string]any{
			"vectors": map[string]any{
				"size":     s.dimensions,
				"distance": "Cosine",
			},
		}
		if err := s.conn.DoJSON(ctx, http.MethodPut, s.path(""), body, nil); err != nil {
			return fmt.Errorf("create collection %s: %w", s.collection, err)
		}

		index := map[string]any{"field_name": "user_id", "field_schema": "keyword"}
		if err := s.conn.DoJSON(ctx, http.MethodPut, s.path("/index?wait=true"), index, nil); err != nil {
			// Filtering still works without the index, only slower.
			logger.FromContext(ctx).Warn("qdrant payload index not created",
				zap.String("collection", s.collection), zap.Error(err))
		}
	default:
		return fmt.Errorf("get collection %s: %w", s.collection, err)
	}

	s.ready = true
	return nil
}

// Upsert writes points and waits for the write to be applied.
func (s *Store) Upsert(ctx context.Context, vectors []domain.IndexedVector) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return 0, err
	}

	points := make([]point, len(vectors))
	for i, v := range vectors {
		if v.UserID == "" {
			return 0, domain.ErrMissingTenant
		}
		if len(v.Embedding) != s.dimensions {
			return 0, fmt.Errorf("qdrant: vector %s has %d dimensions, collection expects %d",
				v.ID, len(v.Embedding), s.dimensions)
		}
		points[i] = point{
			ID:     v.ID,
			Vector: v.Embedding,
			Payload: payload{
				UserID:  v.UserID,
				Source:  v.Source,
				ChunkID: v.ChunkID,
				Text:    v.Content,
			},
		}
	}

	var resp struct {
		Result struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	body := map[string]any{"points": points}
	if err := s.conn.DoJSON(ctx, http.MethodPut, s.path("/points?wait=true"), body, &resp); err != nil {
		return 0, fmt.Errorf("upsert points: %w", err)
	}
	if resp.Result.Status != "" && resp.Result.Status != "completed" {
		return 0, fmt.Errorf("upsert points: status %s", resp.Result.Status)
	}
	return len(points), nil
}

// Search returns the k nearest points of the user.
func (s *Store) Search(ctx context.Context, userID string, vector []float32, k int) ([]domain.RetrievedCandidate, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
		"filter":       newFilter("user_id", userID),
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	if err := s.conn.DoJSON(ctx, http.MethodPost, s.path("/points/search"), req, &resp); err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	results := make([]domain.RetrievedCandidate, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.RetrievedCandidate{
			Content:  r.Payload.Text,
			Metadata: domain.ChunkMetadata{Source: r.Payload.Source, ChunkID: r.Payload.ChunkID},
			Score:    r.Score,
		})
	}
	return results, nil
}

// Sources pages through the user's points with the scroll API and
// collects distinct source names.
func (s *Store) Sources(ctx context.Context, userID string) ([]string, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var offset json.RawMessage
	for {
		req := map[string]any{
			"filter":       newFilter("user_id", userID),
			"limit":        scrollPageSize,
			"with_payload": []string{"source"},
			"with_vector":  false,
		}
		if len(offset) > 0 {
			req["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points []struct {
					Payload struct {
						Source string `json:"source"`
					} `json:"payload"`
				} `json:"points"`
				NextPageOffset json.RawMessage `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.conn.DoJSON(ctx, http.MethodPost, s.path("/points/scroll"), req, &resp); err != nil {
			return nil, fmt.Errorf("scroll points: %w", err)
		}

		for _, p := range resp.Result.Points {
			seen[p.Payload.Source] = true
		}

		next := resp.Result.NextPageOffset
		if len(next) == 0 || string(next) == "null" {
			break
		}
		offset = next
	}

	sources := make([]string, 0, len(seen))
	for source := range seen {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources, nil
}

// DeleteSource removes the user's points of one source.
func (s *Store) DeleteSource(ctx context.Context, userID, source string) error {
	return s.deleteByFilter(ctx, newFilter("user_id", userID, "source", source))
}

// DeleteSourceFrom removes the user's points of one source whose chunk id
// is at least fromChunkID.
func (s *Store) DeleteSourceFrom(ctx context.Context, userID, source string, fromChunkID int) error {
	f := newFilter("user_id", userID, "source", source)
	f.Must = append(f.Must, condition{Key: "chunk_id", Range: &rangeValue{GTE: fromChunkID}})
	return s.deleteByFilter(ctx, f)
}

// DeleteUser removes all of the user's points.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	return s.deleteByFilter(ctx, newFilter("user_id", userID))
}

func (s *Store) deleteByFilter(ctx context.Context, f filter) error {
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	body := map[string]any{"filter": f}
	if err := s.conn.DoJSON(ctx, http.MethodPost, s.path("/points/delete?wait=true"), body, nil); err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

// Count returns the exact number of the user's points.
func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return 0, err
	}

	req := map[string]any{
		"filter": newFilter("user_id", userID),
		"exact":  true,
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.conn.DoJSON(ctx, http.MethodPost, s.path("/points/count"), req, &resp); err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return resp.Result.Count, nil
}

// Name identifies the backend.
func (s *Store) Name() string {
	return string(domain.VectorBackendQdrant)
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

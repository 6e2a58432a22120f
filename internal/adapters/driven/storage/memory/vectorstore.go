package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ragbot/internal/adapters/driven/vectorindex/cosine"
	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// VectorStore is an in-memory vector backend with brute-force cosine search.
// Vectors are partitioned by user so a scan never touches another tenant.
type VectorStore struct {
	mu    sync.RWMutex
	users map[string]map[string]domain.IndexedVector
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		users: make(map[string]map[string]domain.IndexedVector),
	}
}

// Upsert stores or replaces vectors by ID.
func (s *VectorStore) Upsert(_ context.Context, vectors []domain.IndexedVector) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range vectors {
		if v.UserID == "" {
			return 0, domain.ErrMissingTenant
		}
	}
	for _, v := range vectors {
		points, ok := s.users[v.UserID]
		if !ok {
			points = make(map[string]domain.IndexedVector)
			s.users[v.UserID] = points
		}
		v.Embedding = append([]float32(nil), v.Embedding...)
		points[v.ID] = v
	}
	return len(vectors), nil
}

// Search scans the user's vectors and returns the k most similar.
func (s *VectorStore) Search(_ context.Context, userID string, vector []float32, k int) ([]domain.RetrievedCandidate, error) {
	s.mu.RLock()
	points := s.users[userID]
	candidates := make([]domain.RetrievedCandidate, 0, len(points))
	for _, p := range points {
		candidates = append(candidates, domain.RetrievedCandidate{
			Content:  p.Content,
			Metadata: domain.ChunkMetadata{Source: p.Source, ChunkID: p.ChunkID},
			Score:    cosine.Similarity(vector, p.Embedding),
		})
	}
	s.mu.RUnlock()

	// Map iteration is random; fix the tie order before ranking.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].Metadata, candidates[j].Metadata
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.ChunkID < b.ChunkID
	})
	return cosine.TopK(candidates, k), nil
}

// Sources returns the distinct source names.
func (s *VectorStore) Sources(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var sources []string
	for _, p := range s.users[userID] {
		if !seen[p.Source] {
			seen[p.Source] = true
			sources = append(sources, p.Source)
		}
	}
	sort.Strings(sources)
	return sources, nil
}

// DeleteSource removes every vector of one source.
func (s *VectorStore) DeleteSource(_ context.Context, userID, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.users[userID] {
		if p.Source == source {
			delete(s.users[userID], id)
		}
	}
	return nil
}

// DeleteSourceFrom removes the vectors of one source from fromChunkID on.
func (s *VectorStore) DeleteSourceFrom(_ context.Context, userID, source string, fromChunkID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.users[userID] {
		if p.Source == source && p.ChunkID >= fromChunkID {
			delete(s.users[userID], id)
		}
	}
	return nil
}

// DeleteUser removes every vector of the user.
func (s *VectorStore) DeleteUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

// Count returns the number of vectors stored for the user.
func (s *VectorStore) Count(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID]), nil
}

// Name identifies the backend.
func (s *VectorStore) Name() string {
	return string(domain.VectorBackendMemory)
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}

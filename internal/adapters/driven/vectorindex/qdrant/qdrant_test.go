package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/httpclient"
)

// fakeQdrant records requests and serves canned responses per path.
type fakeQdrant struct {
	mu       sync.Mutex
	exists   bool
	requests []string
	bodies   map[string]map[string]any
}

func newFakeQdrant(t *testing.T, exists bool) (*fakeQdrant, *httptest.Server) {
	t.Helper()
	f := &fakeQdrant{exists: exists, bodies: make(map[string]map[string]any)}
	server := httptest.NewServer(http.HandlerFunc(f.handle(t)))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeQdrant) handle(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		f.requests = append(f.requests, key)
		assert.Equal(t, "secret", r.Header.Get("api-key"))

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.bodies[key] = body

		switch key {
		case "GET /collections/docs":
			if !f.exists {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"result":{}}`))
		case "PUT /collections/docs":
			f.exists = true
			_, _ = w.Write([]byte(`{"result":true}`))
		case "PUT /collections/docs/index":
			_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
		case "PUT /collections/docs/points":
			_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
		case "POST /collections/docs/points/search":
			_, _ = w.Write([]byte(`{"result":[
				{"score":0.92,"payload":{"user_id":"alice","source":"notes.txt","chunk_id":1,"text":"port 8080"}},
				{"score":0.40,"payload":{"user_id":"alice","source":"notes.txt","chunk_id":0,"text":"intro"}}
			]}`))
		case "POST /collections/docs/points/scroll":
			if _, ok := body["offset"]; ok {
				_, _ = w.Write([]byte(`{"result":{"points":[{"payload":{"source":"b.pdf"}}],"next_page_offset":null}}`))
				return
			}
			_, _ = w.Write([]byte(`{"result":{"points":[{"payload":{"source":"notes.txt"}},{"payload":{"source":"a.docx"}},{"payload":{"source":"notes.txt"}}],"next_page_offset":"5b1e0d7c-0000-0000-0000-000000000000"}}`))
		case "POST /collections/docs/points/delete":
			_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
		case "POST /collections/docs/points/count":
			_, _ = w.Write([]byte(`{"result":{"count":42}}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}
}

func newTestStore(t *testing.T, url string) *Store {
	t.Helper()
	store, err := New(Config{
		URL:         url,
		APIKey:      "secret",
		Collection:  "docs",
		Dimensions:  3,
		HTTPOptions: []httpclient.Option{httpclient.WithRetry(retry.Attempts(1), retry.Delay(time.Millisecond))},
	})
	require.NoError(t, err)
	return store
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Dimensions: 3})
	assert.Error(t, err)
	_, err = New(Config{URL: "http://localhost:6333"})
	assert.Error(t, err)
}

func TestUpsert_CreatesCollectionOnce(t *testing.T) {
	fake, server := newFakeQdrant(t, false)
	store := newTestStore(t, server.URL)
	ctx := context.Background()

	v := domain.IndexedVector{
		ID: domain.VectorID("alice", "notes.txt", 0), Embedding: []float32{1, 0, 0},
		UserID: "alice", Source: "notes.txt", ChunkID: 0, Content: "intro",
	}
	n, err := store.Upsert(ctx, []domain.IndexedVector{v})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = store.Upsert(ctx, []domain.IndexedVector{v})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{
		"GET /collections/docs",
		"PUT /collections/docs",
		"PUT /collections/docs/index",
		"PUT /collections/docs/points",
		"PUT /collections/docs/points",
	}, fake.requests)

	vectors := fake.bodies["PUT /collections/docs"]["vectors"].(map[string]any)
	assert.Equal(t, float64(3), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])

	points := fake.bodies["PUT /collections/docs/points"]["points"].([]any)
	p := points[0].(map[string]any)
	assert.Equal(t, v.ID, p["id"])
	assert.Equal(t, "alice", p["payload"].(map[string]any)["user_id"])
}

func TestUpsert_RejectsWrongDimensions(t *testing.T) {
	_, server := newFakeQdrant(t, true)
	store := newTestStore(t, server.URL)

	_, err := store.Upsert(context.Background(), []domain.IndexedVector{{ID: "x", UserID: "alice", Embedding: []float32{1}}})

	assert.ErrorContains(t, err, "dimensions")
}

func TestSearch_FiltersByUser(t *testing.T) {
	fake, server := newFakeQdrant(t, true)
	store := newTestStore(t, server.URL)

	results, err := store.Search(context.Background(), "alice", []float32{0, 1, 0}, 15)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "port 8080", results[0].Content)
	assert.Equal(t, domain.ChunkMetadata{Source: "notes.txt", ChunkID: 1}, results[0].Metadata)
	assert.InDelta(t, 0.92, results[0].Score, 1e-9)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	body := fake.bodies["POST /collections/docs/points/search"]
	assert.Equal(t, float64(15), body["limit"])
	must := body["filter"].(map[string]any)["must"].([]any)
	cond := must[0].(map[string]any)
	assert.Equal(t, "user_id", cond["key"])
	assert.Equal(t, "alice", cond["match"].(map[string]any)["value"])
}

func TestSources_PagesThroughScroll(t *testing.T) {
	_, server := newFakeQdrant(t, true)
	store := newTestStore(t, server.URL)

	sources, err := store.Sources(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, []string{"a.docx", "b.pdf", "notes.txt"}, sources)
}

func TestDeleteAndCount(t *testing.T) {
	fake, server := newFakeQdrant(t, true)
	store := newTestStore(t, server.URL)
	ctx := context.Background()

	require.NoError(t, store.DeleteSource(ctx, "alice", "notes.txt"))
	fake.mu.Lock()
	must := fake.bodies["POST /collections/docs/points/delete"]["filter"].(map[string]any)["must"].([]any)
	fake.mu.Unlock()
	assert.Len(t, must, 2)

	require.NoError(t, store.DeleteSourceFrom(ctx, "alice", "notes.txt", 3))
	fake.mu.Lock()
	must = fake.bodies["POST /collections/docs/points/delete"]["filter"].(map[string]any)["must"].([]any)
	fake.mu.Unlock()
	require.Len(t, must, 3)
	tail := must[2].(map[string]any)
	assert.Equal(t, "chunk_id", tail["key"])
	assert.Equal(t, float64(3), tail["range"].(map[string]any)["gte"])
	assert.NotContains(t, tail, "match")

	require.NoError(t, store.DeleteUser(ctx, "alice"))
	fake.mu.Lock()
	must = fake.bodies["POST /collections/docs/points/delete"]["filter"].(map[string]any)["must"].([]any)
	fake.mu.Unlock()
	assert.Len(t, must, 1)

	n, err := store.Count(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestSearch_BackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	store := newTestStore(t, server.URL)

	_, err := store.Search(context.Background(), "alice", []float32{1, 0, 0}, 5)

	assert.Error(t, err)
}

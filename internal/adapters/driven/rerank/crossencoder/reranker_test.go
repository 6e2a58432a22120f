package crossencoder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/httpclient"
)

func candidates(n int) []domain.RetrievedCandidate {
	out := make([]domain.RetrievedCandidate, n)
	for i := range out {
		out[i] = domain.RetrievedCandidate{
			Content:  string(rune('a' + i)),
			Metadata: domain.ChunkMetadata{Source: "doc.txt", ChunkID: i},
			Score:    1 - float64(i)/10,
		}
	}
	return out
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestRerank(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		assert.Equal(t, "Bearer rk", r.Header.Get("Authorization"))

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what port", req.Query)
		assert.Equal(t, []string{"a", "b", "c"}, req.Documents)
		assert.Equal(t, 2, req.TopN)
		assert.Equal(t, DefaultModel, req.Model)

		_, _ = w.Write([]byte(`{"results":[
			{"index":0,"relevance_score":0.1},
			{"index":2,"relevance_score":0.9},
			{"index":1,"relevance_score":0.5}
		]}`))
	}))
	defer server.Close()

	r, err := New(Config{URL: server.URL, APIKey: "rk"})
	require.NoError(t, err)

	ranked, err := r.Rerank(context.Background(), "what port", candidates(3), 2)

	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "c", ranked[0].Content)
	assert.Equal(t, 0.9, ranked[0].Score)
	assert.Equal(t, 2, ranked[0].Metadata.ChunkID)
	assert.Equal(t, "b", ranked[1].Content)
}

func TestRerank_IgnoresBadIndexes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"index":7,"relevance_score":0.9},{"index":0,"relevance_score":0.2},{"index":0,"relevance_score":0.1}]}`))
	}))
	defer server.Close()

	r, err := New(Config{URL: server.URL})
	require.NoError(t, err)

	ranked, err := r.Rerank(context.Background(), "q", candidates(2), 5)

	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "a", ranked[0].Content)
}

func TestRerank_Empty(t *testing.T) {
	r, err := New(Config{URL: "http://unused"})
	require.NoError(t, err)

	ranked, err := r.Rerank(context.Background(), "q", nil, 5)

	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestRerank_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	r, err := New(Config{
		URL:         server.URL,
		HTTPOptions: []httpclient.Option{httpclient.WithRetry(retry.Attempts(1), retry.Delay(time.Millisecond))},
	})
	require.NoError(t, err)

	_, err = r.Rerank(context.Background(), "q", candidates(2), 1)

	assert.ErrorIs(t, err, domain.ErrRerankUnavailable)
}

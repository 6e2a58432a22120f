package cosine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTopK(t *testing.T) {
	candidates := []domain.RetrievedCandidate{
		{Content: "low", Score: 0.1},
		{Content: "high", Score: 0.9},
		{Content: "mid", Score: 0.5},
	}

	top := TopK(candidates, 2)

	assert.Len(t, top, 2)
	assert.Equal(t, "high", top[0].Content)
	assert.Equal(t, "mid", top[1].Content)
	assert.Len(t, TopK(candidates, 10), 3)
}

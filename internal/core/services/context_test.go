package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

func ranked(items ...string) []domain.RankedCandidate {
	out := make([]domain.RankedCandidate, 0, len(items)/2)
	for i := 0; i+1 < len(items); i += 2 {
		out = append(out, domain.RankedCandidate{
			Content:  items[i+1],
			Metadata: domain.ChunkMetadata{Source: items[i]},
		})
	}
	return out
}

func TestContextAssembler_Format(t *testing.T) {
	a := NewContextAssembler(5, 0)

	got := a.Assemble(ranked("b.pdf", "beta", "a.txt", "alpha", "b.pdf", "beta two"), nil)

	assert.Equal(t, "[Document 1: b.pdf]\nbeta\n\n[Document 2: a.txt]\nalpha\n\n[Document 3: b.pdf]\nbeta two", got.ContextText)
	assert.Equal(t, NoHistoryText, got.HistoryText)
	assert.Equal(t, []string{"a.txt", "b.pdf"}, got.Sources)
}

func TestContextAssembler_Empty(t *testing.T) {
	got := NewContextAssembler(5, 0).Assemble(nil, nil)

	assert.Equal(t, NoDocumentsText, got.ContextText)
	assert.Empty(t, got.Sources)
}

func TestContextAssembler_Budget(t *testing.T) {
	items := ranked("a.txt", "0123456789", "b.txt", "0123456789", "c.txt", "0123456789")
	block := len("[Document 1: a.txt]\n0123456789")

	t.Run("keeps what fits", func(t *testing.T) {
		got := NewContextAssembler(5, 2*block+2).Assemble(items, nil)
		assert.Equal(t, []string{"a.txt", "b.txt"}, got.Sources)
		assert.NotContains(t, got.ContextText, "Document 3")
	})

	t.Run("first candidate always kept", func(t *testing.T) {
		got := NewContextAssembler(5, 5).Assemble(items, nil)
		assert.Equal(t, []string{"a.txt"}, got.Sources)
		assert.Contains(t, got.ContextText, "[Document 1: a.txt]")
	})
}

func TestContextAssembler_History(t *testing.T) {
	history := []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
	}

	got := NewContextAssembler(5, 0).Assemble(nil, history)

	assert.Equal(t, "User: hi\nAssistant: hello", got.HistoryText)
}

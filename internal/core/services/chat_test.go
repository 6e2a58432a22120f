package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/normalisers"
	"github.com/custodia-labs/ragbot/internal/postprocessors/chunker"
)

const notesText = "Cats sleep for most of the day and purr when they are content.\n\n" +
	"The new server has 64 cores and 512 GB of memory for the build farm.\n\n" +
	"Tomatoes grow best in full sun with regular watering in summer."

type chatFixture struct {
	index *vectorindex.Index
	docs  *DocumentService
	llm   *mockLLM
	chat  *ChatService
}

func newChatFixture(t *testing.T, llm *mockLLM) *chatFixture {
	t.Helper()
	index := vectorindex.NewIndex(memory.NewVectorStore(), bagOfWords{})
	splitter := chunker.New(chunker.WithChunkSize(100), chunker.WithOverlap(0))
	return &chatFixture{
		index: index,
		docs:  NewDocumentService(normalisers.NewDefaultRegistry(), splitter, index),
		llm:   llm,
		chat:  NewChatService(index, llm, nil, nil, domain.DefaultRAGSettings()),
	}
}

func (f *chatFixture) upload(t *testing.T, userID, name, text string) {
	t.Helper()
	results := f.docs.Upload(context.Background(), userID, []domain.UploadFile{{Name: name, Data: []byte(text)}})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
}

func collect(t *testing.T, ch <-chan domain.StreamEvent) []domain.StreamEvent {
	t.Helper()
	var events []domain.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("stream did not close")
			return nil
		}
	}
}

func kinds(events []domain.StreamEvent) []domain.EventKind {
	out := make([]domain.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestChatService_AnswersFromDocuments(t *testing.T) {
	f := newChatFixture(t, &mockLLM{streamChunks: []string{"The server has ", "64 cores."}})
	f.upload(t, "alice", "notes.txt", notesText)

	events := collect(t, f.chat.Ask(context.Background(), "alice", "How many cores does the server have?", nil))

	require.Equal(t, []domain.EventKind{domain.EventChunk, domain.EventChunk, domain.EventComplete}, kinds(events))
	assert.Equal(t, "The server has ", events[0].Text)
	done := events[2]
	assert.Equal(t, "The server has 64 cores.", done.FullText)
	assert.Equal(t, []string{"notes.txt"}, done.Sources)
	assert.Empty(t, done.RewrittenQuery)

	prompt := f.llm.lastStreamPrompt()
	assert.Contains(t, prompt, "[Document 1: notes.txt]\nThe new server has 64 cores")
	assert.Contains(t, prompt, "USER QUESTION: How many cores does the server have?")
	assert.Contains(t, prompt, "CHAT HISTORY:\n"+NoHistoryText)

	generate, _ := f.llm.calls()
	assert.Zero(t, generate, "no history means no rewrite call")
}

func TestChatService_RewritesFollowUp(t *testing.T) {
	llm := &mockLLM{
		generateFn:   func(string) (string, error) { return "How much memory does the new server have?", nil },
		streamChunks: []string{"512 GB."},
	}
	f := newChatFixture(t, llm)
	f.upload(t, "alice", "notes.txt", notesText)
	history := []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "Tell me about the new server."},
		{Role: domain.RoleAssistant, Content: "It has 64 cores."},
	}

	answer, err := f.chat.Answer(context.Background(), "alice", "and memory?", history)

	require.NoError(t, err)
	assert.Equal(t, "512 GB.", answer.Text)
	assert.Equal(t, "How much memory does the new server have?", answer.RewrittenQuery)
	prompt := llm.lastStreamPrompt()
	assert.Contains(t, prompt, "USER QUESTION: and memory?")
	assert.Contains(t, prompt, "User: Tell me about the new server.\nAssistant: It has 64 cores.")
}

func TestChatService_NoDocuments(t *testing.T) {
	f := newChatFixture(t, &mockLLM{streamChunks: []string{"never"}})
	f.upload(t, "bob", "notes.txt", notesText)

	events := collect(t, f.chat.Ask(context.Background(), "alice", "What is in my notes?", nil))

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventComplete, events[0].Kind)
	assert.Equal(t, NoDocumentsMessage, events[0].FullText)
	assert.Empty(t, events[0].Sources)
	generate, stream := f.llm.calls()
	assert.Zero(t, generate)
	assert.Zero(t, stream)
}

func TestChatService_StreamFailure(t *testing.T) {
	llm := &mockLLM{streamChunks: []string{"Part", "ial"}, streamErr: errors.New("connection reset")}
	f := newChatFixture(t, llm)
	f.upload(t, "alice", "notes.txt", notesText)

	events := collect(t, f.chat.Ask(context.Background(), "alice", "server cores?", nil))

	require.Equal(t, []domain.EventKind{domain.EventChunk, domain.EventChunk, domain.EventError}, kinds(events))
	failed := events[2]
	assert.Equal(t, "Partial", failed.Partial)
	assert.True(t, strings.HasPrefix(failed.Message, GenerationFailedMessage+" Details: "), failed.Message)
	assert.Contains(t, failed.Message, "connection reset")
}

func TestChatService_StartFailure(t *testing.T) {
	f := newChatFixture(t, &mockLLM{streamStartErr: errors.New("invalid api key")})
	f.upload(t, "alice", "notes.txt", notesText)

	_, err := f.chat.Answer(context.Background(), "alice", "server cores?", nil)

	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Empty(t, genErr.Partial)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestChatService_AnswerKeepsPartial(t *testing.T) {
	f := newChatFixture(t, &mockLLM{streamChunks: []string{"half"}, streamErr: errors.New("eof")})
	f.upload(t, "alice", "notes.txt", notesText)

	_, err := f.chat.Answer(context.Background(), "alice", "server cores?", nil)

	var genErr *domain.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "half", genErr.Partial)
}

func TestChatService_Cancel(t *testing.T) {
	llm := &mockLLM{streamChunks: []string{"one ", "two ", "three"}, blockAfter: 1}
	f := newChatFixture(t, llm)
	f.upload(t, "alice", "notes.txt", notesText)
	ctx, cancel := context.WithCancel(context.Background())

	ch := f.chat.Ask(ctx, "alice", "server cores?", nil)
	first := <-ch
	require.Equal(t, domain.EventChunk, first.Kind)
	cancel()

	for _, ev := range collect(t, ch) {
		assert.False(t, ev.IsTerminal(), "no terminal event after cancel")
	}
}

func TestChatService_RejectsBadInput(t *testing.T) {
	f := newChatFixture(t, &mockLLM{})

	for _, tt := range []struct{ user, question, message string }{
		{"", "anything", "Please sign in first."},
		{"alice", "   ", "Please enter a question."},
	} {
		events := collect(t, f.chat.Ask(context.Background(), tt.user, tt.question, nil))
		require.Len(t, events, 1)
		assert.Equal(t, domain.EventError, events[0].Kind)
		assert.Equal(t, tt.message, events[0].Message)
		assert.NotContains(t, events[0].Message, GenerationFailedMessage)
	}
	_, stream := f.llm.calls()
	assert.Zero(t, stream)
}

func TestChatService_UsesReranker(t *testing.T) {
	llm := &mockLLM{streamChunks: []string{"ok"}}
	f := newChatFixture(t, llm)
	f.upload(t, "alice", "notes.txt", notesText)
	tomatoesFirst := &mockReranker{score: func(c domain.RetrievedCandidate) float64 {
		if strings.Contains(c.Content, "Tomatoes") {
			return 10
		}
		return 1
	}}
	chat := NewChatService(f.index, llm, tomatoesFirst, nil, domain.DefaultRAGSettings())

	_, err := chat.Answer(context.Background(), "alice", "server cores?", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, tomatoesFirst.calls)
	assert.Contains(t, llm.lastStreamPrompt(), "[Document 1: notes.txt]\nTomatoes grow best")
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

func TestConversation_RecordsTurns(t *testing.T) {
	f := newChatFixture(t, &mockLLM{streamChunks: []string{"64 cores."}})
	f.upload(t, "alice", "notes.txt", notesText)
	sessions := newSessionService()
	session, err := sessions.Create(context.Background(), "alice")
	require.NoError(t, err)
	conv := NewConversation(f.chat, sessions)

	ch, err := conv.Ask(context.Background(), "alice", session.ID, "How many cores does the server have?")
	require.NoError(t, err)
	collect(t, ch)

	got, err := sessions.Get(context.Background(), "alice", session.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, domain.RoleUser, got.Messages[0].Role)
	assert.Equal(t, "64 cores.", got.Messages[1].Content)
	assert.Equal(t, []string{"notes.txt"}, got.Messages[1].Sources)
	assert.Equal(t, "How many cores does the server have?", got.Title)

	// The question being asked is not part of its own history.
	assert.NotContains(t, f.llm.lastStreamPrompt(), "User: How many cores")
}

func TestConversation_HistoryFromSession(t *testing.T) {
	llm := &mockLLM{
		generateFn:   func(string) (string, error) { return "How much memory does the new server have?", nil },
		streamChunks: []string{"ok"},
	}
	f := newChatFixture(t, llm)
	f.upload(t, "alice", "notes.txt", notesText)
	sessions := newSessionService()
	session, err := sessions.Create(context.Background(), "alice")
	require.NoError(t, err)
	conv := NewConversation(f.chat, sessions)

	for _, q := range []string{"Tell me about the server.", "and memory?"} {
		ch, err := conv.Ask(context.Background(), "alice", session.ID, q)
		require.NoError(t, err)
		collect(t, ch)
	}

	generate, _ := llm.calls()
	assert.Equal(t, 1, generate, "only the follow-up has history to rewrite against")
	assert.Contains(t, llm.generatePrompts[0], "User: Tell me about the server.\nAssistant: ok")
}

func TestConversation_SaveErrors(t *testing.T) {
	for _, save := range []bool{false, true} {
		f := newChatFixture(t, &mockLLM{streamErr: errors.New("boom")})
		f.upload(t, "alice", "notes.txt", notesText)
		sessions := newSessionService()
		session, err := sessions.Create(context.Background(), "alice")
		require.NoError(t, err)

		ch, err := NewConversation(f.chat, sessions, WithSaveErrors(save)).Ask(context.Background(), "alice", session.ID, "server?")
		require.NoError(t, err)
		collect(t, ch)

		got, err := sessions.Get(context.Background(), "alice", session.ID)
		require.NoError(t, err)
		if save {
			require.Len(t, got.Messages, 2)
			assert.Contains(t, got.Messages[1].Content, GenerationFailedMessage)
		} else {
			assert.Len(t, got.Messages, 1)
		}
	}
}

func TestConversation_UnknownSession(t *testing.T) {
	f := newChatFixture(t, &mockLLM{})

	_, err := NewConversation(f.chat, newSessionService()).Ask(context.Background(), "alice", "missing", "hi")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package sessions

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/services"
)

func newSessionsView(t *testing.T, titles ...string) (*View, *services.SessionService) {
	t.Helper()
	ctx := context.Background()
	svc := services.NewSessionService(memory.NewSessionStore())
	for _, title := range titles {
		s, err := svc.Create(ctx, "alice")
		require.NoError(t, err)
		require.NoError(t, svc.AppendMessage(ctx, "alice", s.ID, domain.ConversationTurn{Role: domain.RoleUser, Content: title}))
	}
	v := NewView(ctx, styles.DefaultStyles(), svc, "alice")
	v.SetDimensions(100, 30)
	v, _ = v.Update(v.Init()())
	return v, svc
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestView_ListsSessions(t *testing.T) {
	v, _ := newSessionsView(t, "First topic", "Second topic")

	require.Len(t, v.Sessions(), 2)
	out := v.View()
	assert.Contains(t, out, "First topic")
	assert.Contains(t, out, "Second topic")
}

func TestView_EmptyState(t *testing.T) {
	v, _ := newSessionsView(t)

	assert.Contains(t, v.View(), "No saved sessions.")
}

func TestView_Navigation(t *testing.T) {
	v, _ := newSessionsView(t, "a", "b", "c")

	v, _ = v.Update(key("j"))
	v, _ = v.Update(key("j"))
	v, _ = v.Update(key("j"))
	assert.Equal(t, 2, v.SelectedIndex())

	v, _ = v.Update(key("k"))
	assert.Equal(t, 1, v.SelectedIndex())
}

func TestView_EnterOpensSession(t *testing.T) {
	v, _ := newSessionsView(t, "Only one")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(messages.SessionOpened)

	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, "Only one", msg.Session.Title)
	require.Len(t, msg.Session.Messages, 1)
}

func TestView_DeleteReloads(t *testing.T) {
	v, svc := newSessionsView(t, "keep", "drop")
	target := v.Sessions()[0].ID

	v, cmd := v.Update(key("d"))
	v, cmd = v.Update(cmd())
	v, _ = v.Update(cmd())

	assert.Len(t, v.Sessions(), 1)
	_, err := svc.Get(context.Background(), "alice", target)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestView_EscReturnsToChat(t *testing.T) {
	v, _ := newSessionsView(t)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	assert.Equal(t, messages.ViewChanged{View: messages.ViewChat}, cmd())
}

func TestView_LoadError(t *testing.T) {
	v, _ := newSessionsView(t)

	v, _ = v.Update(messages.SessionsLoaded{Err: domain.ErrMissingTenant})

	assert.Error(t, v.Err())
	assert.Contains(t, v.View(), "Error:")
}

package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragbot/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/services"
)

type stubChat struct{}

func (stubChat) Ask(context.Context, string, string, []domain.ConversationTurn) <-chan domain.StreamEvent {
	ch := make(chan domain.StreamEvent, 1)
	ch <- domain.CompleteEvent("ok", nil, "")
	close(ch)
	return ch
}

func (stubChat) Answer(context.Context, string, string, []domain.ConversationTurn) (domain.Answer, error) {
	return domain.Answer{Text: "ok"}, nil
}

type stubDocuments struct{}

func (stubDocuments) Upload(context.Context, string, []domain.UploadFile) []domain.UploadResult {
	return nil
}
func (stubDocuments) List(context.Context, string) ([]string, error) { return []string{"a.txt"}, nil }
func (stubDocuments) Delete(context.Context, string, string) error    { return nil }
func (stubDocuments) Stats(context.Context, string) (domain.DocumentStats, error) {
	return domain.DocumentStats{Documents: 1, Chunks: 2}, nil
}
func (stubDocuments) ClearAll(context.Context, string) error { return nil }

func newTestApp(t *testing.T) *App {
	t.Helper()
	sessions := services.NewSessionService(memory.NewSessionStore())
	app, err := NewApp(context.Background(), &Ports{
		Conversation: services.NewConversation(stubChat{}, sessions),
		Sessions:     sessions,
		Documents:    stubDocuments{},
	})
	require.NoError(t, err)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	app.Update(app.Chat().NewSession()())
	return app
}

// run feeds the result of cmd back into the app until no command remains.
func run(app *App, cmd tea.Cmd) {
	for cmd != nil {
		_, cmd = app.Update(cmd())
	}
}

func TestPorts_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingConversation)

	sessions := services.NewSessionService(memory.NewSessionStore())
	p := &Ports{Conversation: services.NewConversation(stubChat{}, sessions)}
	assert.ErrorIs(t, p.Validate(), ErrMissingSessionService)

	p.Sessions = sessions
	assert.ErrorIs(t, p.Validate(), ErrMissingDocumentService)

	p.Documents = stubDocuments{}
	assert.NoError(t, p.Validate())
	assert.Equal(t, domain.LocalUserID, p.user())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(context.Background(), &Ports{})

	assert.Nil(t, app)
	assert.ErrorIs(t, err, ErrMissingConversation)
}

func TestApp_NotReadyBeforeSize(t *testing.T) {
	sessions := services.NewSessionService(memory.NewSessionStore())
	app, err := NewApp(context.Background(), &Ports{
		Conversation: services.NewConversation(stubChat{}, sessions),
		Sessions:     sessions,
		Documents:    stubDocuments{},
	})
	require.NoError(t, err)

	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
}

func TestApp_StartsInChat(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, messages.ViewChat, app.CurrentView())
	require.NotNil(t, app.Chat().Session())
	assert.Contains(t, app.View(), "ragbot")
}

func TestApp_DocumentsView(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	run(app, cmd)

	assert.Equal(t, messages.ViewDocuments, app.CurrentView())
	assert.Contains(t, app.View(), "a.txt")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	run(app, cmd)
	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_OpenSessionFromList(t *testing.T) {
	app := newTestApp(t)
	chatView := app.Chat()
	chatView.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Hello there")})
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(app, cmd)
	first := chatView.Session().ID
	run(app, chatView.NewSession())

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	run(app, cmd)
	require.Equal(t, messages.ViewSessions, app.CurrentView())
	assert.Contains(t, app.View(), "Hello there")

	// Sessions list most recent first; the answered one is older.
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	run(app, cmd)
	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(app, cmd)

	assert.Equal(t, messages.ViewChat, app.CurrentView())
	assert.Equal(t, first, chatView.Session().ID)
	assert.Len(t, chatView.Turns(), 2)
}

func TestApp_HelpToggle(t *testing.T) {
	app := newTestApp(t)

	app.Update(tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, messages.ViewHelp, app.CurrentView())
	assert.Contains(t, app.View(), "new chat")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewChat, app.CurrentView())
}

func TestApp_Quit(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

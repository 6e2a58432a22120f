// Package chat provides the conversation view: a scrolling transcript,
// a question input and a status bar, with answers rendered as they stream.
package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driving"
)

// Asker answers a question inside a session and records both turns.
type Asker interface {
	Ask(ctx context.Context, userID, sessionID, question string) (<-chan domain.StreamEvent, error)
}

// chrome is the number of lines used by the header, input and status bar.
const chrome = 6

const emptyHint = "No messages yet. Upload documents with 'ragbot upload', then ask a question below."

// View is the conversation view.
type View struct {
	ctx      context.Context
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	asker    Asker
	sessions driving.SessionService
	userID   string

	session   *domain.Session
	turns     []domain.ConversationTurn
	partial   string
	streaming bool
	cancel    context.CancelFunc

	viewport viewport.Model
	markdown *glamour.TermRenderer
	input    *input.QuestionInput
	status   *status.Bar
	width    int
	height   int
}

// NewView creates a chat view for userID.
func NewView(
	ctx context.Context,
	s *styles.Styles,
	km *keymap.KeyMap,
	asker Asker,
	sessions driving.SessionService,
	userID string,
) *View {
	v := &View{
		ctx:      ctx,
		styles:   s,
		keymap:   km,
		asker:    asker,
		sessions: sessions,
		userID:   userID,
		viewport: viewport.New(80, 18),
		input:    input.NewQuestionInput(s),
		status:   status.NewBar(s, km),
		width:    80,
		height:   24,
	}
	v.markdown = newMarkdownRenderer(v.width)
	v.refresh()
	return v
}

// newMarkdownRenderer returns nil when glamour cannot be set up; answers
// are then shown as plain wrapped text.
func newMarkdownRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return nil
	}
	return r
}

// Init starts a fresh session.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.NewSession())
}

// NewSession returns a command that creates an empty session.
func (v *View) NewSession() tea.Cmd {
	return func() tea.Msg {
		session, err := v.sessions.Create(v.ctx, v.userID)
		return messages.SessionOpened{Session: session, Err: err}
	}
}

// OpenSession returns a command that loads an existing session.
func (v *View) OpenSession(id string) tea.Cmd {
	return func() tea.Msg {
		session, err := v.sessions.Get(v.ctx, v.userID, id)
		return messages.SessionOpened{Session: session, Err: err}
	}
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SessionOpened:
		if msg.Err != nil {
			v.status.SetError(domain.UserMessage(msg.Err))
			return v, nil
		}
		v.stop()
		v.session = msg.Session
		v.turns = append([]domain.ConversationTurn(nil), msg.Session.Messages...)
		v.partial = ""
		v.status.SetTitle(msg.Session.Title)
		v.status.SetState(status.StateReady)
		v.refresh()
		return v, nil

	case messages.AnswerStarted:
		return v, waitForEvent(msg.Events)

	case messages.StreamEvent:
		return v.handleEvent(msg)

	case messages.StreamClosed:
		v.finish()
		if v.status.State() != status.StateError {
			v.status.SetState(status.StateReady)
		}
		return v, nil

	case messages.ErrorOccurred:
		v.finish()
		v.status.SetError(domain.UserMessage(msg.Err))
		v.refresh()
		return v, nil
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()
	switch {
	case keymap.Matches(key, v.keymap.Send):
		return v.submit()

	case keymap.Matches(key, v.keymap.NewChat):
		if v.streaming {
			return v, nil
		}
		return v, v.NewSession()

	case keymap.Matches(key, v.keymap.Back):
		if v.streaming {
			v.stop()
		}
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollUp):
		v.viewport.HalfViewUp()
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollDown):
		v.viewport.HalfViewDown()
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) submit() (*View, tea.Cmd) {
	question := strings.TrimSpace(v.input.Value())
	if v.streaming || question == "" {
		return v, nil
	}
	if v.session == nil {
		v.status.SetError("No session is open.")
		return v, nil
	}

	v.input.Reset()
	v.turns = append(v.turns, domain.ConversationTurn{Role: domain.RoleUser, Content: question})
	v.partial = ""
	v.streaming = true
	v.status.SetState(status.StateThinking)
	v.refresh()

	ctx, cancel := context.WithCancel(v.ctx)
	v.cancel = cancel
	sessionID := v.session.ID
	return v, func() tea.Msg {
		events, err := v.asker.Ask(ctx, v.userID, sessionID, question)
		if err != nil {
			return messages.ErrorOccurred{Err: err}
		}
		return messages.AnswerStarted{Events: events}
	}
}

func (v *View) handleEvent(msg messages.StreamEvent) (*View, tea.Cmd) {
	ev := msg.Event
	switch ev.Kind {
	case domain.EventChunk:
		v.partial += ev.Text
		v.status.SetState(status.StateStreaming)
		v.refresh()
		return v, waitForEvent(msg.Events)

	case domain.EventComplete:
		v.turns = append(v.turns, domain.ConversationTurn{
			Role:    domain.RoleAssistant,
			Content: ev.FullText,
			Sources: ev.Sources,
		})
		v.finish()
		v.status.SetState(status.StateReady)
		v.refresh()
		if v.session != nil {
			return v, v.OpenSession(v.session.ID)
		}
		return v, nil

	case domain.EventError:
		content := ev.Message
		if ev.Partial != "" {
			content = ev.Partial + "\n\n" + ev.Message
		}
		v.turns = append(v.turns, domain.ConversationTurn{Role: domain.RoleAssistant, Content: content})
		v.finish()
		v.status.SetError(ev.Message)
		v.refresh()
		return v, nil
	}
	return v, waitForEvent(msg.Events)
}

// waitForEvent reads the next event from a stream.
func waitForEvent(events <-chan domain.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return messages.StreamClosed{}
		}
		return messages.StreamEvent{Event: ev, Events: events}
	}
}

// stop cancels an answer in flight.
func (v *View) stop() {
	if v.cancel != nil {
		v.cancel()
	}
	v.finish()
}

func (v *View) finish() {
	v.streaming = false
	v.partial = ""
	v.cancel = nil
}

// refresh re-renders the transcript and keeps the newest text in view.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.turns) == 0 && !v.streaming {
		return v.styles.Muted.Render(emptyHint)
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-2, 20))
	var b strings.Builder
	for _, turn := range v.turns {
		body := wrap.Render(turn.Content)
		if turn.Role == domain.RoleAssistant {
			body = v.renderAnswer(turn.Content, wrap)
		}
		v.writeTurn(&b, turn.Role, body, turn.Sources)
	}
	if v.streaming {
		// The partial answer is shown unrendered.
		v.writeTurn(&b, domain.RoleAssistant, wrap.Render(v.partial+"▌"), nil)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (v *View) renderAnswer(content string, wrap lipgloss.Style) string {
	if v.markdown == nil {
		return wrap.Render(content)
	}
	out, err := v.markdown.Render(content)
	if err != nil {
		return wrap.Render(content)
	}
	return strings.Trim(out, "\n")
}

func (v *View) writeTurn(b *strings.Builder, role domain.Role, body string, sources []string) {
	label := v.styles.UserLabel.Render(role.Label())
	if role == domain.RoleAssistant {
		label = v.styles.AssistantLabel.Render(role.Label())
	}
	b.WriteString(label)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n")
	if len(sources) > 0 {
		b.WriteString(v.styles.Sources.Render("Sources: " + strings.Join(sources, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// View renders the chat view.
func (v *View) View() string {
	title := domain.DefaultSessionTitle
	if v.session != nil {
		title = v.session.Title
	}
	header := v.styles.Title.Render("ragbot") + v.styles.Muted.Render("  "+title)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		v.viewport.View(),
		v.input.View(),
		v.status.View(),
	)
}

// SetDimensions sizes the transcript, input and status bar.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-chrome, 3)
	v.markdown = newMarkdownRenderer(width)
	v.input.SetWidth(width)
	v.status.SetWidth(width)
	v.refresh()
}

// Session returns the open session.
func (v *View) Session() *domain.Session {
	return v.session
}

// Turns returns the displayed transcript.
func (v *View) Turns() []domain.ConversationTurn {
	return v.turns
}

// Partial returns the answer text streamed so far.
func (v *View) Partial() string {
	return v.partial
}

// Streaming reports whether an answer is in flight.
func (v *View) Streaming() bool {
	return v.streaming
}

// Status returns the status bar.
func (v *View) Status() *status.Bar {
	return v.status
}

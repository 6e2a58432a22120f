// Package sessions provides the saved-session list view for the TUI.
package sessions

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driving"
)

// View lists sessions, most recent first.
type View struct {
	ctx            context.Context
	styles         *styles.Styles
	sessionService driving.SessionService
	userID         string

	sessions []domain.Session
	selected int
	width    int
	height   int
	err      error
	loading  bool
}

// NewView creates a new sessions view.
func NewView(ctx context.Context, s *styles.Styles, sessionService driving.SessionService, userID string) *View {
	return &View{
		ctx:            ctx,
		styles:         s,
		sessionService: sessionService,
		userID:         userID,
		sessions:       []domain.Session{},
	}
}

// Init loads the session list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadSessions()
}

func (v *View) loadSessions() tea.Cmd {
	return func() tea.Msg {
		sessions, err := v.sessionService.List(v.ctx, v.userID)
		return messages.SessionsLoaded{Sessions: sessions, Err: err}
	}
}

// Update handles messages for the sessions view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SessionsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.sessions = msg.Sessions
		v.err = nil
		if v.selected >= len(v.sessions) {
			v.selected = max(len(v.sessions)-1, 0)
		}
		return v, nil

	case messages.SessionDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		return v, v.loadSessions()
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.sessions)-1 {
			v.selected++
		}
	case "enter":
		if session, ok := v.current(); ok {
			id := session.ID
			return v, func() tea.Msg {
				s, err := v.sessionService.Get(v.ctx, v.userID, id)
				return messages.SessionOpened{Session: s, Err: err}
			}
		}
	case "d", "delete":
		if session, ok := v.current(); ok {
			return v, v.deleteSession(session.ID)
		}
	case "r":
		v.loading = true
		return v, v.loadSessions()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewChat}
		}
	}

	return v, nil
}

func (v *View) current() (domain.Session, bool) {
	if v.selected < 0 || v.selected >= len(v.sessions) {
		return domain.Session{}, false
	}
	return v.sessions[v.selected], true
}

func (v *View) deleteSession(id string) tea.Cmd {
	return func() tea.Msg {
		err := v.sessionService.Delete(v.ctx, v.userID, id)
		return messages.SessionDeleted{ID: id, Err: err}
	}
}

// View renders the sessions view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Sessions"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading sessions..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + domain.UserMessage(v.err)))
	case len(v.sessions) == 0:
		b.WriteString(v.styles.Muted.Render("No saved sessions."))
	default:
		for i := range v.sessions {
			b.WriteString(v.renderSession(i, &v.sessions[i]))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[enter] open  [d] delete  [r] reload  [esc] back"))
	return b.String()
}

// renderSession renders "> title  updated <time>".
func (v *View) renderSession(index int, session *domain.Session) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	title := session.Title
	maxTitle := max(v.width-36, 10)
	if len([]rune(title)) > maxTitle {
		title = string([]rune(title)[:maxTitle-3]) + "..."
	}
	meta := "updated " + session.UpdatedAt.Local().Format("2006-01-02 15:04")

	if index == v.selected {
		return v.styles.Selected.Render(indicator + title + "  " + meta)
	}
	return v.styles.Normal.Render(indicator+title) + "  " + v.styles.Muted.Render(meta)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Sessions returns the loaded sessions.
func (v *View) Sessions() []domain.Session {
	return v.sessions
}

// SelectedIndex returns the currently selected index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Package documents provides the indexed-document list view for the TUI.
package documents

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driving"
)

// View lists document names with a delete action guarded by a confirm step.
type View struct {
	ctx             context.Context
	styles          *styles.Styles
	documentService driving.DocumentService
	userID          string

	names      []string
	stats      domain.DocumentStats
	selected   int
	confirming bool
	notice     string
	width      int
	height     int
	err        error
	loading    bool
}

// NewView creates a new documents view.
func NewView(ctx context.Context, s *styles.Styles, documentService driving.DocumentService, userID string) *View {
	return &View{
		ctx:             ctx,
		styles:          s,
		documentService: documentService,
		userID:          userID,
		names:           []string{},
	}
}

// Init loads the document list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	v.confirming = false
	return v.loadDocuments()
}

func (v *View) loadDocuments() tea.Cmd {
	return func() tea.Msg {
		names, err := v.documentService.List(v.ctx, v.userID)
		if err != nil {
			return messages.DocumentsLoaded{Err: err}
		}
		stats, err := v.documentService.Stats(v.ctx, v.userID)
		if err != nil {
			stats = domain.DocumentStats{Documents: len(names)}
		}
		return messages.DocumentsLoaded{Names: names, Stats: stats}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.confirming {
			return v.handleConfirmKey(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.names = msg.Names
		v.stats = msg.Stats
		v.err = nil
		if v.selected >= len(v.names) {
			v.selected = max(len(v.names)-1, 0)
		}
		return v, nil

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = fmt.Sprintf("Deleted %s.", msg.Name)
		return v, v.loadDocuments()
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
		if v.selected < len(v.names)-1 {
			v.selected++
		}
	case "d", "delete":
		if len(v.names) > 0 {
			v.confirming = true
		}
	case "r":
		v.loading = true
		v.notice = ""
		return v, v.loadDocuments()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewChat}
		}
	}
	return v, nil
}

func (v *View) handleConfirmKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	v.confirming = false
	if msg.String() != "y" || v.selected >= len(v.names) {
		return v, nil
	}
	name := v.names[v.selected]
	return v, func() tea.Msg {
		err := v.documentService.Delete(v.ctx, v.userID, name)
		return messages.DocumentDeleted{Name: name, Err: err}
	}
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Documents"))
	if !v.loading && v.err == nil {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  %d documents, %d chunks", v.stats.Documents, v.stats.Chunks)))
	}
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + domain.UserMessage(v.err)))
	case len(v.names) == 0:
		b.WriteString(v.styles.Muted.Render("No documents uploaded. Use 'ragbot upload <file>' to add some."))
	default:
		for i, name := range v.names {
			if i == v.selected {
				b.WriteString(v.styles.Selected.Render("> " + name))
			} else {
				b.WriteString(v.styles.Normal.Render("  " + name))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	switch {
	case v.confirming:
		b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Delete %s and all its chunks? [y/N]", v.names[v.selected])))
	case v.notice != "":
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n")
		fallthrough
	default:
		b.WriteString(v.styles.Help.Render("[d] delete  [r] reload  [esc] back"))
	}
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// Names returns the listed document names.
func (v *View) Names() []string {
	return v.names
}

// Confirming reports whether a delete awaits confirmation.
func (v *View) Confirming() bool {
	return v.confirming
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewChat is the conversation view.
	ViewChat ViewType = iota
	// ViewSessions lists saved sessions.
	ViewSessions
	// ViewDocuments lists indexed documents.
	ViewDocuments
	// ViewHelp is the keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewChat:
		return "chat"
	case ViewSessions:
		return "sessions"
	case ViewDocuments:
		return "documents"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// AnswerStarted carries the event stream for a submitted question.
type AnswerStarted struct {
	Events <-chan domain.StreamEvent
}

// StreamEvent carries one event read from an answer stream. Events is
// the stream it came from so the reader can continue.
type StreamEvent struct {
	Event  domain.StreamEvent
	Events <-chan domain.StreamEvent
}

// StreamClosed signals the stream ended without a terminal event.
type StreamClosed struct{}

// SessionOpened carries a session to show in the chat view.
type SessionOpened struct {
	Session *domain.Session
	Err     error
}

// SessionsLoaded carries the session list.
type SessionsLoaded struct {
	Sessions []domain.Session
	Err      error
}

// SessionDeleted signals a session was deleted.
type SessionDeleted struct {
	ID  string
	Err error
}

// DocumentsLoaded carries the document names and stats.
type DocumentsLoaded struct {
	Names []string
	Stats domain.DocumentStats
	Err   error
}

// DocumentDeleted signals a document was removed.
type DocumentDeleted struct {
	Name string
	Err  error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

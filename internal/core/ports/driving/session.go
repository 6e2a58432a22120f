package driving

import (
	"context"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// SessionService manages chat sessions.
type SessionService interface {
	// Create starts a new session titled "New Chat".
	Create(ctx context.Context, userID string) (*domain.Session, error)

	// Get returns a session with its messages.
	Get(ctx context.Context, userID, sessionID string) (*domain.Session, error)

	// List returns sessions, most recent first.
	List(ctx context.Context, userID string) ([]domain.Session, error)

	// AppendMessage records a turn. The first user turn titles the session.
	AppendMessage(ctx context.Context, userID, sessionID string, turn domain.ConversationTurn) error

	// Delete removes one session.
	Delete(ctx context.Context, userID, sessionID string) error

	// ClearAll removes every session of the user and returns how many.
	ClearAll(ctx context.Context, userID string) (int, error)

	// ExportMarkdown renders a session as Markdown.
	ExportMarkdown(session *domain.Session) string

	// ExportText renders a session as plain text.
	ExportText(session *domain.Session) string
}

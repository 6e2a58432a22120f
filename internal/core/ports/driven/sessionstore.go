package driven

import (
	"context"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// SessionStore persists chat sessions keyed by user and session ID.
// Every operation is scoped to userID; a session owned by another user
// is reported as domain.ErrNotFound.
type SessionStore interface {
	// Create stores a new empty session.
	Create(ctx context.Context, session *domain.Session) error

	// Get retrieves a session with its messages in order.
	Get(ctx context.Context, userID, sessionID string) (*domain.Session, error)

	// List returns the user's sessions ordered by most recent update.
	// Messages are not populated.
	List(ctx context.Context, userID string) ([]domain.Session, error)

	// AppendMessage adds a turn to the end of a session and bumps its update time.
	AppendMessage(ctx context.Context, userID, sessionID string, turn domain.ConversationTurn) error

	// UpdateTitle renames a session.
	UpdateTitle(ctx context.Context, userID, sessionID, title string) error

	// Delete removes one session and its messages.
	Delete(ctx context.Context, userID, sessionID string) error

	// DeleteAllForUser removes every session of the user.
	// Returns the number of sessions removed.
	DeleteAllForUser(ctx context.Context, userID string) (int, error)

	// Close releases resources.
	Close() error
}

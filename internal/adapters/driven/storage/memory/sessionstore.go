package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is an in-memory implementation of driven.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
	}
}

// Create stores a new session, assigning an ID and timestamps when unset.
func (s *SessionStore) Create(_ context.Context, session *domain.Session) error {
	if session.UserID == "" {
		return domain.ErrMissingTenant
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	stored.Messages = append([]domain.ConversationTurn(nil), session.Messages...)
	s.sessions[session.ID] = stored
	return nil
}

// Get retrieves a session owned by userID.
func (s *SessionStore) Get(_ context.Context, userID, sessionID string) (*domain.Session, error) {
	if userID == "" {
		return nil, domain.ErrMissingTenant
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, domain.ErrNotFound
	}
	session.Messages = append([]domain.ConversationTurn(nil), session.Messages...)
	return &session, nil
}

// List returns the user's sessions, most recently updated first.
func (s *SessionStore) List(_ context.Context, userID string) ([]domain.Session, error) {
	if userID == "" {
		return nil, domain.ErrMissingTenant
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]domain.Session, 0)
	for _, session := range s.sessions {
		if session.UserID == userID {
			session.Messages = nil
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

// AppendMessage adds a turn and bumps the update time.
func (s *SessionStore) AppendMessage(_ context.Context, userID, sessionID string, turn domain.ConversationTurn) error {
	if userID == "" {
		return domain.ErrMissingTenant
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return domain.ErrNotFound
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	session.Messages = append(session.Messages, turn)
	session.UpdatedAt = turn.Timestamp
	s.sessions[sessionID] = session
	return nil
}

// UpdateTitle renames a session.
func (s *SessionStore) UpdateTitle(_ context.Context, userID, sessionID, title string) error {
	if userID == "" {
		return domain.ErrMissingTenant
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return domain.ErrNotFound
	}
	session.Title = title
	s.sessions[sessionID] = session
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(_ context.Context, userID, sessionID string) error {
	if userID == "" {
		return domain.ErrMissingTenant
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return domain.ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// DeleteAllForUser removes all of the user's sessions.
func (s *SessionStore) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, domain.ErrMissingTenant
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Close releases resources.
func (s *SessionStore) Close() error {
	return nil
}

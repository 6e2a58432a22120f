package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
)

var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore implements driven.SessionStore using PostgreSQL.
type SessionStore struct {
	db *pgxpool.Pool
}

// NewSessionStore wraps an existing pool. The caller runs migrations.
func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

// Open connects to dsn, applies migrations and returns a store owning the pool.
func Open(ctx context.Context, dsn string) (*SessionStore, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, err
	}
	pool, err := NewPool(ctx, dsn, PoolConfig{})
	if err != nil {
		return nil, err
	}
	return NewSessionStore(pool), nil
}

// Create stores a new session, assigning an ID and timestamps when unset.
func (r *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	if session.UserID == "" {
		return domain.ErrMissingTenant
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, session.ID, session.UserID, session.Title, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Get retrieves a session with its messages in insertion order.
func (r *SessionStore) Get(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	if userID == "" {
		return nil, domain.ErrMissingTenant
	}

	var s domain.Session
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions WHERE id = $1 AND user_id = $2
	`, sessionID, userID).Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT role, content, sources, created_at
		FROM chat_messages WHERE session_id = $1
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	s.Messages = []domain.ConversationTurn{}
	for rows.Next() {
		var turn domain.ConversationTurn
		var role string
		if err := rows.Scan(&role, &turn.Content, &turn.Sources, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		turn.Role = domain.Role(role)
		if len(turn.Sources) == 0 {
			turn.Sources = nil
		}
		s.Messages = append(s.Messages, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return &s, nil
}

// List returns the user's sessions, most recently updated first.
func (r *SessionStore) List(ctx context.Context, userID string) ([]domain.Session, error) {
	if userID == "" {
		return nil, domain.ErrMissingTenant
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM chat_sessions WHERE user_id = $1
		ORDER BY updated_at DESC, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AppendMessage adds a turn and bumps the session's update time.
func (r *SessionStore) AppendMessage(ctx context.Context, userID, sessionID string, turn domain.ConversationTurn) error {
	if userID == "" {
		return domain.ErrMissingTenant
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	sources := turn.Sources
	if sources == nil {
		sources = []string{}
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE chat_sessions SET updated_at = $1 WHERE id = $2 AND user_id = $3
		`, turn.Timestamp, sessionID, userID)
		if err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO chat_messages (session_id, role, content, sources, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, sessionID, string(turn.Role), turn.Content, sources, turn.Timestamp)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		return nil
	})
}

// UpdateTitle renames a session.
func (r *SessionStore) UpdateTitle(ctx context.Context, userID, sessionID, title string) error {
	if userID == "" {
		return domain.ErrMissingTenant
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE chat_sessions SET title = $1 WHERE id = $2 AND user_id = $3
	`, title, sessionID, userID)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a session; its messages cascade.
func (r *SessionStore) Delete(ctx context.Context, userID, sessionID string) error {
	if userID == "" {
		return domain.ErrMissingTenant
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAllForUser removes all of the user's sessions.
func (r *SessionStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, domain.ErrMissingTenant
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM chat_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Close closes the pool.
func (r *SessionStore) Close() error {
	r.db.Close()
	return nil
}

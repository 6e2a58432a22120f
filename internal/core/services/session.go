package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/core/ports/driving"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// Ensure SessionService implements the interface.
var _ driving.SessionService = (*SessionService)(nil)

// Transcript labels.
const (
	markdownUserLabel      = "**You:**"
	markdownAssistantLabel = "**RAGbot:**"
	textUserLabel          = "[You]"
	textAssistantLabel     = "[RAGbot]"
	sourcesPrefix          = "*Sources: "
)

// SessionService applies session policy over a SessionStore.
type SessionService struct {
	store driven.SessionStore
	now   func() time.Time
}

// NewSessionService creates a new session service.
func NewSessionService(store driven.SessionStore) *SessionService {
	return &SessionService{store: store, now: time.Now}
}

// Create starts a session titled "New Chat".
func (s *SessionService) Create(ctx context.Context, userID string) (*domain.Session, error) {
	now := s.now().UTC()
	session := &domain.Session{
		UserID:    userID,
		Title:     domain.DefaultSessionTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// Get returns a session with its messages.
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	return s.store.Get(ctx, userID, sessionID)
}

// List returns sessions, most recent first.
func (s *SessionService) List(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.store.List(ctx, userID)
}

// AppendMessage records a turn. The first user turn of an untitled
// session becomes its title.
func (s *SessionService) AppendMessage(ctx context.Context, userID, sessionID string, turn domain.ConversationTurn) error {
	if !turn.Role.IsValid() {
		return fmt.Errorf("%w: role %q", domain.ErrInvalidInput, turn.Role)
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = s.now().UTC()
	}

	session, err := s.store.Get(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if err := s.store.AppendMessage(ctx, userID, sessionID, turn); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	if turn.Role == domain.RoleUser && session.Title == domain.DefaultSessionTitle && !hasUserTurn(session.Messages) {
		title := domain.TitleFromMessage(strings.TrimSpace(turn.Content))
		if title == "" {
			return nil
		}
		if err := s.store.UpdateTitle(ctx, userID, sessionID, title); err != nil {
			logger.FromContext(ctx).Warn("session title not updated",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return nil
}

func hasUserTurn(turns []domain.ConversationTurn) bool {
	for _, t := range turns {
		if t.Role == domain.RoleUser {
			return true
		}
	}
	return false
}

// Delete removes one session.
func (s *SessionService) Delete(ctx context.Context, userID, sessionID string) error {
	return s.store.Delete(ctx, userID, sessionID)
}

// ClearAll removes every session of the user.
func (s *SessionService) ClearAll(ctx context.Context, userID string) (int, error) {
	return s.store.DeleteAllForUser(ctx, userID)
}

// Import stores a transcript read by ParseMarkdown as a new session of
// userID, keeping its title.
func (s *SessionService) Import(ctx context.Context, userID string, transcript *domain.Session) (*domain.Session, error) {
	session, err := s.Create(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, turn := range transcript.Messages {
		if err := s.AppendMessage(ctx, userID, session.ID, turn); err != nil {
			return nil, err
		}
	}
	if title := strings.TrimSpace(transcript.Title); title != "" {
		if err := s.store.UpdateTitle(ctx, userID, session.ID, title); err != nil {
			return nil, fmt.Errorf("set imported title: %w", err)
		}
	}
	return s.store.Get(ctx, userID, session.ID)
}

// ExportMarkdown renders a session as Markdown. ParseMarkdown reads it back.
func (s *SessionService) ExportMarkdown(session *domain.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", session.Title)
	fmt.Fprintf(&b, "*Created: %s*\n\n---\n\n", session.CreatedAt.UTC().Format(time.RFC3339))

	for _, m := range session.Messages {
		label := markdownUserLabel
		if m.Role == domain.RoleAssistant {
			label = markdownAssistantLabel
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", label, escapeMarkdownBody(m.Content))
		if len(m.Sources) > 0 {
			fmt.Fprintf(&b, "%s%s*\n\n", sourcesPrefix, strings.Join(m.Sources, ", "))
		}
	}
	return b.String()
}

// ExportText renders a session as plain text.
func (s *SessionService) ExportText(session *domain.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", session.Title, strings.Repeat("=", utf8.RuneCountInString(session.Title)))

	for _, m := range session.Messages {
		label := textUserLabel
		if m.Role == domain.RoleAssistant {
			label = textAssistantLabel
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", label, m.Content)
	}
	return b.String()
}

// escapeMarkdownBody prefixes a backslash to content lines ParseMarkdown
// would read as markup, and to lines that already start with one.
func escapeMarkdownBody(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if needsEscape(line) {
			lines[i] = `\` + line
		}
	}
	return strings.Join(lines, "\n")
}

func needsEscape(line string) bool {
	return line == markdownUserLabel ||
		line == markdownAssistantLabel ||
		strings.HasPrefix(line, sourcesPrefix) ||
		strings.HasPrefix(line, `\`)
}

// ParseMarkdown reads a transcript written by ExportMarkdown, recovering
// each message's role, content and sources exactly. Message timestamps are
// not part of the transcript and are left zero.
func ParseMarkdown(text string) (*domain.Session, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if !strings.HasPrefix(lines[0], "# ") {
		return nil, fmt.Errorf("%w: transcript must start with a # title", domain.ErrInvalidInput)
	}

	session := &domain.Session{Title: strings.TrimPrefix(lines[0], "# ")}

	i := 1
	for ; i < len(lines); i++ {
		line := lines[i]
		if created, ok := strings.CutPrefix(line, "*Created: "); ok {
			t, err := time.Parse(time.RFC3339, strings.TrimSuffix(created, "*"))
			if err != nil {
				return nil, fmt.Errorf("%w: created time: %w", domain.ErrInvalidInput, err)
			}
			session.CreatedAt = t
			session.UpdatedAt = t
		}
		if line == "---" {
			i++
			break
		}
	}

	var current *domain.ConversationTurn
	var body []string
	// Each body ends with one separator line, preceded by an optional
	// sources line and its own separator.
	dropSeparator := func() {
		if n := len(body); n > 0 && body[n-1] == "" {
			body = body[:n-1]
		}
	}
	flush := func() {
		if current == nil {
			return
		}
		dropSeparator()
		if n := len(body); n > 0 && strings.HasPrefix(body[n-1], sourcesPrefix) && strings.HasSuffix(body[n-1], "*") {
			list := strings.TrimSuffix(strings.TrimPrefix(body[n-1], sourcesPrefix), "*")
			current.Sources = strings.Split(list, ", ")
			body = body[:n-1]
			dropSeparator()
		}
		for j, line := range body {
			if strings.HasPrefix(line, `\`) {
				body[j] = line[1:]
			}
		}
		current.Content = strings.Join(body, "\n")
		session.Messages = append(session.Messages, *current)
		current, body = nil, nil
	}

	for ; i < len(lines); i++ {
		switch lines[i] {
		case markdownUserLabel:
			flush()
			current = &domain.ConversationTurn{Role: domain.RoleUser}
		case markdownAssistantLabel:
			flush()
			current = &domain.ConversationTurn{Role: domain.RoleAssistant}
		default:
			if current != nil {
				body = append(body, lines[i])
			}
		}
	}
	flush()

	return session, nil
}

package domain

import (
	"time"
	"unicode/utf8"
)

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Label returns the transcript label for the role.
func (r Role) Label() string {
	if r == RoleAssistant {
		return "Assistant"
	}
	return "User"
}

// ConversationTurn is one message in a chat session.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Sources lists the distinct document names an answer was grounded in.
	Sources []string `json:"sources,omitempty"`
}

// DefaultSessionTitle is the title of a session with no user messages.
const DefaultSessionTitle = "New Chat"

// MaxTitleLength is the number of characters kept from the first user message.
const MaxTitleLength = 50

// Session is a stored conversation.
type Session struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	Title     string             `json:"title"`
	Messages  []ConversationTurn `json:"messages"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// TitleFromMessage derives a session title from a user message.
// Titles longer than MaxTitleLength characters are truncated with "...".
func TitleFromMessage(content string) string {
	if utf8.RuneCountInString(content) <= MaxTitleLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:MaxTitleLength]) + "..."
}

// LastTurns returns at most n trailing turns.
func LastTurns(history []ConversationTurn, n int) []ConversationTurn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

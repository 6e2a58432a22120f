// Package tui provides the interactive chat interface for ragbot.
package tui

import (
	"github.com/custodia-labs/ragbot/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driving"
)

// Ports aggregates the services the TUI drives.
type Ports struct {
	// Conversation answers questions and records them in a session.
	Conversation chat.Asker

	Sessions driving.SessionService

	Documents driving.DocumentService

	// UserID scopes every call. Empty means the local user.
	UserID string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Conversation == nil {
		return ErrMissingConversation
	}
	if p.Sessions == nil {
		return ErrMissingSessionService
	}
	if p.Documents == nil {
		return ErrMissingDocumentService
	}
	return nil
}

func (p *Ports) user() string {
	if p.UserID == "" {
		return domain.LocalUserID
	}
	return p.UserID
}

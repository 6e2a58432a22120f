package mcp

import (
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	Chat driving.ChatService

	Documents driving.DocumentService

	// Sessions is optional. Without it no session resources are served.
	Sessions driving.SessionService

	// UserID scopes every call. Empty means the local user.
	UserID string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
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

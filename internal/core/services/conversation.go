package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driving"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// Conversation runs the chat pipeline against a stored session: the
// session's turns are the history, the question is recorded after the
// history is read, and the answer is recorded when the stream completes.
type Conversation struct {
	chat       driving.ChatService
	sessions   driving.SessionService
	saveErrors bool
}

// ConversationOption configures a Conversation.
type ConversationOption func(*Conversation)

// WithSaveErrors records failed answers as assistant turns holding the
// error text.
func WithSaveErrors(save bool) ConversationOption {
	return func(c *Conversation) {
		c.saveErrors = save
	}
}

// NewConversation creates a conversation runner.
func NewConversation(chat driving.ChatService, sessions driving.SessionService, opts ...ConversationOption) *Conversation {
	c := &Conversation{chat: chat, sessions: sessions}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask streams an answer in session sessionID. Events are relayed
// unchanged. A missing session fails before anything is recorded.
func (c *Conversation) Ask(ctx context.Context, userID, sessionID, question string) (<-chan domain.StreamEvent, error) {
	session, err := c.sessions.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	history := session.Messages

	question = strings.TrimSpace(question)
	if question != "" {
		if err := c.sessions.AppendMessage(ctx, userID, sessionID, domain.ConversationTurn{
			Role:    domain.RoleUser,
			Content: question,
		}); err != nil {
			return nil, err
		}
	}

	ctx = logger.WithFields(ctx, zap.String("session_id", sessionID))
	in := c.chat.Ask(ctx, userID, question, history)
	out := make(chan domain.StreamEvent)

	go func() {
		defer close(out)
		for ev := range in {
			switch ev.Kind {
			case domain.EventComplete:
				c.record(ctx, userID, sessionID, domain.ConversationTurn{
					Role:    domain.RoleAssistant,
					Content: ev.FullText,
					Sources: ev.Sources,
				})
			case domain.EventError:
				if c.saveErrors {
					c.record(ctx, userID, sessionID, domain.ConversationTurn{
						Role:    domain.RoleAssistant,
						Content: ev.Message,
					})
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Conversation) record(ctx context.Context, userID, sessionID string, turn domain.ConversationTurn) {
	if err := c.sessions.AppendMessage(ctx, userID, sessionID, turn); err != nil {
		logger.FromContext(ctx).Warn("answer not saved", zap.Error(err))
	}
}

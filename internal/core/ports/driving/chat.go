package driving

import (
	"context"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// ChatService answers questions grounded in a user's documents.
type ChatService interface {
	// Ask runs the retrieval pipeline for one question. History holds the
	// prior turns and excludes the question itself. The returned channel
	// yields chunk events followed by exactly one complete or error event,
	// then closes. Cancelling ctx closes the channel without a terminal event.
	Ask(ctx context.Context, userID, question string, history []domain.ConversationTurn) <-chan domain.StreamEvent

	// Answer runs Ask and drains the stream.
	Answer(ctx context.Context, userID, question string, history []domain.ConversationTurn) (domain.Answer, error)
}

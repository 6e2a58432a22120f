package mcp

import (
	"context"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

type mockChatService struct {
	answer   domain.Answer
	err      error
	userID   string
	question string
}

func (m *mockChatService) Ask(context.Context, string, string, []domain.ConversationTurn) <-chan domain.StreamEvent {
	ch := make(chan domain.StreamEvent)
	close(ch)
	return ch
}

func (m *mockChatService) Answer(_ context.Context, userID, question string, _ []domain.ConversationTurn) (domain.Answer, error) {
	m.userID, m.question = userID, question
	return m.answer, m.err
}

type mockDocumentService struct {
	names    []string
	stats    domain.DocumentStats
	err      error
	statsErr error
	deleted  []string
	userID   string
}

func (m *mockDocumentService) Upload(context.Context, string, []domain.UploadFile) []domain.UploadResult {
	return nil
}

func (m *mockDocumentService) List(_ context.Context, userID string) ([]string, error) {
	m.userID = userID
	return m.names, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _, name string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, name)
	return nil
}

func (m *mockDocumentService) Stats(context.Context, string) (domain.DocumentStats, error) {
	return m.stats, m.statsErr
}

func (m *mockDocumentService) ClearAll(context.Context, string) error {
	return m.err
}

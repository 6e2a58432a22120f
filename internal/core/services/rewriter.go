package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// rewriteMaxTokens bounds the standalone question.
const rewriteMaxTokens = 256

// QueryRewriter turns follow-up questions into standalone ones using the
// recent conversation.
type QueryRewriter struct {
	llm          driven.LLMService
	prompts      driven.PromptStore
	historyTurns int
	temperature  float64
}

// NewQueryRewriter creates a rewriter. prompts may be nil.
func NewQueryRewriter(llm driven.LLMService, prompts driven.PromptStore, rag domain.RAGSettings) *QueryRewriter {
	return &QueryRewriter{
		llm:          llm,
		prompts:      prompts,
		historyTurns: rag.HistoryTurns,
		temperature:  rag.Temperature,
	}
}

// Rewrite returns a standalone form of question. It never fails: without
// history, or when the model errors or answers blank, the question is
// returned unchanged.
func (r *QueryRewriter) Rewrite(ctx context.Context, question string, history []domain.ConversationTurn) string {
	if len(history) == 0 || r.llm == nil {
		return question
	}

	prompt := render(loadPrompt(r.prompts, driven.PromptQueryRewrite),
		FormatHistory(history, r.historyTurns), question)

	rewritten, err := r.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:   rewriteMaxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("using original question",
			zap.Error(domain.ErrRewriteFailed), zap.NamedError("cause", err))
		return question
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		logger.FromContext(ctx).Warn("using original question",
			zap.Error(domain.ErrRewriteFailed), zap.String("cause", "empty rewrite"))
		return question
	}
	return rewritten
}

// FormatHistory renders the last n turns as "User: ..." and
// "Assistant: ..." lines. Empty history renders as a fixed sentinel.
func FormatHistory(history []domain.ConversationTurn, n int) string {
	turns := domain.LastTurns(history, n)
	if len(turns) == 0 {
		return NoHistoryText
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, t.Role.Label()+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

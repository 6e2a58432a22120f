package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/core/ports/driving"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// NoDocumentsMessage answers any question asked before an upload.
const NoDocumentsMessage = "You haven't uploaded any documents yet. Please upload a document first, then ask questions about it."

// GenerationFailedMessage leads the text of an error event.
const GenerationFailedMessage = "An error occurred while generating the response."

// Pipeline stages, logged as the "stage" field.
const (
	stageRewriting  = "rewriting"
	stageRetrieving = "retrieving"
	stageReranking  = "reranking"
	stageAssembling = "assembling"
	stageGenerating = "generating"
	stageCompleted  = "completed"
	stageFailed     = "failed"
)

// ChatService answers questions from a user's documents: rewrite,
// retrieve, re-rank, assemble, then stream the answer.
type ChatService struct {
	index     driven.VectorIndex
	rewriter  *QueryRewriter
	reranker  *Reranker
	assembler *ContextAssembler
	generator *AnswerGenerator
	prompts   driven.PromptStore
	rag       domain.RAGSettings
}

// NewChatService wires the pipeline. reranker and prompts may be nil.
func NewChatService(
	index driven.VectorIndex,
	llm driven.LLMService,
	reranker driven.Reranker,
	prompts driven.PromptStore,
	rag domain.RAGSettings,
) *ChatService {
	return &ChatService{
		index:     index,
		rewriter:  NewQueryRewriter(llm, prompts, rag),
		reranker:  NewReranker(reranker),
		assembler: NewContextAssembler(rag.HistoryTurns, rag.MaxContextChars),
		generator: NewAnswerGenerator(llm, rag.Temperature, rag.MaxTokens),
		prompts:   prompts,
		rag:       rag,
	}
}

// Ask runs the pipeline in its own goroutine. The channel yields chunk
// events then exactly one complete or error event. If ctx is cancelled
// the channel closes without a terminal event.
func (s *ChatService) Ask(ctx context.Context, userID, question string, history []domain.ConversationTurn) <-chan domain.StreamEvent {
	out := make(chan domain.StreamEvent)
	go func() {
		defer close(out)
		s.run(ctx, userID, question, history, out)
	}()
	return out
}

func (s *ChatService) run(ctx context.Context, userID, question string, history []domain.ConversationTurn, out chan<- domain.StreamEvent) {
	ctx = logger.WithAction(logger.WithFields(ctx, zap.String("user_id", userID)), "ask")
	log := logger.FromContext(ctx)

	emit := func(ev domain.StreamEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error, partial string) {
		log.Debug("pipeline stage", zap.String("stage", stageFailed), zap.Error(err))
		emit(domain.ErrorEvent(fmt.Sprintf("%s Details: %v", GenerationFailedMessage, err), partial))
	}

	// Input problems are not generation failures and get their own text.
	reject := func(err error) {
		log.Debug("pipeline stage", zap.String("stage", stageFailed), zap.Error(err))
		emit(domain.ErrorEvent(domain.UserMessage(err), ""))
	}
	if userID == "" {
		reject(domain.ErrMissingTenant)
		return
	}
	question = strings.TrimSpace(question)
	if question == "" {
		reject(fmt.Errorf("%w: %w", domain.ErrInvalidInput, domain.ErrEmptyQuestion))
		return
	}

	log.Debug("pipeline stage", zap.String("stage", stageRewriting), zap.Int("history", len(history)))
	query := s.rewriter.Rewrite(ctx, question, history)
	rewritten := ""
	if query != question {
		rewritten = query
		log.Debug("question rewritten", zap.String("query", query))
	}

	log.Debug("pipeline stage", zap.String("stage", stageRetrieving), zap.Int("k", s.rag.RetrieveK))
	candidates, err := s.index.Query(ctx, userID, query, s.rag.RetrieveK)
	if err != nil {
		fail(err, "")
		return
	}
	if ctx.Err() != nil {
		return
	}
	if len(candidates) == 0 {
		log.Debug("pipeline stage", zap.String("stage", stageCompleted), zap.Bool("no_documents", true))
		emit(domain.CompleteEvent(NoDocumentsMessage, nil, rewritten))
		return
	}

	log.Debug("pipeline stage", zap.String("stage", stageReranking), zap.Int("candidates", len(candidates)))
	ranked := s.reranker.Rerank(ctx, query, candidates, s.rag.RerankK)

	log.Debug("pipeline stage", zap.String("stage", stageAssembling), zap.Int("ranked", len(ranked)))
	assembled := s.assembler.Assemble(ranked, history)
	prompt := render(loadPrompt(s.prompts, driven.PromptRAGSystem),
		assembled.HistoryText, assembled.ContextText, question)

	log.Debug("pipeline stage", zap.String("stage", stageGenerating))
	var full strings.Builder
	for chunk := range s.generator.Generate(ctx, prompt) {
		if chunk.Err != nil {
			fail(&domain.GenerationError{Partial: full.String(), Err: chunk.Err}, full.String())
			return
		}
		if chunk.Content != "" {
			full.WriteString(chunk.Content)
			if !emit(domain.ChunkEvent(chunk.Content)) {
				return
			}
		}
		if chunk.Done {
			break
		}
	}
	if ctx.Err() != nil {
		log.Debug("answer cancelled", zap.Int("partial_chars", full.Len()))
		return
	}

	log.Debug("pipeline stage", zap.String("stage", stageCompleted),
		zap.Int("chars", full.Len()), zap.Strings("sources", assembled.Sources))
	emit(domain.CompleteEvent(full.String(), assembled.Sources, rewritten))
}

// Answer runs Ask and collects the result. A failed stream returns a
// *domain.GenerationError holding the partial text.
func (s *ChatService) Answer(ctx context.Context, userID, question string, history []domain.ConversationTurn) (domain.Answer, error) {
	var partial strings.Builder
	for ev := range s.Ask(ctx, userID, question, history) {
		switch ev.Kind {
		case domain.EventChunk:
			partial.WriteString(ev.Text)
		case domain.EventComplete:
			return domain.Answer{Text: ev.FullText, Sources: ev.Sources, RewrittenQuery: ev.RewrittenQuery}, nil
		case domain.EventError:
			return domain.Answer{}, &domain.GenerationError{Partial: ev.Partial, Err: errors.New(ev.Message)}
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.Answer{}, err
	}
	return domain.Answer{}, &domain.GenerationError{Partial: partial.String(), Err: errors.New("stream ended without a result")}
}

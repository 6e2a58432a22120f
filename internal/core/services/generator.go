package services

import (
	"context"

	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
)

// AnswerGenerator streams an answer for a rendered prompt.
type AnswerGenerator struct {
	llm  driven.LLMService
	opts driven.GenerateOptions
}

// NewAnswerGenerator creates a generator with the answer temperature and
// token limit.
func NewAnswerGenerator(llm driven.LLMService, temperature float64, maxTokens int) *AnswerGenerator {
	return &AnswerGenerator{
		llm: llm,
		opts: driven.GenerateOptions{
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
	}
}

// Generate relays the model's fragments in order. The channel ends with
// exactly one Done or Err chunk, unless ctx is cancelled first, in which
// case it closes without one.
func (g *AnswerGenerator) Generate(ctx context.Context, prompt string) <-chan driven.StreamChunk {
	out := make(chan driven.StreamChunk)

	go func() {
		defer close(out)

		emit := func(chunk driven.StreamChunk) bool {
			select {
			case out <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		in, err := g.llm.Stream(ctx, []driven.ChatMessage{{Role: "user", Content: prompt}}, g.opts)
		if err != nil {
			if ctx.Err() == nil {
				emit(driven.StreamChunk{Err: err})
			}
			return
		}

		for chunk := range in {
			if ctx.Err() != nil {
				return
			}
			if !emit(chunk) {
				return
			}
			if chunk.Done || chunk.Err != nil {
				return
			}
		}

		// The source closed without a terminal chunk.
		if ctx.Err() == nil {
			emit(driven.StreamChunk{Done: true})
		}
	}()

	return out
}

package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/logger"
)

const rewritePrompt = `Given a chat history and the latest user question which might reference context in the chat history, formulate a standalone question which can be understood without the chat history. Do NOT answer the question, just rewrite it if needed and otherwise return it as is.

Chat History:
%s

Latest Question: %s

Standalone Question:`

const ragPrompt = `You are RAGbot, an intelligent AI assistant that answers questions based on uploaded documents.

CHAT HISTORY:
%s

CONTEXT FROM DOCUMENTS:
%s

USER QUESTION: %s

INSTRUCTIONS:
1. Answer the question based ONLY on the context provided above
2. If the context doesn't contain relevant information, say "I don't have enough information in the uploaded documents to answer this question."
3. Be concise yet comprehensive in your response
4. Always respond in English, regardless of the document language
5. Format your response with proper paragraphs for readability
6. Do not fabricate or assume information not present in the context
7. If multiple documents provide relevant information, synthesize them coherently
8. Use the Chat History to provide better context for your answer if needed

YOUR ANSWER:`

// DefaultPrompts returns the built-in prompt templates keyed by prompt
// name. They seed the user-editable prompt directory.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptQueryRewrite: rewritePrompt,
		driven.PromptRAGSystem:    ragPrompt,
	}
}

// loadPrompt returns the named template from store, falling back to the
// built-in one when the store is nil, fails, or holds a template with
// the wrong number of placeholders.
func loadPrompt(store driven.PromptStore, name string) string {
	fallback := DefaultPrompts()[name]
	if store == nil {
		return fallback
	}

	tmpl, err := store.Load(name)
	if err != nil {
		logger.Warn("Failed to load prompt %s, using built-in: %v", name, err)
		return fallback
	}
	if strings.Count(tmpl, "%s") != strings.Count(fallback, "%s") {
		logger.Warn("Prompt %s has the wrong number of %%s placeholders, using built-in", name)
		return fallback
	}
	return tmpl
}

// render fills a template whose placeholders were checked by loadPrompt.
func render(tmpl string, args ...any) string {
	return fmt.Sprintf(tmpl, args...)
}

package driven

// PromptStore supplies the text templates for question rewriting and
// answering. Templates are Go format strings filled positionally with %s.
type PromptStore interface {
	// Load returns the named template. Unknown names are an error.
	Load(name string) (string, error)

	// Reload drops cached templates so the next Load sees edits.
	Reload()
}

// Template names.
const (
	// PromptQueryRewrite takes the chat history, then the question.
	PromptQueryRewrite = "query_rewrite"

	// PromptRAGSystem takes the chat history, the document context, then
	// the question.
	PromptRAGSystem = "rag_system"
)

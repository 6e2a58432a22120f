package driven

import "context"

// LLMService provides language model operations for question rewriting
// and answer generation.
//
// Implementations may include:
//   - OpenAI (GPT-4o) and OpenAI-compatible APIs such as Groq
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces a complete text response from a prompt.
	// Used where streaming is not needed, such as query rewriting.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Stream produces the response incrementally.
	// The returned channel yields fragments in generation order and is closed
	// after a chunk with Done set or Err non-nil. Cancelling ctx closes the
	// underlying connection and the channel.
	Stream(ctx context.Context, messages []ChatMessage, opts GenerateOptions) (<-chan StreamChunk, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// This is used at startup to verify connectivity and credentials.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// StreamChunk is one element of a generation stream.
type StreamChunk struct {
	// Content is the text fragment, possibly empty on the final chunk.
	Content string

	// Done marks successful end of stream.
	Done bool

	// Err is set when the stream failed. It is always the last chunk.
	Err error
}

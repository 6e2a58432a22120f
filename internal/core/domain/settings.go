package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGroq is the Groq cloud API (OpenAI-compatible).
	AIProviderGroq AIProvider = "groq"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderGroq:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderGroq
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGroq:
		return "Groq (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RerankSettings holds cross-encoder re-ranker configuration.
type RerankSettings struct {
	// URL is the re-ranking endpoint. Empty disables re-ranking.
	URL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model is the cross-encoder model name.
	Model string
}

// IsConfigured returns true if a re-ranking endpoint is set.
func (r RerankSettings) IsConfigured() bool {
	return r.URL != ""
}

// VectorBackend identifies a vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendQdrant is a remote Qdrant service.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendPgvector is a remote PostgreSQL database with pgvector.
	VectorBackendPgvector VectorBackend = "pgvector"

	// VectorBackendSQLite is the local embedded fallback.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendMemory keeps vectors in process memory.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendQdrant, VectorBackendPgvector, VectorBackendSQLite, VectorBackendMemory:
		return true
	default:
		return false
	}
}

// IsRemote returns true for managed remote services.
func (b VectorBackend) IsRemote() bool {
	return b == VectorBackendQdrant || b == VectorBackendPgvector
}

// SessionBackend identifies a session store implementation.
type SessionBackend string

// Available session backends.
const (
	SessionBackendMemory   SessionBackend = "memory"
	SessionBackendSQLite   SessionBackend = "sqlite"
	SessionBackendPostgres SessionBackend = "postgres"
)

// IsValid returns true if the backend is recognised.
func (b SessionBackend) IsValid() bool {
	switch b {
	case SessionBackendMemory, SessionBackendSQLite, SessionBackendPostgres:
		return true
	default:
		return false
	}
}

// RAGSettings tunes the retrieval pipeline.
type RAGSettings struct {
	// ChunkSize is the maximum characters per chunk.
	ChunkSize int

	// ChunkOverlap is the characters carried into the next chunk.
	ChunkOverlap int

	// RetrieveK is the over-fetch size for similarity search.
	RetrieveK int

	// RerankK is the number of candidates kept after re-ranking.
	RerankK int

	// HistoryTurns is how many trailing turns feed rewriting and the prompt.
	HistoryTurns int

	// MaxContextChars bounds the rendered context. Zero means unbounded.
	MaxContextChars int

	// Temperature for answer generation.
	Temperature float64

	// MaxTokens for answer generation.
	MaxTokens int
}

// DefaultRAGSettings returns the pipeline defaults.
func DefaultRAGSettings() RAGSettings {
	return RAGSettings{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		RetrieveK:    15,
		RerankK:      5,
		HistoryTurns: 5,
		Temperature:  0.3,
		MaxTokens:    2048,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderGroq,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGroq:      "llama-3.3-70b-versatile",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

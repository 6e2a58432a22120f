// Package config loads RAGbot settings from defaults, the TOML config file,
// a .env file and RAGBOT_-prefixed environment variables, in that order
// of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/ragbot/internal/core/domain"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RAGBOT_"

// ErrInvalidConfig indicates a configuration that cannot start the pipeline.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration.
type Config struct {
	LLM       LLMConfig       `toml:"llm" envPrefix:"LLM_"`
	Embedding EmbeddingConfig `toml:"embedding" envPrefix:"EMBEDDING_"`
	Vector    VectorConfig    `toml:"vector" envPrefix:"VECTOR_"`
	Rerank    RerankConfig    `toml:"rerank" envPrefix:"RERANK_"`
	RAG       RAGConfig       `toml:"rag" envPrefix:"RAG_"`
	Sessions  SessionsConfig  `toml:"sessions" envPrefix:"SESSIONS_"`
	Identity  IdentityConfig  `toml:"identity" envPrefix:"IDENTITY_"`
	Server    ServerConfig    `toml:"server" envPrefix:"SERVER_"`
	Retry     RetryConfig     `toml:"retry" envPrefix:"RETRY_"`
}

// LLMConfig selects the chat model.
type LLMConfig struct {
	Provider    string  `toml:"provider" env:"PROVIDER"`
	Model       string  `toml:"model" env:"MODEL"`
	BaseURL     string  `toml:"base_url,omitempty" env:"BASE_URL"`
	APIKey      string  `toml:"api_key,omitempty" env:"API_KEY"`
	Temperature float64 `toml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int     `toml:"max_tokens" env:"MAX_TOKENS"`
}

// EmbeddingConfig selects the embedding model.
type EmbeddingConfig struct {
	Provider string   `toml:"provider" env:"PROVIDER"`
	Model    string   `toml:"model" env:"MODEL"`
	BaseURL  string   `toml:"base_url,omitempty" env:"BASE_URL"`
	APIKey   string   `toml:"api_key,omitempty" env:"API_KEY"`
	CacheTTL Duration `toml:"cache_ttl" env:"CACHE_TTL"`
}

// VectorConfig selects and tunes the vector index. The backend is chosen
// once at startup: qdrant when QdrantURL is set, pgvector when
// PostgresDSN is set, otherwise the local SQLite file. An explicit
// Backend overrides the choice.
type VectorConfig struct {
	Backend      string  `toml:"backend,omitempty" env:"BACKEND"`
	QdrantURL    string  `toml:"qdrant_url,omitempty" env:"QDRANT_URL"`
	QdrantAPIKey string  `toml:"qdrant_api_key,omitempty" env:"QDRANT_API_KEY"`
	Collection   string  `toml:"collection" env:"COLLECTION"`
	PostgresDSN  string  `toml:"postgres_dsn,omitempty" env:"POSTGRES_DSN"`
	LocalPath    string  `toml:"local_path,omitempty" env:"LOCAL_PATH"`
	BatchSize    int     `toml:"batch_size" env:"BATCH_SIZE"`
	RateLimit    float64 `toml:"rate_limit" env:"RATE_LIMIT"`
}

// RerankConfig points at a cross-encoder service. An empty URL disables
// re-ranking.
type RerankConfig struct {
	URL    string `toml:"url,omitempty" env:"URL"`
	APIKey string `toml:"api_key,omitempty" env:"API_KEY"`
	Model  string `toml:"model" env:"MODEL"`
}

// RAGConfig tunes chunking and retrieval.
type RAGConfig struct {
	ChunkSize       int `toml:"chunk_size" env:"CHUNK_SIZE"`
	ChunkOverlap    int `toml:"chunk_overlap" env:"CHUNK_OVERLAP"`
	RetrieveK       int `toml:"retrieve_k" env:"RETRIEVE_K"`
	RerankK         int `toml:"rerank_k" env:"RERANK_K"`
	HistoryTurns    int `toml:"history_turns" env:"HISTORY_TURNS"`
	MaxContextChars int `toml:"max_context_chars" env:"MAX_CONTEXT_CHARS"`
}

// SessionsConfig selects the chat session store.
type SessionsConfig struct {
	Backend string `toml:"backend" env:"BACKEND"`
	DSN     string `toml:"dsn,omitempty" env:"DSN"`
	Path    string `toml:"path,omitempty" env:"PATH"`
}

// IdentityConfig points at a GoTrue-compatible identity service. An empty
// URL runs as the single local user.
type IdentityConfig struct {
	URL    string `toml:"url,omitempty" env:"URL"`
	APIKey string `toml:"api_key,omitempty" env:"API_KEY"`
}

// ServerConfig configures `ragbot serve`.
type ServerConfig struct {
	Addr string `toml:"addr" env:"ADDR"`
}

// RetryConfig tunes retries of outbound HTTP calls.
type RetryConfig struct {
	Attempts uint     `toml:"attempts" env:"ATTEMPTS"`
	Delay    Duration `toml:"delay" env:"DELAY"`
	MaxDelay Duration `toml:"max_delay" env:"MAX_DELAY"`
}

// Default returns the built-in configuration.
func Default() *Config {
	rag := domain.DefaultRAGSettings()
	return &Config{
		LLM: LLMConfig{
			Provider:    string(domain.AIProviderGroq),
			Model:       domain.DefaultLLMModels()[domain.AIProviderGroq],
			Temperature: rag.Temperature,
			MaxTokens:   rag.MaxTokens,
		},
		Embedding: EmbeddingConfig{
			Provider: string(domain.AIProviderOllama),
			Model:    domain.DefaultEmbeddingModels()[domain.AIProviderOllama],
			CacheTTL: Duration(10 * time.Minute),
		},
		Vector: VectorConfig{
			Collection: "ragbot",
			BatchSize:  100,
		},
		Rerank: RerankConfig{
			Model: "ms-marco-MiniLM-L-12-v2",
		},
		RAG: RAGConfig{
			ChunkSize:    rag.ChunkSize,
			ChunkOverlap: rag.ChunkOverlap,
			RetrieveK:    rag.RetrieveK,
			RerankK:      rag.RerankK,
			HistoryTurns: rag.HistoryTurns,
		},
		Sessions: SessionsConfig{
			Backend: string(domain.SessionBackendSQLite),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Retry: RetryConfig{
			Attempts: 3,
			Delay:    Duration(200 * time.Millisecond),
			MaxDelay: Duration(2 * time.Second),
		},
	}
}

// Dir returns ~/.ragbot.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".ragbot"), nil
}

// DefaultPath returns ~/.ragbot/config.toml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load layers the config file at path (or the default path when empty),
// a .env file in the working directory and the environment over the
// defaults. Missing files are skipped. Load does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// .env is optional; variables may be set externally.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.applyProviderEnv()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyProviderEnv fills credentials from the providers' conventional
// variables when no RAGBOT_ value was given.
func (c *Config) applyProviderEnv() {
	fill := func(dst *string, name string) {
		if *dst == "" {
			*dst = os.Getenv(name)
		}
	}

	switch domain.AIProvider(c.LLM.Provider) {
	case domain.AIProviderGroq:
		fill(&c.LLM.APIKey, "GROQ_API_KEY")
	case domain.AIProviderOpenAI:
		fill(&c.LLM.APIKey, "OPENAI_API_KEY")
	case domain.AIProviderAnthropic:
		fill(&c.LLM.APIKey, "ANTHROPIC_API_KEY")
	}
	if domain.AIProvider(c.Embedding.Provider) == domain.AIProviderOpenAI {
		fill(&c.Embedding.APIKey, "OPENAI_API_KEY")
	}
	fill(&c.Vector.QdrantURL, "QDRANT_URL")
	fill(&c.Vector.QdrantAPIKey, "QDRANT_API_KEY")
	fill(&c.Identity.URL, "SUPABASE_URL")
	fill(&c.Identity.APIKey, "SUPABASE_KEY")
}

// Validate reports configuration errors that prevent answering
// questions. A missing LLM credential is fatal.
func (c *Config) Validate() error {
	var errs []error

	llm := c.LLMSettings()
	if !llm.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	} else if !llm.IsConfigured() {
		errs = append(errs, fmt.Errorf("llm.api_key is required for %s", llm.Provider))
	}

	emb := c.EmbeddingSettings()
	if !emb.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("embedding.provider %q is not supported", c.Embedding.Provider))
	} else if !emb.IsConfigured() {
		errs = append(errs, fmt.Errorf("embedding.api_key is required for %s", emb.Provider))
	}

	if c.Vector.Backend != "" && !domain.VectorBackend(c.Vector.Backend).IsValid() {
		errs = append(errs, fmt.Errorf("vector.backend %q is not supported", c.Vector.Backend))
	}
	if !domain.SessionBackend(c.Sessions.Backend).IsValid() {
		errs = append(errs, fmt.Errorf("sessions.backend %q is not supported", c.Sessions.Backend))
	}
	if c.Sessions.Backend == string(domain.SessionBackendPostgres) && c.Sessions.DSN == "" {
		errs = append(errs, errors.New("sessions.dsn is required for the postgres backend"))
	}

	if c.RAG.ChunkSize <= 0 {
		errs = append(errs, errors.New("rag.chunk_size must be positive"))
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, errors.New("rag.chunk_overlap must be between 0 and chunk_size"))
	}
	if c.RAG.RetrieveK <= 0 || c.RAG.RerankK <= 0 {
		errs = append(errs, errors.New("rag.retrieve_k and rag.rerank_k must be positive"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Save writes the configuration as TOML with owner-only permissions.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// LLMSettings converts the [llm] section.
func (c *Config) LLMSettings() domain.LLMSettings {
	return domain.LLMSettings{
		Provider: domain.AIProvider(c.LLM.Provider),
		Model:    c.LLM.Model,
		BaseURL:  c.LLM.BaseURL,
		APIKey:   c.LLM.APIKey,
	}
}

// EmbeddingSettings converts the [embedding] section.
func (c *Config) EmbeddingSettings() domain.EmbeddingSettings {
	return domain.EmbeddingSettings{
		Provider: domain.AIProvider(c.Embedding.Provider),
		Model:    c.Embedding.Model,
		BaseURL:  c.Embedding.BaseURL,
		APIKey:   c.Embedding.APIKey,
	}
}

// RerankSettings converts the [rerank] section.
func (c *Config) RerankSettings() domain.RerankSettings {
	return domain.RerankSettings{
		URL:    c.Rerank.URL,
		APIKey: c.Rerank.APIKey,
		Model:  c.Rerank.Model,
	}
}

// RAGSettings converts the [rag] section plus the generation knobs.
func (c *Config) RAGSettings() domain.RAGSettings {
	return domain.RAGSettings{
		ChunkSize:       c.RAG.ChunkSize,
		ChunkOverlap:    c.RAG.ChunkOverlap,
		RetrieveK:       c.RAG.RetrieveK,
		RerankK:         c.RAG.RerankK,
		HistoryTurns:    c.RAG.HistoryTurns,
		MaxContextChars: c.RAG.MaxContextChars,
		Temperature:     c.LLM.Temperature,
		MaxTokens:       c.LLM.MaxTokens,
	}
}

// VectorBackend resolves which vector index to open.
func (c *Config) VectorBackend() domain.VectorBackend {
	switch {
	case c.Vector.Backend != "":
		return domain.VectorBackend(c.Vector.Backend)
	case c.Vector.QdrantURL != "":
		return domain.VectorBackendQdrant
	case c.Vector.PostgresDSN != "":
		return domain.VectorBackendPgvector
	default:
		return domain.VectorBackendSQLite
	}
}

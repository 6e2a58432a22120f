// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragbot/internal/adapters/driven/embedding/cached"
	ollamaembed "github.com/custodia-labs/ragbot/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragbot/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/ragbot/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/ragbot/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ragbot/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/ragbot/internal/adapters/driven/rerank/crossencoder"
	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/core/ports/driven"
	"github.com/custodia-labs/ragbot/internal/httpclient"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Options selects and tunes the AI services to create.
type Options struct {
	Embedding domain.EmbeddingSettings
	LLM       domain.LLMSettings
	Rerank    domain.RerankSettings

	// CacheTTL wraps the embedding service in a query cache. Zero disables it.
	CacheTTL time.Duration

	// HTTPOptions are applied to every HTTP-backed adapter.
	HTTPOptions []httpclient.Option

	// SkipPing creates services without checking connectivity.
	SkipPing bool
}

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Reranker         driven.Reranker // Nil when re-ranking is disabled.
	Warnings         []string        // Non-fatal issues that caused fallback.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
	if r.Reranker != nil {
		r.Reranker.Close()
	}
}

// Init creates the embedding, LLM and re-ranker services. Embedding and
// LLM services are required; a re-ranker that cannot be created is
// reported as a warning and left nil.
func Init(ctx context.Context, opts Options) (*InitResult, error) {
	result := &InitResult{}

	embedding, err := CreateAndValidateEmbeddingService(ctx, &opts.Embedding, opts.CacheTTL, opts.SkipPing, opts.HTTPOptions...)
	if err != nil {
		return nil, err
	}
	if embedding == nil {
		return nil, fmt.Errorf("%w: embedding provider %q is not configured", domain.ErrEmbeddingUnavailable, opts.Embedding.Provider)
	}
	result.EmbeddingService = embedding

	llm, err := CreateAndValidateLLMService(ctx, &opts.LLM, opts.SkipPing, opts.HTTPOptions...)
	if err != nil {
		result.Close()
		return nil, err
	}
	if llm == nil {
		result.Close()
		return nil, fmt.Errorf("%w: llm provider %q is not configured. Run 'ragbot config init' to fix",
			domain.ErrLLMUnavailable, opts.LLM.Provider)
	}
	result.LLMService = llm

	reranker, err := CreateReranker(&opts.Rerank, opts.HTTPOptions...)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("re-ranking disabled: %v", err))
	}
	if reranker != nil {
		result.Reranker = reranker
	}

	return result, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings, cacheTTL time.Duration, skipPing bool, httpOpts ...httpclient.Option) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings, cacheTTL, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'ragbot config init' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil || skipPing {
		return svc, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'ragbot config init' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings, skipPing bool, httpOpts ...httpclient.Option) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings, httpOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'ragbot config init' to fix",
			domain.ErrLLMUnavailable, err)
	}
	if svc == nil || skipPing {
		return svc, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'ragbot config init' to fix",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings, httpOpts ...httpclient.Option) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings, 0, httpOpts...)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(pingCtx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(ctx context.Context, settings *domain.LLMSettings, httpOpts ...httpclient.Option) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings, httpOpts...)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(pingCtx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// A positive cacheTTL wraps it in a query cache.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, cacheTTL time.Duration, httpOpts ...httpclient.Option) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings, httpOpts)

	case domain.AIProviderOpenAI:
		svc, err = createOpenAIEmbedding(settings, httpOpts)

	case domain.AIProviderAnthropic, domain.AIProviderGroq:
		return nil, fmt.Errorf("%s does not support embeddings, use ollama or openai", settings.Provider)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cacheTTL > 0 {
		return cached.New(svc, cacheTTL), nil
	}
	return svc, nil
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings, httpOpts ...httpclient.Option) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings, httpOpts), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings, settings.BaseURL, httpOpts)

	case domain.AIProviderGroq:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = openaillm.GroqBaseURL
		}
		return createOpenAILLM(settings, baseURL, httpOpts)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings, httpOpts)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateReranker creates a cross-encoder re-ranker.
// Returns nil if no re-ranking endpoint is configured.
func CreateReranker(settings *domain.RerankSettings, httpOpts ...httpclient.Option) (driven.Reranker, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	reranker, err := crossencoder.New(crossencoder.Config{
		URL:         settings.URL,
		APIKey:      settings.APIKey,
		Model:       settings.Model,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, err
	}
	return reranker, nil
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings, httpOpts []httpclient.Option) driven.EmbeddingService {
	// Unknown models report 0 dimensions until the first embedding.
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Dimensions:  domain.EmbeddingDimensions()[settings.Model],
		HTTPOptions: httpOpts,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings, httpOpts []httpclient.Option) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:      settings.APIKey,
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		Dimensions:  domain.EmbeddingDimensions()[settings.Model],
		HTTPOptions: httpOpts,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings, httpOpts []httpclient.Option) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		HTTPOptions: httpOpts,
	})
}

// createOpenAILLM creates an OpenAI-compatible LLM service.
func createOpenAILLM(settings *domain.LLMSettings, baseURL string, httpOpts []httpclient.Option) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:      settings.APIKey,
		BaseURL:     baseURL,
		Model:       settings.Model,
		HTTPOptions: httpOpts,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings, httpOpts []httpclient.Option) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:      settings.APIKey,
		BaseURL:     settings.BaseURL,
		Model:       settings.Model,
		HTTPOptions: httpOpts,
	})
}

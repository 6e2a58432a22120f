package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/httpclient"
)

// ConfigValidator pings the configured providers without building the
// rest of the application. It backs 'ragbot config check'.
type ConfigValidator struct {
	httpOpts []httpclient.Option
}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator(httpOpts ...httpclient.Option) *ConfigValidator {
	return &ConfigValidator{httpOpts: httpOpts}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(ctx, settings, v.httpOpts...)
}

// ValidateLLM validates an LLM configuration by pinging the provider.
func (v *ConfigValidator) ValidateLLM(ctx context.Context, settings *domain.LLMSettings) error {
	return ValidateLLMConfig(ctx, settings, v.httpOpts...)
}

// ValidateAll checks both providers and joins their failures.
func (v *ConfigValidator) ValidateAll(ctx context.Context, embedding *domain.EmbeddingSettings, llm *domain.LLMSettings) error {
	var errs []error
	if err := v.ValidateEmbedding(ctx, embedding); err != nil {
		errs = append(errs, fmt.Errorf("embedding: %w", err))
	}
	if err := v.ValidateLLM(ctx, llm); err != nil {
		errs = append(errs, fmt.Errorf("llm: %w", err))
	}
	return errors.Join(errs...)
}

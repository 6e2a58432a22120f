// Package driven declares what the core needs from infrastructure.
//
// Required: EmbeddingService, VectorIndex, LLMService, Extractor and
// SessionStore. Reranker, IdentityProvider and PromptStore may be nil; the
// services then keep similarity order, run as the local user, or use the
// built-in prompts.
//
// Only the domain package may be imported from here.
package driven

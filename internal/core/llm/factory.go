package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/deckwise-ai/deckwise/internal/config"
	"github.com/deckwise-ai/deckwise/internal/core"
)

// ErrProviderNotAvailable marks a request for a provider whose credentials or
// configuration are absent. It is raised before any work begins and is never
// retried.
var ErrProviderNotAvailable = errors.New("provider not available")

// Chat providers.
const (
	ProviderGPT    = "gpt"
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderOllama = "ollama"
)

// Embedding providers.
const (
	EmbeddingOpenAISmall = "openai_small"
	EmbeddingGemini      = "gemini"
)

// Factory builds chat clients and embedders by provider name. It implements
// the provider selection the ingestion pipeline and QA service depend on.
type Factory struct {
	cfg *config.Config
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{cfg: cfg}
}

// ChatClient returns a client for the named provider, or
// ErrProviderNotAvailable when its configuration is missing.
func (f *Factory) ChatClient(ctx context.Context, provider, model string) (core.ChatClient, error) {
	switch provider {
	case ProviderGPT:
		if f.cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY not configured", ErrProviderNotAvailable)
		}
		return NewOpenAIClient(f.cfg.OpenAIAPIKey, model)

	case ProviderGemini:
		if f.cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("%w: GOOGLE_API_KEY not configured", ErrProviderNotAvailable)
		}
		return NewGeminiClient(ctx, f.cfg.GoogleAPIKey, model)

	case ProviderClaude:
		if f.cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY not configured", ErrProviderNotAvailable)
		}
		return NewClaudeClient(f.cfg.AnthropicAPIKey, model)

	case ProviderOllama:
		if f.cfg.OllamaBaseURL == "" {
			return nil, fmt.Errorf("%w: OLLAMA_BASE_URL not configured", ErrProviderNotAvailable)
		}
		return NewOllamaClient(f.cfg.OllamaBaseURL, model)

	default:
		return nil, fmt.Errorf("%w: unknown chat provider %q", ErrProviderNotAvailable, provider)
	}
}

// Embedder returns an embedding provider by name, or ErrProviderNotAvailable
// when its configuration is missing.
func (f *Factory) Embedder(ctx context.Context, provider string) (core.EmbeddingProvider, error) {
	switch provider {
	case EmbeddingOpenAISmall:
		if f.cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY not configured", ErrProviderNotAvailable)
		}
		return NewOpenAIEmbedder(f.cfg.OpenAIAPIKey)

	case EmbeddingGemini:
		if f.cfg.GoogleAPIKey == "" {
			return nil, fmt.Errorf("%w: GOOGLE_API_KEY not configured", ErrProviderNotAvailable)
		}
		return NewGeminiEmbedder(ctx, f.cfg.GoogleAPIKey, "")

	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", ErrProviderNotAvailable, provider)
	}
}

// CollectionForProvider maps an embedding provider to its vector collection.
// One collection per provider keeps vector dimensions homogeneous.
func CollectionForProvider(provider string) string {
	return "chunks_" + provider
}

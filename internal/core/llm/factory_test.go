package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckwise-ai/deckwise/internal/config"
)

func TestChatClientUnconfiguredProviders(t *testing.T) {
	f := NewFactory(&config.Config{})

	for _, provider := range []string{ProviderGPT, ProviderGemini, ProviderClaude, ProviderOllama} {
		_, err := f.ChatClient(context.Background(), provider, "")
		assert.ErrorIs(t, err, ErrProviderNotAvailable, "provider %s", provider)
	}
}

func TestChatClientUnknownProvider(t *testing.T) {
	f := NewFactory(&config.Config{OpenAIAPIKey: "key"})

	_, err := f.ChatClient(context.Background(), "mystery", "")
	assert.ErrorIs(t, err, ErrProviderNotAvailable)
}

func TestChatClientConfiguredProviders(t *testing.T) {
	f := NewFactory(&config.Config{
		OpenAIAPIKey:    "key",
		AnthropicAPIKey: "key",
		OllamaBaseURL:   "http://localhost:11434",
	})

	for _, provider := range []string{ProviderGPT, ProviderClaude, ProviderOllama} {
		client, err := f.ChatClient(context.Background(), provider, "")
		require.NoError(t, err, "provider %s", provider)
		assert.NotNil(t, client)
	}
}

func TestEmbedderUnconfiguredProviders(t *testing.T) {
	f := NewFactory(&config.Config{})

	for _, provider := range []string{EmbeddingOpenAISmall, EmbeddingGemini, "mystery"} {
		_, err := f.Embedder(context.Background(), provider)
		assert.ErrorIs(t, err, ErrProviderNotAvailable, "provider %s", provider)
	}
}

func TestCollectionForProvider(t *testing.T) {
	assert.Equal(t, "chunks_openai_small", CollectionForProvider(EmbeddingOpenAISmall))
	assert.Equal(t, "chunks_gemini", CollectionForProvider(EmbeddingGemini))
}

package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/deckwise-ai/deckwise/internal/core"
)

// OpenAIClient is a vision-capable chat client for the OpenAI API.
type OpenAIClient struct {
	client *openai.LLM
	model  string
}

func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if model == "" {
		model = "gpt-4o-mini"
	}
	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &OpenAIClient{client: client, model: model}, nil
}

func (c *OpenAIClient) Stream(ctx context.Context, messages []core.Message, opts core.GenOptions, onToken func(string) error) error {
	return streamChat(ctx, c.client, messages, opts, onToken)
}

// DescribeImage sends the page raster inline as a binary content part.
func (c *OpenAIClient) DescribeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
				llms.BinaryPart("image/png", image),
			},
		},
	}

	resp, err := c.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(8000),
	)
	if err != nil {
		return "", fmt.Errorf("openai vision: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

func (c *OpenAIClient) CountTokens(text string) int {
	return llms.CountTokens(c.model, text)
}

// OllamaClient talks to a local Ollama daemon through its OpenAI-compatible
// endpoint. It deliberately does not implement core.ImageDescriber: vision
// requests degrade to extracted text upstream.
type OllamaClient struct {
	client *openai.LLM
	model  string
}

func NewOllamaClient(baseURL, model string) (*OllamaClient, error) {
	if model == "" {
		model = "llama3.1"
	}
	// "none" keeps the client constructor happy; local daemons don't check it.
	client, err := openai.New(
		openai.WithBaseURL(baseURL+"/v1"),
		openai.WithToken("none"),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &OllamaClient{client: client, model: model}, nil
}

func (c *OllamaClient) Stream(ctx context.Context, messages []core.Message, opts core.GenOptions, onToken func(string) error) error {
	return streamChat(ctx, c.client, messages, opts, onToken)
}

func (c *OllamaClient) CountTokens(text string) int {
	return llms.CountTokens(c.model, text)
}

// streamChat adapts our message/option types onto langchaingo's streaming API.
func streamChat(ctx context.Context, model llms.Model, messages []core.Message, opts core.GenOptions, onToken func(string) error) error {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		if msg.Role == core.RoleSystem {
			role = llms.ChatMessageTypeSystem
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(opts.Temperature),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			return onToken(string(chunk))
		}),
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	if _, err := model.GenerateContent(ctx, content, callOpts...); err != nil {
		return fmt.Errorf("chat stream: %w", err)
	}
	return nil
}

var (
	_ core.ChatClient     = (*OpenAIClient)(nil)
	_ core.ImageDescriber = (*OpenAIClient)(nil)
	_ core.ChatClient     = (*OllamaClient)(nil)
)

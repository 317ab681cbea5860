package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/deckwise-ai/deckwise/internal/core"
)

// ClaudeClient is a vision-capable chat client for the Anthropic API.
type ClaudeClient struct {
	client *anthropic.LLM
	model  string
}

func NewClaudeClient(apiKey, model string) (*ClaudeClient, error) {
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	client, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &ClaudeClient{client: client, model: model}, nil
}

func (c *ClaudeClient) Stream(ctx context.Context, messages []core.Message, opts core.GenOptions, onToken func(string) error) error {
	return streamChat(ctx, c.client, messages, opts, onToken)
}

// DescribeImage sends the page raster inline as a binary content part.
func (c *ClaudeClient) DescribeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart("image/png", image),
				llms.TextPart(prompt),
			},
		},
	}

	resp, err := c.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.3),
		llms.WithMaxTokens(8000),
	)
	if err != nil {
		return "", fmt.Errorf("claude vision: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

// CountTokens approximates at ~4 chars per token; Claude's tokenizer is close
// enough to GPT's for sizing purposes.
func (c *ClaudeClient) CountTokens(text string) int {
	return len([]rune(text)) / 4
}

var (
	_ core.ChatClient     = (*ClaudeClient)(nil)
	_ core.ImageDescriber = (*ClaudeClient)(nil)
)

package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/deckwise-ai/deckwise/internal/core"
)

// GeminiClient is a vision-capable chat client backed by the Gemini API.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiClient{client: cl, modelName: modelName}, nil
}

func (g *GeminiClient) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Stream generates a completion, invoking onToken per streamed fragment.
// System messages become the model's system instruction; the remaining
// messages are concatenated into the user turn.
func (g *GeminiClient) Stream(ctx context.Context, messages []core.Message, opts core.GenOptions, onToken func(string) error) error {
	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxTokens))
	}

	var userParts []genai.Part
	for _, msg := range messages {
		if msg.Role == core.RoleSystem {
			m.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
			continue
		}
		userParts = append(userParts, genai.Text(msg.Content))
	}
	if len(userParts) == 0 {
		return errors.New("no user content to send")
	}

	iter := m.GenerateContentStream(ctx, userParts...)
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini stream: %w", err)
		}
		for _, token := range candidateText(resp) {
			if err := onToken(token); err != nil {
				return err
			}
		}
	}
}

// DescribeImage sends an inline image with an instruction prompt. Gemini
// accepts raw image bytes as a content part alongside text.
func (g *GeminiClient) DescribeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(0.3)
	m.SetMaxOutputTokens(8000)

	resp, err := m.GenerateContent(ctx,
		genai.ImageData("png", image),
		genai.Text(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("gemini vision: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

// CountTokens approximates at ~4 chars per token; Gemini's exact counting
// endpoint is not worth a network round trip per call.
func (g *GeminiClient) CountTokens(text string) int {
	return len([]rune(text)) / 4
}

func candidateText(resp *genai.GenerateContentResponse) []string {
	var out []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok && len(t) > 0 {
				out = append(out, string(t))
			}
		}
	}
	return out
}

var (
	_ core.ChatClient     = (*GeminiClient)(nil)
	_ core.ImageDescriber = (*GeminiClient)(nil)
)

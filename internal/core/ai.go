package core

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one chat turn sent to an LLM.
type Message struct {
	Role    Role
	Content string
}

// GenOptions tunes a single generation call.
type GenOptions struct {
	Temperature float64
	MaxTokens   int
}

// ChatClient streams chat completion tokens. The token sequence is finite and
// not restartable; implementations must be safe for concurrent use.
type ChatClient interface {
	// Stream invokes onToken for each generated token in order. Returning a
	// non-nil error from onToken aborts the stream.
	Stream(ctx context.Context, messages []Message, opts GenOptions, onToken func(token string) error) error

	// CountTokens approximates the token count of text.
	CountTokens(text string) int
}

// ImageDescriber is the optional multimodal extension of a chat client.
// Clients whose underlying provider lacks vision support simply do not
// implement it; callers select the capability by interface assertion.
type ImageDescriber interface {
	// DescribeImage sends an inline image with an instruction prompt and
	// returns the generated text.
	DescribeImage(ctx context.Context, image []byte, prompt string) (string, error)
}

// EmbeddingProvider embeds batches of strings into fixed-dimension vectors,
// preserving batch order.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

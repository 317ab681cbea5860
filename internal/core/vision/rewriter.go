package vision

import (
	"context"
	"log/slog"
	"strings"

	"github.com/deckwise-ai/deckwise/internal/core"
)

const rewritePrompt = `Extract ALL content from this PDF page image - including text, tables, images, diagrams, charts, and any other visual elements.

Then rewrite the entire content in simple, clear English. Do NOT summarize - rewrite everything fully but in simpler language.

Requirements:
- Preserve all information and details
- Make the language simpler and easier to understand
- Keep all data from tables, but present it clearly
- Describe images, diagrams, and charts in detail
- Maintain the structure and organization
- Use clear, straightforward language

Return the complete rewritten content.`

// Rewriter reconstructs a page's full content as simplified prose from its
// rendered raster. It presents one uniform contract regardless of whether
// the configured chat client can see images.
type Rewriter struct {
	chat   core.ChatClient
	logger *slog.Logger
}

func NewRewriter(chat core.ChatClient) *Rewriter {
	return &Rewriter{
		chat:   chat,
		logger: slog.Default().With("component", "vision"),
	}
}

// Rewrite sends the page raster plus previously extracted content to a
// vision-capable client and returns the rewritten text. A client without
// vision support, a provider failure, or a blank response all degrade to
// returning the extracted content unchanged: a missing capability must never
// fail the page.
func (r *Rewriter) Rewrite(ctx context.Context, image []byte, extracted string) string {
	describer, ok := r.chat.(core.ImageDescriber)
	if !ok {
		r.logger.Warn("chat client has no vision support, keeping extracted content")
		return extracted
	}
	if len(image) == 0 {
		r.logger.Warn("no page raster available, keeping extracted content")
		return extracted
	}

	prompt := rewritePrompt
	if strings.TrimSpace(extracted) != "" {
		prompt += "\n\nPreviously extracted content, for reference:\n" + extracted
	}

	rewritten, err := describer.DescribeImage(ctx, image, prompt)
	if err != nil {
		r.logger.Error("vision rewrite failed, keeping extracted content", "err", err)
		return extracted
	}
	if strings.TrimSpace(rewritten) == "" {
		return extracted
	}
	return strings.TrimSpace(rewritten)
}

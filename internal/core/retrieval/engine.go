package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deckwise-ai/deckwise/internal/core"
)

// Scope narrows retrieval relative to the page the user is looking at.
type Scope string

const (
	ScopePage Scope = "page"
	ScopeNear Scope = "near"
	ScopeDeck Scope = "deck"
)

// DefaultTopK is the number of chunks handed to the answering LLM.
const DefaultTopK = 6

// ParseScope normalizes a scope string, defaulting to page.
func ParseScope(s string) Scope {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeNear:
		return ScopeNear
	case ScopeDeck:
		return ScopeDeck
	default:
		return ScopePage
	}
}

// Engine runs semantic search over a document's indexed chunks and builds
// the grounded context the answering LLM sees.
type Engine struct {
	vectors    core.VectorStore
	embedder   core.EmbeddingProvider
	collection string
	logger     *slog.Logger
}

func NewEngine(vectors core.VectorStore, embedder core.EmbeddingProvider, collection string) *Engine {
	return &Engine{
		vectors:    vectors,
		embedder:   embedder,
		collection: collection,
		logger:     slog.Default().With("component", "retrieval"),
	}
}

// Result is one retrieved chunk with its similarity score.
type Result struct {
	ChunkID string
	Score   float32
	Payload core.ChunkPayload
}

// EmbedQuery embeds the question once so callers can reuse the vector for
// both retrieval and emptiness probes.
func (e *Engine) EmbedQuery(ctx context.Context, question string) ([]float32, error) {
	vecs, err := e.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embed query: empty embedding response")
	}
	return vecs[0], nil
}

// Retrieve returns the topK most similar chunks for the query vector within
// the given scope. Page scope that finds nothing widens to the whole document
// and then re-applies the page condition, so a page whose chunks were indexed
// under a neighboring page number still misses rather than silently leaking
// other pages into a page-scoped answer.
func (e *Engine) Retrieve(ctx context.Context, queryVec []float32, docID string, pageNo int, scope Scope, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	filter := core.VectorFilter{DocID: docID}
	switch scope {
	case ScopeDeck:
		// whole document, no page condition
	default:
		// near scope collapses to page until chunk records carry a page
		// range the store can filter on
		page := pageNo
		filter.PageNo = &page
	}

	// Over-fetch so post-filtering still leaves topK candidates.
	matches, err := e.vectors.Query(ctx, e.collection, queryVec, topK*2, filter)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	if len(matches) == 0 && filter.PageNo != nil {
		wide, err := e.vectors.Query(ctx, e.collection, queryVec, topK*2, core.VectorFilter{DocID: docID})
		if err != nil {
			return nil, fmt.Errorf("vector query widen: %w", err)
		}
		matches = wide[:0]
		for _, m := range wide {
			if m.Payload.PageNo == pageNo {
				matches = append(matches, m)
			}
		}
		e.logger.Debug("page-scoped query widened", "doc_id", docID, "page_no", pageNo, "kept", len(matches))
	}

	if len(matches) > topK {
		matches = matches[:topK]
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, Result{ChunkID: m.ID, Score: m.Score, Payload: m.Payload})
	}
	return results, nil
}

const answerSystemPrompt = `You are a helpful teaching assistant answering questions about a slide deck.

Answer the question using ONLY the provided context. If the context does not contain enough information to answer, say "I don't know based on the provided content."

When you use information from the context, cite it inline using the format [page:X, chunk:Y] matching the labels in the context.`

// BuildMessages assembles the system and user messages for the answering LLM.
// Each chunk is labeled with its page and chunk index so the model can cite it.
func BuildMessages(results []Result, question string) []core.Message {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[page:%d, chunk:%d] %s", r.Payload.PageNo, r.Payload.ChunkIndex, r.Payload.Text)
	}

	user := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", b.String(), question)
	return []core.Message{
		{Role: core.RoleSystem, Content: answerSystemPrompt},
		{Role: core.RoleUser, Content: user},
	}
}

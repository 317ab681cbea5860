package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckwise-ai/deckwise/internal/core"
)

type fakeEmbedder struct {
	dim   int
	calls int
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

// fakeVectorStore serves canned matches in stored order. When
// ignorePageFilter is set, page-scoped queries come back empty, simulating
// chunks indexed without the expected page condition.
type fakeVectorStore struct {
	matches          []core.VectorMatch
	ignorePageFilter bool
	queries          []core.VectorFilter
}

func (f *fakeVectorStore) EnsureCollection(context.Context, string, int) error { return nil }
func (f *fakeVectorStore) Upsert(context.Context, string, []core.VectorRecord) error {
	return nil
}
func (f *fakeVectorStore) DeleteByFilter(context.Context, string, core.VectorFilter) error {
	return nil
}

func (f *fakeVectorStore) Query(_ context.Context, _ string, _ []float32, limit int, filter core.VectorFilter) ([]core.VectorMatch, error) {
	f.queries = append(f.queries, filter)

	if filter.PageNo != nil && f.ignorePageFilter {
		return nil, nil
	}

	var out []core.VectorMatch
	for _, m := range f.matches {
		if filter.DocID != "" && m.Payload.DocID != filter.DocID {
			continue
		}
		if filter.PageNo != nil && m.Payload.PageNo != *filter.PageNo {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func match(docID string, pageNo, chunkIndex int, text string) core.VectorMatch {
	return core.VectorMatch{
		ID:    fmt.Sprintf("%s_%d_%d", docID, pageNo, chunkIndex),
		Score: 0.9,
		Payload: core.ChunkPayload{
			DocID:      docID,
			PageNo:     pageNo,
			ChunkIndex: chunkIndex,
			Text:       text,
		},
	}
}

func TestParseScope(t *testing.T) {
	assert.Equal(t, ScopePage, ParseScope(""))
	assert.Equal(t, ScopePage, ParseScope("page"))
	assert.Equal(t, ScopePage, ParseScope("bogus"))
	assert.Equal(t, ScopeNear, ParseScope(" NEAR "))
	assert.Equal(t, ScopeDeck, ParseScope("deck"))
}

func TestRetrievePageScope(t *testing.T) {
	store := &fakeVectorStore{matches: []core.VectorMatch{
		match("doc1", 2, 0, "page two a"),
		match("doc1", 2, 1, "page two b"),
		match("doc1", 3, 0, "page three"),
		match("doc2", 2, 0, "other document"),
	}}
	engine := NewEngine(store, &fakeEmbedder{dim: 4}, "chunks_test")

	vec, err := engine.EmbedQuery(context.Background(), "what is on page two?")
	require.NoError(t, err)

	results, err := engine.Retrieve(context.Background(), vec, "doc1", 2, ScopePage, 6)
	require.NoError(t, err)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "doc1", r.Payload.DocID)
		assert.Equal(t, 2, r.Payload.PageNo)
	}
}

func TestRetrieveDeckScope(t *testing.T) {
	store := &fakeVectorStore{matches: []core.VectorMatch{
		match("doc1", 0, 0, "a"),
		match("doc1", 4, 0, "b"),
		match("doc1", 9, 0, "c"),
	}}
	engine := NewEngine(store, &fakeEmbedder{dim: 4}, "chunks_test")

	results, err := engine.Retrieve(context.Background(), make([]float32, 4), "doc1", 4, ScopeDeck, 6)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	require.Len(t, store.queries, 1)
	assert.Nil(t, store.queries[0].PageNo)
}

func TestRetrieveTruncatesToTopK(t *testing.T) {
	store := &fakeVectorStore{}
	for i := 0; i < 20; i++ {
		store.matches = append(store.matches, match("doc1", 1, i, "chunk"))
	}
	engine := NewEngine(store, &fakeEmbedder{dim: 4}, "chunks_test")

	results, err := engine.Retrieve(context.Background(), make([]float32, 4), "doc1", 1, ScopePage, 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestRetrieveWidensThenFiltersByPage(t *testing.T) {
	store := &fakeVectorStore{
		ignorePageFilter: true,
		matches: []core.VectorMatch{
			match("doc1", 1, 0, "wrong page"),
			match("doc1", 2, 0, "right page"),
			match("doc1", 3, 0, "wrong page too"),
		},
	}
	engine := NewEngine(store, &fakeEmbedder{dim: 4}, "chunks_test")

	results, err := engine.Retrieve(context.Background(), make([]float32, 4), "doc1", 2, ScopePage, 6)
	require.NoError(t, err)

	// The widened query returned every page; only the requested page may
	// survive.
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].Payload.PageNo)

	require.Len(t, store.queries, 2)
	assert.NotNil(t, store.queries[0].PageNo)
	assert.Nil(t, store.queries[1].PageNo)
}

func TestBuildMessages(t *testing.T) {
	results := []Result{
		{Payload: core.ChunkPayload{PageNo: 2, ChunkIndex: 0, Text: "First chunk."}},
		{Payload: core.ChunkPayload{PageNo: 2, ChunkIndex: 1, Text: "Second chunk."}},
	}

	messages := BuildMessages(results, "What happens first?")
	require.Len(t, messages, 2)

	assert.Equal(t, core.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "ONLY the provided context")

	assert.Equal(t, core.RoleUser, messages[1].Role)
	assert.Contains(t, messages[1].Content, "[page:2, chunk:0] First chunk.")
	assert.Contains(t, messages[1].Content, "[page:2, chunk:1] Second chunk.")
	assert.Contains(t, messages[1].Content, "Question: What happens first?")
}

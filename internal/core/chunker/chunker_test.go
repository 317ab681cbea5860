package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentenceText(n int) []string {
	sents := make([]string, n)
	for i := range sents {
		sents[i] = fmt.Sprintf("This is test sentence number %04d with some padding words included here.", i)
	}
	return sents
}

func TestChunkEmptyInput(t *testing.T) {
	c := Default()

	assert.Nil(t, c.Chunk("", 0))
	assert.Nil(t, c.Chunk("   \n\t  ", 0))
}

func TestChunkSingleShortText(t *testing.T) {
	c := Default()

	chunks := c.Chunk("Hello there. How are you today?", 3)
	require.Len(t, chunks, 1)

	assert.Equal(t, "Hello there. How are you today?", chunks[0].Text)
	assert.Equal(t, 3, chunks[0].PageNo)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
}

func TestChunkPreservesAllSentences(t *testing.T) {
	c := Default()
	sents := sentenceText(100)

	chunks := c.Chunk(strings.Join(sents, " "), 0)
	require.NotEmpty(t, chunks)

	joined := ""
	for _, ch := range chunks {
		joined += ch.Text + " "
	}
	for _, s := range sents {
		assert.Contains(t, joined, s)
	}
}

func TestChunkIndexesContiguous(t *testing.T) {
	c := Default()
	chunks := c.Chunk(strings.Join(sentenceText(100), " "), 7)
	require.True(t, len(chunks) > 1, "expected multiple chunks")

	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.Equal(t, 7, ch.PageNo)
		assert.NotEmpty(t, ch.Text)
	}
}

func TestChunkRespectsMaxSize(t *testing.T) {
	c := Default()
	chunks := c.Chunk(strings.Join(sentenceText(100), " "), 0)
	require.True(t, len(chunks) > 1)

	// The final chunk may absorb an undersized tail; every other chunk must
	// stay within the max budget.
	for _, ch := range chunks[:len(chunks)-1] {
		assert.LessOrEqual(t, ch.TokenCount, DefaultMaxSize)
	}
}

func TestChunkOverlap(t *testing.T) {
	c := Default()
	chunks := c.Chunk(strings.Join(sentenceText(100), " "), 0)
	require.True(t, len(chunks) > 1)

	// Each chunk after the first starts with sentences carried over from its
	// predecessor.
	for i := 1; i < len(chunks); i++ {
		dot := strings.Index(chunks[i].Text, ".")
		require.True(t, dot > 0)
		first := chunks[i].Text[:dot+1]
		assert.Contains(t, chunks[i-1].Text, first, "chunk %d should overlap chunk %d", i, i-1)
	}
}

func TestChunkGiantSentenceNotSplit(t *testing.T) {
	c := Default()

	// One 4000-char sentence with no internal boundaries.
	giant := "Alpha " + strings.Repeat("beta ", 797) + "omega."
	chunks := c.Chunk(giant, 0)

	require.Len(t, chunks, 1)
	assert.Greater(t, chunks[0].TokenCount, DefaultMaxSize)
}

func TestChunkTailMergedIntoPrevious(t *testing.T) {
	c := Default()

	// Four ~250-token sentences: the first three close a chunk past the
	// target; the fourth is below the min size and must merge backward
	// instead of standing alone.
	sentence := func(i int) string {
		return fmt.Sprintf("Alpha%d ", i) + strings.Repeat("beta ", 196) + "gamma."
	}
	text := sentence(0) + " " + sentence(1) + " " + sentence(2) + " " + sentence(3)

	chunks := c.Chunk(text, 0)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "Alpha3")
	assert.Greater(t, chunks[0].TokenCount, DefaultMaxSize)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 3, EstimateTokens("Hello world."))
}

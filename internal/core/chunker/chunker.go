package chunker

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Chunk is one sentence-aligned, size-bounded slice of a page's text.
type Chunk struct {
	Text       string
	PageNo     int
	ChunkIndex int
	TokenCount int
}

// Chunker splits page text into overlapping, sentence-aligned chunks sized
// for embedding. Stateless per call; safe for concurrent use.
type Chunker struct {
	targetSize  int
	minSize     int
	maxSize     int
	overlapSize int
	logger      *slog.Logger
}

const (
	DefaultTargetSize  = 600
	DefaultMinSize     = 400
	DefaultMaxSize     = 800
	DefaultOverlapSize = 75
)

// New creates a chunker with the given token budgets.
func New(targetSize, minSize, maxSize, overlapSize int) *Chunker {
	return &Chunker{
		targetSize:  targetSize,
		minSize:     minSize,
		maxSize:     maxSize,
		overlapSize: overlapSize,
		logger:      slog.Default().With("component", "chunker"),
	}
}

// Default returns a chunker with the standard 600/400/800/75 budgets.
func Default() *Chunker {
	return New(DefaultTargetSize, DefaultMinSize, DefaultMaxSize, DefaultOverlapSize)
}

// Chunk splits text into sentence-aligned chunks. Sentences are never split:
// a single sentence larger than the max budget becomes an oversized chunk on
// its own. Empty or whitespace-only input yields no chunks.
func (c *Chunker) Chunk(text string, pageNo int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sents := splitSentences(text)

	var (
		chunks      []Chunk
		current     []string
		currentSize int
		chunkIndex  int
	)

	emit := func() {
		chunks = append(chunks, Chunk{
			Text:       strings.Join(current, " "),
			PageNo:     pageNo,
			ChunkIndex: chunkIndex,
			TokenCount: currentSize,
		})
		chunkIndex++
		current = overlapTail(current, c.overlapSize)
		currentSize = 0
		for _, s := range current {
			currentSize += EstimateTokens(s)
		}
	}

	for _, sentence := range sents {
		size := EstimateTokens(sentence)

		// Close the running chunk rather than blow past the max budget.
		if currentSize+size > c.maxSize && len(current) > 0 {
			emit()
		}

		current = append(current, sentence)
		currentSize += size

		if currentSize >= c.targetSize && currentSize >= c.minSize {
			emit()
		}
	}

	// Flush the tail: merge into the previous chunk when it is too small to
	// stand alone and at least one chunk already exists.
	if len(current) > 0 {
		tail := strings.Join(current, " ")
		if currentSize >= c.minSize || len(chunks) == 0 {
			chunks = append(chunks, Chunk{
				Text:       tail,
				PageNo:     pageNo,
				ChunkIndex: chunkIndex,
				TokenCount: currentSize,
			})
		} else {
			last := &chunks[len(chunks)-1]
			last.Text += " " + tail
			last.TokenCount += currentSize
		}
	}

	c.logger.Debug("chunked page", "page_no", pageNo, "chunks", len(chunks))
	return chunks
}

// EstimateTokens approximates token count as character count / 4. This crude
// estimate is part of the chunk-boundary contract; swapping in a real
// tokenizer would move every boundary.
func EstimateTokens(s string) int {
	return len([]rune(s)) / 4
}

// overlapTail returns the longest suffix of sentences whose cumulative token
// estimate fits within the overlap budget, walking backward from the end.
func overlapTail(sents []string, overlapTokens int) []string {
	var tail []string
	used := 0
	for i := len(sents) - 1; i >= 0; i-- {
		size := EstimateTokens(sents[i])
		if used+size > overlapTokens {
			break
		}
		tail = append([]string{sents[i]}, tail...)
		used += size
	}
	return tail
}

var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer

	fallbackSplit = regexp.MustCompile(`[.!?]+`)
)

// splitSentences tokenizes text into trimmed, non-empty sentences. The punkt
// tokenizer is preferred; if its training data fails to load we fall back to
// punctuation splitting so chunking never hard-fails on odd input.
func splitSentences(text string) []string {
	tokenizerOnce.Do(func() {
		t, err := english.NewSentenceTokenizer(nil)
		if err != nil {
			slog.Default().Warn("sentence tokenizer unavailable, using punctuation fallback", "err", err)
			return
		}
		tokenizer = t
	})

	var raw []string
	if tokenizer != nil {
		for _, s := range tokenizer.Tokenize(text) {
			raw = append(raw, s.Text)
		}
	} else {
		raw = fallbackSplit.Split(text, -1)
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package retrieval

import (
	"regexp"
	"strconv"

	"github.com/deckwise-ai/deckwise/internal/models"
)

// Citation markers the answering LLM is known to emit. The long form is the
// one we ask for; the short form shows up often enough to be worth accepting.
var (
	citationLong  = regexp.MustCompile(`(?i)\[page:(\d+),\s*chunk:(\d+)\]`)
	citationShort = regexp.MustCompile(`(?i)\[p(\d+):c(\d+)\]`)
)

const citationExcerptLen = 200

// ExtractCitations scans the answer for citation markers and resolves each
// against the retrieved chunks. Pairs are deduplicated in first-seen order.
// Markers that reference a chunk that was not retrieved are dropped rather
// than surfaced as dangling citations.
func ExtractCitations(answer string, results []Result) []models.Citation {
	type pair struct{ page, chunk int }

	byPair := make(map[pair]Result, len(results))
	for _, r := range results {
		byPair[pair{r.Payload.PageNo, r.Payload.ChunkIndex}] = r
	}

	seen := make(map[pair]struct{})
	var citations []models.Citation
	for _, re := range []*regexp.Regexp{citationLong, citationShort} {
		for _, m := range re.FindAllStringSubmatch(answer, -1) {
			page, err1 := strconv.Atoi(m[1])
			chunk, err2 := strconv.Atoi(m[2])
			if err1 != nil || err2 != nil {
				continue
			}

			p := pair{page, chunk}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}

			r, ok := byPair[p]
			if !ok {
				continue
			}

			// Truncate on runes so a multi-byte character is never split.
			excerpt := r.Payload.Text
			if runes := []rune(excerpt); len(runes) > citationExcerptLen {
				excerpt = string(runes[:citationExcerptLen])
			}
			citations = append(citations, models.Citation{
				PageNo:     page,
				ChunkIndex: chunk,
				ChunkID:    r.ChunkID,
				Text:       excerpt,
			})
		}
	}
	return citations
}

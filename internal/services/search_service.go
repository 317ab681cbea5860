package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/deckwise-ai/deckwise/internal/core"
)

// SearchResult is one keyword-search hit over a document's Q&A history or
// page content.
type SearchResult struct {
	Type     string         `json:"type"`
	DocID    string         `json:"doc_id"`
	PageNo   int            `json:"page_no"`
	Snippet  string         `json:"snippet"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

const (
	defaultSearchLimit = 20
	searchSnippetLen   = 200
)

// SearchService runs case-insensitive keyword search across a document's Q&A
// records and page text/summaries. Questions and summaries weigh more than
// answers and body text; phrase hits weigh more than individual words.
type SearchService struct {
	db     core.DocStore
	logger *slog.Logger
}

func NewSearchService(db core.DocStore) *SearchService {
	return &SearchService{
		db:     db,
		logger: slog.Default().With("component", "search"),
	}
}

// Search scans the document's Q&A history and pages, scores each against the
// query, and returns the merged hits best first.
func (s *SearchService) Search(ctx context.Context, docID, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	query = strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(query)

	qaHits, err := s.searchQA(ctx, docID, query, words, limit/2)
	if err != nil {
		return nil, err
	}
	pageHits, err := s.searchPages(ctx, docID, query, words, limit/2)
	if err != nil {
		return nil, err
	}

	results := append(qaHits, pageHits...)
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *SearchService) searchQA(ctx context.Context, docID, query string, words []string, limit int) ([]SearchResult, error) {
	records, err := s.db.ListQAByDocument(ctx, docID, 0, 1000)
	if err != nil {
		return nil, err
	}

	var hits []SearchResult
	for _, qa := range records {
		question := strings.ToLower(qa.Question)
		answer := strings.ToLower(qa.Answer)

		var score float64
		if strings.Contains(question, query) {
			score += 2.0
		}
		if strings.Contains(answer, query) {
			score += 1.0
		}
		for _, word := range words {
			if strings.Contains(question, word) {
				score += 0.3
			}
			if strings.Contains(answer, word) {
				score += 0.1
			}
		}
		if score == 0 {
			continue
		}

		hits = append(hits, SearchResult{
			Type:    "qa",
			DocID:   qa.DocumentID,
			PageNo:  qa.PageNo,
			Snippet: snippet(qa.Answer),
			Score:   score,
			Metadata: map[string]any{
				"question": qa.Question,
				"qa_id":    qa.ID,
			},
		})
	}
	return topHits(hits, limit), nil
}

func (s *SearchService) searchPages(ctx context.Context, docID, query string, words []string, limit int) ([]SearchResult, error) {
	pages, err := s.db.ListPagesByDocument(ctx, docID)
	if err != nil {
		return nil, err
	}

	var hits []SearchResult
	for _, page := range pages {
		text := strings.ToLower(page.Text)
		summary := strings.ToLower(page.Summary)

		var score float64
		if strings.Contains(summary, query) {
			score += 1.5
		}
		if strings.Contains(text, query) {
			score += 0.5
		}
		for _, word := range words {
			if strings.Contains(summary, word) {
				score += 0.2
			}
			if strings.Contains(text, word) {
				score += 0.1
			}
		}
		if score == 0 {
			continue
		}

		snip := page.Summary
		if snip == "" {
			snip = snippet(page.Text)
		}
		hits = append(hits, SearchResult{
			Type:    "page",
			DocID:   page.DocumentID,
			PageNo:  page.PageNo,
			Snippet: snip,
			Score:   score,
			Metadata: map[string]any{
				"summary": page.Summary,
			},
		})
	}
	return topHits(hits, limit), nil
}

func topHits(hits []SearchResult, limit int) []SearchResult {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func snippet(text string) string {
	if runes := []rune(text); len(runes) > searchSnippetLen {
		return string(runes[:searchSnippetLen])
	}
	return text
}

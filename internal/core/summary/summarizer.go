package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deckwise-ai/deckwise/internal/core"
)

const (
	summaryStart  = "===SUMMARY_START==="
	summaryEnd    = "===SUMMARY_END==="
	keyTermsStart = "===KEY_TERMS_START==="
	keyTermsEnd   = "===KEY_TERMS_END==="
)

const promptTemplate = `You are analyzing a page from an educational slide deck.

Page content:
%s

Your task:
Give me a detailed, beginner-friendly explanation of this page.
Do NOT summarize it.
Explain every idea clearly, break down complex terms, unpack hidden assumptions, and add simple real-life analogies where helpful.
Your goal is to make me fully understand the page as if you're teaching me personally.

Format your response EXACTLY as follows (use these exact delimiters):

===SUMMARY_START===
Your detailed explanation here
===SUMMARY_END===

===KEY_TERMS_START===
term1
term2
term3
===KEY_TERMS_END===

Important: Put each key term on a separate line between the KEY_TERMS delimiters.
`

// Summarizer asks a chat LLM for a beginner-friendly explanation and key-term
// list for a page.
type Summarizer struct {
	chat   core.ChatClient
	logger *slog.Logger
}

func NewSummarizer(chat core.ChatClient) *Summarizer {
	return &Summarizer{
		chat:   chat,
		logger: slog.Default().With("component", "summary"),
	}
}

// Summarize produces (summary, key terms) for the page text. Any provider
// error degrades to an empty pair; the caller still persists the page.
func (s *Summarizer) Summarize(ctx context.Context, text string, pageNo int) (string, []string) {
	messages := []core.Message{
		{Role: core.RoleSystem, Content: "You are a helpful teaching assistant."},
		{Role: core.RoleUser, Content: fmt.Sprintf(promptTemplate, text)},
	}

	var b strings.Builder
	err := s.chat.Stream(ctx, messages, core.GenOptions{Temperature: 0.3, MaxTokens: 2000}, func(token string) error {
		b.WriteString(token)
		return nil
	})
	if err != nil {
		s.logger.Error("summary generation failed", "page_no", pageNo, "err", err)
		return "", nil
	}

	summary, terms := ParseResponse(b.String())
	s.logger.Debug("generated summary", "page_no", pageNo, "key_terms", len(terms))
	return summary, terms
}

// ParseResponse extracts (summary, key terms) from an LLM response. Format
// compliance is not guaranteed, so parsing degrades in order: the delimiter
// contract, then a JSON object (optionally code-fenced), then the raw
// response as summary with no key terms.
func ParseResponse(raw string) (string, []string) {
	var (
		summary string
		terms   []string
	)

	if start, end := delimited(raw, summaryStart, summaryEnd); start >= 0 {
		summary = strings.TrimSpace(raw[start:end])
	} else if parsed, ok := parseJSONResponse(raw); ok {
		summary = parsed.Summary
		terms = parsed.KeyTerms
	} else {
		summary = raw
	}

	if len(terms) == 0 {
		if start, end := delimited(raw, keyTermsStart, keyTermsEnd); start >= 0 {
			for _, line := range strings.Split(raw[start:end], "\n") {
				if line = strings.TrimSpace(line); line != "" {
					terms = append(terms, line)
				}
			}
		}
	}

	return summary, dedupeTerms(terms)
}

// delimited returns the half-open interval between a delimiter pair, or
// (-1, -1) when either delimiter is missing.
func delimited(s, start, end string) (int, int) {
	i := strings.Index(s, start)
	j := strings.Index(s, end)
	if i < 0 || j < 0 || j < i {
		return -1, -1
	}
	return i + len(start), j
}

type jsonResponse struct {
	Summary  string   `json:"summary"`
	KeyTerms []string `json:"key_terms"`
}

// parseJSONResponse strips markdown code fences and attempts to decode the
// body as a {summary, key_terms} object.
func parseJSONResponse(raw string) (jsonResponse, bool) {
	body := raw
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		body = raw[idx+len("```json"):]
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
	} else if idx := strings.Index(raw, "```"); idx >= 0 {
		body = raw[idx+len("```"):]
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
	}
	body = strings.TrimSpace(body)

	var parsed jsonResponse
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return jsonResponse{}, false
	}
	return parsed, true
}

// dedupeTerms removes case-insensitive duplicates, first occurrence wins.
func dedupeTerms(terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

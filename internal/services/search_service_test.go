package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckwise-ai/deckwise/internal/models"
)

type searchFakeStore struct {
	qaFakeStore
	qas   []models.QARecord
	pages []models.Page
}

func (s *searchFakeStore) ListQAByDocument(_ context.Context, _ string, _, _ int) ([]models.QARecord, error) {
	return s.qas, nil
}

func (s *searchFakeStore) ListPagesByDocument(_ context.Context, _ string) ([]models.Page, error) {
	return s.pages, nil
}

func TestSearchScoresAndMerges(t *testing.T) {
	store := &searchFakeStore{
		qas: []models.QARecord{
			{
				ID: "qa1", DocumentID: "doc1", PageNo: 0,
				Question: "What is mergesort?",
				Answer:   "Mergesort is a divide and conquer algorithm.",
			},
			{
				ID: "qa2", DocumentID: "doc1", PageNo: 3,
				Question: "How do hash tables work?",
				Answer:   "By hashing keys into buckets.",
			},
		},
		pages: []models.Page{
			{DocumentID: "doc1", PageNo: 1, Text: "This page explains mergesort in depth.", Summary: "Mergesort walkthrough."},
			{DocumentID: "doc1", PageNo: 2, Text: "Graphs and traversal.", Summary: "Graph basics."},
		},
	}
	svc := NewSearchService(store)

	results, err := svc.Search(context.Background(), "doc1", "mergesort", 20)
	require.NoError(t, err)

	// qa2 and the graph page never match; everything mentioning mergesort does.
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Greater(t, r.Score, 0.0)
	}

	// Phrase match in the question outranks the page hit.
	assert.Equal(t, "qa", results[0].Type)
	assert.Equal(t, "qa1", results[0].Metadata["qa_id"])
	assert.Equal(t, "page", results[1].Type)
	assert.Equal(t, 1, results[1].PageNo)
	assert.Equal(t, "Mergesort walkthrough.", results[1].Snippet)
}

func TestSearchQuestionOutranksAnswer(t *testing.T) {
	store := &searchFakeStore{
		qas: []models.QARecord{
			{ID: "in-answer", DocumentID: "doc1", Question: "Explain this.", Answer: "Entropy measures disorder."},
			{ID: "in-question", DocumentID: "doc1", Question: "What is entropy?", Answer: "A measure of disorder."},
		},
	}
	svc := NewSearchService(store)

	results, err := svc.Search(context.Background(), "doc1", "entropy", 20)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "in-question", results[0].Metadata["qa_id"])
	assert.Equal(t, "in-answer", results[1].Metadata["qa_id"])
}

func TestSearchCaseInsensitive(t *testing.T) {
	store := &searchFakeStore{
		pages: []models.Page{
			{DocumentID: "doc1", PageNo: 0, Text: "MERGESORT IN CAPITALS.", Summary: ""},
		},
	}
	svc := NewSearchService(store)

	results, err := svc.Search(context.Background(), "doc1", "MergeSort", 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "MERGESORT IN CAPITALS.", results[0].Snippet)
}

func TestSearchRespectsLimit(t *testing.T) {
	store := &searchFakeStore{}
	for i := 0; i < 10; i++ {
		store.pages = append(store.pages, models.Page{
			DocumentID: "doc1", PageNo: i, Text: "stacks everywhere", Summary: "stacks",
		})
	}
	svc := NewSearchService(store)

	results, err := svc.Search(context.Background(), "doc1", "stacks", 4)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchNoMatches(t *testing.T) {
	store := &searchFakeStore{
		pages: []models.Page{{DocumentID: "doc1", PageNo: 0, Text: "Nothing relevant here."}},
	}
	svc := NewSearchService(store)

	results, err := svc.Search(context.Background(), "doc1", "quasar", 20)
	require.NoError(t, err)
	assert.Empty(t, results)
}

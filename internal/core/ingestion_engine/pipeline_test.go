package ingestion_engine

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckwise-ai/deckwise/internal/core"
	"github.com/deckwise-ai/deckwise/internal/core/pdf"
	"github.com/deckwise-ai/deckwise/internal/models"
)

// fakeDocStore keeps documents and pages in memory, safe for the pipeline's
// concurrent page saves.
type fakeDocStore struct {
	mu      sync.Mutex
	docs    map[string]*models.Document
	pages   map[string]*models.Page
	updates map[string]any
}

func newFakeDocStore(docs ...*models.Document) *fakeDocStore {
	s := &fakeDocStore{
		docs:    make(map[string]*models.Document),
		pages:   make(map[string]*models.Page),
		updates: make(map[string]any),
	}
	for _, d := range docs {
		s.docs[d.ID] = d
	}
	return s
}

func (s *fakeDocStore) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeDocStore) UpdateDocument(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range fields {
		s.updates[k] = v
	}
	return nil
}

func (s *fakeDocStore) SavePage(_ context.Context, page *models.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *page
	s.pages[page.ID] = &copied
	return nil
}

func (s *fakeDocStore) page(id string) *models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[id]
}

func (s *fakeDocStore) CreateUser(context.Context, *models.User) error { return nil }
func (s *fakeDocStore) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, nil
}
func (s *fakeDocStore) CreateDocument(context.Context, *models.Document) error { return nil }
func (s *fakeDocStore) ListDocumentsByOwner(context.Context, string) ([]models.Document, error) {
	return nil, nil
}
func (s *fakeDocStore) DeleteDocument(context.Context, string) error { return nil }
func (s *fakeDocStore) GetPage(context.Context, string, int) (*models.Page, error) {
	return nil, nil
}
func (s *fakeDocStore) ListPagesByDocument(context.Context, string) ([]models.Page, error) {
	return nil, nil
}
func (s *fakeDocStore) UpdatePageSummary(context.Context, string, string, []string) error {
	return nil
}
func (s *fakeDocStore) DeletePagesByDocument(context.Context, string) error { return nil }
func (s *fakeDocStore) SaveQA(context.Context, *models.QARecord) error      { return nil }
func (s *fakeDocStore) ListQAByDocument(context.Context, string, int, int) ([]models.QARecord, error) {
	return nil, nil
}
func (s *fakeDocStore) DeleteQAByDocument(context.Context, string) error { return nil }
func (s *fakeDocStore) Close() error                                     { return nil }

type fakeVectors struct {
	mu      sync.Mutex
	records []core.VectorRecord
}

func (v *fakeVectors) EnsureCollection(context.Context, string, int) error { return nil }
func (v *fakeVectors) DeleteByFilter(context.Context, string, core.VectorFilter) error {
	return nil
}
func (v *fakeVectors) Query(context.Context, string, []float32, int, core.VectorFilter) ([]core.VectorMatch, error) {
	return nil, nil
}

func (v *fakeVectors) Upsert(_ context.Context, _ string, records []core.VectorRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = append(v.records, records...)
	return nil
}

func (v *fakeVectors) all() []core.VectorRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]core.VectorRecord(nil), v.records...)
}

type fakeObjects struct{}

func (fakeObjects) UploadFile(context.Context, string, string, io.Reader, string) (string, error) {
	return "", nil
}
func (fakeObjects) DeleteFile(context.Context, string, string) error { return nil }
func (fakeObjects) GetFile(context.Context, string, string) ([]byte, error) {
	return nil, nil
}
func (fakeObjects) GetObjectReader(context.Context, string, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("%PDF-1.4 fake")), nil
}

// poisonEmbedder fails any batch containing the poison marker.
type poisonEmbedder struct{}

func (poisonEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(t, "poison") {
			return nil, errors.New("embedding refused")
		}
		out[i] = make([]float32, 4)
	}
	return out, nil
}

func (poisonEmbedder) Dimension() int { return 4 }

// fakeChat streams a canned delimited response. It has no vision support, so
// the rewriter keeps the extracted content.
type fakeChat struct{}

func (fakeChat) Stream(_ context.Context, _ []core.Message, _ core.GenOptions, onToken func(string) error) error {
	return onToken("===SUMMARY_START===\nA short lesson.\n===SUMMARY_END===\n===KEY_TERMS_START===\nsorting\n===KEY_TERMS_END===")
}

func (fakeChat) CountTokens(text string) int { return len(text) / 4 }

type fakeProviders struct {
	embedder core.EmbeddingProvider
	chat     core.ChatClient
}

func (f fakeProviders) Embedder(_ context.Context, provider string) (core.EmbeddingProvider, error) {
	if f.embedder == nil {
		return nil, errors.New("no embedder configured")
	}
	return f.embedder, nil
}

func (f fakeProviders) ChatClient(context.Context, string, string) (core.ChatClient, error) {
	if f.chat == nil {
		return nil, errors.New("no chat configured")
	}
	return f.chat, nil
}

// fakeExtractor serves canned page text and tracks concurrent extraction.
type fakeExtractor struct {
	texts   []string
	tracker *concurrencyTracker
}

type concurrencyTracker struct {
	mu     sync.Mutex
	active int
	peak   int
}

func (t *concurrencyTracker) enter() {
	t.mu.Lock()
	t.active++
	if t.active > t.peak {
		t.peak = t.active
	}
	t.mu.Unlock()
}

func (t *concurrencyTracker) leave() {
	t.mu.Lock()
	t.active--
	t.mu.Unlock()
}

func (e *fakeExtractor) PageCount() int { return len(e.texts) }
func (e *fakeExtractor) Close() error   { return nil }

func (e *fakeExtractor) ExtractPageContent(pageNo int) *pdf.PageContent {
	if e.tracker != nil {
		e.tracker.enter()
		time.Sleep(5 * time.Millisecond)
		defer e.tracker.leave()
	}
	return &pdf.PageContent{Text: e.texts[pageNo]}
}

func (e *fakeExtractor) RenderPreview(_ int, outPath string, _ int) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte("png"), 0o644)
}

func testPipeline(t *testing.T, store core.DocStore, vectors core.VectorStore, texts []string, tracker *concurrencyTracker, concurrency int) *Pipeline {
	t.Helper()
	p := NewPipeline(store, vectors, fakeObjects{}, fakeProviders{embedder: poisonEmbedder{}, chat: fakeChat{}}, Options{
		Bucket:      "test-bucket",
		UploadDir:   t.TempDir(),
		PreviewDir:  t.TempDir(),
		Concurrency: concurrency,
	})
	return p.WithOpenPDF(func(string) (PageExtractor, error) {
		return &fakeExtractor{texts: texts, tracker: tracker}, nil
	})
}

func testDoc(id string) *models.Document {
	return &models.Document{
		ID:         id,
		OwnerID:    "user1",
		Title:      "Test Deck",
		StorageURL: "s3://test-bucket/users/user1/documents/" + id + "/deck.pdf",
	}
}

func TestIngestEndToEnd(t *testing.T) {
	store := newFakeDocStore(testDoc("doc1"))
	vectors := &fakeVectors{}
	texts := []string{
		"Page zero talks about sorting algorithms in detail.",
		"",
		"Page two covers binary search trees and their balance.",
	}
	p := testPipeline(t, store, vectors, texts, nil, 2)

	err := p.Ingest(context.Background(), "doc1", "openai_small", "gpt", "")
	require.NoError(t, err)

	// Document bookkeeping.
	assert.Equal(t, 3, store.updates["page_count"])
	assert.Equal(t, true, store.updates["ingestion_completed"])
	assert.Equal(t, "openai_small", store.updates["embedding_provider"])

	// Every page gets a record, including the blank one.
	for pageNo := 0; pageNo < 3; pageNo++ {
		page := store.page(models.PageID("doc1", pageNo))
		require.NotNil(t, page, "page %d missing", pageNo)
		assert.True(t, page.Ready)
		assert.Empty(t, page.Error)
		assert.NotEmpty(t, page.PreviewImagePath)
	}

	// Non-blank pages are summarized; the blank page skips the LLM entirely.
	assert.Equal(t, "A short lesson.", store.page(models.PageID("doc1", 0)).Summary)
	assert.Empty(t, store.page(models.PageID("doc1", 1)).Summary)

	// The blank page contributes no vectors; the others one chunk each.
	records := vectors.all()
	require.Len(t, records, 2)
	ids := map[string]bool{}
	for _, r := range records {
		ids[r.ID] = true
		assert.Equal(t, "doc1", r.Payload.DocID)
	}
	assert.True(t, ids["doc1_0_0"])
	assert.True(t, ids["doc1_2_0"])
}

func TestIngestPageFailureIsIsolated(t *testing.T) {
	store := newFakeDocStore(testDoc("doc1"))
	vectors := &fakeVectors{}
	texts := []string{
		"A perfectly normal first page about databases.",
		"This page contains poison and its embedding will fail.",
		"A perfectly normal third page about indexes.",
	}
	p := testPipeline(t, store, vectors, texts, nil, 2)

	err := p.Ingest(context.Background(), "doc1", "openai_small", "gpt", "")
	require.NoError(t, err)

	bad := store.page(models.PageID("doc1", 1))
	require.NotNil(t, bad)
	assert.False(t, bad.Ready)
	assert.Contains(t, bad.Error, "index chunks")

	for _, pageNo := range []int{0, 2} {
		page := store.page(models.PageID("doc1", pageNo))
		require.NotNil(t, page)
		assert.True(t, page.Ready, "page %d should not be affected", pageNo)
	}

	// The failed sibling never blocks document completion.
	assert.Equal(t, true, store.updates["ingestion_completed"])
}

func TestIngestRespectsConcurrencyBound(t *testing.T) {
	texts := make([]string, 12)
	for i := range texts {
		texts[i] = "Some page content that is long enough to chunk properly."
	}
	store := newFakeDocStore(testDoc("doc1"))
	tracker := &concurrencyTracker{}
	p := testPipeline(t, store, &fakeVectors{}, texts, tracker, 3)

	err := p.Ingest(context.Background(), "doc1", "openai_small", "gpt", "")
	require.NoError(t, err)

	assert.LessOrEqual(t, tracker.peak, 3)
	assert.Greater(t, tracker.peak, 0)
}

func TestIngestMissingDocumentFails(t *testing.T) {
	store := newFakeDocStore()
	p := testPipeline(t, store, &fakeVectors{}, nil, nil, 1)

	err := p.Ingest(context.Background(), "ghost", "openai_small", "gpt", "")
	require.Error(t, err)

	assert.Equal(t, true, store.updates["ingestion_failed"])
	assert.Contains(t, store.updates["ingestion_error"], "not found")
}

func TestIngestFailsWhenChatProviderUnavailable(t *testing.T) {
	store := newFakeDocStore(testDoc("doc1"))
	p := NewPipeline(store, &fakeVectors{}, fakeObjects{}, fakeProviders{embedder: poisonEmbedder{}}, Options{
		Bucket:      "test-bucket",
		UploadDir:   t.TempDir(),
		PreviewDir:  t.TempDir(),
		Concurrency: 1,
	}).WithOpenPDF(func(string) (PageExtractor, error) {
		return &fakeExtractor{texts: []string{"Some page content."}}, nil
	})

	err := p.Ingest(context.Background(), "doc1", "openai_small", "claude", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat provider")

	// The document is failed before any page work, never completed.
	assert.Equal(t, true, store.updates["ingestion_failed"])
	assert.Contains(t, store.updates["ingestion_error"], "chat provider")
	assert.Nil(t, store.updates["ingestion_completed"])
	assert.Empty(t, store.pages)
}

func TestStorageKey(t *testing.T) {
	key, err := storageKey("s3://bucket/users/u/doc.pdf", "bucket")
	require.NoError(t, err)
	assert.Equal(t, "users/u/doc.pdf", key)

	key, err = storageKey("https://bucket.s3.us-east-2.amazonaws.com/users/u/doc.pdf", "bucket")
	require.NoError(t, err)
	assert.Equal(t, "users/u/doc.pdf", key)

	_, err = storageKey("s3://other/users/u/doc.pdf", "bucket")
	assert.Error(t, err)

	_, err = storageKey("ftp://bucket/doc.pdf", "bucket")
	assert.Error(t, err)
}

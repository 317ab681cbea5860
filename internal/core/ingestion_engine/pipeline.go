package ingestion_engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/deckwise-ai/deckwise/internal/core"
	"github.com/deckwise-ai/deckwise/internal/core/chunker"
	"github.com/deckwise-ai/deckwise/internal/core/llm"
	"github.com/deckwise-ai/deckwise/internal/core/pdf"
	"github.com/deckwise-ai/deckwise/internal/core/summary"
	"github.com/deckwise-ai/deckwise/internal/core/vision"
	"github.com/deckwise-ai/deckwise/internal/models"
)

// PageExtractor is the per-document PDF handle the pipeline works through.
// *pdf.Extractor is the real implementation; tests substitute fakes.
type PageExtractor interface {
	PageCount() int
	ExtractPageContent(pageNo int) *pdf.PageContent
	RenderPreview(pageNo int, outPath string, width int) error
	Close() error
}

// OpenPDF opens one extractor over the local PDF file. The pipeline calls it
// once up front for the page count and once per page task, because the
// underlying MuPDF handle cannot be shared across goroutines.
type OpenPDF func(path string) (PageExtractor, error)

// DefaultOpenPDF opens a real MuPDF-backed extractor.
func DefaultOpenPDF(path string) (PageExtractor, error) {
	return pdf.Open(path)
}

// ProviderFactory selects AI providers by name. *llm.Factory satisfies it.
type ProviderFactory interface {
	ChatClient(ctx context.Context, provider, model string) (core.ChatClient, error)
	Embedder(ctx context.Context, provider string) (core.EmbeddingProvider, error)
}

// Options carries the pipeline's tunables.
type Options struct {
	Bucket       string
	UploadDir    string
	PreviewDir   string
	PreviewWidth int
	Concurrency  int
}

// Pipeline ingests one uploaded PDF end to end: download, page fan-out,
// extraction, vision rewrite, chunking, embedding, indexing and summaries.
type Pipeline struct {
	store     core.DocStore
	vectors   core.VectorStore
	objects   core.ObjectClient
	providers ProviderFactory
	openPDF   OpenPDF
	chunker   *chunker.Chunker
	opts      Options
	logger    *slog.Logger
}

func NewPipeline(store core.DocStore, vectors core.VectorStore, objects core.ObjectClient, providers ProviderFactory, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.PreviewWidth <= 0 {
		opts.PreviewWidth = 1200
	}
	return &Pipeline{
		store:     store,
		vectors:   vectors,
		objects:   objects,
		providers: providers,
		openPDF:   DefaultOpenPDF,
		chunker:   chunker.Default(),
		opts:      opts,
		logger:    slog.Default().With("component", "ingestion"),
	}
}

// WithOpenPDF overrides how the pipeline opens PDF files. Used by tests.
func (p *Pipeline) WithOpenPDF(open OpenPDF) *Pipeline {
	p.openPDF = open
	return p
}

// Ingest runs the full ingestion for a document. Errors before the page
// fan-out are fatal and mark the document failed; errors inside a page task
// mark only that page and never abort its siblings.
func (p *Pipeline) Ingest(ctx context.Context, docID, embProvider, llmProvider, llmModel string) error {
	logger := p.logger.With("doc_id", docID)
	start := time.Now()

	doc, err := p.store.GetDocumentByID(ctx, docID)
	if err != nil {
		return p.fail(ctx, docID, fmt.Errorf("load document: %w", err))
	}
	if doc == nil {
		return p.fail(ctx, docID, fmt.Errorf("document not found: %s", docID))
	}

	localPath, err := p.download(ctx, doc)
	if err != nil {
		return p.fail(ctx, docID, fmt.Errorf("download pdf: %w", err))
	}
	defer os.Remove(localPath)

	probe, err := p.openPDF(localPath)
	if err != nil {
		return p.fail(ctx, docID, fmt.Errorf("open pdf: %w", err))
	}
	pageCount := probe.PageCount()
	probe.Close()

	embedder, err := p.providers.Embedder(ctx, embProvider)
	if err != nil {
		return p.fail(ctx, docID, fmt.Errorf("embedding provider %s: %w", embProvider, err))
	}

	collection := llm.CollectionForProvider(embProvider)
	if err := p.vectors.EnsureCollection(ctx, collection, embedder.Dimension()); err != nil {
		return p.fail(ctx, docID, fmt.Errorf("ensure collection: %w", err))
	}

	// Re-ingestion replaces the previous index for this document.
	if err := p.vectors.DeleteByFilter(ctx, collection, core.VectorFilter{DocID: docID}); err != nil {
		return p.fail(ctx, docID, fmt.Errorf("clear previous vectors: %w", err))
	}

	if err := p.store.UpdateDocument(ctx, docID, map[string]any{"page_count": pageCount}); err != nil {
		return p.fail(ctx, docID, fmt.Errorf("record page count: %w", err))
	}

	// Summaries and vision rewriting need the chat provider, so an
	// unavailable one is fatal before any page work starts.
	chat, err := p.providers.ChatClient(ctx, llmProvider, llmModel)
	if err != nil {
		return p.fail(ctx, docID, fmt.Errorf("chat provider %s: %w", llmProvider, err))
	}

	logger.Info("starting page fan-out", "pages", pageCount, "concurrency", p.opts.Concurrency)

	sem := semaphore.NewWeighted(int64(p.opts.Concurrency))
	var wg sync.WaitGroup

	for pageNo := 0; pageNo < pageCount; pageNo++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			return p.fail(ctx, docID, fmt.Errorf("acquire worker slot: %w", err))
		}
		wg.Add(1)
		go func(pageNo int) {
			defer wg.Done()
			defer sem.Release(1)
			p.processPage(ctx, localPath, docID, collection, pageNo, embedder, chat)
		}(pageNo)
	}
	wg.Wait()

	now := time.Now().UTC()
	if err := p.store.UpdateDocument(ctx, docID, map[string]any{
		"ingestion_completed":    true,
		"ingestion_completed_at": now,
		"embedding_provider":     embProvider,
	}); err != nil {
		return p.fail(ctx, docID, fmt.Errorf("mark completed: %w", err))
	}

	logger.Info("ingestion completed", "pages", pageCount, "took", time.Since(start))
	return nil
}

// processPage runs every per-page step, isolating failures to this page. Any
// error still produces a page record, with Ready=false and Error set.
func (p *Pipeline) processPage(ctx context.Context, localPath, docID, collection string, pageNo int, embedder core.EmbeddingProvider, chat core.ChatClient) {
	logger := p.logger.With("doc_id", docID, "page_no", pageNo)

	page := &models.Page{
		ID:         models.PageID(docID, pageNo),
		DocumentID: docID,
		PageNo:     pageNo,
	}

	extractor, err := p.openPDF(localPath)
	if err != nil {
		p.savePageError(ctx, page, fmt.Errorf("open pdf: %w", err))
		return
	}
	defer extractor.Close()

	content := extractor.ExtractPageContent(pageNo)

	previewPath := filepath.Join(p.opts.PreviewDir, docID, fmt.Sprintf("page_%d.png", pageNo))
	var raster []byte
	if err := extractor.RenderPreview(pageNo, previewPath, p.opts.PreviewWidth); err != nil {
		logger.Warn("preview render failed", "err", err)
		previewPath = ""
	} else {
		page.PreviewImagePath = previewPath
		if data, err := os.ReadFile(previewPath); err == nil {
			raster = data
		}
	}

	text := vision.NewRewriter(chat).Rewrite(ctx, raster, pdf.CombineContent(content))
	page.Text = text

	if strings.TrimSpace(text) == "" {
		logger.Warn("page has no content, skipping chunks and summary")
		page.Ready = true
		p.savePage(ctx, page)
		return
	}

	chunks := p.chunker.Chunk(text, pageNo)
	if len(chunks) > 0 {
		if err := p.indexChunks(ctx, docID, collection, chunks, embedder); err != nil {
			p.savePageError(ctx, page, fmt.Errorf("index chunks: %w", err))
			return
		}
	}

	page.Summary, page.KeyTerms = summary.NewSummarizer(chat).Summarize(ctx, text, pageNo)

	page.Ready = true
	p.savePage(ctx, page)
	logger.Debug("page processed", "chunks", len(chunks))
}

// indexChunks embeds the page's chunks as one batch and upserts them under
// deterministic IDs, so re-runs overwrite instead of duplicating.
func (p *Pipeline) indexChunks(ctx context.Context, docID, collection string, chunks []chunker.Chunk, embedder core.EmbeddingProvider) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vecs, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vecs), len(chunks))
	}

	records := make([]core.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = core.VectorRecord{
			ID:     fmt.Sprintf("%s_%d_%d", docID, c.PageNo, c.ChunkIndex),
			Vector: vecs[i],
			Payload: core.ChunkPayload{
				DocID:      docID,
				PageNo:     c.PageNo,
				ChunkIndex: c.ChunkIndex,
				Text:       c.Text,
				TokenCount: c.TokenCount,
			},
		}
	}
	return p.vectors.Upsert(ctx, collection, records)
}

func (p *Pipeline) savePage(ctx context.Context, page *models.Page) {
	if err := p.store.SavePage(ctx, page); err != nil {
		p.logger.Error("save page failed", "page_id", page.ID, "err", err)
	}
}

func (p *Pipeline) savePageError(ctx context.Context, page *models.Page, pageErr error) {
	p.logger.Error("page processing failed", "page_id", page.ID, "err", pageErr)
	page.Ready = false
	page.Error = pageErr.Error()
	p.savePage(ctx, page)
}

// download copies the document's PDF from object storage to the upload dir.
func (p *Pipeline) download(ctx context.Context, doc *models.Document) (string, error) {
	key, err := storageKey(doc.StorageURL, p.opts.Bucket)
	if err != nil {
		return "", err
	}

	reader, err := p.objects.GetObjectReader(ctx, p.opts.Bucket, key)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", key, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(p.opts.UploadDir, 0o755); err != nil {
		return "", err
	}
	localPath := filepath.Join(p.opts.UploadDir, doc.ID+".pdf")
	f, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("copy %s: %w", key, err)
	}
	return localPath, nil
}

// storageKey extracts the object key from a stored URL. Both s3://bucket/key
// and virtual-hosted https URLs are accepted.
func storageKey(storageURL, bucket string) (string, error) {
	u, err := url.Parse(storageURL)
	if err != nil {
		return "", fmt.Errorf("parse storage url: %w", err)
	}

	switch u.Scheme {
	case "s3":
		if u.Host != bucket {
			return "", fmt.Errorf("storage url bucket %q does not match %q", u.Host, bucket)
		}
		return strings.TrimPrefix(u.Path, "/"), nil
	case "http", "https":
		return strings.TrimPrefix(u.Path, "/"), nil
	default:
		return "", fmt.Errorf("unsupported storage url %q", storageURL)
	}
}

// fail marks the document failed and returns the original error.
func (p *Pipeline) fail(ctx context.Context, docID string, err error) error {
	p.logger.Error("ingestion failed", "doc_id", docID, "err", err)
	if updateErr := p.store.UpdateDocument(ctx, docID, map[string]any{
		"ingestion_failed": true,
		"ingestion_error":  err.Error(),
	}); updateErr != nil {
		p.logger.Error("mark document failed", "doc_id", docID, "err", updateErr)
	}
	return err
}

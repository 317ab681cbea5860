package pdf

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PageImage describes one embedded raster image on a page. Only dimensions
// and source format are recorded; the pixel content reaches the LLM through
// the rendered page raster, not here.
type PageImage struct {
	Index  int
	Width  int
	Height int
	Format string
}

// Table is one extracted table, as ordered rows of cell text.
type Table struct {
	Rows [][]string
}

// Text renders the table as a pipe-delimited block, one row per line.
func (t Table) Text() string {
	lines := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}

// PageContent is everything extracted from a single page.
type PageContent struct {
	Text   string
	Tables []Table
	Images []PageImage
}

// Extractor reads one PDF document. The underlying MuPDF handle is not safe
// for concurrent multi-page access, so callers processing pages in parallel
// must Open a fresh Extractor per task.
type Extractor struct {
	path   string
	doc    *fitz.Document
	logger *slog.Logger
}

// Open opens the PDF at path. Open failure is fatal for the whole document;
// everything downstream isolates errors per sub-artifact instead.
func Open(path string) (*Extractor, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &Extractor{
		path:   path,
		doc:    doc,
		logger: slog.Default().With("component", "pdf", "file", filepath.Base(path)),
	}, nil
}

func (e *Extractor) Close() error {
	if e.doc != nil {
		return e.doc.Close()
	}
	return nil
}

// PageCount returns the number of pages in the document.
func (e *Extractor) PageCount() int {
	return e.doc.NumPage()
}

// ExtractPageText extracts plain text from a 0-indexed page. If MuPDF fails
// or returns nothing, the secondary extractor has a try before we give up
// and return an empty string.
func (e *Extractor) ExtractPageText(pageNo int) string {
	text, err := e.doc.Text(pageNo)
	if err != nil {
		e.logger.Warn("mupdf text extraction failed, trying fallback", "page_no", pageNo, "err", err)
		return fallbackPageText(e.path, pageNo)
	}
	if strings.TrimSpace(text) == "" {
		e.logger.Warn("mupdf returned empty text, trying fallback", "page_no", pageNo)
		return fallbackPageText(e.path, pageNo)
	}
	return strings.TrimSpace(text)
}

// ExtractPageContent extracts text, tables and images from a page. A failure
// in any one sub-artifact never aborts the others.
func (e *Extractor) ExtractPageContent(pageNo int) *PageContent {
	content := &PageContent{
		Text:   e.ExtractPageText(pageNo),
		Tables: e.ExtractPageTables(pageNo),
		Images: e.ExtractPageImages(pageNo),
	}
	e.logger.Debug("extracted page content",
		"page_no", pageNo,
		"chars", len(content.Text),
		"tables", len(content.Tables),
		"images", len(content.Images))
	return content
}

// RenderPreview rasterizes a page to a PNG at the target pixel width,
// preserving aspect ratio via a uniform scale from the page's native width.
// Parent directories are created as needed.
func (e *Extractor) RenderPreview(pageNo int, outPath string, width int) error {
	bound, err := e.doc.Bound(pageNo)
	if err != nil {
		return fmt.Errorf("page %d bounds: %w", pageNo, err)
	}
	nativeWidth := bound.Dx()
	if nativeWidth <= 0 {
		return fmt.Errorf("page %d has no width", pageNo)
	}

	// Page bounds are in points (72 per inch); scale DPI so the rendered
	// raster lands on the requested pixel width.
	dpi := 72.0 * float64(width) / float64(nativeWidth)
	img, err := e.doc.ImageDPI(pageNo, dpi)
	if err != nil {
		return fmt.Errorf("render page %d: %w", pageNo, err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create preview dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create preview file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

// CombineContent flattens extracted page content into the single text blob
// handed to the LLM. Image bytes are only referenced here; the page raster
// itself goes to the vision rewriter separately.
func CombineContent(content *PageContent) string {
	var parts []string

	if content.Text != "" {
		parts = append(parts, "TEXT CONTENT:", content.Text, "")
	}

	if len(content.Tables) > 0 {
		parts = append(parts, "TABLES:")
		for idx, table := range content.Tables {
			parts = append(parts, fmt.Sprintf("Table %d:", idx+1), table.Text(), "")
		}
	}

	if len(content.Images) > 0 {
		parts = append(parts, fmt.Sprintf("IMAGES: %d image(s) found on this page", len(content.Images)))
		parts = append(parts, "(Image content will be extracted and described)")
	}

	return strings.Join(parts, "\n")
}

package pdf

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
)

// The secondary extraction path walks the PDF object tree directly. It backs
// up MuPDF for plain text, and is the only source for embedded-image metadata
// and table detection, which MuPDF does not expose.

// fallbackPageText extracts plain text for a 0-indexed page via the secondary
// library. Returns "" on any failure; the caller treats empty as "no text".
func fallbackPageText(path string, pageNo int) string {
	f, reader, err := ledongthuc.Open(path)
	if err != nil {
		slog.Default().Warn("fallback pdf open failed", "file", path, "err", err)
		return ""
	}
	defer f.Close()

	if pageNo < 0 || pageNo >= reader.NumPage() {
		return ""
	}
	page := reader.Page(pageNo + 1)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		slog.Default().Warn("fallback text extraction failed", "page_no", pageNo, "err", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// ExtractPageImages enumerates embedded raster images on a 0-indexed page
// with their pixel dimensions and source format. Failures yield an empty
// list, never an error.
func (e *Extractor) ExtractPageImages(pageNo int) []PageImage {
	f, reader, err := ledongthuc.Open(e.path)
	if err != nil {
		e.logger.Warn("image enumeration open failed", "err", err)
		return nil
	}
	defer f.Close()

	if pageNo < 0 || pageNo >= reader.NumPage() {
		return nil
	}
	page := reader.Page(pageNo + 1)
	if page.V.IsNull() {
		return nil
	}

	xobjects := page.V.Key("Resources").Key("XObject")
	if xobjects.Kind() != ledongthuc.Dict {
		return nil
	}

	var images []PageImage
	names := xobjects.Keys()
	sort.Strings(names)
	for _, name := range names {
		obj := xobjects.Key(name)
		if obj.Key("Subtype").Name() != "Image" {
			continue
		}
		images = append(images, PageImage{
			Index:  len(images),
			Width:  int(obj.Key("Width").Int64()),
			Height: int(obj.Key("Height").Int64()),
			Format: imageFormat(obj.Key("Filter")),
		})
	}
	return images
}

// imageFormat maps a stream's compression filter to a familiar format name.
func imageFormat(filter ledongthuc.Value) string {
	name := filter.Name()
	if filter.Kind() == ledongthuc.Array && filter.Len() > 0 {
		name = filter.Index(filter.Len() - 1).Name()
	}
	switch name {
	case "DCTDecode":
		return "jpeg"
	case "JPXDecode":
		return "jp2"
	case "CCITTFaxDecode":
		return "tiff"
	case "FlateDecode":
		return "png"
	default:
		return "raw"
	}
}

// ExtractPageTables detects tables on a 0-indexed page from positioned text:
// words are grouped into baseline rows, rows split into cells at horizontal
// gaps, and runs of consecutive multi-cell rows with a matching column count
// become tables. Failures yield an empty list.
func (e *Extractor) ExtractPageTables(pageNo int) []Table {
	f, reader, err := ledongthuc.Open(e.path)
	if err != nil {
		e.logger.Warn("table extraction open failed", "err", err)
		return nil
	}
	defer f.Close()

	if pageNo < 0 || pageNo >= reader.NumPage() {
		return nil
	}
	page := reader.Page(pageNo + 1)
	if page.V.IsNull() {
		return nil
	}

	content := page.Content()
	if len(content.Text) == 0 {
		return nil
	}
	return detectTables(content.Text)
}

const (
	// Baseline tolerance for grouping words into the same visual row.
	rowTolerance = 2.0
	// Minimum horizontal gap (points) that separates two cells.
	cellGap = 12.0
	// A table needs at least this many consecutive aligned rows.
	minTableRows = 2
)

type textRow struct {
	y     float64
	words []ledongthuc.Text
}

func detectTables(texts []ledongthuc.Text) []Table {
	rows := groupRows(texts)

	var (
		tables  []Table
		pending [][]string
		columns int
	)
	flush := func() {
		if len(pending) >= minTableRows {
			tables = append(tables, Table{Rows: pending})
		}
		pending = nil
		columns = 0
	}

	for _, row := range rows {
		cells := splitCells(row.words)
		if len(cells) < 2 {
			flush()
			continue
		}
		if columns != 0 && len(cells) != columns {
			flush()
		}
		columns = len(cells)
		pending = append(pending, cells)
	}
	flush()
	return tables
}

// groupRows buckets words by baseline, top of page first.
func groupRows(texts []ledongthuc.Text) []textRow {
	var rows []textRow
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		placed := false
		for i := range rows {
			if math.Abs(rows[i].y-t.Y) <= rowTolerance {
				rows[i].words = append(rows[i].words, t)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, textRow{y: t.Y, words: []ledongthuc.Text{t}})
		}
	}
	// PDF Y grows upward.
	sort.Slice(rows, func(i, j int) bool { return rows[i].y > rows[j].y })
	for i := range rows {
		sort.Slice(rows[i].words, func(a, b int) bool { return rows[i].words[a].X < rows[i].words[b].X })
	}
	return rows
}

// splitCells joins adjacent words and starts a new cell at each horizontal gap.
func splitCells(words []ledongthuc.Text) []string {
	var (
		cells []string
		cell  strings.Builder
		endX  float64
	)
	for i, w := range words {
		if i > 0 && w.X-endX > cellGap {
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		}
		cell.WriteString(w.S)
		endX = w.X + w.W
	}
	if cell.Len() > 0 {
		cells = append(cells, strings.TrimSpace(cell.String()))
	}
	return cells
}

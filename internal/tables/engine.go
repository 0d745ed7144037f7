package tables

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"pdfextract/internal/logger"
	"pdfextract/internal/pdfx"
	"pdfextract/pkg/models"
)

const (
	// xBucket is the horizontal distance (points) within which word left
	// edges count as the same column.
	xBucket = 5.0

	// spacingTolerance is the allowed relative deviation of column gaps
	// from their mean in the strict pass.
	spacingTolerance = 0.3

	// minRegionRows is the minimum number of consecutive multi-phrase rows
	// that form a table candidate.
	minRegionRows = 2

	// phraseGapFactor distinguishes the single space inside a cell from the
	// gap between columns: words closer than this fraction of the glyph
	// height merge into one cell phrase.
	phraseGapFactor = 0.55
)

// passConfig tunes one detection pass over a candidate region.
type passConfig struct {
	minColumns   int     // columns required for a grid
	minRowShare  float64 // share of region rows a column must align with
	checkSpacing bool    // require near-uniform column gaps
}

// The strict pass stands in for ruled-table detection: many aligned, evenly
// spaced columns. The relaxed pass recovers loose text tables when the strict
// pass finds nothing on a page.
var (
	strictPass  = passConfig{minColumns: 3, minRowShare: 0.6, checkSpacing: true}
	relaxedPass = passConfig{minColumns: 2, minRowShare: 0.5, checkSpacing: false}
)

// LocalEngine rebuilds tables from word geometry, no network involved.
type LocalEngine struct {
	log zerolog.Logger
}

// NewLocalEngine creates the word-geometry engine.
func NewLocalEngine() Extractor {
	return &LocalEngine{log: logger.WithComponent("tables-local")}
}

// Extract implements Extractor.
func (e *LocalEngine) Extract(ctx context.Context, doc *pdfx.Document) ([]models.Table, error) {
	const op = "Extract"

	tables := []models.Table{}
	for page := 1; page <= doc.PageCount(); page++ {
		grids, err := e.pageGrids(doc, page)
		if err != nil {
			return nil, WrapExtractionError(op, err, fmt.Sprintf("page %d", page))
		}
		for j, grid := range grids {
			tables = append(tables, basicTable(grid, page, j))
		}
	}

	e.log.Debug().Int("table_count", len(tables)).Msg("Local table extraction completed")
	return tables, nil
}

// ExtractEnhanced implements Extractor.
func (e *LocalEngine) ExtractEnhanced(ctx context.Context, doc *pdfx.Document, opts EnhancedOptions) ([]models.EnhancedTable, error) {
	const op = "ExtractEnhanced"

	tables := []models.EnhancedTable{}
	for page := 1; page <= doc.PageCount(); page++ {
		grids, err := e.pageGrids(doc, page)
		if err != nil {
			return nil, WrapExtractionError(op, err, fmt.Sprintf("page %d", page))
		}
		if len(grids) == 0 {
			continue
		}

		var captions []string
		if opts.DetectCaptions {
			text, err := doc.Text(page)
			if err != nil {
				return nil, WrapExtractionError(op, err, fmt.Sprintf("page %d", page))
			}
			captions = findTableCaptions(text)
		}

		for j, grid := range grids {
			tables = append(tables, enhanceGrid(grid, page, j, captions))
		}
	}

	e.log.Debug().Int("table_count", len(tables)).Msg("Enhanced table extraction completed")
	return tables, nil
}

// Close implements Extractor. The local engine holds no resources.
func (e *LocalEngine) Close() error { return nil }

// pageGrids runs the strict pass and falls back to the relaxed pass when a
// page yields nothing.
func (e *LocalEngine) pageGrids(doc *pdfx.Document, page int) ([][][]string, error) {
	rows, err := doc.Rows(page)
	if err != nil {
		return nil, err
	}

	// Prose collapses into single phrases here, so only genuinely columnar
	// rows survive as candidates.
	phraseRows := make([][]pdfx.Word, len(rows))
	for i, row := range rows {
		phraseRows[i] = mergePhrases(row)
	}

	grids := detectGrids(phraseRows, strictPass)
	if len(grids) == 0 {
		grids = detectGrids(phraseRows, relaxedPass)
	}
	return grids, nil
}

// mergePhrases joins words separated by no more than a single space into one
// phrase. Input words are in left-to-right order.
func mergePhrases(row []pdfx.Word) []pdfx.Word {
	if len(row) == 0 {
		return row
	}

	merged := make([]pdfx.Word, 0, len(row))
	cur := row[0]
	for _, w := range row[1:] {
		if w.X0-cur.X1 <= phraseGapFactor*cur.Height() {
			cur.Text += " " + w.Text
			if w.X1 > cur.X1 {
				cur.X1 = w.X1
			}
			if w.Top < cur.Top {
				cur.Top = w.Top
			}
			if w.Bottom > cur.Bottom {
				cur.Bottom = w.Bottom
			}
			continue
		}
		merged = append(merged, cur)
		cur = w
	}
	return append(merged, cur)
}

// basicTable splits a grid into header row and data rows without cleaning.
func basicTable(grid [][]string, page, index int) models.Table {
	t := models.Table{
		Page:       page,
		TableIndex: index,
		Headers:    grid[0],
		Rows:       [][]string{},
		Raw:        grid,
	}
	if len(grid) > 1 {
		t.Rows = grid[1:]
	}
	return t
}

// enhanceGrid normalizes cell whitespace, promotes the first non-blank row to
// headers, and pairs the page's caption with the same table index.
func enhanceGrid(grid [][]string, page, index int, captions []string) models.EnhancedTable {
	cleaned := make([][]string, len(grid))
	for i, row := range grid {
		cleanedRow := make([]string, len(row))
		for j, cell := range row {
			cleanedRow[j] = strings.Join(strings.Fields(cell), " ")
		}
		cleaned[i] = cleanedRow
	}

	var headers []string
	dataRows := [][]string{}
	for _, row := range cleaned {
		if !anyNonBlank(row) {
			continue
		}
		if headers == nil {
			headers = row
			continue
		}
		dataRows = append(dataRows, row)
	}
	if headers == nil {
		headers = []string{}
	}

	caption := ""
	if index < len(captions) {
		caption = captions[index]
	}

	return models.EnhancedTable{
		Page:        page,
		TableIndex:  index,
		Caption:     caption,
		Headers:     headers,
		Rows:        dataRows,
		Raw:         cleaned,
		ColumnCount: len(headers),
		RowCount:    len(cleaned),
	}
}

func anyNonBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}

// detectGrids reconstructs one grid per qualifying region of the page.
func detectGrids(rows [][]pdfx.Word, pass passConfig) [][][]string {
	var grids [][][]string
	for _, region := range tableRegions(rows) {
		if grid := regionGrid(region, pass); grid != nil {
			grids = append(grids, grid)
		}
	}
	return grids
}

// tableRegions returns maximal runs of consecutive rows carrying at least
// two phrases each. Single-phrase rows (prose lines, headings) break a run.
func tableRegions(rows [][]pdfx.Word) [][][]pdfx.Word {
	var regions [][][]pdfx.Word
	var run [][]pdfx.Word
	for _, row := range rows {
		if len(row) >= 2 {
			run = append(run, row)
			continue
		}
		if len(run) >= minRegionRows {
			regions = append(regions, run)
		}
		run = nil
	}
	if len(run) >= minRegionRows {
		regions = append(regions, run)
	}
	return regions
}

// regionGrid maps a region's phrases onto the columns aligned across its
// rows. Phrases landing too far from every column are dropped, and rows left
// without a single assigned phrase are omitted. Returns nil when the region
// does not qualify under the pass.
func regionGrid(region [][]pdfx.Word, pass passConfig) [][]string {
	cols := columnStarts(region, pass)
	if len(cols) < pass.minColumns {
		return nil
	}
	if pass.checkSpacing && !hasConsistentSpacing(cols) {
		return nil
	}

	var grid [][]string
	for _, row := range region {
		cells := make([]string, len(cols))
		assigned := false
		for _, w := range row {
			j, ok := nearestColumn(cols, w.X0)
			if !ok {
				continue
			}
			assigned = true
			if cells[j] == "" {
				cells[j] = w.Text
			} else {
				cells[j] += " " + w.Text
			}
		}
		if assigned {
			grid = append(grid, cells)
		}
	}
	if len(grid) < minRegionRows {
		return nil
	}
	return grid
}

// columnStarts clusters phrase left edges across the region and keeps
// clusters aligned with enough rows, left to right.
func columnStarts(region [][]pdfx.Word, pass passConfig) []float64 {
	type cluster struct {
		x    float64
		rows map[int]struct{}
	}

	var clusters []*cluster
	for i, row := range region {
		for _, w := range row {
			var c *cluster
			for _, cand := range clusters {
				if math.Abs(w.X0-cand.x) <= xBucket {
					c = cand
					break
				}
			}
			if c == nil {
				c = &cluster{x: w.X0, rows: make(map[int]struct{})}
				clusters = append(clusters, c)
			}
			c.rows[i] = struct{}{}
		}
	}

	minHits := int(math.Ceil(pass.minRowShare * float64(len(region))))
	if minHits < minRegionRows {
		minHits = minRegionRows
	}

	var cols []float64
	for _, c := range clusters {
		if len(c.rows) >= minHits {
			cols = append(cols, c.x)
		}
	}
	sort.Float64s(cols)
	return cols
}

// hasConsistentSpacing reports whether the gaps between consecutive columns
// stay within spacingTolerance of their mean.
func hasConsistentSpacing(cols []float64) bool {
	if len(cols) < 3 {
		return false
	}

	gaps := make([]float64, len(cols)-1)
	var sum float64
	for i := 1; i < len(cols); i++ {
		gaps[i-1] = cols[i] - cols[i-1]
		sum += gaps[i-1]
	}
	mean := sum / float64(len(gaps))
	if mean <= 0 {
		return false
	}

	for _, gap := range gaps {
		if math.Abs(gap-mean) > spacingTolerance*mean {
			return false
		}
	}
	return true
}

// nearestColumn locates the closest column within twice the alignment
// bucket, reporting false for phrases that belong to no column.
func nearestColumn(cols []float64, x float64) (int, bool) {
	best := 0
	bestDist := math.Abs(x - cols[0])
	for j := 1; j < len(cols); j++ {
		if d := math.Abs(x - cols[j]); d < bestDist {
			best = j
			bestDist = d
		}
	}
	if bestDist >= xBucket*2 {
		return 0, false
	}
	return best, true
}

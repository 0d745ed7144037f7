package pdfx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// rowTolerance is the Y distance (points) within which character
	// fragments belong to the same text row.
	rowTolerance = 3.0

	// wordGapRatio is the horizontal gap that ends a word, as a fraction
	// of the font size. Spaces rendered as glyph advances are wider than
	// this at common font sizes.
	wordGapRatio = 0.3

	// wordGapFallback is the gap limit (points) for fragments that carry
	// no font size.
	wordGapFallback = 3.0

	// fallbackGlyphHeight stands in for the font size when the content
	// stream does not carry one.
	fallbackGlyphHeight = 10.0
)

// Word is a horizontal run of characters on one text row. Coordinates are
// PDF points with a top-left origin.
type Word struct {
	Text   string
	X0     float64 // left edge
	Top    float64 // top edge
	X1     float64 // right edge
	Bottom float64 // bottom edge
}

// Width returns the horizontal extent of the word.
func (w Word) Width() float64 { return w.X1 - w.X0 }

// Height returns the vertical extent of the word.
func (w Word) Height() float64 { return w.Bottom - w.Top }

// Words returns the page's words in reading order (top-to-bottom,
// left-to-right). A page with a null value dictionary yields no words.
func (d *Document) Words(page int) ([]Word, error) {
	rows, err := d.Rows(page)
	if err != nil {
		return nil, err
	}
	var words []Word
	for _, row := range rows {
		words = append(words, row...)
	}
	return words, nil
}

// Rows returns the page's words grouped into text rows, rows ordered
// top-to-bottom and words within a row left-to-right.
func (d *Document) Rows(page int) (rows [][]Word, err error) {
	const op = "Rows"
	defer recoverTo(&err, op)

	if d.reader == nil {
		return nil, NewDocumentError(op, ErrDocumentClosed, "")
	}
	if page < 1 || page > d.reader.NumPage() {
		return nil, NewDocumentError(op, ErrPageOutOfRange, fmt.Sprintf("page %d of %d", page, d.reader.NumPage()))
	}

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return nil, nil
	}

	texts := p.Content().Text
	if len(texts) == 0 {
		return nil, nil
	}

	size, err := d.Size(page)
	if err != nil {
		return nil, err
	}

	for _, row := range groupIntoRows(texts) {
		words := mergeRow(row, size.Height)
		if len(words) > 0 {
			rows = append(rows, words)
		}
	}
	return rows, nil
}

// groupIntoRows buckets fragments by baseline Y, then orders buckets
// top-to-bottom (higher Y first in bottom-origin coordinates).
func groupIntoRows(texts []pdf.Text) [][]pdf.Text {
	type rowBucket struct {
		yMin, yMax float64
		texts      []pdf.Text
	}

	var buckets []rowBucket
	for _, t := range texts {
		found := false
		for i := range buckets {
			if t.Y >= buckets[i].yMin-rowTolerance && t.Y <= buckets[i].yMax+rowTolerance {
				buckets[i].texts = append(buckets[i].texts, t)
				if t.Y < buckets[i].yMin {
					buckets[i].yMin = t.Y
				}
				if t.Y > buckets[i].yMax {
					buckets[i].yMax = t.Y
				}
				found = true
				break
			}
		}
		if !found {
			buckets = append(buckets, rowBucket{yMin: t.Y, yMax: t.Y, texts: []pdf.Text{t}})
		}
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].yMax > buckets[j].yMax
	})

	rows := make([][]pdf.Text, len(buckets))
	for i, b := range buckets {
		rows[i] = b.texts
	}
	return rows
}

// mergeRow merges a row's character fragments into words. A whitespace
// fragment or a horizontal gap wider than wordGapRatio of the font size ends
// the current word. Boxes convert from bottom-origin baselines to top-origin
// using the font size as the glyph height.
func mergeRow(row []pdf.Text, pageHeight float64) []Word {
	sort.Slice(row, func(i, j int) bool {
		return row[i].X < row[j].X
	})

	type builder struct {
		text     strings.Builder
		x0, x1   float64
		baseline float64
		fontSize float64
	}

	finish := func(b *builder) Word {
		height := b.fontSize
		if height <= 0 {
			height = fallbackGlyphHeight
		}
		return Word{
			Text:   b.text.String(),
			X0:     b.x0,
			X1:     b.x1,
			Top:    pageHeight - b.baseline - height,
			Bottom: pageHeight - b.baseline,
		}
	}

	var words []Word
	var cur *builder
	flush := func() {
		if cur != nil {
			words = append(words, finish(cur))
			cur = nil
		}
	}

	gapLimit := func(b *builder) float64 {
		if b.fontSize > 0 {
			return wordGapRatio * b.fontSize
		}
		return wordGapFallback
	}

	for _, t := range row {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}
		if cur != nil && t.X-cur.x1 > gapLimit(cur) {
			flush()
		}
		if cur == nil {
			cur = &builder{
				x0:       t.X,
				x1:       t.X + t.W,
				baseline: t.Y,
				fontSize: t.FontSize,
			}
		}
		cur.text.WriteString(t.S)
		if t.X+t.W > cur.x1 {
			cur.x1 = t.X + t.W
		}
		if t.FontSize > cur.fontSize {
			cur.fontSize = t.FontSize
		}
		if t.Y > cur.baseline {
			cur.baseline = t.Y
		}
	}
	flush()
	return words
}

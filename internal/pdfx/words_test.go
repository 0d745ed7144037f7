package pdfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfextract/internal/pdfx/pdfxtest"
)

func wordTexts(words []Word) []string {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return texts
}

func TestWordsSplitsOnSpaces(t *testing.T) {
	doc, err := Open(pdfxtest.Build(pdfxtest.LetterPage(
		pdfxtest.Line{X: 72, Y: 720, Size: 12, Text: "Hello World"},
	)))
	require.NoError(t, err)
	defer doc.Close()

	words, err := doc.Words(1)
	require.NoError(t, err)
	require.Equal(t, []string{"Hello", "World"}, wordTexts(words))

	// Character advance is 6pt at size 12 with the test font metrics.
	hello := words[0]
	assert.InDelta(t, 72.0, hello.X0, 0.5)
	assert.InDelta(t, 102.0, hello.X1, 0.5)
	assert.InDelta(t, 60.0, hello.Top, 0.5)
	assert.InDelta(t, 72.0, hello.Bottom, 0.5)
	assert.InDelta(t, 30.0, hello.Width(), 0.5)
	assert.InDelta(t, 12.0, hello.Height(), 0.5)

	world := words[1]
	assert.InDelta(t, 108.0, world.X0, 0.5)
	assert.InDelta(t, 138.0, world.X1, 0.5)
}

func TestWordsReadingOrder(t *testing.T) {
	doc, err := Open(pdfxtest.Build(pdfxtest.LetterPage(
		// Emitted out of order; rows sort top to bottom, words left to right.
		pdfxtest.Line{X: 72, Y: 650, Size: 12, Text: "third"},
		pdfxtest.Line{X: 300, Y: 720, Size: 12, Text: "second"},
		pdfxtest.Line{X: 72, Y: 720, Size: 12, Text: "first"},
	)))
	require.NoError(t, err)
	defer doc.Close()

	words, err := doc.Words(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, wordTexts(words))
}

func TestRowsGroupsNearbyBaselines(t *testing.T) {
	doc, err := Open(pdfxtest.Build(pdfxtest.LetterPage(
		pdfxtest.Line{X: 72, Y: 650, Size: 12, Text: "left"},
		pdfxtest.Line{X: 300, Y: 648, Size: 12, Text: "right"},
		pdfxtest.Line{X: 72, Y: 600, Size: 12, Text: "below"},
	)))
	require.NoError(t, err)
	defer doc.Close()

	rows, err := doc.Rows(1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"left", "right"}, wordTexts(rows[0]))
	assert.Equal(t, []string{"below"}, wordTexts(rows[1]))
}

func TestRowsEmptyPage(t *testing.T) {
	doc, err := Open(pdfxtest.Build(pdfxtest.LetterPage()))
	require.NoError(t, err)
	defer doc.Close()

	rows, err := doc.Rows(1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRowsPageOutOfRange(t *testing.T) {
	doc, err := Open(pdfxtest.Build(pdfxtest.LetterPage()))
	require.NoError(t, err)
	defer doc.Close()

	_, err = doc.Rows(2)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

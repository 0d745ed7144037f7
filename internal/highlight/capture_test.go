package highlight

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfextract/internal/pdfx"
	"pdfextract/internal/pdfx/pdfxtest"
	"pdfextract/pkg/models"
)

func openTestDoc(t *testing.T) *pdfx.Document {
	t.Helper()
	doc, err := pdfx.Open(pdfxtest.Build(pdfxtest.LetterPage(
		pdfxtest.Line{X: 72, Y: 720, Size: 12, Text: "The mortality rate was 15.3% overall."},
	)))
	require.NoError(t, err)
	t.Cleanup(func() { doc.Close() })
	return doc
}

func decodeShot(t *testing.T, shot models.Screenshot) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(shot.ImageBase64)
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "png", format)
	return img
}

func rgb8(img image.Image, x, y int) (int, int, int) {
	r, g, b, _ := img.At(x, y).RGBA()
	return int(r >> 8), int(g >> 8), int(b >> 8)
}

func TestCaptureGeometry(t *testing.T) {
	doc := openTestDoc(t)

	hl := models.Highlight{
		Page: 1, Text: "mortality rate was 15.3%",
		X0: 100, Y0: 200, X1: 300, Y1: 220,
		Label: "Mortality Rate",
	}
	opts := Options{DPI: 72, Padding: 15, CropScale: 3}

	shots, err := NewRenderer().Capture(context.Background(), doc, []models.Highlight{hl}, opts)
	require.NoError(t, err)
	require.Len(t, shots, 1)

	shot := shots[0]
	assert.Equal(t, 1, shot.Page)
	assert.Equal(t, "Mortality Rate", shot.Label)
	assert.Equal(t, "mortality rate was 15.3%", shot.Text)

	// Box padded to (85,185)-(315,235), cropped with 45px context to
	// (40,140)-(360,280) at scale 1.
	assert.Equal(t, 320, shot.Width)
	assert.Equal(t, 140, shot.Height)

	img := decodeShot(t, shot)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 140, img.Bounds().Dy())

	// Inside the tinted box white paper blends to pale yellow.
	r, g, b := rgb8(img, 160, 70)
	assert.InDelta(t, 255, r, 2)
	assert.InDelta(t, 255, g, 2)
	assert.InDelta(t, 155, b, 3)

	// The context margin outside the box stays white.
	r, g, b = rgb8(img, 10, 10)
	assert.InDelta(t, 255, r, 2)
	assert.InDelta(t, 255, g, 2)
	assert.InDelta(t, 255, b, 2)
}

func TestCaptureClampsAtPageEdge(t *testing.T) {
	doc := openTestDoc(t)

	hl := models.Highlight{Page: 1, X0: 0, Y0: 0, X1: 20, Y1: 20}
	shots, err := NewRenderer().Capture(context.Background(), doc, []models.Highlight{hl},
		Options{DPI: 72, Padding: 15, CropScale: 3})
	require.NoError(t, err)
	require.Len(t, shots, 1)

	assert.Equal(t, 80, shots[0].Width)
	assert.Equal(t, 80, shots[0].Height)
}

func TestCaptureScalesWithDPI(t *testing.T) {
	doc := openTestDoc(t)

	hl := models.Highlight{Page: 1, X0: 100, Y0: 200, X1: 300, Y1: 220}
	shots, err := NewRenderer().Capture(context.Background(), doc, []models.Highlight{hl},
		Options{DPI: 144, Padding: 15, CropScale: 3})
	require.NoError(t, err)
	require.Len(t, shots, 1)

	// Same box at scale 2: padded (185,385)-(615,455), crop (140,340)-(660,500).
	assert.Equal(t, 520, shots[0].Width)
	assert.Equal(t, 160, shots[0].Height)
}

func TestCaptureSkipsOutOfRangePages(t *testing.T) {
	doc := openTestDoc(t)

	highlights := []models.Highlight{
		{Page: 0, X0: 10, Y0: 10, X1: 50, Y1: 30},
		{Page: 99, X0: 10, Y0: 10, X1: 50, Y1: 30},
		{Page: 1, X0: 10, Y0: 10, X1: 50, Y1: 30, Label: "Kept"},
	}

	shots, err := NewRenderer().Capture(context.Background(), doc, highlights,
		Options{DPI: 72, Padding: 15, CropScale: 3})
	require.NoError(t, err)
	require.Len(t, shots, 1)
	assert.Equal(t, "Kept", shots[0].Label)
}

func TestCaptureNoHighlights(t *testing.T) {
	doc := openTestDoc(t)

	shots, err := NewRenderer().Capture(context.Background(), doc, nil, CaptureOptions())
	require.NoError(t, err)
	assert.Empty(t, shots)
}

func TestCaptureCanceledContext(t *testing.T) {
	doc := openTestDoc(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRenderer().Capture(ctx, doc, []models.Highlight{{Page: 1, X1: 100, Y1: 50}},
		CaptureOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionVariants(t *testing.T) {
	capture := CaptureOptions()
	assert.Equal(t, 200.0, capture.DPI)
	assert.Equal(t, 15.0, capture.Padding)
	assert.Equal(t, 3.0, capture.CropScale)

	report := ReportOptions()
	assert.Equal(t, 150.0, report.DPI)
	assert.Equal(t, 20.0, report.Padding)
	assert.Equal(t, 2.0, report.CropScale)
}

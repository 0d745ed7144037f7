// Package highlight renders evidence screenshots. Each highlight names a box
// in PDF points on one page; the page is rasterized, a translucent yellow
// rectangle is composited over the padded box, and the result is cropped with
// some context around it. The screenshot operation and the HTML report embed
// the same renderer with different option sets.
package highlight

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/rs/zerolog"

	"pdfextract/internal/logger"
	"pdfextract/internal/pdfx"
	"pdfextract/pkg/models"
)

const (
	// CaptureDPI and CapturePadding are the defaults of the screenshot
	// operation; the crop keeps three paddings of context around the box.
	CaptureDPI     = 200.0
	CapturePadding = 15.0
	captureContext = 3.0

	// Report evidence images render smaller, with two paddings of context.
	ReportDPI     = 150.0
	ReportPadding = 20.0
	reportContext = 2.0
)

// Options tune one rendering pass: the raster DPI, the padding in output
// pixels applied around the scaled box, and the multiple of that padding kept
// as context when cropping.
type Options struct {
	DPI       float64
	Padding   float64
	CropScale float64
}

// CaptureOptions returns the defaults of the screenshot operation.
func CaptureOptions() Options {
	return Options{DPI: CaptureDPI, Padding: CapturePadding, CropScale: captureContext}
}

// ReportOptions returns the defaults of the HTML report's evidence images.
func ReportOptions() Options {
	return Options{DPI: ReportDPI, Padding: ReportPadding, CropScale: reportContext}
}

// Renderer rasterizes highlight regions into annotated crops.
type Renderer struct {
	log zerolog.Logger
}

// NewRenderer creates a highlight renderer.
func NewRenderer() *Renderer {
	return &Renderer{log: logger.WithComponent("highlight")}
}

// Capture renders one screenshot per highlight in input order. Highlights on
// pages outside the document are skipped, not errors.
func (r *Renderer) Capture(ctx context.Context, doc *pdfx.Document, highlights []models.Highlight, opts Options) ([]models.Screenshot, error) {
	const op = "Capture"

	shots := []models.Screenshot{}
	for _, hl := range highlights {
		if err := ctx.Err(); err != nil {
			return nil, WrapHighlightError(op, err, "")
		}
		if hl.Page < 1 || hl.Page > doc.PageCount() {
			r.log.Debug().Int("page", hl.Page).Str("label", hl.Label).
				Msg("Skipping highlight outside the document")
			continue
		}

		shot, ok, err := r.renderOne(doc, hl, opts)
		if err != nil {
			return nil, WrapHighlightError(op, err, "")
		}
		if !ok {
			continue
		}
		shots = append(shots, shot)
	}

	r.log.Debug().Int("screenshot_count", len(shots)).Msg("Highlight capture completed")
	return shots, nil
}

// renderOne rasterizes the highlight's page, tints the padded box, and crops
// it with context. A box that falls entirely off the page yields ok=false.
func (r *Renderer) renderOne(doc *pdfx.Document, hl models.Highlight, opts Options) (models.Screenshot, bool, error) {
	const op = "renderOne"

	rgba, err := doc.RenderPage(hl.Page, opts.DPI)
	if err != nil {
		return models.Screenshot{}, false, NewHighlightError(op, ErrRenderFailed,
			fmt.Sprintf("page %d: %v", hl.Page, err))
	}

	bounds := rgba.Bounds()
	imgW := float64(bounds.Dx())
	imgH := float64(bounds.Dy())
	scale := opts.DPI / 72.0

	// Scale the box to pixels and pad it, clamping to the image.
	x0 := math.Max(0, hl.X0*scale-opts.Padding)
	y0 := math.Max(0, hl.Y0*scale-opts.Padding)
	x1 := math.Min(imgW, hl.X1*scale+opts.Padding)
	y1 := math.Min(imgH, hl.Y1*scale+opts.Padding)

	yellow := image.NewUniform(color.NRGBA{R: 255, G: 255, B: 0, A: 100})
	box := image.Rect(int(x0), int(y0), int(x1), int(y1))
	draw.Draw(rgba, box, yellow, image.Point{}, draw.Over)

	pad := opts.Padding * opts.CropScale
	crop := image.Rect(
		int(math.Max(0, x0-pad)),
		int(math.Max(0, y0-pad)),
		int(math.Min(imgW, x1+pad)),
		int(math.Min(imgH, y1+pad)),
	).Intersect(bounds)
	if crop.Empty() {
		r.log.Warn().Int("page", hl.Page).Str("label", hl.Label).
			Msg("Highlight box falls outside the page raster")
		return models.Screenshot{}, false, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba.SubImage(crop)); err != nil {
		return models.Screenshot{}, false, NewHighlightError(op, ErrRenderFailed,
			fmt.Sprintf("page %d: %v", hl.Page, err))
	}

	return models.Screenshot{
		Page:        hl.Page,
		Label:       hl.Label,
		Text:        hl.Text,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:       crop.Dx(),
		Height:      crop.Dy(),
	}, true, nil
}

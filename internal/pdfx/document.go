// Package pdfx provides shared low-level access to PDF documents: validation,
// page geometry, word-level text positions, embedded image metadata, and page
// rasterization.
//
// One Document is backed by two complementary engines opened over the same
// byte slice: a position-level reader exposing character fragments and object
// dictionaries, and a renderer exposing styled page text and pixmaps. Page
// numbers are 1-based throughout.
//
// Documents are not safe for concurrent use; open one per request.
package pdfx

import (
	"bytes"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
)

const (
	// MaxFileSizeBytes is the maximum accepted document size (20MB),
	// matching the synchronous processing limit of the cloud engines.
	MaxFileSizeBytes = 20 * 1024 * 1024

	// Fallback page geometry (US Letter) when no MediaBox is resolvable.
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// PageSize is a page's width and height in PDF points.
type PageSize struct {
	Width  float64
	Height float64
}

// Document is an open PDF held in memory.
type Document struct {
	data   []byte
	reader *pdf.Reader
	render *fitz.Document
}

// Open validates data and opens both engines over it.
func Open(data []byte) (doc *Document, err error) {
	const op = "Open"
	defer recoverTo(&err, op)

	if len(data) > MaxFileSizeBytes {
		return nil, NewDocumentError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(data)))
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		return nil, NewDocumentError(op, ErrInvalidPDF, "missing PDF header")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewDocumentError(op, ErrInvalidPDF, err.Error())
	}

	render, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, NewDocumentError(op, ErrInvalidPDF, err.Error())
	}

	return &Document{
		data:   data,
		reader: reader,
		render: render,
	}, nil
}

// Close releases the renderer. The Document must not be used afterwards.
func (d *Document) Close() error {
	if d.render == nil {
		return nil
	}
	err := d.render.Close()
	d.render = nil
	d.reader = nil
	return err
}

// Bytes returns the raw document bytes the Document was opened from.
func (d *Document) Bytes() []byte {
	return d.data
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	if d.reader == nil {
		return 0
	}
	return d.reader.NumPage()
}

// Size returns the page geometry from its MediaBox, walking up the page tree
// when the box is inherited. Pages without a resolvable MediaBox report the
// US Letter default.
func (d *Document) Size(page int) (size PageSize, err error) {
	const op = "Size"
	defer recoverTo(&err, op)

	if d.reader == nil {
		return PageSize{}, NewDocumentError(op, ErrDocumentClosed, "")
	}
	if page < 1 || page > d.reader.NumPage() {
		return PageSize{}, NewDocumentError(op, ErrPageOutOfRange, fmt.Sprintf("page %d of %d", page, d.reader.NumPage()))
	}

	node := d.reader.Page(page).V
	for !node.IsNull() {
		box := node.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			x0 := numeric(box.Index(0))
			y0 := numeric(box.Index(1))
			x1 := numeric(box.Index(2))
			y1 := numeric(box.Index(3))
			w, h := x1-x0, y1-y0
			if w > 0 && h > 0 {
				return PageSize{Width: w, Height: h}, nil
			}
		}
		node = node.Key("Parent")
	}

	return PageSize{Width: defaultPageWidth, Height: defaultPageHeight}, nil
}

// Text returns the layout text of a page.
func (d *Document) Text(page int) (string, error) {
	const op = "Text"

	if d.render == nil {
		return "", NewDocumentError(op, ErrDocumentClosed, "")
	}
	if page < 1 || page > d.render.NumPage() {
		return "", NewDocumentError(op, ErrPageOutOfRange, fmt.Sprintf("page %d of %d", page, d.render.NumPage()))
	}

	text, err := d.render.Text(page - 1)
	if err != nil {
		return "", WrapDocumentError(op, err, fmt.Sprintf("page %d", page))
	}
	return text, nil
}

// RenderPage rasterizes a page at the given DPI.
func (d *Document) RenderPage(page int, dpi float64) (*image.RGBA, error) {
	const op = "RenderPage"

	if d.render == nil {
		return nil, NewDocumentError(op, ErrDocumentClosed, "")
	}
	if page < 1 || page > d.render.NumPage() {
		return nil, NewDocumentError(op, ErrPageOutOfRange, fmt.Sprintf("page %d of %d", page, d.render.NumPage()))
	}

	img, err := d.render.ImageDPI(page-1, dpi)
	if err != nil {
		return nil, WrapDocumentError(op, err, fmt.Sprintf("page %d at %.0f dpi", page, dpi))
	}
	return img, nil
}

// numeric reads a PDF number regardless of its integer/real representation.
func numeric(v pdf.Value) float64 {
	switch v.Kind() {
	case pdf.Integer:
		return float64(v.Int64())
	case pdf.Real:
		return v.Float64()
	}
	return 0
}

// recoverTo converts a panic in the low-level reader into an error. The
// reader is known to panic on malformed cross-reference and object data.
func recoverTo(err *error, op string) {
	if r := recover(); r != nil {
		*err = NewDocumentError(op, ErrInvalidPDF, fmt.Sprintf("parser panic: %v", r))
	}
}

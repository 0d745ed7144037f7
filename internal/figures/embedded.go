// Package figures extracts embedded raster images from PDF pages. Payload
// bytes come from a pdfcpu pass over the whole document and are paired with
// the image XObjects of each page's resource dictionary; the enhanced mode
// additionally pairs captions scanned from the page text and filters out
// icon-sized images.
package figures

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/tiff"

	"pdfextract/internal/logger"
	"pdfextract/internal/pdfx"
	"pdfextract/pkg/models"
)

const (
	// DefaultMinSize is the pixel bound below which enhanced extraction
	// treats an image as an icon or logo and drops it.
	DefaultMinSize = 50

	// DefaultDPI is reserved for rasterizing vector-only figures.
	DefaultDPI = 150
)

// Options tunes the enhanced extraction pass.
type Options struct {
	// MinSize drops images whose decoded pixel width or height is below
	// this bound.
	MinSize int

	// DPI is reserved for a raster fallback of vector-only figures.
	DPI int
}

// DefaultOptions returns the enhanced extraction defaults.
func DefaultOptions() Options {
	return Options{MinSize: DefaultMinSize, DPI: DefaultDPI}
}

// Service extracts embedded images from parsed documents.
type Service struct {
	log zerolog.Logger
}

// NewService creates a figure extraction service.
func NewService() *Service {
	return &Service{log: logger.WithComponent("figures")}
}

// payloadKey addresses one image resource on one page.
type payloadKey struct {
	page int
	name string
}

// payload is the embedded image data recovered for a resource.
type payload struct {
	data     []byte
	fileType string
}

// Extract returns every embedded image as a base64 PNG figure in page order.
// Width and height report the pixel dimensions declared by the XObject
// dictionary. Images whose payload cannot be recovered or decoded are
// skipped.
func (s *Service) Extract(ctx context.Context, doc *pdfx.Document) ([]models.Figure, error) {
	const op = "Extract"

	payloads, err := s.collectPayloads(doc.Bytes())
	if err != nil {
		return nil, err
	}

	figures := []models.Figure{}
	for page := 1; page <= doc.PageCount(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, WrapFigureError(op, err, "")
		}

		infos, err := s.pageImages(doc, page)
		if err != nil {
			return nil, WrapFigureError(op, err, "")
		}
		for _, info := range infos {
			pl, ok := payloads[payloadKey{page: page, name: info.Name}]
			if !ok {
				s.log.Debug().Int("page", page).Str("image", info.Name).
					Msg("No payload recovered for image resource")
				continue
			}
			img, _, err := image.Decode(bytes.NewReader(pl.data))
			if err != nil {
				s.log.Debug().Err(err).Int("page", page).Str("image", info.Name).
					Msg("Skipping undecodable image")
				continue
			}
			encoded, err := pngBase64(img)
			if err != nil {
				s.log.Debug().Err(err).Int("page", page).Str("image", info.Name).
					Msg("Skipping image that failed to re-encode")
				continue
			}
			figures = append(figures, models.Figure{
				Page:        page,
				ImageBase64: encoded,
				BBox:        nil,
				Width:       info.Width,
				Height:      info.Height,
			})
		}
	}

	s.log.Debug().Int("figure_count", len(figures)).Msg("Figure extraction completed")
	return figures, nil
}

// ExtractEnhanced filters out images smaller than opts.MinSize in either
// decoded dimension, assigns per-page figure indices, pairs captions scanned
// from the page text by index, and reports each payload's source encoding.
// Skipped and undecodable images still consume their figure index so caption
// pairing stays stable.
func (s *Service) ExtractEnhanced(ctx context.Context, doc *pdfx.Document, opts Options) ([]models.EnhancedFigure, error) {
	const op = "ExtractEnhanced"

	payloads, err := s.collectPayloads(doc.Bytes())
	if err != nil {
		return nil, err
	}

	figures := []models.EnhancedFigure{}
	for page := 1; page <= doc.PageCount(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, WrapFigureError(op, err, "")
		}

		var captions []string
		text, err := doc.Text(page)
		if err != nil {
			s.log.Warn().Err(err).Int("page", page).Msg("Reading page text for captions failed")
		} else {
			captions = findFigureCaptions(text)
		}

		infos, err := s.pageImages(doc, page)
		if err != nil {
			return nil, WrapFigureError(op, err, "")
		}
		for idx, info := range infos {
			pl, ok := payloads[payloadKey{page: page, name: info.Name}]
			if !ok {
				s.log.Debug().Int("page", page).Str("image", info.Name).
					Msg("No payload recovered for image resource")
				continue
			}
			img, decodedFormat, err := image.Decode(bytes.NewReader(pl.data))
			if err != nil {
				s.log.Debug().Err(err).Int("page", page).Str("image", info.Name).
					Msg("Skipping undecodable image")
				continue
			}

			bounds := img.Bounds()
			width, height := bounds.Dx(), bounds.Dy()
			if width < opts.MinSize || height < opts.MinSize {
				continue
			}

			encoded, err := pngBase64(img)
			if err != nil {
				s.log.Debug().Err(err).Int("page", page).Str("image", info.Name).
					Msg("Skipping image that failed to re-encode")
				continue
			}

			caption := ""
			if idx < len(captions) {
				caption = captions[idx]
			}

			figures = append(figures, models.EnhancedFigure{
				Page:        page,
				FigureIndex: idx,
				Caption:     caption,
				ImageBase64: encoded,
				BBox:        nil,
				Width:       width,
				Height:      height,
				Format:      figureFormat(pl.fileType, decodedFormat),
			})
		}
	}

	s.log.Debug().Int("figure_count", len(figures)).Msg("Enhanced figure extraction completed")
	return figures, nil
}

// pageImages lists the image XObjects of a page, tolerating pages with
// unreadable resources. Errors that mean the whole document is unusable
// still fail the extraction.
func (s *Service) pageImages(doc *pdfx.Document, page int) ([]pdfx.ImageInfo, error) {
	infos, err := doc.Images(page)
	if err != nil {
		if errors.Is(err, pdfx.ErrDocumentClosed) || errors.Is(err, pdfx.ErrPageOutOfRange) {
			return nil, err
		}
		s.log.Warn().Err(err).Int("page", page).Msg("Skipping page with unreadable image resources")
		return nil, nil
	}
	return infos, nil
}

// collectPayloads runs the document through pdfcpu image extraction and
// indexes the recovered payloads by page and resource name.
func (s *Service) collectPayloads(data []byte) (map[payloadKey]payload, error) {
	const op = "collectPayloads"

	payloads := make(map[payloadKey]payload)
	digest := func(img model.Image, _ bool, _ int) error {
		if img.Thumb {
			return nil
		}
		buf, err := io.ReadAll(img)
		if err != nil {
			return err
		}
		payloads[payloadKey{page: img.PageNr, name: img.Name}] = payload{
			data:     buf,
			fileType: img.FileType,
		}
		return nil
	}

	if err := api.ExtractImages(bytes.NewReader(data), nil, digest, model.NewDefaultConfiguration()); err != nil {
		return nil, NewFigureError(op, ErrExtractionFailed, err.Error())
	}
	return payloads, nil
}

// pngBase64 re-encodes a decoded image as base64 PNG.
func pngBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// figureFormat reports the source encoding of a payload, preferring the
// extractor's file type over the decoded container name.
func figureFormat(fileType, decodedFormat string) string {
	format := strings.ToLower(fileType)
	if format == "" {
		format = decodedFormat
	}
	switch format {
	case "":
		return "unknown"
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	}
	return format
}

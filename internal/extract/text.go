package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"pdfextract/internal/ocr"
	"pdfextract/internal/pdfx"
	"pdfextract/pkg/models"
)

// Pages extracts every page's raw layout text and geometry in points. This
// is the native text layer only; no OCR is involved.
func (s *Service) Pages(ctx context.Context, doc *pdfx.Document) ([]models.LayoutPage, error) {
	const op = "Pages"

	pageCount := doc.PageCount()
	pages := make([]models.LayoutPage, 0, pageCount)

	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, WrapExtractError(op, err, "")
		}

		size, err := doc.Size(page)
		if err != nil {
			return nil, WrapExtractError(op, err, fmt.Sprintf("page %d", page))
		}
		text, err := s.pageText(doc, page)
		if err != nil {
			return nil, WrapExtractError(op, err, fmt.Sprintf("page %d", page))
		}

		pages = append(pages, models.LayoutPage{
			Page:   page,
			Text:   text,
			Width:  size.Width,
			Height: size.Height,
		})
	}
	return pages, nil
}

// TextWithLayout extracts the layout-preserving text of every page. The
// document text joins the pages with "--- Page N ---" markers and is trimmed;
// per-page entries keep the raw text and the page geometry in points.
//
// When no page carries a text layer and an OCR engine is configured, the
// engine's text replaces the document text and OCRUsed is set. The page
// entries keep their geometry either way.
func (s *Service) TextWithLayout(ctx context.Context, doc *pdfx.Document) (*models.LayoutResult, error) {
	const op = "TextWithLayout"

	pages, err := s.Pages(ctx, doc)
	if err != nil {
		return nil, err
	}

	var full strings.Builder
	hasText := false
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			hasText = true
		}
		fmt.Fprintf(&full, "\n\n--- Page %d ---\n\n%s", p.Page, p.Text)
	}

	result := &models.LayoutResult{
		Success:   true,
		Text:      strings.TrimSpace(full.String()),
		Pages:     pages,
		PageCount: len(pages),
	}

	if !hasText && len(pages) > 0 && s.ocr != nil {
		s.log.Info().Int("pages", len(pages)).Msg("Document has no text layer; falling back to OCR")

		ocrText, err := s.ocr.ProcessPDF(ctx, bytes.NewReader(doc.Bytes()))
		if err != nil {
			if errors.Is(err, ocr.ErrEmptyDocument) {
				s.log.Debug().Msg("OCR fallback found no text either")
				return result, nil
			}
			return nil, WrapExtractError(op, err, "ocr fallback")
		}
		result.Text = strings.TrimSpace(ocrText)
		result.OCRUsed = true
	}

	s.log.Debug().
		Int("pages", len(pages)).
		Bool("ocr_used", result.OCRUsed).
		Msg("Layout extraction completed")

	return result, nil
}

// TextWithPositions extracts the document text word by word, recording for
// every word its absolute character offsets in the accumulated text and its
// page box. Words accumulate as "word " and every page ends with a blank
// line; the returned text is trimmed but the recorded offsets index the
// untrimmed accumulation. Offsets are byte offsets.
func (s *Service) TextWithPositions(ctx context.Context, doc *pdfx.Document) (*models.PositionsResult, error) {
	const op = "TextWithPositions"

	pageCount := doc.PageCount()
	positions := make([]models.WordPosition, 0, 64)
	var full strings.Builder

	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, WrapExtractError(op, err, "")
		}

		words, err := s.pageWords(doc, page)
		if err != nil {
			return nil, WrapExtractError(op, err, fmt.Sprintf("page %d", page))
		}

		for _, w := range words {
			start := full.Len()
			positions = append(positions, models.WordPosition{
				Text:      w.Text,
				StartChar: start,
				EndChar:   start + len(w.Text),
				X:         w.X0,
				Y:         w.Top,
				Width:     w.Width(),
				Height:    w.Height(),
				Page:      page,
			})
			full.WriteString(w.Text)
			full.WriteString(" ")
		}

		// Page separator
		full.WriteString("\n\n")
	}

	s.log.Debug().
		Int("words", len(positions)).
		Int("pages", pageCount).
		Msg("Position extraction completed")

	return &models.PositionsResult{
		Success:   true,
		Text:      strings.TrimSpace(full.String()),
		Positions: positions,
		PageCount: pageCount,
	}, nil
}

// pageText reads a page's layout text. A page the renderer cannot parse
// contributes no text; a closed document or bad page number propagates.
func (s *Service) pageText(doc *pdfx.Document, page int) (string, error) {
	text, err := doc.Text(page)
	if err != nil {
		if errors.Is(err, pdfx.ErrDocumentClosed) || errors.Is(err, pdfx.ErrPageOutOfRange) {
			return "", err
		}
		s.log.Warn().Int("page", page).Err(err).Msg("Page text extraction failed; page contributes no text")
		return "", nil
	}
	return text, nil
}

// pageWords reads a page's words under the same degradation contract as
// pageText.
func (s *Service) pageWords(doc *pdfx.Document, page int) ([]pdfx.Word, error) {
	words, err := doc.Words(page)
	if err != nil {
		if errors.Is(err, pdfx.ErrDocumentClosed) || errors.Is(err, pdfx.ErrPageOutOfRange) {
			return nil, err
		}
		s.log.Warn().Int("page", page).Err(err).Msg("Page word extraction failed; page contributes no words")
		return nil, nil
	}
	return words, nil
}

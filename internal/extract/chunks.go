package extract

import (
	"context"
	"errors"
	"fmt"

	"pdfextract/internal/pdfx"
	"pdfextract/pkg/models"
)

// ChunksForLLM exports the document as one chunk per page: the page's text,
// its reconstructed table grids, and the count of embedded images. The chunk
// boundaries follow pages so downstream consumers can cite a page number.
func (s *Service) ChunksForLLM(ctx context.Context, doc *pdfx.Document) (*models.ChunksResult, error) {
	const op = "ChunksForLLM"

	pageCount := doc.PageCount()
	chunks := make([]models.Chunk, 0, pageCount)

	// One table pass over the whole document, grids grouped by page. A
	// failed pass degrades to chunks without tables; cancellation is
	// caught by the page loop.
	gridsByPage := make(map[int][][][]string)
	tbls, err := s.tables.Extract(ctx, doc)
	if err != nil {
		s.log.Warn().Err(err).Msg("Table pass failed; chunks carry no tables")
	}
	for _, t := range tbls {
		gridsByPage[t.Page] = append(gridsByPage[t.Page], t.Raw)
	}

	for page := 1; page <= pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return nil, WrapExtractError(op, err, "")
		}

		text, err := s.pageText(doc, page)
		if err != nil {
			return nil, WrapExtractError(op, err, fmt.Sprintf("page %d", page))
		}

		images, err := doc.Images(page)
		if err != nil {
			if errors.Is(err, pdfx.ErrDocumentClosed) || errors.Is(err, pdfx.ErrPageOutOfRange) {
				return nil, WrapExtractError(op, err, fmt.Sprintf("page %d", page))
			}
			s.log.Warn().Int("page", page).Err(err).Msg("Image count failed; chunk reports zero images")
		}

		grids := gridsByPage[page]
		if grids == nil {
			// Pages without tables report an empty list, not null.
			grids = [][][]string{}
		}

		chunks = append(chunks, models.Chunk{
			Page:   page,
			Text:   text,
			Tables: grids,
			Images: len(images),
		})
	}

	s.log.Debug().Int("chunks", len(chunks)).Msg("Chunk export completed")

	return &models.ChunksResult{
		Success:   true,
		Chunks:    chunks,
		PageCount: pageCount,
	}, nil
}

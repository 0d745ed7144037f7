package ocr

import (
	"bytes"
	"context"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textPage(text string) *visionpb.AnnotateImageResponse {
	return &visionpb.AnnotateImageResponse{
		FullTextAnnotation: &visionpb.TextAnnotation{Text: text},
	}
}

func TestProcessVisionResponseJoinsPagesWithSeparators(t *testing.T) {
	svc := &GoogleVisionService{}
	resp := &visionpb.AnnotateFileResponse{
		Responses: []*visionpb.AnnotateImageResponse{
			textPage("First page text"),
			textPage("Second page text"),
			textPage("Third page text"),
		},
	}

	result, err := svc.processVisionResponse(resp)
	require.NoError(t, err)

	want := "First page text" +
		"\n\n--- Page 2 ---\n\n" + "Second page text" +
		"\n\n--- Page 3 ---\n\n" + "Third page text"
	assert.Equal(t, want, result.Text)
	assert.Equal(t, 3, result.PageCount)
}

func TestProcessVisionResponseAveragesConfidence(t *testing.T) {
	svc := &GoogleVisionService{}
	page := textPage("Scanned report body")
	page.TextAnnotations = []*visionpb.EntityAnnotation{
		{Confidence: 0.9},
		{Confidence: 0.7},
		{Confidence: 0}, // unset scores are excluded from the mean
	}
	resp := &visionpb.AnnotateFileResponse{
		Responses: []*visionpb.AnnotateImageResponse{page},
	}

	result, err := svc.processVisionResponse(resp)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, float64(result.Confidence), 1e-6)
}

func TestProcessVisionResponseCollectsLanguages(t *testing.T) {
	svc := &GoogleVisionService{}
	page := textPage("Befund unauffaellig")
	page.FullTextAnnotation.Pages = []*visionpb.Page{
		{
			Blocks: []*visionpb.Block{
				{
					Paragraphs: []*visionpb.Paragraph{
						{
							Words: []*visionpb.Word{
								{
									Symbols: []*visionpb.Symbol{
										{
											Property: &visionpb.TextAnnotation_TextProperty{
												DetectedLanguages: []*visionpb.TextAnnotation_DetectedLanguage{
													{LanguageCode: "de"},
												},
											},
										},
										{
											Property: &visionpb.TextAnnotation_TextProperty{
												DetectedLanguages: []*visionpb.TextAnnotation_DetectedLanguage{
													{LanguageCode: "de"},
													{LanguageCode: "en"},
												},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
	resp := &visionpb.AnnotateFileResponse{
		Responses: []*visionpb.AnnotateImageResponse{page},
	}

	result, err := svc.processVisionResponse(resp)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"de", "en"}, result.LanguageCodes)
}

func TestProcessVisionResponseEmptyDocument(t *testing.T) {
	svc := &GoogleVisionService{}

	_, err := svc.processVisionResponse(&visionpb.AnnotateFileResponse{})
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = svc.processVisionResponse(&visionpb.AnnotateFileResponse{
		Responses: []*visionpb.AnnotateImageResponse{textPage("   \n\t")},
	})
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestProcessVisionResponseTooManyPages(t *testing.T) {
	svc := &GoogleVisionService{}
	pages := make([]*visionpb.AnnotateImageResponse, MaxPagesSync+1)
	for i := range pages {
		pages[i] = textPage("page")
	}

	_, err := svc.processVisionResponse(&visionpb.AnnotateFileResponse{Responses: pages})
	assert.ErrorIs(t, err, ErrTooManyPages)
}

func TestProcessPDFRejectsOversizedFile(t *testing.T) {
	svc := NewGoogleVisionServiceWithClient(nil)

	oversized := make([]byte, MaxFileSizeBytes+1)
	_, err := svc.ProcessPDFWithMetadata(context.Background(), bytes.NewReader(oversized))
	assert.ErrorIs(t, err, ErrPDFTooLarge)
}

func TestProcessPDFRejectsMissingHeader(t *testing.T) {
	svc := NewGoogleVisionServiceWithClient(nil)

	_, err := svc.ProcessPDFWithMetadata(context.Background(), bytes.NewReader([]byte("plain text, not a PDF")))
	assert.ErrorIs(t, err, ErrInvalidPDF)

	_, err = svc.ProcessPDFWithMetadata(context.Background(), bytes.NewReader([]byte("%P")))
	assert.ErrorIs(t, err, ErrInvalidPDF)
}

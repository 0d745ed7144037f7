package tables

import (
	"context"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segment(start, end int64) *documentaipb.Document_Page_Layout {
	return &documentaipb.Document_Page_Layout{
		TextAnchor: &documentaipb.Document_TextAnchor{
			TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
				{StartIndex: start, EndIndex: end},
			},
		},
	}
}

func cell(start, end int64) *documentaipb.Document_Page_Table_TableCell {
	return &documentaipb.Document_Page_Table_TableCell{Layout: segment(start, end)}
}

func TestTableGrid(t *testing.T) {
	doc := &documentaipb.Document{
		Text: "Name Age Alice 34 ",
	}
	table := &documentaipb.Document_Page_Table{
		HeaderRows: []*documentaipb.Document_Page_Table_TableRow{
			{Cells: []*documentaipb.Document_Page_Table_TableCell{cell(0, 5), cell(5, 9)}},
		},
		BodyRows: []*documentaipb.Document_Page_Table_TableRow{
			{Cells: []*documentaipb.Document_Page_Table_TableCell{cell(9, 15), cell(15, 18)}},
		},
	}

	grid := tableGrid(doc, table)
	assert.Equal(t, [][]string{{"Name", "Age"}, {"Alice", "34"}}, grid)
}

func TestAnchorText(t *testing.T) {
	doc := &documentaipb.Document{Text: "hello world"}

	assert.Equal(t, "", anchorText(doc, nil))
	assert.Equal(t, "", anchorText(doc, &documentaipb.Document_Page_Layout{}))
	assert.Equal(t, "hello", anchorText(doc, segment(0, 5)))

	// Out-of-range segments are skipped rather than panicking.
	assert.Equal(t, "", anchorText(doc, segment(0, 100)))
	assert.Equal(t, "", anchorText(doc, segment(8, 5)))

	multi := &documentaipb.Document_Page_Layout{
		TextAnchor: &documentaipb.Document_TextAnchor{
			TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
				{StartIndex: 0, EndIndex: 5},
				{StartIndex: 6, EndIndex: 11},
			},
		},
	}
	assert.Equal(t, "helloworld", anchorText(doc, multi))
}

func TestPageNumberFallback(t *testing.T) {
	assert.Equal(t, 3, pageNumber(&documentaipb.Document_Page{PageNumber: 3}, 7))
	assert.Equal(t, 8, pageNumber(&documentaipb.Document_Page{}, 7))
}

func TestNewDocumentAIEngineValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewDocumentAIEngine(ctx, DocumentAIConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewDocumentAIEngine(ctx, DocumentAIConfig{ProjectID: "proj"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestProcessorName(t *testing.T) {
	e := &DocumentAIEngine{config: DocumentAIConfig{
		ProjectID:   "proj",
		Location:    "eu",
		ProcessorID: "proc",
	}}
	assert.Equal(t, "projects/proj/locations/eu/processors/proc", e.processorName())

	e.config.ProcessorVersion = "v2"
	assert.Equal(t, "projects/proj/locations/eu/processors/proc/processorVersions/v2", e.processorName())
}

package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfextract/internal/highlight"
	"pdfextract/internal/pdfx"
	"pdfextract/internal/pdfx/pdfxtest"
	"pdfextract/pkg/models"
)

func TestFlattenFields(t *testing.T) {
	data := map[string]any{
		"demographics": map[string]any{
			"age":  map[string]any{"value": 34.0, "sourceText": "aged 34 years"},
			"sex":  map[string]any{"value": "F"},
			"site": "cerebellum",
		},
		"outcome": map[string]any{
			"mortality": map[string]any{
				"rate": map[string]any{"value": 15.3, "sourceText": "mortality rate was 15.3%"},
			},
		},
		"note": "top-level scalars are dropped",
	}

	rows := flattenFields(data)
	require.Len(t, rows, 4)
	assert.Equal(t, fieldRow{Name: "demographics.age", Value: "34", Source: "aged 34 years"}, rows[0])
	assert.Equal(t, fieldRow{Name: "demographics.sex", Value: "F", Source: "N/A"}, rows[1])
	assert.Equal(t, fieldRow{Name: "demographics.site", Value: "cerebellum", Scalar: true}, rows[2])
	assert.Equal(t, fieldRow{Name: "outcome.mortality.rate", Value: "15.3", Source: "mortality rate was 15.3%"}, rows[3])
}

func TestRenderFieldNullLeaves(t *testing.T) {
	rows := renderField("x", map[string]any{"value": nil})
	require.Len(t, rows, 1)
	assert.Equal(t, "N/A", rows[0].Value)
	assert.Equal(t, "N/A", rows[0].Source)

	rows = renderField("y", map[string]any{"value": 5.0, "sourceText": nil})
	require.Len(t, rows, 1)
	assert.Equal(t, "5", rows[0].Value)
	assert.Equal(t, "N/A", rows[0].Source)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "N/A", formatValue(nil))
	assert.Equal(t, "15.3%", formatValue("15.3%"))
	assert.Equal(t, "15", formatValue(15.0))
	assert.Equal(t, "15.3", formatValue(15.3))
	assert.Equal(t, "true", formatValue(true))
	assert.Equal(t, `["a",1]`, formatValue([]any{"a", 1.0}))
}

func TestGenerateBuildsReport(t *testing.T) {
	doc, err := pdfx.Open(pdfxtest.Build(pdfxtest.LetterPage(
		pdfxtest.Line{X: 72, Y: 720, Size: 12, Text: "The mortality rate was 15.3% overall."},
	)))
	require.NoError(t, err)
	defer doc.Close()

	req := Request{
		Data: map[string]any{
			"outcome": map[string]any{
				"mortality": map[string]any{"value": 15.3, "sourceText": "rate was 15.3%"},
			},
		},
		Highlights: []models.Highlight{
			{Page: 1, Text: "rate was 15.3%", X0: 72, Y0: 60, X1: 240, Y1: 80, Label: "Mortality"},
		},
		Options: highlight.ReportOptions(),
	}

	res, err := NewGenerator().Generate(context.Background(), doc, req)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Screenshots)
	_, err = time.Parse(time.RFC3339, res.Timestamp)
	assert.NoError(t, err)

	assert.Contains(t, res.HTML, "<title>Cerebellar Extraction Report</title>")
	assert.Contains(t, res.HTML, "Generated: "+res.Timestamp)
	assert.Contains(t, res.HTML, "outcome.mortality")
	assert.Contains(t, res.HTML, "rate was 15.3%")
	assert.Contains(t, res.HTML, "Visual Evidence (1 screenshots)")
	assert.Contains(t, res.HTML, `src="data:image/png;base64,`)
	assert.Contains(t, res.HTML, "<h3>Mortality</h3>")
	assert.Contains(t, res.HTML, "Page 1")
	assert.Contains(t, res.HTML, "Cerebellar SDC Extraction System | Report generated automatically")
}

func TestGenerateEscapesInterpolatedFields(t *testing.T) {
	doc, err := pdfx.Open(pdfxtest.Build(pdfxtest.LetterPage(
		pdfxtest.Line{X: 72, Y: 720, Size: 12, Text: "Escape test"},
	)))
	require.NoError(t, err)
	defer doc.Close()

	req := Request{
		Title: "<b>Bold</b> & Co",
		Data: map[string]any{
			"section": map[string]any{
				"field": map[string]any{
					"value":      "<script>alert(1)</script>",
					"sourceText": "x & y",
				},
			},
		},
		Options: highlight.ReportOptions(),
	}

	res, err := NewGenerator().Generate(context.Background(), doc, req)
	require.NoError(t, err)

	assert.NotContains(t, res.HTML, "<script>alert(1)</script>")
	assert.Contains(t, res.HTML, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, res.HTML, "x &amp; y")
	assert.NotContains(t, res.HTML, "<b>Bold</b>")
	assert.Contains(t, res.HTML, "&lt;b&gt;Bold&lt;/b&gt; &amp; Co")
	assert.Contains(t, res.HTML, "Visual Evidence (0 screenshots)")
	assert.Equal(t, 0, res.Screenshots)
}

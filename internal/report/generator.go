// Package report renders a self-contained HTML evidence report: every
// extracted field as a table row with its quoted source text, and one
// annotated screenshot per highlight. All interpolated fields are
// HTML-escaped; the embedded screenshots are data URIs built from our own
// PNG encoder output.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"pdfextract/internal/highlight"
	"pdfextract/internal/logger"
	"pdfextract/internal/pdfx"
	"pdfextract/pkg/models"
)

// DefaultTitle is used when the request names no report title.
const DefaultTitle = "Cerebellar Extraction Report"

// Request bundles the inputs of one report.
type Request struct {
	// Data is the nested extraction object. Top-level sections hold fields;
	// a field is either a {value, sourceText} leaf, a nested object, or a
	// bare scalar.
	Data map[string]any

	// Highlights are rendered into evidence screenshots.
	Highlights []models.Highlight

	// Title of the report; empty applies DefaultTitle.
	Title string

	// Options tune the evidence rendering.
	Options highlight.Options
}

// Generator builds HTML reports.
type Generator struct {
	log      zerolog.Logger
	renderer *highlight.Renderer
	tmpl     *template.Template
}

// NewGenerator creates a report generator.
func NewGenerator() *Generator {
	return &Generator{
		log:      logger.WithComponent("report"),
		renderer: highlight.NewRenderer(),
		tmpl:     template.Must(template.New("report").Parse(reportTemplate)),
	}
}

// reportPage is the template payload.
type reportPage struct {
	Title     string
	Timestamp string
	Rows      []fieldRow
	Cards     []evidenceCard
	Count     int
}

// fieldRow is one extracted field. Scalar rows span the value and source
// columns.
type fieldRow struct {
	Name   string
	Value  string
	Source string
	Scalar bool
}

// evidenceCard is one rendered highlight.
type evidenceCard struct {
	Label string
	Text  string
	Page  int
	Src   template.URL
}

// Generate renders the highlights of req into screenshots and executes the
// report template. The returned result carries the full HTML document, the
// screenshot count, and the generation timestamp.
func (g *Generator) Generate(ctx context.Context, doc *pdfx.Document, req Request) (models.ReportResult, error) {
	const op = "Generate"

	shots := []models.Screenshot{}
	if len(req.Highlights) > 0 {
		var err error
		shots, err = g.renderer.Capture(ctx, doc, req.Highlights, req.Options)
		if err != nil {
			return models.ReportResult{}, WrapReportError(op, err, "")
		}
	}

	title := req.Title
	if title == "" {
		title = DefaultTitle
	}
	timestamp := time.Now().Format(time.RFC3339)

	page := reportPage{
		Title:     title,
		Timestamp: timestamp,
		Rows:      flattenFields(req.Data),
		Cards:     evidenceCards(shots),
		Count:     len(shots),
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, page); err != nil {
		return models.ReportResult{}, NewReportError(op, ErrTemplateFailed, err.Error())
	}

	g.log.Debug().Int("screenshots", len(shots)).Int("fields", len(page.Rows)).
		Msg("Report generated")

	return models.ReportResult{
		Success:     true,
		HTML:        buf.String(),
		Screenshots: len(shots),
		Timestamp:   timestamp,
	}, nil
}

// flattenFields turns the nested extraction object into dotted table rows.
// Only object-valued top-level entries are sections; anything else at the top
// level is dropped. Keys sort alphabetically at every level so the report is
// stable across runs.
func flattenFields(data map[string]any) []fieldRow {
	rows := []fieldRow{}
	for _, section := range sortedKeys(data) {
		sectionData, ok := data[section].(map[string]any)
		if !ok {
			continue
		}
		for _, field := range sortedKeys(sectionData) {
			rows = append(rows, renderField(section+"."+field, sectionData[field])...)
		}
	}
	return rows
}

// renderField renders one field. A {value, sourceText} object becomes a
// three-cell row, other objects recurse with dotted names, and bare values
// become rows spanning the value and source columns.
func renderField(name string, field any) []fieldRow {
	obj, ok := field.(map[string]any)
	if !ok {
		return []fieldRow{{Name: name, Value: formatValue(field), Scalar: true}}
	}

	if value, found := obj["value"]; found {
		source := "N/A"
		if s, foundSource := obj["sourceText"]; foundSource && s != nil {
			source = formatValue(s)
		}
		return []fieldRow{{Name: name, Value: formatValue(value), Source: source}}
	}

	rows := []fieldRow{}
	for _, key := range sortedKeys(obj) {
		rows = append(rows, renderField(name+"."+key, obj[key])...)
	}
	return rows
}

// formatValue renders a decoded JSON value for display.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "N/A"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// evidenceCards converts screenshots into template cards with data-URI
// sources. The URI is built from our own PNG output, which is why it may
// bypass the template's URL filter.
func evidenceCards(shots []models.Screenshot) []evidenceCard {
	cards := make([]evidenceCard, 0, len(shots))
	for _, s := range shots {
		cards = append(cards, evidenceCard{
			Label: s.Label,
			Text:  s.Text,
			Page:  s.Page,
			Src:   template.URL("data:image/png;base64," + s.ImageBase64),
		})
	}
	return cards
}

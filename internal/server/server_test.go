package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfextract/internal/config"
	"pdfextract/internal/pdfx/pdfxtest"
	"pdfextract/pkg/models"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{Port: "0", TablesEngine: config.TablesEngineLocal}
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	return s
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["error"]
}

func encodePDF(pages ...pdfxtest.Page) string {
	return base64.StdEncoding.EncodeToString(pdfxtest.Build(pages...))
}

func helloPage() pdfxtest.Page {
	return pdfxtest.LetterPage(pdfxtest.Line{X: 72, Y: 720, Size: 12, Text: "Hello World"})
}

// tablePage lays out a caption and a three-column table the local engine
// reconstructs as one grid.
func tablePage() pdfxtest.Page {
	return pdfxtest.LetterPage(
		pdfxtest.Line{X: 72, Y: 700, Size: 12, Text: "Table 1. Patient demographics"},
		pdfxtest.Line{X: 72, Y: 680, Size: 12, Text: "Name"},
		pdfxtest.Line{X: 250, Y: 680, Size: 12, Text: "Age"},
		pdfxtest.Line{X: 430, Y: 680, Size: 12, Text: "Sex"},
		pdfxtest.Line{X: 72, Y: 660, Size: 12, Text: "Alice"},
		pdfxtest.Line{X: 250, Y: 660, Size: 12, Text: "34"},
		pdfxtest.Line{X: 430, Y: 660, Size: 12, Text: "F"},
		pdfxtest.Line{X: 72, Y: 640, Size: 12, Text: "Bob"},
		pdfxtest.Line{X: 250, Y: 640, Size: 12, Text: "41"},
		pdfxtest.Line{X: 430, Y: 640, Size: 12, Text: "M"},
	)
}

func figurePage() pdfxtest.Page {
	return pdfxtest.Page{
		Width:  612,
		Height: 792,
		Lines:  []pdfxtest.Line{{X: 72, Y: 700, Size: 12, Text: "Figure 1. Brain MRI scan"}},
		Images: []pdfxtest.Image{{Name: "Im1", Width: 60, Height: 80}},
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestExtractTextWithLayoutJSON(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/extract_text_with_layout", map[string]string{
		"pdf_base64": encodePDF(helloPage()),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.LayoutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.PageCount)
	assert.Contains(t, result.Text, "Hello World")
	require.Len(t, result.Pages, 1)
	assert.InDelta(t, 612.0, result.Pages[0].Width, 0.001)
}

func TestExtractTextWithLayoutMultipart(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "document.pdf")
	require.NoError(t, err)
	_, err = fw.Write(pdfxtest.Build(helloPage()))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/extract_text_with_layout", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.LayoutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Contains(t, result.Text, "Hello World")
}

func TestExtractTextWithLayoutMultipartMissingFile(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", "not a file"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/extract_text_with_layout", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file provided", errorMessage(t, rec))
}

func TestMissingPDFBase64(t *testing.T) {
	s := newTestServer(t)
	paths := []string{
		"/extract_text_with_layout",
		"/extract_text_with_positions",
		"/extract_for_llm",
		"/detect_sections",
		"/extract_tables",
		"/extract_tables_enhanced",
		"/extract_figures",
		"/extract_figures_enhanced",
		"/generate_html_report",
	}
	for _, path := range paths {
		rec := postJSON(t, s, path, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "pdf_base64 required", errorMessage(t, rec), path)
	}
}

func TestInvalidBase64(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/extract_tables", map[string]string{"pdf_base64": "@@not-base64@@"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid base64 in pdf_base64", errorMessage(t, rec))
}

func TestNotAPDF(t *testing.T) {
	s := newTestServer(t)
	encoded := base64.StdEncoding.EncodeToString([]byte("just some text"))
	rec := postJSON(t, s, "/extract_tables", map[string]string{"pdf_base64": encoded})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "not a valid PDF document", errorMessage(t, rec))
}

func TestUnknownEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/extract_everything", map[string]string{})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Unknown endpoint: /extract_everything", errorMessage(t, rec))
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/extract_tables", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.NotEmpty(t, errorMessage(t, rec))
}

func TestExtractTextWithPositions(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/extract_text_with_positions", map[string]string{
		"pdf_base64": encodePDF(helloPage()),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.PositionsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	require.Len(t, result.Positions, 2)
	assert.Equal(t, "Hello", result.Positions[0].Text)
	assert.Equal(t, 0, result.Positions[0].StartChar)
	assert.Equal(t, "World", result.Positions[1].Text)
}

func TestExtractForLLM(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/extract_for_llm", map[string]string{
		"pdf_base64": encodePDF(tablePage(), helloPage()),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ChunksResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	require.Len(t, result.Chunks, 2)
	assert.Equal(t, 1, result.Chunks[0].Page)
	require.Len(t, result.Chunks[0].Tables, 1)
	assert.Equal(t, []string{"Name", "Age", "Sex"}, result.Chunks[0].Tables[0][0])
	assert.Contains(t, result.Chunks[1].Text, "Hello World")
	assert.Empty(t, result.Chunks[1].Tables)
}

func TestDetectSections(t *testing.T) {
	s := newTestServer(t)
	page := pdfxtest.LetterPage(
		pdfxtest.Line{X: 72, Y: 720, Size: 12, Text: "Abstract"},
		pdfxtest.Line{X: 72, Y: 700, Size: 12, Text: "We studied postoperative outcomes."},
		pdfxtest.Line{X: 72, Y: 660, Size: 12, Text: "Results"},
		pdfxtest.Line{X: 72, Y: 640, Size: 12, Text: "Symptoms improved in most patients."},
	)
	rec := postJSON(t, s, "/detect_sections", map[string]string{"pdf_base64": encodePDF(page)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.SectionsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	require.Equal(t, 2, result.SectionCount)
	assert.Equal(t, "abstract", result.Sections[0].Name)
	assert.Equal(t, "results", result.Sections[1].Name)
	assert.Less(t, result.Sections[0].StartChar, result.Sections[1].StartChar)
}

func TestExtractTables(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/extract_tables", map[string]string{"pdf_base64": encodePDF(tablePage())})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.TablesResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	require.Equal(t, 1, result.TableCount)
	assert.Equal(t, []string{"Name", "Age", "Sex"}, result.Tables[0].Headers)
	assert.Equal(t, [][]string{{"Alice", "34", "F"}, {"Bob", "41", "M"}}, result.Tables[0].Rows)
}

func TestExtractTablesNoTables(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/extract_tables", map[string]string{"pdf_base64": encodePDF(helloPage())})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// No tables is a success with an empty list, not null.
	assert.JSONEq(t, `{"success":true,"tables":[],"table_count":0}`, rec.Body.String())
}

func TestExtractTablesEnhanced(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/extract_tables_enhanced", map[string]any{
		"pdf_base64": encodePDF(tablePage()),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.EnhancedTablesResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.TableCount)
	assert.Equal(t, "Table 1. Patient demographics", result.Tables[0].Caption)
	assert.Equal(t, 3, result.Tables[0].ColumnCount)

	// Caption detection can be turned off per request.
	rec = postJSON(t, s, "/extract_tables_enhanced", map[string]any{
		"pdf_base64":      encodePDF(tablePage()),
		"detect_captions": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.TableCount)
	assert.Equal(t, "", result.Tables[0].Caption)
}

func TestExtractFigures(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/extract_figures", map[string]string{"pdf_base64": encodePDF(figurePage())})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.FiguresResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	require.Equal(t, 1, result.FigureCount)
	assert.Equal(t, 1, result.Figures[0].Page)
	assert.Equal(t, 60, result.Figures[0].Width)
	assert.NotEmpty(t, result.Figures[0].ImageBase64)
}

func TestExtractFiguresEnhanced(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/extract_figures_enhanced", map[string]any{
		"pdf_base64": encodePDF(figurePage()),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.EnhancedFiguresResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.FigureCount)
	assert.Equal(t, "Figure 1. Brain MRI scan", result.Figures[0].Caption)

	// A min_size above the image dimensions filters it out.
	rec = postJSON(t, s, "/extract_figures_enhanced", map[string]any{
		"pdf_base64": encodePDF(figurePage()),
		"min_size":   100,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 0, result.FigureCount)
	assert.NotNil(t, result.Figures)
}

func TestCaptureHighlights(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/capture_highlights", map[string]any{
		"pdf_base64": encodePDF(helloPage()),
		"highlights": []map[string]any{{
			"page": 1, "x0": 72, "y0": 60, "x1": 102, "y1": 72,
			"label": "Greeting", "text": "Hello World",
		}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ScreenshotsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	require.Equal(t, 1, result.ScreenshotCount)
	shot := result.Screenshots[0]
	assert.Equal(t, 1, shot.Page)
	assert.Equal(t, "Greeting", shot.Label)
	assert.NotEmpty(t, shot.ImageBase64)
	assert.Greater(t, shot.Width, 0)
	assert.Greater(t, shot.Height, 0)
}

func TestCaptureHighlightsDefaults(t *testing.T) {
	s := newTestServer(t)

	// An empty highlight object falls back to page 1 and the default box.
	rec := postJSON(t, s, "/capture_highlights", map[string]any{
		"pdf_base64": encodePDF(helloPage()),
		"highlights": []map[string]any{{}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ScreenshotsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.ScreenshotCount)
	assert.Equal(t, 1, result.Screenshots[0].Page)
}

func TestCaptureHighlightsRequired(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/capture_highlights", map[string]any{
		"pdf_base64": encodePDF(helloPage()),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "highlights array required", errorMessage(t, rec))
}

func TestGenerateHTMLReport(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/generate_html_report", map[string]any{
		"pdf_base64": encodePDF(helloPage()),
		"title":      "Case Review",
		"extraction_data": map[string]any{
			"patient": map[string]any{
				"name": map[string]any{"value": "Alice", "sourceText": "Alice, 34"},
			},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ReportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Screenshots)
	assert.NotEmpty(t, result.Timestamp)
	assert.Contains(t, result.HTML, "Case Review")
	assert.Contains(t, result.HTML, "Alice")
}

func TestGenerateHTMLReportWithHighlights(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/generate_html_report", map[string]any{
		"pdf_base64": encodePDF(helloPage()),
		"highlights": []map[string]any{{
			"page": 1, "x0": 72, "y0": 60, "x1": 102, "y1": 72, "label": "Greeting",
		}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.ReportResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Screenshots)
	assert.Contains(t, result.HTML, "data:image/png;base64,")
	assert.Contains(t, result.HTML, "Greeting")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/extract_tables", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))

	// Origins outside the allow list get no CORS grant.
	req = httptest.NewRequest(http.MethodOptions, "/extract_tables", nil)
	req.Header.Set(echo.HeaderOrigin, "http://evil.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

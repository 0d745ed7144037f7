package models

// LayoutPage is one page of layout-preserving text extraction.
type LayoutPage struct {
	Page   int     `json:"page"`   // 1-based page number
	Text   string  `json:"text"`   // page text with line breaks preserved
	Width  float64 `json:"width"`  // page width in PDF points
	Height float64 `json:"height"` // page height in PDF points
}

// LayoutResult is the response of the layout text extraction operation.
// Text joins all pages with "--- Page N ---" separators.
type LayoutResult struct {
	Success   bool         `json:"success"`
	Text      string       `json:"text"`
	Pages     []LayoutPage `json:"pages"`
	PageCount int          `json:"page_count"`

	// OCRUsed reports that the document yielded no native text and the
	// text above came from the OCR fallback engine instead.
	OCRUsed bool `json:"ocr_used,omitempty"`
}

// WordPosition maps one word back to absolute character offsets in the
// accumulated document text and to its bounding box on the page.
// Offsets are byte offsets into the UTF-8 text.
type WordPosition struct {
	Text      string  `json:"text"`
	StartChar int     `json:"startChar"`
	EndChar   int     `json:"endChar"`
	X         float64 `json:"x"`      // left edge, PDF points
	Y         float64 `json:"y"`      // top edge, PDF points (top origin)
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Page      int     `json:"page"`
}

// PositionsResult is the response of the position-tracking extraction.
type PositionsResult struct {
	Success   bool           `json:"success"`
	Text      string         `json:"text"`
	Positions []WordPosition `json:"positions"`
	PageCount int            `json:"page_count"`
}

// Chunk is one page of the LLM-oriented export: plain text plus the page's
// table grids and its embedded image count.
type Chunk struct {
	Page   int          `json:"page"`
	Text   string       `json:"text"`
	Tables [][][]string `json:"tables"`
	Images int          `json:"images"`
}

// ChunksResult is the response of the LLM chunk export.
type ChunksResult struct {
	Success   bool    `json:"success"`
	Chunks    []Chunk `json:"chunks"`
	PageCount int     `json:"page_count"`
}

// Section is a labeled region of the document in absolute character offsets.
// Page is the page on which the section's successor heading was found.
type Section struct {
	Name      string `json:"name"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	Page      int    `json:"page"`
}

// SectionsResult is the response of the section detection operation.
type SectionsResult struct {
	Success      bool      `json:"success"`
	Sections     []Section `json:"sections"`
	SectionCount int       `json:"section_count"`
}

// Table is one reconstructed table. Headers is the first grid row, Rows the
// remainder, Raw the full grid. Absent cells are empty strings.
type Table struct {
	Page       int        `json:"page"`
	TableIndex int        `json:"table_index"` // 0-based index within the page
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	Raw        [][]string `json:"raw"`
}

// EnhancedTable adds caption pairing and shape metadata. Headers is the
// first row containing any non-blank cell; cells are whitespace-normalized.
type EnhancedTable struct {
	Page        int        `json:"page"`
	TableIndex  int        `json:"table_index"`
	Caption     string     `json:"caption"`
	Headers     []string   `json:"headers"`
	Rows        [][]string `json:"rows"`
	Raw         [][]string `json:"raw"`
	ColumnCount int        `json:"column_count"`
	RowCount    int        `json:"row_count"`
}

// TablesResult is the response of the basic table extraction operation.
type TablesResult struct {
	Success    bool    `json:"success"`
	Tables     []Table `json:"tables"`
	TableCount int     `json:"table_count"`
}

// EnhancedTablesResult is the response of the enhanced table extraction.
type EnhancedTablesResult struct {
	Success    bool            `json:"success"`
	Tables     []EnhancedTable `json:"tables"`
	TableCount int             `json:"table_count"`
}

// Figure is one embedded image, re-encoded as PNG. BBox is the placement
// rectangle [x0, top, x1, bottom] in PDF points, or nil when the content
// stream gives no placement.
type Figure struct {
	Page        int       `json:"page"`
	ImageBase64 string    `json:"image_base64"`
	BBox        []float64 `json:"bbox"`
	Width       int       `json:"width"`  // pixel width of the source image
	Height      int       `json:"height"` // pixel height of the source image
}

// EnhancedFigure adds index-paired captions and the source encoding.
type EnhancedFigure struct {
	Page        int       `json:"page"`
	FigureIndex int       `json:"figure_index"` // 0-based index within the page
	Caption     string    `json:"caption"`
	ImageBase64 string    `json:"image_base64"`
	BBox        []float64 `json:"bbox"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Format      string    `json:"format"` // source encoding (png, jpeg, ...), "unknown" if undetermined
}

// FiguresResult is the response of the basic figure extraction operation.
type FiguresResult struct {
	Success     bool     `json:"success"`
	Figures     []Figure `json:"figures"`
	FigureCount int      `json:"figure_count"`
}

// EnhancedFiguresResult is the response of the enhanced figure extraction.
type EnhancedFiguresResult struct {
	Success     bool             `json:"success"`
	Figures     []EnhancedFigure `json:"figures"`
	FigureCount int              `json:"figure_count"`
}

// Highlight is an evidence region to render: a box in PDF points (top
// origin) on a 1-based page, with the quoted source text and a display label.
type Highlight struct {
	Page  int     `json:"page"`
	Text  string  `json:"text"`
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	Label string  `json:"label"`
}

// Screenshot is one rendered highlight crop. Width and Height are the crop
// dimensions in pixels at the requested DPI.
type Screenshot struct {
	Page        int    `json:"page"`
	Label       string `json:"label"`
	Text        string `json:"text"`
	ImageBase64 string `json:"image_base64"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// ScreenshotsResult is the response of the highlight capture operation.
type ScreenshotsResult struct {
	Success         bool         `json:"success"`
	Screenshots     []Screenshot `json:"screenshots"`
	ScreenshotCount int          `json:"screenshot_count"`
}

// ReportResult is the response of the HTML report operation. Screenshots is
// the number of evidence images embedded in the document.
type ReportResult struct {
	Success     bool   `json:"success"`
	HTML        string `json:"html"`
	Screenshots int    `json:"screenshots"`
	Timestamp   string `json:"timestamp"` // ISO-8601 generation time
}

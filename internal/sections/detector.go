// Package sections locates document structure in extracted page text by
// matching section headings at line starts.
package sections

import (
	"regexp"
	"strings"

	"pdfextract/pkg/models"
)

// headingPattern maps a line-start expression to a canonical section name.
// Order matters: the first matching pattern wins for a line.
type headingPattern struct {
	re   *regexp.Regexp
	name string
}

// Prose headings must be the whole line; table and figure labels only
// anchor at the start so "Table 2. Outcomes" still matches.
var headingPatterns = []headingPattern{
	{regexp.MustCompile(`^abstract$`), "abstract"},
	{regexp.MustCompile(`^(?:introduction|background)$`), "introduction"},
	{regexp.MustCompile(`^(?:methods|patients|materials|study design|subjects)$`), "methods"},
	{regexp.MustCompile(`^(?:patients and methods|materials and methods)$`), "methods"},
	{regexp.MustCompile(`^results$`), "results"},
	{regexp.MustCompile(`^discussion$`), "discussion"},
	{regexp.MustCompile(`^conclusions?$`), "conclusion"},
	{regexp.MustCompile(`^(?:references|bibliography)$`), "references"},
	{regexp.MustCompile(`^table\s*\d`), "table"},
	{regexp.MustCompile(`^(?:figure|fig\.?)\s*\d`), "figure"},
}

// Detect scans page text line by line and returns the sections found, in
// document order. Character offsets are byte offsets into the concatenation
// of all lines, each line counted with a trailing newline. A heading closes
// the previous section at the heading's start; the page recorded for a
// section is the page on which it ends.
func Detect(pages []models.LayoutPage) []models.Section {
	sections := []models.Section{}

	var open *models.Section
	charIndex := 0
	lastPage := 0

	for _, p := range pages {
		lastPage = p.Page
		for _, line := range strings.Split(p.Text, "\n") {
			cleaned := strings.ToLower(strings.TrimSpace(line))
			for _, hp := range headingPatterns {
				if !hp.re.MatchString(cleaned) {
					continue
				}
				if open != nil {
					open.EndChar = charIndex
					open.Page = p.Page
					sections = append(sections, *open)
				}
				open = &models.Section{Name: hp.name, StartChar: charIndex}
				break
			}
			charIndex += len(line) + 1
		}
	}

	if open != nil {
		open.EndChar = charIndex
		open.Page = lastPage
		sections = append(sections, *open)
	}

	return sections
}

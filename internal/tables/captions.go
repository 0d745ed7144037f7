package tables

import (
	"regexp"
	"strings"
)

// Caption lines start with "Table N." or "Tab N:" followed by text.
var tableCaptionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^table\s*\d+[.:]\s*.+$`),
	regexp.MustCompile(`(?i)^tab\s*\d+[.:]\s*.+$`),
}

// findTableCaptions returns the page's caption lines in order of appearance,
// whitespace-trimmed. The n-th caption is later paired with the n-th table
// on the page.
func findTableCaptions(pageText string) []string {
	var captions []string
	for _, line := range strings.Split(pageText, "\n") {
		trimmed := strings.TrimSpace(line)
		for _, re := range tableCaptionPatterns {
			if re.MatchString(trimmed) {
				captions = append(captions, trimmed)
				break
			}
		}
	}
	return captions
}

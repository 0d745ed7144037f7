package figures

import (
	"regexp"
	"strings"
)

// Figure captions start with a "Figure N." or "Fig. N:" style prefix at the
// beginning of a line. Matching is case insensitive, which also covers the
// all-caps journal variant.
var figureCaptionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^figure\s*\d+[.:]\s*.+$`),
	regexp.MustCompile(`(?i)^fig\s*\.?\s*\d+[.:]\s*.+$`),
}

// findFigureCaptions returns the caption lines of a page in reading order.
// The whole trimmed line is kept, prefix included.
func findFigureCaptions(pageText string) []string {
	var captions []string
	for _, line := range strings.Split(pageText, "\n") {
		line = strings.TrimSpace(line)
		for _, pattern := range figureCaptionPatterns {
			if pattern.MatchString(line) {
				captions = append(captions, line)
				break
			}
		}
	}
	return captions
}

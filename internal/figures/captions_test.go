package figures

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindFigureCaptions(t *testing.T) {
	pageText := "Methods were described previously.\n" +
		"Figure 1. Axial CT at admission\n" +
		"  FIGURE 2: Kaplan-Meier survival curve  \n" +
		"Fig. 3. Study flow diagram\n" +
		"Figures 4 and 5 appear in the appendix.\n" +
		"Fig leaf ornamentation is out of scope.\n" +
		"Figure 6 without a separator\n"

	captions := findFigureCaptions(pageText)
	assert.Equal(t, []string{
		"Figure 1. Axial CT at admission",
		"FIGURE 2: Kaplan-Meier survival curve",
		"Fig. 3. Study flow diagram",
	}, captions)
}

func TestFindFigureCaptionsEmpty(t *testing.T) {
	assert.Empty(t, findFigureCaptions(""))
	assert.Empty(t, findFigureCaptions("No labeled artwork on this page.\nJust prose.\n"))
}

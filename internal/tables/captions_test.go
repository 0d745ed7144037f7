package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindTableCaptions(t *testing.T) {
	text := "Some prose first.\n" +
		"Table 1. Patient demographics\n" +
		"  TABLE 2: Outcomes at follow-up  \n" +
		"Tab 3. Complication rates\n" +
		"Table without a number\n" +
		"Subtable 1. Not at line start\n" +
		"Table 4 missing separator\n"

	captions := findTableCaptions(text)
	assert.Equal(t, []string{
		"Table 1. Patient demographics",
		"TABLE 2: Outcomes at follow-up",
		"Tab 3. Complication rates",
	}, captions)
}

func TestFindTableCaptionsEmpty(t *testing.T) {
	assert.Empty(t, findTableCaptions(""))
	assert.Empty(t, findTableCaptions("no captions here\njust text"))
}

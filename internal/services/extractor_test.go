package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText_TrimsLines(t *testing.T) {
	cleaned := CleanText("  line one  \n\t line two \n")

	assert.Equal(t, "line one\nline two", cleaned)
}

func TestCleanText_CollapsesBlankRunsToOne(t *testing.T) {
	cleaned := CleanText("intro paragraph\n\n\n\n\nbody paragraph\n\nconclusion paragraph")

	assert.Equal(t, "intro paragraph\n\nbody paragraph\n\nconclusion paragraph", cleaned)
}

func TestCleanText_KeepsParagraphBoundariesForLayout(t *testing.T) {
	cleaned := CleanText("first   \n\n\n  second  ")

	// Two paragraphs must survive cleaning, or the layout heuristic would
	// never see them on OCR output.
	assert.InDelta(t, 0.2, ScoreLayout(cleaned), 1e-9)
}

func TestCleanText_DropsLeadingAndTrailingBlanks(t *testing.T) {
	cleaned := CleanText("\n\n\n  only paragraph  \n\n\n")

	assert.Equal(t, "only paragraph", cleaned)
}

func TestCleanText_Empty(t *testing.T) {
	assert.Equal(t, "", CleanText(""))
	assert.Equal(t, "", CleanText("   \n\n \t "))
}

func TestCleanText_LinesWithOnlySpacesCountAsBlank(t *testing.T) {
	cleaned := CleanText("first\n   \t  \nsecond")

	assert.Equal(t, "first\n\nsecond", cleaned)
}

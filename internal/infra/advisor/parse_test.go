package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecommendation_FullResponse(t *testing.T) {
	text := `Recommended provider: claude
Reasoning: The task touches several files and needs careful refactoring.
It benefits from long context.

Alternatives: codex, vibe
Confidence score: 85%`

	rec, err := ParseRecommendation(text)
	require.NoError(t, err)
	assert.Equal(t, "claude", rec.Provider)
	assert.Equal(t, "The task touches several files and needs careful refactoring.\nIt benefits from long context.", rec.Reasoning)
	assert.Equal(t, []string{"codex", "vibe"}, rec.Alternatives)
	assert.Equal(t, 85, rec.Confidence)
}

func TestParseRecommendation_MarkdownDecorations(t *testing.T) {
	text := `Sure! Here is my analysis.

**Recommended provider:** Codex
**Reasoning:** Small scoped change.
**Alternatives:** Claude
**Confidence score:** 60%`

	rec, err := ParseRecommendation(text)
	require.NoError(t, err)
	assert.Equal(t, "Codex", rec.Provider)
	assert.Equal(t, "Small scoped change.", rec.Reasoning)
	assert.Equal(t, []string{"Claude"}, rec.Alternatives)
	assert.Equal(t, 60, rec.Confidence)
}

func TestParseRecommendation_Defaults(t *testing.T) {
	rec, err := ParseRecommendation("recommended provider: vibe\nAlternatives: none")
	require.NoError(t, err)
	assert.Equal(t, "vibe", rec.Provider)
	assert.Equal(t, DefaultConfidence, rec.Confidence)
	assert.Empty(t, rec.Alternatives)
	assert.Empty(t, rec.Reasoning)
}

func TestParseRecommendation_ClampsConfidence(t *testing.T) {
	rec, err := ParseRecommendation("Recommended provider: vibe\nConfidence score: 250%")
	require.NoError(t, err)
	assert.Equal(t, 100, rec.Confidence)
}

func TestParseRecommendation_NoProvider(t *testing.T) {
	for _, text := range []string{
		"",
		"I think claude would be a good choice.",
		"Recommended provider:",
	} {
		_, err := ParseRecommendation(text)
		assert.ErrorIs(t, err, ErrNoRecommendation, "text %q", text)
	}
}

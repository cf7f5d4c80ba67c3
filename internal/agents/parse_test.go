package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var researcherDims = []string{
	"SCIENTIFIC SIGNIFICANCE",
	"RESEARCH METHODOLOGY",
	"NOVELTY AND INNOVATION",
	"SPACE-SPECIFIC NECESSITY",
	"SCIENTIFIC IMPACT",
}

func TestParseDimensionScoresWellFormed(t *testing.T) {
	content := `[SCIENTIFIC SIGNIFICANCE]
Analysis: Addresses fundamental questions about bone remodeling.
Score: 9/10

[RESEARCH METHODOLOGY]
Analysis: Sound longitudinal design with established assays.
Score: 8/10

[NOVELTY AND INNOVATION]
Analysis: Incremental but well motivated.
Score: 7/10

[SPACE-SPECIFIC NECESSITY]
Analysis: Cannot be replicated in ground analogs.
Score: 9/10

[SCIENTIFIC IMPACT]
Analysis: Results generalize to terrestrial osteoporosis.
Score: 10/10`

	scores := parseDimensionScores(content, researcherDims)
	assert.Equal(t, map[string]int{
		"SCIENTIFIC SIGNIFICANCE":  9,
		"RESEARCH METHODOLOGY":     8,
		"NOVELTY AND INNOVATION":   7,
		"SPACE-SPECIFIC NECESSITY": 9,
		"SCIENTIFIC IMPACT":        10,
	}, scores)
}

func TestParseDimensionScoresDecoratedHeaders(t *testing.T) {
	content := `**1. SCIENTIFIC SIGNIFICANCE**
Analysis: Important.
Score: 8

### Research Methodology
Score: 6/10`

	scores := parseDimensionScores(content, researcherDims)
	assert.Equal(t, 8, scores["SCIENTIFIC SIGNIFICANCE"])
	assert.Equal(t, 6, scores["RESEARCH METHODOLOGY"])
}

func TestParseDimensionScoresOutOfRangeIgnored(t *testing.T) {
	content := `[SCIENTIFIC SIGNIFICANCE]
Score: 0/10

[RESEARCH METHODOLOGY]
Score: 11/10`

	scores := parseDimensionScores(content, researcherDims)
	assert.Empty(t, scores)
}

func TestParseDimensionScoresSummaryNotAttributed(t *testing.T) {
	content := `[SCIENTIFIC IMPACT]
Analysis: Strong downstream impact.
Score: 8/10

OVERALL ASSESSMENT
This is an excellent topic overall.
Score: 9/10`

	scores := parseDimensionScores(content, researcherDims)
	assert.Equal(t, map[string]int{"SCIENTIFIC IMPACT": 8}, scores)
}

func TestParseDimensionScoresAnalysisMentioningOtherDimension(t *testing.T) {
	content := `[NOVELTY AND INNOVATION]
Analysis: The novelty also bears on SCIENTIFIC IMPACT in the long run.
Score: 7/10`

	scores := parseDimensionScores(content, researcherDims)
	assert.Equal(t, map[string]int{"NOVELTY AND INNOVATION": 7}, scores)
}

func TestParseDimensionScoresFirstScoreWins(t *testing.T) {
	content := `[SCIENTIFIC SIGNIFICANCE]
Score: 7/10
Score: 3/10`

	scores := parseDimensionScores(content, researcherDims)
	assert.Equal(t, map[string]int{"SCIENTIFIC SIGNIFICANCE": 7}, scores)
}

func TestParseDimensionScoresNothingParseable(t *testing.T) {
	scores := parseDimensionScores("I am unable to evaluate this topic.", researcherDims)
	assert.Empty(t, scores)
}

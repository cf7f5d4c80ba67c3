package agents

import (
	"regexp"
	"strconv"
	"strings"
)

var scoreLinePattern = regexp.MustCompile(`(?i)\bscore\b[:\s]*(\d{1,2})(?:\s*/\s*10)?`)

// parseDimensionScores scans a model response for the declared dimensions and
// returns the scores it can recover. Keys are the canonical dimension names
// regardless of the casing or decoration the model used for its headers.
// Dimensions without a parseable in-range score are absent from the result.
func parseDimensionScores(content string, dimensions []string) map[string]int {
	scores := make(map[string]int, len(dimensions))
	current := ""

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if dim := matchDimensionHeader(trimmed, dimensions); dim != "" {
			current = dim
		} else if isSummaryHeader(trimmed) {
			// Don't attribute the overall-assessment score to the
			// last dimension section.
			current = ""
			continue
		}

		if current == "" {
			continue
		}
		if _, done := scores[current]; done {
			continue
		}

		if match := scoreLinePattern.FindStringSubmatch(trimmed); match != nil {
			value, err := strconv.Atoi(match[1])
			if err == nil && value >= 1 && value <= 10 {
				scores[current] = value
			}
		}
	}

	return scores
}

func matchDimensionHeader(line string, dimensions []string) string {
	// Analysis and score lines routinely mention dimension names in
	// running text; only standalone header lines count.
	if strings.HasPrefix(line, "Analysis") || strings.HasPrefix(line, "Score") {
		return ""
	}

	upper := strings.ToUpper(line)
	for _, dim := range dimensions {
		if strings.Contains(upper, dim) {
			return dim
		}
	}
	return ""
}

var summaryKeywords = []string{"OVERALL", "SUMMARY", "ASSESSMENT", "CONCLUSION"}

func isSummaryHeader(line string) bool {
	upper := strings.TrimLeft(strings.ToUpper(line), "[#* ")
	if strings.HasPrefix(upper, "ANALYSIS") {
		return false
	}
	for _, keyword := range summaryKeywords {
		if strings.HasPrefix(upper, keyword) {
			return true
		}
	}
	return false
}

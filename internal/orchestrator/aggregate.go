package orchestrator

import (
	"errors"
	"math"
)

// ErrNoScores reports aggregation over an empty score set, which only happens
// when every agent failed.
var ErrNoScores = errors.New("no agent scores to aggregate")

// DefaultWeights is the fixed role weight table. Values sum to 1.0 across the
// five roles; Aggregate renormalizes anyway so partial results stay on the
// 1-10 scale.
var DefaultWeights = map[string]float64{
	"sociologist":             0.41,
	"researcher":              0.37,
	"science_project_manager": 0.13,
	"engineer":                0.05,
	"astronaut":               0.04,
}

// Aggregate combines per-role overall scores into the weighted total, rounded
// to two decimals. Roles missing from scores contribute neither score nor
// weight: the sum is divided by the present-role weight mass, so losing an
// agent rescales the remaining contributions instead of zeroing its share.
func Aggregate(scores map[string]float64, weights map[string]float64) (float64, error) {
	var sum, mass float64

	for role, score := range scores {
		weight, ok := weights[role]
		if !ok {
			continue
		}
		sum += weight * score
		mass += weight
	}

	if mass == 0 {
		return 0, ErrNoScores
	}

	return math.Round(sum/mass*100) / 100, nil
}

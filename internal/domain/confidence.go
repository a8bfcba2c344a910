package domain

import "math"

// Confidence expresses how consistent the five criterion levels are with
// each other.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// RankSpread returns the largest absolute deviation of a criterion band from
// the mean band. Bands are numbered A1=1 through C2=6 with any "+" dropped,
// so B2 and B2+ count the same.
func RankSpread(a SpeakingAssessment) float64 {
	ranks := a.BandRanks()
	var mean float64
	for _, r := range ranks {
		mean += r
	}
	mean /= float64(len(ranks))

	var spread float64
	for _, r := range ranks {
		spread = math.Max(spread, math.Abs(r-mean))
	}
	return spread
}

// AssessConfidence grades the spread: below half a band is high, below a
// full band is medium, anything wider is low.
func AssessConfidence(a SpeakingAssessment) Confidence {
	switch spread := RankSpread(a); {
	case spread < 0.5:
		return ConfidenceHigh
	case spread < 1.0:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

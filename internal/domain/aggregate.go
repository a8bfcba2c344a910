package domain

// LevelAggregator is a domain service that turns five criterion levels into
// a single holistic level and advises on the next step up the scale.
// It holds no state and is safe for concurrent use.
type LevelAggregator struct{}

// NewLevelAggregator creates a new level aggregator
func NewLevelAggregator() *LevelAggregator {
	return &LevelAggregator{}
}

// Aggregate computes the overall level of an assessment.
func (LevelAggregator) Aggregate(a SpeakingAssessment) Level {
	return Aggregate(a)
}

// WeightedRank returns the unrounded weighted mean rank.
func (LevelAggregator) WeightedRank(a SpeakingAssessment) float64 {
	return WeightedRank(a)
}

// ImprovementPath returns the next level and focus areas for l.
func (LevelAggregator) ImprovementPath(l Level) ImprovementPath {
	return NewImprovementPath(l)
}

// WeightedRank returns sum(rank*weight)/sum(weight) over the five criteria.
func WeightedRank(a SpeakingAssessment) float64 {
	var sum float64
	for i, c := range criteria {
		sum += ToRank(a.levels[i]) * c.Weight()
	}
	return sum / TotalWeight
}

// Aggregate rounds the weighted mean rank to the nearest half step and maps
// it back onto the scale. The result always lies between the lowest and
// highest criterion level.
func Aggregate(a SpeakingAssessment) Level {
	return FromRank(RoundHalfStep(WeightedRank(a)))
}

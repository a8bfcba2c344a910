package domain

import (
	"fmt"
	"strings"
)

// Criterion is one of the five independently assessed dimensions of
// spoken proficiency.
type Criterion string

const (
	CriterionRange       Criterion = "range"
	CriterionAccuracy    Criterion = "accuracy"
	CriterionFluency     Criterion = "fluency"
	CriterionInteraction Criterion = "interaction"
	CriterionCoherence   Criterion = "coherence"
)

// criteria is the canonical order used in prompts, tables and responses.
var criteria = [...]Criterion{
	CriterionRange,
	CriterionAccuracy,
	CriterionFluency,
	CriterionInteraction,
	CriterionCoherence,
}

// criterionInfo holds per-criterion constants.
type criterionInfo struct {
	weight      float64
	displayName string
	color       string
}

// Range, fluency and interaction outweigh accuracy and coherence.
var criterionTable = map[Criterion]criterionInfo{
	CriterionRange:       {weight: 1.2, displayName: "Range (Vocabulary)", color: "purple"},
	CriterionAccuracy:    {weight: 1.0, displayName: "Accuracy (Grammar)", color: "red"},
	CriterionFluency:     {weight: 1.2, displayName: "Fluency", color: "blue"},
	CriterionInteraction: {weight: 1.1, displayName: "Interaction", color: "green"},
	CriterionCoherence:   {weight: 1.0, displayName: "Coherence", color: "orange"},
}

// TotalWeight is the sum of all criterion weights.
const TotalWeight = 5.5

// Criteria returns the five criteria in canonical order.
func Criteria() []Criterion {
	out := make([]Criterion, len(criteria))
	copy(out, criteria[:])
	return out
}

// ParseCriterion validates a criterion name (case-insensitive).
func ParseCriterion(s string) (Criterion, error) {
	c := Criterion(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCriterion, s)
	}
	return c, nil
}

// Valid reports whether c is one of the five criteria.
func (c Criterion) Valid() bool {
	_, ok := criterionTable[c]
	return ok
}

// Weight returns the aggregation weight of c.
func (c Criterion) Weight() float64 {
	return criterionTable[c].weight
}

// DisplayName returns the human readable criterion name.
func (c Criterion) DisplayName() string {
	return criterionTable[c].displayName
}

// Color returns the UI color associated with c.
func (c Criterion) Color() string {
	return criterionTable[c].color
}

func (c Criterion) String() string {
	return string(c)
}

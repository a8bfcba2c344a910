package domain

import (
	"fmt"
)

// CriterionAssessment is the level assigned to a single criterion.
type CriterionAssessment struct {
	Criterion Criterion `json:"criterion"`
	Level     Level     `json:"level"`
}

// SpeakingAssessment holds exactly one level per criterion. Construct it
// with NewSpeakingAssessment; the zero value is not usable.
type SpeakingAssessment struct {
	levels [len(criteria)]Level
}

// NewSpeakingAssessment validates that every criterion appears exactly once
// with a valid level.
func NewSpeakingAssessment(items ...CriterionAssessment) (SpeakingAssessment, error) {
	var a SpeakingAssessment
	seen := make(map[Criterion]bool, len(criteria))

	for _, item := range items {
		if !item.Criterion.Valid() {
			return SpeakingAssessment{}, fmt.Errorf("%w: %w: %q", ErrInvalidAssessment, ErrUnknownCriterion, item.Criterion)
		}
		if seen[item.Criterion] {
			return SpeakingAssessment{}, fmt.Errorf("%w: %w: %s", ErrInvalidAssessment, ErrDuplicateCriterion, item.Criterion)
		}
		if !item.Level.Valid() {
			return SpeakingAssessment{}, fmt.Errorf("%w: %w: %s=%q", ErrInvalidAssessment, ErrInvalidLevel, item.Criterion, item.Level)
		}
		seen[item.Criterion] = true
		a.levels[criterionIndex(item.Criterion)] = item.Level
	}

	for _, c := range criteria {
		if !seen[c] {
			return SpeakingAssessment{}, fmt.Errorf("%w: %w: %s", ErrInvalidAssessment, ErrMissingCriterion, c)
		}
	}
	return a, nil
}

// AssessmentFromMap builds an assessment from a criterion → level map.
func AssessmentFromMap(m map[Criterion]Level) (SpeakingAssessment, error) {
	items := make([]CriterionAssessment, 0, len(m))
	for c, l := range m {
		items = append(items, CriterionAssessment{Criterion: c, Level: l})
	}
	return NewSpeakingAssessment(items...)
}

// UniformAssessment assigns the same level to every criterion.
func UniformAssessment(l Level) (SpeakingAssessment, error) {
	items := make([]CriterionAssessment, 0, len(criteria))
	for _, c := range criteria {
		items = append(items, CriterionAssessment{Criterion: c, Level: l})
	}
	return NewSpeakingAssessment(items...)
}

func criterionIndex(c Criterion) int {
	for i, v := range criteria {
		if v == c {
			return i
		}
	}
	return -1
}

// Level returns the level assigned to c.
func (a SpeakingAssessment) Level(c Criterion) Level {
	i := criterionIndex(c)
	if i < 0 {
		return ""
	}
	return a.levels[i]
}

// Items returns the assessments in canonical criterion order.
func (a SpeakingAssessment) Items() []CriterionAssessment {
	out := make([]CriterionAssessment, len(criteria))
	for i, c := range criteria {
		out[i] = CriterionAssessment{Criterion: c, Level: a.levels[i]}
	}
	return out
}

// Min returns the lowest criterion level.
func (a SpeakingAssessment) Min() Level {
	lo := a.levels[0]
	for _, l := range a.levels[1:] {
		if l.Compare(lo) < 0 {
			lo = l
		}
	}
	return lo
}

// Max returns the highest criterion level.
func (a SpeakingAssessment) Max() Level {
	hi := a.levels[0]
	for _, l := range a.levels[1:] {
		if l.Compare(hi) > 0 {
			hi = l
		}
	}
	return hi
}

// BandRanks returns the whole-band number (1..6) of each criterion in
// canonical order.
func (a SpeakingAssessment) BandRanks() []float64 {
	out := make([]float64, len(criteria))
	for i, l := range a.levels {
		out[i] = ToRank(l.Band())
	}
	return out
}

package domain

import "fmt"

// Severity grades a single piece of detailed feedback.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeverityMajor:
		return true
	}
	return false
}

// FeedbackItem points at one phrase from the learner's speech.
type FeedbackItem struct {
	Phrase     string    `json:"phrase"`
	Issue      string    `json:"issue"`
	Criterion  Criterion `json:"criterion"`
	Severity   Severity  `json:"severity"`
	Suggestion string    `json:"suggestion"`
}

// Analysis is a graded speaking sample: five criterion levels, the derived
// overall level and the feedback produced by the grader.
type Analysis struct {
	Assessment   SpeakingAssessment     `json:"-"`
	OverallLevel Level                  `json:"overall_level"`
	WeightedRank float64                `json:"weighted_rank"`
	Confidence   Confidence             `json:"confidence"`
	Feedback     map[Criterion][]string `json:"feedback"`
	Strengths    []string               `json:"strengths"`
	Improvements []string               `json:"improvements"`
	Detailed     []FeedbackItem         `json:"detailed_feedback"`
	Transcript   string                 `json:"verbatim_transcript,omitempty"`
	// GlobalDescriptor is the descriptor of OverallLevel, translated when
	// the grader was asked for non-English feedback.
	GlobalDescriptor string `json:"global_descriptor"`
}

// NewAnalysis derives the overall level and confidence from a validated
// assessment. Feedback fields are filled in by the caller.
func NewAnalysis(a SpeakingAssessment) *Analysis {
	overall := Aggregate(a)
	return &Analysis{
		Assessment:       a,
		OverallLevel:     overall,
		WeightedRank:     WeightedRank(a),
		Confidence:       AssessConfidence(a),
		Feedback:         make(map[Criterion][]string, len(criteria)),
		GlobalDescriptor: GlobalDescriptor(overall),
	}
}

// CriterionLevels returns the five levels keyed by criterion.
func (a *Analysis) CriterionLevels() map[Criterion]Level {
	out := make(map[Criterion]Level, len(criteria))
	for _, item := range a.Assessment.Items() {
		out[item.Criterion] = item.Level
	}
	return out
}

// Path returns the improvement path from the overall level.
func (a *Analysis) Path() ImprovementPath {
	return NewImprovementPath(a.OverallLevel)
}

// Validate checks the detailed feedback items reference known criteria and
// severities.
func (a *Analysis) Validate() error {
	for i, item := range a.Detailed {
		if !item.Criterion.Valid() {
			return fmt.Errorf("detailed_feedback[%d]: %w: %q", i, ErrUnknownCriterion, item.Criterion)
		}
		if !item.Severity.Valid() {
			return fmt.Errorf("detailed_feedback[%d]: %w: severity %q", i, ErrInvalidInput, item.Severity)
		}
	}
	return nil
}

package grading

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

var (
	// ErrNoJSON is returned when the model answer contains no JSON object.
	ErrNoJSON = errors.New("no JSON object in model response")
	// ErrMalformedResponse wraps JSON decoding and validation failures.
	ErrMalformedResponse = errors.New("malformed grading response")
)

var fencePattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractJSON pulls the JSON document out of a model answer. A ```json
// fenced block wins; otherwise everything from the first '{' to the last
// '}' is returned.
func ExtractJSON(text string) (string, error) {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}

// stringList accepts a JSON array of strings or a single string. A string is
// split on newlines, or on commas when it has no newlines.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	if data[0] == '[' {
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, v := range raw {
			switch t := v.(type) {
			case string:
				if t = strings.TrimSpace(t); t != "" {
					out = append(out, t)
				}
			case nil:
			default:
				out = append(out, fmt.Sprint(t))
			}
		}
		*s = out
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = splitFeedback(str)
	return nil
}

func splitFeedback(str string) []string {
	sep := "\n"
	if !strings.Contains(str, "\n") {
		sep = ","
	}
	var out []string
	for _, part := range strings.Split(str, sep) {
		part = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(part), "-•*"))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// feedbackItems accepts an array of objects, or a single object.
type feedbackItems []domain.FeedbackItem

func (f *feedbackItems) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	var raw []rawFeedbackItem
	if data[0] == '{' {
		var one rawFeedbackItem
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		raw = []rawFeedbackItem{one}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make([]domain.FeedbackItem, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.FeedbackItem{
			Phrase:     r.Phrase,
			Issue:      r.Issue,
			Criterion:  domain.Criterion(strings.ToLower(strings.TrimSpace(r.Criterion))),
			Severity:   domain.Severity(strings.ToLower(strings.TrimSpace(r.Severity))),
			Suggestion: r.Suggestion,
		})
	}
	*f = out
	return nil
}

type rawFeedbackItem struct {
	Phrase     string `json:"phrase"`
	Issue      string `json:"issue"`
	Criterion  string `json:"criterion"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion"`
}

// rawAnalysis mirrors the JSON the grading prompt asks for.
type rawAnalysis struct {
	OverallLevel     string `json:"overall_level"`
	RangeLevel       string `json:"range_level"`
	AccuracyLevel    string `json:"accuracy_level"`
	FluencyLevel     string `json:"fluency_level"`
	InteractionLevel string `json:"interaction_level"`
	CoherenceLevel   string `json:"coherence_level"`

	RangeFeedback       stringList `json:"range_feedback"`
	AccuracyFeedback    stringList `json:"accuracy_feedback"`
	FluencyFeedback     stringList `json:"fluency_feedback"`
	InteractionFeedback stringList `json:"interaction_feedback"`
	CoherenceFeedback   stringList `json:"coherence_feedback"`

	Strengths    stringList    `json:"strengths"`
	Improvements stringList    `json:"improvements"`
	Detailed     feedbackItems `json:"detailed_feedback"`

	Transcript           string `json:"verbatim_transcript"`
	TranslatedDescriptor string `json:"global_descriptor_translated"`
}

func (r *rawAnalysis) levels() map[domain.Criterion]string {
	return map[domain.Criterion]string{
		domain.CriterionRange:       r.RangeLevel,
		domain.CriterionAccuracy:    r.AccuracyLevel,
		domain.CriterionFluency:     r.FluencyLevel,
		domain.CriterionInteraction: r.InteractionLevel,
		domain.CriterionCoherence:   r.CoherenceLevel,
	}
}

func (r *rawAnalysis) feedback() map[domain.Criterion][]string {
	return map[domain.Criterion][]string{
		domain.CriterionRange:       r.RangeFeedback,
		domain.CriterionAccuracy:    r.AccuracyFeedback,
		domain.CriterionFluency:     r.FluencyFeedback,
		domain.CriterionInteraction: r.InteractionFeedback,
		domain.CriterionCoherence:   r.CoherenceFeedback,
	}
}

// ParseAnalysis decodes a model answer into a validated Analysis. The
// model's own overall_level is ignored; the overall level is always
// recomputed from the five criterion levels.
func ParseAnalysis(text string) (*domain.Analysis, error) {
	doc, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	items := make([]domain.CriterionAssessment, 0, 5)
	for _, c := range domain.Criteria() {
		tag := raw.levels()[c]
		if strings.TrimSpace(tag) == "" {
			return nil, fmt.Errorf("%w: %s_level: %w", ErrMalformedResponse, c, domain.ErrMissingCriterion)
		}
		l, err := domain.ParseLevel(tag)
		if err != nil {
			return nil, fmt.Errorf("%w: %s_level: %w", ErrMalformedResponse, c, err)
		}
		items = append(items, domain.CriterionAssessment{Criterion: c, Level: l})
	}

	assessment, err := domain.NewSpeakingAssessment(items...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	a := domain.NewAnalysis(assessment)
	a.Feedback = raw.feedback()
	a.Strengths = raw.Strengths
	a.Improvements = raw.Improvements
	a.Detailed = dropInvalidItems(raw.Detailed)
	a.Transcript = strings.TrimSpace(raw.Transcript)
	if d := strings.TrimSpace(raw.TranslatedDescriptor); d != "" {
		a.GlobalDescriptor = d
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return a, nil
}

// dropInvalidItems removes detailed feedback the UI cannot attribute.
func dropInvalidItems(items []domain.FeedbackItem) []domain.FeedbackItem {
	out := items[:0]
	for _, it := range items {
		if !it.Criterion.Valid() {
			continue
		}
		if !it.Severity.Valid() {
			it.Severity = domain.SeverityMinor
		}
		out = append(out, it)
	}
	return out
}

// ParseIELTS decodes a band-score answer and normalises the scores.
func ParseIELTS(text string) (*domain.IELTSAnalysis, error) {
	doc, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var a domain.IELTSAnalysis
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	a.Normalize()
	return &a, nil
}

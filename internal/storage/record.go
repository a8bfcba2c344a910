// Package storage holds the row mapping shared by the SQL stores. The
// sqlite and postgres packages differ only in dialect.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

// PracticeColumns is the column order of PracticeRecord.Args and
// PracticeRecord.ScanTargets.
const PracticeColumns = `id, user_id, kind, topic, target_level, language,
	overall_level, weighted_rank, confidence,
	range_level, accuracy_level, fluency_level, interaction_level, coherence_level,
	feedback, transcript, created_at`

// PracticeRecord is the flat row form of a domain.PracticeSession.
type PracticeRecord struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Kind         string
	Topic        string
	TargetLevel  string
	Language     string
	OverallLevel string
	WeightedRank float64
	Confidence   string

	Range       string
	Accuracy    string
	Fluency     string
	Interaction string
	Coherence   string

	// Feedback is NULL for sessions graded without any written feedback.
	Feedback   pqtype.NullRawMessage
	Transcript string
	CreatedAt  time.Time
}

// feedbackPayload is the JSON document kept in the feedback column.
type feedbackPayload struct {
	Feedback         map[domain.Criterion][]string `json:"feedback,omitempty"`
	Strengths        []string                      `json:"strengths,omitempty"`
	Improvements     []string                      `json:"improvements,omitempty"`
	Detailed         []domain.FeedbackItem         `json:"detailed_feedback,omitempty"`
	GlobalDescriptor string                        `json:"global_descriptor,omitempty"`
}

func (p feedbackPayload) empty() bool {
	return len(p.Feedback) == 0 && len(p.Strengths) == 0 && len(p.Improvements) == 0 && len(p.Detailed) == 0
}

// NewPracticeRecord flattens s. The session must carry an analysis.
func NewPracticeRecord(s *domain.PracticeSession) (*PracticeRecord, error) {
	if s == nil || s.Analysis == nil {
		return nil, fmt.Errorf("%w: practice session without analysis", domain.ErrInvalidInput)
	}
	a := s.Analysis

	levels := a.CriterionLevels()
	rec := &PracticeRecord{
		ID:           s.ID,
		UserID:       s.UserID,
		Kind:         string(s.Kind),
		Topic:        string(s.Topic),
		TargetLevel:  string(s.TargetLevel),
		Language:     s.Language,
		OverallLevel: string(a.OverallLevel),
		WeightedRank: a.WeightedRank,
		Confidence:   string(a.Confidence),
		Range:        string(levels[domain.CriterionRange]),
		Accuracy:     string(levels[domain.CriterionAccuracy]),
		Fluency:      string(levels[domain.CriterionFluency]),
		Interaction:  string(levels[domain.CriterionInteraction]),
		Coherence:    string(levels[domain.CriterionCoherence]),
		Transcript:   s.Transcript,
		CreatedAt:    s.CreatedAt.UTC(),
	}
	if rec.Language == "" {
		rec.Language = "en"
	}

	payload := feedbackPayload{
		Feedback:         a.Feedback,
		Strengths:        a.Strengths,
		Improvements:     a.Improvements,
		Detailed:         a.Detailed,
		GlobalDescriptor: a.GlobalDescriptor,
	}
	if !payload.empty() {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal feedback: %w", err)
		}
		rec.Feedback = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}
	return rec, nil
}

// Args returns the values in PracticeColumns order.
func (r *PracticeRecord) Args() []any {
	return []any{
		r.ID, r.UserID, r.Kind, r.Topic, r.TargetLevel, r.Language,
		r.OverallLevel, r.WeightedRank, r.Confidence,
		r.Range, r.Accuracy, r.Fluency, r.Interaction, r.Coherence,
		r.Feedback, r.Transcript, r.CreatedAt,
	}
}

// ScanTargets returns pointers in PracticeColumns order.
func (r *PracticeRecord) ScanTargets() []any {
	return []any{
		&r.ID, &r.UserID, &r.Kind, &r.Topic, &r.TargetLevel, &r.Language,
		&r.OverallLevel, &r.WeightedRank, &r.Confidence,
		&r.Range, &r.Accuracy, &r.Fluency, &r.Interaction, &r.Coherence,
		&r.Feedback, &r.Transcript, &r.CreatedAt,
	}
}

// Session rebuilds the domain session. The overall level is derived again
// from the stored criterion levels.
func (r *PracticeRecord) Session() (*domain.PracticeSession, error) {
	assessment, err := domain.AssessmentFromMap(map[domain.Criterion]domain.Level{
		domain.CriterionRange:       domain.Level(r.Range),
		domain.CriterionAccuracy:    domain.Level(r.Accuracy),
		domain.CriterionFluency:     domain.Level(r.Fluency),
		domain.CriterionInteraction: domain.Level(r.Interaction),
		domain.CriterionCoherence:   domain.Level(r.Coherence),
	})
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", r.ID, err)
	}

	analysis := domain.NewAnalysis(assessment)
	if r.Feedback.Valid {
		var p feedbackPayload
		if err := json.Unmarshal(r.Feedback.RawMessage, &p); err != nil {
			return nil, fmt.Errorf("session %s: unmarshal feedback: %w", r.ID, err)
		}
		if p.Feedback != nil {
			analysis.Feedback = p.Feedback
		}
		analysis.Strengths = p.Strengths
		analysis.Improvements = p.Improvements
		analysis.Detailed = p.Detailed
		if p.GlobalDescriptor != "" {
			analysis.GlobalDescriptor = p.GlobalDescriptor
		}
	}
	analysis.Transcript = r.Transcript

	return &domain.PracticeSession{
		ID:          r.ID,
		UserID:      r.UserID,
		Kind:        domain.SessionKind(r.Kind),
		Topic:       domain.TopicID(r.Topic),
		TargetLevel: domain.Level(r.TargetLevel),
		Language:    r.Language,
		Analysis:    analysis,
		Transcript:  r.Transcript,
		CreatedAt:   r.CreatedAt,
	}, nil
}

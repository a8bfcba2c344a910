package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionKind distinguishes a one-off placement assessment from regular
// topic practice.
type SessionKind string

const (
	KindAssessment SessionKind = "assessment"
	KindPractice   SessionKind = "practice"
)

// ParseSessionKind validates a session kind.
func ParseSessionKind(s string) (SessionKind, error) {
	switch k := SessionKind(s); k {
	case KindAssessment, KindPractice:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSessionKind, s)
}

// PracticeSession is a persisted, graded speaking session.
type PracticeSession struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Kind        SessionKind
	Topic       TopicID
	TargetLevel Level // level the learner practised at; empty for assessments
	Language    string
	Analysis    *Analysis
	Transcript  string
	CreatedAt   time.Time
}

// NewPracticeSession wraps an analysis in a new session record.
func NewPracticeSession(userID uuid.UUID, kind SessionKind, topic TopicID, target Level, analysis *Analysis) *PracticeSession {
	return &PracticeSession{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        kind,
		Topic:       topic,
		TargetLevel: target,
		Analysis:    analysis,
		CreatedAt:   time.Now().UTC(),
	}
}

// OverallLevel returns the session's overall level, or "" when ungraded.
func (s *PracticeSession) OverallLevel() Level {
	if s.Analysis == nil {
		return ""
	}
	return s.Analysis.OverallLevel
}

// SessionCounts holds per-user usage counters and the configured caps.
type SessionCounts struct {
	Assessments    int `json:"assessments"`
	Practice       int `json:"practice"`
	MaxAssessments int `json:"max_assessments"`
	MaxPractice    int `json:"max_practice"`
}

// Count returns the counter for kind.
func (c SessionCounts) Count(kind SessionKind) int {
	if kind == KindAssessment {
		return c.Assessments
	}
	return c.Practice
}

// Max returns the cap for kind.
func (c SessionCounts) Max(kind SessionKind) int {
	if kind == KindAssessment {
		return c.MaxAssessments
	}
	return c.MaxPractice
}

// LimitStatus is the answer to "may this user start another session".
type LimitStatus struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

// Limit evaluates the counters for kind.
func (c SessionCounts) Limit(kind SessionKind) LimitStatus {
	count, limit := c.Count(kind), c.Max(kind)
	return LimitStatus{
		Allowed:   count < limit,
		Remaining: max(0, limit-count),
	}
}

// SessionFilter narrows a user's session history. Zero values match all.
type SessionFilter struct {
	Kind  SessionKind
	Topic TopicID
	Level Level // overall level
	Limit int
}

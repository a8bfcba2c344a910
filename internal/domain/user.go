package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPracticeLevel is used for learners without a placement result.
const DefaultPracticeLevel = LevelB1

// User is a registered learner.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string

	// PreferredLevel is set by the placement assessment.
	PreferredLevel   Level
	LastAssessmentAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Placed reports whether the learner has finished a placement assessment.
func (u *User) Placed() bool {
	return u.PreferredLevel != "" && u.LastAssessmentAt != nil
}

// PracticeLevel is the level practice starts at: the placement result,
// else DefaultPracticeLevel.
func (u *User) PracticeLevel() Level {
	if u == nil || !u.PreferredLevel.Valid() {
		return DefaultPracticeLevel
	}
	return u.PreferredLevel
}

// Session is a login session identified by an opaque token.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired() bool {
	return s.ExpiredAt(time.Now())
}

// ExpiredAt reports whether the session has expired at now.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

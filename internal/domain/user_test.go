package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestUser_PracticeLevel(t *testing.T) {
	assessed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		user       *User
		wantLevel  Level
		wantPlaced bool
	}{
		{"new learner", &User{ID: uuid.New()}, DefaultPracticeLevel, false},
		{"placed", &User{PreferredLevel: LevelB2Plus, LastAssessmentAt: &assessed}, LevelB2Plus, true},
		{"level without assessment", &User{PreferredLevel: LevelA2}, LevelA2, false},
		{"corrupt stored level", &User{PreferredLevel: Level("B3"), LastAssessmentAt: &assessed}, DefaultPracticeLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.PracticeLevel(); got != tt.wantLevel {
				t.Errorf("PracticeLevel() = %s, want %s", got, tt.wantLevel)
			}
			if got := tt.user.Placed(); got != tt.wantPlaced {
				t.Errorf("Placed() = %v, want %v", got, tt.wantPlaced)
			}
		})
	}

	var anonymous *User
	if got := anonymous.PracticeLevel(); got != DefaultPracticeLevel {
		t.Errorf("nil user PracticeLevel() = %s, want %s", got, DefaultPracticeLevel)
	}
}

func TestSession_ExpiredAt(t *testing.T) {
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := &Session{ID: uuid.New(), CreatedAt: issued, ExpiresAt: issued.Add(24 * time.Hour)}

	cases := map[time.Duration]bool{
		time.Hour:                      false,
		24 * time.Hour:                 false,
		24*time.Hour + time.Nanosecond: true,
		48 * time.Hour:                 true,
	}
	for after, want := range cases {
		if got := s.ExpiredAt(issued.Add(after)); got != want {
			t.Errorf("ExpiredAt(+%s) = %v, want %v", after, got, want)
		}
	}

	if !(&Session{ExpiresAt: time.Now().Add(-time.Minute)}).IsExpired() {
		t.Error("session a minute past expiry should be expired")
	}
	if (&Session{ExpiresAt: time.Now().Add(time.Minute)}).IsExpired() {
		t.Error("session a minute before expiry should be live")
	}
}

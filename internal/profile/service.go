// Package profile derives learner progress from graded practice sessions.
package profile

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

// statsWindow is how many recent sessions the dashboard looks at.
const statsWindow = 1000

// topTopics is the number of topics on the dashboard.
const topTopics = 5

// Dashboard is everything the progress page shows in one response.
type Dashboard struct {
	Stats       Stats                `json:"stats"`
	Trend       Trend                `json:"trend"`
	Criteria    CriterionReport      `json:"criteria"`
	Topics      []TopicStat          `json:"most_practiced_topics"`
	Progression []ProgressPoint      `json:"progression"`
	Counts      domain.SessionCounts `json:"session_counts"`
	// Focus is the improvement path of the latest overall level.
	Focus *domain.ImprovementPath `json:"improvement_path,omitempty"`
}

// Service handles profile business logic
type Service struct {
	sessions SessionLister
	counts   CountReader
}

// NewService creates a new profile service
func NewService(sessions SessionLister, counts CountReader) *Service {
	return &Service{sessions: sessions, counts: counts}
}

// Dashboard computes the user's progress summary.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	sessions, err := s.sessions.ListSessions(ctx, userID, domain.SessionFilter{Limit: statsWindow})
	if err != nil {
		return nil, err
	}
	counts, err := s.counts.Counts(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Stats:       ComputeStats(sessions),
		Trend:       ComputeTrend(sessions),
		Criteria:    CriterionProgress(sessions),
		Topics:      TopTopics(sessions, topTopics),
		Progression: Progression(sessions),
		Counts:      counts,
	}
	if graded := chronological(sessions); len(graded) > 0 {
		path := graded[len(graded)-1].Analysis.Path()
		d.Focus = &path
	}
	return d, nil
}

// Stats returns only the aggregate statistics.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (Stats, error) {
	sessions, err := s.sessions.ListSessions(ctx, userID, domain.SessionFilter{Limit: statsWindow})
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(sessions), nil
}

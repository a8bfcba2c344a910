package practice

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/speakflow/internal/domain"
	"github.com/felixgeelhaar/speakflow/internal/queue"
)

// Store persists graded sessions, usage counters and the placement result.
type Store interface {
	SaveSession(ctx context.Context, s *domain.PracticeSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*domain.PracticeSession, error)
	ListSessions(ctx context.Context, userID uuid.UUID, f domain.SessionFilter) ([]*domain.PracticeSession, error)

	// Counts returns the usage counters; the caps are filled in by the service.
	Counts(ctx context.Context, userID uuid.UUID) (domain.SessionCounts, error)
	// ReserveSlot bumps the counter for kind only while it is below limit
	// and reports whether it did. The check and the bump are one statement.
	ReserveSlot(ctx context.Context, userID uuid.UUID, kind domain.SessionKind, limit int) (bool, error)
	// ReleaseSlot returns a reserved slot; the counter never drops below zero.
	ReleaseSlot(ctx context.Context, userID uuid.UUID, kind domain.SessionKind) error

	SetPreferredLevel(ctx context.Context, userID uuid.UUID, level domain.Level, at time.Time) error
}

// JobPublisher hands analysis jobs to the queue.
type JobPublisher interface {
	PublishJob(ctx context.Context, job *queue.AnalysisJob) error
}

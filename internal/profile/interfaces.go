package profile

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

// ProfileService defines the progress operations used by the dashboard
// handlers
type ProfileService interface {
	// Dashboard returns stats, trend, criterion progress and counters
	Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error)

	// Stats returns the aggregate statistics
	Stats(ctx context.Context, userID uuid.UUID) (Stats, error)
}

// Ensure Service implements ProfileService
var _ ProfileService = (*Service)(nil)

// SessionLister reads a user's graded sessions. Both session stores
// implement it.
type SessionLister interface {
	ListSessions(ctx context.Context, userID uuid.UUID, f domain.SessionFilter) ([]*domain.PracticeSession, error)
}

// CountReader returns session counters with their caps.
type CountReader interface {
	Counts(ctx context.Context, userID uuid.UUID) (domain.SessionCounts, error)
}

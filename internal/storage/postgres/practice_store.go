package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/speakflow/internal/domain"
	"github.com/felixgeelhaar/speakflow/internal/practice"
	"github.com/felixgeelhaar/speakflow/internal/storage"
)

var _ practice.Store = (*PracticeStore)(nil)

// PracticeStore implements practice.Store using PostgreSQL.
type PracticeStore struct {
	pool *pgxpool.Pool
}

// NewPracticeStore creates a PostgreSQL practice store.
func NewPracticeStore(pool *pgxpool.Pool) *PracticeStore {
	return &PracticeStore{pool: pool}
}

// SaveSession inserts or replaces a graded session.
func (s *PracticeStore) SaveSession(ctx context.Context, sess *domain.PracticeSession) error {
	rec, err := storage.NewPracticeRecord(sess)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO practice_sessions (`+storage.PracticeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			overall_level = EXCLUDED.overall_level, weighted_rank = EXCLUDED.weighted_rank,
			confidence = EXCLUDED.confidence,
			range_level = EXCLUDED.range_level, accuracy_level = EXCLUDED.accuracy_level,
			fluency_level = EXCLUDED.fluency_level, interaction_level = EXCLUDED.interaction_level,
			coherence_level = EXCLUDED.coherence_level,
			feedback = EXCLUDED.feedback, transcript = EXCLUDED.transcript`,
		rec.Args()...,
	)
	if err != nil {
		return fmt.Errorf("upsert practice session: %w", err)
	}
	return nil
}

// GetSession loads one session.
func (s *PracticeStore) GetSession(ctx context.Context, id uuid.UUID) (*domain.PracticeSession, error) {
	var rec storage.PracticeRecord
	err := s.pool.QueryRow(ctx,
		`SELECT `+storage.PracticeColumns+` FROM practice_sessions WHERE id = $1`, id,
	).Scan(rec.ScanTargets()...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPracticeSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get practice session: %w", err)
	}
	return rec.Session()
}

// ListSessions returns a user's sessions, newest first.
func (s *PracticeStore) ListSessions(ctx context.Context, userID uuid.UUID, f domain.SessionFilter) ([]*domain.PracticeSession, error) {
	args := []any{userID}
	where := []string{"user_id = $1"}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Topic != "" {
		add("topic = $%d", string(f.Topic))
	}
	if f.Level != "" {
		add("overall_level = $%d", string(f.Level))
	}

	query := `SELECT ` + storage.PracticeColumns + ` FROM practice_sessions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list practice sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.PracticeSession
	for rows.Next() {
		var rec storage.PracticeRecord
		if err := rows.Scan(rec.ScanTargets()...); err != nil {
			return nil, fmt.Errorf("scan practice session: %w", err)
		}
		sess, err := rec.Session()
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Counts reads both usage counters of a user.
func (s *PracticeStore) Counts(ctx context.Context, userID uuid.UUID) (domain.SessionCounts, error) {
	var c domain.SessionCounts
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(count) FILTER (WHERE kind = 'assessment'), 0),
			COALESCE(SUM(count) FILTER (WHERE kind = 'practice'), 0)
		FROM session_counters WHERE user_id = $1`, userID,
	).Scan(&c.Assessments, &c.Practice)
	if err != nil {
		return c, fmt.Errorf("read session counters: %w", err)
	}
	return c, nil
}

// ReserveSlot adds one to the user's counter for kind unless it already
// reached limit.
func (s *PracticeStore) ReserveSlot(ctx context.Context, userID uuid.UUID, kind domain.SessionKind, limit int) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO session_counters (user_id, kind, count)
		SELECT $1::uuid, $2::text, 1 WHERE $3::integer > 0
		ON CONFLICT (user_id, kind) DO UPDATE SET count = session_counters.count + 1
		WHERE session_counters.count < $3::integer`,
		userID, string(kind), limit,
	)
	if err != nil {
		return false, fmt.Errorf("reserve %s slot: %w", kind, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseSlot takes back one reserved slot.
func (s *PracticeStore) ReleaseSlot(ctx context.Context, userID uuid.UUID, kind domain.SessionKind) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE session_counters SET count = count - 1
		WHERE user_id = $1 AND kind = $2 AND count > 0`,
		userID, string(kind),
	)
	if err != nil {
		return fmt.Errorf("release %s slot: %w", kind, err)
	}
	return nil
}

// SetPreferredLevel records a placement result on the user.
func (s *PracticeStore) SetPreferredLevel(ctx context.Context, userID uuid.UUID, level domain.Level, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET preferred_level = $1, last_assessment_at = $2, updated_at = NOW()
		WHERE id = $3`,
		string(level), at, userID,
	)
	if err != nil {
		return fmt.Errorf("set preferred level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

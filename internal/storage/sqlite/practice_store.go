package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/speakflow/internal/domain"
	"github.com/felixgeelhaar/speakflow/internal/practice"
	"github.com/felixgeelhaar/speakflow/internal/storage"
)

var _ practice.Store = (*PracticeStore)(nil)

// PracticeStore implements practice.Store backed by SQLite.
type PracticeStore struct {
	db *DB
}

// NewPracticeStore creates a SQLite-backed practice store.
func NewPracticeStore(db *DB) *PracticeStore {
	return &PracticeStore{db: db}
}

// SaveSession inserts or replaces a graded session.
func (s *PracticeStore) SaveSession(ctx context.Context, sess *domain.PracticeSession) error {
	rec, err := storage.NewPracticeRecord(sess)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO practice_sessions (`+storage.PracticeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			overall_level=excluded.overall_level, weighted_rank=excluded.weighted_rank,
			confidence=excluded.confidence,
			range_level=excluded.range_level, accuracy_level=excluded.accuracy_level,
			fluency_level=excluded.fluency_level, interaction_level=excluded.interaction_level,
			coherence_level=excluded.coherence_level,
			feedback=excluded.feedback, transcript=excluded.transcript`,
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
	err := s.db.QueryRowContext(ctx,
		`SELECT `+storage.PracticeColumns+` FROM practice_sessions WHERE id = ?`, id,
	).Scan(rec.ScanTargets()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPracticeSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get practice session: %w", err)
	}
	return rec.Session()
}

// ListSessions returns a user's sessions, newest first.
func (s *PracticeStore) ListSessions(ctx context.Context, userID uuid.UUID, f domain.SessionFilter) ([]*domain.PracticeSession, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Topic != "" {
		where = append(where, "topic = ?")
		args = append(args, string(f.Topic))
	}
	if f.Level != "" {
		where = append(where, "overall_level = ?")
		args = append(args, string(f.Level))
	}

	query := `SELECT ` + storage.PracticeColumns + ` FROM practice_sessions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	rows, err := s.db.QueryContext(ctx, `SELECT kind, count FROM session_counters WHERE user_id = ?`, userID)
	if err != nil {
		return c, fmt.Errorf("read session counters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return c, fmt.Errorf("scan session counter: %w", err)
		}
		switch domain.SessionKind(kind) {
		case domain.KindAssessment:
			c.Assessments = n
		case domain.KindPractice:
			c.Practice = n
		}
	}
	return c, rows.Err()
}

// ReserveSlot adds one to the user's counter for kind unless it already
// reached limit. The SELECT keeps its WHERE clause so SQLite parses the
// upsert.
func (s *PracticeStore) ReserveSlot(ctx context.Context, userID uuid.UUID, kind domain.SessionKind, limit int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO session_counters (user_id, kind, count)
		SELECT ?, ?, 1 WHERE ? > 0
		ON CONFLICT(user_id, kind) DO UPDATE SET count = count + 1
		WHERE count < ?`,
		userID, string(kind), limit, limit,
	)
	if err != nil {
		return false, fmt.Errorf("reserve %s slot: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve %s slot: %w", kind, err)
	}
	return n == 1, nil
}

// ReleaseSlot takes back one reserved slot.
func (s *PracticeStore) ReleaseSlot(ctx context.Context, userID uuid.UUID, kind domain.SessionKind) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE session_counters SET count = count - 1
		WHERE user_id = ? AND kind = ? AND count > 0`,
		userID, string(kind),
	)
	if err != nil {
		return fmt.Errorf("release %s slot: %w", kind, err)
	}
	return nil
}

// SetPreferredLevel records a placement result on the user.
func (s *PracticeStore) SetPreferredLevel(ctx context.Context, userID uuid.UUID, level domain.Level, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET preferred_level = ?, last_assessment_at = ?, updated_at = ?
		WHERE id = ?`,
		string(level), at.UTC(), at.UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("set preferred level: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

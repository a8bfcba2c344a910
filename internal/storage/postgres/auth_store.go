package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/speakflow/internal/auth"
	"github.com/felixgeelhaar/speakflow/internal/domain"
)

var _ auth.Repository = (*AuthStore)(nil)

// uniqueViolation is the SQLSTATE of a unique constraint failure.
const uniqueViolation = "23505"

// AuthStore keeps learner accounts and login sessions in PostgreSQL.
type AuthStore struct {
	pool *pgxpool.Pool
}

func NewAuthStore(pool *pgxpool.Pool) *AuthStore {
	return &AuthStore{pool: pool}
}

type userRow struct {
	ID               uuid.UUID  `db:"id"`
	Email            string     `db:"email"`
	Name             string     `db:"name"`
	PasswordHash     string     `db:"password_hash"`
	PreferredLevel   string     `db:"preferred_level"`
	LastAssessmentAt *time.Time `db:"last_assessment_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (r userRow) user() *domain.User {
	return &domain.User{
		ID:               r.ID,
		Email:            r.Email,
		Name:             r.Name,
		PasswordHash:     r.PasswordHash,
		PreferredLevel:   domain.Level(r.PreferredLevel),
		LastAssessmentAt: r.LastAssessmentAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

const userColumns = `id, email, name, password_hash, preferred_level, last_assessment_at, created_at, updated_at`

func (s *AuthStore) InsertUser(ctx context.Context, u *domain.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (@id, @email, @name, @hash, @level, @assessed, @created, @updated)`,
		pgx.NamedArgs{
			"id":       u.ID,
			"email":    u.Email,
			"name":     u.Name,
			"hash":     u.PasswordHash,
			"level":    string(u.PreferredLevel),
			"assessed": u.LastAssessmentAt,
			"created":  u.CreatedAt,
			"updated":  u.UpdatedAt,
		})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrUserAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *AuthStore) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.user(ctx, `email = $1`, email)
}

func (s *AuthStore) UserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.user(ctx, `id = $1`, id)
}

func (s *AuthStore) user(ctx context.Context, where string, arg any) (*domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[userRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return row.user(), nil
}

type sessionRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *AuthStore) InsertSession(ctx context.Context, sess *domain.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO auth_sessions (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		sess.ID, sess.UserID, sess.Token, sess.ExpiresAt, sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert auth session: %w", err)
	}
	return nil
}

func (s *AuthStore) SessionByToken(ctx context.Context, token string) (*domain.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, token, expires_at, created_at FROM auth_sessions WHERE token = $1`, token)
	if err != nil {
		return nil, fmt.Errorf("query auth session: %w", err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[sessionRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAuthSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan auth session: %w", err)
	}
	return &domain.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		Token:     row.Token,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *AuthStore) RevokeSession(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, `DELETE FROM auth_sessions WHERE id = $1`, id)
}

func (s *AuthStore) RevokeUserSessions(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx, `DELETE FROM auth_sessions WHERE user_id = $1`, userID)
}

func (s *AuthStore) PurgeExpiredSessions(ctx context.Context) error {
	return s.exec(ctx, `DELETE FROM auth_sessions WHERE expires_at < now()`)
}

func (s *AuthStore) exec(ctx context.Context, sql string, args ...any) error {
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete auth sessions: %w", err)
	}
	return nil
}

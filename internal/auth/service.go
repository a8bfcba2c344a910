// Package auth handles learner accounts and cookie sessions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("email or password is incorrect")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrSessionExpired     = errors.New("session has expired")
	ErrSessionNotFound    = errors.New("no such session")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8

	tokenBytes = 32
)

// Users stores learner accounts. Lookups return domain.ErrUserNotFound on
// a miss and InsertUser returns domain.ErrUserAlreadyExists for a taken
// email.
type Users interface {
	InsertUser(ctx context.Context, u *domain.User) error
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Sessions stores login sessions. SessionByToken returns
// domain.ErrAuthSessionNotFound on a miss.
type Sessions interface {
	InsertSession(ctx context.Context, s *domain.Session) error
	SessionByToken(ctx context.Context, token string) (*domain.Session, error)
	RevokeSession(ctx context.Context, id uuid.UUID) error
	RevokeUserSessions(ctx context.Context, userID uuid.UUID) error
	PurgeExpiredSessions(ctx context.Context) error
}

// Repository is what a storage driver provides.
type Repository interface {
	Users
	Sessions
}

// Service signs learners up and in.
type Service struct {
	users    Users
	sessions Sessions
	ttl      time.Duration
	cost     int
	now      func() time.Time
}

// NewService returns a service issuing sessions that live for ttl.
func NewService(repo Repository, ttl time.Duration) *Service {
	return &Service{
		users:    repo,
		sessions: repo,
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// SessionMaxAge is the lifetime of new sessions.
func (s *Service) SessionMaxAge() time.Duration {
	return s.ttl
}

// Credentials identify a learner at sign-in.
type Credentials struct {
	Email    string
	Password string
}

// Registration opens a new account.
type Registration struct {
	Credentials
	Name string
}

// SignedIn is the result of a successful sign-in.
type SignedIn struct {
	User    *domain.User
	Session *domain.Session
}

// Register creates an account. The email is trimmed and lower-cased.
func (s *Service) Register(ctx context.Context, reg Registration) (*domain.User, error) {
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return nil, err
	}
	if len(reg.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	switch _, err := s.users.UserByEmail(ctx, email); {
	case err == nil:
		return nil, ErrEmailExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(reg.Name),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// A concurrent registration can still win the unique index.
	err = s.users.InsertUser(ctx, u)
	if errors.Is(err, domain.ErrUserAlreadyExists) {
		return nil, ErrEmailExists
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SignIn checks the password and opens a session. An unknown email and a
// wrong password fail the same way.
func (s *Service) SignIn(ctx context.Context, c Credentials) (*SignedIn, error) {
	u, err := s.verify(ctx, c)
	if err != nil {
		return nil, err
	}
	sess, err := s.openSession(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &SignedIn{User: u, Session: sess}, nil
}

func (s *Service) verify(ctx context.Context, c Credentials) (*domain.User, error) {
	email, err := normalizeEmail(c.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.UserByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) openSession(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}

	now := s.now().UTC()
	sess := &domain.Session{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     base64.RawURLEncoding.EncodeToString(raw),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.InsertSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Authenticate resolves a session token to its learner. An expired
// session is revoked when seen.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := s.sessions.SessionByToken(ctx, token)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if sess.ExpiredAt(s.now()) {
		_ = s.sessions.RevokeSession(ctx, sess.ID)
		return nil, ErrSessionExpired
	}
	return s.users.UserByID(ctx, sess.UserID)
}

// SignOut revokes the session behind token.
func (s *Service) SignOut(ctx context.Context, token string) error {
	sess, err := s.sessions.SessionByToken(ctx, token)
	if err != nil {
		return ErrSessionNotFound
	}
	return s.sessions.RevokeSession(ctx, sess.ID)
}

// SignOutEverywhere revokes every session of a learner.
func (s *Service) SignOutEverywhere(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.RevokeUserSessions(ctx, userID)
}

// PurgeExpiredSessions drops sessions past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) error {
	return s.sessions.PurgeExpiredSessions(ctx)
}

// normalizeEmail accepts a bare address only, without a display name.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

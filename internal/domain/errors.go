package domain

import "errors"

// Rating scale and assessment validation.
var (
	ErrInvalidLevel       = errors.New("invalid CEFR level")
	ErrInvalidAssessment  = errors.New("invalid speaking assessment")
	ErrMissingCriterion   = errors.New("missing criterion")
	ErrDuplicateCriterion = errors.New("duplicate criterion")
	ErrUnknownCriterion   = errors.New("unknown criterion")
	ErrInvalidTopic       = errors.New("invalid conversation topic")
	ErrInvalidSessionKind = errors.New("invalid session kind")
)

// Accounts and sign-in sessions. Stores return these so callers need not
// know the driver.
var (
	ErrUserNotFound        = errors.New("no such user")
	ErrUserAlreadyExists   = errors.New("email already registered")
	ErrAuthSessionNotFound = errors.New("no such sign-in session")
)

var (
	ErrPracticeSessionNotFound = errors.New("practice session not found")
	ErrSessionLimitReached     = errors.New("session limit reached")
)

// ErrInvalidInput marks a request the caller must change before retrying.
var ErrInvalidInput = errors.New("invalid input")

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/felixgeelhaar/speakflow/internal/auth"
	"github.com/felixgeelhaar/speakflow/internal/credits"
	"github.com/felixgeelhaar/speakflow/internal/domain"
	"github.com/felixgeelhaar/speakflow/internal/grading"
	"github.com/felixgeelhaar/speakflow/internal/llm"
	"github.com/felixgeelhaar/speakflow/internal/practice"
	"github.com/felixgeelhaar/speakflow/internal/voice"
)

// APIError is the "error" member of every failed response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

func NewAPIError(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

func (e *APIError) Error() string { return e.Message }
func (e *APIError) Unwrap() error { return e.cause }

// WithCause records err for the log without exposing it to the client.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// ErrorResponse wraps an APIError for encoding.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// errorMapping maps service errors onto HTTP. An empty message passes
// the error text through; those errors are safe to show.
type errorMapping struct {
	targets []error
	status  int
	code    string
	message string
}

var serviceErrors = []errorMapping{
	{[]error{domain.ErrSessionLimitReached}, http.StatusForbidden, "LIMIT_REACHED", "session limit reached"},
	{[]error{domain.ErrPracticeSessionNotFound}, http.StatusNotFound, "NOT_FOUND", "session not found"},
	{[]error{domain.ErrUserNotFound}, http.StatusNotFound, "NOT_FOUND", "user not found"},

	{[]error{auth.ErrEmailExists}, http.StatusConflict, "CONFLICT", "email already registered"},
	{[]error{auth.ErrInvalidCredentials}, http.StatusUnauthorized, "UNAUTHORIZED", "invalid email or password"},
	{[]error{auth.ErrSessionExpired, auth.ErrSessionNotFound}, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session"},

	{[]error{
		domain.ErrInvalidLevel,
		domain.ErrInvalidAssessment,
		domain.ErrMissingCriterion,
		domain.ErrDuplicateCriterion,
		domain.ErrUnknownCriterion,
		domain.ErrInvalidTopic,
		domain.ErrInvalidSessionKind,
		domain.ErrInvalidInput,
		practice.ErrInvalidAudio,
		grading.ErrNoInput,
		auth.ErrWeakPassword,
		auth.ErrInvalidEmail,
	}, http.StatusBadRequest, "BAD_REQUEST", ""},

	{[]error{voice.ErrAgentNotConfigured}, http.StatusNotFound, "NOT_CONFIGURED", ""},
	{[]error{
		practice.ErrQueueDisabled,
		llm.ErrNoDefaultProvider,
		llm.ErrProviderNotFound,
		llm.ErrAudioUnsupported,
		credits.ErrNotConfigured,
	}, http.StatusServiceUnavailable, "UNAVAILABLE", ""},

	{[]error{grading.ErrNoJSON, grading.ErrMalformedResponse}, http.StatusBadGateway, "GRADING_FAILED", "could not read the grading response, please try again"},
	{[]error{llm.ErrRateLimited}, http.StatusTooManyRequests, "RATE_LIMITED", "grading is busy, please try again shortly"},
	{[]error{credits.ErrUpstream}, http.StatusBadGateway, "UPSTREAM_ERROR", ""},
	{[]error{context.DeadlineExceeded}, http.StatusGatewayTimeout, "TIMEOUT", "request timed out"},
}

// classify finds the first mapping err matches. ok is false for errors
// that should surface as a 500.
func classify(err error) (status int, apiErr *APIError, ok bool) {
	for _, m := range serviceErrors {
		for _, target := range m.targets {
			if !errors.Is(err, target) {
				continue
			}
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return m.status, NewAPIError(m.code, msg), true
		}
	}
	return 0, nil, false
}

// WriteServiceError maps a service error to a status code and writes it.
// Unknown errors become a 500 whose message is fallback.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, apiErr, ok := classify(err)
	if !ok {
		InternalError(w, r, fallback, err)
		return
	}
	WriteError(w, r, status, apiErr.WithCause(err))
}

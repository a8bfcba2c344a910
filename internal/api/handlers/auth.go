package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/speakflow/internal/auth"
	"github.com/felixgeelhaar/speakflow/internal/domain"
)

// AuthHandler serves sign-up, sign-in and sign-out. Sessions travel as a
// cookie for browsers and as a bearer token for everything else.
type AuthHandler struct {
	svc    *auth.Service
	secure bool
}

func NewAuthHandler(svc *auth.Service, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, secure: secureCookie}
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Name is read on sign-up only.
	Name string `json:"name,omitempty"`
}

// credentials reads the body and insists on both email and password.
func (h *AuthHandler) credentials(w http.ResponseWriter, r *http.Request) (credentialsBody, bool) {
	var body credentialsBody
	if !readJSON(w, r, maxJSONBody, &body) {
		return body, false
	}
	if strings.TrimSpace(body.Email) == "" || body.Password == "" {
		BadRequest(w, r, "email and password are required")
		return body, false
	}
	return body, true
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID               string       `json:"id"`
	Email            string       `json:"email"`
	Name             string       `json:"name"`
	PreferredLevel   domain.Level `json:"preferred_level,omitempty"`
	LastAssessmentAt *time.Time   `json:"last_assessment_at,omitempty"`
	CreatedAt        string       `json:"created_at"`
}

func newUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:               u.ID.String(),
		Email:            u.Email,
		Name:             u.Name,
		PreferredLevel:   u.PreferredLevel,
		LastAssessmentAt: u.LastAssessmentAt,
		CreatedAt:        u.CreatedAt.Format(time.RFC3339),
	}
}

// Register creates an account. It does not sign the user in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	body, ok := h.credentials(w, r)
	if !ok {
		return
	}
	user, err := h.svc.Register(r.Context(), auth.Registration{
		Credentials: auth.Credentials{Email: body.Email, Password: body.Password},
		Name:        body.Name,
	})
	if err != nil {
		WriteServiceError(w, r, err, "registration failed")
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"user": newUserResponse(user)})
}

// CreateSession signs in, sets the session cookie and returns the token.
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	body, ok := h.credentials(w, r)
	if !ok {
		return
	}
	in, err := h.svc.SignIn(r.Context(), auth.Credentials{Email: body.Email, Password: body.Password})
	if err != nil {
		WriteServiceError(w, r, err, "sign-in failed")
		return
	}

	http.SetCookie(w, auth.SessionCookie(in.Session.Token, h.svc.SessionMaxAge(), h.secure))
	WriteJSON(w, http.StatusOK, map[string]any{
		"user":       newUserResponse(in.User),
		"token":      in.Session.Token,
		"expires_at": in.Session.ExpiresAt,
	})
}

// DeleteSession signs out and clears the cookie. It succeeds without a
// session so clients can always reset their state.
func (h *AuthHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		if err := h.svc.SignOut(r.Context(), token); err != nil {
			slog.Debug("sign-out without live session", "error", err)
		}
	}
	http.SetCookie(w, auth.ClearCookie(h.secure))
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteAllSessions revokes every session of the signed-in user,
// including the one making the request.
func (h *AuthHandler) DeleteAllSessions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		Unauthorized(w, r, "not authenticated")
		return
	}
	if err := h.svc.SignOutEverywhere(r.Context(), user.ID); err != nil {
		WriteServiceError(w, r, err, "sign-out failed")
		return
	}
	http.SetCookie(w, auth.ClearCookie(h.secure))
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		Unauthorized(w, r, "not authenticated")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(user)})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/speakflow/internal/auth"
	"github.com/felixgeelhaar/speakflow/internal/domain"
	"github.com/felixgeelhaar/speakflow/internal/practice"
	"github.com/felixgeelhaar/speakflow/internal/profile"
)

// maxHistoryLimit caps ?limit= on the history endpoint.
const maxHistoryLimit = 200

// DashboardHandler serves a user's history and progress
type DashboardHandler struct {
	practice *practice.Service
	profile  profile.ProfileService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(svc *practice.Service, prof profile.ProfileService) *DashboardHandler {
	return &DashboardHandler{practice: svc, profile: prof}
}

// Sessions lists the user's sessions filtered by ?topic=, ?level=, ?type=
// and ?limit=
func (h *DashboardHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	filter, err := parseSessionFilter(r)
	if err != nil {
		WriteServiceError(w, r, err, "")
		return
	}

	sessions, err := h.practice.History(r.Context(), user.ID, filter)
	if err != nil {
		WriteServiceError(w, r, err, "failed to load sessions")
		return
	}

	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, NewSessionResponse(s))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func parseSessionFilter(r *http.Request) (domain.SessionFilter, error) {
	q := r.URL.Query()
	var f domain.SessionFilter
	var err error

	if v := q.Get("topic"); v != "" {
		if f.Topic, err = domain.ParseTopic(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("level"); v != "" {
		if f.Level, err = domain.ParseLevel(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("type"); v != "" {
		if f.Kind, err = domain.ParseSessionKind(v); err != nil {
			return f, err
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, domain.ErrInvalidInput
		}
		f.Limit = min(n, maxHistoryLimit)
	}
	return f, nil
}

// Session returns one of the user's sessions
func (h *DashboardHandler) Session(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		BadRequest(w, r, "invalid session id")
		return
	}

	sess, err := h.practice.Get(r.Context(), user.ID, id)
	if err != nil {
		WriteServiceError(w, r, err, "failed to load session")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"session":          NewSessionResponse(sess),
		"improvement_path": sess.Analysis.Path(),
	})
}

// Stats returns stats, trend, criterion progress and session counters
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	d, err := h.profile.Dashboard(r.Context(), user.ID)
	if err != nil {
		InternalError(w, r, "failed to compute stats", err)
		return
	}
	WriteJSON(w, http.StatusOK, d)
}

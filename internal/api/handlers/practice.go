package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/speakflow/internal/auth"
	"github.com/felixgeelhaar/speakflow/internal/domain"
	"github.com/felixgeelhaar/speakflow/internal/practice"
	"github.com/felixgeelhaar/speakflow/internal/queue"
	"github.com/felixgeelhaar/speakflow/internal/voice"
)

// maxAudioBody bounds recording uploads (base64 inflates by a third).
const maxAudioBody = 32 << 20

// JobResults looks up finished queue jobs
type JobResults interface {
	Result(jobID uuid.UUID) (*queue.AnalysisResult, bool)
}

// PracticeHandler handles graded speaking sessions. Every route requires
// an authenticated user.
type PracticeHandler struct {
	practice *practice.Service
	voice    *voice.Directory
	results  JobResults
}

// NewPracticeHandler creates a new practice handler. results may be nil
// when the queue is disabled.
func NewPracticeHandler(svc *practice.Service, dir *voice.Directory, results JobResults) *PracticeHandler {
	return &PracticeHandler{practice: svc, voice: dir, results: results}
}

// AssessRequest is the body of a placement submission
type AssessRequest struct {
	Audio            string `json:"audio"`
	MIMEType         string `json:"mime_type"`
	Transcript       string `json:"transcript"`
	FeedbackLanguage string `json:"feedback_language"`
}

// AnalyzeRequest is the body of a practice submission
type AnalyzeRequest struct {
	Audio            string `json:"audio"`
	MIMEType         string `json:"mime_type"`
	Transcript       string `json:"transcript"`
	Topic            string `json:"topic"`
	Level            string `json:"level"`
	FeedbackLanguage string `json:"feedback_language"`
}

// SessionResponse is a graded session as returned to clients
type SessionResponse struct {
	ID          uuid.UUID                         `json:"id"`
	Kind        domain.SessionKind                `json:"type"`
	Topic       domain.TopicID                    `json:"topic,omitempty"`
	TargetLevel domain.Level                      `json:"target_level,omitempty"`
	Language    string                            `json:"feedback_language"`
	Levels      map[domain.Criterion]domain.Level `json:"criterion_levels"`
	Analysis    *domain.Analysis                  `json:"analysis"`
	Transcript  string                            `json:"transcript,omitempty"`
	CreatedAt   string                            `json:"created_at"`
}

// NewSessionResponse flattens a session for JSON
func NewSessionResponse(s *domain.PracticeSession) SessionResponse {
	return SessionResponse{
		ID:          s.ID,
		Kind:        s.Kind,
		Topic:       s.Topic,
		TargetLevel: s.TargetLevel,
		Language:    s.Language,
		Levels:      s.Analysis.CriterionLevels(),
		Analysis:    s.Analysis,
		Transcript:  s.Transcript,
		CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// AssessLevel grades a placement recording
func (h *PracticeHandler) AssessLevel(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	var req AssessRequest
	if !readJSON(w, r, maxAudioBody, &req) {
		return
	}
	if strings.TrimSpace(req.Audio) == "" {
		BadRequest(w, r, "missing audio data")
		return
	}

	res, err := h.practice.AssessLevel(r.Context(), user.ID, practice.AssessInput{
		Audio:      req.Audio,
		MIMEType:   req.MIMEType,
		Transcript: req.Transcript,
		Language:   req.FeedbackLanguage,
	})
	if err != nil {
		WriteServiceError(w, r, err, "failed to assess level")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"level":            res.Level,
		"confidence":       res.Confidence,
		"improvement_path": res.Path,
		"remaining":        res.Remaining,
		"session":          NewSessionResponse(res.Session),
	})
}

// Analyze grades a practice recording. With the queue enabled it returns
// 202 and a job ID to poll.
func (h *PracticeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	var req AnalyzeRequest
	if !readJSON(w, r, maxAudioBody, &req) {
		return
	}

	in, err := req.input(user)
	if err != nil {
		WriteServiceError(w, r, err, "invalid request")
		return
	}

	if h.practice.QueueEnabled() {
		jobID, err := h.practice.Submit(r.Context(), user.ID, domain.KindPractice, in)
		if err != nil {
			WriteServiceError(w, r, err, "failed to queue analysis")
			return
		}
		WriteJSON(w, http.StatusAccepted, map[string]any{
			"job_id": jobID,
			"status": "queued",
		})
		return
	}

	res, err := h.practice.Analyze(r.Context(), user.ID, in)
	if err != nil {
		WriteServiceError(w, r, err, "failed to analyze speech")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"improvement_path": res.Path,
		"remaining":        res.Remaining,
		"session":          NewSessionResponse(res.Session),
	})
}

// input resolves topic and level; the level defaults to the user's
// placement result.
func (req AnalyzeRequest) input(user *domain.User) (practice.AnalyzeInput, error) {
	topic, err := domain.ParseTopic(req.Topic)
	if err != nil {
		return practice.AnalyzeInput{}, err
	}
	level := user.PracticeLevel()
	if req.Level != "" {
		if level, err = domain.ParseLevel(req.Level); err != nil {
			return practice.AnalyzeInput{}, err
		}
	}
	return practice.AnalyzeInput{
		Audio:      req.Audio,
		MIMEType:   req.MIMEType,
		Transcript: req.Transcript,
		Topic:      topic,
		Level:      level,
		Language:   req.FeedbackLanguage,
	}, nil
}

// Job reports the state of a queued analysis
func (h *PracticeHandler) Job(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}
	if h.results == nil {
		WriteServiceError(w, r, practice.ErrQueueDisabled, "")
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		BadRequest(w, r, "invalid job id")
		return
	}

	result, found := h.results.Result(jobID)
	if !found {
		WriteJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID, "status": "pending"})
		return
	}
	if result.UserID != user.ID {
		NotFound(w, r, "job")
		return
	}

	body := map[string]any{
		"job_id":   result.JobID,
		"status":   result.Status,
		"duration": result.Took.String(),
	}
	if result.Error != "" {
		body["error"] = result.Error
	}
	if result.Status == queue.StatusCompleted && result.SessionID != uuid.Nil {
		sess, err := h.practice.Get(r.Context(), user.ID, result.SessionID)
		if err != nil {
			WriteServiceError(w, r, err, "failed to load session")
			return
		}
		body["session"] = NewSessionResponse(sess)
		body["improvement_path"] = sess.Analysis.Path()
	}
	WriteJSON(w, http.StatusOK, body)
}

// SessionLimit reports whether another session of ?type= may start
func (h *PracticeHandler) SessionLimit(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	kind, err := domain.ParseSessionKind(r.URL.Query().Get("type"))
	if err != nil {
		BadRequest(w, r, "invalid session type")
		return
	}

	counts, err := h.practice.Counts(r.Context(), user.ID)
	if err != nil {
		InternalError(w, r, "failed to check session limit", err)
		return
	}
	limit := counts.Limit(kind)
	WriteJSON(w, http.StatusOK, map[string]any{
		"allowed":   limit.Allowed,
		"remaining": limit.Remaining,
		"counts":    counts,
	})
}

// VoiceSession returns the agent and prompts for a conversation. Without a
// topic, or with ?type=assessment, it returns the placement agent.
func (h *PracticeHandler) VoiceSession(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	q := r.URL.Query()
	if q.Get("type") == string(domain.KindAssessment) || q.Get("topic") == "" {
		cfg, err := h.voice.AssessmentConfig()
		if err != nil {
			WriteServiceError(w, r, err, "failed to build voice session")
			return
		}
		WriteJSON(w, http.StatusOK, cfg)
		return
	}

	topic, err := domain.ParseTopic(q.Get("topic"))
	if err != nil {
		WriteServiceError(w, r, err, "")
		return
	}
	level := user.PracticeLevel()
	if raw := q.Get("level"); raw != "" {
		if level, err = domain.ParseLevel(raw); err != nil {
			WriteServiceError(w, r, err, "")
			return
		}
	}

	cfg, err := h.voice.SessionConfig(level, topic)
	if err != nil {
		WriteServiceError(w, r, err, "failed to build voice session")
		return
	}
	WriteJSON(w, http.StatusOK, cfg)
}

// Package practice runs the graded speaking flows: the one-off placement
// assessment and topic practice, each capped per user.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/speakflow/internal/domain"
	"github.com/felixgeelhaar/speakflow/internal/grading"
	"github.com/felixgeelhaar/speakflow/internal/observe"
	"github.com/felixgeelhaar/speakflow/internal/queue"
)

// ErrQueueDisabled is returned by Submit when no job publisher is wired.
var ErrQueueDisabled = errors.New("analysis queue disabled")

// DefaultHistoryLimit caps history queries without an explicit limit.
const DefaultHistoryLimit = 50

// Limits caps the sessions each user may start.
type Limits struct {
	MaxAssessments int
	MaxPractice    int
}

// Service coordinates grading, limits and persistence.
type Service struct {
	store     Store
	grader    grading.SpeechGrader
	publisher JobPublisher
	metrics   *observe.Metrics
	limits    Limits
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher enables queued analysis through Submit.
func WithPublisher(p JobPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics counts graded sessions.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a practice service.
func NewService(store Store, grader grading.SpeechGrader, limits Limits, opts ...Option) *Service {
	s := &Service{
		store:  store,
		grader: grader,
		limits: limits,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "practice")
	return s
}

// QueueEnabled reports whether Submit can publish jobs.
func (s *Service) QueueEnabled() bool {
	return s.publisher != nil
}

// Counts returns the user's counters with the configured caps.
func (s *Service) Counts(ctx context.Context, userID uuid.UUID) (domain.SessionCounts, error) {
	c, err := s.store.Counts(ctx, userID)
	if err != nil {
		return domain.SessionCounts{}, err
	}
	c.MaxAssessments = s.limits.MaxAssessments
	c.MaxPractice = s.limits.MaxPractice
	return c, nil
}

// CheckLimit reports whether the user may start another session of kind.
func (s *Service) CheckLimit(ctx context.Context, userID uuid.UUID, kind domain.SessionKind) (domain.LimitStatus, error) {
	c, err := s.Counts(ctx, userID)
	if err != nil {
		return domain.LimitStatus{}, err
	}
	return c.Limit(kind), nil
}

func (s *Service) requireAllowance(ctx context.Context, userID uuid.UUID, kind domain.SessionKind) error {
	status, err := s.CheckLimit(ctx, userID, kind)
	if err != nil {
		return err
	}
	if !status.Allowed {
		return fmt.Errorf("%w: %s", domain.ErrSessionLimitReached, kind)
	}
	return nil
}

// reserve claims one session of kind before grading starts, so concurrent
// requests cannot all pass the cap while the grader is busy.
func (s *Service) reserve(ctx context.Context, userID uuid.UUID, kind domain.SessionKind) error {
	ok, err := s.store.ReserveSlot(ctx, userID, kind, domain.SessionCounts{
		MaxAssessments: s.limits.MaxAssessments,
		MaxPractice:    s.limits.MaxPractice,
	}.Max(kind))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionLimitReached, kind)
	}
	return nil
}

// release hands back a reserved slot after grading failed. It runs on a
// context detached from the request so a cancelled caller still frees it.
func (s *Service) release(ctx context.Context, userID uuid.UUID, kind domain.SessionKind) {
	if err := s.store.ReleaseSlot(context.WithoutCancel(ctx), userID, kind); err != nil {
		s.logger.Error("release session slot",
			"user_id", userID,
			"kind", kind,
			"error", err,
		)
	}
}

// AssessInput is one placement recording.
type AssessInput struct {
	Audio      string // data URL or base64
	MIMEType   string
	Transcript string
	Language   string
}

// AssessmentResult is the outcome of a placement.
type AssessmentResult struct {
	Session    *domain.PracticeSession `json:"session"`
	Level      domain.Level            `json:"level"`
	Confidence domain.Confidence       `json:"confidence"`
	Path       domain.ImprovementPath  `json:"improvement_path"`
	Remaining  int                     `json:"remaining"`
}

// AssessLevel grades a placement recording across the full A1..C2 range
// and stores the result as the user's preferred level.
func (s *Service) AssessLevel(ctx context.Context, userID uuid.UUID, in AssessInput) (*AssessmentResult, error) {
	if err := s.reserve(ctx, userID, domain.KindAssessment); err != nil {
		return nil, err
	}

	sess, err := s.grade(ctx, userID, domain.KindAssessment, gradeInput{
		audio:      in.Audio,
		mime:       in.MIMEType,
		transcript: in.Transcript,
		topic:      domain.TopicCasual,
		language:   in.Language,
	})
	if err != nil {
		s.release(ctx, userID, domain.KindAssessment)
		return nil, err
	}

	level := sess.OverallLevel()
	if err := s.store.SetPreferredLevel(ctx, userID, level, sess.CreatedAt); err != nil {
		return nil, fmt.Errorf("save preferred level: %w", err)
	}
	remaining, err := s.commit(ctx, sess)
	if err != nil {
		return nil, err
	}

	return &AssessmentResult{
		Session:    sess,
		Level:      level,
		Confidence: sess.Analysis.Confidence,
		Path:       sess.Analysis.Path(),
		Remaining:  remaining,
	}, nil
}

// AnalyzeInput is one practice recording.
type AnalyzeInput struct {
	Audio      string // data URL or base64
	MIMEType   string
	Transcript string
	Topic      domain.TopicID
	Level      domain.Level
	Language   string
}

// Validate checks topic and target level.
func (in AnalyzeInput) Validate() error {
	if _, ok := domain.LookupTopic(in.Topic); !ok {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTopic, in.Topic)
	}
	if !in.Level.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidLevel, in.Level)
	}
	if strings.TrimSpace(in.Audio) == "" && strings.TrimSpace(in.Transcript) == "" {
		return grading.ErrNoInput
	}
	return nil
}

// AnalyzeResult is the outcome of a practice session.
type AnalyzeResult struct {
	Session   *domain.PracticeSession `json:"session"`
	Path      domain.ImprovementPath  `json:"improvement_path"`
	Remaining int                     `json:"remaining"`
}

// Analyze grades a practice recording against its target level.
func (s *Service) Analyze(ctx context.Context, userID uuid.UUID, in AnalyzeInput) (*AnalyzeResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.reserve(ctx, userID, domain.KindPractice); err != nil {
		return nil, err
	}

	sess, err := s.grade(ctx, userID, domain.KindPractice, gradeInput{
		audio:      in.Audio,
		mime:       in.MIMEType,
		transcript: in.Transcript,
		topic:      in.Topic,
		level:      in.Level,
		language:   in.Language,
	})
	if err != nil {
		s.release(ctx, userID, domain.KindPractice)
		return nil, err
	}
	remaining, err := s.commit(ctx, sess)
	if err != nil {
		return nil, err
	}

	return &AnalyzeResult{Session: sess, Path: sess.Analysis.Path(), Remaining: remaining}, nil
}

// Submit validates and queues a recording instead of grading inline. The
// returned job ID is resolved by the queue consumer through ProcessJob.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, kind domain.SessionKind, in AnalyzeInput) (uuid.UUID, error) {
	if s.publisher == nil {
		return uuid.Nil, ErrQueueDisabled
	}
	if kind == domain.KindAssessment {
		in.Topic = domain.TopicCasual
		if in.Level == "" {
			in.Level = domain.LevelB1
		}
	}
	if err := in.Validate(); err != nil {
		return uuid.Nil, err
	}

	audio, mime, err := DecodeAudio(in.Audio)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.requireAllowance(ctx, userID, kind); err != nil {
		return uuid.Nil, err
	}

	job := &queue.AnalysisJob{
		ID:         uuid.New(),
		UserID:     userID,
		Kind:       kind,
		Topic:      in.Topic,
		Level:      in.Level,
		Language:   in.Language,
		MIMEType:   firstNonEmpty(in.MIMEType, mime),
		Transcript: in.Transcript,
		EnqueuedAt: s.now().UTC(),
	}
	if kind == domain.KindAssessment {
		job.Level = ""
	}
	if len(audio) > 0 {
		job.Audio = EncodeAudio(audio)
	}

	if err := s.publisher.PublishJob(ctx, job); err != nil {
		return uuid.Nil, err
	}
	return job.ID, nil
}

// ProcessJob runs a queued job through the same pipeline as the inline
// calls.
func (s *Service) ProcessJob(ctx context.Context, job *queue.AnalysisJob) (*queue.AnalysisResult, error) {
	var sess *domain.PracticeSession
	switch job.Kind {
	case domain.KindAssessment:
		res, err := s.AssessLevel(ctx, job.UserID, AssessInput{
			Audio:      job.Audio,
			MIMEType:   job.MIMEType,
			Transcript: job.Transcript,
			Language:   job.Language,
		})
		if err != nil {
			return nil, err
		}
		sess = res.Session
	case domain.KindPractice:
		res, err := s.Analyze(ctx, job.UserID, AnalyzeInput{
			Audio:      job.Audio,
			MIMEType:   job.MIMEType,
			Transcript: job.Transcript,
			Topic:      job.Topic,
			Level:      job.Level,
			Language:   job.Language,
		})
		if err != nil {
			return nil, err
		}
		sess = res.Session
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSessionKind, job.Kind)
	}

	return &queue.AnalysisResult{
		SessionID:    sess.ID,
		OverallLevel: sess.OverallLevel(),
	}, nil
}

// History lists the user's sessions, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, f domain.SessionFilter) ([]*domain.PracticeSession, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}
	if f.Topic != "" {
		if _, ok := domain.LookupTopic(f.Topic); !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTopic, f.Topic)
		}
	}
	if f.Level != "" && !f.Level.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidLevel, f.Level)
	}
	return s.store.ListSessions(ctx, userID, f)
}

// ByTopic lists the user's sessions on one topic.
func (s *Service) ByTopic(ctx context.Context, userID uuid.UUID, topic domain.TopicID, limit int) ([]*domain.PracticeSession, error) {
	return s.History(ctx, userID, domain.SessionFilter{Topic: topic, Limit: limit})
}

// ByLevel lists the user's sessions graded at one overall level.
func (s *Service) ByLevel(ctx context.Context, userID uuid.UUID, level domain.Level, limit int) ([]*domain.PracticeSession, error) {
	return s.History(ctx, userID, domain.SessionFilter{Level: level, Limit: limit})
}

// Get returns one of the user's sessions. Sessions of other users are
// reported as not found.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*domain.PracticeSession, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, domain.ErrPracticeSessionNotFound
	}
	return sess, nil
}

type gradeInput struct {
	audio      string
	mime       string
	transcript string
	topic      domain.TopicID
	level      domain.Level
	language   string
}

func (s *Service) grade(ctx context.Context, userID uuid.UUID, kind domain.SessionKind, in gradeInput) (*domain.PracticeSession, error) {
	audio, mime, err := DecodeAudio(in.audio)
	if err != nil {
		return nil, err
	}

	mode := grading.ModePractice
	if kind == domain.KindAssessment {
		mode = grading.ModeAssessment
	}

	analysis, err := s.grader.Grade(ctx, grading.GradeRequest{
		Audio:      audio,
		MIMEType:   firstNonEmpty(in.mime, mime),
		Transcript: in.transcript,
		Topic:      in.topic,
		Level:      in.level,
		Language:   in.language,
		Mode:       mode,
	})
	if err != nil {
		return nil, fmt.Errorf("grade %s: %w", kind, err)
	}

	sess := domain.NewPracticeSession(userID, kind, in.topic, in.level, analysis)
	sess.Language = domain.LookupLanguage(in.language).Code
	sess.Transcript = firstNonEmpty(analysis.Transcript, in.transcript)
	sess.CreatedAt = s.now().UTC()
	return sess, nil
}

// commit persists a graded session whose slot is already reserved. A
// storage failure keeps the slot counted since the grading was spent.
func (s *Service) commit(ctx context.Context, sess *domain.PracticeSession) (int, error) {
	if err := s.store.SaveSession(ctx, sess); err != nil {
		return 0, err
	}

	s.metrics.RecordSession(ctx, string(sess.Kind), string(sess.OverallLevel()))
	s.logger.Info("session graded",
		"user_id", sess.UserID,
		"session_id", sess.ID,
		"kind", sess.Kind,
		"topic", sess.Topic,
		"overall_level", sess.OverallLevel(),
		"confidence", sess.Analysis.Confidence,
	)

	status, err := s.CheckLimit(ctx, sess.UserID, sess.Kind)
	if err != nil {
		return 0, err
	}
	return status.Remaining, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

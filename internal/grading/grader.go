package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/felixgeelhaar/speakflow/internal/domain"
	"github.com/felixgeelhaar/speakflow/internal/llm"
	"github.com/felixgeelhaar/speakflow/internal/observe"
)

// DefaultAudioMIME is assumed when the caller does not say.
const DefaultAudioMIME = "audio/webm"

// ErrNoInput is returned when a request has neither audio nor transcript.
var ErrNoInput = errors.New("grading request has no audio or transcript")

// Providers picks the model that grades an answer. *llm.Registry
// satisfies it.
type Providers interface {
	Default() (llm.Provider, error)
	ForAudio() (llm.Provider, error)
}

// Grader turns a recorded answer into a validated Analysis
type Grader struct {
	providers   Providers
	prompter    *Prompter
	metrics     *observe.Metrics
	temperature float64
}

// Option configures a Grader
type Option func(*Grader)

// WithMetrics records grading latency and outcome.
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Grader) { g.metrics = m }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *Grader) { g.temperature = t }
}

// NewGrader creates a new grader
func NewGrader(providers Providers, opts ...Option) *Grader {
	g := &Grader{
		providers:   providers,
		prompter:    NewPrompter(),
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GradeRequest contains one answer to grade
type GradeRequest struct {
	Audio      []byte
	MIMEType   string
	Transcript string
	Topic      domain.TopicID
	Level      domain.Level
	Language   string
	Mode       Mode
}

// Grade asks the LLM for five criterion levels and feedback. The overall
// level is computed locally from the criterion levels.
func (g *Grader) Grade(ctx context.Context, req GradeRequest) (*domain.Analysis, error) {
	if len(req.Audio) == 0 && strings.TrimSpace(req.Transcript) == "" {
		return nil, ErrNoInput
	}
	if req.Mode == "" {
		req.Mode = ModePractice
	}
	if req.Mode == ModeAssessment {
		req.Topic = domain.TopicCasual
	}

	provider, err := g.provider(len(req.Audio) > 0)
	if err != nil {
		return nil, err
	}

	lang := domain.LookupLanguage(req.Language)
	prompt := g.prompter.RenderPrompt(PromptInput{
		Mode:       req.Mode,
		Topic:      req.Topic,
		Level:      req.Level,
		Language:   lang,
		Transcript: req.Transcript,
	})

	llmReq := &llm.Request{
		System:      g.prompter.SystemPrompt(req.Mode),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:   8192,
		Temperature: g.temperature,
		JSON:        true,
	}
	if len(req.Audio) > 0 {
		mime := req.MIMEType
		if mime == "" {
			mime = DefaultAudioMIME
		}
		llmReq.Attachments = []llm.Attachment{{MIMEType: mime, Data: req.Audio}}
	}

	ctx, span := observe.StartSpan(ctx, "grading.Grade")
	defer span.End()

	start := time.Now()
	resp, err := provider.Generate(ctx, llmReq)
	if err != nil {
		g.metrics.RecordGrading(ctx, provider.Name(), string(req.Mode), "error", time.Since(start))
		return nil, fmt.Errorf("generate analysis: %w", err)
	}

	analysis, err := ParseAnalysis(resp.Content)
	if err != nil {
		g.metrics.RecordGrading(ctx, provider.Name(), string(req.Mode), "invalid", time.Since(start))
		observe.Logger(ctx).Warn("grading response rejected",
			"provider", provider.Name(),
			"error", err,
			"head", truncate(resp.Content, 200),
		)
		return nil, err
	}
	g.metrics.RecordGrading(ctx, provider.Name(), string(req.Mode), "ok", time.Since(start))

	if analysis.Transcript == "" {
		analysis.Transcript = req.Transcript
	}
	return analysis, nil
}

// GradeIELTS scores a transcript on the IELTS band scale.
func (g *Grader) GradeIELTS(ctx context.Context, transcript string, part int) (*domain.IELTSAnalysis, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrNoInput
	}
	provider, err := g.provider(false)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := provider.Generate(ctx, &llm.Request{
		System:      "You are an expert IELTS speaking examiner.",
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: g.prompter.IELTSPrompt(transcript, part)}},
		MaxTokens:   2048,
		Temperature: g.temperature,
		JSON:        true,
	})
	if err != nil {
		g.metrics.RecordGrading(ctx, provider.Name(), "ielts", "error", time.Since(start))
		return nil, fmt.Errorf("generate ielts analysis: %w", err)
	}

	analysis, err := ParseIELTS(resp.Content)
	status := "ok"
	if err != nil {
		status = "invalid"
	}
	g.metrics.RecordGrading(ctx, provider.Name(), "ielts", status, time.Since(start))
	return analysis, err
}

func (g *Grader) provider(audio bool) (llm.Provider, error) {
	if audio {
		p, err := g.providers.ForAudio()
		if err != nil {
			return nil, fmt.Errorf("get audio provider: %w", err)
		}
		return p, nil
	}
	p, err := g.providers.Default()
	if err != nil {
		return nil, fmt.Errorf("get LLM provider: %w", err)
	}
	return p, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

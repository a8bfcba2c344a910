package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/speakflow/internal/api/handlers"
	"github.com/felixgeelhaar/speakflow/internal/auth"
	"github.com/felixgeelhaar/speakflow/internal/config"
	"github.com/felixgeelhaar/speakflow/internal/credits"
	"github.com/felixgeelhaar/speakflow/internal/grading"
	"github.com/felixgeelhaar/speakflow/internal/llm"
	"github.com/felixgeelhaar/speakflow/internal/observe"
	"github.com/felixgeelhaar/speakflow/internal/practice"
	"github.com/felixgeelhaar/speakflow/internal/profile"
	"github.com/felixgeelhaar/speakflow/internal/voice"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// App holds all application dependencies
type App struct {
	Config   *config.Config
	Store    Pinger
	Auth     *auth.Service
	Practice *practice.Service
	Profile  profile.ProfileService
	Grader   grading.SpeechGrader
	Voice    *voice.Directory
	Credits  *credits.Service

	// Results is nil when the queue is disabled.
	Results handlers.JobResults

	Metrics        *observe.Metrics
	MetricsHandler http.Handler
}

// validate checks that every service the router mounts is present.
func (a *App) validate() error {
	var missing []error
	if a.Config == nil {
		missing = append(missing, errors.New("config"))
	}
	if a.Store == nil {
		missing = append(missing, errors.New("store"))
	}
	if a.Auth == nil {
		missing = append(missing, errors.New("auth service"))
	}
	if a.Practice == nil {
		missing = append(missing, errors.New("practice service"))
	}
	if a.Profile == nil {
		missing = append(missing, errors.New("profile service"))
	}
	if a.Grader == nil {
		missing = append(missing, errors.New("grader"))
	}
	if a.Voice == nil {
		missing = append(missing, errors.New("voice directory"))
	}
	if a.Credits == nil {
		missing = append(missing, errors.New("credits service"))
	}
	if len(missing) > 0 {
		return fmt.Errorf("app missing: %w", errors.Join(missing...))
	}
	return nil
}

// NewLLMRegistry registers every provider with a key, wrapped with
// resilience, and makes cfg.LLMProvider the default. In debug mode a
// missing key for the selected provider is logged instead of failing.
func NewLLMRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*llm.Registry, error) {
	registry := llm.NewRegistry()
	rcfg := llm.DefaultResilientConfig()
	rcfg.Logger = logger

	if cfg.GeminiAPIKey != "" {
		p, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		registry.Register(config.ProviderGemini, llm.NewResilientProvider(p, rcfg))
	}

	if cfg.OpenAIAPIKey != "" {
		p, err := llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai: %w", err)
		}
		registry.Register(config.ProviderOpenAI, llm.NewResilientProvider(p, rcfg))
	}

	if err := registry.SetDefault(cfg.LLMProvider); err != nil {
		if !cfg.Debug {
			return nil, fmt.Errorf("default provider %q: %w", cfg.LLMProvider, err)
		}
		logger.Warn("no LLM provider configured, grading disabled", "provider", cfg.LLMProvider)
	}

	return registry, nil
}

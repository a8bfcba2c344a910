package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Provider names accepted by LLM_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port        int
	Bind        string
	Debug       bool
	LogLevel    string
	CORSOrigins []string

	// Rate limiting (requests per second per client)
	RateLimitRPS   int
	RateLimitBurst int

	// Storage
	StorageDriver string // sqlite, postgres
	DatabaseURL   string
	SQLitePath    string
	RedisURL      string // empty disables the shared credits cache

	// RabbitMQ
	RabbitMQURL  string
	QueueEnabled bool
	QueueWorkers int

	// LLM
	LLMProvider    string // gemini, openai
	GeminiAPIKey   string
	GeminiModel    string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	LLMTemperature float64

	// ElevenLabs voice agents, keyed by band (A1..C2) or "assessment"
	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	Agents            map[string]string

	// Limits
	MaxAssessmentsPerUser int
	MaxPracticePerUser    int

	// Session
	SessionMaxAge int // seconds
}

// AgentKeys lists the keys of Config.Agents, each read from
// ELEVENLABS_AGENT_<KEY>.
var AgentKeys = []string{"A1", "A2", "B1", "B2", "C1", "C2", "assessment"}

// Load reads the YAML layer from ~/.speakflow (or SPEAKFLOW_CONFIG) and
// then applies environment overrides.
func Load() (*Config, error) {
	local, err := LoadLocalConfig()
	if err != nil {
		return nil, err
	}
	return FromLocal(local)
}

// FromLocal applies environment overrides on top of a file configuration
// and validates the result.
func FromLocal(local *LocalConfig) (*Config, error) {
	sqlitePath := local.Storage.SQLitePath
	if sqlitePath == "" {
		if dir, err := SpeakflowDir(); err == nil {
			sqlitePath = filepath.Join(dir, "data", "speakflow.db")
		} else {
			sqlitePath = "speakflow.db"
		}
	}

	cfg := &Config{
		Port:           envOr("PORT", local.Server.Port, strconv.Atoi),
		Bind:           envOr("BIND", local.Server.Bind, asIs),
		Debug:          envOr("DEBUG", local.Server.Debug, strconv.ParseBool),
		LogLevel:       envOr("LOG_LEVEL", local.Server.LogLevel, asIs),
		CORSOrigins:    envOr("CORS_ORIGINS", local.Server.CORSOrigins, parseList),
		RateLimitRPS:   envOr("RATE_LIMIT_RPS", local.Server.RateLimitRPS, strconv.Atoi),
		RateLimitBurst: envOr("RATE_LIMIT_BURST", local.Server.RateLimitBurst, strconv.Atoi),

		StorageDriver: envOr("STORAGE_DRIVER", local.Storage.Driver, asIs),
		DatabaseURL:   envOr("DATABASE_URL", local.Storage.DatabaseURL, asIs),
		SQLitePath:    envOr("SQLITE_PATH", sqlitePath, asIs),
		RedisURL:      envOr("REDIS_URL", local.Storage.RedisURL, asIs),

		RabbitMQURL:  envOr("RABBITMQ_URL", local.Queue.URL, asIs),
		QueueEnabled: envOr("QUEUE_ENABLED", local.Queue.Enabled, strconv.ParseBool),
		QueueWorkers: envOr("QUEUE_WORKERS", local.Queue.Workers, strconv.Atoi),

		LLMProvider:    envOr("LLM_PROVIDER", local.LLM.DefaultProvider, asIs),
		GeminiAPIKey:   envOr("GEMINI_API_KEY", local.LLM.provider(ProviderGemini).APIKey, asIs),
		GeminiModel:    envOr("GEMINI_MODEL", local.LLM.provider(ProviderGemini).Model, asIs),
		OpenAIAPIKey:   envOr("OPENAI_API_KEY", local.LLM.provider(ProviderOpenAI).APIKey, asIs),
		OpenAIModel:    envOr("OPENAI_MODEL", local.LLM.provider(ProviderOpenAI).Model, asIs),
		OpenAIBaseURL:  envOr("OPENAI_BASE_URL", local.LLM.provider(ProviderOpenAI).URL, asIs),
		LLMTemperature: envOr("LLM_TEMPERATURE", local.LLM.Temperature, parseFloat),

		ElevenLabsAPIKey:  envOr("ELEVENLABS_API_KEY", local.Voice.APIKey, asIs),
		ElevenLabsBaseURL: envOr("ELEVENLABS_BASE_URL", local.Voice.BaseURL, asIs),
		Agents:            make(map[string]string, len(AgentKeys)),

		MaxAssessmentsPerUser: envOr("MAX_ASSESSMENTS_PER_USER", local.Limits.MaxAssessments, strconv.Atoi),
		MaxPracticePerUser:    envOr("MAX_PRACTICE_SESSIONS_PER_USER", local.Limits.MaxPractice, strconv.Atoi),

		SessionMaxAge: envOr("SESSION_MAX_AGE", local.Server.SessionMaxAge, strconv.Atoi),
	}

	for _, key := range AgentKeys {
		if id := envOr("ELEVENLABS_AGENT_"+strings.ToUpper(key), local.Voice.Agents[key], asIs); id != "" {
			cfg.Agents[key] = id
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerations, limits and, outside debug mode, that the
// selected LLM provider has a key. Every problem found is reported.
func (c *Config) Validate() error {
	var errs []error
	if c.StorageDriver != DriverSQLite && c.StorageDriver != DriverPostgres {
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.StorageDriver))
	}
	if c.StorageDriver == DriverPostgres && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL must be set for the postgres driver"))
	}
	if c.LLMProvider != ProviderGemini && c.LLMProvider != ProviderOpenAI {
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, c.LLMProvider))
	} else if c.LLMAPIKey() == "" && !c.Debug {
		errs = append(errs, fmt.Errorf("%s API key must be set outside debug mode", c.LLMProvider))
	}
	if c.MaxAssessmentsPerUser < 0 || c.MaxPracticePerUser < 0 {
		errs = append(errs, errors.New("session limits must not be negative"))
	}
	if c.QueueEnabled && c.RabbitMQURL == "" {
		errs = append(errs, errors.New("RABBITMQ_URL must be set when the queue is enabled"))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// LLMAPIKey returns the key of the selected provider.
func (c *Config) LLMAPIKey() string {
	if c.LLMProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// LLMModel returns the model of the selected provider.
func (c *Config) LLMModel() string {
	if c.LLMProvider == ProviderOpenAI {
		return c.OpenAIModel
	}
	return c.GeminiModel
}

// SessionTTL is SessionMaxAge as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionMaxAge) * time.Second
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return !c.Debug
}

// envOr returns key parsed by parse, or def when key is unset or does not
// parse.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func asIs(s string) (string, error) { return s, nil }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// parseList splits a comma separated value and drops empty entries.
func parseList(s string) ([]string, error) {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

package config

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOr(t *testing.T) {
	t.Setenv("SF_TEST_PORT", "9090")
	t.Setenv("SF_TEST_BAD_PORT", "ninety")
	t.Setenv("SF_TEST_DEBUG", "1")
	t.Setenv("SF_TEST_TEMP", "0.35")
	t.Setenv("SF_TEST_EMPTY", "")

	assert.Equal(t, 9090, envOr("SF_TEST_PORT", 8080, strconv.Atoi))
	assert.Equal(t, 8080, envOr("SF_TEST_BAD_PORT", 8080, strconv.Atoi), "unparsable value keeps the default")
	assert.Equal(t, 8080, envOr("SF_TEST_UNSET", 8080, strconv.Atoi))
	assert.True(t, envOr("SF_TEST_DEBUG", false, strconv.ParseBool))
	assert.InDelta(t, 0.35, envOr("SF_TEST_TEMP", 0.2, parseFloat), 1e-9)
	assert.Equal(t, "gemini", envOr("SF_TEST_EMPTY", "gemini", asIs), "empty value keeps the default")
}

func TestParseList(t *testing.T) {
	got, err := parseList(" https://a.test , ,https://b.test,")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, got)

	t.Setenv("SF_TEST_ORIGINS", "")
	assert.Equal(t, []string{"x"}, envOr("SF_TEST_ORIGINS", []string{"x"}, parseList))
}

// isolate points HOME at a temp dir and clears variables that a developer
// machine or CI runner might set.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		ConfigPathEnv, "DEBUG", "PORT", "BIND", "LLM_PROVIDER", "STORAGE_DRIVER", "DATABASE_URL",
		"GEMINI_API_KEY", "GEMINI_MODEL", "OPENAI_API_KEY", "OPENAI_MODEL",
		"ELEVENLABS_API_KEY", "MAX_ASSESSMENTS_PER_USER", "MAX_PRACTICE_SESSIONS_PER_USER",
		"SESSION_MAX_AGE", "CORS_ORIGINS", "SQLITE_PATH", "QUEUE_ENABLED", "RABBITMQ_URL",
		"LLM_TEMPERATURE",
	} {
		t.Setenv(key, "")
	}
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, ProviderGemini, cfg.LLMProvider)
	assert.Equal(t, "gemini-2.0-flash-exp", cfg.LLMModel())
	assert.Equal(t, 1, cfg.MaxAssessmentsPerUser)
	assert.Equal(t, 2, cfg.MaxPracticePerUser)
	assert.Equal(t, 5*24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, filepath.Join(home, ".speakflow", "data", "speakflow.db"), cfg.SQLitePath)
	assert.False(t, cfg.SecureCookies(), "debug mode serves plain-http cookies")
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	for k, v := range map[string]string{
		"DEBUG":                          "true",
		"PORT":                           "9000",
		"LLM_PROVIDER":                   "openai",
		"OPENAI_MODEL":                   "gpt-4o-mini",
		"LLM_TEMPERATURE":                "0.4",
		"MAX_PRACTICE_SESSIONS_PER_USER": "5",
		"ELEVENLABS_AGENT_B1":            "agent-b1",
		"ELEVENLABS_AGENT_ASSESSMENT":    "agent-assess",
		"CORS_ORIGINS":                   "https://speakflow.app,https://www.speakflow.app",
	} {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel())
	assert.InDelta(t, 0.4, cfg.LLMTemperature, 1e-9)
	assert.Equal(t, 5, cfg.MaxPracticePerUser)
	assert.Equal(t, map[string]string{"B1": "agent-b1", "assessment": "agent-assess"}, cfg.Agents)
	assert.Len(t, cfg.CORSOrigins, 2)
}

func TestLoad_Production(t *testing.T) {
	isolate(t)

	_, err := Load()
	require.Error(t, err, "production needs an LLM key")
	assert.Contains(t, err.Error(), "gemini API key")

	t.Setenv("GEMINI_API_KEY", "a-real-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "a-real-key", cfg.LLMAPIKey())
	assert.True(t, cfg.SecureCookies())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{StorageDriver: DriverSQLite, LLMProvider: ProviderGemini, Debug: true}
	}

	tests := map[string]struct {
		mutate  func(*Config)
		wantErr string
	}{
		"valid":                  {func(*Config) {}, ""},
		"unknown driver":         {func(c *Config) { c.StorageDriver = "mysql" }, "STORAGE_DRIVER"},
		"unknown provider":       {func(c *Config) { c.LLMProvider = "claude" }, "LLM_PROVIDER"},
		"postgres without url":   {func(c *Config) { c.StorageDriver = DriverPostgres }, "DATABASE_URL"},
		"negative limit":         {func(c *Config) { c.MaxPracticePerUser = -1 }, "negative"},
		"production without key": {func(c *Config) { c.Debug = false }, "API key"},
		"queue without broker":   {func(c *Config) { c.QueueEnabled = true }, "RABBITMQ_URL"},
		"postgres with url": {func(c *Config) {
			c.StorageDriver = DriverPostgres
			c.DatabaseURL = "postgres://localhost/speakflow"
		}, ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_Validate_ReportsEveryProblem(t *testing.T) {
	cfg := &Config{StorageDriver: "mysql", LLMProvider: "claude", MaxAssessmentsPerUser: -1}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"STORAGE_DRIVER", "LLM_PROVIDER", "negative"} {
		assert.Contains(t, err.Error(), want)
	}
}

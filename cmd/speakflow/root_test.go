package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// run executes the root command with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func tempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SPEAKFLOW_CONFIG", "")
	t.Setenv("ELEVENLABS_API_KEY", "")
	t.Setenv("ELEVENLABS_BASE_URL", "")
	return home
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "speakflow dev\n", out)
}

func TestLevelList(t *testing.T) {
	out, err := run(t, "level", "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 11)
	assert.True(t, strings.HasPrefix(lines[0], "A1 "))
	assert.True(t, strings.HasPrefix(lines[10], "C2 "))
}

func TestLevelAggregate(t *testing.T) {
	out, err := run(t, "level", "aggregate",
		"--range", "B2", "--accuracy", "B2", "--fluency", "B2",
		"--interaction", "B2", "--coherence", "B2", "--json")
	require.NoError(t, err)

	var got struct {
		OverallLevel string  `json:"overall_level"`
		Confidence   string  `json:"confidence"`
		RankSpread   float64 `json:"rank_spread"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "B2", got.OverallLevel)
	assert.Equal(t, "high", got.Confidence)
	assert.Zero(t, got.RankSpread)
}

func TestLevelAggregate_Text(t *testing.T) {
	out, err := run(t, "level", "aggregate",
		"--range", "c1", "--accuracy", "B1", "--fluency", "B1",
		"--interaction", "B1", "--coherence", "B1")
	require.NoError(t, err)
	assert.Contains(t, out, "Overall level:")
	assert.Contains(t, out, "Focus areas:")
}

func TestLevelAggregate_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "missing criterion",
			args: []string{"--range", "B1", "--accuracy", "B1", "--fluency", "B1", "--interaction", "B1"},
			want: "--coherence is required",
		},
		{
			name: "invalid level",
			args: []string{"--range", "B3", "--accuracy", "B1", "--fluency", "B1", "--interaction", "B1", "--coherence", "B1"},
			want: "--range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"level", "aggregate"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLevelPath(t *testing.T) {
	out, err := run(t, "level", "path", "B1+")
	require.NoError(t, err)
	assert.Contains(t, out, "Next level:     B2")
	assert.Equal(t, 3, strings.Count(out, "  - "))

	out, err = run(t, "level", "path", "C2")
	require.NoError(t, err)
	assert.Contains(t, out, "none (C2 is the top of the scale)")

	_, err = run(t, "level", "path", "D1")
	assert.Error(t, err)
}

func TestLevelDescribe_JSON(t *testing.T) {
	out, err := run(t, "level", "describe", "a2+", "--json")
	require.NoError(t, err)

	var got struct {
		Level                string            `json:"level"`
		Band                 string            `json:"band"`
		CriterionDescriptors map[string]string `json:"criterion_descriptors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "A2+", got.Level)
	assert.Equal(t, "A2", got.Band)
	assert.Len(t, got.CriterionDescriptors, 5)
}

func TestTopics(t *testing.T) {
	out, err := run(t, "topics")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))
}

func TestInit(t *testing.T) {
	home := tempHome(t)

	out, err := run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default configuration")
	assert.FileExists(t, filepath.Join(home, ".speakflow", "config.yaml"))

	out, err = run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration already exists")
}

func TestSecretsSet(t *testing.T) {
	home := tempHome(t)

	_, err := run(t, "secrets", "set", "gemini", "key-123")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, ".speakflow", "secrets.yaml"))
	require.NoError(t, err)

	var secrets struct {
		Providers map[string]struct {
			APIKey string `yaml:"api_key"`
		} `yaml:"providers"`
	}
	require.NoError(t, yaml.Unmarshal(data, &secrets))
	assert.Equal(t, "key-123", secrets.Providers["gemini"].APIKey)
}

func TestSecretsSet_Errors(t *testing.T) {
	tempHome(t)

	_, err := run(t, "secrets", "set", "anthropic", "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown secret")

	_, err = run(t, "secrets", "set", "openai")
	assert.Error(t, err, "empty stdin should not store a key")
}

func TestCredits(t *testing.T) {
	tempHome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"character_count":2500,"character_limit":10000,"next_character_count_reset_unix":0}`))
	}))
	defer srv.Close()

	t.Setenv("ELEVENLABS_API_KEY", "test-key")
	t.Setenv("ELEVENLABS_BASE_URL", srv.URL)

	out, err := run(t, "credits")
	require.NoError(t, err)
	assert.Contains(t, out, "2500 / 10000 (25.00%)")
	assert.Contains(t, out, "75.00%")
}

func TestCredits_NotConfigured(t *testing.T) {
	tempHome(t)

	_, err := run(t, "credits")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

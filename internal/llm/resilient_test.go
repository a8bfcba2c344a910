package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	unavailable = &StatusError{Provider: "fake", StatusCode: 503, Err: errors.New("overloaded")}
	badKey      = &StatusError{Provider: "fake", StatusCode: 401, Err: errors.New("invalid key")}
)

// fastConfig keeps backoff short and leaves the limiter off unless a test
// asks for it.
func fastConfig() ResilientConfig {
	return ResilientConfig{RetryDelay: time.Millisecond, RatePerSecond: -1}
}

func audioRequest() *Request {
	return &Request{Attachments: []Attachment{{MIMEType: "audio/webm", Data: []byte{0x1a, 0x45}}}}
}

func TestDefaultResilientConfig(t *testing.T) {
	cfg := DefaultResilientConfig()

	assert.Equal(t, 3, cfg.Attempts)
	assert.Less(t, cfg.AudioAttempts, cfg.Attempts)
	assert.Positive(t, cfg.TripAfter)
	assert.Positive(t, cfg.MaxConcurrent)
	assert.Positive(t, cfg.RatePerSecond)
}

func TestResilientConfig_WithDefaults(t *testing.T) {
	cfg := ResilientConfig{Attempts: 5, TripAfter: -1}.withDefaults()

	assert.Equal(t, 5, cfg.Attempts)
	assert.Equal(t, DefaultResilientConfig().AudioAttempts, cfg.AudioAttempts)
	assert.Equal(t, -1, cfg.TripAfter)
	assert.Equal(t, time.Minute, cfg.OpenFor)
}

func TestResilientProvider_PoliciesDisabled(t *testing.T) {
	inner := &fakeProvider{name: "openai", err: unavailable}
	rp := NewResilientProvider(inner, ResilientConfig{
		Attempts: -1, AudioAttempts: -1, TripAfter: -1, MaxConcurrent: -1, RatePerSecond: -1,
	})

	assert.Nil(t, rp.limiter)
	assert.Nil(t, rp.breaker)
	assert.Nil(t, rp.retrier)
	assert.Nil(t, rp.slots)

	_, err := rp.Generate(context.Background(), &Request{})
	assert.ErrorIs(t, err, unavailable)
	assert.Equal(t, 1, inner.callCount())
}

func TestResilientProvider_RetriesTransientFailure(t *testing.T) {
	inner := &fakeProvider{name: "openai", err: unavailable, failFirst: 2}
	rp := NewResilientProvider(inner, fastConfig())

	resp, err := rp.Generate(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, "openai graded", resp.Content)
	assert.Equal(t, 3, inner.callCount())
}

func TestResilientProvider_AudioGetsFewerAttempts(t *testing.T) {
	text := &fakeProvider{name: "gemini", audio: true, err: unavailable}
	_, err := NewResilientProvider(text, fastConfig()).Generate(context.Background(), &Request{})
	require.Error(t, err)
	assert.Equal(t, 3, text.callCount())

	audio := &fakeProvider{name: "gemini", audio: true, err: unavailable}
	_, err = NewResilientProvider(audio, fastConfig()).Generate(context.Background(), audioRequest())
	require.Error(t, err)
	assert.Equal(t, 2, audio.callCount())
}

func TestResilientProvider_NoRetryOnAuthFailure(t *testing.T) {
	inner := &fakeProvider{name: "openai", err: badKey}
	rp := NewResilientProvider(inner, fastConfig())

	_, err := rp.Generate(context.Background(), &Request{})
	assert.ErrorIs(t, err, badKey)
	assert.Equal(t, 1, inner.callCount())
}

func TestResilientProvider_BreakerOpens(t *testing.T) {
	inner := &fakeProvider{name: "gemini", err: badKey}
	cfg := fastConfig()
	cfg.TripAfter = 2
	rp := NewResilientProvider(inner, cfg)
	ctx := context.Background()

	for range 2 {
		_, err := rp.Generate(ctx, &Request{})
		require.Error(t, err)
	}
	_, err := rp.Generate(ctx, &Request{})
	require.Error(t, err)
	assert.Equal(t, 2, inner.callCount(), "open breaker should not reach the provider")
}

func TestResilientProvider_RateLimited(t *testing.T) {
	inner := &fakeProvider{name: "gemini"}
	cfg := fastConfig()
	cfg.RatePerSecond = 1
	rp := NewResilientProvider(inner, cfg)
	defer rp.Close()

	var limited error
	for range 10 {
		if _, err := rp.Generate(context.Background(), &Request{}); err != nil {
			limited = err
			break
		}
	}
	require.ErrorIs(t, limited, ErrRateLimited)
	assert.Contains(t, limited.Error(), "gemini")
}

func TestResilientProvider_Delegates(t *testing.T) {
	inner := &fakeProvider{name: "gemini", audio: true}
	rp := NewResilientProvider(inner, DefaultResilientConfig())

	assert.Equal(t, "gemini", rp.Name())
	assert.True(t, rp.SupportsAudio())
	assert.Same(t, inner, rp.Unwrap())

	require.NoError(t, rp.Close())
	assert.True(t, inner.closed)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestRetryable(t *testing.T) {
	status := func(code int) error {
		return fmt.Errorf("grade: %w", &StatusError{Provider: "openai", StatusCode: code, Err: errors.New("x")})
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"throttled", status(429), true},
		{"internal", status(500), true},
		{"bad gateway", status(502), true},
		{"unavailable", status(503), true},
		{"gateway timeout", status(504), true},
		{"bad request", status(400), false},
		{"unauthorized", status(401), false},
		{"not found", status(404), false},
		{"network timeout", fmt.Errorf("dial: %w", timeoutErr{}), true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("malformed json"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

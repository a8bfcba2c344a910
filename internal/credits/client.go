// Package credits reports the remaining voice-synthesis character quota of
// the ElevenLabs account behind the conversation agents.
package credits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
)

// DefaultBaseURL is the public ElevenLabs API.
const DefaultBaseURL = "https://api.elevenlabs.io"

var (
	ErrNotConfigured = errors.New("elevenlabs api key is not configured")
	ErrUpstream      = errors.New("elevenlabs api error")
)

// Subscription is the part of GET /v1/user/subscription we use.
type Subscription struct {
	CharacterCount          int64 `json:"character_count"`
	CharacterLimit          int64 `json:"character_limit"`
	NextCharacterCountReset int64 `json:"next_character_count_reset_unix"`
	CanExtendCharacterLimit bool  `json:"can_extend_character_limit"`
}

// Fetcher loads the current subscription.
type Fetcher interface {
	Subscription(ctx context.Context) (*Subscription, error)
}

// Client calls the ElevenLabs REST API
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retrier retry.Retry[*Subscription]
}

// ClientConfig holds configuration for the client
type ClientConfig struct {
	APIKey  string
	BaseURL string // default: https://api.elevenlabs.io
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
	// RetryDelay is the initial backoff; zero uses 500ms.
	RetryDelay time.Duration
}

// NewClient creates a new ElevenLabs client
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    cfg.HTTPClient,
		retrier: retry.New[*Subscription](retry.Config{
			MaxAttempts:   3,
			InitialDelay:  cfg.RetryDelay,
			MaxDelay:      5 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isRetryable,
		}),
	}
}

// Subscription fetches the account's character quota.
func (c *Client) Subscription(ctx context.Context) (*Subscription, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	return c.retrier.Do(ctx, c.fetch)
}

func (c *Client) fetch(ctx context.Context) (*Subscription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/user/subscription", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	var sub Subscription
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, fmt.Errorf("decode subscription: %w", err)
	}
	return &sub, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrUpstream, e.code, e.body)
}

func (e *statusError) Unwrap() error { return ErrUpstream }

func isRetryable(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		// Transport errors are worth another attempt; context errors are not.
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	switch se.code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

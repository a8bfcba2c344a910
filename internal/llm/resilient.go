package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// ResilientProvider guards a provider with fortify policies. A call passes
// the rate limiter, then the circuit breaker, then retries, and each
// attempt holds a bulkhead slot.
//
// Requests carrying audio get fewer attempts than text requests: every
// retry re-uploads the recording.
type ResilientProvider struct {
	provider Provider
	logger   *slog.Logger

	limiter      ratelimit.RateLimiter
	breaker      circuitbreaker.CircuitBreaker[*Response]
	retrier      retry.Retry[*Response]
	audioRetrier retry.Retry[*Response]
	slots        bulkhead.Bulkhead[*Response]
}

// ResilientConfig tunes the policies. Zero fields take the value from
// DefaultResilientConfig; a negative field disables that policy.
type ResilientConfig struct {
	// Attempts per text request, including the first.
	Attempts int
	// AudioAttempts per request with an audio attachment.
	AudioAttempts int
	// RetryDelay is the initial backoff.
	RetryDelay time.Duration

	// TripAfter consecutive failures open the breaker for OpenFor.
	TripAfter int
	OpenFor   time.Duration

	// MaxConcurrent gradings in flight; QueueTimeout bounds the wait for
	// a slot.
	MaxConcurrent int
	QueueTimeout  time.Duration

	// RatePerSecond calls admitted per provider.
	RatePerSecond int

	Logger *slog.Logger
}

// DefaultResilientConfig suits graded recordings of a few minutes.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		Attempts:      3,
		AudioAttempts: 2,
		RetryDelay:    2 * time.Second,
		TripAfter:     3,
		OpenFor:       time.Minute,
		MaxConcurrent: 5,
		QueueTimeout:  30 * time.Second,
		RatePerSecond: 2,
	}
}

func (c ResilientConfig) withDefaults() ResilientConfig {
	d := DefaultResilientConfig()
	pick := func(v, def int) int {
		if v == 0 {
			return def
		}
		return v
	}
	c.Attempts = pick(c.Attempts, d.Attempts)
	c.AudioAttempts = pick(c.AudioAttempts, d.AudioAttempts)
	c.TripAfter = pick(c.TripAfter, d.TripAfter)
	c.MaxConcurrent = pick(c.MaxConcurrent, d.MaxConcurrent)
	c.RatePerSecond = pick(c.RatePerSecond, d.RatePerSecond)
	if c.RetryDelay == 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.OpenFor == 0 {
		c.OpenFor = d.OpenFor
	}
	if c.QueueTimeout == 0 {
		c.QueueTimeout = d.QueueTimeout
	}
	return c
}

// NewResilientProvider wraps provider with the policies of cfg.
func NewResilientProvider(provider Provider, cfg ResilientConfig) *ResilientProvider {
	cfg = cfg.withDefaults()
	rp := &ResilientProvider{provider: provider, logger: cfg.Logger}
	if rp.logger == nil {
		rp.logger = slog.Default()
	}

	if cfg.RatePerSecond > 0 {
		rp.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RatePerSecond,
			Burst:    cfg.RatePerSecond * 3,
			Interval: time.Second,
		})
	}

	if cfg.TripAfter > 0 {
		tripAfter := cfg.TripAfter
		rp.breaker = circuitbreaker.New[*Response](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    10 * time.Second,
			Timeout:     cfg.OpenFor,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return int(counts.ConsecutiveFailures) >= tripAfter
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				rp.logger.Warn("llm circuit breaker",
					"provider", provider.Name(),
					"from", from.String(),
					"to", to.String())
			},
		})
	}

	rp.retrier = newRetrier(cfg.Attempts, cfg.RetryDelay)
	rp.audioRetrier = newRetrier(cfg.AudioAttempts, cfg.RetryDelay)

	if cfg.MaxConcurrent > 0 {
		rp.slots = bulkhead.New[*Response](bulkhead.Config{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxQueue:      cfg.MaxConcurrent * 2,
			QueueTimeout:  cfg.QueueTimeout,
		})
	}

	return rp
}

func newRetrier(attempts int, delay time.Duration) retry.Retry[*Response] {
	if attempts <= 1 {
		return nil
	}
	return retry.New[*Response](retry.Config{
		MaxAttempts:   attempts,
		InitialDelay:  delay,
		MaxDelay:      30 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   Retryable,
	})
}

func (p *ResilientProvider) Name() string {
	return p.provider.Name()
}

func (p *ResilientProvider) SupportsAudio() bool {
	return p.provider.SupportsAudio()
}

// Unwrap returns the guarded provider.
func (p *ResilientProvider) Unwrap() Provider {
	return p.provider
}

func (p *ResilientProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if p.limiter != nil && !p.limiter.Allow(ctx, p.provider.Name()) {
		return nil, fmt.Errorf("%w for provider %s", ErrRateLimited, p.provider.Name())
	}

	attempt := func(ctx context.Context) (*Response, error) {
		if p.slots == nil {
			return p.provider.Generate(ctx, req)
		}
		return p.slots.Execute(ctx, func(ctx context.Context) (*Response, error) {
			return p.provider.Generate(ctx, req)
		})
	}

	retrier := p.retrier
	if req.HasAudio() {
		retrier = p.audioRetrier
	}
	call := attempt
	if retrier != nil {
		call = func(ctx context.Context) (*Response, error) {
			return retrier.Do(ctx, attempt)
		}
	}

	if p.breaker != nil {
		return p.breaker.Execute(ctx, call)
	}
	return call(ctx)
}

// Close stops the rate limiter and closes the guarded provider.
func (p *ResilientProvider) Close() error {
	var errs []error
	if p.limiter != nil {
		errs = append(errs, p.limiter.Close())
	}
	if c, ok := p.provider.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Retryable reports whether err is worth another attempt: throttling,
// upstream 5xx and network timeouts. Bad requests and auth failures are
// final.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

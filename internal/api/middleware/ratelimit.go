package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RateLimitConfig is a per-client token bucket: RequestsPerSecond refill
// with room for Burst.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 5, Burst: 15}
}

// A burst below the rate would starve steady clients, so it is raised.
func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRateLimitConfig().RequestsPerSecond
	}
	if c.Burst < c.RequestsPerSecond {
		c.Burst = 3 * c.RequestsPerSecond
	}
	return c
}

// RateLimit limits requests per client IP with a fortify token bucket.
// Mount it after chi's RealIP so RemoteAddr holds the client address.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	cfg = cfg.withDefaults()
	buckets := ratelimit.New(&ratelimit.Config{
		Rate:     cfg.RequestsPerSecond,
		Burst:    cfg.Burst,
		Interval: time.Second,
	})
	limit := strconv.Itoa(cfg.RequestsPerSecond)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)
			if buckets.Allow(r.Context(), client) {
				next.ServeHTTP(w, r)
				return
			}

			slog.Warn("client throttled", "client", client, "path", r.URL.Path,
				"request_id", chimw.GetReqID(r.Context()))
			w.Header().Set("Retry-After", "1")
			w.Header().Set("X-RateLimit-Limit", limit)
			fail(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please try again later")
		})
	}
}

// clientKey strips the port from RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

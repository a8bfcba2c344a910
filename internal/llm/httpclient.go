package llm

import (
	"net"
	"net/http"
	"time"
)

// DefaultRequestTimeout covers grading a few minutes of recorded speech.
const DefaultRequestTimeout = 3 * time.Minute

// newProviderHTTPClient returns the client shared by a provider's calls.
// A zero timeout means DefaultRequestTimeout.
func newProviderHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: time.Minute}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: timeout,
			ExpectContinueTimeout: time.Second,
			IdleConnTimeout:       2 * time.Minute,
			MaxIdleConnsPerHost:   4,
			MaxConnsPerHost:       8,
			ForceAttemptHTTP2:     true,
		},
	}
}

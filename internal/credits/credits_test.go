package credits

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		APIKey:     "xi-test",
		BaseURL:    srv.URL + "/",
		RetryDelay: time.Millisecond,
	}), &calls
}

func TestClient_Subscription(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/user/subscription", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "xi-test", r.Header.Get("xi-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tier":"creator","character_count":2500,"character_limit":10000,
			"next_character_count_reset_unix":1735689600,"can_extend_character_limit":true}`))
	})

	sub, err := client.Subscription(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2500), sub.CharacterCount)
	assert.Equal(t, int64(10000), sub.CharacterLimit)
	assert.Equal(t, int64(1735689600), sub.NextCharacterCountReset)
	assert.True(t, sub.CanExtendCharacterLimit)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_Subscription_RetriesServerErrors(t *testing.T) {
	var n int32
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"character_count":1,"character_limit":2}`))
	})

	sub, err := client.Subscription(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), sub.CharacterLimit)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestClient_Subscription_NoRetryOnAuthError(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid_api_key"}`))
	})

	_, err := client.Subscription(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestClient_Subscription_NotConfigured(t *testing.T) {
	_, err := NewClient(ClientConfig{}).Subscription(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&statusError{code: http.StatusTooManyRequests}))
	assert.True(t, isRetryable(&statusError{code: http.StatusBadGateway}))
	assert.False(t, isRetryable(&statusError{code: http.StatusForbidden}))
	assert.True(t, isRetryable(errors.New("connection reset")))
	assert.False(t, isRetryable(context.Canceled))
	assert.ErrorIs(t, &statusError{code: 500}, ErrUpstream)
}

func TestNewInfo(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		count, limit  int64
		wantUsed      float64
		wantRemaining float64
	}{
		{"quarter", 2500, 10000, 25, 75},
		{"thirds", 1, 3, 33.33, 66.67},
		{"zero limit", 10, 0, 0, 100},
		{"exhausted", 500, 500, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewInfo(&Subscription{CharacterCount: tt.count, CharacterLimit: tt.limit}, at)
			assert.Equal(t, tt.wantUsed, info.PercentageUsed)
			assert.Equal(t, tt.wantRemaining, info.PercentageRemaining)
			assert.Equal(t, at, info.CachedAt)
			assert.False(t, info.IsStale)
		})
	}
}

type fakeFetcher struct {
	sub   *Subscription
	err   error
	calls int
}

func (f *fakeFetcher) Subscription(ctx context.Context) (*Subscription, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

func newTestService(f Fetcher) (*Service, *MemoryCell[Info], *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cell := NewMemoryCell[Info]()
	cell.now = func() time.Time { return now }
	svc := NewService(f, cell, nil, nil)
	svc.now = func() time.Time { return now }
	return svc, cell, &now
}

func TestService_Get_CachesWithinTTL(t *testing.T) {
	f := &fakeFetcher{sub: &Subscription{CharacterCount: 10, CharacterLimit: 100}}
	svc, _, now := newTestService(f)
	ctx := context.Background()

	first, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10.0, first.PercentageUsed)

	*now = now.Add(4 * time.Minute)
	_, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls, "second call within TTL should hit the cache")

	*now = now.Add(2 * time.Minute)
	f.sub = &Subscription{CharacterCount: 50, CharacterLimit: 100}
	refreshed, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
	assert.Equal(t, 50.0, refreshed.PercentageUsed)
}

func TestService_Get_StaleFallback(t *testing.T) {
	f := &fakeFetcher{sub: &Subscription{CharacterCount: 10, CharacterLimit: 100}}
	svc, _, now := newTestService(f)
	ctx := context.Background()

	_, err := svc.Get(ctx)
	require.NoError(t, err)

	*now = now.Add(10 * time.Minute)
	f.err = errors.New("upstream down")

	info, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, info.IsStale)
	assert.Equal(t, int64(10), info.CharacterCount)
}

func TestService_Get_ErrorWithoutHistory(t *testing.T) {
	upstream := errors.New("upstream down")
	svc, _, _ := newTestService(&fakeFetcher{err: upstream})

	_, err := svc.Get(context.Background())
	assert.ErrorIs(t, err, upstream)
}

func TestMemoryCell(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	c := NewMemoryCell[string]()
	c.now = func() time.Time { return now }

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "v1", time.Minute))
	v, ok, _ := c.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx)
	assert.False(t, ok, "value expires exactly at the TTL")

	v, ok, _ = c.Last(ctx)
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
}

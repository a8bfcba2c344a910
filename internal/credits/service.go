package credits

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/felixgeelhaar/speakflow/internal/observe"
)

// DefaultTTL is how long a fetched quota is served without refreshing.
const DefaultTTL = 5 * time.Minute

// Info is the quota as shown to users
type Info struct {
	CharacterCount      int64     `json:"character_count"`
	CharacterLimit      int64     `json:"character_limit"`
	PercentageUsed      float64   `json:"percentage_used"`
	PercentageRemaining float64   `json:"percentage_remaining"`
	NextResetUnix       int64     `json:"next_reset_unix"`
	CanExtend           bool      `json:"can_extend"`
	CachedAt            time.Time `json:"cached_at"`
	IsStale             bool      `json:"is_stale"`
}

// NewInfo derives percentages rounded to two decimals. A zero limit
// reports 0% used.
func NewInfo(s *Subscription, at time.Time) Info {
	var used float64
	if s.CharacterLimit > 0 {
		used = float64(s.CharacterCount) / float64(s.CharacterLimit) * 100
	}
	return Info{
		CharacterCount:      s.CharacterCount,
		CharacterLimit:      s.CharacterLimit,
		PercentageUsed:      round2(used),
		PercentageRemaining: round2(100 - used),
		NextResetUnix:       s.NextCharacterCountReset,
		CanExtend:           s.CanExtendCharacterLimit,
		CachedAt:            at.UTC(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Service serves cached credits info
type Service struct {
	fetcher Fetcher
	cell    Cell[Info]
	ttl     time.Duration
	metrics *observe.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a credits service. A nil cell uses memory.
func NewService(fetcher Fetcher, cell Cell[Info], metrics *observe.Metrics, logger *slog.Logger) *Service {
	if cell == nil {
		cell = NewMemoryCell[Info]()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher: fetcher,
		cell:    cell,
		ttl:     DefaultTTL,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the cached quota, refreshing it when expired. When the
// refresh fails the last known value is returned with IsStale set; the
// error is only returned if nothing was ever fetched.
func (s *Service) Get(ctx context.Context) (Info, error) {
	if info, ok, err := s.cell.Get(ctx); err != nil {
		s.logger.Warn("credits cache read failed", "error", err)
	} else if ok {
		s.metrics.RecordCredits(ctx, "cache")
		return info, nil
	}

	sub, err := s.fetcher.Subscription(ctx)
	if err != nil {
		last, ok, lerr := s.cell.Last(ctx)
		if lerr != nil || !ok {
			s.metrics.RecordCredits(ctx, "error")
			return Info{}, err
		}
		s.logger.Warn("serving stale credits", "error", err, "cached_at", last.CachedAt)
		s.metrics.RecordCredits(ctx, "stale")
		last.IsStale = true
		return last, nil
	}

	info := NewInfo(sub, s.now())
	if err := s.cell.Set(ctx, info, s.ttl); err != nil {
		s.logger.Warn("credits cache write failed", "error", err)
	}
	s.metrics.RecordCredits(ctx, "fetch")
	return info, nil
}

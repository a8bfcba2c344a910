package profile

import (
	"math"
	"sort"
	"time"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

// Stats summarises a user's graded sessions. Averages are on the 1..6 rank
// scale.
type Stats struct {
	TotalSessions   int                          `json:"total_sessions"`
	Assessments     int                          `json:"assessments"`
	Practice        int                          `json:"practice"`
	AvgOverall      float64                      `json:"avg_overall_rank"`
	AvgOverallLevel domain.Level                 `json:"avg_overall_level,omitempty"`
	AvgCriteria     map[domain.Criterion]float64 `json:"avg_criteria"`
	FirstPractice   *time.Time                   `json:"first_practice_date,omitempty"`
	LastPractice    *time.Time                   `json:"last_practice_date,omitempty"`
	Distribution    []LevelCount                 `json:"level_distribution"`
}

// LevelCount is the number of sessions graded at one overall level
type LevelCount struct {
	Level domain.Level `json:"level"`
	Count int          `json:"count"`
}

// Direction of a user's overall level over time
type Direction string

const (
	Improving Direction = "improving"
	Stable    Direction = "stable"
	Declining Direction = "declining"
)

// trendThreshold is the slope, in ranks per session, beyond which a
// trend stops being stable.
const trendThreshold = 0.1

// Trend is the least-squares slope of overall ranks in session order.
type Trend struct {
	Direction Direction `json:"trend"`
	Rate      float64   `json:"rate"`
}

// CriterionStat tracks one criterion across sessions.
type CriterionStat struct {
	Criterion domain.Criterion `json:"criterion"`
	First     float64          `json:"first_rank"`
	Last      float64          `json:"last_rank"`
	Avg       float64          `json:"avg_rank"`
	Change    float64          `json:"change"`
}

// CriterionReport holds per-criterion progress and the weakest criterion,
// the recommended focus.
type CriterionReport struct {
	Criteria []CriterionStat  `json:"criteria"`
	Weakest  domain.Criterion `json:"weakest,omitempty"`
}

// TopicStat represents statistics for a single topic
type TopicStat struct {
	Topic    domain.TopicID `json:"topic"`
	Sessions int            `json:"sessions"`
	AvgRank  float64        `json:"avg_rank"`
	AvgLevel domain.Level   `json:"avg_level"`
	Trend    Direction      `json:"trend"`
}

// ProgressPoint is the average overall rank of one practice day
type ProgressPoint struct {
	Date     string  `json:"date"`
	AvgRank  float64 `json:"avg_rank"`
	Sessions int     `json:"sessions"`
}

// chronological returns the graded sessions oldest first.
func chronological(sessions []*domain.PracticeSession) []*domain.PracticeSession {
	out := make([]*domain.PracticeSession, 0, len(sessions))
	for _, s := range sessions {
		if s != nil && s.Analysis != nil {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ComputeStats totals and averages the sessions. Ungraded sessions are
// ignored.
func ComputeStats(sessions []*domain.PracticeSession) Stats {
	graded := chronological(sessions)
	stats := Stats{
		AvgCriteria:  make(map[domain.Criterion]float64, len(domain.Criteria())),
		Distribution: []LevelCount{},
	}
	if len(graded) == 0 {
		return stats
	}

	counts := make(map[domain.Level]int)
	var overall float64
	for _, s := range graded {
		switch s.Kind {
		case domain.KindAssessment:
			stats.Assessments++
		default:
			stats.Practice++
		}
		overall += s.OverallLevel().Rank()
		counts[s.OverallLevel()]++
		for c, l := range s.Analysis.CriterionLevels() {
			stats.AvgCriteria[c] += l.Rank()
		}
	}

	n := float64(len(graded))
	stats.TotalSessions = len(graded)
	stats.AvgOverall = round2(overall / n)
	stats.AvgOverallLevel = domain.FromRank(overall / n)
	for c, sum := range stats.AvgCriteria {
		stats.AvgCriteria[c] = round2(sum / n)
	}

	first, last := graded[0].CreatedAt, graded[len(graded)-1].CreatedAt
	stats.FirstPractice, stats.LastPractice = &first, &last

	for _, l := range domain.Levels() {
		if counts[l] > 0 {
			stats.Distribution = append(stats.Distribution, LevelCount{Level: l, Count: counts[l]})
		}
	}
	return stats
}

// ComputeTrend fits a line through the overall ranks, x being the session
// index. Fewer than two sessions is stable with rate 0.
func ComputeTrend(sessions []*domain.PracticeSession) Trend {
	graded := chronological(sessions)
	ranks := make([]float64, len(graded))
	for i, s := range graded {
		ranks[i] = s.OverallLevel().Rank()
	}
	return trendOf(ranks)
}

func trendOf(ys []float64) Trend {
	n := float64(len(ys))
	if len(ys) < 2 {
		return Trend{Direction: Stable}
	}

	sumX := n * (n - 1) / 2
	sumX2 := n * (n - 1) * (2*n - 1) / 6
	var sumY, sumXY float64
	for i, y := range ys {
		sumY += y
		sumXY += float64(i) * y
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumX2 - sumX*sumX)

	t := Trend{Direction: Stable, Rate: round2(slope)}
	switch {
	case slope > trendThreshold:
		t.Direction = Improving
	case slope < -trendThreshold:
		t.Direction = Declining
	}
	return t
}

// CriterionProgress reports first, last and average rank per criterion and
// picks the criterion with the lowest average. Ties go to the earlier
// criterion in canonical order.
func CriterionProgress(sessions []*domain.PracticeSession) CriterionReport {
	graded := chronological(sessions)
	report := CriterionReport{Criteria: []CriterionStat{}}
	if len(graded) == 0 {
		return report
	}

	first := graded[0].Analysis.CriterionLevels()
	last := graded[len(graded)-1].Analysis.CriterionLevels()

	weakest := math.Inf(1)
	for _, c := range domain.Criteria() {
		var sum float64
		for _, s := range graded {
			sum += s.Analysis.Assessment.Level(c).Rank()
		}
		stat := CriterionStat{
			Criterion: c,
			First:     first[c].Rank(),
			Last:      last[c].Rank(),
			Avg:       round2(sum / float64(len(graded))),
		}
		stat.Change = stat.Last - stat.First
		report.Criteria = append(report.Criteria, stat)

		if stat.Avg < weakest {
			weakest = stat.Avg
			report.Weakest = c
		}
	}
	return report
}

// TopTopics returns the n most practised topics.
func TopTopics(sessions []*domain.PracticeSession, n int) []TopicStat {
	byTopic := make(map[domain.TopicID][]float64)
	for _, s := range chronological(sessions) {
		if s.Topic == "" {
			continue
		}
		byTopic[s.Topic] = append(byTopic[s.Topic], s.OverallLevel().Rank())
	}

	topics := make([]TopicStat, 0, len(byTopic))
	for topic, ranks := range byTopic {
		var sum float64
		for _, r := range ranks {
			sum += r
		}
		avg := sum / float64(len(ranks))
		topics = append(topics, TopicStat{
			Topic:    topic,
			Sessions: len(ranks),
			AvgRank:  round2(avg),
			AvgLevel: domain.FromRank(avg),
			Trend:    trendOf(ranks).Direction,
		})
	}

	// Sort by sessions descending, then by topic for a stable order
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Sessions != topics[j].Sessions {
			return topics[i].Sessions > topics[j].Sessions
		}
		return topics[i].Topic < topics[j].Topic
	})

	if n > 0 && len(topics) > n {
		topics = topics[:n]
	}
	return topics
}

// maxProgressDays bounds the progression timeline.
const maxProgressDays = 30

// Progression groups sessions by UTC day and averages the overall rank.
func Progression(sessions []*domain.PracticeSession) []ProgressPoint {
	graded := chronological(sessions)
	if len(graded) == 0 {
		return []ProgressPoint{}
	}

	var points []ProgressPoint
	var sum float64
	for _, s := range graded {
		day := s.CreatedAt.UTC().Format("2006-01-02")
		if len(points) == 0 || points[len(points)-1].Date != day {
			if len(points) > 0 {
				closeDay(&points[len(points)-1], sum)
			}
			points = append(points, ProgressPoint{Date: day})
			sum = 0
		}
		points[len(points)-1].Sessions++
		sum += s.OverallLevel().Rank()
	}
	closeDay(&points[len(points)-1], sum)

	if len(points) > maxProgressDays {
		points = points[len(points)-maxProgressDays:]
	}
	return points
}

func closeDay(p *ProgressPoint, sum float64) {
	p.AvgRank = round2(sum / float64(p.Sessions))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

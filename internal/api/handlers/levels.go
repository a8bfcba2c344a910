package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

// LevelHandler serves the CEFR scale reference endpoints. None of them
// require authentication.
type LevelHandler struct {
	aggregator *domain.LevelAggregator
}

// NewLevelHandler creates a new level handler
func NewLevelHandler() *LevelHandler {
	return &LevelHandler{aggregator: domain.NewLevelAggregator()}
}

// LevelSummary is one row of the level list
type LevelSummary struct {
	Level            domain.Level `json:"level"`
	Rank             float64      `json:"rank"`
	Band             domain.Level `json:"band"`
	BandName         string       `json:"band_name"`
	GlobalDescriptor string       `json:"global_descriptor"`
}

// List returns all eleven levels, lowest first
func (h *LevelHandler) List(w http.ResponseWriter, r *http.Request) {
	levels := domain.Levels()
	out := make([]LevelSummary, 0, len(levels))
	for _, l := range levels {
		out = append(out, LevelSummary{
			Level:            l,
			Rank:             l.Rank(),
			Band:             l.Band(),
			BandName:         l.BandName(),
			GlobalDescriptor: domain.GlobalDescriptor(l),
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"levels": out})
}

// Get describes one level
func (h *LevelHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, ok := h.levelParam(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, domain.Describe(l))
}

// Path returns the improvement path from one level
func (h *LevelHandler) Path(w http.ResponseWriter, r *http.Request) {
	l, ok := h.levelParam(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, h.aggregator.ImprovementPath(l))
}

// AggregateResponse is the result of combining five criterion levels
type AggregateResponse struct {
	OverallLevel     domain.Level           `json:"overall_level"`
	WeightedRank     float64                `json:"weighted_rank"`
	Confidence       domain.Confidence      `json:"confidence"`
	RankSpread       float64                `json:"rank_spread"`
	GlobalDescriptor string                 `json:"global_descriptor"`
	Path             domain.ImprovementPath `json:"improvement_path"`
}

// Aggregate combines five criterion levels into an overall level. The body
// maps criterion names, optionally suffixed with "_level", to levels.
func (h *LevelHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if !readJSON(w, r, maxJSONBody, &body) {
		return
	}

	a, err := ParseAssessment(body)
	if err != nil {
		WriteServiceError(w, r, err, "aggregation failed")
		return
	}

	overall := h.aggregator.Aggregate(a)
	WriteJSON(w, http.StatusOK, AggregateResponse{
		OverallLevel:     overall,
		WeightedRank:     h.aggregator.WeightedRank(a),
		Confidence:       domain.AssessConfidence(a),
		RankSpread:       domain.RankSpread(a),
		GlobalDescriptor: domain.GlobalDescriptor(overall),
		Path:             h.aggregator.ImprovementPath(overall),
	})
}

// ParseAssessment reads criterion levels keyed by "range" or "range_level".
func ParseAssessment(body map[string]string) (domain.SpeakingAssessment, error) {
	levels := make(map[domain.Criterion]domain.Level, len(body))
	for key, value := range body {
		c, err := domain.ParseCriterion(strings.TrimSuffix(key, "_level"))
		if err != nil {
			return domain.SpeakingAssessment{}, err
		}
		if _, dup := levels[c]; dup {
			return domain.SpeakingAssessment{}, fmt.Errorf("%w: %s", domain.ErrDuplicateCriterion, c)
		}
		l, err := domain.ParseLevel(value)
		if err != nil {
			return domain.SpeakingAssessment{}, fmt.Errorf("%s: %w", c, err)
		}
		levels[c] = l
	}
	return domain.AssessmentFromMap(levels)
}

// Topics lists the conversation topics
func (h *LevelHandler) Topics(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"topics": domain.Topics()})
}

// CriterionInfo describes one assessment criterion
type CriterionInfo struct {
	ID     domain.Criterion `json:"id"`
	Name   string           `json:"name"`
	Weight float64          `json:"weight"`
	Color  string           `json:"color"`
}

// Criteria lists the five criteria with their weights
func (h *LevelHandler) Criteria(w http.ResponseWriter, r *http.Request) {
	criteria := domain.Criteria()
	out := make([]CriterionInfo, 0, len(criteria))
	for _, c := range criteria {
		out = append(out, CriterionInfo{ID: c, Name: c.DisplayName(), Weight: c.Weight(), Color: c.Color()})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"criteria": out})
}

// levelParam parses {level}; "B1+" arrives escaped as "B1%2B".
func (h *LevelHandler) levelParam(w http.ResponseWriter, r *http.Request) (domain.Level, bool) {
	raw := chi.URLParam(r, "level")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	l, err := domain.ParseLevel(raw)
	if err != nil {
		BadRequest(w, r, err.Error())
		return "", false
	}
	return l, true
}

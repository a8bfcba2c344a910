// Package mcp exposes the CEFR scale to MCP clients.
package mcp

import (
	"context"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

// Server wraps the MCP server with the level tools
type Server struct {
	mcpServer  *server.Server
	aggregator *domain.LevelAggregator
}

// Config contains configuration for the MCP server
type Config struct {
	Version string
}

// NewServer creates a new MCP server for speakflow
func NewServer(cfg Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{aggregator: domain.NewLevelAggregator()}

	s.mcpServer = server.New(server.Info{
		Name:    "speakflow",
		Version: version,
	}, server.WithInstructions(`
Speakflow grades spoken English on the CEFR scale.

Available tools:
- cefr_aggregate: Combine five criterion levels into an overall level
- cefr_improvement_path: Next level and three focus areas from a level
- cefr_describe_level: Descriptors for one level
- list_topics: Conversation topics for practice

Levels, lowest first: A1, A1+, A2, A2+, B1, B1+, B2, B2+, C1, C1+, C2.
Criteria: range, accuracy, fluency, interaction, coherence.
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("cefr_aggregate").
		Description("Combine five criterion levels into an overall CEFR level with a confidence rating.").
		Handler(s.handleAggregate)

	s.mcpServer.Tool("cefr_improvement_path").
		Description("Get the next CEFR level and three focus areas for reaching it.").
		Handler(s.handleImprovementPath)

	s.mcpServer.Tool("cefr_describe_level").
		Description("Describe a CEFR level: global and per-criterion descriptors.").
		Handler(s.handleDescribeLevel)

	s.mcpServer.Tool("list_topics").
		Description("List the conversation topics available for practice.").
		Handler(s.handleListTopics)
}

// Input/Output types for tools

type AggregateInput struct {
	Range       string `json:"range" jsonschema:"description=Level for vocabulary range"`
	Accuracy    string `json:"accuracy" jsonschema:"description=Level for grammatical accuracy"`
	Fluency     string `json:"fluency" jsonschema:"description=Level for fluency"`
	Interaction string `json:"interaction" jsonschema:"description=Level for interaction"`
	Coherence   string `json:"coherence" jsonschema:"description=Level for coherence"`
}

type AggregateOutput struct {
	OverallLevel     domain.Level           `json:"overall_level"`
	WeightedRank     float64                `json:"weighted_rank"`
	Confidence       domain.Confidence      `json:"confidence"`
	RankSpread       float64                `json:"rank_spread"`
	GlobalDescriptor string                 `json:"global_descriptor"`
	Path             domain.ImprovementPath `json:"improvement_path"`
}

type LevelInput struct {
	Level string `json:"level" jsonschema:"description=CEFR level such as B1 or B1+"`
}

type PathOutput struct {
	Current    domain.Level `json:"current"`
	NextLevel  string       `json:"next_level,omitempty"`
	FocusAreas []string     `json:"focus_areas"`
	Terminal   bool         `json:"terminal"`
}

type ListTopicsInput struct{}

type TopicOutput struct {
	ID          domain.TopicID `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Scenarios   []string       `json:"example_scenarios"`
}

type ListTopicsOutput struct {
	Topics []TopicOutput `json:"topics"`
}

// Tool handlers

func (s *Server) handleAggregate(ctx context.Context, input AggregateInput) (AggregateOutput, error) {
	a, err := input.assessment()
	if err != nil {
		return AggregateOutput{}, err
	}

	overall := s.aggregator.Aggregate(a)
	return AggregateOutput{
		OverallLevel:     overall,
		WeightedRank:     s.aggregator.WeightedRank(a),
		Confidence:       domain.AssessConfidence(a),
		RankSpread:       domain.RankSpread(a),
		GlobalDescriptor: domain.GlobalDescriptor(overall),
		Path:             s.aggregator.ImprovementPath(overall),
	}, nil
}

func (in AggregateInput) assessment() (domain.SpeakingAssessment, error) {
	raw := map[domain.Criterion]string{
		domain.CriterionRange:       in.Range,
		domain.CriterionAccuracy:    in.Accuracy,
		domain.CriterionFluency:     in.Fluency,
		domain.CriterionInteraction: in.Interaction,
		domain.CriterionCoherence:   in.Coherence,
	}

	levels := make(map[domain.Criterion]domain.Level, len(raw))
	for c, v := range raw {
		if strings.TrimSpace(v) == "" {
			return domain.SpeakingAssessment{}, fmt.Errorf("%w: %s", domain.ErrMissingCriterion, c)
		}
		l, err := domain.ParseLevel(v)
		if err != nil {
			return domain.SpeakingAssessment{}, fmt.Errorf("%s: %w", c, err)
		}
		levels[c] = l
	}
	return domain.AssessmentFromMap(levels)
}

func (s *Server) handleImprovementPath(ctx context.Context, input LevelInput) (PathOutput, error) {
	l, err := domain.ParseLevel(input.Level)
	if err != nil {
		return PathOutput{}, err
	}

	p := s.aggregator.ImprovementPath(l)
	out := PathOutput{
		Current:    p.Current,
		FocusAreas: p.FocusAreas[:],
		Terminal:   p.IsTerminal(),
	}
	if p.Next != nil {
		out.NextLevel = string(*p.Next)
	}
	return out, nil
}

func (s *Server) handleDescribeLevel(ctx context.Context, input LevelInput) (domain.LevelDescription, error) {
	l, err := domain.ParseLevel(input.Level)
	if err != nil {
		return domain.LevelDescription{}, err
	}
	return domain.Describe(l), nil
}

func (s *Server) handleListTopics(ctx context.Context, input ListTopicsInput) (ListTopicsOutput, error) {
	topics := domain.Topics()
	out := ListTopicsOutput{Topics: make([]TopicOutput, 0, len(topics))}
	for _, t := range topics {
		out.Topics = append(out.Topics, TopicOutput{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Scenarios:   t.Scenarios,
		})
	}
	return out, nil
}

// ServeStdio runs the MCP server on stdin/stdout
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP runs the MCP server over HTTP on addr
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}

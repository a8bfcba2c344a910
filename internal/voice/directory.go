// Package voice resolves the conversation agent and its instructions for a
// practice or placement session. The audio conversation itself runs
// between the browser and the voice provider.
package voice

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

// ErrAgentNotConfigured is returned when no agent ID exists for a level.
var ErrAgentNotConfigured = errors.New("voice agent not configured")

// AssessmentKey is the agent map key of the placement agent.
const AssessmentKey = "assessment"

// Directory maps bands to agent IDs
type Directory struct {
	agents map[string]string
}

// NewDirectory copies the configured agents. Keys are band tags (A1..C2)
// and "assessment".
func NewDirectory(agents map[string]string) *Directory {
	d := &Directory{agents: make(map[string]string, len(agents))}
	for k, v := range agents {
		if v = strings.TrimSpace(v); v != "" {
			d.agents[k] = v
		}
	}
	return d
}

// AgentFor returns the agent of l's band; plus-levels share the agent of
// their base band.
func (d *Directory) AgentFor(l domain.Level) (string, error) {
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidLevel, l)
	}
	band := l.Band()
	id, ok := d.agents[string(band)]
	if !ok {
		return "", fmt.Errorf("%w: level %s", ErrAgentNotConfigured, band)
	}
	return id, nil
}

// AssessmentAgent returns the placement agent.
func (d *Directory) AssessmentAgent() (string, error) {
	id, ok := d.agents[AssessmentKey]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrAgentNotConfigured, AssessmentKey)
	}
	return id, nil
}

// Configured lists the keys that have an agent.
func (d *Directory) Configured() []string {
	var out []string
	for _, b := range domain.Bands() {
		if _, ok := d.agents[string(b)]; ok {
			out = append(out, string(b))
		}
	}
	if _, ok := d.agents[AssessmentKey]; ok {
		out = append(out, AssessmentKey)
	}
	return out
}

// SessionConfig is what the client needs to open a conversation.
type SessionConfig struct {
	AgentID     string         `json:"agent_id"`
	Level       domain.Level   `json:"level,omitempty"`
	Topic       domain.TopicID `json:"topic,omitempty"`
	TopicPrompt string         `json:"topic_prompt,omitempty"`
	LevelPrompt string         `json:"level_prompt,omitempty"`
	// Prompt is the full system prompt sent as conversation override.
	Prompt string `json:"prompt"`
}

// SessionConfig builds a practice session for level and topic.
func (d *Directory) SessionConfig(l domain.Level, topic domain.TopicID) (SessionConfig, error) {
	t, ok := domain.LookupTopic(topic)
	if !ok {
		return SessionConfig{}, fmt.Errorf("%w: %q", domain.ErrInvalidTopic, topic)
	}
	agent, err := d.AgentFor(l)
	if err != nil {
		return SessionConfig{}, err
	}

	levelPrompt := AdaptationPrompt(l)
	return SessionConfig{
		AgentID:     agent,
		Level:       l,
		Topic:       topic,
		TopicPrompt: t.AgentRole,
		LevelPrompt: levelPrompt,
		Prompt:      levelPrompt + "\n\nConversation topic: " + t.Name + ". " + t.AgentRole,
	}, nil
}

// AssessmentConfig builds the placement session.
func (d *Directory) AssessmentConfig() (SessionConfig, error) {
	agent, err := d.AssessmentAgent()
	if err != nil {
		return SessionConfig{}, err
	}
	return SessionConfig{
		AgentID: agent,
		Topic:   domain.TopicCasual,
		Prompt:  assessmentPrompt,
	}, nil
}

package domain

// ImprovementPath describes the next level above a given level and three
// areas to focus on to reach it. Next is nil at C2.
type ImprovementPath struct {
	Current    Level     `json:"current"`
	Next       *Level    `json:"next_level"`
	FocusAreas [3]string `json:"focus_areas"`
}

// IsTerminal reports whether the path starts at the top of the scale.
func (p ImprovementPath) IsTerminal() bool {
	return p.Next == nil
}

var maintenanceFocus = [3]string{
	"Maintain your C2 proficiency through regular practice",
	"Focus on specialized vocabulary in new domains",
	"Refine nuanced expression and cultural understanding",
}

var genericFocus = [3]string{
	"Continue regular speaking practice",
	"Expand vocabulary in new areas",
	"Focus on accuracy and fluency balance",
}

// transitionFocus is keyed by "from→to".
var transitionFocus = map[string][3]string{
	"A1→A1+": {
		"Build basic vocabulary for daily routines",
		"Practice simple present tense consistently",
		"Work on pronunciation of common words",
	},
	"A1+→A2": {
		"Expand vocabulary to 500-1000 words",
		"Introduce simple past tense",
		"Practice asking and answering questions",
	},
	"A2→A2+": {
		`Link simple sentences with "and", "but", "because"`,
		"Describe past experiences in more detail",
		"Improve listening comprehension in conversations",
	},
	"A2+→B1": {
		"Expand vocabulary for expressing opinions",
		"Practice different tenses (present, past, future)",
		"Work on conversation flow and turn-taking",
	},
	"B1→B1+": {
		"Reduce hesitation when speaking",
		"Use more complex sentence structures",
		"Develop topic-specific vocabulary",
	},
	"B1+→B2": {
		"Speak with more even tempo and fewer pauses",
		"Use discourse markers (however, therefore, furthermore)",
		"Express viewpoints clearly without strain",
	},
	"B2→B2+": {
		"Minimize errors that cause misunderstanding",
		"Expand range of discourse functions",
		"Improve coherence in longer speech",
	},
	"B2+→C1": {
		"Develop near-effortless fluency",
		"Master complex grammatical structures",
		"Use a wide range of organizational patterns",
	},
	"C1→C1+": {
		"Refine precision in conveying subtle meanings",
		"Perfect control of grammatical structures",
		"Master idiomatic expressions naturally",
	},
	"C1+→C2": {
		"Achieve complete naturalness and ease",
		"Perfect cohesive device usage",
		"Master all shades of meaning and nuance",
	},
}

func transitionKey(from, to Level) string {
	return string(from) + "→" + string(to)
}

// NewImprovementPath returns the successor of l and the focus areas for
// that transition.
func NewImprovementPath(l Level) ImprovementPath {
	next, ok := l.Next()
	if !ok {
		path := ImprovementPath{Current: l, FocusAreas: genericFocus}
		if l == LevelC2 {
			path.FocusAreas = maintenanceFocus
		}
		return path
	}

	focus, ok := transitionFocus[transitionKey(l, next)]
	if !ok {
		focus = genericFocus
	}
	return ImprovementPath{Current: l, Next: &next, FocusAreas: focus}
}

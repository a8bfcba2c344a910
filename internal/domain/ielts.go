package domain

import "math"

// IELTSAnalysis is the legacy band-score analysis of a transcript. Each
// criterion is scored on the 0-9 IELTS band scale.
type IELTSAnalysis struct {
	Fluency               float64  `json:"fluencyScore"`
	Lexical               float64  `json:"lexicalScore"`
	Grammar               float64  `json:"grammarScore"`
	Pronunciation         float64  `json:"pronunciationScore"`
	Overall               float64  `json:"overallScore"`
	FluencyFeedback       string   `json:"fluencyFeedback"`
	LexicalFeedback       string   `json:"lexicalFeedback"`
	GrammarFeedback       string   `json:"grammarFeedback"`
	PronunciationFeedback string   `json:"pronunciationFeedback"`
	Improvements          []string `json:"improvements"`
	Strengths             []string `json:"strengths"`
}

// MaxBand is the top of the IELTS scale.
const MaxBand = 9.0

// OverallBand averages the four criteria and rounds to the nearest half band.
func OverallBand(fluency, lexical, grammar, pronunciation float64) float64 {
	return RoundHalfStep((fluency + lexical + grammar + pronunciation) / 4)
}

// Normalize clamps the criterion scores to the band scale and recomputes
// the overall band.
func (a *IELTSAnalysis) Normalize() {
	a.Fluency = clampBand(a.Fluency)
	a.Lexical = clampBand(a.Lexical)
	a.Grammar = clampBand(a.Grammar)
	a.Pronunciation = clampBand(a.Pronunciation)
	a.Overall = OverallBand(a.Fluency, a.Lexical, a.Grammar, a.Pronunciation)
}

func clampBand(v float64) float64 {
	return math.Max(0, math.Min(MaxBand, v))
}

// BandDescription names the user category for a band score.
func BandDescription(score float64) string {
	switch {
	case score >= 9:
		return "Expert User - Uses the language fluently, flexibly and at length"
	case score >= 8:
		return "Very Good User - Uses the language very well though there may be occasional inaccuracies"
	case score >= 7:
		return "Good User - Uses the language with confidence and mostly correctly"
	case score >= 6:
		return "Competent User - Uses language adequately for most situations"
	case score >= 5:
		return "Modest User - Can use the language for routine situations"
	case score >= 4:
		return "Limited User - Basic competence but many limitations"
	case score >= 3:
		return "Extremely Limited User - Conveys only basic meaning"
	case score >= 2:
		return "Intermittent User - Difficulty communicating"
	default:
		return "Non User - Essentially no ability to use the language"
	}
}

// BandPath is the IELTS analogue of ImprovementPath.
type BandPath struct {
	NextBand   float64  `json:"next_band"`
	FocusAreas []string `json:"focus_areas"`
}

var bandFocus = map[int][]string{
	5: {
		"Increase speech rate (aim for 140+ WPM)",
		"Reduce hesitations and filler words",
		"Use more complex sentence structures",
		"Improve vocabulary range with synonyms",
		"Work on word stress and intonation",
	},
	6: {
		"Master discourse markers (however, moreover, furthermore)",
		"Use a wider range of collocations",
		"Reduce grammatical errors to <5%",
		"Improve clarity of consonant sounds",
		"Add more detail and examples to responses",
	},
	7: {
		"Achieve native-like fluency with minimal hesitation",
		"Use advanced vocabulary and less common idioms",
		"Master complex grammatical structures",
		"Perfect connected speech and linking",
		"Provide sophisticated reasoning and examples",
	},
	8: {
		"Demonstrate exceptional control of language",
		"Use nuanced vocabulary appropriately",
		"Show exceptional grammatical accuracy",
		"Achieve near-native pronunciation",
		"Provide highly organized and coherent responses",
	},
}

// NewBandPath returns the next half band and focus areas. Bands without a
// dedicated list use the band 5 list.
func NewBandPath(band float64) BandPath {
	focus, ok := bandFocus[int(math.Floor(band))]
	if !ok {
		focus = bandFocus[5]
	}
	return BandPath{
		NextBand:   math.Min(band+0.5, MaxBand),
		FocusAreas: append([]string(nil), focus...),
	}
}

// FeedbackSuggestions returns practice tips for every criterion below
// band 7.
func FeedbackSuggestions(a IELTSAnalysis) []string {
	var out []string
	if a.Fluency < 7 {
		out = append(out,
			"Practice speaking more continuously - aim for 2-3 minute stretches without long pauses",
			"Record yourself and listen for hesitations - replace 'uh/um' with silent pauses",
			"Use discourse markers: 'Well', 'In fact', 'As a matter of fact' to maintain flow",
		)
	}
	if a.Lexical < 7 {
		out = append(out,
			"Learn synonyms for common words - e.g., instead of 'good', use 'excellent', 'remarkable', 'outstanding'",
			"Practice using collocations - word pairs that naturally go together like 'make a difference', 'play a role'",
			"Study topic-specific vocabulary for common IELTS topics (environment, technology, culture)",
		)
	}
	if a.Grammar < 7 {
		out = append(out,
			"Practice using complex sentences - combine clauses with 'although', 'whereas', 'despite the fact that'",
			"Focus on tense consistency - decide on your time perspective and maintain it",
			"Review common errors: subject-verb agreement, article use (a/the), prepositions",
		)
	}
	if a.Pronunciation < 7 {
		out = append(out,
			"Work on word stress - use a dictionary to mark stress and practice specific words",
			"Practice connected speech - linking (t+vowel), elision (dropping sounds), assimilation (sound changes)",
			"Record yourself and compare with native speakers - focus on rhythm and intonation patterns",
		)
	}
	return out
}

package grading

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/speakflow/internal/domain"
)

// Mode selects how the grader anchors its judgement.
type Mode string

const (
	// ModePractice grades against the learner's target level.
	ModePractice Mode = "practice"
	// ModeAssessment is a placement test over the full A1-C2 range.
	ModeAssessment Mode = "assessment"
)

// Prompter builds grading prompts for the LLM
type Prompter struct{}

// NewPrompter creates a new prompter
func NewPrompter() *Prompter {
	return &Prompter{}
}

// PromptInput contains data for building a prompt
type PromptInput struct {
	Mode       Mode
	Topic      domain.TopicID
	Level      domain.Level // target level; ignored in assessment mode
	Language   domain.Language
	Transcript string // full conversation, both sides
}

// SystemPrompt returns the examiner persona for a mode
func (p *Prompter) SystemPrompt(mode Mode) string {
	if mode == ModeAssessment {
		return `You are an expert English language assessor conducting a CEFR placement test.
Determine the speaker's actual CEFR level across the full range (A1 to C2).
Do not anchor to any particular level. Rate native-like speakers C1-C2 and struggling beginners A1-A2.`
	}
	return `You are an expert English language assessor using the CEFR speaking assessment rubric from Cambridge ESOL.
The learner is practising with an AI conversation partner. This is not a formal test.`
}

// RenderPrompt constructs the user prompt for the LLM
func (p *Prompter) RenderPrompt(in PromptInput) string {
	var sb strings.Builder

	if !in.Language.IsEnglish() {
		sb.WriteString(p.translationHeader(in.Language))
	}

	if in.Transcript != "" {
		sb.WriteString("## Full Conversation Transcript (context only)\n\n")
		sb.WriteString(in.Transcript)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Conversation Context\n\n")
	if in.Mode == ModeAssessment {
		sb.WriteString("- Purpose: placement test over the full range A1-C2\n")
		sb.WriteString(fmt.Sprintf("- Topic: %s\n", topicName(domain.TopicCasual)))
	} else {
		sb.WriteString(fmt.Sprintf("- Topic: %s\n", topicName(in.Topic)))
		sb.WriteString(fmt.Sprintf("- Target CEFR Level: %s\n", in.Level))
	}
	sb.WriteString("- Recording: raw, unedited audio. Analyze the USER's speech only, not the AI partner.\n")
	sb.WriteString("- Capture filler words, false starts and mistakes honestly.\n\n")

	sb.WriteString("## Criteria\n\n")
	sb.WriteString("Assess each criterion independently on the scale ")
	sb.WriteString(levelList())
	sb.WriteString(".\n\n")
	for _, c := range domain.Criteria() {
		sb.WriteString(fmt.Sprintf("- %s (%s): %s\n", c, c.DisplayName(), criterionFocus[c]))
	}
	sb.WriteString("\n")

	sb.WriteString("## Output\n\n")
	sb.WriteString("Return a single JSON object with this exact structure:\n")
	sb.WriteString(outputSchema)
	sb.WriteString("\n\n")

	sb.WriteString("## Your Task\n\n")
	sb.WriteString(p.taskInstruction(in))

	return sb.String()
}

func (p *Prompter) translationHeader(lang domain.Language) string {
	name := strings.ToUpper(lang.Name)
	return fmt.Sprintf(`CRITICAL: YOU MUST RESPOND ENTIRELY IN %s.

Write every feedback string in %s: the five *_feedback arrays, strengths,
improvements, the issue and suggestion of every detailed_feedback item, and
global_descriptor_translated (the CEFR global descriptor of overall_level).

Keep in English: CEFR level codes, JSON field names, criterion names,
severity values and verbatim quotes of what the speaker said.

`, name, lang.Name)
}

func (p *Prompter) taskInstruction(in PromptInput) string {
	var sb strings.Builder
	sb.WriteString("1. Assign a level (including + levels) to each of the 5 criteria independently.\n")
	sb.WriteString("2. Use + levels when performance is clearly between two main levels.\n")
	if in.Mode == ModeAssessment {
		sb.WriteString("3. Be rigorously honest. Do not be conservative. Rate accurately across the full spectrum.\n")
	} else {
		sb.WriteString(fmt.Sprintf("3. Do not automatically assign the target level (%s). Rate the level actually demonstrated, above or below it.\n", in.Level))
	}
	sb.WriteString("4. Each criterion feedback is an array of 2-3 one-sentence bullet points quoting the speaker.\n")
	sb.WriteString("5. Give 5-10 detailed_feedback items covering both problems and strengths.\n")
	sb.WriteString("   Severity: minor (does not affect understanding), moderate (noticeable), major (impairs communication).\n")
	return sb.String()
}

var criterionFocus = map[domain.Criterion]string{
	domain.CriterionRange:       "breadth and precision of vocabulary, paraphrasing around gaps",
	domain.CriterionAccuracy:    "grammatical control, error frequency, self-correction",
	domain.CriterionFluency:     "tempo, hesitation, length of uninterrupted speech",
	domain.CriterionInteraction: "turn-taking, initiating and responding, asking for clarification",
	domain.CriterionCoherence:   "organisation of ideas and use of connectors",
}

const outputSchema = `{
  "overall_level": "<level>",
  "range_level": "<level>",
  "accuracy_level": "<level>",
  "fluency_level": "<level>",
  "interaction_level": "<level>",
  "coherence_level": "<level>",
  "range_feedback": ["<observation>", "<quoted example>", "<tip>"],
  "accuracy_feedback": ["..."],
  "fluency_feedback": ["..."],
  "interaction_feedback": ["..."],
  "coherence_feedback": ["..."],
  "strengths": ["<3-5 items>"],
  "improvements": ["<3-5 items>"],
  "verbatim_transcript": "<word-for-word transcript of the user's speech>",
  "global_descriptor_translated": "<only when not English>",
  "detailed_feedback": [
    {"phrase": "...", "issue": "...", "criterion": "<range|accuracy|fluency|interaction|coherence>", "severity": "<minor|moderate|major>", "suggestion": "..."}
  ]
}`

func levelList() string {
	lv := domain.Levels()
	names := make([]string, len(lv))
	for i, l := range lv {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

func topicName(id domain.TopicID) string {
	if t, ok := domain.LookupTopic(id); ok {
		return t.Name
	}
	return string(id)
}

// IELTSPrompt builds the text-only band-score prompt.
func (p *Prompter) IELTSPrompt(transcript string, part int) string {
	var sb strings.Builder
	sb.WriteString("Analyze this IELTS speaking transcript and evaluate it on the official band descriptors.\n\n")
	if part > 0 {
		sb.WriteString(fmt.Sprintf("IELTS Speaking Part: %d\n\n", part))
	}
	sb.WriteString("TRANSCRIPT:\n\"")
	sb.WriteString(transcript)
	sb.WriteString("\"\n\n")
	sb.WriteString(`Return JSON with this structure:
{
  "fluencyScore": <0-9>,
  "lexicalScore": <0-9>,
  "grammarScore": <0-9>,
  "pronunciationScore": <0-9>,
  "overallScore": <0-9>,
  "fluencyFeedback": "<speech flow, hesitations, discourse markers>",
  "lexicalFeedback": "<vocabulary range and precision>",
  "grammarFeedback": "<sentence structures and accuracy>",
  "pronunciationFeedback": "<clarity and intonation>",
  "improvements": ["<3-5 actionable improvements>"],
  "strengths": ["<3-5 strengths>"]
}

Use half bands. Quote the transcript in your feedback.`)
	return sb.String()
}

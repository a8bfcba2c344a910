package domain

// Descriptor text follows the Cambridge ESOL CEFR speaking tables:
// global (holistic) descriptors and the five analytic criteria.

const noDescriptor = "No descriptor available"

var globalDescriptors = map[Level]string{
	LevelC2:     "Conveys finer shades of meaning precisely and naturally. Can express him/herself spontaneously and very fluently, interacting with ease and skill, and differentiating finer shades of meaning precisely. Can produce clear, smoothly-flowing, well-structured descriptions.",
	LevelC1Plus: "Shows fluent, spontaneous expression in clear, well-structured speech approaching C2 mastery.",
	LevelC1:     "Shows fluent, spontaneous expression in clear, well-structured speech. Can express him/herself fluently and spontaneously, almost effortlessly, with a smooth flow of language. Can give clear, detailed descriptions of complex subjects. High degree of accuracy; errors are rare.",
	LevelB2Plus: "Expresses points of view without noticeable strain, approaching C1 fluency.",
	LevelB2:     "Expresses points of view without noticeable strain. Can interact on a wide range of topics and produce stretches of language with a fairly even tempo. Can give clear, detailed descriptions on a wide range of subjects related to his/her field of interest. Does not make errors which cause misunderstanding.",
	LevelB1Plus: "Relates comprehensibly the main points approaching B2 proficiency.",
	LevelB1:     "Relates comprehensibly the main points he/she wants to make. Can keep going comprehensibly, even though pausing for grammatical and lexical planning and repair may be very evident. Can link discrete, simple elements into a connected sequence to give straightforward descriptions on a variety of familiar subjects within his/her field of interest. Reasonably accurate use of main repertoire associated with more predictable situations.",
	LevelA2Plus: "Relates basic information approaching B1 competence.",
	LevelA2:     "Relates basic information on, e.g. work, family, free time etc. Can communicate in a simple and direct exchange of information on familiar matters. Can make him/herself understood in very short utterances, even though pauses, false starts and reformulation are very evident. Can describe in simple terms family, living conditions, educational background, present or most recent job. Uses some simple structures correctly, but may systematically make basic mistakes.",
	LevelA1Plus: "Makes simple statements on personal details approaching A2.",
	LevelA1:     "Makes simple statements on personal details and very familiar topics. Can make him/herself understood in a simple way, asking and answering questions about personal details, provided the other person talks slowly and clearly and is prepared to help. Can manage very short, isolated, mainly pre-packaged utterances. Much pausing to search for expressions, to articulate less familiar words.",
}

var criterionDescriptors = map[Criterion]map[Level]string{
	CriterionRange: {
		LevelC2:     "Shows great flexibility reformulating ideas in differing linguistic forms to convey finer shades of meaning precisely, to give emphasis, to differentiate and to eliminate ambiguity. Also has a good command of idiomatic expressions and colloquialisms.",
		LevelC1Plus: "Has a good command of a broad range of language approaching C2 flexibility.",
		LevelC1:     "Has a good command of a broad range of language allowing him/her to select a formulation to express him/herself clearly in an appropriate style on a wide range of general, academic, professional or leisure topics without having to restrict what he/she wants to say.",
		LevelB2Plus: "Has a sufficient range of language approaching C1 breadth.",
		LevelB2:     "Has a sufficient range of language to be able to give clear descriptions, express viewpoints on most general topics, without much conspicuous searching for words, using some complex sentence forms to do so.",
		LevelB1Plus: "Has enough language to get by approaching B2 range.",
		LevelB1:     "Has enough language to get by, with sufficient vocabulary to express him/herself with some hesitation and circumlocutions on topics such as family, hobbies and interests, work, travel, and current events.",
		LevelA2Plus: "Uses basic sentence patterns approaching B1 range.",
		LevelA2:     "Uses basic sentence patterns with memorised phrases, groups of a few words and formulae in order to communicate limited information in simple everyday situations.",
		LevelA1Plus: "Has a very basic repertoire of words approaching A2.",
		LevelA1:     "Has a very basic repertoire of words and simple phrases related to personal details and particular concrete situations.",
	},
	CriterionAccuracy: {
		LevelC2:     "Maintains consistent grammatical control of complex language, even while attention is otherwise engaged (e.g. in forward planning, in monitoring others' reactions).",
		LevelC1Plus: "Consistently maintains a high degree of grammatical accuracy approaching perfect control.",
		LevelC1:     "Consistently maintains a high degree of grammatical accuracy; errors are rare, difficult to spot and generally corrected when they do occur.",
		LevelB2Plus: "Shows a relatively high degree of grammatical control approaching C1 accuracy.",
		LevelB2:     "Shows a relatively high degree of grammatical control. Does not make errors which cause misunderstanding, and can correct most of his/her mistakes.",
		LevelB1Plus: "Uses reasonably accurately a repertoire approaching B2 control.",
		LevelB1:     `Uses reasonably accurately a repertoire of frequently used "routines" and patterns associated with more predictable situations.`,
		LevelA2Plus: "Uses some simple structures correctly approaching B1 accuracy.",
		LevelA2:     "Uses some simple structures correctly, but still systematically makes basic mistakes.",
		LevelA1Plus: "Shows only limited control approaching A2.",
		LevelA1:     "Shows only limited control of a few simple grammatical structures and sentence patterns in a memorised repertoire.",
	},
	CriterionFluency: {
		LevelC2:     "Can express him/herself spontaneously at length with a natural colloquial flow, avoiding or backtracking around any difficulty so smoothly that the interlocutor is hardly aware of it.",
		LevelC1Plus: "Can express him/herself fluently and spontaneously approaching effortless natural flow.",
		LevelC1:     "Can express him/herself fluently and spontaneously, almost effortlessly. Only a conceptually difficult subject can hinder a natural, smooth flow of language.",
		LevelB2Plus: "Can produce stretches of language approaching C1 fluency.",
		LevelB2:     "Can produce stretches of language with a fairly even tempo; although he/she can be hesitant as he or she searches for patterns and expressions, there are few noticeably long pauses.",
		LevelB1Plus: "Can keep going comprehensibly approaching B2 tempo.",
		LevelB1:     "Can keep going comprehensibly, even though pausing for grammatical and lexical planning and repair is very evident, especially in longer stretches of free production.",
		LevelA2Plus: "Can make him/herself understood in very short utterances approaching B1.",
		LevelA2:     "Can make him/herself understood in very short utterances, even though pauses, false starts and reformulation are very evident.",
		LevelA1Plus: "Can manage very short, isolated, mainly pre-packaged utterances approaching A2.",
		LevelA1:     "Can manage very short, isolated, mainly pre-packaged utterances, with much pausing to search for expressions, to articulate less familiar words, and to repair communication.",
	},
	CriterionInteraction: {
		LevelC2:     "Can interact with ease and skill, using non-verbal and intonational cues apparently effortlessly. Can interweave his/her contribution into the joint discourse with fully natural turntaking, referencing, allusion making etc.",
		LevelC1Plus: "Can select a suitable phrase from a readily available range approaching effortless interaction.",
		LevelC1:     "Can select a suitable phrase from a readily available range of discourse functions to preface his/her remarks in order to get or to keep the floor and to relate his/her own contributions skilfully to those of other speakers.",
		LevelB2Plus: "Can initiate discourse, take his/her turn when appropriate approaching C1 skill.",
		LevelB2:     "Can initiate discourse, take his/her turn when appropriate and end conversation when he/she needs to, though he/she may not always do this elegantly. Can help the discussion along on familiar ground confirming comprehension, inviting others in, etc.",
		LevelB1Plus: "Can initiate, maintain and close simple face-to-face conversation approaching B2 competence.",
		LevelB1:     "Can initiate, maintain and close simple face-to-face conversation on topics that are familiar or of personal interest. Can repeat back part of what someone has said to confirm mutual understanding.",
		LevelA2Plus: "Can ask and answer questions and respond to simple statements approaching B1.",
		LevelA2:     "Can ask and answer questions and respond to simple statements. Can indicate when he/she is following but is rarely able to understand enough to keep conversation going of his/her own accord.",
		LevelA1Plus: "Can ask and answer questions about personal details approaching A2.",
		LevelA1:     "Can ask and answer questions about personal details. Can interact in a simple way but communication is totally dependent on repetition, rephrasing and repair.",
	},
	CriterionCoherence: {
		LevelC2:     "Can create coherent and cohesive discourse making full and appropriate use of a variety of organisational patterns and a wide range of connectors and other cohesive devices.",
		LevelC1Plus: "Can produce clear, smoothly flowing, well-structured speech approaching perfect coherence.",
		LevelC1:     "Can produce clear, smoothly flowing, well-structured speech, showing controlled use of organisational patterns, connectors and cohesive devices.",
		LevelB2Plus: "Can use a limited number of cohesive devices approaching C1 structure.",
		LevelB2:     `Can use a limited number of cohesive devices to link his/her utterances into clear, coherent discourse, though there may be some "jumpiness" in a long contribution.`,
		LevelB1Plus: "Can link a series of shorter, discrete elements approaching B2 coherence.",
		LevelB1:     "Can link a series of shorter, discrete simple elements into a connected, linear sequence of points.",
		LevelA2Plus: "Can link groups of words with simple connectors approaching B1.",
		LevelA2:     `Can link groups of words with simple connectors like "and", "but" and "because".`,
		LevelA1Plus: "Can link words or groups of words approaching A2.",
		LevelA1:     `Can link words or groups of words with very basic linear connectors like "and" or "then".`,
	},
}

// GlobalDescriptor returns the holistic descriptor for l.
func GlobalDescriptor(l Level) string {
	if d, ok := globalDescriptors[l]; ok {
		return d
	}
	return noDescriptor
}

// CriterionDescriptor returns the analytic descriptor of c at level l.
func CriterionDescriptor(c Criterion, l Level) string {
	if d, ok := criterionDescriptors[c][l]; ok {
		return d
	}
	return noDescriptor
}

// LevelDescription bundles everything known about a single level.
type LevelDescription struct {
	Level                Level                `json:"level"`
	Rank                 float64              `json:"rank"`
	Band                 Level                `json:"band"`
	BandName             string               `json:"band_name"`
	GlobalDescriptor     string               `json:"global_descriptor"`
	CriterionDescriptors map[Criterion]string `json:"criterion_descriptors"`
	Path                 ImprovementPath      `json:"improvement_path"`
}

// Describe returns the full description of l.
func Describe(l Level) LevelDescription {
	crit := make(map[Criterion]string, len(criteria))
	for _, c := range criteria {
		crit[c] = CriterionDescriptor(c, l)
	}
	return LevelDescription{
		Level:                l,
		Rank:                 ToRank(l),
		Band:                 l.Band(),
		BandName:             l.BandName(),
		GlobalDescriptor:     GlobalDescriptor(l),
		CriterionDescriptors: crit,
		Path:                 NewImprovementPath(l),
	}
}

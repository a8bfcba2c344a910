package domain

import (
	"fmt"
	"strings"
)

// TopicID identifies a conversation topic.
type TopicID string

const (
	TopicCasual     TopicID = "casual"
	TopicTravel     TopicID = "travel"
	TopicBusiness   TopicID = "business"
	TopicShopping   TopicID = "shopping"
	TopicHealth     TopicID = "health"
	TopicEducation  TopicID = "education"
	TopicTechnology TopicID = "technology"
	TopicCulture    TopicID = "culture"
	TopicNews       TopicID = "news"
	TopicDaily      TopicID = "daily"
)

// Topic describes a conversation theme the voice agent can role-play.
type Topic struct {
	ID          TopicID  `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Scenarios   []string `json:"example_scenarios"`
	// AgentRole is the instruction given to the conversation agent.
	AgentRole string `json:"agent_role"`
}

var topics = []Topic{
	{
		ID:          TopicCasual,
		Name:        "Casual & Social",
		Description: "Making friends, small talk, and social situations",
		Scenarios:   []string{"Meeting new people", "Party conversations", "Casual catch-ups"},
		AgentRole:   "Engage in friendly small talk. Ask about interests, weekend plans, hobbies, and daily life. Be warm and personable.",
	},
	{
		ID:          TopicTravel,
		Name:        "Travel & Tourism",
		Description: "Navigating travel situations and exploring new places",
		Scenarios:   []string{"Airport check-in", "Hotel booking", "Asking for directions"},
		AgentRole:   "Role-play as hotel staff, tour guides, locals giving directions, or fellow travelers. Discuss destinations, transportation, accommodations.",
	},
	{
		ID:          TopicBusiness,
		Name:        "Business & Professional",
		Description: "Workplace communication and professional networking",
		Scenarios:   []string{"Business meetings", "Presentations", "Professional networking"},
		AgentRole:   "Act as a colleague, client, or professional contact. Discuss projects, meetings, industry topics, career development.",
	},
	{
		ID:          TopicShopping,
		Name:        "Shopping & Services",
		Description: "Consumer interactions and service requests",
		Scenarios:   []string{"Grocery shopping", "Restaurant ordering", "Banking services"},
		AgentRole:   "Role-play as store clerks, waiters, bank tellers, or service providers. Help with purchases, orders, and service requests.",
	},
	{
		ID:          TopicHealth,
		Name:        "Health & Wellness",
		Description: "Health-related conversations and wellness topics",
		Scenarios:   []string{"Doctor appointments", "Fitness discussions", "Mental health"},
		AgentRole:   "Be a supportive health professional, fitness coach, or wellness advisor. Discuss symptoms, treatments, exercise, nutrition, mental health.",
	},
	{
		ID:          TopicEducation,
		Name:        "Education & Learning",
		Description: "Academic contexts and learning environments",
		Scenarios:   []string{"Discussing courses", "Study groups", "Academic questions"},
		AgentRole:   "Act as a classmate, tutor, or academic advisor. Discuss courses, study strategies, academic interests, research topics.",
	},
	{
		ID:          TopicTechnology,
		Name:        "Technology & Digital Life",
		Description: "Tech topics and digital communication",
		Scenarios:   []string{"Discussing apps", "Social media", "Tech troubleshooting"},
		AgentRole:   "Be a tech-savvy friend or support specialist. Discuss apps, devices, social media, digital trends, troubleshooting.",
	},
	{
		ID:          TopicCulture,
		Name:        "Culture & Entertainment",
		Description: "Arts, media, hobbies, and creative pursuits",
		Scenarios:   []string{"Discussing movies", "Music preferences", "Hobbies and interests"},
		AgentRole:   "Chat as a fellow culture enthusiast. Discuss movies, TV shows, music, books, art, theater, hobbies, creative pursuits.",
	},
	{
		ID:          TopicNews,
		Name:        "News & Current Events",
		Description: "Discussing world events and social topics",
		Scenarios:   []string{"News opinions", "Debates", "Social issues"},
		AgentRole:   "Engage in thoughtful discussion about current events. Ask opinions, explore different perspectives, discuss societal topics.",
	},
	{
		ID:          TopicDaily,
		Name:        "Daily Routines & Life",
		Description: "Everyday life topics and personal experiences",
		Scenarios:   []string{"Family life", "Daily schedules", "Household chores"},
		AgentRole:   "Be a relatable peer discussing everyday life. Talk about family, household tasks, routines, life events, personal experiences.",
	},
}

// Topics returns all conversation topics.
func Topics() []Topic {
	out := make([]Topic, len(topics))
	copy(out, topics)
	return out
}

// ParseTopic validates a topic identifier.
func ParseTopic(s string) (TopicID, error) {
	id := TopicID(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := LookupTopic(id); !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTopic, s)
	}
	return id, nil
}

// LookupTopic finds a topic by ID.
func LookupTopic(id TopicID) (Topic, bool) {
	for _, t := range topics {
		if t.ID == id {
			return t, true
		}
	}
	return Topic{}, false
}

// Language is a feedback language the grader can write in.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DefaultLanguage is used when no or an unknown code is requested.
var DefaultLanguage = Language{Code: "en", Name: "English"}

var languages = []Language{
	DefaultLanguage,
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "it", Name: "Italian"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "nl", Name: "Dutch"},
	{Code: "pl", Name: "Polish"},
	{Code: "ru", Name: "Russian"},
	{Code: "uk", Name: "Ukrainian"},
	{Code: "tr", Name: "Turkish"},
	{Code: "ar", Name: "Arabic"},
	{Code: "hi", Name: "Hindi"},
	{Code: "zh", Name: "Chinese"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ko", Name: "Korean"},
	{Code: "vi", Name: "Vietnamese"},
	{Code: "th", Name: "Thai"},
	{Code: "id", Name: "Indonesian"},
}

// Languages returns the supported feedback languages.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// LookupLanguage resolves a language code, falling back to English.
func LookupLanguage(code string) Language {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, l := range languages {
		if l.Code == code {
			return l
		}
	}
	return DefaultLanguage
}

// IsEnglish reports whether feedback should be written in English.
func (l Language) IsEnglish() bool {
	return l.Code == DefaultLanguage.Code
}

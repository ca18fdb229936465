package matcher

import (
	"strings"

	"github.com/yoockh/yoohealth/internal/models"
)

// ReplyKind names the path that produced a reply.
type ReplyKind string

const (
	ReplyTopic   ReplyKind = "topic"
	ReplyDisease ReplyKind = "disease_suggestion"
	ReplyCanned  ReplyKind = "canned"
	ReplyGeneric ReplyKind = "generic"
)

// Reply is a formatted bot answer.
type Reply struct {
	Text  string
	Kind  ReplyKind
	Match Match
	// Suggestions is set for ReplyDisease.
	Suggestions []string
	// Group is set for ReplyCanned.
	Group string
}

const (
	TopicDisclaimer = "This information is for educational purposes only. Please consult a qualified healthcare professional for advice about your situation."

	diseaseGuidance = "I don't have detailed information about that condition yet. Symptoms and treatments vary from person to person, so please speak with a doctor or pharmacist who can assess you properly. If your symptoms are severe or getting worse, seek medical care right away."

	GenericResponse = "I'm a health information assistant and can share general information about common conditions, symptoms, exercise, nutrition, sleep and stress. I couldn't find anything specific for your question. Try asking about a particular condition or symptom, and remember to consult a healthcare professional for medical advice."
)

const maxSuggestions = 3

// diseaseKeywords trigger the suggestion path when found anywhere in the
// lower-cased input.
var diseaseKeywords = []string{
	"disease", "illness", "condition", "symptom", "syndrome", "disorder",
	"infection", "virus", "bacteria", "cancer", "tumor", "pain", "ache",
	"fever", "inflammation", "allergy", "diabetes", "hypertension",
	"depression", "anxiety", "asthma", "arthritis",
}

var commonDiseases = []string{
	"diabetes", "hypertension", "asthma", "arthritis", "depression",
	"anxiety disorder", "migraine", "influenza", "pneumonia", "bronchitis",
	"heart disease", "stroke", "cancer", "allergies", "eczema",
	"osteoporosis", "common cold", "gastritis", "kidney disease", "thyroid disorder",
}

type cannedGroup struct {
	name     string
	keywords []string
	text     string
}

// cannedGroups is evaluated in order; the first group with a keyword in the
// input wins.
var cannedGroups = []cannedGroup{
	{
		name:     "exercise",
		keywords: []string{"exercise", "workout", "fitness"},
		text:     "Regular physical activity is one of the best things you can do for your health. Most adults should aim for at least 150 minutes of moderate aerobic activity a week, such as brisk walking or cycling, plus muscle-strengthening exercises on two or more days. Start gradually, warm up before you begin, and check with your doctor before starting a new programme if you have a chronic condition.",
	},
	{
		name:     "nutrition",
		keywords: []string{"diet", "nutrition", "food"},
		text:     "A balanced diet includes plenty of vegetables, fruit, whole grains, lean proteins and healthy fats. Try to limit processed foods, added sugar and salt, and drink enough water through the day. Portion size matters too. A registered dietitian can help you build an eating plan that fits your needs.",
	},
	{
		name:     "sleep",
		keywords: []string{"sleep", "tired", "insomnia"},
		text:     "Most adults need 7 to 9 hours of sleep a night. Keep a regular sleep schedule, make your bedroom dark and quiet, and avoid screens, caffeine and heavy meals close to bedtime. If you often feel tired despite enough sleep, or struggle to fall or stay asleep for weeks, talk to a healthcare provider.",
	},
	{
		name:     "mental_health",
		keywords: []string{"stress", "anxiety", "mental health"},
		text:     "Looking after your mental health matters as much as your physical health. Regular exercise, enough sleep, time with people you trust and relaxation techniques such as deep breathing or meditation can all help manage stress. If you feel overwhelmed or your mood is affecting daily life, please reach out to a mental health professional.",
	},
}

// Respond produces a reply for input. It is total: every input yields a
// reply.
func Respond(input string, topics []models.HealthTopic) Reply {
	if m := FindBestMatch(input, topics); m.Found() {
		return Reply{Text: FormatTopic(m.Topic), Kind: ReplyTopic, Match: m}
	}

	lower := strings.ToLower(input)

	if containsAny(lower, diseaseKeywords) {
		suggestions := SuggestDiseases(lower)
		return Reply{Text: formatDiseaseReply(suggestions), Kind: ReplyDisease, Suggestions: suggestions}
	}

	for _, g := range cannedGroups {
		if containsAny(lower, g.keywords) {
			return Reply{Text: g.text, Kind: ReplyCanned, Group: g.name}
		}
	}

	return Reply{Text: GenericResponse, Kind: ReplyGeneric}
}

// FormatTopic renders a matched topic.
func FormatTopic(t *models.HealthTopic) string {
	var b strings.Builder
	b.WriteString("**")
	b.WriteString(t.Title)
	b.WriteString("**\n\n")
	b.WriteString(t.Description)
	b.WriteString("\n\nCategory: ")
	b.WriteString(t.Category)
	if tags := strings.TrimSpace(t.Tags); tags != "" {
		b.WriteString("\nRelated Topics: ")
		b.WriteString(tags)
	}
	b.WriteString("\n\n")
	b.WriteString(TopicDisclaimer)
	return b.String()
}

// SuggestDiseases picks up to three common disease names related to the
// first word of input: a name qualifies when it contains that word, or when
// input contains the name's own first word.
func SuggestDiseases(input string) []string {
	lower := strings.ToLower(input)
	fields := strings.Fields(lower)
	if len(fields) == 0 {
		return nil
	}
	first := fields[0]

	var out []string
	for _, name := range commonDiseases {
		nameFirst := strings.Fields(name)[0]
		if strings.Contains(name, first) || strings.Contains(lower, nameFirst) {
			out = append(out, name)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

func formatDiseaseReply(suggestions []string) string {
	if len(suggestions) == 0 {
		return diseaseGuidance
	}
	return "You might be interested in information about: " + strings.Join(suggestions, ", ") + ".\n\n" + diseaseGuidance
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// CannedText returns the fixed paragraph for a canned group name.
func CannedText(group string) (string, bool) {
	for _, g := range cannedGroups {
		if g.name == group {
			return g.text, true
		}
	}
	return "", false
}

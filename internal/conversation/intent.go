package conversation

import (
	"strings"
	"unicode"
)

// Route names how a free-text turn was handled.
type Route string

const (
	RouteAnswer     Route = "answer"
	RoutePhone      Route = "phone"
	RouteBookTests  Route = "book_tests"
	RouteBookDoctor Route = "book_doctor"
	RouteFiller     Route = "filler"
	RouteDiagnose   Route = "diagnose"
	RouteAction     Route = "action"
	RouteForm       Route = "form"
)

var (
	testIntents = []string{
		"blood test", "lab test", "diagnostic test", "book test", "book a test",
		"test booking", "get tested", "pathology", "lab work", "x ray",
	}
	testWords = []string{"scan", "mri", "xray", "ultrasound"}
	doctorIntents = []string{
		"book appointment", "book an appointment", "see a doctor", "see doctor",
		"consult a specialist", "consult a doctor", "consult doctor", "book a doctor",
		"find a doctor", "doctor appointment", "see a specialist", "book doctor",
	}
	greetings = []string{
		"hi", "hello", "hey", "hiya", "good morning", "good afternoon", "good evening",
		"thanks", "thank you", "thx", "ok", "okay", "cool", "bye", "goodbye", "yes", "no",
	}
	// symptomStems match at the start of a word ("vomit" in "vomiting").
	symptomStems = []string{
		"pain", "ache", "aching", "fever", "cough", "headache", "earache", "toothache",
		"migraine", "nausea", "vomit", "dizz", "bleed", "breath", "swell", "swollen",
		"fatigue", "itch", "burn", "diarrh", "infect", "injur", "hurt", "cramp", "sick",
		"knee", "stomach", "anxi", "sleep", "weak", "numb", "palpitation",
	}
	// symptomWords are short enough to collide with unrelated words
	// ("ear" in "early") and only match whole, optionally plural.
	symptomWords = []string{
		"cold", "flu", "rash", "chest", "tired", "sore", "back", "throat", "head",
		"ear", "eye", "skin", "joint", "tooth", "teeth", "arm", "leg",
	}
)

// Classify picks a route for free text when neither an interview answer nor
// a phone number is expected. Test intents are checked before doctor
// intents because "book a blood test" also reads as a booking request.
func Classify(text string) Route {
	norm := normalize(text)
	switch {
	case containsAny(norm, testIntents) || containsWord(norm, testWords):
		return RouteBookTests
	case containsAny(norm, doctorIntents):
		return RouteBookDoctor
	case isFiller(norm):
		return RouteFiller
	default:
		return RouteDiagnose
	}
}

func isFiller(norm string) bool {
	if norm == "" {
		return true
	}
	if containsAny(norm, symptomStems) || containsWord(norm, symptomWords) {
		return false
	}
	if len(strings.Fields(norm)) < 3 {
		return true
	}
	for _, g := range greetings {
		if norm == g || strings.HasPrefix(norm, g+" ") {
			return true
		}
	}
	return false
}

// IsSkip reports whether the user declined to share a phone number.
func IsSkip(text string) bool {
	switch normalize(text) {
	case "skip", "no", "no thanks", "skip it", "later", "not now":
		return true
	}
	return false
}

func normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'':
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func containsAny(norm string, phrases []string) bool {
	padded := " " + norm + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p) {
			return true
		}
	}
	return false
}

// containsWord matches whole words, allowing an "s" or "es" plural.
func containsWord(norm string, words []string) bool {
	for _, tok := range strings.Fields(norm) {
		for _, w := range words {
			if tok == w || tok == w+"s" || tok == w+"es" {
				return true
			}
		}
	}
	return false
}

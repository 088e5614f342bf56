package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// SymptomTrackerComponent is the one component whose workflow is built from
// the conversation instead of loaded from a script.
const SymptomTrackerComponent = "SymptomTracker"

const (
	placeholderSymptom = "general discomfort"
	defaultSeverity    = 5
	symptomStepDelay   = 1500
	maxNotesRunes      = 200
	maxSymptomWords    = 4
)

// Multi-word terms come first so "chest pain" wins over "pain", and
// "headache" precedes "ache".
var symptomVocabulary = []string{
	"shortness of breath",
	"sore throat",
	"chest pain",
	"stomach pain",
	"back pain",
	"joint pain",
	"muscle pain",
	"headache",
	"migraine",
	"nausea",
	"vomiting",
	"fatigue",
	"dizziness",
	"fever",
	"cough",
	"rash",
	"swelling",
	"numbness",
	"insomnia",
	"anxiety",
	"depression",
	"pain",
	"ache",
}

var symptomPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bi have\s+(?:an?\s+|some\s+)?([^,.!?;]+)`),
	regexp.MustCompile(`(?i)\bi feel\s+(?:an?\s+|some\s+)?([^,.!?;]+)`),
	regexp.MustCompile(`(?i)\bexperiencing\s+(?:an?\s+|some\s+)?([^,.!?;]+)`),
	regexp.MustCompile(`(?i)([a-z][a-z ]*?)\s+symptoms?\b`),
}

var severityLevels = []struct {
	score int
	words []string
}{
	{8, []string{"severe", "terrible", "unbearable"}},
	{6, []string{"bad", "intense", "strong"}},
	{5, []string{"moderate", "noticeable"}},
	{3, []string{"mild", "slight", "little"}},
}

// Symptom is what SymptomTracker extracts from a conversation.
type Symptom struct {
	Label    string `json:"symptom"`
	Severity int    `json:"severity"`
}

// ExtractSymptom finds the symptom label and a 1-10 severity in text.
func ExtractSymptom(text string) Symptom {
	return Symptom{Label: symptomLabel(text), Severity: severityScore(text)}
}

func symptomLabel(text string) string {
	lower := strings.ToLower(text)
	for _, term := range symptomVocabulary {
		if strings.Contains(lower, term) {
			return term
		}
	}
	for _, re := range symptomPatterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if label := cleanLabel(m[1]); label != "" {
			return label
		}
	}
	return placeholderSymptom
}

func cleanLabel(s string) string {
	words := strings.Fields(strings.ToLower(s))
	if len(words) > maxSymptomWords {
		words = words[:maxSymptomWords]
	}
	return strings.Join(words, " ")
}

func severityScore(text string) int {
	lower := strings.ToLower(text)
	for _, level := range severityLevels {
		for _, w := range level.words {
			if strings.Contains(lower, w) {
				return level.score
			}
		}
	}
	return defaultSeverity
}

// SymptomTracker is the dynamic Factory for SymptomTrackerComponent.
func SymptomTracker(conversation string) (Definition, error) {
	s := ExtractSymptom(conversation)
	severity := strconv.Itoa(s.Severity)

	return Definition{
		Name:        "Real-time Symptom Tracker",
		Description: "Extracts symptom information from the conversation and fills the tracker.",
		Actions: []ActionStep{
			{
				Type: ActionRevealTool,
				Data: ActionData{
					Tool: SymptomTrackerComponent,
					Text: fmt.Sprintf("I understand you're experiencing %s. Let me help you log this in your symptom tracker right away.", s.Label),
				},
			},
			{
				Type:  ActionUpdateGuidance,
				Data:  ActionData{Text: fmt.Sprintf("I'll record %q and rate it %s out of 10 based on what you told me.", s.Label, severity)},
				Delay: symptomStepDelay,
			},
			{
				Type:  ActionSetField,
				Data:  ActionData{Field: "symptom", Value: s.Label},
				Delay: symptomStepDelay,
			},
			{
				Type:  ActionSetField,
				Data:  ActionData{Field: "severity", Value: severity},
				Delay: symptomStepDelay,
			},
			{
				Type:  ActionSetField,
				Data:  ActionData{Field: "notes", Value: notesFrom(conversation)},
				Delay: symptomStepDelay,
			},
			{
				Type:  ActionUpdateGuidance,
				Data:  ActionData{Text: "Done! Your symptom has been logged in your private health journal. I'm always here to help track how you're feeling."},
				Delay: symptomStepDelay,
			},
		},
	}, nil
}

func notesFrom(conversation string) string {
	s := strings.Join(strings.Fields(conversation), " ")
	if utf8.RuneCountInString(s) <= maxNotesRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxNotesRunes]) + "..."
}

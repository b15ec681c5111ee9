package core

import (
	"fmt"
	"sort"
	"strings"
)

// Profile describes one expert persona the consult pipeline can run under.
// Profiles are fixed at compile time; adding one is a data addition here.
type Profile struct {
	Key         string
	Title       string
	Description string
	Tone        string
	Specialties []string
}

// SystemPrompt derives the persona's system prompt from its fields and the
// fixed schema description.
func (p Profile) SystemPrompt() string {
	return fmt.Sprintf(systemPromptTemplate, p.Title, strings.Join(p.Specialties, ", "), p.Tone, schemaDescription)
}

// DefaultAgent is the persona used when neither the request nor the
// configuration selects one.
const DefaultAgent = "dermatologist"

var profiles = map[string]Profile{
	"dermatologist": {
		Key:         "dermatologist",
		Title:       "Dermatology Attending Physician",
		Description: "Focus on rashes, lesions, acne, inflammatory skin conditions, infections, and wound healing.",
		Tone:        "precise, reassuring, avoids alarmism",
		Specialties: []string{
			"medical dermatology",
			"infectious disease differentials",
			"dermoscopy heuristics",
			"skin care routines",
		},
	},
	"therapist": {
		Key:         "therapist",
		Title:       "Generalist Therapist",
		Description: "Focus on emotional support, CBT/DBT inspired coping, brief assessment of risk.",
		Tone:        "supportive, concise, trauma-informed",
		Specialties: []string{"anxiety", "depression", "stress management", "sleep hygiene"},
	},
}

// ResolveProfile maps a selector to a persona. Matching is case-insensitive;
// an empty or unknown selector falls back to defaultKey, and an unknown
// defaultKey falls back to the dermatologist. Resolution always succeeds.
func ResolveProfile(selector, defaultKey string) Profile {
	key := strings.ToLower(strings.TrimSpace(selector))
	if key == "" {
		key = strings.ToLower(strings.TrimSpace(defaultKey))
	}
	if p, ok := profiles[key]; ok {
		return p
	}
	return profiles[DefaultAgent]
}

// KnownAgent reports whether selector names a registered persona.
func KnownAgent(selector string) bool {
	_, ok := profiles[strings.ToLower(strings.TrimSpace(selector))]
	return ok
}

// AgentKeys lists the registered persona keys, for help text.
func AgentKeys() []string {
	keys := make([]string, 0, len(profiles))
	for k := range profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

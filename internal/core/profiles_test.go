package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveProfileKnownKey(t *testing.T) {
	p := ResolveProfile("dermatologist", "")
	assert.Equal(t, "dermatologist", p.Key)
	assert.Equal(t, "Dermatology Attending Physician", p.Title)
}

func TestResolveProfileCaseInsensitive(t *testing.T) {
	p := ResolveProfile("Therapist", "dermatologist")
	assert.Equal(t, "therapist", p.Key)
	assert.Equal(t, "Generalist Therapist", p.Title)
}

func TestResolveProfileEmptyUsesConfiguredDefault(t *testing.T) {
	p := ResolveProfile("", "therapist")
	assert.Equal(t, "therapist", p.Key)
}

func TestResolveProfileUnknownFallsBack(t *testing.T) {
	assert.Equal(t, "dermatologist", ResolveProfile("cardiologist", "").Key)
	assert.Equal(t, "dermatologist", ResolveProfile("cardiologist", "also-unknown").Key)
	assert.Equal(t, "dermatologist", ResolveProfile("", "").Key)
}

func TestSystemPromptMentionsPersonaAndSchema(t *testing.T) {
	prompt := ResolveProfile("therapist", "").SystemPrompt()
	assert.Contains(t, prompt, "Generalist Therapist")
	assert.Contains(t, prompt, "anxiety, depression, stress management, sleep hygiene")
	assert.Contains(t, prompt, "provisional_diagnosis")
	assert.Contains(t, prompt, "Never provide definitive medical diagnoses")
	assert.Contains(t, prompt, "self-harm")
}

func TestKnownAgent(t *testing.T) {
	assert.True(t, KnownAgent("dermatologist"))
	assert.True(t, KnownAgent("Therapist"))
	assert.False(t, KnownAgent("surgeon"))
}

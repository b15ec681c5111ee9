package core

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doctorai/pkg"
)

func TestBuildPrimaryMessagesShape(t *testing.T) {
	profile := ResolveProfile("dermatologist", "")
	messages := buildPrimaryMessages(profile, "  red itchy patch  ", nil, nil)

	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, profile.SystemPrompt(), messages[0].Content)
	assert.Equal(t, "user", messages[1].Role)
	require.Len(t, messages[1].Parts, 1)
	assert.Equal(t, "red itchy patch", messages[1].Parts[0].Text)
}

func TestBuildPrimaryMessagesHistoryWindow(t *testing.T) {
	var history []pkg.HistoryEntry
	for i := 0; i < 12; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		history = append(history, pkg.HistoryEntry{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	history = append(history,
		pkg.HistoryEntry{Role: "other", Content: "skip"},
		pkg.HistoryEntry{Role: "user", Content: ""},
	)

	messages := buildPrimaryMessages(ResolveProfile("", ""), "q", nil, history)
	// system + 8 history + user turn
	require.Len(t, messages, 10)
	kept := messages[1:9]
	assert.Equal(t, "turn 4", kept[0].Content)
	assert.Equal(t, "turn 11", kept[7].Content)
	for _, m := range kept {
		assert.Contains(t, []string{"user", "assistant"}, m.Role)
		assert.NotEmpty(t, m.Content)
	}
}

func TestBuildPrimaryMessagesImagePart(t *testing.T) {
	img := &Image{Name: "scan.heic", Data: []byte{0x1, 0x2}}
	messages := buildPrimaryMessages(ResolveProfile("", ""), "what is this", img, nil)

	user := messages[len(messages)-1]
	require.Len(t, user.Parts, 2)
	assert.True(t, strings.HasPrefix(user.Parts[1].ImageURL, "data:image/heic;base64,"))
}

func TestImageDataURLMIMEInference(t *testing.T) {
	cases := map[string]string{
		"a.png":    "image/png",
		"b.JPG":    "image/jpeg",
		"c.jpeg":   "image/jpeg",
		"d.gif":    "image/gif",
		"e.webp":   "image/webp",
		"f.heic":   "image/heic",
		"g.tiff":   "image/jpeg",
		"noext":    "image/jpeg",
		"":         "image/jpeg",
		"x.tar.gz": "image/jpeg",
	}
	for name, mime := range cases {
		img := &Image{Name: name, Data: []byte("data")}
		assert.True(t, strings.HasPrefix(img.DataURL(), "data:"+mime+";base64,"), "filename %q", name)
	}
}

func TestBuildVerifierMessages(t *testing.T) {
	primary := Coerce(`{"answer":"a","provisional_diagnosis":"p","differentials":[],"followups":[],"plan":"","triage":"","risk_flags":"","confidence":"0.5"}`)
	messages := buildVerifierMessages("is this bad?", nil, primary)

	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, verifierPrompt, messages[0].Content)

	user := messages[1]
	require.Len(t, user.Parts, 1)
	assert.Contains(t, user.Parts[0].Text, "User question: is this bad?")
	assert.Contains(t, user.Parts[0].Text, "Image attached: no")
	assert.Contains(t, user.Parts[0].Text, `"provisional_diagnosis":"p"`)
}

func TestBuildVerifierMessagesWithImage(t *testing.T) {
	img := &Image{Name: "scan.heic", Data: []byte{0x9}}
	messages := buildVerifierMessages("q", img, Coerce(""))

	user := messages[1]
	require.Len(t, user.Parts, 2)
	assert.Contains(t, user.Parts[0].Text, "Image attached: yes")
	assert.True(t, strings.HasPrefix(user.Parts[1].ImageURL, "data:image/heic;base64,"))
}

func TestTrimHistoryPreservesOrder(t *testing.T) {
	history := []pkg.HistoryEntry{
		{Role: "user", Content: "one"},
		{Role: "other", Content: "skip"},
		{Role: "assistant", Content: "two"},
		{Role: "assistant", Content: "   "},
		{Role: "user", Content: "three"},
	}
	kept := trimHistory(history)
	require.Len(t, kept, 3)
	assert.Equal(t, "one", kept[0].Content)
	assert.Equal(t, "two", kept[1].Content)
	assert.Equal(t, "three", kept[2].Content)
}

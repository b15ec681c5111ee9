package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"doctorai/pkg"
)

func TestFormatReplyFullPayload(t *testing.T) {
	out := FormatReply(pkg.Payload{
		Answer:               "Likely mild eczema.",
		ProvisionalDiagnosis: "eczema",
		Differentials:        []string{"contact dermatitis", "psoriasis"},
		Followups:            []string{"Any fever?", "New soaps?"},
		Plan:                 "Moisturize twice daily.",
		Triage:               "Routine visit.",
		RiskFlags:            "rapid spreading",
		Confidence:           "0.6",
	})

	assert.Contains(t, out, "*Likely:* eczema")
	assert.Contains(t, out, "*Confidence:* 0.6")
	assert.Contains(t, out, "*Answer:* Likely mild eczema.")
	assert.Contains(t, out, "*Plan:* Moisturize twice daily.")
	assert.Contains(t, out, "*Triage:* Routine visit.")
	assert.Contains(t, out, "*Alternatives:* contact dermatitis; psoriasis")
	assert.Contains(t, out, "*Follow-ups:* Any fever? | New soaps?")
	assert.Contains(t, out, "*Risk flags:* rapid spreading")
	assert.True(t, strings.HasSuffix(out, disclaimer))
}

func TestFormatReplyEmptyPayload(t *testing.T) {
	out := FormatReply(pkg.Payload{})
	assert.Contains(t, out, "*Likely:* —")
	assert.Contains(t, out, "*Confidence:* —")
	assert.NotContains(t, out, "*Alternatives:*")
	assert.NotContains(t, out, "*Follow-ups:*")
	assert.NotContains(t, out, "*Risk flags:*")
	assert.Contains(t, out, disclaimer)
}

func TestFormatReplyCapsLists(t *testing.T) {
	out := FormatReply(pkg.Payload{
		Differentials: []string{"a", "b", "c", "d"},
		Followups:     []string{"1", "2", "3", "4", "5", "6"},
	})
	assert.Contains(t, out, "*Alternatives:* a; b; c\n")
	assert.NotContains(t, out, "; d")
	assert.Contains(t, out, "*Follow-ups:* 1 | 2 | 3 | 4 | 5\n")
	assert.NotContains(t, out, "| 6")
}

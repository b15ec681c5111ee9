package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"doctorai/pkg"
)

const (
	maxDifferentials = 3
	maxFollowups     = 5
)

// ResponseSchema is the provider-enforced output shape for both pipeline
// stages: all eight fields required, no additional properties.
var ResponseSchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"answer":                {Type: jsonschema.String, Description: "Concise, empathetic response summarizing likely diagnosis and next steps."},
		"provisional_diagnosis": {Type: jsonschema.String, Description: "Single best-fit label if possible, otherwise 'unclear'."},
		"differentials":         {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}, Description: "Up to 3 alternative possibilities."},
		"followups":             {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}, Description: "Up to 5 targeted, closed-ended clarifying questions."},
		"plan":                  {Type: jsonschema.String, Description: "Actionable plan."},
		"triage":                {Type: jsonschema.String, Description: "When to seek urgent vs routine care."},
		"risk_flags":            {Type: jsonschema.String, Description: "Red flags matched from presentation."},
		"confidence":            {Type: jsonschema.String, Description: "0.0-1.0 estimated confidence as a decimal string."},
	},
	Required:             []string{"answer", "provisional_diagnosis", "differentials", "followups", "plan", "triage", "risk_flags", "confidence"},
	AdditionalProperties: false,
}

// ResponseSchemaName labels the schema in structured-output requests.
const ResponseSchemaName = "consult_reply"

// Coerce normalizes an arbitrary model reply into a well-formed Payload.
// Accepted inputs, first match wins: an already-coerced Payload (returned
// as-is), a provider-parsed map, JSON text, fenced JSON text, and finally any
// other text, which becomes the answer of a conservative fallback record.
// Coerce never fails; a malformed or truncated reply degrades to the verbatim
// text instead of propagating as an error.
func Coerce(raw any) pkg.Payload {
	switch v := raw.(type) {
	case pkg.Payload:
		return clamp(v)
	case *pkg.Payload:
		if v != nil {
			return clamp(*v)
		}
		return fallbackPayload("")
	case map[string]any:
		// Trust the provider's schema enforcement; a JSON round trip maps the
		// keys onto the record and drops anything extra.
		if b, err := json.Marshal(v); err == nil {
			var p pkg.Payload
			if json.Unmarshal(b, &p) == nil {
				return clamp(p)
			}
		}
		return fallbackPayload(fmt.Sprint(v))
	case string:
		return coerceText(v)
	case []byte:
		return coerceText(string(v))
	case nil:
		return fallbackPayload("")
	default:
		return coerceText(fmt.Sprint(v))
	}
}

func coerceText(text string) pkg.Payload {
	if p, ok := parseObject(text); ok {
		return p
	}
	cleaned := stripFence(text)
	if p, ok := parseObject(cleaned); ok {
		return p
	}
	return fallbackPayload(cleaned)
}

// parseObject parses text as a JSON object; non-object JSON (null, numbers,
// bare strings) does not count.
func parseObject(text string) (pkg.Payload, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return pkg.Payload{}, false
	}
	var p pkg.Payload
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return pkg.Payload{}, false
	}
	return clamp(p), true
}

// stripFence removes a surrounding markdown code fence and an optional
// leading "json" language tag.
func stripFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimSpace(strings.Trim(cleaned, "`"))
	if strings.HasPrefix(cleaned, "json") {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "json"))
	}
	return cleaned
}

func fallbackPayload(answer string) pkg.Payload {
	return pkg.Payload{
		Answer:               answer,
		ProvisionalDiagnosis: "unclear",
		Differentials:        []string{},
		Followups:            []string{},
		Plan:                 "",
		Triage:               "",
		RiskFlags:            "",
		Confidence:           "0.0",
	}
}

// clamp enforces the required-field invariant: nil slices become empty, and
// the bounded arrays are truncated to their caps.
func clamp(p pkg.Payload) pkg.Payload {
	if p.Differentials == nil {
		p.Differentials = []string{}
	}
	if p.Followups == nil {
		p.Followups = []string{}
	}
	if len(p.Differentials) > maxDifferentials {
		p.Differentials = p.Differentials[:maxDifferentials]
	}
	if len(p.Followups) > maxFollowups {
		p.Followups = p.Followups[:maxFollowups]
	}
	return p
}

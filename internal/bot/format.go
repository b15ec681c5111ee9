package bot

import (
	"strings"

	"doctorai/pkg"
)

const disclaimer = "_Not medical advice. See a clinician if symptoms worsen or you feel unwell._"

// FormatReply renders the verified payload as the markdown message sent back
// to the chat.
func FormatReply(v pkg.Payload) string {
	parts := []string{
		"*Likely:* " + orDash(v.ProvisionalDiagnosis),
		"*Confidence:* " + orDash(v.Confidence),
		"*Answer:* " + orDash(v.Answer),
		"*Plan:* " + orDash(v.Plan),
		"*Triage:* " + orDash(v.Triage),
	}
	if len(v.Differentials) > 0 {
		parts = append(parts, "*Alternatives:* "+strings.Join(capList(v.Differentials, 3), "; "))
	}
	if len(v.Followups) > 0 {
		parts = append(parts, "*Follow-ups:* "+strings.Join(capList(v.Followups, 5), " | "))
	}
	if v.RiskFlags != "" {
		parts = append(parts, "*Risk flags:* "+v.RiskFlags)
	}
	parts = append(parts, disclaimer)
	return strings.Join(parts, "\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func capList(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

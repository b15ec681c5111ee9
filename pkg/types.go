package pkg

import (
	"encoding/json"
	"time"
)

// Payload is the fixed-shape record every model reply is coerced into.
// All eight fields are always present after coercion; Differentials holds at
// most 3 entries and Followups at most 5. Confidence is a string encoding of
// a 0.0-1.0 estimate, kept as text because models occasionally emit values
// like "0.7 (low)" and the verifier stage rewrites them.
type Payload struct {
	Answer               string   `json:"answer"`
	ProvisionalDiagnosis string   `json:"provisional_diagnosis"`
	Differentials        []string `json:"differentials"`
	Followups            []string `json:"followups"`
	Plan                 string   `json:"plan"`
	Triage               string   `json:"triage"`
	RiskFlags            string   `json:"risk_flags"`
	Confidence           string   `json:"confidence"`
}

// HistoryEntry is one prior conversation turn supplied by a front end.
// Only "user" and "assistant" roles are forwarded to the model.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Meta records which models produced a consult result.
type Meta struct {
	Model    string `json:"model"`
	Verifier string `json:"verifier"`
}

// ConsultResult is the outcome of one two-stage consult: the primary agent's
// coerced payload plus the verifier's corrected payload.
type ConsultResult struct {
	Agent    string  `json:"agent"`
	Title    string  `json:"title"`
	Analysis Payload `json:"analysis_raw"`
	Verified Payload `json:"verified"`
	Meta     Meta    `json:"meta"`
}

// ConsultRecord is a persisted consult, as stored in Postgres and returned by
// the doctor-facing consult endpoints.
type ConsultRecord struct {
	ID        string          `json:"id"`
	Agent     string          `json:"agent"`
	Question  string          `json:"question"`
	HasImage  bool            `json:"has_image"`
	Analysis  json.RawMessage `json:"analysis"`
	Verified  json.RawMessage `json:"verified"`
	Model     string          `json:"model"`
	Verifier  string          `json:"verifier"`
	CreatedAt time.Time       `json:"created_at"`
}

// ChatSession identifies a bot conversation. Sessions are keyed by the
// messaging platform and its chat identifier; the session row carries the
// per-chat agent selection.
type ChatSession struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	ChatID    string    `json:"chat_id"`
	Agent     string    `json:"agent"`
	CreatedAt time.Time `json:"created_at"`
}

package core

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"doctorai/internal/llm"
	"doctorai/pkg"
)

// historyWindow is the maximum number of prior turns forwarded to the model.
const historyWindow = 8

// Image is an optional attachment to a consult request. Name is the original
// filename; its extension drives MIME type inference.
type Image struct {
	Name string
	Data []byte
}

var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
}

// DataURL encodes the image as a self-contained data reference for the
// provider's image_url content parts. Unknown extensions default to JPEG.
func (img *Image) DataURL() string {
	mime := "image/jpeg"
	if ext := strings.ToLower(filepath.Ext(img.Name)); ext != "" {
		if m, ok := mimeByExt[ext]; ok {
			mime = m
		}
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(img.Data))
}

// buildPrimaryMessages assembles the first-stage conversation: the persona's
// system prompt, the trimmed history window, and the current user turn with
// an optional image part.
func buildPrimaryMessages(profile Profile, question string, image *Image, history []pkg.HistoryEntry) []llm.Message {
	messages := []llm.Message{{Role: "system", Content: profile.SystemPrompt()}}
	for _, h := range trimHistory(history) {
		messages = append(messages, llm.Message{Role: h.Role, Content: h.Content})
	}
	parts := []llm.Part{{Text: strings.TrimSpace(question)}}
	if image != nil {
		parts = append(parts, llm.Part{ImageURL: image.DataURL()})
	}
	messages = append(messages, llm.Message{Role: "user", Parts: parts})
	return messages
}

// buildVerifierMessages assembles the second-stage conversation: the fixed
// verifier prompt and a user turn carrying the original question, whether an
// image was attached, the primary payload as JSON, and the image itself when
// present so the verifier sees the same context.
func buildVerifierMessages(question string, image *Image, primary pkg.Payload) []llm.Message {
	encoded, err := json.Marshal(primary)
	if err != nil {
		encoded = []byte("{}")
	}
	attached := "no"
	if image != nil {
		attached = "yes"
	}
	text := fmt.Sprintf("User question: %s\nImage attached: %s\nAgent output JSON: %s", question, attached, encoded)
	parts := []llm.Part{{Text: text}}
	if image != nil {
		parts = append(parts, llm.Part{ImageURL: image.DataURL()})
	}
	return []llm.Message{
		{Role: "system", Content: verifierPrompt},
		{Role: "user", Parts: parts},
	}
}

// trimHistory keeps the last historyWindow entries whose role is user or
// assistant and whose content is non-empty, preserving relative order.
func trimHistory(history []pkg.HistoryEntry) []pkg.HistoryEntry {
	kept := make([]pkg.HistoryEntry, 0, len(history))
	for _, h := range history {
		if (h.Role == "user" || h.Role == "assistant") && strings.TrimSpace(h.Content) != "" {
			kept = append(kept, h)
		}
	}
	if len(kept) > historyWindow {
		kept = kept[len(kept)-historyWindow:]
	}
	return kept
}

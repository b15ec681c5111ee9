package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Part is one segment of a multipart message: either text or a self-contained
// image data URL. Exactly one of the two fields is set.
type Part struct {
	Text     string
	ImageURL string
}

// Message is a minimal chat message used by the consult pipeline.
// Role must be one of: "system", "user", or "assistant". When Parts is
// non-empty it takes precedence over Content.
type Message struct {
	Role    string
	Content string
	Parts   []Part
}

// Request carries everything a single structured completion call needs.
// Temperature and ReasoningEffort are optional; a nil Temperature and empty
// ReasoningEffort mean "let the provider pick".
type Request struct {
	Model           string
	Messages        []Message
	Temperature     *float32
	MaxTokens       int
	ReasoningEffort string
	SchemaName      string
	Schema          *jsonschema.Definition
}

// Reply is the extracted body of one completion. Providers that parse the
// structured output themselves populate Structured; otherwise Text carries
// the raw (possibly fenced or truncated) reply for downstream coercion.
type Reply struct {
	Structured map[string]any
	Text       string
}

// Client defines the single method the consult pipeline requires.
type Client interface {
	Complete(ctx context.Context, req Request) (Reply, error)
}

// completer is the slice of the OpenAI SDK the client uses; kept as an
// interface so tests can substitute a canned transport.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient calls the OpenAI chat completion API with an enforced output
// schema. It retries exactly once, without the optional sampling parameters,
// when the provider rejects them as unsupported for the selected model.
type OpenAIClient struct {
	api completer
}

// NewOpenAIClient constructs an OpenAI-backed completion client.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{api: openai.NewClient(apiKey)}
}

// Complete issues one structured chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Reply, error) {
	if c.api == nil {
		return Reply{}, errors.New("openai client not initialized")
	}

	oaReq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  toOpenAIMessages(req.Messages),
		MaxTokens: req.MaxTokens,
	}
	if req.Schema != nil {
		oaReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.SchemaName,
				Schema: req.Schema,
				Strict: true,
			},
		}
	}
	if req.Temperature != nil {
		oaReq.Temperature = *req.Temperature
	}
	if req.ReasoningEffort != "" {
		oaReq.ReasoningEffort = req.ReasoningEffort
	}

	resp, err := c.api.CreateChatCompletion(ctx, oaReq)
	if err != nil && isUnsupportedParamError(err) && (req.Temperature != nil || req.ReasoningEffort != "") {
		// Some models (o-series in particular) reject sampling controls.
		// Retry once with both optional parameters stripped.
		oaReq.Temperature = 0
		oaReq.ReasoningEffort = ""
		resp, err = c.api.CreateChatCompletion(ctx, oaReq)
	}
	if err != nil {
		return Reply{}, err
	}
	return extractReply(resp), nil
}

// isUnsupportedParamError reports whether the provider rejected the request
// because temperature or reasoning effort is unsupported by the model. The
// provider exposes no structured code for this, so the error message text is
// sniffed; this predicate is the only place that rule lives.
func isUnsupportedParamError(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	if !strings.Contains(msg, "unsupported") {
		return false
	}
	return strings.Contains(msg, "temperature") || strings.Contains(msg, "reasoning")
}

// extractReply pulls the reply body out of a completion. Content is usually a
// single string; when the provider splits it into labeled segments only the
// text-typed ones are concatenated.
func extractReply(resp openai.ChatCompletionResponse) Reply {
	if len(resp.Choices) == 0 {
		return Reply{}
	}
	msg := resp.Choices[0].Message
	if msg.Content != "" {
		return Reply{Text: msg.Content}
	}
	var b strings.Builder
	for _, part := range msg.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText {
			b.WriteString(part.Text)
		}
	}
	return Reply{Text: b.String()}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		oa := openai.ChatCompletionMessage{Role: role}
		if len(m.Parts) > 0 {
			for _, p := range m.Parts {
				if p.ImageURL != "" {
					oa.MultiContent = append(oa.MultiContent, openai.ChatMessagePart{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: p.ImageURL, Detail: openai.ImageURLDetailAuto},
					})
					continue
				}
				oa.MultiContent = append(oa.MultiContent, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: p.Text,
				})
			}
		} else {
			oa.Content = m.Content
		}
		out = append(out, oa)
	}
	return out
}

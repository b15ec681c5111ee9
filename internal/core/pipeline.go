package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"doctorai/internal/llm"
	"doctorai/pkg"
)

// Per-stage sampling parameters and token budgets. The primary stage gets
// room to reason; the verifier runs colder and shorter.
const (
	primaryTemperature  float32 = 0.4
	primaryMaxTokens            = 800
	verifierTemperature float32 = 0.2
	verifierMaxTokens           = 600
)

// Request is one consult: a question, an optional persona selector, an
// optional image, and prior turns supplied by the front end.
type Request struct {
	Question string
	Agent    string
	Image    *Image
	History  []pkg.HistoryEntry
}

// Pipeline runs the two-stage consult: a persona-framed analysis call
// followed by a verifier call that reviews the analysis. It holds no mutable
// state and is safe for concurrent use.
type Pipeline struct {
	LLM             llm.Client
	Model           string
	VerifierModel   string
	DefaultAgent    string
	ReasoningEffort string
	Logger          *zap.Logger
}

// NewPipeline constructs a consult pipeline. A nil logger disables the
// observability event.
func NewPipeline(client llm.Client, model, verifierModel, defaultAgent, reasoningEffort string, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		LLM:             client,
		Model:           model,
		VerifierModel:   verifierModel,
		DefaultAgent:    defaultAgent,
		ReasoningEffort: reasoningEffort,
		Logger:          logger,
	}
}

// Run executes one consult. Malformed replies are salvaged by coercion;
// transport and provider errors (beyond the invoker's single
// unsupported-parameter retry) propagate unmodified, and the verifier call is
// never issued when the primary call fails.
func (p *Pipeline) Run(ctx context.Context, req Request) (*pkg.ConsultResult, error) {
	profile := ResolveProfile(req.Agent, p.DefaultAgent)

	p.Logger.Info("running consult",
		zap.String("agent", profile.Key),
		zap.String("model", p.Model),
		zap.String("verifier_model", p.VerifierModel),
		zap.Bool("has_image", req.Image != nil),
		zap.Int("question_len", len(req.Question)),
	)

	temp := primaryTemperature
	reply, err := p.LLM.Complete(ctx, llm.Request{
		Model:           p.Model,
		Messages:        buildPrimaryMessages(profile, req.Question, req.Image, req.History),
		Temperature:     &temp,
		MaxTokens:       primaryMaxTokens,
		ReasoningEffort: p.ReasoningEffort,
		SchemaName:      ResponseSchemaName,
		Schema:          ResponseSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis call: %w", err)
	}
	analysis := coerceReply(reply)

	vtemp := verifierTemperature
	verifierReply, err := p.LLM.Complete(ctx, llm.Request{
		Model:           p.VerifierModel,
		Messages:        buildVerifierMessages(req.Question, req.Image, analysis),
		Temperature:     &vtemp,
		MaxTokens:       verifierMaxTokens,
		ReasoningEffort: p.ReasoningEffort,
		SchemaName:      ResponseSchemaName,
		Schema:          ResponseSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("verifier call: %w", err)
	}
	verified := coerceReply(verifierReply)

	return &pkg.ConsultResult{
		Agent:    profile.Key,
		Title:    profile.Title,
		Analysis: analysis,
		Verified: verified,
		Meta:     pkg.Meta{Model: p.Model, Verifier: p.VerifierModel},
	}, nil
}

// coerceReply resolves the reply's tagged shape before coercion: a
// provider-parsed structured value is preferred over freeform text.
func coerceReply(reply llm.Reply) pkg.Payload {
	if reply.Structured != nil {
		return Coerce(reply.Structured)
	}
	return Coerce(reply.Text)
}

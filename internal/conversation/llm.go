package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ziadkadry99/mermaid-studio/internal/llm"
)

// SystemInstruction steers the model towards fenced Mermaid output.
const SystemInstruction = `You are an expert Mermaid.js diagram generator.
Your goal is to produce valid, syntactically correct Mermaid.js code for the user's description.
- Always put the diagram inside a markdown code block tagged with 'mermaid', for example:
` + "```mermaid\ngraph TD\nA-->B\n```" + `
- Never use 'mermaid-js' or any other tag, only 'mermaid'.
- When asked to change an existing diagram, output the complete updated diagram.
- Keep explanations short and put the code first.
- Prefer modern syntax (flowchart over graph) unless told otherwise.
- Keep node IDs alphanumeric and simple.`

// EmptyCompletionReply is returned when the model answers with nothing.
const EmptyCompletionReply = "Sorry, I couldn't generate a response."

// DefaultTemperature keeps diagram output close to deterministic.
const DefaultTemperature = 0.2

// LLMAssistant answers turns by calling a chat completion provider.
type LLMAssistant struct {
	provider    llm.Provider
	model       string
	temperature float64
	maxTokens   int
	log         *slog.Logger
}

// LLMOption configures an LLMAssistant.
type LLMOption func(*LLMAssistant)

// WithModel overrides the provider's default model.
func WithModel(model string) LLMOption {
	return func(a *LLMAssistant) { a.model = model }
}

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float64) LLMOption {
	return func(a *LLMAssistant) { a.temperature = t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) LLMOption {
	return func(a *LLMAssistant) { a.maxTokens = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) LLMOption {
	return func(a *LLMAssistant) { a.log = l }
}

// NewLLMAssistant creates an assistant backed by provider.
func NewLLMAssistant(provider llm.Provider, opts ...LLMOption) *LLMAssistant {
	a := &LLMAssistant{
		provider:    provider,
		temperature: DefaultTemperature,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *LLMAssistant) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	msgs := make([]llm.Message, 0, len(req.History)+1)
	for _, m := range req.History {
		role := llm.RoleUser
		if m.Role == RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Prompt})

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Model:       a.model,
		Messages:    llm.Conversation(SystemInstruction, msgs...),
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate diagram: %w", err)
	}

	in, out := resp.InputTokens, resp.OutputTokens
	if in == 0 && out == 0 {
		in = llm.EstimateTokens(SystemInstruction + req.Prompt)
		out = llm.EstimateTokens(resp.Content)
	}
	a.log.Debug("completion",
		"provider", a.provider.Name(),
		"model", resp.Model,
		"input_tokens", in,
		"output_tokens", out,
		"cost_usd", llm.EstimateCost(resp.Model, in, out),
	)

	if strings.TrimSpace(resp.Content) == "" {
		return EmptyCompletionReply, nil
	}
	return resp.Content, nil
}

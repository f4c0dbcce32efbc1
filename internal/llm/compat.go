package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Preset describes an OpenAI-compatible endpoint.
type Preset struct {
	Name    string
	BaseURL string
	EnvKey  string
	Model   string
	// MinTemp/MaxTemp clamp the temperature when the endpoint rejects
	// values outside a narrower range. Zero MaxTemp means no clamp.
	MinTemp float64
	MaxTemp float64
}

// Presets are the OpenAI-compatible endpoints known by name.
var Presets = map[string]Preset{
	"openai": {
		Name:   "openai",
		EnvKey: "OPENAI_API_KEY",
		Model:  "gpt-4o-mini",
	},
	"deepseek": {
		Name:    "deepseek",
		BaseURL: "https://api.deepseek.com",
		EnvKey:  "DEEPSEEK_API_KEY",
		Model:   "deepseek-chat",
	},
	"openrouter": {
		Name:    "openrouter",
		BaseURL: "https://openrouter.ai/api/v1",
		EnvKey:  "OPENROUTER_API_KEY",
		Model:   "deepseek/deepseek-chat",
	},
	// MiniMax requires temperature in (0.0, 1.0].
	"minimax": {
		Name:    "minimax",
		BaseURL: "https://api.minimax.io/v1",
		EnvKey:  "MINIMAX_API_KEY",
		Model:   "MiniMax-M1",
		MinTemp: 0.01,
		MaxTemp: 1.0,
	},
}

// CompatProvider implements Provider for any endpoint speaking the OpenAI
// Chat Completions API.
type CompatProvider struct {
	client *openai.Client
	preset Preset
	model  string
}

// NewCompatProvider creates a provider for preset. A non-empty baseURL
// overrides the preset's endpoint.
func NewCompatProvider(preset Preset, apiKey, model, baseURL string) *CompatProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = preset.BaseURL
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = preset.Model
	}
	return &CompatProvider{
		client: openai.NewClientWithConfig(cfg),
		preset: preset,
		model:  model,
	}
}

func (p *CompatProvider) Name() string {
	return p.preset.Name
}

func (p *CompatProvider) temperature(t float64) float32 {
	if p.preset.MaxTemp > 0 {
		if t < p.preset.MinTemp {
			t = p.preset.MinTemp
		} else if t > p.preset.MaxTemp {
			t = p.preset.MaxTemp
		}
	}
	return float32(t)
}

func (p *CompatProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokensOr(req.MaxTokens),
		Temperature: p.temperature(req.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion failed: %w", p.preset.Name, err)
	}

	out := &CompletionResponse{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.FinishReason = string(resp.Choices[0].FinishReason)
	}
	return out, nil
}

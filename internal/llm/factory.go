package llm

import (
	"fmt"
	"os"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewProvider creates a provider from settings. When APIKey is empty the
// provider's conventional environment variable is consulted.
// Supported providers: the Presets (openai, deepseek, openrouter, minimax),
// "anthropic", "google" and "ollama".
func NewProvider(s Settings) (Provider, error) {
	if preset, ok := Presets[s.Provider]; ok {
		key, err := apiKey(s.APIKey, preset.EnvKey)
		if err != nil {
			return nil, err
		}
		return NewCompatProvider(preset, key, s.Model, s.BaseURL), nil
	}

	switch s.Provider {
	case "anthropic":
		key, err := apiKey(s.APIKey, "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewAnthropicProvider(key, s.Model, s.BaseURL), nil

	case "google":
		key, err := apiKey(s.APIKey, "GOOGLE_API_KEY")
		if err != nil {
			return nil, err
		}
		return NewGoogleProvider(key, s.Model, s.BaseURL), nil

	case "ollama":
		host := s.BaseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		return NewOllamaProvider(host, s.Model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", s.Provider)
	}
}

// EnvKey returns the environment variable holding the API key for the
// named provider, or "" when it needs none.
func EnvKey(provider string) string {
	if p, ok := Presets[provider]; ok {
		return p.EnvKey
	}
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	}
	return ""
}

func apiKey(explicit, env string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s environment variable is not set", env)
}

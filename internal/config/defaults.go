package config

import (
	"time"

	"github.com/ziadkadry99/mermaid-studio/internal/render"
	"github.com/ziadkadry99/mermaid-studio/internal/viewport"
)

// DefaultFile is the config file looked up in the working directory.
const DefaultFile = ".mstudio.yml"

// defaultModels is the model used when only a provider is chosen.
var defaultModels = map[ProviderType]string{
	ProviderDeepSeek:   "deepseek-chat",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderOpenRouter: "deepseek/deepseek-chat",
	ProviderMiniMax:    "MiniMax-M1",
	ProviderAnthropic:  "claude-sonnet-4-5-20250929",
	ProviderGoogle:     "gemini-2.0-flash",
	ProviderOllama:     "llama3.1",
	ProviderRemote:     "remote",
}

// DefaultModel returns the stock model for provider, or "" if unknown.
func DefaultModel(provider ProviderType) string {
	return defaultModels[provider]
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	opts := render.DefaultOptions()
	return &Config{
		Assistant: AssistantConfig{
			Provider:     ProviderDeepSeek,
			Model:        defaultModels[ProviderDeepSeek],
			Temperature:  0.2,
			MaxTokens:    4096,
			RateLimitRPM: 30,
			Timeout:      2 * time.Minute,
		},
		Renderer: RendererConfig{
			Engine:        EngineCLI,
			Binary:        render.DefaultCLIBinary,
			Theme:         opts.Theme,
			FontFamily:    opts.FontFamily,
			SecurityLevel: opts.SecurityLevel,
			Background:    opts.Background,
			Debounce:      render.DefaultDebounce,
			Timeout:       30 * time.Second,
		},
		Viewport: viewport.DefaultLimits(),
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    ".mstudio/cache.db",
			MaxAge:  7 * 24 * time.Hour,
		},
		LogLevel: "info",
	}
}

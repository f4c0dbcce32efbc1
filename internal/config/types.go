package config

import (
	"time"

	"github.com/ziadkadry99/mermaid-studio/internal/render"
	"github.com/ziadkadry99/mermaid-studio/internal/viewport"
)

// ProviderType identifies where assistant replies come from.
type ProviderType string

const (
	ProviderDeepSeek   ProviderType = "deepseek"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderMiniMax    ProviderType = "minimax"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderGoogle     ProviderType = "google"
	ProviderOllama     ProviderType = "ollama"
	// ProviderRemote forwards turns to another mstudio backend over HTTP.
	ProviderRemote ProviderType = "remote"
)

// EngineType identifies the diagram renderer.
type EngineType string

const (
	EngineCLI  EngineType = "cli"
	EngineHTTP EngineType = "http"
)

// Config is the top-level mstudio configuration, corresponding to .mstudio.yml.
type Config struct {
	Assistant AssistantConfig `yaml:"assistant" koanf:"assistant"`
	Renderer  RendererConfig  `yaml:"renderer" koanf:"renderer"`
	Viewport  viewport.Limits `yaml:"viewport" koanf:"viewport"`
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Cache     CacheConfig     `yaml:"cache" koanf:"cache"`
	LogLevel  string          `yaml:"log_level" koanf:"log_level"`
}

// AssistantConfig selects and tunes the model behind the chat.
type AssistantConfig struct {
	Provider     ProviderType  `yaml:"provider" koanf:"provider"`
	Model        string        `yaml:"model" koanf:"model"`
	APIKey       string        `yaml:"api_key,omitempty" koanf:"api_key"`
	BaseURL      string        `yaml:"base_url,omitempty" koanf:"base_url"`
	Temperature  float64       `yaml:"temperature" koanf:"temperature"`
	MaxTokens    int           `yaml:"max_tokens" koanf:"max_tokens"`
	RateLimitRPM int           `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	Timeout      time.Duration `yaml:"timeout" koanf:"timeout"`
}

// RendererConfig holds the engine choice and the per-render options.
type RendererConfig struct {
	Engine          EngineType    `yaml:"engine" koanf:"engine"`
	Binary          string        `yaml:"binary" koanf:"binary"`
	PuppeteerConfig string        `yaml:"puppeteer_config,omitempty" koanf:"puppeteer_config"`
	URL             string        `yaml:"url,omitempty" koanf:"url"`
	Theme           render.Theme  `yaml:"theme" koanf:"theme"`
	FontFamily      string        `yaml:"font_family" koanf:"font_family"`
	SecurityLevel   string        `yaml:"security_level" koanf:"security_level"`
	Background      string        `yaml:"background" koanf:"background"`
	Debounce        time.Duration `yaml:"debounce" koanf:"debounce"`
	Timeout         time.Duration `yaml:"timeout" koanf:"timeout"`
}

// ServerConfig holds settings for `mstudio serve`.
type ServerConfig struct {
	Host        string   `yaml:"host" koanf:"host"`
	Port        int      `yaml:"port" koanf:"port"`
	CORSOrigins []string `yaml:"cors_origins" koanf:"cors_origins"`
}

// CacheConfig controls the SQLite render cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" koanf:"enabled"`
	Path    string        `yaml:"path" koanf:"path"`
	MaxAge  time.Duration `yaml:"max_age" koanf:"max_age"`
}

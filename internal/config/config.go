package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/mermaid-studio/internal/llm"
	"github.com/ziadkadry99/mermaid-studio/internal/render"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: MSTUDIO_RENDERER__THEME -> renderer.theme.
const EnvPrefix = "MSTUDIO_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (MSTUDIO_*). A .env file next to the
// config file, if present, is loaded into the environment first without
// replacing variables that are already set.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Server.CORSOrigins = splitOrigins(cfg.Server.CORSOrigins)
	// A provider chosen without a model gets that provider's stock model.
	if !k.Exists("assistant.model") {
		cfg.Assistant.Model = DefaultModel(cfg.Assistant.Provider)
	}

	return cfg, nil
}

// envKey maps MSTUDIO_SERVER__CORS_ORIGINS to server.cors_origins.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// splitOrigins accepts both a YAML list and a comma separated env value.
func splitOrigins(in []string) []string {
	var out []string
	for _, v := range in {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderDeepSeek:   true,
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderMiniMax:    true,
	ProviderAnthropic:  true,
	ProviderGoogle:     true,
	ProviderOllama:     true,
	ProviderRemote:     true,
}

var validEngines = map[EngineType]bool{
	EngineCLI:  true,
	EngineHTTP: true,
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	a := c.Assistant
	if a.Provider == "" {
		return fmt.Errorf("assistant.provider is required")
	}
	if !validProviders[a.Provider] {
		return fmt.Errorf("invalid assistant.provider %q: must be one of deepseek, openai, openrouter, minimax, anthropic, google, ollama, remote", a.Provider)
	}
	if a.Model == "" {
		return fmt.Errorf("assistant.model is required")
	}
	if a.Provider == ProviderRemote && a.BaseURL == "" {
		return fmt.Errorf("assistant.base_url is required for the remote provider")
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("assistant.temperature must be between 0 and 2")
	}
	if a.MaxTokens < 0 || a.RateLimitRPM < 0 || a.Timeout < 0 {
		return fmt.Errorf("assistant limits must be non-negative")
	}

	r := c.Renderer
	if !validEngines[r.Engine] {
		return fmt.Errorf("invalid renderer.engine %q: must be one of cli, http", r.Engine)
	}
	if r.Engine == EngineHTTP && r.URL == "" {
		return fmt.Errorf("renderer.url is required for the http engine")
	}
	if !r.Theme.Valid() {
		return fmt.Errorf("invalid renderer.theme %q: must be one of dark, light", r.Theme)
	}
	if r.Debounce < 0 || r.Timeout < 0 {
		return fmt.Errorf("renderer.debounce and renderer.timeout must be non-negative")
	}

	v := c.Viewport
	if v.MinScale <= 0 || v.MaxScale < v.MinScale || v.Step <= 0 {
		return fmt.Errorf("invalid viewport limits: need 0 < min_scale <= max_scale and step > 0")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when the cache is enabled")
	}
	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}

	return nil
}

// RenderOptions returns the per-render options the renderer section describes.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		Theme:         c.Renderer.Theme,
		FontFamily:    c.Renderer.FontFamily,
		SecurityLevel: c.Renderer.SecurityLevel,
		Background:    c.Renderer.Background,
	}
}

// LLMSettings returns the provider settings for the assistant section.
func (c *Config) LLMSettings() llm.Settings {
	return llm.Settings{
		Provider: string(c.Assistant.Provider),
		Model:    c.Assistant.Model,
		APIKey:   c.Assistant.APIKey,
		BaseURL:  c.Assistant.BaseURL,
	}
}

// SlogLevel parses LogLevel, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	return llm.EnvKey(string(provider))
}

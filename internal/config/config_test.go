package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ziadkadry99/mermaid-studio/internal/render"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Assistant.Provider != ProviderDeepSeek {
		t.Errorf("expected default provider %q, got %q", ProviderDeepSeek, cfg.Assistant.Provider)
	}
	if cfg.Assistant.Model != "deepseek-chat" {
		t.Errorf("expected default model deepseek-chat, got %q", cfg.Assistant.Model)
	}
	if cfg.Assistant.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", cfg.Assistant.Temperature)
	}
	if cfg.Renderer.Theme != render.ThemeDark {
		t.Errorf("expected dark theme, got %q", cfg.Renderer.Theme)
	}
	if cfg.Renderer.Debounce != render.DefaultDebounce {
		t.Errorf("expected default debounce, got %v", cfg.Renderer.Debounce)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.mstudio.yml")

	original := DefaultConfig()
	original.Assistant.Provider = ProviderOpenAI
	original.Assistant.Model = "gpt-4o"
	original.Renderer.Engine = EngineHTTP
	original.Renderer.URL = "http://kroki:8000"
	original.Renderer.Theme = render.ThemeLight
	original.Renderer.Debounce = 250 * time.Millisecond
	original.Viewport.MaxScale = 8
	original.Server.CORSOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Assistant.Provider != original.Assistant.Provider {
		t.Errorf("provider: got %q, want %q", loaded.Assistant.Provider, original.Assistant.Provider)
	}
	if loaded.Assistant.Model != original.Assistant.Model {
		t.Errorf("model: got %q, want %q", loaded.Assistant.Model, original.Assistant.Model)
	}
	if loaded.Renderer.Engine != EngineHTTP || loaded.Renderer.URL != original.Renderer.URL {
		t.Errorf("renderer: got %+v", loaded.Renderer)
	}
	if loaded.Renderer.Theme != render.ThemeLight {
		t.Errorf("theme: got %q", loaded.Renderer.Theme)
	}
	if loaded.Renderer.Debounce != 250*time.Millisecond {
		t.Errorf("debounce: got %v", loaded.Renderer.Debounce)
	}
	if loaded.Viewport.MaxScale != 8 {
		t.Errorf("viewport.max_scale: got %v", loaded.Viewport.MaxScale)
	}
	if len(loaded.Server.CORSOrigins) != 2 {
		t.Errorf("cors_origins: got %v", loaded.Server.CORSOrigins)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Assistant.Provider != ProviderDeepSeek {
		t.Errorf("expected default provider, got %q", cfg.Assistant.Provider)
	}
}

func TestLoadProviderWithoutModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")
	if err := os.WriteFile(path, []byte("assistant:\n  provider: openrouter\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Assistant.Model != "deepseek/deepseek-chat" {
		t.Errorf("expected the openrouter stock model, got %q", cfg.Assistant.Model)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("MSTUDIO_RENDERER__THEME", "light")
	t.Setenv("MSTUDIO_RENDERER__DEBOUNCE", "1s")
	t.Setenv("MSTUDIO_SERVER__PORT", "9090")
	t.Setenv("MSTUDIO_SERVER__CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("MSTUDIO_LOG_LEVEL", "debug")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Renderer.Theme != render.ThemeLight {
		t.Errorf("env override failed: got theme %q", loaded.Renderer.Theme)
	}
	if loaded.Renderer.Debounce != time.Second {
		t.Errorf("env override failed: got debounce %v", loaded.Renderer.Debounce)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("env override failed: got port %d", loaded.Server.Port)
	}
	if len(loaded.Server.CORSOrigins) != 2 || loaded.Server.CORSOrigins[1] != "http://b.test" {
		t.Errorf("env override failed: got origins %v", loaded.Server.CORSOrigins)
	}
	if loaded.SlogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", loaded.SlogLevel())
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("MSTUDIO_ASSISTANT__PROVIDER=ollama\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// godotenv sets the variable for the process; make sure it is removed.
	t.Setenv("MSTUDIO_ASSISTANT__PROVIDER", "")
	os.Unsetenv("MSTUDIO_ASSISTANT__PROVIDER")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Assistant.Provider != ProviderOllama {
		t.Errorf("expected provider from .env, got %q", cfg.Assistant.Provider)
	}
}

func TestValidateValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Assistant.Provider = "" }},
		{"invalid provider", func(c *Config) { c.Assistant.Provider = "invalid" }},
		{"empty model", func(c *Config) { c.Assistant.Model = "" }},
		{"remote without url", func(c *Config) { c.Assistant.Provider = ProviderRemote }},
		{"temperature", func(c *Config) { c.Assistant.Temperature = 3 }},
		{"invalid engine", func(c *Config) { c.Renderer.Engine = "wasm" }},
		{"http without url", func(c *Config) { c.Renderer.Engine = EngineHTTP }},
		{"invalid theme", func(c *Config) { c.Renderer.Theme = "sepia" }},
		{"negative debounce", func(c *Config) { c.Renderer.Debounce = -time.Second }},
		{"zoom limits", func(c *Config) { c.Viewport.MaxScale = 0.1 }},
		{"zero step", func(c *Config) { c.Viewport.Step = 0 }},
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"cache path", func(c *Config) { c.Cache.Path = "" }},
		{"log level", func(c *Config) { c.LogLevel = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRenderOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Renderer.Theme = render.ThemeLight
	opts := cfg.RenderOptions()
	want := render.DefaultOptions().WithTheme(render.ThemeLight)
	if opts != want {
		t.Errorf("RenderOptions() = %+v, want %+v", opts, want)
	}
}

func TestLLMSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Assistant.APIKey = "sk"
	s := cfg.LLMSettings()
	if s.Provider != "deepseek" || s.Model != "deepseek-chat" || s.APIKey != "sk" {
		t.Errorf("unexpected settings: %+v", s)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderDeepSeek, "DEEPSEEK_API_KEY"},
		{ProviderAnthropic, "ANTHROPIC_API_KEY"},
		{ProviderGoogle, "GOOGLE_API_KEY"},
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderOllama, ""},
		{ProviderRemote, ""},
	}
	for _, tt := range tests {
		got := APIKeyEnvVar(tt.provider)
		if got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestValidatePort(t *testing.T) {
	for _, s := range []string{"abc", "0", "65536"} {
		if validatePort(s) == nil {
			t.Errorf("validatePort(%q) should fail", s)
		}
	}
	if err := validatePort("8080"); err != nil {
		t.Errorf("validatePort(8080): %v", err)
	}
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ziadkadry99/mermaid-studio/internal/config"
	"github.com/ziadkadry99/mermaid-studio/internal/conversation"
	"github.com/ziadkadry99/mermaid-studio/internal/db"
	"github.com/ziadkadry99/mermaid-studio/internal/llm"
	"github.com/ziadkadry99/mermaid-studio/internal/render"
	"github.com/ziadkadry99/mermaid-studio/internal/workspace"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `mstudio init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// createEngineFromConfig creates the render engine the renderer section
// selects, without caching.
func createEngineFromConfig(cfg *config.Config) (render.Engine, error) {
	switch cfg.Renderer.Engine {
	case config.EngineCLI:
		e := render.NewCLIEngine(cfg.Renderer.Binary)
		e.PuppeteerConfig = cfg.Renderer.PuppeteerConfig
		return e, nil
	case config.EngineHTTP:
		return render.NewHTTPEngine(cfg.Renderer.URL, cfg.Renderer.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported renderer engine: %s", cfg.Renderer.Engine)
	}
}

// openCache opens the render cache when enabled and drops entries older
// than cache.max_age. Both results are nil when caching is off.
func openCache(cfg *config.Config, logger *slog.Logger) (*db.DB, *render.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil, nil
	}
	database, err := db.Open(cfg.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening render cache: %w", err)
	}
	cache := render.NewCache(database)
	if cfg.Cache.MaxAge > 0 {
		n, err := cache.Purge(context.Background(), time.Now().Add(-cfg.Cache.MaxAge))
		if err != nil {
			logger.Warn("purging render cache", "error", err)
		} else if n > 0 {
			logger.Info("purged stale render cache entries", "count", n)
		}
	}
	return database, cache, nil
}

// createAssistantFromConfig creates the assistant the assistant section
// selects: an LLM provider, or a remote generate-diagram backend.
func createAssistantFromConfig(cfg *config.Config, logger *slog.Logger) (conversation.Assistant, error) {
	a := cfg.Assistant
	if a.Provider == config.ProviderRemote {
		return conversation.NewRemoteAssistant(a.BaseURL, a.Timeout), nil
	}

	provider, err := llm.NewProvider(cfg.LLMSettings())
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	provider = llm.NewRateLimitedProvider(provider, a.RateLimitRPM)

	return conversation.NewLLMAssistant(provider,
		conversation.WithModel(a.Model),
		conversation.WithTemperature(a.Temperature),
		conversation.WithMaxTokens(a.MaxTokens),
		conversation.WithLogger(logger),
	), nil
}

// stack is everything a long-running command builds from config.
type stack struct {
	engine    render.Engine
	cache     *render.Cache
	assistant conversation.Assistant
	database  *db.DB
}

func (s *stack) Close() {
	if s.database != nil {
		s.database.Close()
	}
}

// buildRenderStack wires the engine and render cache from cfg. Commands
// that never talk to an assistant stop here.
func buildRenderStack(cfg *config.Config, logger *slog.Logger) (*stack, error) {
	engine, err := createEngineFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	s := &stack{engine: engine}

	s.database, s.cache, err = openCache(cfg, logger)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.engine = render.NewCachedEngine(engine, s.cache, logger)
	}
	return s, nil
}

// buildStack wires engine, cache and assistant from cfg.
func buildStack(cfg *config.Config, logger *slog.Logger) (*stack, error) {
	s, err := buildRenderStack(cfg, logger)
	if err != nil {
		return nil, err
	}
	s.assistant, err = createAssistantFromConfig(cfg, logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// renderOptions applies a --theme override to the configured options.
func renderOptions(cfg *config.Config, theme string) (render.Options, error) {
	opts := cfg.RenderOptions()
	if theme == "" {
		return opts, nil
	}
	t := render.Theme(theme)
	if !t.Valid() {
		return opts, fmt.Errorf("invalid theme %q (want dark or light)", theme)
	}
	return opts.WithTheme(t), nil
}

// newWorkspace creates a workspace from cfg on top of s.
func newWorkspace(cfg *config.Config, s *stack, logger *slog.Logger) *workspace.Workspace {
	return workspace.New(s.engine, s.assistant, workspace.Config{
		Debounce:        cfg.Renderer.Debounce,
		RenderTimeout:   cfg.Renderer.Timeout,
		GenerateTimeout: cfg.Assistant.Timeout,
		Options:         cfg.RenderOptions(),
		Viewport:        cfg.Viewport,
		Logger:          logger,
	})
}

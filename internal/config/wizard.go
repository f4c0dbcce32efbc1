package config

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/manifoldco/promptui"

	"github.com/ziadkadry99/mermaid-studio/internal/render"
)

// DefaultKrokiURL is offered when no local mmdc binary is installed.
const DefaultKrokiURL = "https://kroki.io"

// detectRenderer reports which engine works out of the box on this machine.
func detectRenderer() (EngineType, string) {
	if path, err := exec.LookPath(render.DefaultCLIBinary); err == nil {
		return EngineCLI, path
	}
	return EngineHTTP, ""
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to mstudio! Let's configure your workspace.")
	fmt.Println()

	cfg := DefaultConfig()

	engine, binary := detectRenderer()
	if engine == EngineCLI {
		fmt.Printf("Found Mermaid CLI at %s\n\n", binary)
	} else {
		fmt.Printf("%s not found on PATH; diagrams can be rendered by a Kroki server instead.\n\n", render.DefaultCLIBinary)
	}

	// 1. Provider selection.
	providers := []string{
		string(ProviderDeepSeek), string(ProviderOpenAI), string(ProviderOpenRouter),
		string(ProviderMiniMax), string(ProviderAnthropic), string(ProviderGoogle),
		string(ProviderOllama), string(ProviderRemote),
	}
	providerPrompt := promptui.Select{
		Label: "Select assistant provider",
		Items: providers,
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Assistant.Provider = ProviderType(providerStr)

	// 2. Model, or backend URL for the remote provider.
	if cfg.Assistant.Provider == ProviderRemote {
		urlPrompt := promptui.Prompt{Label: "Backend URL", Default: "http://localhost:8000"}
		if cfg.Assistant.BaseURL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("backend url: %w", err)
		}
		cfg.Assistant.Model = DefaultModel(ProviderRemote)
	} else {
		modelPrompt := promptui.Prompt{Label: "Model", Default: DefaultModel(cfg.Assistant.Provider)}
		if cfg.Assistant.Model, err = modelPrompt.Run(); err != nil {
			return nil, fmt.Errorf("model: %w", err)
		}
	}

	// 3. Renderer.
	enginePrompt := promptui.Select{
		Label:     "Select renderer",
		Items:     []string{"cli  - local mmdc", "http - Kroki server"},
		CursorPos: engineIndex(engine),
	}
	idx, _, err := enginePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("renderer selection: %w", err)
	}
	cfg.Renderer.Engine = []EngineType{EngineCLI, EngineHTTP}[idx]
	if cfg.Renderer.Engine == EngineHTTP {
		urlPrompt := promptui.Prompt{Label: "Kroki URL", Default: DefaultKrokiURL}
		if cfg.Renderer.URL, err = urlPrompt.Run(); err != nil {
			return nil, fmt.Errorf("kroki url: %w", err)
		}
	} else if binary != "" {
		cfg.Renderer.Binary = binary
	}

	// 4. Theme.
	themePrompt := promptui.Select{
		Label: "Select theme",
		Items: []string{string(render.ThemeDark), string(render.ThemeLight)},
	}
	_, themeStr, err := themePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("theme selection: %w", err)
	}
	cfg.Renderer.Theme = render.Theme(themeStr)

	// 5. Port.
	portPrompt := promptui.Prompt{
		Label:    "Server port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API key.
	if envVar := APIKeyEnvVar(cfg.Assistant.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment or .env before running mstudio serve.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func engineIndex(e EngineType) int {
	if e == EngineHTTP {
		return 1
	}
	return 0
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

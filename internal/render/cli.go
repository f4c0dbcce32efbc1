package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultCLIBinary is the mermaid-cli executable, assumed to be in PATH.
const DefaultCLIBinary = "mmdc"

// CLIEngine renders by shelling out to mermaid-cli. Each call works in its
// own temp directory, so concurrent renders never share files.
type CLIEngine struct {
	Binary          string
	PuppeteerConfig string
	ExtraArgs       []string
}

// NewCLIEngine returns a CLIEngine using binary, or mmdc when empty.
func NewCLIEngine(binary string) *CLIEngine {
	if binary == "" {
		binary = DefaultCLIBinary
	}
	return &CLIEngine{Binary: binary}
}

func (e *CLIEngine) Name() string { return "cli" }

func (e *CLIEngine) Render(ctx context.Context, req Request) (Markup, error) {
	tmpDir, err := os.MkdirTemp("", "mstudio-render-")
	if err != nil {
		return "", fmt.Errorf("creating render dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, "input.mmd"), []byte(req.Source), 0o644); err != nil {
		return "", fmt.Errorf("writing diagram source: %w", err)
	}

	cfg, err := json.Marshal(req.Options.MermaidConfig())
	if err != nil {
		return "", fmt.Errorf("encoding mermaid config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), cfg, 0o644); err != nil {
		return "", fmt.Errorf("writing mermaid config: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.Binary, e.args(req)...)
	cmd.Dir = tmpDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", parseSyntaxError(stderr.String())
		}
		return "", fmt.Errorf("running %s: %w", e.Binary, err)
	}

	svg, err := os.ReadFile(filepath.Join(tmpDir, "output.svg"))
	if err != nil {
		return "", fmt.Errorf("SVG not generated: %w", err)
	}
	return Markup(strings.TrimSpace(string(svg))), nil
}

func (e *CLIEngine) args(req Request) []string {
	args := []string{
		"-i", "input.mmd",
		"-o", "output.svg",
		"-c", "config.json",
		"-t", req.Options.Theme.MermaidTheme(),
		"-q",
	}
	if req.Options.Background != "" {
		args = append(args, "-b", req.Options.Background)
	}
	if req.ID != "" {
		args = append(args, "-I", req.ID)
	}
	if e.PuppeteerConfig != "" {
		args = append(args, "-p", e.PuppeteerConfig)
	}
	return append(args, e.ExtraArgs...)
}

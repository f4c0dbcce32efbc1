// Package export turns the workspace state into downloadable artifacts.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/mermaid-studio/internal/render"
)

const (
	// SVGFilename is the name offered for diagram downloads.
	SVGFilename = "mermaid-diagram.svg"
	// SVGContentType is the MIME type of diagram downloads.
	SVGContentType = "image/svg+xml"
)

// ErrNoMarkup is returned when there is no rendered diagram to export.
var ErrNoMarkup = errors.New("no rendered diagram to export")

// SVG returns markup as a standalone SVG document. The markup itself is
// passed through untouched; only an XML declaration is added when missing.
func SVG(markup render.Markup) ([]byte, error) {
	s := strings.TrimSpace(string(markup))
	if s == "" {
		return nil, ErrNoMarkup
	}
	if !strings.HasPrefix(s, "<?xml") {
		s = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" + s
	}
	return []byte(s + "\n"), nil
}

// WriteSVG writes markup to path, creating parent directories.
func WriteSVG(path string, markup render.Markup) error {
	data, err := SVG(markup)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// SVGPath maps a diagram source path to its SVG output path, optionally
// under outDir instead of next to the source.
func SVGPath(src, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".svg"
	if outDir == "" {
		return filepath.Join(filepath.Dir(src), base)
	}
	return filepath.Join(outDir, base)
}

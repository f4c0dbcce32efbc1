package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPEngine renders through a Kroki-compatible HTTP service: the source is
// POSTed as plain text to {BaseURL}/mermaid/svg and the SVG comes back.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEngine creates an HTTPEngine for baseURL.
func NewHTTPEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Render(ctx context.Context, req Request) (Markup, error) {
	url := fmt.Sprintf("%s/mermaid/svg", e.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(req.Source)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/plain")
	httpReq.Header.Set("Accept", "image/svg+xml")
	httpReq.Header.Set("Kroki-Diagram-Options-Theme", req.Options.Theme.MermaidTheme())
	if req.ID != "" {
		httpReq.Header.Set("X-Render-Id", req.ID)
	}

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("render request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read render response: %w", err)
	}

	switch {
	case httpResp.StatusCode == http.StatusBadRequest:
		return "", parseSyntaxError(string(body))
	case httpResp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("render service returned status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	return Markup(strings.TrimSpace(string(body))), nil
}

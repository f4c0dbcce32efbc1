package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteAssistant calls a generation backend over HTTP
// (POST {base}/api/generate-diagram).
type RemoteAssistant struct {
	baseURL string
	client  *http.Client
}

// NewRemoteAssistant creates a client for the backend at baseURL.
func NewRemoteAssistant(baseURL string, timeout time.Duration) *RemoteAssistant {
	return &RemoteAssistant{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *RemoteAssistant) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	body, err := json.Marshal(GenerateDiagramRequest{Prompt: req.Prompt, History: ToWire(req.History)})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate-diagram", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to generate diagram: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generate response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		var e ErrorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Detail != "" {
			return "", fmt.Errorf("failed to generate diagram: %s", e.Detail)
		}
		return "", fmt.Errorf("failed to generate diagram: HTTP error! status: %d", httpResp.StatusCode)
	}

	var out GenerateDiagramResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal generate response: %w", err)
	}
	if !out.Success || out.Content == "" {
		msg := out.Message
		if msg == "" {
			msg = "backend reported no content"
		}
		return "", fmt.Errorf("failed to generate diagram: %s", msg)
	}
	return out.Content, nil
}

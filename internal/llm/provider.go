// Package llm provides chat completion providers for diagram generation.
package llm

import "context"

// Provider is a chat completion backend.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

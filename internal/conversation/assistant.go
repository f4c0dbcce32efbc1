package conversation

import (
	"context"
	"errors"
)

// GenerateRequest is what an Assistant receives for one user turn.
// History holds the messages that preceded Prompt, oldest first.
type GenerateRequest struct {
	Prompt  string
	History []Message
}

// Assistant produces a reply for a user turn. The reply is free text that
// may contain fenced diagram blocks.
type Assistant interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// AssistantFunc adapts a function to the Assistant interface.
type AssistantFunc func(ctx context.Context, req GenerateRequest) (string, error)

func (f AssistantFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}

// ErrEmptyReply is returned when an assistant answers with no content.
var ErrEmptyReply = errors.New("assistant returned an empty reply")

package conversation

import "fmt"

// WireMessage is the role/content pair exchanged with a generation backend.
type WireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateDiagramRequest is the body of POST /api/generate-diagram.
type GenerateDiagramRequest struct {
	Prompt  string        `json:"prompt"`
	History []WireMessage `json:"history"`
}

// GenerateDiagramResponse is the success body of POST /api/generate-diagram.
type GenerateDiagramResponse struct {
	Content string `json:"content"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the failure body of POST /api/generate-diagram.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ToWire converts messages to backend form.
func ToWire(msgs []Message) []WireMessage {
	out := make([]WireMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, WireMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

// FromWire converts a backend request into a GenerateRequest. Browsers
// running the older client include the new prompt as the final history
// entry; that duplicate is dropped.
func FromWire(req GenerateDiagramRequest) (GenerateRequest, error) {
	out := GenerateRequest{Prompt: req.Prompt}
	for i, w := range req.History {
		role, err := ParseRole(w.Role)
		if err != nil {
			return GenerateRequest{}, fmt.Errorf("history[%d]: %w", i, err)
		}
		out.History = append(out.History, Message{Role: role, Content: w.Content})
	}
	if n := len(out.History); n > 0 {
		last := out.History[n-1]
		if last.Role == RoleUser && last.Content == req.Prompt {
			out.History = out.History[:n-1]
		}
	}
	return out, nil
}

// Package conversation owns the chat history and runs one assistant
// generation per user turn.
package conversation

import (
	"fmt"
	"sync"
	"time"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole accepts "user", "assistant" and the legacy alias "model".
func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "assistant", "model":
		return RoleAssistant, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Message is one entry in the conversation. It is never modified after
// it has been appended.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// History is an append-only, ordered message log safe for concurrent use.
type History struct {
	mu   sync.RWMutex
	msgs []Message
}

// Append adds m and returns its index.
func (h *History) Append(m Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, m)
	return len(h.msgs) - 1
}

// Messages returns a copy of all messages in order.
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Message(nil), h.msgs...)
}

// At returns the message at index i.
func (h *History) At(i int) (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= len(h.msgs) {
		return Message{}, false
	}
	return h.msgs[i], true
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.msgs)
}

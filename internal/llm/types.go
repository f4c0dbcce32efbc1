package llm

// Role is the sender of a chat message as the providers understand it.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message sent to a provider.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest contains the parameters for a chat completion.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse contains the result of a chat completion.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Conversation builds a message list starting with an optional system
// instruction followed by msgs.
func Conversation(system string, msgs ...Message) []Message {
	out := make([]Message, 0, len(msgs)+1)
	if system != "" {
		out = append(out, Message{Role: RoleSystem, Content: system})
	}
	return append(out, msgs...)
}

const defaultMaxTokens = 4096

func maxTokensOr(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}

package llm

import (
	"context"
)

// Chat message roles, provider-neutral.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of provider-neutral chat history.
type ChatMessage struct {
	Role    string
	Content string
}

// Client is a chat-completion capability. The system prompt travels
// separately because providers disagree on where it lives.
type Client interface {
	Chat(ctx context.Context, system string, messages []ChatMessage) (string, error)
}

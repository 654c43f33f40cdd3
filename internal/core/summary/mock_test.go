package summary

import (
	"context"

	"github.com/crucible-labs/crucible/internal/llm"
)

type MockClient struct {
	Response string
	Err      error
	Prompts  []string
}

func (m *MockClient) Chat(_ context.Context, system string, messages []llm.ChatMessage) (string, error) {
	if len(messages) > 0 {
		m.Prompts = append(m.Prompts, messages[len(messages)-1].Content)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

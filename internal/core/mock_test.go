package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/crucible-labs/crucible/internal/chat"
	"github.com/crucible-labs/crucible/internal/core/model"
	"github.com/crucible-labs/crucible/internal/llm"
)

// scriptedDriver returns a fixed two-turn transcript per day and records
// each seed message it was given.
type scriptedDriver struct {
	mu        sync.Mutex
	seeds     []string
	names     [][]string
	day       int
	failOnDay int // 0 means never fail
}

func (d *scriptedDriver) Run(_ context.Context, participants []chat.Participant, _ chat.SelectionPolicy, _ int, seed string) ([]model.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.day++
	d.seeds = append(d.seeds, seed)
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.Name)
	}
	d.names = append(d.names, names)
	if d.failOnDay > 0 && d.day == d.failOnDay {
		return nil, &chat.DriverError{Participant: participants[0].Name, Round: 1, Cause: fmt.Errorf("injected failure")}
	}
	return []model.Message{
		{Sender: chat.SeedSender, Content: seed},
		{Sender: participants[0].Name, Content: fmt.Sprintf("talk on day %d", d.day)},
	}, nil
}

// countingClient backs the summarizer with one deterministic summary per
// call.
type countingClient struct {
	mu    sync.Mutex
	calls int
}

func (c *countingClient) Chat(context.Context, string, []llm.ChatMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return fmt.Sprintf("summary-%d", c.calls), nil
}

func staticFactory(client llm.Client) ClientFactory {
	return func(context.Context, string) (llm.Client, error) {
		return client, nil
	}
}

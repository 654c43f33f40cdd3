package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crucible-labs/crucible/internal/chat"
	"github.com/crucible-labs/crucible/internal/config"
	"github.com/crucible-labs/crucible/internal/core/model"
	"github.com/crucible-labs/crucible/internal/driver"
	"github.com/crucible-labs/crucible/internal/llm"
)

// recordingClient serves both participant turns and summarizer calls:
// summarizer calls carry an empty system prompt, participant turns the
// rendered role prompt.
type recordingClient struct {
	mu        sync.Mutex
	systems   []string
	summaries int
	turns     int
}

func (c *recordingClient) Chat(_ context.Context, system string, _ []llm.ChatMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systems = append(c.systems, system)
	if system == "" {
		c.summaries++
		return fmt.Sprintf("Summary of day %d.", c.summaries), nil
	}
	c.turns++
	return fmt.Sprintf("Utterance %d.", c.turns), nil
}

// TestFullPipeline runs experiment creation through conversation persistence
// over the real group-chat driver, with only the provider call stubbed.
func TestFullPipeline(t *testing.T) {
	ctx := context.Background()
	client := &recordingClient{}

	store := driver.NewMemStore()
	groupChat := chat.NewGroupChat(time.Second, nil)
	runner := NewRunner(groupChat, staticFactory(client), config.SimulationConfig{
		Days:            2,
		RoundsPerDay:    2,
		SelectionPolicy: "round_robin",
		MaxVariants:     512,
		Parallelism:     2,
	}, config.SummaryConfig{
		Preamble:    "You observed the following exchange.",
		Instruction: "Summarize it briefly.",
	}, nil)
	lab := NewLab(store, runner, nil)

	exp := createGuardExperiment(t, lab)

	conversations, err := lab.RunConversations(ctx, exp.ID, "alice", RunRequest{
		Counts: []model.RoleCount{{Role: "guard", Count: 2}},
	})
	require.NoError(t, err)
	require.Len(t, conversations, 1)

	conv := conversations[0]
	assert.Equal(t, []int{1, 2}, conv.DayNumbers())
	for _, day := range conv.DayNumbers() {
		messages := conv.Days[day]
		require.Len(t, messages, 2)
		assert.Equal(t, "Guard_1", messages[0].Sender)
		assert.Equal(t, "Guard_2", messages[1].Sender)
	}

	// Role prompts reach the provider with placeholder values rendered for
	// the combination.
	var rendered bool
	for _, system := range client.systems {
		if strings.Contains(system, "You are one of 2 guards on shift.") {
			rendered = true
		}
		assert.NotContains(t, system, "<GUARD_NUM>")
	}
	assert.True(t, rendered)

	// Two days, two turns each, plus one summary per day.
	assert.Equal(t, 4, client.turns)
	assert.Equal(t, 2, client.summaries)

	stored, err := store.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ToDocument(), stored.ToDocument())

	fetched, err := store.Experiment(ctx, exp.ID)
	require.NoError(t, err)
	require.Len(t, fetched.ConversationIDs, 1)
	assert.Equal(t, conv.ID, fetched.ConversationIDs[0])
}

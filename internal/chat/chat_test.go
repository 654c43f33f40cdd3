package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crucible-labs/crucible/internal/llm"
)

// scriptedClient answers with its participant name and a turn counter, or
// fails from a given call onward.
type scriptedClient struct {
	name      string
	calls     int
	failAfter int // fail on call N (1-based); 0 means never
	failWith  error
}

func (c *scriptedClient) Chat(ctx context.Context, system string, messages []llm.ChatMessage) (string, error) {
	c.calls++
	if c.failAfter > 0 && c.calls >= c.failAfter {
		return "", c.failWith
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s says %d", c.name, c.calls), nil
}

func TestGroupChat_RoundRobin(t *testing.T) {
	guard := &scriptedClient{name: "guard"}
	prisoner := &scriptedClient{name: "prisoner"}
	participants := []Participant{
		{Name: "Guard_1", SystemPrompt: "be firm", Client: guard},
		{Name: "Prisoner_1", SystemPrompt: "endure", Client: prisoner},
	}

	g := NewGroupChat(0, nil)
	transcript, err := g.Run(context.Background(), participants, SelectRoundRobin, 4, "Day begins.")
	require.NoError(t, err)
	require.Len(t, transcript, 5)

	assert.Equal(t, SeedSender, transcript[0].Sender)
	assert.Equal(t, "Day begins.", transcript[0].Content)
	assert.Equal(t, []string{"Guard_1", "Prisoner_1", "Guard_1", "Prisoner_1"}, []string{
		transcript[1].Sender, transcript[2].Sender, transcript[3].Sender, transcript[4].Sender,
	})
	assert.Equal(t, "guard says 1", transcript[1].Content)
	assert.Equal(t, "prisoner says 2", transcript[4].Content)
}

func TestGroupChat_Random(t *testing.T) {
	client := &scriptedClient{name: "agent"}
	participants := []Participant{
		{Name: "Guard_1", Client: client},
		{Name: "Prisoner_1", Client: client},
	}

	g := NewGroupChat(0, nil)
	transcript, err := g.Run(context.Background(), participants, SelectRandom, 6, "go")
	require.NoError(t, err)
	require.Len(t, transcript, 7)
	for _, m := range transcript[1:] {
		assert.Contains(t, []string{"Guard_1", "Prisoner_1"}, m.Sender)
	}
}

// One GroupChat serves every combination of a run, so concurrent Run calls
// with random selection must not race on the shared rng.
func TestGroupChat_ConcurrentRandomRuns(t *testing.T) {
	participants := []Participant{
		{Name: "Guard_1", Client: quietClient{}},
		{Name: "Prisoner_1", Client: quietClient{}},
	}

	g := NewGroupChat(0, nil)
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			transcript, err := g.Run(context.Background(), participants, SelectRandom, 10, "go")
			if err == nil && len(transcript) != 11 {
				err = fmt.Errorf("transcript has %d entries", len(transcript))
			}
			errs[i] = err
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

type quietClient struct{}

func (quietClient) Chat(context.Context, string, []llm.ChatMessage) (string, error) {
	return "Nothing to report.", nil
}

func TestGroupChat_DriverError(t *testing.T) {
	boom := errors.New("rate limited")
	failing := &scriptedClient{name: "guard", failAfter: 2, failWith: boom}
	participants := []Participant{{Name: "Guard_1", Client: failing}}

	g := NewGroupChat(0, nil)
	_, err := g.Run(context.Background(), participants, SelectRoundRobin, 3, "go")

	var derr *DriverError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 2, derr.Round)
	assert.Equal(t, "Guard_1", derr.Participant)
	assert.False(t, derr.Timeout)
	assert.ErrorIs(t, err, boom)
}

func TestGroupChat_TimeoutIsDistinguished(t *testing.T) {
	failing := &scriptedClient{name: "guard", failAfter: 1, failWith: context.DeadlineExceeded}
	participants := []Participant{{Name: "Guard_1", Client: failing}}

	g := NewGroupChat(0, nil)
	_, err := g.Run(context.Background(), participants, SelectRoundRobin, 1, "go")

	var derr *DriverError
	require.ErrorAs(t, err, &derr)
	assert.True(t, derr.Timeout)
}

func TestGroupChat_NoParticipants(t *testing.T) {
	g := NewGroupChat(0, nil)
	_, err := g.Run(context.Background(), nil, SelectRoundRobin, 1, "go")
	var derr *DriverError
	assert.ErrorAs(t, err, &derr)
}

func TestGroupChat_StripsSelfPrefix(t *testing.T) {
	client := &prefixingClient{}
	participants := []Participant{{Name: "Guard_1", Client: client}}

	g := NewGroupChat(0, nil)
	transcript, err := g.Run(context.Background(), participants, SelectRoundRobin, 1, "go")
	require.NoError(t, err)
	assert.Equal(t, "Quiet down.", transcript[1].Content)
}

type prefixingClient struct{}

func (c *prefixingClient) Chat(context.Context, string, []llm.ChatMessage) (string, error) {
	return "Guard_1: Quiet down.", nil
}

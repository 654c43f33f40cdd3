// Package chat drives one multi-turn dialogue among a set of participants.
package chat

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/internal/core/model"
	"github.com/crucible-labs/crucible/internal/llm"
)

// SelectionPolicy picks which participant speaks each round.
type SelectionPolicy string

const (
	SelectRoundRobin SelectionPolicy = "round_robin"
	SelectRandom     SelectionPolicy = "random"
)

// Participant is a prompt-configured agent taking part in a dialogue.
// Agents differ only in prompt content and identity, never in behavior.
type Participant struct {
	Name         string
	SystemPrompt string
	Client       llm.Client
}

// Driver runs a bounded multi-turn dialogue and returns the ordered
// transcript. The first transcript entry is always the seed framing
// message. May fail with a DriverError.
type Driver interface {
	Run(ctx context.Context, participants []Participant, policy SelectionPolicy, rounds int, seed string) ([]model.Message, error)
}

// DriverError is the distinguished failure kind for chat-driver errors:
// a provider call failed or timed out mid-dialogue. Retryable by the caller
// at combination granularity only.
type DriverError struct {
	Participant string
	Round       int
	Timeout     bool
	Cause       error
}

func (e *DriverError) Error() string {
	kind := "failed"
	if e.Timeout {
		kind = "timed out"
	}
	return fmt.Sprintf("chat driver %s at round %d (%s): %v", kind, e.Round, e.Participant, e.Cause)
}

func (e *DriverError) Unwrap() error { return e.Cause }

// SeedSender names the framing turn that opens every dialogue.
const SeedSender = "Researcher"

// GroupChat is the concrete driver: a sequential turn loop where the next
// speaker sees the full prior transcript, each turn bounded by a timeout.
// One GroupChat serves concurrent Run calls; rng is the only shared state
// and is guarded by mu.
type GroupChat struct {
	timeout time.Duration
	mu      sync.Mutex
	rng     *rand.Rand
	logger  *zap.Logger
}

func NewGroupChat(timeout time.Duration, logger *zap.Logger) *GroupChat {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupChat{
		timeout: timeout,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  logger.With(zap.String("component", "group_chat")),
	}
}

func (g *GroupChat) Run(ctx context.Context, participants []Participant, policy SelectionPolicy, rounds int, seed string) ([]model.Message, error) {
	if len(participants) == 0 {
		return nil, &DriverError{Round: 0, Cause: errors.New("no participants")}
	}

	transcript := []model.Message{{Sender: SeedSender, Content: seed}}
	for round := 1; round <= rounds; round++ {
		speaker := g.pick(policy, participants, round)
		reply, err := g.turn(ctx, speaker, transcript)
		if err != nil {
			derr := &DriverError{Participant: speaker.Name, Round: round, Cause: err}
			if errors.Is(err, context.DeadlineExceeded) {
				derr.Timeout = true
			}
			return nil, derr
		}
		transcript = append(transcript, model.Message{Sender: speaker.Name, Content: reply})
		g.logger.Debug("turn completed",
			zap.Int("round", round), zap.String("speaker", speaker.Name))
	}
	return transcript, nil
}

func (g *GroupChat) pick(policy SelectionPolicy, participants []Participant, round int) Participant {
	switch policy {
	case SelectRandom:
		g.mu.Lock()
		i := g.rng.Intn(len(participants))
		g.mu.Unlock()
		return participants[i]
	default: // round robin
		return participants[(round-1)%len(participants)]
	}
}

// turn asks one participant for its next message. The prior transcript is
// presented as a single user turn with sender-attributed lines, so every
// participant sees the same conversation regardless of who spoke.
func (g *GroupChat) turn(ctx context.Context, speaker Participant, transcript []model.Message) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var history strings.Builder
	for _, m := range transcript {
		fmt.Fprintf(&history, "%s: %s\n", m.Sender, m.Content)
	}
	messages := []llm.ChatMessage{
		{Role: llm.RoleUser, Content: history.String() + "\n" + speaker.Name + ":"},
	}
	reply, err := speaker.Client.Chat(ctx, speaker.SystemPrompt, messages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(reply), speaker.Name+":")), nil
}

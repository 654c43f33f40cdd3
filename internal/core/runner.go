package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crucible-labs/crucible/internal/chat"
	"github.com/crucible-labs/crucible/internal/config"
	"github.com/crucible-labs/crucible/internal/core/combo"
	"github.com/crucible-labs/crucible/internal/core/model"
	"github.com/crucible-labs/crucible/internal/core/summary"
	"github.com/crucible-labs/crucible/internal/llm"
)

// ClientFactory yields a chat client for a model name. One experiment can
// list several models; the factory hides provider wiring from the runner.
type ClientFactory func(ctx context.Context, model string) (llm.Client, error)

// Runner executes conversation rounds for an experiment. Days within a
// combination are strictly sequential because each day's seed depends on
// the previous day's summary; independent combinations may run in parallel
// with isolated accumulators.
type Runner struct {
	Driver  chat.Driver
	Clients ClientFactory
	Config  config.SimulationConfig
	Summary config.SummaryConfig
	logger  *zap.Logger
}

func NewRunner(driver chat.Driver, clients ClientFactory, cfg config.SimulationConfig, sum config.SummaryConfig, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Driver:  driver,
		Clients: clients,
		Config:  cfg,
		Summary: sum,
		logger:  logger.With(zap.String("component", "runner")),
	}
}

// RunRequest parameterizes one run of an experiment.
type RunRequest struct {
	Counts     []model.RoleCount
	Exhaustive bool
	Days       int
	Rounds     int
	Policy     chat.SelectionPolicy
}

func (r *Runner) defaults(req RunRequest) RunRequest {
	if req.Days <= 0 {
		req.Days = r.Config.Days
	}
	if req.Rounds <= 0 {
		req.Rounds = r.Config.RoundsPerDay
	}
	if req.Policy == "" {
		req.Policy = chat.SelectionPolicy(r.Config.SelectionPolicy)
	}
	return req
}

// RunAll enumerates the population combinations for the request and runs
// each. Completed conversations are returned even when other combinations
// fail; failures are joined into the returned error so the caller can
// decide to retry whole combinations.
func (r *Runner) RunAll(ctx context.Context, exp *model.Experiment, creator string, req RunRequest) ([]*model.Conversation, error) {
	req = r.defaults(req)
	variants, err := combo.Generate(req.Counts, req.Exhaustive, r.Config.MaxVariants)
	if err != nil {
		return nil, err
	}
	r.logger.Info("running experiment",
		zap.String("experiment", exp.ID.Hex()),
		zap.Int("combinations", len(variants)),
		zap.Int("days", req.Days))

	conversations := make([]*model.Conversation, len(variants))
	failures := make([]error, len(variants))

	parallelism := r.Config.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	var group errgroup.Group
	group.SetLimit(parallelism)
	for i, variant := range variants {
		group.Go(func() error {
			conv, err := r.RunCombination(ctx, exp, creator, variant, req)
			if err != nil {
				failures[i] = fmt.Errorf("combination %s: %w", describeVariant(variant), err)
				return nil
			}
			conversations[i] = conv
			return nil
		})
	}
	group.Wait()

	completed := conversations[:0:0]
	for _, conv := range conversations {
		if conv != nil {
			completed = append(completed, conv)
		}
	}
	return completed, errors.Join(failures...)
}

// RunCombination runs the full day loop for one population combination.
// On a driver failure the partially built conversation is discarded: days
// already run are never persisted, because the summary chain is only
// meaningful unbroken.
func (r *Runner) RunCombination(ctx context.Context, exp *model.Experiment, creator string, variant []model.RoleCount, req RunRequest) (*model.Conversation, error) {
	req = r.defaults(req)
	values, err := combo.ComposeValues(exp, variant)
	if err != nil {
		return nil, err
	}

	modelName := ""
	if len(exp.LLMs) > 0 {
		modelName = exp.LLMs[0].Model
	}
	client, err := r.Clients(ctx, modelName)
	if err != nil {
		return nil, &chat.DriverError{Cause: err}
	}

	participants, err := r.composeParticipants(exp, variant, values, client)
	if err != nil {
		return nil, err
	}
	summarizer := summary.NewSummarizer(client, exp.SummarizerSections, r.Summary, r.logger)

	conversation := model.NewConversation(creator)
	seed := exp.StartingMessage
	for day := 1; day <= req.Days; day++ {
		transcript, err := r.Driver.Run(ctx, participants, req.Policy, req.Rounds, seed)
		if err != nil {
			return nil, err
		}
		if len(transcript) == 0 {
			return nil, &chat.DriverError{Round: day, Cause: errors.New("driver returned an empty transcript")}
		}

		// Drop the framing turn before summarizing and persisting.
		raw := transcript[1:]
		daySummary, err := summarizer.Summarize(ctx, values, raw, day)
		if err != nil {
			return nil, &chat.DriverError{Participant: "summarizer", Round: day, Cause: err}
		}

		conversation.AddDay(day, raw)
		seed = seed + "\n" + daySummary
		r.logger.Debug("day completed",
			zap.Int("day", day), zap.Int("turns", len(raw)))
	}
	return conversation, nil
}

// composeParticipants resolves the concrete agent set for one combination:
// count instances per role, each carrying its rendered prompt.
func (r *Runner) composeParticipants(exp *model.Experiment, variant []model.RoleCount, values map[string]string, client llm.Client) ([]chat.Participant, error) {
	var participants []chat.Participant
	for _, pair := range variant {
		role := exp.Role(pair.Role)
		if role == nil {
			return nil, model.NewValidationError("combination names unknown role %q", pair.Role)
		}
		prompt, err := role.ComposePrompt(exp.SharedSections, values)
		if err != nil {
			return nil, err
		}
		for i := 1; i <= pair.Count; i++ {
			participants = append(participants, chat.Participant{
				Name:         fmt.Sprintf("%s_%d", capitalize(role.Name), i),
				SystemPrompt: prompt,
				Client:       client,
			})
		}
	}
	return participants, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func describeVariant(variant []model.RoleCount) string {
	parts := make([]string, 0, len(variant))
	for _, pair := range variant {
		parts = append(parts, fmt.Sprintf("%s=%d", pair.Role, pair.Count))
	}
	return strings.Join(parts, ",")
}

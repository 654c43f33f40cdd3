package core

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/internal/core/model"
	"github.com/crucible-labs/crucible/internal/driver"
)

// Lab is the service facade the HTTP surface passes through to: experiment
// lifecycle, conversation browsing and run orchestration. Mutating
// operations check the actor against the resource creator before touching
// the store.
type Lab struct {
	Store  driver.Store
	Runner *Runner
	logger *zap.Logger
}

func NewLab(store driver.Store, runner *Runner, logger *zap.Logger) *Lab {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lab{
		Store:  store,
		Runner: runner,
		logger: logger.With(zap.String("component", "lab")),
	}
}

func (l *Lab) CreateExperiment(ctx context.Context, params model.ExperimentParams) (*model.Experiment, error) {
	exp, err := model.NewExperiment(params)
	if err != nil {
		return nil, err
	}
	if err := l.Store.InsertExperiment(ctx, exp); err != nil {
		return nil, err
	}
	l.logger.Info("experiment created",
		zap.String("id", exp.ID.Hex()), zap.String("creator", exp.Creator))
	return exp, nil
}

func (l *Lab) Experiments(ctx context.Context) ([]*model.Experiment, error) {
	return l.Store.Experiments(ctx)
}

func (l *Lab) Experiment(ctx context.Context, id bson.ObjectID) (*model.Experiment, error) {
	return l.Store.Experiment(ctx, id)
}

// UpdateExperiment mutates the note and/or favourite flag. Creator-only;
// nil leaves a field unchanged. Structural fields are immutable, so this is
// the whole mutation surface besides conversation bookkeeping.
func (l *Lab) UpdateExperiment(ctx context.Context, id bson.ObjectID, actor string, note *string, favourite *bool) (*model.Experiment, error) {
	exp, err := l.Store.Experiment(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp.Creator != actor {
		return nil, &model.PermissionError{Action: "update experiment", Actor: actor, Creator: exp.Creator}
	}
	if note != nil {
		exp.SetNote(*note)
	}
	if favourite != nil {
		exp.SetFavourite(*favourite)
	}
	if err := l.Store.UpdateExperiment(ctx, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

func (l *Lab) DeleteExperiment(ctx context.Context, id bson.ObjectID, actor string) error {
	exp, err := l.Store.Experiment(ctx, id)
	if err != nil {
		return err
	}
	if exp.Creator != actor {
		return &model.PermissionError{Action: "delete experiment", Actor: actor, Creator: exp.Creator}
	}
	if err := l.Store.DeleteExperiment(ctx, id); err != nil {
		return err
	}
	l.logger.Info("experiment deleted", zap.String("id", id.Hex()))
	return nil
}

// DuplicateExperiment builds a fresh experiment from an existing one's
// structure, optionally replacing the starting message and note. The copy
// belongs to the actor and starts with no conversations: structural change
// means constructing a new aggregate, never editing one in place.
func (l *Lab) DuplicateExperiment(ctx context.Context, id bson.ObjectID, actor string, startingMessage, note *string) (*model.Experiment, error) {
	exp, err := l.Store.Experiment(ctx, id)
	if err != nil {
		return nil, err
	}
	params := model.ExperimentParams{
		StartingMessage:    exp.StartingMessage,
		Note:               exp.Note,
		Creator:            actor,
		LLMs:               exp.LLMs,
		Roles:              exp.Roles,
		SharedSections:     exp.SharedSections,
		SummarizerSections: exp.SummarizerSections,
		Placeholders:       exp.Placeholders,
	}
	if startingMessage != nil {
		params.StartingMessage = *startingMessage
	}
	if note != nil {
		params.Note = *note
	}
	return l.CreateExperiment(ctx, params)
}

// RunConversations runs the requested combinations and persists each
// completed conversation, appending its reference to the experiment. A
// combination that fails mid-run persists nothing; completed combinations
// are kept, and the joined failure is returned alongside them so the caller
// can retry whole combinations.
func (l *Lab) RunConversations(ctx context.Context, id bson.ObjectID, actor string, req RunRequest) ([]*model.Conversation, error) {
	exp, err := l.Store.Experiment(ctx, id)
	if err != nil {
		return nil, err
	}

	conversations, runErr := l.Runner.RunAll(ctx, exp, actor, req)

	// Conversations that make it into the store must also be attached to
	// the experiment, even when a later insert fails.
	attached := make([]*model.Conversation, 0, len(conversations))
	var persistErr error
	for _, conv := range conversations {
		if err := l.Store.InsertConversation(ctx, conv); err != nil {
			persistErr = fmt.Errorf("persist conversation %s: %w", conv.ID.Hex(), err)
			break
		}
		exp.AppendConversation(conv.ID)
		attached = append(attached, conv)
	}
	if len(attached) > 0 {
		if err := l.Store.UpdateExperiment(ctx, exp); err != nil {
			return nil, err
		}
	}
	if persistErr != nil {
		return attached, persistErr
	}
	l.logger.Info("conversations completed",
		zap.String("experiment", id.Hex()),
		zap.Int("persisted", len(attached)))
	return attached, runErr
}

func (l *Lab) Conversations(ctx context.Context, experimentID bson.ObjectID) ([]*model.Conversation, error) {
	exp, err := l.Store.Experiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	return l.Store.Conversations(ctx, exp.ConversationIDs)
}

func (l *Lab) ToggleConversationFavourite(ctx context.Context, id bson.ObjectID, actor string) (*model.Conversation, error) {
	conv, err := l.Store.Conversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.Creator != actor {
		return nil, &model.PermissionError{Action: "favourite conversation", Actor: actor, Creator: conv.Creator}
	}
	conv.Favourite = !conv.Favourite
	if err := l.Store.UpdateConversation(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// DeleteConversation removes a conversation and detaches its reference
// from the owning experiment.
func (l *Lab) DeleteConversation(ctx context.Context, experimentID, conversationID bson.ObjectID, actor string) error {
	conv, err := l.Store.Conversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Creator != actor {
		return &model.PermissionError{Action: "delete conversation", Actor: actor, Creator: conv.Creator}
	}
	exp, err := l.Store.Experiment(ctx, experimentID)
	if err != nil {
		return err
	}
	if err := l.Store.DeleteConversation(ctx, conversationID); err != nil {
		return err
	}
	exp.DetachConversation(conversationID)
	return l.Store.UpdateExperiment(ctx, exp)
}

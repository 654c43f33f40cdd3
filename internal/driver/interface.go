package driver

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/crucible-labs/crucible/internal/core/model"
)

// Store is the document store the engine persists through. Every operation
// is a single-document atomic op; there are no multi-document transactions,
// and concurrent writers to the same document are last-write-wins.
// Lookups that match nothing return *model.NotFoundError.
type Store interface {
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UserByID(ctx context.Context, id bson.ObjectID) (*model.User, error)
	InsertUser(ctx context.Context, user *model.User) error

	Experiments(ctx context.Context) ([]*model.Experiment, error)
	Experiment(ctx context.Context, id bson.ObjectID) (*model.Experiment, error)
	InsertExperiment(ctx context.Context, exp *model.Experiment) error
	UpdateExperiment(ctx context.Context, exp *model.Experiment) error
	DeleteExperiment(ctx context.Context, id bson.ObjectID) error

	Conversation(ctx context.Context, id bson.ObjectID) (*model.Conversation, error)
	Conversations(ctx context.Context, ids []bson.ObjectID) ([]*model.Conversation, error)
	InsertConversation(ctx context.Context, conv *model.Conversation) error
	UpdateConversation(ctx context.Context, conv *model.Conversation) error
	DeleteConversation(ctx context.Context, id bson.ObjectID) error

	Close(ctx context.Context) error
}

package driver

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/internal/config"
	"github.com/crucible-labs/crucible/internal/core/model"
)

// MongoStore implements Store over MongoDB collections users, experiments
// and conversations.
type MongoStore struct {
	client        *mongo.Client
	users         *mongo.Collection
	experiments   *mongo.Collection
	conversations *mongo.Collection
	logger        *zap.Logger
}

func NewMongoStore(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to reach MongoDB at %s: %w", cfg.URI, err)
	}

	db := client.Database(cfg.Database)
	logger.Info("mongodb connection established", zap.String("database", cfg.Database))
	return &MongoStore{
		client:        client,
		users:         db.Collection("users"),
		experiments:   db.Collection("experiments"),
		conversations: db.Collection("conversations"),
		logger:        logger.With(zap.String("component", "mongo_store")),
	}, nil
}

func (s *MongoStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var doc model.UserDocument
	err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &model.NotFoundError{Kind: "user", ID: username}
	}
	if err != nil {
		return nil, err
	}
	return model.UserFromDocument(&doc), nil
}

func (s *MongoStore) UserByID(ctx context.Context, id bson.ObjectID) (*model.User, error) {
	var doc model.UserDocument
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &model.NotFoundError{Kind: "user", ID: id.Hex()}
	}
	if err != nil {
		return nil, err
	}
	return model.UserFromDocument(&doc), nil
}

func (s *MongoStore) InsertUser(ctx context.Context, user *model.User) error {
	_, err := s.users.InsertOne(ctx, user.ToDocument())
	return err
}

func (s *MongoStore) Experiments(ctx context.Context) ([]*model.Experiment, error) {
	cursor, err := s.experiments.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var docs []model.ExperimentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	experiments := make([]*model.Experiment, 0, len(docs))
	for i := range docs {
		exp, err := model.ExperimentFromDocument(&docs[i])
		if err != nil {
			return nil, fmt.Errorf("stored experiment %s is invalid: %w", docs[i].ID.Hex(), err)
		}
		experiments = append(experiments, exp)
	}
	s.logger.Debug("experiments retrieved", zap.Int("count", len(experiments)))
	return experiments, nil
}

func (s *MongoStore) Experiment(ctx context.Context, id bson.ObjectID) (*model.Experiment, error) {
	var doc model.ExperimentDocument
	err := s.experiments.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &model.NotFoundError{Kind: "experiment", ID: id.Hex()}
	}
	if err != nil {
		return nil, err
	}
	return model.ExperimentFromDocument(&doc)
}

func (s *MongoStore) InsertExperiment(ctx context.Context, exp *model.Experiment) error {
	_, err := s.experiments.InsertOne(ctx, exp.ToDocument())
	if err != nil {
		return err
	}
	s.logger.Debug("experiment saved", zap.String("id", exp.ID.Hex()))
	return nil
}

func (s *MongoStore) UpdateExperiment(ctx context.Context, exp *model.Experiment) error {
	res, err := s.experiments.UpdateOne(ctx,
		bson.M{"_id": exp.ID},
		bson.M{"$set": exp.ToDocument()})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &model.NotFoundError{Kind: "experiment", ID: exp.ID.Hex()}
	}
	return nil
}

func (s *MongoStore) DeleteExperiment(ctx context.Context, id bson.ObjectID) error {
	res, err := s.experiments.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return &model.NotFoundError{Kind: "experiment", ID: id.Hex()}
	}
	return nil
}

func (s *MongoStore) Conversation(ctx context.Context, id bson.ObjectID) (*model.Conversation, error) {
	var doc model.ConversationDocument
	err := s.conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &model.NotFoundError{Kind: "conversation", ID: id.Hex()}
	}
	if err != nil {
		return nil, err
	}
	return model.ConversationFromDocument(&doc)
}

func (s *MongoStore) Conversations(ctx context.Context, ids []bson.ObjectID) ([]*model.Conversation, error) {
	cursor, err := s.conversations.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var docs []model.ConversationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	conversations := make([]*model.Conversation, 0, len(docs))
	for i := range docs {
		conv, err := model.ConversationFromDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

func (s *MongoStore) InsertConversation(ctx context.Context, conv *model.Conversation) error {
	_, err := s.conversations.InsertOne(ctx, conv.ToDocument())
	return err
}

func (s *MongoStore) UpdateConversation(ctx context.Context, conv *model.Conversation) error {
	res, err := s.conversations.UpdateOne(ctx,
		bson.M{"_id": conv.ID},
		bson.M{"$set": conv.ToDocument()})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return &model.NotFoundError{Kind: "conversation", ID: conv.ID.Hex()}
	}
	return nil
}

func (s *MongoStore) DeleteConversation(ctx context.Context, id bson.ObjectID) error {
	res, err := s.conversations.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return &model.NotFoundError{Kind: "conversation", ID: id.Hex()}
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

package driver

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/crucible-labs/crucible/internal/core/model"
)

// MemStore is an in-memory Store used by tests and local development.
// Documents are stored in their persisted shape and rebuilt on read, so the
// to/from-document round trip is exercised on every access.
type MemStore struct {
	mu            sync.RWMutex
	users         map[bson.ObjectID]*model.UserDocument
	experiments   map[bson.ObjectID]*model.ExperimentDocument
	conversations map[bson.ObjectID]*model.ConversationDocument
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:         make(map[bson.ObjectID]*model.UserDocument),
		experiments:   make(map[bson.ObjectID]*model.ExperimentDocument),
		conversations: make(map[bson.ObjectID]*model.ConversationDocument),
	}
}

func (s *MemStore) UserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.users {
		if doc.Username == username {
			return model.UserFromDocument(doc), nil
		}
	}
	return nil, &model.NotFoundError{Kind: "user", ID: username}
}

func (s *MemStore) UserByID(_ context.Context, id bson.ObjectID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.users[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "user", ID: id.Hex()}
	}
	return model.UserFromDocument(doc), nil
}

func (s *MemStore) InsertUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user.ToDocument()
	return nil
}

func (s *MemStore) Experiments(_ context.Context) ([]*model.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	experiments := make([]*model.Experiment, 0, len(s.experiments))
	for _, doc := range s.experiments {
		exp, err := model.ExperimentFromDocument(doc)
		if err != nil {
			return nil, err
		}
		experiments = append(experiments, exp)
	}
	return experiments, nil
}

func (s *MemStore) Experiment(_ context.Context, id bson.ObjectID) (*model.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.experiments[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "experiment", ID: id.Hex()}
	}
	return model.ExperimentFromDocument(doc)
}

func (s *MemStore) InsertExperiment(_ context.Context, exp *model.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.experiments[exp.ID] = exp.ToDocument()
	return nil
}

func (s *MemStore) UpdateExperiment(_ context.Context, exp *model.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.experiments[exp.ID]; !ok {
		return &model.NotFoundError{Kind: "experiment", ID: exp.ID.Hex()}
	}
	s.experiments[exp.ID] = exp.ToDocument()
	return nil
}

func (s *MemStore) DeleteExperiment(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.experiments[id]; !ok {
		return &model.NotFoundError{Kind: "experiment", ID: id.Hex()}
	}
	delete(s.experiments, id)
	return nil
}

func (s *MemStore) Conversation(_ context.Context, id bson.ObjectID) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.conversations[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "conversation", ID: id.Hex()}
	}
	return model.ConversationFromDocument(doc)
}

func (s *MemStore) Conversations(_ context.Context, ids []bson.ObjectID) ([]*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conversations := make([]*model.Conversation, 0, len(ids))
	for _, id := range ids {
		doc, ok := s.conversations[id]
		if !ok {
			continue
		}
		conv, err := model.ConversationFromDocument(doc)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

func (s *MemStore) InsertConversation(_ context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = conv.ToDocument()
	return nil
}

func (s *MemStore) UpdateConversation(_ context.Context, conv *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conv.ID]; !ok {
		return &model.NotFoundError{Kind: "conversation", ID: conv.ID.Hex()}
	}
	s.conversations[conv.ID] = conv.ToDocument()
	return nil
}

func (s *MemStore) DeleteConversation(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return &model.NotFoundError{Kind: "conversation", ID: id.Hex()}
	}
	delete(s.conversations, id)
	return nil
}

func (s *MemStore) Close(context.Context) error { return nil }

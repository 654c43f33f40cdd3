package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/crucible-labs/crucible/internal/core/model"
)

func memExperiment(t *testing.T) *model.Experiment {
	t.Helper()
	sections, err := model.NewSectionList([]string{"Brief"}, model.SectionPrivate, "scout")
	require.NoError(t, err)
	sections[1].SetContent("Report what <SCOUT_NUM> can see.")
	scout, err := model.NewRole("scout", sections, nil)
	require.NoError(t, err)

	exp, err := model.NewExperiment(model.ExperimentParams{
		StartingMessage: "Scouting begins.",
		Creator:         "alice",
		Roles:           []*model.Role{scout},
	})
	require.NoError(t, err)
	return exp
}

func TestMemStoreUsers(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	user, err := model.NewUser("alice", "$2a$10$hash")
	require.NoError(t, err)
	require.NoError(t, store.InsertUser(ctx, user))

	byName, err := store.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)
	assert.Equal(t, "$2a$10$hash", byName.PasswordHash)

	byID, err := store.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	var nf *model.NotFoundError
	_, err = store.UserByUsername(ctx, "bob")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "user", nf.Kind)

	_, err = store.UserByID(ctx, bson.NewObjectID())
	require.ErrorAs(t, err, &nf)
}

func TestMemStoreExperimentRoundTrip(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	exp := memExperiment(t)
	require.NoError(t, store.InsertExperiment(ctx, exp))

	fetched, err := store.Experiment(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, exp.ToDocument(), fetched.ToDocument())

	listed, err := store.Experiments(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	fetched.SetNote("updated")
	require.NoError(t, store.UpdateExperiment(ctx, fetched))
	again, err := store.Experiment(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", again.Note)

	require.NoError(t, store.DeleteExperiment(ctx, exp.ID))
	var nf *model.NotFoundError
	_, err = store.Experiment(ctx, exp.ID)
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "experiment", nf.Kind)

	require.ErrorAs(t, store.UpdateExperiment(ctx, exp), &nf)
	require.ErrorAs(t, store.DeleteExperiment(ctx, exp.ID), &nf)
}

func TestMemStoreConversations(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	conv := model.NewConversation("alice")
	conv.AddDay(1, []model.Message{{Sender: "Scout_1", Content: "All clear."}})
	require.NoError(t, store.InsertConversation(ctx, conv))

	fetched, err := store.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ToDocument(), fetched.ToDocument())

	fetched.Favourite = true
	require.NoError(t, store.UpdateConversation(ctx, fetched))
	again, err := store.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, again.Favourite)

	// Unknown references are skipped, not errors: an experiment may point at
	// conversations deleted out from under it.
	listed, err := store.Conversations(ctx, []bson.ObjectID{conv.ID, bson.NewObjectID()})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, conv.ID, listed[0].ID)

	require.NoError(t, store.DeleteConversation(ctx, conv.ID))
	var nf *model.NotFoundError
	_, err = store.Conversation(ctx, conv.ID)
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "conversation", nf.Kind)

	require.ErrorAs(t, store.UpdateConversation(ctx, conv), &nf)
	require.ErrorAs(t, store.DeleteConversation(ctx, conv.ID), &nf)
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExperiment(t *testing.T) *Experiment {
	t.Helper()

	guardSections, err := NewSectionList([]string{"goal"}, SectionPrivate, "guard")
	require.NoError(t, err)
	guardSections[1].SetContent("Keep order. You are one of <GUARD_NUM> among <AGENTS_NUM> agents.")
	guard, err := NewRole("guard", guardSections, nil)
	require.NoError(t, err)

	prisonerSections, err := NewSectionList([]string{"goal"}, SectionPrivate, "prisoner")
	require.NoError(t, err)
	prisonerSections[1].SetContent("Endure. Respect <GUARD_POSS> authority.")
	prisoner, err := NewRole("prisoner", prisonerSections, nil)
	require.NoError(t, err)

	shared, err := NewSection(1, "environment", "The facility holds <AGENTS_NUM> agents across <ROLES_NUM> roles.", SectionShared, "")
	require.NoError(t, err)

	summarizerSections, err := NewSectionList([]string{"context"}, SectionSummarizer, "")
	require.NoError(t, err)
	summarizerSections[1].SetContent("There are <GUARD_NUM> and <PRISONER_NUM>.")

	llmSpec, err := NewLLM("gpt-4o")
	require.NoError(t, err)

	exp, err := NewExperiment(ExperimentParams{
		StartingMessage:    "Day begins.",
		Note:               "baseline",
		Creator:            "alice",
		LLMs:               []*LLM{llmSpec},
		Roles:              []*Role{guard, prisoner},
		SharedSections:     []*Section{shared},
		SummarizerSections: summarizerSections,
	})
	require.NoError(t, err)
	return exp
}

func TestNewExperiment_DefaultPlaceholders(t *testing.T) {
	exp := testExperiment(t)

	tags := make([]string, 0, len(exp.Placeholders))
	for _, p := range exp.Placeholders {
		tags = append(tags, p.Tag)
	}
	assert.Equal(t, []string{"<AGENTS_NUM>", "<ROLES_NUM>"}, tags)
}

func TestNewExperiment_RejectsUnresolvedReference(t *testing.T) {
	sections, err := NewSectionList([]string{"goal"}, SectionPrivate, "guard")
	require.NoError(t, err)
	sections[1].SetContent("Obey the <WARDEN_NOUN>.")
	guard, err := NewRole("guard", sections, nil)
	require.NoError(t, err)

	_, err = NewExperiment(ExperimentParams{
		StartingMessage: "go",
		Creator:         "alice",
		Roles:           []*Role{guard},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "<WARDEN_NOUN>")
}

func TestNewExperiment_RejectsDuplicateRoles(t *testing.T) {
	a, err := NewRole("guard", nil, nil)
	require.NoError(t, err)
	b, err := NewRole("guard", nil, []*Placeholder{MustPlaceholder("<WARDEN_NUM>")})
	require.NoError(t, err)

	_, err = NewExperiment(ExperimentParams{
		StartingMessage: "go",
		Creator:         "alice",
		Roles:           []*Role{a, b},
	})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestNewExperiment_RejectsCrossRoleTagCollision(t *testing.T) {
	a, err := NewRole("guard", nil, nil)
	require.NoError(t, err)
	b, err := NewRole("warden", nil, []*Placeholder{MustPlaceholder("<GUARD_NUM>")})
	require.NoError(t, err)

	_, err = NewExperiment(ExperimentParams{
		StartingMessage: "go",
		Creator:         "alice",
		Roles:           []*Role{a, b},
	})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestExperiment_DocumentRoundTrip(t *testing.T) {
	exp := testExperiment(t)
	exp.AppendConversation(exp.ID) // any ObjectID works for the round trip

	doc := exp.ToDocument()
	restored, err := ExperimentFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, doc, restored.ToDocument())
}

func TestExperiment_MutationSurface(t *testing.T) {
	exp := testExperiment(t)

	exp.SetNote("revised")
	exp.SetFavourite(true)
	assert.Equal(t, "revised", exp.Note)
	assert.True(t, exp.Favourite)

	conv := NewConversation("alice")
	exp.AppendConversation(conv.ID)
	assert.Len(t, exp.ConversationIDs, 1)

	exp.DetachConversation(conv.ID)
	assert.Empty(t, exp.ConversationIDs)
}

func TestExperiment_RoleLookup(t *testing.T) {
	exp := testExperiment(t)
	assert.NotNil(t, exp.Role("guard"))
	assert.Nil(t, exp.Role("warden"))
}

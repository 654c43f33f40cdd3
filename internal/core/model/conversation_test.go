package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_DayOrdering(t *testing.T) {
	conv := NewConversation("alice")
	conv.AddDay(2, []Message{{Sender: "Guard_1", Content: "day two"}})
	conv.AddDay(1, []Message{{Sender: "Guard_1", Content: "day one"}})
	conv.AddDay(3, []Message{{Sender: "Guard_1", Content: "day three"}})

	assert.Equal(t, []int{1, 2, 3}, conv.DayNumbers())
}

func TestConversation_DocumentRoundTrip(t *testing.T) {
	conv := NewConversation("alice")
	conv.Favourite = true
	conv.AddDay(1, []Message{
		{Sender: "Guard_1", Content: "lights out"},
		{Sender: "Prisoner_1", Content: "understood"},
	})

	doc := conv.ToDocument()
	require.Contains(t, doc.Days, "1")

	restored, err := ConversationFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, restored.ID)
	assert.Equal(t, conv.Creator, restored.Creator)
	assert.True(t, restored.Favourite)
	assert.Equal(t, conv.Days, restored.Days)
}

func TestConversationFromDocument_RejectsBadDayKey(t *testing.T) {
	doc := NewConversation("alice").ToDocument()
	doc.Days["zero"] = nil

	_, err := ConversationFromDocument(doc)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

package model

import (
	"sort"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Message is one turn of a transcript.
type Message struct {
	Sender  string `bson:"sender" json:"sender"`
	Content string `bson:"content" json:"content"`
}

// RoleCount pairs a role name with an agent count. A slice of these is one
// agent-population combination.
type RoleCount struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

// Conversation is the persisted outcome of running one combination: a
// transcript per day, keyed by day number starting at 1.
type Conversation struct {
	ID        bson.ObjectID
	Creator   string
	Favourite bool
	Days      map[int][]Message
}

func NewConversation(creator string) *Conversation {
	return &Conversation{
		ID:      bson.NewObjectID(),
		Creator: creator,
		Days:    make(map[int][]Message),
	}
}

// AddDay records one day's transcript.
func (c *Conversation) AddDay(day int, transcript []Message) {
	c.Days[day] = transcript
}

// DayNumbers returns the recorded days in ascending order.
func (c *Conversation) DayNumbers() []int {
	days := make([]int, 0, len(c.Days))
	for d := range c.Days {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// ConversationDocument is the persisted shape of a conversation. BSON map
// keys must be strings, so day numbers are stored as decimal strings.
type ConversationDocument struct {
	ID        bson.ObjectID        `bson:"_id" json:"_id"`
	Creator   string               `bson:"creator" json:"creator"`
	Favourite bool                 `bson:"favourite" json:"favourite"`
	Days      map[string][]Message `bson:"days" json:"days"`
}

func (c *Conversation) ToDocument() *ConversationDocument {
	doc := &ConversationDocument{
		ID:        c.ID,
		Creator:   c.Creator,
		Favourite: c.Favourite,
		Days:      make(map[string][]Message, len(c.Days)),
	}
	for day, transcript := range c.Days {
		doc.Days[strconv.Itoa(day)] = transcript
	}
	return doc
}

func ConversationFromDocument(doc *ConversationDocument) (*Conversation, error) {
	c := &Conversation{
		ID:        doc.ID,
		Creator:   doc.Creator,
		Favourite: doc.Favourite,
		Days:      make(map[int][]Message, len(doc.Days)),
	}
	for key, transcript := range doc.Days {
		day, err := strconv.Atoi(key)
		if err != nil || day < 1 {
			return nil, NewValidationError("conversation %s has invalid day key %q", doc.ID.Hex(), key)
		}
		c.Days[day] = transcript
	}
	return c, nil
}

package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Experiment aggregates roles, shared and summarizer sections, experiment-
// scoped placeholders and the LLM list. It is the unit of persistence and
// the entry point for running conversation rounds.
//
// Structural fields (llms, roles, sections, placeholders) are immutable
// after construction; a structural change means building a new experiment.
// The mutable surface is limited to note, favourite and appending
// conversation references.
type Experiment struct {
	ID              bson.ObjectID
	StartingMessage string
	Note            string
	Favourite       bool
	Creator         string
	CreationDate    time.Time

	LLMs               []*LLM
	Roles              []*Role
	SharedSections     []*Section
	SummarizerSections []*Section
	Placeholders       []*Placeholder

	ConversationIDs []bson.ObjectID
}

// ExperimentParams carries the raw lists an experiment is built from.
type ExperimentParams struct {
	StartingMessage    string
	Note               string
	Favourite          bool
	Creator            string
	LLMs               []*LLM
	Roles              []*Role
	SharedSections     []*Section
	SummarizerSections []*Section
	Placeholders       []*Placeholder
}

// NewExperiment validates and assembles the aggregate. Placeholders default
// to <AGENTS_NUM> and <ROLES_NUM> when none are supplied. Every placeholder
// tag referenced by any section in scope must resolve against the union of
// experiment-scope and role-scope placeholders, otherwise construction
// fails with a ValidationError and no aggregate is produced.
func NewExperiment(params ExperimentParams) (*Experiment, error) {
	if params.Creator == "" {
		return nil, NewValidationError("experiment has no creator")
	}
	if len(params.Roles) == 0 {
		return nil, NewValidationError("experiment has no roles")
	}
	placeholders := params.Placeholders
	if len(placeholders) == 0 {
		placeholders = []*Placeholder{
			MustPlaceholder("<AGENTS_NUM>"),
			MustPlaceholder("<ROLES_NUM>"),
		}
	}

	e := &Experiment{
		ID:                 bson.NewObjectID(),
		StartingMessage:    params.StartingMessage,
		Note:               params.Note,
		Favourite:          params.Favourite,
		Creator:            params.Creator,
		CreationDate:       time.Now().UTC().Truncate(time.Millisecond),
		LLMs:               params.LLMs,
		Roles:              params.Roles,
		SharedSections:     params.SharedSections,
		SummarizerSections: params.SummarizerSections,
		Placeholders:       placeholders,
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Experiment) validate() error {
	models := make(map[string]bool)
	for _, l := range e.LLMs {
		if models[l.Model] {
			return NewValidationError("duplicate llm %q", l.Model)
		}
		models[l.Model] = true
	}

	names := make(map[string]bool)
	for _, r := range e.Roles {
		if names[r.Name] {
			return NewValidationError("duplicate role %q", r.Name)
		}
		names[r.Name] = true
	}

	for _, group := range [][]*Section{e.SharedSections, e.SummarizerSections} {
		titles := make(map[string]bool)
		for _, s := range group {
			if titles[s.Title] {
				return NewValidationError("duplicate %s section title %q", s.Type, s.Title)
			}
			titles[s.Title] = true
		}
	}

	scope := make(map[string]bool)
	for _, p := range e.Placeholders {
		if scope[p.Tag] {
			return NewValidationError("duplicate placeholder tag %s", p.Tag)
		}
		scope[p.Tag] = true
	}
	for _, r := range e.Roles {
		for _, p := range r.Placeholders {
			if scope[p.Tag] {
				return NewValidationError("placeholder tag %s declared more than once", p.Tag)
			}
			scope[p.Tag] = true
		}
	}

	// Resolvability: private sections see their role's tags plus the
	// experiment scope; shared and summarizer sections see everything, as
	// prompt composition merges all role values for the combination.
	for _, r := range e.Roles {
		roleScope := make(map[string]bool)
		for _, p := range e.Placeholders {
			roleScope[p.Tag] = true
		}
		for _, p := range r.Placeholders {
			roleScope[p.Tag] = true
		}
		for _, s := range r.Sections {
			for _, tag := range s.Tags() {
				if !roleScope[tag] {
					return NewValidationError("section %q of role %q references undefined placeholder %s", s.Title, r.Name, tag)
				}
			}
		}
	}
	for _, group := range [][]*Section{e.SharedSections, e.SummarizerSections} {
		for _, s := range group {
			for _, tag := range s.Tags() {
				if !scope[tag] {
					return NewValidationError("%s section %q references undefined placeholder %s", s.Type, s.Title, tag)
				}
			}
		}
	}
	return nil
}

// Role returns the role with the given name, or nil.
func (e *Experiment) Role(name string) *Role {
	for _, r := range e.Roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// SetNote replaces the free-form note.
func (e *Experiment) SetNote(note string) { e.Note = note }

// SetFavourite sets the favourite flag.
func (e *Experiment) SetFavourite(fav bool) { e.Favourite = fav }

// AppendConversation records a completed conversation reference.
func (e *Experiment) AppendConversation(id bson.ObjectID) {
	e.ConversationIDs = append(e.ConversationIDs, id)
}

// DetachConversation removes a conversation reference if present.
func (e *Experiment) DetachConversation(id bson.ObjectID) {
	for i, cid := range e.ConversationIDs {
		if cid == id {
			e.ConversationIDs = append(e.ConversationIDs[:i], e.ConversationIDs[i+1:]...)
			return
		}
	}
}

// ExperimentDocument is the persisted shape of an experiment. Field names
// are a stable contract; round-trip fidelity is a tested property.
type ExperimentDocument struct {
	ID                 bson.ObjectID         `bson:"_id" json:"_id"`
	StartingMessage    string                `bson:"starting_message" json:"starting_message"`
	LLMs               []LLMDocument         `bson:"llms" json:"llms"`
	Roles              []RoleDocument        `bson:"roles" json:"roles"`
	SharedSections     []SectionDocument     `bson:"shared_sections" json:"shared_sections"`
	SummarizerSections []SectionDocument     `bson:"summarizer_sections" json:"summarizer_sections"`
	Placeholders       []PlaceholderDocument `bson:"placeholders" json:"placeholders"`
	Note               string                `bson:"note" json:"note"`
	Favourite          bool                  `bson:"favourite" json:"favourite"`
	Creator            string                `bson:"creator" json:"creator"`
	ConversationIDs    []bson.ObjectID       `bson:"conversation_ids" json:"conversation_ids"`
	CreationDate       time.Time             `bson:"creation_date" json:"creation_date"`
}

func (e *Experiment) ToDocument() *ExperimentDocument {
	doc := &ExperimentDocument{
		ID:                 e.ID,
		StartingMessage:    e.StartingMessage,
		LLMs:               make([]LLMDocument, 0, len(e.LLMs)),
		Roles:              make([]RoleDocument, 0, len(e.Roles)),
		SharedSections:     make([]SectionDocument, 0, len(e.SharedSections)),
		SummarizerSections: make([]SectionDocument, 0, len(e.SummarizerSections)),
		Placeholders:       make([]PlaceholderDocument, 0, len(e.Placeholders)),
		Note:               e.Note,
		Favourite:          e.Favourite,
		Creator:            e.Creator,
		ConversationIDs:    append([]bson.ObjectID(nil), e.ConversationIDs...),
		CreationDate:       e.CreationDate,
	}
	for _, l := range e.LLMs {
		doc.LLMs = append(doc.LLMs, l.ToDocument())
	}
	for _, r := range e.Roles {
		doc.Roles = append(doc.Roles, r.ToDocument())
	}
	for _, s := range e.SharedSections {
		doc.SharedSections = append(doc.SharedSections, s.ToDocument())
	}
	for _, s := range e.SummarizerSections {
		doc.SummarizerSections = append(doc.SummarizerSections, s.ToDocument())
	}
	for _, p := range e.Placeholders {
		doc.Placeholders = append(doc.Placeholders, p.ToDocument())
	}
	return doc
}

// ExperimentFromDocument rebuilds and re-validates the aggregate. The store
// is not trusted: a document that no longer satisfies construction-time
// invariants is rejected here rather than surfacing later in a run.
func ExperimentFromDocument(doc *ExperimentDocument) (*Experiment, error) {
	llms := make([]*LLM, 0, len(doc.LLMs))
	for _, ld := range doc.LLMs {
		l, err := LLMFromDocument(ld)
		if err != nil {
			return nil, err
		}
		llms = append(llms, l)
	}
	roles := make([]*Role, 0, len(doc.Roles))
	for _, rd := range doc.Roles {
		r, err := RoleFromDocument(rd)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	sectionList := func(docs []SectionDocument) ([]*Section, error) {
		sections := make([]*Section, 0, len(docs))
		for _, sd := range docs {
			s, err := SectionFromDocument(sd)
			if err != nil {
				return nil, err
			}
			sections = append(sections, s)
		}
		return sections, nil
	}
	shared, err := sectionList(doc.SharedSections)
	if err != nil {
		return nil, err
	}
	summarizer, err := sectionList(doc.SummarizerSections)
	if err != nil {
		return nil, err
	}
	placeholders := make([]*Placeholder, 0, len(doc.Placeholders))
	for _, pd := range doc.Placeholders {
		p, err := PlaceholderFromDocument(pd)
		if err != nil {
			return nil, err
		}
		placeholders = append(placeholders, p)
	}

	e, err := NewExperiment(ExperimentParams{
		StartingMessage:    doc.StartingMessage,
		Note:               doc.Note,
		Favourite:          doc.Favourite,
		Creator:            doc.Creator,
		LLMs:               llms,
		Roles:              roles,
		SharedSections:     shared,
		SummarizerSections: summarizer,
		Placeholders:       placeholders,
	})
	if err != nil {
		return nil, err
	}
	e.ID = doc.ID
	e.CreationDate = doc.CreationDate
	e.ConversationIDs = append([]bson.ObjectID(nil), doc.ConversationIDs...)
	return e, nil
}

package model

import (
	"sort"
	"strings"
)

// Role is a named agent archetype bundling its private prompt sections and
// role-scoped placeholders. Agents of the same role differ only in name;
// behavior lives entirely in prompt content and role metadata.
type Role struct {
	Name         string
	Sections     []*Section     // private, ascending index
	Placeholders []*Placeholder // tag-unique
}

// NewRole builds a role from an explicit section list and an optional
// placeholder list. With no placeholders supplied, three defaults are
// synthesized from the role name: noun, possessive and count tags
// (<NAME_NOUN>, <NAME_POSS>, <NAME_NUM>). Persisted experiments created
// under the default path round-trip through this exact synthesis.
func NewRole(name string, sections []*Section, placeholders []*Placeholder) (*Role, error) {
	if name == "" {
		return nil, NewValidationError("role name is empty")
	}
	if len(placeholders) == 0 {
		upper := strings.ToUpper(name)
		placeholders = []*Placeholder{
			MustPlaceholder("<" + upper + "_NOUN>"),
			MustPlaceholder("<" + upper + "_POSS>"),
			MustPlaceholder("<" + upper + "_NUM>"),
		}
	}

	titles := make(map[string]bool)
	owned := make([]*Section, 0, len(sections))
	for _, s := range sections {
		if s.Type != SectionPrivate {
			return nil, NewValidationError("role %q given non-private section %q", name, s.Title)
		}
		if s.Role != name {
			return nil, NewValidationError("role %q given section %q owned by %q", name, s.Title, s.Role)
		}
		if titles[s.Title] {
			return nil, NewValidationError("role %q has duplicate section title %q", name, s.Title)
		}
		titles[s.Title] = true
		owned = append(owned, s)
	}
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].Index < owned[j].Index })

	tags := make(map[string]bool)
	for _, p := range placeholders {
		if tags[p.Tag] {
			return nil, NewValidationError("role %q has duplicate placeholder tag %s", name, p.Tag)
		}
		tags[p.Tag] = true
	}

	return &Role{Name: name, Sections: owned, Placeholders: placeholders}, nil
}

// Section returns the private section with the given title, or nil.
func (r *Role) Section(title string) *Section {
	for _, s := range r.Sections {
		if s.Title == title {
			return s
		}
	}
	return nil
}

// Placeholder returns the owned placeholder with the given tag, or nil.
func (r *Role) Placeholder(tag string) *Placeholder {
	for _, p := range r.Placeholders {
		if p.Tag == tag {
			return p
		}
	}
	return nil
}

// ComposePrompt renders the role's prompt for one agent: shared and private
// sections merged in ascending index order (shared first on equal index),
// each rendered against the supplied placeholder values, empty fragments
// skipped, joined by blank lines.
func (r *Role) ComposePrompt(shared []*Section, values map[string]string) (string, error) {
	merged := make([]*Section, 0, len(shared)+len(r.Sections))
	merged = append(merged, shared...)
	merged = append(merged, r.Sections...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Index < merged[j].Index })

	parts := make([]string, 0, len(merged))
	for _, s := range merged {
		if s.Content == "" {
			continue
		}
		rendered, err := s.Render(values)
		if err != nil {
			return "", err
		}
		parts = append(parts, rendered)
	}
	return strings.Join(parts, "\n\n"), nil
}

// RoleDocument is the persisted shape of a role.
type RoleDocument struct {
	Name         string                `bson:"name" json:"name"`
	Sections     []SectionDocument     `bson:"sections" json:"sections"`
	Placeholders []PlaceholderDocument `bson:"placeholders" json:"placeholders"`
}

func (r *Role) ToDocument() RoleDocument {
	doc := RoleDocument{
		Name:         r.Name,
		Sections:     make([]SectionDocument, 0, len(r.Sections)),
		Placeholders: make([]PlaceholderDocument, 0, len(r.Placeholders)),
	}
	for _, s := range r.Sections {
		doc.Sections = append(doc.Sections, s.ToDocument())
	}
	for _, p := range r.Placeholders {
		doc.Placeholders = append(doc.Placeholders, p.ToDocument())
	}
	return doc
}

func RoleFromDocument(doc RoleDocument) (*Role, error) {
	sections := make([]*Section, 0, len(doc.Sections))
	for _, sd := range doc.Sections {
		s, err := SectionFromDocument(sd)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	placeholders := make([]*Placeholder, 0, len(doc.Placeholders))
	for _, pd := range doc.Placeholders {
		p, err := PlaceholderFromDocument(pd)
		if err != nil {
			return nil, err
		}
		placeholders = append(placeholders, p)
	}
	return NewRole(doc.Name, sections, placeholders)
}

package model

import "strings"

// SectionType discriminates who a prompt fragment is for.
type SectionType string

const (
	SectionPrivate    SectionType = "private"
	SectionShared     SectionType = "shared"
	SectionSummarizer SectionType = "summarizer"
)

// StartingPromptIndex is reserved for the synthetic section prepended when
// a section sequence is authored; see NewSectionList.
const StartingPromptIndex = 0

// Section is a titled template fragment. Content may reference placeholder
// tags; every referenced tag must be resolvable at render time. Index fixes
// the rendering order at creation and is never reassigned in place; a
// reorder requires recreating the sequence.
type Section struct {
	Index   int
	Title   string
	Content string
	Type    SectionType
	Role    string // owning role name, set iff Type is SectionPrivate
}

// NewSection validates the type/role pairing.
func NewSection(index int, title, content string, typ SectionType, role string) (*Section, error) {
	switch typ {
	case SectionPrivate:
		if role == "" {
			return nil, NewValidationError("private section %q has no owning role", title)
		}
	case SectionShared, SectionSummarizer:
		if role != "" {
			return nil, NewValidationError("%s section %q must not name a role", typ, title)
		}
	default:
		return nil, NewValidationError("section %q has unknown type %q", title, typ)
	}
	return &Section{Index: index, Title: title, Content: content, Type: typ, Role: role}, nil
}

// NewSectionList builds an ordered section sequence from titles, prepending
// the synthetic zero-index starting-prompt section (empty title, empty
// content). Titles must be unique.
func NewSectionList(titles []string, typ SectionType, role string) ([]*Section, error) {
	seen := map[string]bool{"": true}
	sections := make([]*Section, 0, len(titles)+1)
	starting, err := NewSection(StartingPromptIndex, "", "", typ, role)
	if err != nil {
		return nil, err
	}
	sections = append(sections, starting)
	for i, title := range titles {
		if seen[title] {
			return nil, NewValidationError("duplicate section title %q", title)
		}
		seen[title] = true
		s, err := NewSection(i+1, title, "", typ, role)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, nil
}

// SetContent replaces the section content and reports the tags referenced
// by the new content that the previous content did not reference. This is
// advisory discovery for iterative authoring: the caller is responsible for
// defining reported tags before render.
func (s *Section) SetContent(text string) []string {
	known := make(map[string]bool)
	for _, tag := range ScanTags(s.Content) {
		known[tag] = true
	}
	s.Content = text
	var fresh []string
	for _, tag := range ScanTags(text) {
		if !known[tag] {
			fresh = append(fresh, tag)
		}
	}
	return fresh
}

// Tags returns the placeholder tags referenced by the current content.
func (s *Section) Tags() []string {
	return ScanTags(s.Content)
}

// Render substitutes every recognized tag occurrence with its resolved
// value. A referenced tag with no entry in values aborts the render with a
// MissingPlaceholderError naming the tag.
func (s *Section) Render(values map[string]string) (string, error) {
	out := s.Content
	for _, tag := range s.Tags() {
		value, ok := values[tag]
		if !ok {
			return "", &MissingPlaceholderError{Tag: tag, Section: s.Title}
		}
		out = strings.ReplaceAll(out, tag, value)
	}
	return out, nil
}

// SectionDocument is the persisted shape of a section.
type SectionDocument struct {
	Index   int    `bson:"index" json:"index"`
	Title   string `bson:"title" json:"title"`
	Content string `bson:"content" json:"content"`
	Type    string `bson:"type" json:"type"`
	Role    string `bson:"role,omitempty" json:"role,omitempty"`
}

func (s *Section) ToDocument() SectionDocument {
	return SectionDocument{
		Index:   s.Index,
		Title:   s.Title,
		Content: s.Content,
		Type:    string(s.Type),
		Role:    s.Role,
	}
}

func SectionFromDocument(doc SectionDocument) (*Section, error) {
	return NewSection(doc.Index, doc.Title, doc.Content, SectionType(doc.Type), doc.Role)
}

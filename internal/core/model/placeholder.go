package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Placeholder scopes. Experiment-level placeholders count either the whole
// agent population or the number of distinct roles in a combination; every
// other placeholder counts the agents of its own role.
const (
	ScopeAgents = "agents"
	ScopeRoles  = "roles"
)

var (
	tagPattern = regexp.MustCompile(`^<[A-Z][A-Z0-9_]*>$`)
	tagScanner = regexp.MustCompile(`<[A-Z][A-Z0-9_]*>`)
	agentsTag  = "<AGENTS_NUM>"
	rolesTag   = "<ROLES_NUM>"
)

// placeholderKind selects the value-generation rule.
type placeholderKind int

const (
	kindCount placeholderKind = iota // bare integer
	kindNum                         // "2 guards" / "1 guard"
	kindNoun                        // "guards" / "guard"
	kindPoss                        // "guards'" / "guard's"
)

// Placeholder is a named substitution tag with a deterministic
// text-generation rule keyed by a count.
//
// Persisted documents carry the tag only; the scope and the rule are
// re-derived from the tag name on load, so the derivation here is a
// stable contract.
type Placeholder struct {
	Tag   string
	Scope string

	kind placeholderKind
	noun string
}

// NewPlaceholder builds a placeholder from a bracket-delimited tag such as
// <GUARD_NUM>. The scope is derived from the tag: <AGENTS_NUM> and
// <ROLES_NUM> are experiment-scoped, everything else belongs to the role
// named by the tag prefix.
func NewPlaceholder(tag string) (*Placeholder, error) {
	if !tagPattern.MatchString(tag) {
		return nil, NewValidationError("placeholder tag %q does not match <NAME> format", tag)
	}
	p := &Placeholder{Tag: tag}
	switch tag {
	case agentsTag:
		p.Scope = ScopeAgents
		p.kind = kindCount
	case rolesTag:
		p.Scope = ScopeRoles
		p.kind = kindCount
	default:
		name := strings.TrimSuffix(strings.TrimPrefix(tag, "<"), ">")
		base, suffix := name, ""
		if i := strings.LastIndex(name, "_"); i >= 0 {
			base, suffix = name[:i], name[i+1:]
		}
		p.Scope = strings.ToLower(base)
		p.noun = strings.ToLower(base)
		switch suffix {
		case "NUM":
			p.kind = kindNum
		case "NOUN":
			p.kind = kindNoun
		case "POSS":
			p.kind = kindPoss
		default:
			return nil, NewValidationError("placeholder tag %q has unknown suffix %q", tag, suffix)
		}
	}
	return p, nil
}

// MustPlaceholder is NewPlaceholder for tags known valid at compile time.
func MustPlaceholder(tag string) *Placeholder {
	p, err := NewPlaceholder(tag)
	if err != nil {
		panic(err)
	}
	return p
}

// Resolve produces the display string for the given count. Pure and
// deterministic: same count, same output.
func (p *Placeholder) Resolve(count int) string {
	switch p.kind {
	case kindNum:
		if count == 1 {
			return fmt.Sprintf("1 %s", p.noun)
		}
		return fmt.Sprintf("%d %ss", count, p.noun)
	case kindNoun:
		if count == 1 {
			return p.noun
		}
		return p.noun + "s"
	case kindPoss:
		if count == 1 {
			return p.noun + "'s"
		}
		return p.noun + "s'"
	default:
		return strconv.Itoa(count)
	}
}

// ScanTags returns the placeholder tags referenced in text, in order of
// first occurrence, without duplicates.
func ScanTags(text string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, tag := range tagScanner.FindAllString(text, -1) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// PlaceholderDocument is the persisted shape of a placeholder.
type PlaceholderDocument struct {
	Tag string `bson:"tag" json:"tag"`
}

func (p *Placeholder) ToDocument() PlaceholderDocument {
	return PlaceholderDocument{Tag: p.Tag}
}

func PlaceholderFromDocument(doc PlaceholderDocument) (*Placeholder, error) {
	return NewPlaceholder(doc.Tag)
}

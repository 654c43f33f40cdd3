package model

import "fmt"

// ValidationError reports a malformed configuration: bad placeholder tag
// grammar, duplicate titles or names, or an unresolvable placeholder
// reference discovered while building an aggregate. Construction never
// yields a partial aggregate alongside one of these.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid configuration: %s: %v", e.Message, e.Cause)
	}
	return "invalid configuration: " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// MissingPlaceholderError reports a section render that referenced a tag
// absent from the resolved scope. It aborts that render call only.
type MissingPlaceholderError struct {
	Tag     string
	Section string
}

func (e *MissingPlaceholderError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("section %q references unresolved placeholder %s", e.Section, e.Tag)
	}
	return fmt.Sprintf("unresolved placeholder %s", e.Tag)
}

// NotFoundError reports a lookup by identifier that yielded nothing.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// PermissionError reports a mutating operation attempted by an identity
// other than the resource's creator. The operation is rejected before any
// store write.
type PermissionError struct {
	Action  string
	Actor   string
	Creator string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s denied: %q is not the creator (%q)", e.Action, e.Actor, e.Creator)
}

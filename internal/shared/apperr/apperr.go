package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for callers and transport mapping.
type Kind string

const (
	KindValidation           Kind = "validation"
	KindDuplicateApplication Kind = "duplicate_application"
	KindIllegalTransition    Kind = "illegal_transition"
	KindInvalidOpportunity   Kind = "invalid_opportunity"
	KindNotFound             Kind = "not_found"
	KindForbidden            Kind = "forbidden"
)

// Error is the structured error surfaced by the engine's services.
type Error struct {
	Kind    Kind
	Message string
	Field   string
	ID      string
	Fields  map[string]string
}

func (e *Error) Error() string {
	switch {
	case e.Field != "" && e.ID != "":
		return fmt.Sprintf("%s: %s (field=%s id=%s)", e.Kind, e.Message, e.Field, e.ID)
	case e.Field != "":
		return fmt.Sprintf("%s: %s (field=%s)", e.Kind, e.Message, e.Field)
	case e.ID != "":
		return fmt.Sprintf("%s: %s (id=%s)", e.Kind, e.Message, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Field == "" && t.ID == ""
}

// Validation reports malformed input on a single field.
func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// ValidationFields reports malformed input across several fields. The first
// field in sorted order is mirrored into Field.
func ValidationFields(fields map[string]string) *Error {
	first := ""
	for f := range fields {
		if first == "" || f < first {
			first = f
		}
	}
	msg := "invalid input"
	if first != "" {
		msg = fields[first]
	}
	return &Error{Kind: KindValidation, Field: first, Message: msg, Fields: fields}
}

// DuplicateApplication reports an existing live application for the pair.
func DuplicateApplication(profileID, opportunityID, existingID string) *Error {
	return &Error{
		Kind:    KindDuplicateApplication,
		Message: fmt.Sprintf("profile %s already applied to opportunity %s", profileID, opportunityID),
		Field:   "opportunityId",
		ID:      existingID,
	}
}

// IllegalTransition reports an edge the application lifecycle does not allow.
func IllegalTransition(applicationID, from, to string) *Error {
	return &Error{
		Kind:    KindIllegalTransition,
		Message: fmt.Sprintf("cannot move application from %s to %s", from, to),
		Field:   "state",
		ID:      applicationID,
	}
}

// InvalidOpportunity reports catalog data rejected at ingestion.
func InvalidOpportunity(id, field, message string) *Error {
	return &Error{Kind: KindInvalidOpportunity, ID: id, Field: field, Message: message}
}

// NotFound reports a missing entity.
func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found", ID: id}
}

// Forbidden reports an actor acting outside its role.
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// KindOf returns the Kind carried by err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

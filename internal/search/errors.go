package search

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable search failure category.
type Kind string

const (
	// InvalidReference means no usable identifier or file could be derived
	// from the similarity input. The user can correct it and retry.
	InvalidReference Kind = "invalid_reference"
	// SearchFailed covers transport errors, non-success statuses and
	// malformed payloads from a similarity or metadata endpoint.
	SearchFailed Kind = "search_failed"
	// LookupFailed is a per-record metadata miss. It is recovered locally
	// and never aborts a search.
	LookupFailed Kind = "lookup_failed"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

// Is matches another *E by kind, so errors.Is(err, &E{Kind: SearchFailed})
// works regardless of message.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	return ok && t.Kind == e.Kind
}

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

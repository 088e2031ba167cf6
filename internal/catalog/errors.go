package catalog

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so callers can map them to exit
// codes or HTTP statuses without string matching.
type ErrorKind string

// Error kinds surfaced by the resolution pipeline.
const (
	KindInvalidArgs ErrorKind = "invalid_args"
	KindNetwork     ErrorKind = "network"
	KindParse       ErrorKind = "parse"
	KindNoResults   ErrorKind = "no_results"
)

// Error is a kind-tagged pipeline error carrying an optional wrapped cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a tagged error. op names the failing operation.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, or an empty kind for untagged errors.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsInvalidArgs reports whether err is tagged as bad caller input.
func IsInvalidArgs(err error) bool { return KindOf(err) == KindInvalidArgs }

// IsNetwork reports whether err is tagged as an unrecoverable transport failure.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// IsParse reports whether err is tagged as a structurally unrecoverable extraction.
func IsParse(err error) bool { return KindOf(err) == KindParse }

// IsNoResults reports whether err is tagged as a zero-candidate search.
func IsNoResults(err error) bool { return KindOf(err) == KindNoResults }

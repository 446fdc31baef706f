// Package rerr defines the error kinds used across the repository core.
//
// Components never return bare errors for conditions a caller might want
// to branch on; they wrap the cause in an *Error carrying one of the
// Kind values below, so callers can use errors.As / Is instead of
// matching on message text.
package rerr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// NotFound: job id, dependency target, branch, tag, or source path
	// does not exist.
	NotFound Kind = iota
	// AlreadyExists: init target exists, or a fresh job id collided
	// with an existing directory (a programmer error, not user error).
	AlreadyExists
	// Invalid: malformed dependency document, unknown query operator,
	// non-absolute ignore pattern, unrecognized git URL, or both
	// branch and tag set on a git dependency.
	Invalid
	// Unresolved: hashing or checkout attempted on a deferred
	// dependency that has not been resolved to a concrete target.
	Unresolved
	// Conflict: removal of a job with existing dependents, or commit
	// with an unmet dependency.
	Conflict
	// Version: on-disk repository format does not match what this
	// implementation supports.
	Version
	// External: a git subprocess failed, or a filesystem operation
	// failed for a reason outside the caller's control.
	External
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case AlreadyExists:
		return "already_exists"
	case Invalid:
		return "invalid"
	case Unresolved:
		return "unresolved"
	case Conflict:
		return "conflict"
	case Version:
		return "version"
	case External:
		return "external"
	default:
		return "unknown"
	}
}

// Error wraps a cause with the Kind a caller can branch on.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// New creates a Kind-classified error with no wrapped cause.
func New(kind Kind, msg string) error {
	return &Error{kind: kind, msg: msg}
}

// Newf is like New but formats msg.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind, prefixing msg.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, msg: msg, err: err}
}

// Wrapf is like Wrap but formats msg.
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// Is reports whether err (or any error it wraps) was classified as kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.kind, true
	}
	return 0, false
}

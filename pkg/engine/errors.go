package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies engine failures so callers and retry policies can tell
// them apart.
type Kind string

const (
	// KindIntegrity marks content integrity failures (checksum mismatch,
	// malformed bundle). Never retryable.
	KindIntegrity Kind = "integrity"
	// KindTransient marks I/O failures (remote storage, database) that a
	// retry may resolve.
	KindTransient Kind = "transient"
	// KindConflict marks pre-condition rejections (wrong status, missing
	// backup). Reported synchronously, never persisted to the ledger.
	KindConflict Kind = "conflict"
)

// Error is a classified engine failure. Integrity and transient errors are
// also persisted to the record's errorMessage with their kind as prefix, so
// the ledger alone is enough to drive a retry policy.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func integrityErr(msg string, err error) *Error {
	return &Error{Kind: KindIntegrity, Msg: msg, Err: err}
}

func transientErr(msg string, err error) *Error {
	return &Error{Kind: KindTransient, Msg: msg, Err: err}
}

func conflictErr(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Msg: msg, Err: err}
}

// NewError creates a classified error for callers outside the engine, such
// as the job queue.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf returns the kind of an engine error, or "" for other errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable reports whether a persisted errorMessage marks a failure the
// retry path may re-attempt. Only transient failures qualify.
func IsRetryable(errorMessage string) bool {
	return strings.HasPrefix(errorMessage, string(KindTransient)+":")
}

package session

import (
	"errors"
	"fmt"

	"github.com/roach88/xqdb/internal/store"
)

// ErrorCode categorizes session errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the named document does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeExists indicates a document with the name already exists.
	ErrCodeExists ErrorCode = "DOCUMENT_EXISTS"

	// ErrCodeInvalidTarget indicates an update addressed a position that
	// cannot take it.
	ErrCodeInvalidTarget ErrorCode = "INVALID_TARGET"

	// ErrCodeClosed indicates the session has been closed.
	ErrCodeClosed ErrorCode = "SESSION_CLOSED"
)

// Error is a session-level failure around a document.
type Error struct {
	Code     ErrorCode
	Op       string
	Document string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Code)
	if e.Document != "" {
		msg += fmt.Sprintf(" (document=%s)", e.Document)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a missing document error, from the
// session or the store.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound) || errors.Is(err, store.ErrNotFound)
}

// IsExists reports whether err is a duplicate document error.
func IsExists(err error) bool { return hasCode(err, ErrCodeExists) }

// IsInvalidTarget reports whether err is a rejected update target.
func IsInvalidTarget(err error) bool { return hasCode(err, ErrCodeInvalidTarget) }

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

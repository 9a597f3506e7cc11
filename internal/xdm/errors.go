package xdm

import (
	"errors"
	"fmt"
)

// QueryError is an error raised while compiling or evaluating a query.
//
// Kinds:
//   - KindStatic: syntax or compile-time error
//   - KindType: invalid type, e.g. a sequence without boolean value
//   - KindArity: function called with the wrong number of arguments
//   - KindAborted: evaluation stopped by cancellation or step budget
//   - KindInternal: an invariant of the evaluator did not hold
//
// Line and Col locate the error in the query source when known (1-based,
// 0 means unknown).
type QueryError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Line    int
	Col     int

	cause error
}

// ErrorKind categorizes query errors.
type ErrorKind string

const (
	KindStatic   ErrorKind = "STATIC"
	KindType     ErrorKind = "TYPE"
	KindArity    ErrorKind = "ARITY"
	KindAborted  ErrorKind = "ABORTED"
	KindInternal ErrorKind = "INTERNAL"
)

// Error codes.
const (
	CodeEBV          = "FORG0006"
	CodeType         = "XPTY0004"
	CodeNoFunction   = "XPST0017"
	CodeSyntax       = "XPST0003"
	CodeUndefinedVar = "XPST0008"
	CodeUnknownType  = "XPST0051"
	CodeNoContext    = "XPDY0002"
	CodeNotNode      = "XPTY0019"
	CodeCast         = "FORG0001"
	CodeDivZero      = "FOAR0001"
	CodeOverflow     = "FOAR0002"
	CodeLimit        = "XPDY0130"
	CodeAtomize      = "FOTY0013"
	CodeNoDoc        = "FODC0002"
	CodeAborted      = "XQDB0001"
	CodeSteps        = "XQDB0002"
	CodeInternal     = "XQDB0000"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] %s (line %d, column %d)", e.Code, e.Message, e.Line, e.Col)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the cause of an aborted evaluation, if any.
func (e *QueryError) Unwrap() error { return e.cause }

// At returns a copy of e located at line and col. Located errors keep their
// first location.
func (e *QueryError) At(line, col int) *QueryError {
	if e.Line > 0 {
		return e
	}
	cp := *e
	cp.Line, cp.Col = line, col
	return &cp
}

// TypeError creates a KindType error.
func TypeError(code, format string, args ...any) *QueryError {
	return &QueryError{Kind: KindType, Code: code, Message: fmt.Sprintf(format, args...)}
}

// ArityError creates a KindArity error for a dynamic call of fn with got
// arguments.
func ArityError(fn string, want, got int) *QueryError {
	return &QueryError{
		Kind:    KindArity,
		Code:    CodeType,
		Message: fmt.Sprintf("%s expects %d argument(s), %d supplied", fn, want, got),
	}
}

// UnknownArity creates a KindArity error for a static call of a known
// function with an unsupported number of arguments.
func UnknownArity(fn string, got int) *QueryError {
	return &QueryError{
		Kind:    KindArity,
		Code:    CodeNoFunction,
		Message: fmt.Sprintf("function %s does not accept %d argument(s)", fn, got),
	}
}

// StaticError creates a KindStatic error.
func StaticError(code, format string, args ...any) *QueryError {
	return &QueryError{Kind: KindStatic, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Aborted creates a KindAborted error caused by cause, usually
// context.Canceled or context.DeadlineExceeded.
func Aborted(cause error) *QueryError {
	return &QueryError{
		Kind:    KindAborted,
		Code:    CodeAborted,
		Message: fmt.Sprintf("evaluation aborted: %v", cause),
		cause:   cause,
	}
}

// StepsExceeded creates a KindAborted error for an exhausted step budget.
func StepsExceeded(steps, limit int64) *QueryError {
	return &QueryError{
		Kind:    KindAborted,
		Code:    CodeSteps,
		Message: fmt.Sprintf("evaluation exceeded step budget (%d >= %d)", steps, limit),
	}
}

// Internal creates a KindInternal error.
func Internal(format string, args ...any) *QueryError {
	return &QueryError{Kind: KindInternal, Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// IsAborted reports whether err is or wraps an aborted-evaluation error.
func IsAborted(err error) bool { return isKind(err, KindAborted) }

// IsTypeError reports whether err is or wraps a type error.
func IsTypeError(err error) bool { return isKind(err, KindType) }

// IsArityError reports whether err is or wraps an arity error.
func IsArityError(err error) bool { return isKind(err, KindArity) }

// IsStaticError reports whether err is or wraps a static error.
func IsStaticError(err error) bool { return isKind(err, KindStatic) }

// ErrorCode returns the code of the QueryError in err's chain, or "".
func ErrorCode(err error) string {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

func isKind(err error, k ErrorKind) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind == k
	}
	return false
}

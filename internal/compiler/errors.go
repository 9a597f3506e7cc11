package compiler

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/xqdb/internal/xdm"
)

// Compile error codes (E200-E299)
const (
	ErrInvalidQuery = "E200" // descriptor failed queryir.Validate
	ErrExprSyntax   = "E201" // expression does not parse
	ErrUndefinedVar = "E202" // expression refers to an unbound variable
	ErrPipeline     = "E203" // clause list rejected by the pipeline
	ErrCUE          = "E210" // CUE value malformed or incomplete
	ErrCUEShape     = "E211" // CUE value has the wrong structure
)

// CompileError represents a compilation error with source position.
type CompileError struct {
	Code    string
	Field   string // e.g. "clauses[2].in"
	Message string
	Pos     token.Pos // CUE position, if compiled from CUE
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: [%s] %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Unwrap returns the underlying query or validation error.
func (e *CompileError) Unwrap() error { return e.Err }

// exprError wraps an error from the expression parser.
func exprError(field string, err error) *CompileError {
	code := ErrExprSyntax
	if xdm.ErrorCode(err) == xdm.CodeUndefinedVar {
		code = ErrUndefinedVar
	}
	return &CompileError{Code: code, Field: field, Message: err.Error(), Err: err}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	ce := &CompileError{Code: ErrCUE, Field: "cue", Message: first.Error(), Err: err}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

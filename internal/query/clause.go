package query

import (
	"github.com/roach88/xqdb/internal/xdm"
)

// Eval produces tuples of variable bindings. Next binds the variables of
// the next tuple into the context and reports whether there was one. Once
// Next returns false it keeps returning false.
type Eval interface {
	Next(qc *Context) (bool, error)
}

// Clause is one stage of a FLWOR expression. Only the clause types of this
// package implement it.
type Clause interface {
	// Eval returns an evaluator wrapping sub, the evaluator of the
	// preceding clauses. Each call returns independent state.
	Eval(sub Eval) Eval
	// Declares returns the variables bound by the clause.
	Declares() []*Var
	// String returns the clause syntax.
	String() string

	optimize(o *Optimizer) error
	// calcSize maps the number of incoming tuples to outgoing tuples;
	// -1 means unknown.
	calcSize(n int) int
	calcOcc(o xdm.Occ) xdm.Occ
}

// startEval yields the single empty tuple that the first clause extends.
type startEval struct {
	done bool
}

func (e *startEval) Next(*Context) (bool, error) {
	if e.done {
		return false, nil
	}
	e.done = true
	return true, nil
}

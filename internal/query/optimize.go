package query

import (
	"context"
	"fmt"
)

// Optimizer carries the state of one static optimization pass. It records
// a note for every rewrite it applies.
type Optimizer struct {
	qc    *Context
	notes []string
}

// NewOptimizer creates an optimizer. Constant folding evaluates with an
// empty context: no variables, no focus, no documents.
func NewOptimizer() *Optimizer {
	return &Optimizer{qc: NewContext(context.Background(), 0)}
}

// fold evaluates a constant expression into a literal. An expression that
// fails to evaluate is kept, so the error is raised at run time if the
// expression is reached.
func (o *Optimizer) fold(e Expr) Expr {
	v, err := e.Value(o.qc)
	if err != nil {
		o.note("%s: not folded: %v", e, err)
		return e
	}
	lit := &Literal{V: v}
	o.note("%s: folded to %s", e, lit)
	return lit
}

func (o *Optimizer) note(format string, args ...any) {
	o.notes = append(o.notes, fmt.Sprintf(format, args...))
}

// Rewrites returns the notes of all applied rewrites in order.
func (o *Optimizer) Rewrites() []string { return o.notes }

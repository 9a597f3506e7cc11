package query

import "github.com/roach88/xqdb/internal/xdm"

// Var is a variable declared in a query. Each variable owns one slot of
// the evaluation context.
type Var struct {
	Name string
	Slot int
	// Type is the static type, narrowed by the optimizer.
	Type xdm.SeqType
	// External variables are bound by the caller before evaluation.
	External bool
}

// String returns the variable reference syntax.
func (v *Var) String() string { return "$" + v.Name }

// Scope allocates variable slots for one query.
type Scope struct {
	vars []*Var
}

// NewScope creates an empty scope.
func NewScope() *Scope { return &Scope{} }

// Declare allocates a new variable. Redeclaring a name creates a new slot
// that shadows the old one.
func (s *Scope) Declare(name string) *Var {
	v := &Var{Name: name, Slot: len(s.vars), Type: xdm.SeqItems}
	s.vars = append(s.vars, v)
	return v
}

// DeclareExternal allocates a variable bound by the caller.
func (s *Scope) DeclareExternal(name string) *Var {
	v := s.Declare(name)
	v.External = true
	return v
}

// Len returns the number of slots.
func (s *Scope) Len() int { return len(s.vars) }

// Externals returns the external variables in declaration order.
func (s *Scope) Externals() []*Var {
	var out []*Var
	for _, v := range s.vars {
		if v.External {
			out = append(out, v)
		}
	}
	return out
}

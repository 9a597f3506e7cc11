package query

import (
	"strconv"
	"strings"

	"github.com/roach88/xqdb/internal/xdm"
)

// Expr is a compiled expression.
type Expr interface {
	// Iter evaluates the expression lazily.
	Iter(qc *Context) (xdm.Iter, error)
	// Value evaluates the expression into an immutable value.
	Value(qc *Context) (xdm.Value, error)
	// SeqType returns the static type.
	SeqType() xdm.SeqType
	// Size returns the static number of items, or -1 if unknown.
	Size() int
	// Optimize returns a simplified equivalent expression.
	Optimize(o *Optimizer) (Expr, error)
	// String returns query syntax for the expression.
	String() string
}

func valueIter(e Expr, qc *Context) (xdm.Iter, error) {
	v, err := e.Value(qc)
	if err != nil {
		return nil, err
	}
	return v.Iter(), nil
}

func iterValue(e Expr, qc *Context) (xdm.Value, error) {
	it, err := e.Iter(qc)
	if err != nil {
		return nil, err
	}
	return xdm.Collect(it)
}

func sizeOf(st xdm.SeqType) int {
	if st.Occ.Min == st.Occ.Max {
		return st.Occ.Min
	}
	return -1
}

func optimizeAll(o *Optimizer, exprs []Expr) error {
	for i, e := range exprs {
		opt, err := e.Optimize(o)
		if err != nil {
			return err
		}
		exprs[i] = opt
	}
	return nil
}

func literals(exprs ...Expr) bool {
	for _, e := range exprs {
		if _, ok := e.(*Literal); !ok {
			return false
		}
	}
	return true
}

func joinExprs(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}

// Literal is a constant value.
type Literal struct {
	V xdm.Value
}

func (l *Literal) Iter(*Context) (xdm.Iter, error)      { return l.V.Iter(), nil }
func (l *Literal) Value(*Context) (xdm.Value, error)    { return l.V, nil }
func (l *Literal) Size() int                            { return l.V.Size() }
func (l *Literal) Optimize(*Optimizer) (Expr, error)    { return l, nil }

// SeqType implements Expr.
func (l *Literal) SeqType() xdm.SeqType {
	if l.V.Size() == 0 {
		return xdm.SeqEmpty
	}
	return xdm.SeqType{Type: l.V.SeqType().Type, Occ: xdm.OccOfSize(l.V.Size())}
}

// String implements Expr.
func (l *Literal) String() string {
	switch l.V.Size() {
	case 0:
		return "()"
	case 1:
		return itemString(l.V.ItemAt(0))
	}
	return "(" + seqString(l.V) + ")"
}

// seqString writes ranges and joined values by their parts, so their items
// are never enumerated.
func seqString(v xdm.Value) string {
	switch v := v.(type) {
	case *xdm.RangeSeq:
		return v.String()
	case *xdm.ChainSeq:
		parts := make([]string, len(v.Parts()))
		for i, p := range v.Parts() {
			parts[i] = seqString(p)
		}
		return strings.Join(parts, ", ")
	}
	parts := make([]string, v.Size())
	for i := range parts {
		parts[i] = itemString(v.ItemAt(i))
	}
	return strings.Join(parts, ", ")
}

func itemString(it xdm.Item) string {
	switch v := it.(type) {
	case xdm.Str:
		return `"` + strings.ReplaceAll(string(v), `"`, `""`) + `"`
	case xdm.Untyped:
		return `"` + strings.ReplaceAll(string(v), `"`, `""`) + `"`
	case xdm.Bool:
		return v.String() + "()"
	case xdm.Dbl:
		s := v.String()
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			return s + "e0"
		}
		return s
	}
	return it.String()
}

// VarRef reads a variable.
type VarRef struct {
	Var *Var
}

func (r *VarRef) Iter(qc *Context) (xdm.Iter, error)   { return valueIter(r, qc) }
func (r *VarRef) Value(qc *Context) (xdm.Value, error) { return qc.Get(r.Var) }
func (r *VarRef) SeqType() xdm.SeqType                 { return r.Var.Type }
func (r *VarRef) Size() int                            { return sizeOf(r.Var.Type) }
func (r *VarRef) Optimize(*Optimizer) (Expr, error)    { return r, nil }
func (r *VarRef) String() string                       { return r.Var.String() }

// ContextItem is the "." expression.
type ContextItem struct{}

func (c *ContextItem) Iter(qc *Context) (xdm.Iter, error) { return valueIter(c, qc) }
func (c *ContextItem) SeqType() xdm.SeqType               { return xdm.SeqType{Type: xdm.TypeItem, Occ: xdm.OccOne} }
func (c *ContextItem) Size() int                          { return 1 }
func (c *ContextItem) Optimize(*Optimizer) (Expr, error)  { return c, nil }
func (c *ContextItem) String() string                     { return "." }

// Value implements Expr.
func (c *ContextItem) Value(qc *Context) (xdm.Value, error) {
	return contextItem(qc)
}

func contextItem(qc *Context) (xdm.Item, error) {
	it := qc.Focus().Item
	if it == nil {
		return nil, xdm.TypeError(xdm.CodeNoContext, "context item is undefined")
	}
	return it, nil
}

// Seq is the comma operator.
type Seq struct {
	Exprs []Expr
}

// Iter evaluates the operands one after the other.
func (s *Seq) Iter(qc *Context) (xdm.Iter, error) {
	i := 0
	var cur xdm.Iter
	return xdm.IterFunc(func() (xdm.Item, error) {
		for {
			if cur != nil {
				it, err := cur.Next()
				if err != nil || it != nil {
					return it, err
				}
				cur = nil
			}
			if i >= len(s.Exprs) {
				return nil, nil
			}
			var err error
			if cur, err = s.Exprs[i].Iter(qc); err != nil {
				return nil, err
			}
			i++
		}
	}), nil
}

// Value implements Expr.
func (s *Seq) Value(qc *Context) (xdm.Value, error) {
	vs := make([]xdm.Value, len(s.Exprs))
	for i, e := range s.Exprs {
		v, err := e.Value(qc)
		if err != nil {
			return nil, err
		}
		vs[i] = v
	}
	return xdm.Join(vs...)
}

// SeqType implements Expr.
func (s *Seq) SeqType() xdm.SeqType {
	st := xdm.SeqEmpty
	for _, e := range s.Exprs {
		et := e.SeqType()
		if et.Occ.Zero() {
			continue
		}
		if st.Occ.Zero() {
			st = et
			continue
		}
		st = xdm.SeqType{Type: st.Type.Union(et.Type), Occ: st.Occ.Add(et.Occ)}
	}
	return st
}

// Size implements Expr.
func (s *Seq) Size() int { return sizeOf(s.SeqType()) }

// Optimize flattens nested sequences, drops empty operands and folds
// constant sequences.
func (s *Seq) Optimize(o *Optimizer) (Expr, error) {
	if err := optimizeAll(o, s.Exprs); err != nil {
		return nil, err
	}
	var flat []Expr
	for _, e := range s.Exprs {
		switch e := e.(type) {
		case *Seq:
			flat = append(flat, e.Exprs...)
			continue
		case *Literal:
			if e.V.Size() == 0 {
				continue
			}
		}
		flat = append(flat, e)
	}
	switch len(flat) {
	case 0:
		return &Literal{V: xdm.Empty}, nil
	case 1:
		return flat[0], nil
	}
	s.Exprs = flat
	if literals(flat...) {
		return o.fold(s), nil
	}
	return s, nil
}

// String implements Expr.
func (s *Seq) String() string { return "(" + joinExprs(s.Exprs, ", ") + ")" }

// Range is the "to" operator.
type Range struct {
	Lo, Hi Expr
}

func (r *Range) Iter(qc *Context) (xdm.Iter, error) { return valueIter(r, qc) }
func (r *Range) SeqType() xdm.SeqType               { return xdm.SeqIntegers }
func (r *Range) Size() int                          { return -1 }
func (r *Range) String() string                     { return "(" + r.Lo.String() + " to " + r.Hi.String() + ")" }

// Value implements Expr.
func (r *Range) Value(qc *Context) (xdm.Value, error) {
	lo, ok, err := integerOperand(qc, r.Lo, "to")
	if err != nil || !ok {
		return xdm.Empty, err
	}
	hi, ok, err := integerOperand(qc, r.Hi, "to")
	if err != nil || !ok {
		return xdm.Empty, err
	}
	return xdm.Range(lo, hi)
}

// Optimize implements Expr.
func (r *Range) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if r.Lo, err = r.Lo.Optimize(o); err != nil {
		return nil, err
	}
	if r.Hi, err = r.Hi.Optimize(o); err != nil {
		return nil, err
	}
	if literals(r.Lo, r.Hi) {
		return o.fold(r), nil
	}
	return r, nil
}

// integerOperand evaluates e to an optional integer.
func integerOperand(qc *Context, e Expr, op string) (int64, bool, error) {
	v, err := e.Value(qc)
	if err != nil {
		return 0, false, err
	}
	it, err := xdm.AtomizeOpt(v, op)
	if err != nil || it == nil {
		return 0, false, err
	}
	switch it := it.(type) {
	case xdm.Int:
		return int64(it), true, nil
	case xdm.Untyped:
		n, perr := strconv.ParseInt(strings.TrimSpace(string(it)), 10, 64)
		if perr != nil {
			return 0, false, xdm.TypeError(xdm.CodeCast, "cannot cast %q to xs:integer", string(it))
		}
		return n, true, nil
	}
	return 0, false, xdm.TypeError(xdm.CodeType, "%s: expected xs:integer, got %s", op, it.Type())
}

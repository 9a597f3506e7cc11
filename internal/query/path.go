package query

import (
	"math"
	"strings"

	"github.com/roach88/xqdb/internal/node"
	"github.com/roach88/xqdb/internal/table"
	"github.com/roach88/xqdb/internal/xdm"
)

// NodeTest selects nodes by kind and name.
//
// Name matches the lexical name: "p:a" matches nodes named exactly p:a,
// "*:a" any node with local name a, "p:*" any name with prefix p, and ""
// or "*" any name.
type NodeTest struct {
	// AnyKind matches every node kind (node()).
	AnyKind bool
	Kind    table.Kind
	Name    string
}

// Matches reports whether n passes the test.
func (nt NodeTest) Matches(n *node.Node) bool {
	if nt.AnyKind {
		return true
	}
	if n.Kind() != nt.Kind {
		return false
	}
	if nt.Name == "" || nt.Name == "*" {
		return true
	}
	name := n.Table().NodeName(n.Pre())
	if local, ok := strings.CutPrefix(nt.Name, "*:"); ok {
		if _, l, found := strings.Cut(name, ":"); found {
			return l == local
		}
		return name == local
	}
	if prefix, ok := strings.CutSuffix(nt.Name, ":*"); ok {
		p, _, found := strings.Cut(name, ":")
		return found && p == prefix
	}
	return name == nt.Name
}

// String returns the node test syntax.
func (nt NodeTest) String() string {
	if nt.AnyKind {
		return "node()"
	}
	switch nt.Kind {
	case table.KindElem, table.KindAttr:
		if nt.Name == "" {
			return "*"
		}
		return nt.Name
	case table.KindPI:
		return "processing-instruction(" + nt.Name + ")"
	case table.KindDoc:
		return "document-node()"
	}
	return nt.Kind.String() + "()"
}

func (nt NodeTest) itemType() xdm.Type {
	if nt.AnyKind {
		return xdm.TypeNode
	}
	return node.KindType(nt.Kind)
}

// Step is an axis step evaluated against the context node.
type Step struct {
	Axis  node.Axis
	Test  NodeTest
	Preds []Expr
}

func (s *Step) Iter(qc *Context) (xdm.Iter, error) { return valueIter(s, qc) }
func (s *Step) Size() int                          { return -1 }

// SeqType implements Expr.
func (s *Step) SeqType() xdm.SeqType {
	occ := xdm.OccZeroOrMore
	switch s.Axis {
	case node.AxisSelf, node.AxisParent:
		occ = xdm.OccZeroOrOne
	}
	return xdm.SeqType{Type: s.Test.itemType(), Occ: occ}
}

// Value returns the matching nodes in axis order.
func (s *Step) Value(qc *Context) (xdm.Value, error) {
	it, err := contextItem(qc)
	if err != nil {
		return nil, err
	}
	origin, ok := it.(*node.Node)
	if !ok {
		return nil, xdm.TypeError(xdm.CodeNotNode, "context item of %s is not a node", s)
	}
	var items []xdm.Item
	ax := origin.Axis(s.Axis)
	for n := ax.Next(); n != nil; n = ax.Next() {
		if s.Test.Matches(n) {
			items = append(items, n)
		}
	}
	return filterAll(qc, xdm.FromItems(items...), s.Preds)
}

// Optimize implements Expr.
func (s *Step) Optimize(o *Optimizer) (Expr, error) {
	if err := optimizeAll(o, s.Preds); err != nil {
		return nil, err
	}
	return s, nil
}

// String implements Expr.
func (s *Step) String() string {
	var sb strings.Builder
	sb.WriteString(s.Axis.String())
	sb.WriteString("::")
	sb.WriteString(s.Test.String())
	for _, p := range s.Preds {
		sb.WriteString("[" + p.String() + "]")
	}
	return sb.String()
}

// filterAll applies predicates in turn.
func filterAll(qc *Context, v xdm.Value, preds []Expr) (xdm.Value, error) {
	var err error
	for _, p := range preds {
		if v, err = filterValue(qc, v, p); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// filterValue applies one predicate to v. A numeric predicate selects by
// position; any other predicate by effective boolean value.
func filterValue(qc *Context, v xdm.Value, pred Expr) (xdm.Value, error) {
	if pos, ok := positional(pred, v.Size()); ok {
		return itemAt(v, pos), nil
	}
	return xdm.Collect(&filterIter{qc: qc, v: v, pred: pred})
}

// positional resolves predicates that select a single position without
// being evaluated per item: numeric literals and last(). It returns 0 if
// no position matches.
func positional(pred Expr, size int) (int, bool) {
	switch p := pred.(type) {
	case *Literal:
		if p.V.Size() != 1 {
			return 0, false
		}
		switch n := p.V.ItemAt(0).(type) {
		case xdm.Int:
			if n >= 1 && int64(n) <= int64(size) {
				return int(n), true
			}
			return 0, true
		case xdm.Dbl:
			f := float64(n)
			if f >= 1 && f <= float64(size) && f < math.MaxInt64 && f == math.Trunc(f) {
				return int(f), true
			}
			return 0, true
		}
	case *Call:
		if p.fn.name == "last" && len(p.Args) == 0 {
			return size, true
		}
	}
	return 0, false
}

// itemAt returns the item at the 1-based position pos, or the empty
// sequence.
func itemAt(v xdm.Value, pos int) xdm.Value {
	if pos < 1 || pos > v.Size() {
		return xdm.Empty
	}
	return v.ItemAt(pos - 1)
}

// filterIter yields the items of v for which pred holds, evaluating pred
// with each item as the focus.
type filterIter struct {
	qc   *Context
	v    xdm.Value
	pred Expr
	i    int
}

// Next implements xdm.Iter.
func (it *filterIter) Next() (xdm.Item, error) {
	size := it.v.Size()
	for it.i < size {
		if it.i%pollInterval == 0 {
			if err := it.qc.Ctx().Err(); err != nil {
				return nil, xdm.Aborted(err)
			}
		}
		item := it.v.ItemAt(it.i)
		it.i++
		saved := it.qc.SetFocus(Focus{Item: item, Pos: it.i, Size: size})
		r, err := it.pred.Value(it.qc)
		it.qc.SetFocus(saved)
		if err != nil {
			return nil, err
		}
		keep, err := predicateTrue(r, it.i)
		if err != nil {
			return nil, err
		}
		if keep {
			return item, nil
		}
	}
	return nil, nil
}

// pollInterval is the number of items a filter tests between checks for
// cancellation.
const pollInterval = 1024

func predicateTrue(v xdm.Value, pos int) (bool, error) {
	if v.Size() == 1 {
		switch n := v.ItemAt(0).(type) {
		case xdm.Int:
			return int(n) == pos, nil
		case xdm.Dbl:
			return float64(n) == float64(pos), nil
		}
	}
	return v.EBV()
}

// Path evaluates each step with every item of the previous result as the
// context item. Node results are returned in document order without
// duplicates.
type Path struct {
	// Root is the first operand; nil starts at the context item.
	Root  Expr
	Steps []Expr
}

func (p *Path) Iter(qc *Context) (xdm.Iter, error) { return valueIter(p, qc) }
func (p *Path) Size() int                          { return -1 }

// SeqType implements Expr.
func (p *Path) SeqType() xdm.SeqType {
	last := p.Steps[len(p.Steps)-1].SeqType()
	return xdm.SeqType{Type: last.Type, Occ: xdm.OccZeroOrMore}
}

// Value implements Expr.
func (p *Path) Value(qc *Context) (xdm.Value, error) {
	var cur xdm.Value
	if p.Root == nil {
		it, err := contextItem(qc)
		if err != nil {
			return nil, err
		}
		cur = it
	} else {
		v, err := p.Root.Value(qc)
		if err != nil {
			return nil, err
		}
		cur = v
	}

	saved := qc.Focus()
	defer qc.SetFocus(saved)

	for si, step := range p.Steps {
		n := cur.Size()
		var nodes []*node.Node
		var atoms []xdm.Item
		for i := range n {
			it := cur.ItemAt(i)
			if _, ok := it.(*node.Node); !ok {
				return nil, xdm.TypeError(xdm.CodeNotNode, "path operand %s is not a node", it.Type())
			}
			qc.SetFocus(Focus{Item: it, Pos: i + 1, Size: n})
			v, err := step.Value(qc)
			if err != nil {
				return nil, err
			}
			for j := range v.Size() {
				r := v.ItemAt(j)
				if nd, ok := r.(*node.Node); ok {
					nodes = append(nodes, nd)
				} else {
					atoms = append(atoms, r)
				}
			}
		}
		switch {
		case len(nodes) > 0 && len(atoms) > 0:
			return nil, xdm.TypeError("XPTY0018", "path step %s mixes nodes and atomic values", step)
		case len(atoms) > 0:
			if si < len(p.Steps)-1 {
				return nil, xdm.TypeError(xdm.CodeNotNode, "path step %s yields atomic values", step)
			}
			cur = xdm.FromItems(atoms...)
		default:
			cur = nodeValue(node.Sort(nodes))
		}
	}
	return cur, nil
}

// Optimize implements Expr.
func (p *Path) Optimize(o *Optimizer) (Expr, error) {
	if p.Root != nil {
		r, err := p.Root.Optimize(o)
		if err != nil {
			return nil, err
		}
		p.Root = r
		if r.SeqType().Occ.Zero() {
			return &Literal{V: xdm.Empty}, nil
		}
	}
	if err := optimizeAll(o, p.Steps); err != nil {
		return nil, err
	}
	return p, nil
}

// String implements Expr.
func (p *Path) String() string {
	var sb strings.Builder
	if p.Root != nil {
		sb.WriteString(p.Root.String())
		sb.WriteString("/")
	}
	sb.WriteString(joinExprs(p.Steps, "/"))
	return sb.String()
}

func nodeValue(nodes []*node.Node) xdm.Value {
	items := make([]xdm.Item, len(nodes))
	for i, n := range nodes {
		items[i] = n
	}
	return xdm.FromItems(items...)
}

// Root is the leading "/" of a path: the root of the context node.
type Root struct{}

func (r *Root) Iter(qc *Context) (xdm.Iter, error) { return valueIter(r, qc) }
func (r *Root) SeqType() xdm.SeqType               { return xdm.SeqType{Type: xdm.TypeNode, Occ: xdm.OccOne} }
func (r *Root) Size() int                          { return 1 }
func (r *Root) Optimize(*Optimizer) (Expr, error)  { return r, nil }
func (r *Root) String() string                     { return "root()" }

// Value implements Expr.
func (r *Root) Value(qc *Context) (xdm.Value, error) {
	it, err := contextItem(qc)
	if err != nil {
		return nil, err
	}
	n, ok := it.(*node.Node)
	if !ok {
		return nil, xdm.TypeError(xdm.CodeNotNode, "context item is not a node")
	}
	return n.Root(), nil
}

// Filter applies predicates to the result of a primary expression.
type Filter struct {
	E     Expr
	Preds []Expr
}

func (f *Filter) Size() int { return -1 }

// SeqType implements Expr.
func (f *Filter) SeqType() xdm.SeqType {
	st := f.E.SeqType()
	return xdm.SeqType{Type: st.Type, Occ: st.Occ.Union(xdm.OccZero)}
}

// Value implements Expr.
func (f *Filter) Value(qc *Context) (xdm.Value, error) {
	v, err := f.E.Value(qc)
	if err != nil {
		return nil, err
	}
	return filterAll(qc, v, f.Preds)
}

// Iter applies all but the last predicate and streams the items kept by
// the last one. Only the input value is held, never a copy of its items.
func (f *Filter) Iter(qc *Context) (xdm.Iter, error) {
	if len(f.Preds) == 0 {
		return f.E.Iter(qc)
	}
	v, err := f.E.Value(qc)
	if err != nil {
		return nil, err
	}
	last := len(f.Preds) - 1
	if v, err = filterAll(qc, v, f.Preds[:last]); err != nil {
		return nil, err
	}
	if pos, ok := positional(f.Preds[last], v.Size()); ok {
		return itemAt(v, pos).Iter(), nil
	}
	return &filterIter{qc: qc, v: v, pred: f.Preds[last]}, nil
}

// Optimize implements Expr.
func (f *Filter) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if f.E, err = f.E.Optimize(o); err != nil {
		return nil, err
	}
	if err := optimizeAll(o, f.Preds); err != nil {
		return nil, err
	}
	if len(f.Preds) == 0 {
		return f.E, nil
	}
	if literals(f.E) && literals(f.Preds...) {
		return o.fold(f), nil
	}
	return f, nil
}

// String implements Expr.
func (f *Filter) String() string {
	var sb strings.Builder
	sb.WriteString(f.E.String())
	for _, p := range f.Preds {
		sb.WriteString("[" + p.String() + "]")
	}
	return sb.String()
}

// Union merges two node sequences in document order.
type Union struct {
	L, R Expr
}

func (u *Union) Iter(qc *Context) (xdm.Iter, error) { return valueIter(u, qc) }
func (u *Union) Size() int                          { return -1 }
func (u *Union) String() string                     { return "(" + u.L.String() + " | " + u.R.String() + ")" }

// SeqType implements Expr.
func (u *Union) SeqType() xdm.SeqType {
	return xdm.SeqType{Type: u.L.SeqType().Type.Union(u.R.SeqType().Type), Occ: xdm.OccZeroOrMore}
}

// Value implements Expr.
func (u *Union) Value(qc *Context) (xdm.Value, error) {
	l, err := nodeOperand(qc, u.L, "union")
	if err != nil {
		return nil, err
	}
	r, err := nodeOperand(qc, u.R, "union")
	if err != nil {
		return nil, err
	}
	return nodeValue(node.Sort(append(l, r...))), nil
}

// nodeOperand evaluates an operand of a node set operator.
func nodeOperand(qc *Context, e Expr, op string) ([]*node.Node, error) {
	v, err := e.Value(qc)
	if err != nil {
		return nil, err
	}
	nodes := make([]*node.Node, v.Size())
	for i := range nodes {
		n, ok := v.ItemAt(i).(*node.Node)
		if !ok {
			return nil, xdm.TypeError(xdm.CodeType, "%s operand is not a node sequence", op)
		}
		nodes[i] = n
	}
	return nodes, nil
}

// Optimize implements Expr.
func (u *Union) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if u.L, err = u.L.Optimize(o); err != nil {
		return nil, err
	}
	if u.R, err = u.R.Optimize(o); err != nil {
		return nil, err
	}
	return u, nil
}

package query

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/roach88/xqdb/internal/node"
	"github.com/roach88/xqdb/internal/xdm"
)

// builtin describes a built-in function.
type builtin struct {
	name     string
	min, max int
	// pure functions over literal arguments are folded at compile time.
	pure bool
	// focus functions read the context item, position or size.
	focus bool
	typ   func(args []Expr) xdm.SeqType
	eval  func(qc *Context, args []Expr) (xdm.Value, error)
}

func fixed(st xdm.SeqType) func([]Expr) xdm.SeqType {
	return func([]Expr) xdm.SeqType { return st }
}

func firstArgType(occ xdm.Occ) func([]Expr) xdm.SeqType {
	return func(args []Expr) xdm.SeqType {
		return xdm.SeqType{Type: args[0].SeqType().Type, Occ: occ}
	}
}

var builtins map[string]*builtin

func init() {
	builtins = make(map[string]*builtin)
	for _, b := range []*builtin{
		{name: "true", pure: true, typ: fixed(xdm.SeqBoolean), eval: fnTrue},
		{name: "false", pure: true, typ: fixed(xdm.SeqBoolean), eval: fnFalse},
		{name: "count", min: 1, max: 1, pure: true, typ: fixed(xdm.SeqInteger), eval: fnCount},
		{name: "sum", min: 1, max: 2, pure: true, typ: fixed(xdm.SeqType{Type: xdm.TypeNumeric, Occ: xdm.OccZeroOrOne}), eval: fnSum},
		{name: "avg", min: 1, max: 1, pure: true, typ: fixed(xdm.SeqType{Type: xdm.TypeNumeric, Occ: xdm.OccZeroOrOne}), eval: fnAvg},
		{name: "min", min: 1, max: 1, pure: true, typ: fixed(xdm.SeqAtomicOpt), eval: fnMin},
		{name: "max", min: 1, max: 1, pure: true, typ: fixed(xdm.SeqAtomicOpt), eval: fnMax},
		{name: "empty", min: 1, max: 1, pure: true, typ: fixed(xdm.SeqBoolean), eval: fnEmpty},
		{name: "exists", min: 1, max: 1, pure: true, typ: fixed(xdm.SeqBoolean), eval: fnExists},
		{name: "not", min: 1, max: 1, pure: true, typ: fixed(xdm.SeqBoolean), eval: fnNot},
		{name: "boolean", min: 1, max: 1, pure: true, typ: fixed(xdm.SeqBoolean), eval: fnBoolean},
		{name: "string", max: 1, pure: true, focus: true, typ: fixed(xdm.SeqString), eval: fnString},
		{name: "data", max: 1, pure: true, focus: true, typ: fixed(xdm.SeqType{Type: xdm.TypeAtomic, Occ: xdm.OccZeroOrMore}), eval: fnData},
		{name: "number", max: 1, pure: true, focus: true, typ: fixed(xdm.SeqDouble), eval: fnNumber},
		{name: "name", max: 1, focus: true, typ: fixed(xdm.SeqString), eval: nameFunc(func(q node.QName) string { return q.String() })},
		{name: "local-name", max: 1, focus: true, typ: fixed(xdm.SeqString), eval: nameFunc(func(q node.QName) string { return q.Local })},
		{name: "namespace-uri", max: 1, focus: true, typ: fixed(xdm.SeqString), eval: nameFunc(func(q node.QName) string { return q.URI })},
		{name: "root", max: 1, focus: true, typ: fixed(xdm.SeqType{Type: xdm.TypeNode, Occ: xdm.OccZeroOrOne}), eval: fnRoot},
		{name: "base-uri", max: 1, focus: true, typ: fixed(xdm.SeqType{Type: xdm.TypeString, Occ: xdm.OccZeroOrOne}), eval: fnBaseURI},
		{name: "concat", min: 2, max: -1, pure: true, typ: fixed(xdm.SeqString), eval: fnConcat},
		{name: "string-join", min: 1, max: 2, pure: true, typ: fixed(xdm.SeqString), eval: fnStringJoin},
		{name: "string-length", max: 1, pure: true, focus: true, typ: fixed(xdm.SeqInteger), eval: fnStringLength},
		{name: "contains", min: 2, max: 2, pure: true, typ: fixed(xdm.SeqBoolean), eval: stringTest(strings.Contains)},
		{name: "starts-with", min: 2, max: 2, pure: true, typ: fixed(xdm.SeqBoolean), eval: stringTest(strings.HasPrefix)},
		{name: "ends-with", min: 2, max: 2, pure: true, typ: fixed(xdm.SeqBoolean), eval: stringTest(strings.HasSuffix)},
		{name: "upper-case", min: 1, max: 1, pure: true, typ: fixed(xdm.SeqString), eval: stringMap(strings.ToUpper)},
		{name: "lower-case", min: 1, max: 1, pure: true, typ: fixed(xdm.SeqString), eval: stringMap(strings.ToLower)},
		{name: "position", focus: true, typ: fixed(xdm.SeqInteger), eval: fnPosition},
		{name: "last", focus: true, typ: fixed(xdm.SeqInteger), eval: fnLast},
		{name: "doc", min: 1, max: 1, typ: fixed(xdm.SeqType{Type: xdm.TypeDocument, Occ: xdm.OccZeroOrOne}), eval: fnDoc},
		{name: "reverse", min: 1, max: 1, pure: true, typ: firstArgType(xdm.OccZeroOrMore), eval: fnReverse},
		{name: "head", min: 1, max: 1, pure: true, typ: firstArgType(xdm.OccZeroOrOne), eval: fnHead},
		{name: "tail", min: 1, max: 1, pure: true, typ: firstArgType(xdm.OccZeroOrMore), eval: fnTail},
		{name: "subsequence", min: 2, max: 3, pure: true, typ: firstArgType(xdm.OccZeroOrMore), eval: fnSubsequence},
		{name: "for-each", min: 2, max: 2, typ: fixed(xdm.SeqItems), eval: fnForEach},
		{name: "filter", min: 2, max: 2, typ: firstArgType(xdm.OccZeroOrMore), eval: fnFilter},
		{name: "fold-left", min: 3, max: 3, typ: fixed(xdm.SeqItems), eval: fnFoldLeft},
		{name: "fold-right", min: 3, max: 3, typ: fixed(xdm.SeqItems), eval: fnFoldRight},
		{name: "distinct-values", min: 1, max: 1, pure: true, typ: fixed(xdm.SeqType{Type: xdm.TypeAtomic, Occ: xdm.OccZeroOrMore}), eval: fnDistinctValues},
	} {
		if b.max == 0 && b.min > 0 {
			b.max = b.min
		}
		builtins[b.name] = b
	}
}

// Functions returns the names of all built-in functions, sorted.
func Functions() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func lookupBuiltin(name string, arity int) (*builtin, error) {
	b, ok := builtins[strings.TrimPrefix(name, "fn:")]
	if !ok {
		return nil, xdm.StaticError(xdm.CodeNoFunction, "unknown function %s", name)
	}
	if arity < b.min || (b.max >= 0 && arity > b.max) {
		return nil, xdm.UnknownArity(b.name, arity)
	}
	return b, nil
}

// Call is a static call of a built-in function.
type Call struct {
	fn   *builtin
	Args []Expr
}

// NewCall resolves a built-in function call. Unknown functions and
// unsupported argument counts are static errors.
func NewCall(name string, args []Expr) (*Call, error) {
	b, err := lookupBuiltin(name, len(args))
	if err != nil {
		return nil, err
	}
	return &Call{fn: b, Args: args}, nil
}

// Name returns the function name.
func (c *Call) Name() string { return c.fn.name }

func (c *Call) Iter(qc *Context) (xdm.Iter, error)   { return valueIter(c, qc) }
func (c *Call) Value(qc *Context) (xdm.Value, error) { return c.fn.eval(qc, c.Args) }
func (c *Call) SeqType() xdm.SeqType                 { return c.fn.typ(c.Args) }
func (c *Call) Size() int                            { return sizeOf(c.SeqType()) }
func (c *Call) String() string                       { return c.fn.name + "(" + joinExprs(c.Args, ", ") + ")" }

// Optimize folds pure calls over literal arguments.
func (c *Call) Optimize(o *Optimizer) (Expr, error) {
	if err := optimizeAll(o, c.Args); err != nil {
		return nil, err
	}
	if c.fn.focus && len(c.Args) == 0 {
		return c, nil
	}
	if c.fn.pure && literals(c.Args...) {
		return o.fold(c), nil
	}
	if c.fn.name == "count" {
		if n := c.Args[0].Size(); n >= 0 {
			o.note("count: static size %d", n)
			return &Literal{V: xdm.Int(n)}, nil
		}
	}
	return c, nil
}

// FuncRef is a named function reference such as count#1.
type FuncRef struct {
	fn    *builtin
	Arity int
}

// NewFuncRef resolves name#arity. Focus-dependent functions cannot be
// referenced without arguments.
func NewFuncRef(name string, arity int) (*FuncRef, error) {
	b, err := lookupBuiltin(name, arity)
	if err != nil {
		return nil, err
	}
	if b.focus && arity == 0 {
		return nil, xdm.StaticError(xdm.CodeNoFunction, "%s#0 depends on the focus", b.name)
	}
	return &FuncRef{fn: b, Arity: arity}, nil
}

func (r *FuncRef) Iter(qc *Context) (xdm.Iter, error) { return valueIter(r, qc) }
func (r *FuncRef) SeqType() xdm.SeqType               { return xdm.SeqType{Type: xdm.TypeFunction, Occ: xdm.OccOne} }
func (r *FuncRef) Size() int                          { return 1 }
func (r *FuncRef) Optimize(*Optimizer) (Expr, error)  { return r, nil }
func (r *FuncRef) String() string                     { return fmt.Sprintf("%s#%d", r.fn.name, r.Arity) }

// Value implements Expr.
func (r *FuncRef) Value(qc *Context) (xdm.Value, error) {
	return &xdm.Func{Name: r.fn.name, Arity: r.Arity, Body: func(args []xdm.Value) (xdm.Value, error) {
		exprs := make([]Expr, len(args))
		for i, a := range args {
			exprs[i] = &Literal{V: a}
		}
		return r.fn.eval(qc, exprs)
	}}, nil
}

// arg evaluates argument i.
func arg(qc *Context, args []Expr, i int) (xdm.Value, error) {
	return args[i].Value(qc)
}

// focusArg evaluates argument 0, or returns the context item if absent.
func focusArg(qc *Context, args []Expr) (xdm.Value, error) {
	if len(args) == 0 {
		return contextItem(qc)
	}
	return args[0].Value(qc)
}

func stringArg(qc *Context, args []Expr, i int, what string) (string, error) {
	v, err := arg(qc, args, i)
	if err != nil {
		return "", err
	}
	it, err := xdm.AtomizeOpt(v, what)
	if err != nil || it == nil {
		return "", err
	}
	return it.String(), nil
}

func fnTrue(*Context, []Expr) (xdm.Value, error)  { return xdm.Bool(true), nil }
func fnFalse(*Context, []Expr) (xdm.Value, error) { return xdm.Bool(false), nil }

func fnCount(qc *Context, args []Expr) (xdm.Value, error) {
	if n := args[0].Size(); n >= 0 {
		return xdm.Int(n), nil
	}
	it, err := args[0].Iter(qc)
	if err != nil {
		return nil, err
	}
	if n := xdm.Remaining(it); n >= 0 {
		return xdm.Int(n), nil
	}
	var n int64
	for {
		item, err := it.Next()
		if err != nil {
			return nil, err
		}
		if item == nil {
			return xdm.Int(n), nil
		}
		n++
	}
}

func fnEmpty(qc *Context, args []Expr) (xdm.Value, error) {
	ok, err := firstItem(qc, args[0])
	return xdm.Bool(!ok), err
}

func fnExists(qc *Context, args []Expr) (xdm.Value, error) {
	ok, err := firstItem(qc, args[0])
	return xdm.Bool(ok), err
}

// firstItem reports whether e yields at least one item, pulling no more
// than one.
func firstItem(qc *Context, e Expr) (bool, error) {
	it, err := e.Iter(qc)
	if err != nil {
		return false, err
	}
	item, err := it.Next()
	return item != nil, err
}

func fnNot(qc *Context, args []Expr) (xdm.Value, error) {
	ok, err := ebv(qc, args[0])
	return xdm.Bool(!ok), err
}

func fnBoolean(qc *Context, args []Expr) (xdm.Value, error) {
	ok, err := ebv(qc, args[0])
	return xdm.Bool(ok), err
}

func fnString(qc *Context, args []Expr) (xdm.Value, error) {
	v, err := focusArg(qc, args)
	if err != nil {
		return nil, err
	}
	switch v.Size() {
	case 0:
		return xdm.Str(""), nil
	case 1:
		it := v.ItemAt(0)
		if it.Type() == xdm.TypeFunction {
			return nil, xdm.TypeError(xdm.CodeAtomize, "cannot take the string value of %s", it)
		}
		return xdm.Str(it.String()), nil
	}
	return nil, xdm.TypeError(xdm.CodeType, "string: expected item()?, got %s", v.SeqType())
}

func fnData(qc *Context, args []Expr) (xdm.Value, error) {
	v, err := focusArg(qc, args)
	if err != nil {
		return nil, err
	}
	return xdm.Atomize(v)
}

func fnNumber(qc *Context, args []Expr) (xdm.Value, error) {
	v, err := focusArg(qc, args)
	if err != nil {
		return nil, err
	}
	it, err := xdm.AtomizeOpt(v, "number")
	if err != nil {
		return nil, err
	}
	if it == nil {
		return xdm.Dbl(math.NaN()), nil
	}
	if s, ok := it.(xdm.Str); ok {
		it = xdm.Untyped(s)
	}
	f, err := xdm.ToDouble(it)
	if err != nil {
		return xdm.Dbl(math.NaN()), nil
	}
	return xdm.Dbl(f), nil
}

func optNodeArg(qc *Context, args []Expr, fn string) (*node.Node, error) {
	if len(args) == 0 {
		it, err := contextItem(qc)
		if err != nil {
			return nil, err
		}
		n, ok := it.(*node.Node)
		if !ok {
			return nil, xdm.TypeError(xdm.CodeNotNode, "%s: context item is not a node", fn)
		}
		return n, nil
	}
	return optNode(qc, args[0], fn)
}

func nameFunc(part func(node.QName) string) func(*Context, []Expr) (xdm.Value, error) {
	return func(qc *Context, args []Expr) (xdm.Value, error) {
		n, err := optNodeArg(qc, args, "name")
		if err != nil {
			return nil, err
		}
		if n == nil {
			return xdm.Str(""), nil
		}
		return xdm.Str(part(n.Name())), nil
	}
}

func fnRoot(qc *Context, args []Expr) (xdm.Value, error) {
	n, err := optNodeArg(qc, args, "root")
	if err != nil || n == nil {
		return xdm.Empty, err
	}
	return n.Root(), nil
}

func fnBaseURI(qc *Context, args []Expr) (xdm.Value, error) {
	n, err := optNodeArg(qc, args, "base-uri")
	if err != nil || n == nil {
		return xdm.Empty, err
	}
	if uri := n.BaseURI(); uri != "" {
		return xdm.Str(uri), nil
	}
	return xdm.Empty, nil
}

func fnConcat(qc *Context, args []Expr) (xdm.Value, error) {
	var sb strings.Builder
	for i := range args {
		s, err := stringArg(qc, args, i, "concat")
		if err != nil {
			return nil, err
		}
		sb.WriteString(s)
	}
	return xdm.Str(sb.String()), nil
}

func fnStringJoin(qc *Context, args []Expr) (xdm.Value, error) {
	v, err := arg(qc, args, 0)
	if err != nil {
		return nil, err
	}
	if v, err = xdm.Atomize(v); err != nil {
		return nil, err
	}
	sep := ""
	if len(args) > 1 {
		if sep, err = stringArg(qc, args, 1, "string-join"); err != nil {
			return nil, err
		}
	}
	parts := make([]string, v.Size())
	for i := range parts {
		parts[i] = v.ItemAt(i).String()
	}
	return xdm.Str(strings.Join(parts, sep)), nil
}

func fnStringLength(qc *Context, args []Expr) (xdm.Value, error) {
	v, err := fnString(qc, args)
	if err != nil {
		return nil, err
	}
	return xdm.Int(utf8.RuneCountInString(v.ItemAt(0).String())), nil
}

func stringTest(test func(s, sub string) bool) func(*Context, []Expr) (xdm.Value, error) {
	return func(qc *Context, args []Expr) (xdm.Value, error) {
		s, err := stringArg(qc, args, 0, "string function")
		if err != nil {
			return nil, err
		}
		sub, err := stringArg(qc, args, 1, "string function")
		if err != nil {
			return nil, err
		}
		return xdm.Bool(test(s, sub)), nil
	}
}

func stringMap(fn func(string) string) func(*Context, []Expr) (xdm.Value, error) {
	return func(qc *Context, args []Expr) (xdm.Value, error) {
		s, err := stringArg(qc, args, 0, "string function")
		if err != nil {
			return nil, err
		}
		return xdm.Str(fn(s)), nil
	}
}

func fnPosition(qc *Context, _ []Expr) (xdm.Value, error) {
	if _, err := contextItem(qc); err != nil {
		return nil, err
	}
	return xdm.Int(qc.Focus().Pos), nil
}

func fnLast(qc *Context, _ []Expr) (xdm.Value, error) {
	if _, err := contextItem(qc); err != nil {
		return nil, err
	}
	return xdm.Int(qc.Focus().Size), nil
}

func fnDoc(qc *Context, args []Expr) (xdm.Value, error) {
	v, err := arg(qc, args, 0)
	if err != nil {
		return nil, err
	}
	it, err := xdm.AtomizeOpt(v, "doc")
	if err != nil || it == nil {
		return xdm.Empty, err
	}
	n, err := qc.Doc(it.String())
	if err != nil {
		return nil, err
	}
	return n, nil
}

func fnReverse(qc *Context, args []Expr) (xdm.Value, error) {
	v, err := arg(qc, args, 0)
	if err != nil {
		return nil, err
	}
	b := xdm.NewBuilder(v.Size())
	for i := v.Size() - 1; i >= 0; i-- {
		b.Add(v.ItemAt(i))
	}
	return b.Value(), nil
}

func fnHead(qc *Context, args []Expr) (xdm.Value, error) {
	it, err := args[0].Iter(qc)
	if err != nil {
		return nil, err
	}
	item, err := it.Next()
	if err != nil || item == nil {
		return xdm.Empty, err
	}
	return item, nil
}

func fnTail(qc *Context, args []Expr) (xdm.Value, error) {
	v, err := arg(qc, args, 0)
	if err != nil {
		return nil, err
	}
	return slice(v, 1, v.Size()), nil
}

func fnSubsequence(qc *Context, args []Expr) (xdm.Value, error) {
	v, err := arg(qc, args, 0)
	if err != nil {
		return nil, err
	}
	start, err := numberArg(qc, args[1], "subsequence")
	if err != nil {
		return nil, err
	}
	from := int(math.Round(start)) - 1
	to := v.Size()
	if len(args) > 2 {
		length, err := numberArg(qc, args[2], "subsequence")
		if err != nil {
			return nil, err
		}
		to = int(math.Round(start)+math.Round(length)) - 1
	}
	return slice(v, max(from, 0), min(to, v.Size())), nil
}

func numberArg(qc *Context, e Expr, fn string) (float64, error) {
	v, err := e.Value(qc)
	if err != nil {
		return 0, err
	}
	it, err := xdm.AtomizeOpt(v, fn)
	if err != nil {
		return 0, err
	}
	if it == nil {
		return 0, xdm.TypeError(xdm.CodeType, "%s: empty numeric argument", fn)
	}
	return xdm.ToDouble(it)
}

func slice(v xdm.Value, from, to int) xdm.Value {
	if from >= to {
		return xdm.Empty
	}
	b := xdm.NewBuilder(to - from)
	for i := from; i < to; i++ {
		b.Add(v.ItemAt(i))
	}
	return b.Value()
}

func fnDistinctValues(qc *Context, args []Expr) (xdm.Value, error) {
	v, err := atomized(qc, args[0])
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, v.Size())
	var b xdm.Builder
	for i := range v.Size() {
		it := v.ItemAt(i)
		k := xdm.Key(it)
		if seen[k] {
			continue
		}
		seen[k] = true
		b.Add(it)
	}
	return b.Value(), nil
}

func fnSum(qc *Context, args []Expr) (xdm.Value, error) {
	v, err := atomized(qc, args[0])
	if err != nil {
		return nil, err
	}
	if v.Size() == 0 {
		if len(args) > 1 {
			return arg(qc, args, 1)
		}
		return xdm.Int(0), nil
	}
	var acc xdm.Item = xdm.Int(0)
	for i := range v.Size() {
		if acc, err = Calc(OpAdd, acc, v.ItemAt(i)); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func fnAvg(qc *Context, args []Expr) (xdm.Value, error) {
	v, err := fnSum(qc, args[:1])
	if err != nil {
		return nil, err
	}
	n, err := fnCount(qc, args[:1])
	if err != nil {
		return nil, err
	}
	if n.(xdm.Int) == 0 {
		return xdm.Empty, nil
	}
	return Calc(OpDiv, v.(xdm.Item), n.(xdm.Item))
}

func fnMin(qc *Context, args []Expr) (xdm.Value, error) { return extreme(qc, args, -1) }
func fnMax(qc *Context, args []Expr) (xdm.Value, error) { return extreme(qc, args, 1) }

// extreme returns the smallest (dir < 0) or largest item. Untyped items are
// compared as doubles; NaN wins.
func extreme(qc *Context, args []Expr, dir int) (xdm.Value, error) {
	v, err := atomized(qc, args[0])
	if err != nil {
		return nil, err
	}
	var best xdm.Item
	for i := range v.Size() {
		it := v.ItemAt(i)
		if u, ok := it.(xdm.Untyped); ok {
			f, err := xdm.ToDouble(u)
			if err != nil {
				return nil, err
			}
			it = xdm.Dbl(f)
		}
		if best == nil {
			best = it
			continue
		}
		if xdm.IsNaN(best) {
			continue
		}
		if xdm.IsNaN(it) {
			best = it
			continue
		}
		c, err := xdm.Compare(it, best)
		if err != nil {
			return nil, err
		}
		if c*dir > 0 {
			best = it
		}
	}
	if best == nil {
		return xdm.Empty, nil
	}
	return best, nil
}

package parser

import (
	"errors"
	"slices"
	"strconv"

	"github.com/roach88/xqdb/internal/node"
	"github.com/roach88/xqdb/internal/query"
	"github.com/roach88/xqdb/internal/table"
	"github.com/roach88/xqdb/internal/xdm"
)

// Option configures Parse.
type Option func(*config)

type config struct {
	externals []string
}

// WithExternal declares external variables in addition to those declared
// in the query prolog.
func WithExternal(names ...string) Option {
	return func(c *config) { c.externals = append(c.externals, names...) }
}

// Parse parses src and compiles it into an optimized query.
func Parse(src string, opts ...Option) (*query.Compiled, error) {
	root, scope, err := ParseTree(src, opts...)
	if err != nil {
		return nil, err
	}
	return query.Compile(root, scope)
}

// ParseTree parses src into an unoptimized expression tree and the scope
// its variables were allocated in.
func ParseTree(src string, opts ...Option) (query.Expr, *query.Scope, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	toks, err := lex(src)
	if err != nil {
		return nil, nil, err
	}
	p := &parser{toks: toks, scope: query.NewScope()}
	for _, name := range cfg.externals {
		p.vars = append(p.vars, p.scope.DeclareExternal(name))
	}
	root, err := p.parseModule()
	if err != nil {
		return nil, nil, err
	}
	return root, p.scope, nil
}

// ParseExpr parses an expression fragment. Variables are resolved against
// vars, innermost last; new variables are allocated in scope.
func ParseExpr(src string, scope *query.Scope, vars []*query.Var) (query.Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, scope: scope, vars: slices.Clone(vars)}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return e, nil
}

type parser struct {
	toks  []token
	pos   int
	scope *query.Scope
	// vars are the variables in scope, innermost last.
	vars []*query.Var
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) read() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(op string) bool     { return p.peek().is(tokOp, op) }
func (p *parser) isName(name string) bool { return p.peek().is(tokName, name) }

func (p *parser) acceptOp(op string) bool {
	if p.isOp(op) {
		p.read()
		return true
	}
	return false
}

func (p *parser) acceptName(name string) bool {
	if p.isName(name) {
		p.read()
		return true
	}
	return false
}

func (p *parser) expectOp(op string) error {
	if t := p.read(); !t.is(tokOp, op) {
		return p.errorf(t, "expected %q, found %s", op, t)
	}
	return nil
}

func (p *parser) expectName(name string) error {
	if t := p.read(); !t.is(tokName, name) {
		return p.errorf(t, "expected %q, found %s", name, t)
	}
	return nil
}

func (p *parser) expectVar() (token, error) {
	t := p.read()
	if t.kind != tokVar {
		return t, p.errorf(t, "expected variable, found %s", t)
	}
	return t, nil
}

func (p *parser) expectEOF() error {
	if t := p.peek(); t.kind != tokEOF {
		return p.errorf(t, "unexpected %s", t)
	}
	return nil
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return xdm.StaticError(xdm.CodeSyntax, format, args...).At(t.line, t.col)
}

// located attaches the position of t to a query error without one.
func (p *parser) located(t token, err error) error {
	var qe *xdm.QueryError
	if errors.As(err, &qe) {
		return qe.At(t.line, t.col)
	}
	return err
}

func (p *parser) declare(name string) *query.Var {
	v := p.scope.Declare(name)
	p.vars = append(p.vars, v)
	return v
}

func (p *parser) lookup(t token) (*query.Var, error) {
	for i := len(p.vars) - 1; i >= 0; i-- {
		if p.vars[i].Name == t.text {
			return p.vars[i], nil
		}
	}
	return nil, xdm.StaticError(xdm.CodeUndefinedVar, "undeclared variable $%s", t.text).At(t.line, t.col)
}

// [1] Module ::= ("declare" "variable" "$" Name "external" ";")* Expr
func (p *parser) parseModule() (query.Expr, error) {
	for p.isName("declare") {
		p.read()
		if err := p.expectName("variable"); err != nil {
			return nil, err
		}
		vt, err := p.expectVar()
		if err != nil {
			return nil, err
		}
		if err := p.expectName("external"); err != nil {
			return nil, err
		}
		if err := p.expectOp(";"); err != nil {
			return nil, err
		}
		if slices.ContainsFunc(p.vars, func(v *query.Var) bool { return v.Name == vt.text }) {
			return nil, xdm.StaticError("XQST0049", "duplicate declaration of $%s", vt.text).At(vt.line, vt.col)
		}
		p.vars = append(p.vars, p.scope.DeclareExternal(vt.text))
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return e, nil
}

// [2] Expr ::= ExprSingle ("," ExprSingle)*
func (p *parser) parseExpr() (query.Expr, error) {
	first, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	if !p.isOp(",") {
		return first, nil
	}
	exprs := []query.Expr{first}
	for p.acceptOp(",") {
		e, err := p.parseExprSingle()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return &query.Seq{Exprs: exprs}, nil
}

// [3] ExprSingle ::= FLWORExpr | IfExpr | OrExpr
func (p *parser) parseExprSingle() (query.Expr, error) {
	switch {
	case p.startsFor(), p.startsLet():
		return p.parseFLWOR()
	case p.isName("if") && p.peekAt(1).is(tokOp, "("):
		return p.parseIf()
	case p.isName("switch") && p.peekAt(1).is(tokOp, "("):
		return p.parseSwitch()
	}
	return p.parseOr()
}

func (p *parser) startsFor() bool {
	return p.isName("for") && p.peekAt(1).kind == tokVar
}

func (p *parser) startsLet() bool {
	next := p.peekAt(1)
	return p.isName("let") && (next.kind == tokVar || next.is(tokName, "score"))
}

// [4] FLWORExpr ::= (ForClause | LetClause) IntermediateClause* "return" ExprSingle
// [5] IntermediateClause ::= ForClause | LetClause | WhereClause | GroupByClause | OrderByClause | CountClause
func (p *parser) parseFLWOR() (query.Expr, error) {
	mark := len(p.vars)
	defer func() { p.vars = p.vars[:mark] }()

	var clauses []query.Clause
	for {
		t := p.peek()
		next := p.peekAt(1)
		switch {
		case p.startsFor():
			cs, err := p.parseFor()
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, cs...)
		case p.startsLet():
			cs, err := p.parseLet()
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, cs...)
		case t.is(tokName, "where"):
			p.read()
			cond, err := p.parseExprSingle()
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, &query.Where{Cond: cond})
		case t.is(tokName, "group") && next.is(tokName, "by"):
			c, err := p.parseGroupBy()
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, c)
		case t.is(tokName, "order") && next.is(tokName, "by"),
			t.is(tokName, "stable") && next.is(tokName, "order"):
			c, err := p.parseOrderBy()
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, c)
		case t.is(tokName, "count") && next.kind == tokVar:
			p.read()
			vt := p.read()
			clauses = append(clauses, &query.Count{Var: p.declare(vt.text)})
		case t.is(tokName, "return"):
			p.read()
			ret, err := p.parseExprSingle()
			if err != nil {
				return nil, err
			}
			f, err := query.NewFLWOR(clauses, ret)
			if err != nil {
				return nil, p.located(t, err)
			}
			return f, nil
		default:
			return nil, p.errorf(t, "expected FLWOR clause or return, found %s", t)
		}
	}
}

// [6] ForClause ::= "for" ForBinding ("," ForBinding)*
// [7] ForBinding ::= "$" Name ("allowing" "empty")? ("at" "$" Name)? ("score" "$" Name)? "in" ExprSingle
func (p *parser) parseFor() ([]query.Clause, error) {
	p.read()
	var out []query.Clause
	for {
		vt, err := p.expectVar()
		if err != nil {
			return nil, err
		}
		c := &query.For{}
		if p.acceptName("allowing") {
			if err := p.expectName("empty"); err != nil {
				return nil, err
			}
			c.Empty = true
		}
		var pos, score *token
		if p.acceptName("at") {
			t, err := p.expectVar()
			if err != nil {
				return nil, err
			}
			pos = &t
		}
		if p.acceptName("score") {
			t, err := p.expectVar()
			if err != nil {
				return nil, err
			}
			score = &t
		}
		if err := p.expectName("in"); err != nil {
			return nil, err
		}
		if c.Expr, err = p.parseExprSingle(); err != nil {
			return nil, err
		}

		names := []token{vt}
		c.Var = p.declare(vt.text)
		if pos != nil {
			names = append(names, *pos)
			c.Pos = p.declare(pos.text)
		}
		if score != nil {
			names = append(names, *score)
			c.Score = p.declare(score.text)
		}
		for i := 1; i < len(names); i++ {
			for j := range i {
				if names[i].text == names[j].text {
					return nil, xdm.StaticError("XQST0089", "variable $%s bound twice in one for binding", names[i].text).
						At(names[i].line, names[i].col)
				}
			}
		}
		out = append(out, c)
		if !p.acceptOp(",") {
			return out, nil
		}
	}
}

// [8] LetClause ::= "let" LetBinding ("," LetBinding)*
// [9] LetBinding ::= ("$" Name | "score" "$" Name) ":=" ExprSingle
func (p *parser) parseLet() ([]query.Clause, error) {
	p.read()
	var out []query.Clause
	for {
		score := p.acceptName("score")
		vt, err := p.expectVar()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp(":="); err != nil {
			return nil, err
		}
		e, err := p.parseExprSingle()
		if err != nil {
			return nil, err
		}
		out = append(out, &query.Let{Var: p.declare(vt.text), Score: score, Expr: e})
		if !p.acceptOp(",") {
			return out, nil
		}
	}
}

// [10] GroupByClause ::= "group" "by" GroupSpec ("," GroupSpec)*
// [11] GroupSpec ::= "$" Name (":=" ExprSingle)?
func (p *parser) parseGroupBy() (query.Clause, error) {
	p.read()
	p.read()
	g := &query.GroupBy{}
	for {
		vt, err := p.expectVar()
		if err != nil {
			return nil, err
		}
		if p.acceptOp(":=") {
			e, err := p.parseExprSingle()
			if err != nil {
				return nil, err
			}
			g.Keys = append(g.Keys, query.GroupKey{Var: p.declare(vt.text), Expr: e})
		} else {
			v, err := p.lookup(vt)
			if err != nil {
				return nil, err
			}
			g.Keys = append(g.Keys, query.GroupKey{Var: v, Expr: &query.VarRef{Var: v}})
		}
		if !p.acceptOp(",") {
			return g, nil
		}
	}
}

// [12] OrderByClause ::= "stable"? "order" "by" OrderSpec ("," OrderSpec)*
// [13] OrderSpec ::= ExprSingle ("ascending" | "descending")? ("empty" ("greatest" | "least"))?
func (p *parser) parseOrderBy() (query.Clause, error) {
	ob := &query.OrderBy{Stable: p.acceptName("stable")}
	if err := p.expectName("order"); err != nil {
		return nil, err
	}
	if err := p.expectName("by"); err != nil {
		return nil, err
	}
	for {
		e, err := p.parseExprSingle()
		if err != nil {
			return nil, err
		}
		k := query.OrderKey{Expr: e}
		if p.acceptName("descending") {
			k.Desc = true
		} else {
			p.acceptName("ascending")
		}
		if p.acceptName("empty") {
			switch t := p.read(); {
			case t.is(tokName, "greatest"):
				k.EmptyGreatest = true
			case t.is(tokName, "least"):
			default:
				return nil, p.errorf(t, "expected greatest or least, found %s", t)
			}
		}
		ob.Keys = append(ob.Keys, k)
		if !p.acceptOp(",") {
			return ob, nil
		}
	}
}

// [14] IfExpr ::= "if" "(" Expr ")" "then" ExprSingle "else" ExprSingle
func (p *parser) parseIf() (query.Expr, error) {
	p.read()
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	if err := p.expectName("then"); err != nil {
		return nil, err
	}
	then, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	if err := p.expectName("else"); err != nil {
		return nil, err
	}
	els, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	return &query.If{Cond: cond, Then: then, Else: els}, nil
}

// SwitchExpr ::= "switch" "(" Expr ")" SwitchCaseClause+ "default" "return" ExprSingle
// SwitchCaseClause ::= ("case" ExprSingle)+ "return" ExprSingle
func (p *parser) parseSwitch() (query.Expr, error) {
	p.read()
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	operand, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	sw := &query.Switch{Operand: operand}
	for p.isName("case") {
		var c query.SwitchCase
		for p.acceptName("case") {
			t, err := p.parseExprSingle()
			if err != nil {
				return nil, err
			}
			c.Tests = append(c.Tests, t)
		}
		if err := p.expectName("return"); err != nil {
			return nil, err
		}
		if c.Return, err = p.parseExprSingle(); err != nil {
			return nil, err
		}
		sw.Cases = append(sw.Cases, c)
	}
	if len(sw.Cases) == 0 {
		return nil, p.errorf(p.peek(), "switch without case clause")
	}
	if err := p.expectName("default"); err != nil {
		return nil, err
	}
	if err := p.expectName("return"); err != nil {
		return nil, err
	}
	if sw.Default, err = p.parseExprSingle(); err != nil {
		return nil, err
	}
	return sw, nil
}

// [15] OrExpr ::= AndExpr ("or" AndExpr)*
func (p *parser) parseOr() (query.Expr, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptName("or") {
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = &query.Or{L: l, R: r}
	}
	return l, nil
}

// [16] AndExpr ::= ComparisonExpr ("and" ComparisonExpr)*
func (p *parser) parseAnd() (query.Expr, error) {
	l, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.acceptName("and") {
		r, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		l = &query.And{L: l, R: r}
	}
	return l, nil
}

var (
	generalComps = map[string]query.CmpOp{"=": query.CmpEq, "!=": query.CmpNe, "<": query.CmpLt, "<=": query.CmpLe, ">": query.CmpGt, ">=": query.CmpGe}
	valueComps   = map[string]query.CmpOp{"eq": query.CmpEq, "ne": query.CmpNe, "lt": query.CmpLt, "le": query.CmpLe, "gt": query.CmpGt, "ge": query.CmpGe}
	nodeComps    = map[string]query.NodeOp{"is": query.NodeIs, "<<": query.NodeBefore, ">>": query.NodeAfter}
)

// [17] ComparisonExpr ::= RangeExpr ((GeneralComp | ValueComp | NodeComp) RangeExpr)?
func (p *parser) parseComparison() (query.Expr, error) {
	l, err := p.parseRange()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokOp && t.kind != tokName {
		return l, nil
	}
	if op, ok := generalComps[t.text]; ok && t.kind == tokOp {
		p.read()
		r, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		return &query.GeneralCmp{Op: op, L: l, R: r}, nil
	}
	if op, ok := valueComps[t.text]; ok && t.kind == tokName {
		p.read()
		r, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		return &query.ValueCmp{Op: op, L: l, R: r}, nil
	}
	if op, ok := nodeComps[t.text]; ok {
		p.read()
		r, err := p.parseRange()
		if err != nil {
			return nil, err
		}
		return &query.NodeCmp{Op: op, L: l, R: r}, nil
	}
	return l, nil
}

// [18] RangeExpr ::= AdditiveExpr ("to" AdditiveExpr)?
func (p *parser) parseRange() (query.Expr, error) {
	l, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if !p.acceptName("to") {
		return l, nil
	}
	r, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return &query.Range{Lo: l, Hi: r}, nil
}

// [19] AdditiveExpr ::= MultiplicativeExpr (("+" | "-") MultiplicativeExpr)*
func (p *parser) parseAdditive() (query.Expr, error) {
	l, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op query.ArithOp
		switch {
		case p.acceptOp("+"):
			op = query.OpAdd
		case p.acceptOp("-"):
			op = query.OpSub
		default:
			return l, nil
		}
		r, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		l = &query.Arith{Op: op, L: l, R: r}
	}
}

// [20] MultiplicativeExpr ::= UnionExpr (("*" | "div" | "idiv" | "mod") UnionExpr)*
func (p *parser) parseMultiplicative() (query.Expr, error) {
	l, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	for {
		var op query.ArithOp
		switch {
		case p.acceptOp("*"):
			op = query.OpMul
		case p.acceptName("div"):
			op = query.OpDiv
		case p.acceptName("idiv"):
			op = query.OpIDiv
		case p.acceptName("mod"):
			op = query.OpMod
		default:
			return l, nil
		}
		r, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		l = &query.Arith{Op: op, L: l, R: r}
	}
}

// [21] UnionExpr ::= IntersectExceptExpr (("union" | "|") IntersectExceptExpr)*
func (p *parser) parseUnion() (query.Expr, error) {
	l, err := p.parseIntersectExcept()
	if err != nil {
		return nil, err
	}
	for p.acceptOp("|") || p.acceptName("union") {
		r, err := p.parseIntersectExcept()
		if err != nil {
			return nil, err
		}
		l = &query.Union{L: l, R: r}
	}
	return l, nil
}

// IntersectExceptExpr ::= InstanceofExpr (("intersect" | "except") InstanceofExpr)*
func (p *parser) parseIntersectExcept() (query.Expr, error) {
	l, err := p.parseInstanceOf()
	if err != nil {
		return nil, err
	}
	for {
		var op query.SetOp
		switch {
		case p.acceptName("intersect"):
			op = query.SetIntersect
		case p.acceptName("except"):
			op = query.SetExcept
		default:
			return l, nil
		}
		r, err := p.parseInstanceOf()
		if err != nil {
			return nil, err
		}
		l = &query.NodeSet{Op: op, L: l, R: r}
	}
}

// InstanceofExpr ::= UnaryExpr ("instance" "of" SequenceType)?
func (p *parser) parseInstanceOf() (query.Expr, error) {
	e, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if !p.isName("instance") || !p.peekAt(1).is(tokName, "of") {
		return e, nil
	}
	p.read()
	p.read()
	st, err := p.parseSequenceType()
	if err != nil {
		return nil, err
	}
	return &query.InstanceOf{E: e, Type: st}, nil
}

// SequenceType ::= "empty-sequence" "(" ")" | ItemType ("?" | "*" | "+")?
//
// Item types are the atomic type names and the kind tests without
// arguments, e.g. xs:integer, element(), function(*).
func (p *parser) parseSequenceType() (xdm.SeqType, error) {
	t := p.read()
	if t.kind != tokName {
		return xdm.SeqType{}, p.errorf(t, "expected a sequence type, found %s", t)
	}
	name := t.text
	if p.acceptOp("(") {
		inner := ""
		if name == "function" && p.acceptOp("*") {
			inner = "*"
		}
		if err := p.expectOp(")"); err != nil {
			return xdm.SeqType{}, err
		}
		name += "(" + inner + ")"
	}
	if name == "empty-sequence()" {
		return xdm.SeqEmpty, nil
	}
	typ, ok := xdm.LookupType(name)
	if !ok {
		return xdm.SeqType{}, xdm.StaticError(xdm.CodeUnknownType, "unknown type %s", name).At(t.line, t.col)
	}
	occ := xdm.OccOne
	switch {
	case p.acceptOp("?"):
		occ = xdm.OccZeroOrOne
	case p.acceptOp("*"):
		occ = xdm.OccZeroOrMore
	case p.acceptOp("+"):
		occ = xdm.OccOneOrMore
	}
	return xdm.SeqType{Type: typ, Occ: occ}, nil
}

// [22] UnaryExpr ::= ("-" | "+")* PathExpr
func (p *parser) parseUnary() (query.Expr, error) {
	neg := false
	for {
		if p.acceptOp("-") {
			neg = !neg
		} else if !p.acceptOp("+") {
			break
		}
	}
	e, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	if neg {
		return &query.Neg{E: e}, nil
	}
	return e, nil
}

// [23] PathExpr ::= "/" RelativePathExpr? | "//" RelativePathExpr | RelativePathExpr
func (p *parser) parsePath() (query.Expr, error) {
	switch {
	case p.acceptOp("/"):
		if !p.startsStep() {
			return &query.Root{}, nil
		}
		return p.parseRelative(&query.Root{}, false)
	case p.acceptOp("//"):
		return p.parseRelative(&query.Root{}, true)
	}
	return p.parseRelative(nil, false)
}

func (p *parser) startsStep() bool {
	t := p.peek()
	switch t.kind {
	case tokName, tokVar, tokStr, tokInt, tokDbl:
		return true
	case tokOp:
		switch t.text {
		case "*", "@", ".", "..", "(":
			return true
		}
	}
	return false
}

func descendantOrSelf() *query.Step {
	return &query.Step{Axis: node.AxisDescendantOrSelf, Test: query.NodeTest{AnyKind: true}}
}

// [24] RelativePathExpr ::= StepExpr (("/" | "//") StepExpr)*
func (p *parser) parseRelative(root query.Expr, desc bool) (query.Expr, error) {
	var steps []query.Expr
	if desc {
		steps = append(steps, descendantOrSelf())
	}
	for {
		s, err := p.parseStepExpr()
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
		if p.acceptOp("//") {
			steps = append(steps, descendantOrSelf())
			continue
		}
		if !p.acceptOp("/") {
			break
		}
	}
	steps = collapseDescendants(steps)

	if root != nil {
		return &query.Path{Root: root, Steps: steps}, nil
	}
	if _, ok := steps[0].(*query.Step); ok {
		return &query.Path{Steps: steps}, nil
	}
	if len(steps) == 1 {
		return steps[0], nil
	}
	return &query.Path{Root: steps[0], Steps: steps[1:]}, nil
}

// collapseDescendants rewrites descendant-or-self::node()/child::t into
// descendant::t when the child step has no predicates.
func collapseDescendants(steps []query.Expr) []query.Expr {
	out := steps[:0]
	for i := 0; i < len(steps); i++ {
		dos, ok := steps[i].(*query.Step)
		if ok && i+1 < len(steps) && dos.Axis == node.AxisDescendantOrSelf && dos.Test.AnyKind && len(dos.Preds) == 0 {
			if child, ok := steps[i+1].(*query.Step); ok && child.Axis == node.AxisChild && len(child.Preds) == 0 {
				out = append(out, &query.Step{Axis: node.AxisDescendant, Test: child.Test})
				i++
				continue
			}
		}
		out = append(out, steps[i])
	}
	return out
}

var kindTests = map[string]bool{
	"node": true, "text": true, "comment": true, "processing-instruction": true,
	"document-node": true, "element": true, "attribute": true,
}

// [25] StepExpr ::= PostfixExpr | AxisStep
// [26] AxisStep ::= (Axis "::" NodeTest | "@" NodeTest | ".." | NodeTest) Predicate*
func (p *parser) parseStepExpr() (query.Expr, error) {
	t := p.peek()
	next := p.peekAt(1)
	switch {
	case t.is(tokOp, ".."):
		p.read()
		return p.parsePredicates(&query.Step{Axis: node.AxisParent, Test: query.NodeTest{AnyKind: true}})
	case t.is(tokOp, "@"):
		p.read()
		test, err := p.parseNodeTest(node.AxisAttribute)
		if err != nil {
			return nil, err
		}
		return p.parsePredicates(&query.Step{Axis: node.AxisAttribute, Test: test})
	case t.kind == tokName && next.is(tokOp, "::"):
		axis, ok := node.ParseAxis(t.text)
		if !ok {
			return nil, p.errorf(t, "unknown axis %s", t.text)
		}
		p.read()
		p.read()
		test, err := p.parseNodeTest(axis)
		if err != nil {
			return nil, err
		}
		return p.parsePredicates(&query.Step{Axis: axis, Test: test})
	case t.is(tokOp, "*"),
		t.kind == tokName && next.is(tokOp, "(") && kindTests[t.text],
		t.kind == tokName && !next.is(tokOp, "(") && !next.is(tokOp, "#"):
		axis := node.AxisChild
		if t.is(tokName, "attribute") {
			axis = node.AxisAttribute
		}
		test, err := p.parseNodeTest(axis)
		if err != nil {
			return nil, err
		}
		return p.parsePredicates(&query.Step{Axis: axis, Test: test})
	}
	return p.parsePostfix()
}

// [27] NodeTest ::= KindTest | Name | "*" | Prefix ":*" | "*:" Local
func (p *parser) parseNodeTest(axis node.Axis) (query.NodeTest, error) {
	principal := table.KindElem
	if axis == node.AxisAttribute {
		principal = table.KindAttr
	}
	t := p.peek()
	switch {
	case t.is(tokOp, "*"):
		p.read()
		return query.NodeTest{Kind: principal}, nil
	case t.kind == tokName && p.peekAt(1).is(tokOp, "(") && kindTests[t.text]:
		return p.parseKindTest()
	case t.kind == tokName:
		p.read()
		return query.NodeTest{Kind: principal, Name: t.text}, nil
	}
	return query.NodeTest{}, p.errorf(t, "expected node test, found %s", t)
}

// [28] KindTest ::= ("node" | "text" | "comment" | "document-node") "()"
//
//	| ("element" | "attribute") "(" (Name | "*")? ")"
//	| "processing-instruction" "(" (Name | String)? ")"
func (p *parser) parseKindTest() (query.NodeTest, error) {
	t := p.read()
	p.read()
	var nt query.NodeTest
	switch t.text {
	case "node":
		nt.AnyKind = true
	case "text":
		nt.Kind = table.KindText
	case "comment":
		nt.Kind = table.KindComment
	case "document-node":
		nt.Kind = table.KindDoc
	case "element", "attribute", "processing-instruction":
		nt.Kind = table.KindElem
		if t.text == "attribute" {
			nt.Kind = table.KindAttr
		} else if t.text == "processing-instruction" {
			nt.Kind = table.KindPI
		}
		switch arg := p.peek(); {
		case arg.kind == tokName, arg.kind == tokStr && nt.Kind == table.KindPI:
			p.read()
			nt.Name = arg.text
		case arg.is(tokOp, "*") && nt.Kind != table.KindPI:
			p.read()
		}
	}
	if err := p.expectOp(")"); err != nil {
		return query.NodeTest{}, err
	}
	return nt, nil
}

// [29] Predicate ::= "[" Expr "]"
func (p *parser) parsePredicates(s *query.Step) (query.Expr, error) {
	for p.acceptOp("[") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectOp("]"); err != nil {
			return nil, err
		}
		s.Preds = append(s.Preds, e)
	}
	return s, nil
}

// [30] PostfixExpr ::= PrimaryExpr (Predicate | ArgumentList)*
func (p *parser) parsePostfix() (query.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.acceptOp("["):
			pred, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp("]"); err != nil {
				return nil, err
			}
			if f, ok := e.(*query.Filter); ok {
				f.Preds = append(f.Preds, pred)
			} else {
				e = &query.Filter{E: e, Preds: []query.Expr{pred}}
			}
		case p.isOp("("):
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			e = &query.DynCall{Fn: e, Args: args}
		default:
			return e, nil
		}
	}
}

// [31] PrimaryExpr ::= Literal | VarRef | ParenthesizedExpr | "." | FunctionCall
//
//	| NamedFunctionRef | InlineFunction
func (p *parser) parsePrimary() (query.Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokInt:
		p.read()
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf(t, "integer literal %s out of range", t.text)
		}
		return &query.Literal{V: xdm.Int(n)}, nil
	case tokDbl:
		p.read()
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "malformed number %s", t.text)
		}
		return &query.Literal{V: xdm.Dbl(f)}, nil
	case tokStr:
		p.read()
		return &query.Literal{V: xdm.Str(t.text)}, nil
	case tokVar:
		p.read()
		v, err := p.lookup(t)
		if err != nil {
			return nil, err
		}
		return &query.VarRef{Var: v}, nil
	case tokOp:
		switch t.text {
		case "(":
			p.read()
			if p.acceptOp(")") {
				return &query.Literal{V: xdm.Empty}, nil
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp(")"); err != nil {
				return nil, err
			}
			return e, nil
		case ".":
			p.read()
			return &query.ContextItem{}, nil
		}
	case tokName:
		next := p.peekAt(1)
		switch {
		case t.text == "function" && next.is(tokOp, "("):
			return p.parseInlineFunc()
		case next.is(tokOp, "#"):
			return p.parseFuncRef()
		case next.is(tokOp, "("):
			p.read()
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			c, err := query.NewCall(t.text, args)
			if err != nil {
				return nil, p.located(t, err)
			}
			return c, nil
		}
	}
	return nil, p.errorf(t, "unexpected %s", t)
}

// [32] ArgumentList ::= "(" (ExprSingle ("," ExprSingle)*)? ")"
func (p *parser) parseArgs() ([]query.Expr, error) {
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	var args []query.Expr
	if p.acceptOp(")") {
		return args, nil
	}
	for {
		a, err := p.parseExprSingle()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if !p.acceptOp(",") {
			break
		}
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return args, nil
}

// [33] NamedFunctionRef ::= Name "#" Integer
func (p *parser) parseFuncRef() (query.Expr, error) {
	name := p.read()
	p.read()
	at := p.read()
	if at.kind != tokInt {
		return nil, p.errorf(at, "expected arity after %s#, found %s", name.text, at)
	}
	arity, err := strconv.Atoi(at.text)
	if err != nil {
		return nil, p.errorf(at, "arity %s out of range", at.text)
	}
	ref, err := query.NewFuncRef(name.text, arity)
	if err != nil {
		return nil, p.located(name, err)
	}
	return ref, nil
}

// [34] InlineFunction ::= "function" "(" ("$" Name ("," "$" Name)*)? ")" "{" Expr "}"
func (p *parser) parseInlineFunc() (query.Expr, error) {
	p.read()
	if err := p.expectOp("("); err != nil {
		return nil, err
	}
	var names []token
	if !p.acceptOp(")") {
		for {
			vt, err := p.expectVar()
			if err != nil {
				return nil, err
			}
			names = append(names, vt)
			if !p.acceptOp(",") {
				break
			}
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
	}
	if err := p.expectOp("{"); err != nil {
		return nil, err
	}

	mark := len(p.vars)
	defer func() { p.vars = p.vars[:mark] }()
	f := &query.InlineFunc{}
	for _, n := range names {
		f.Params = append(f.Params, p.declare(n.text))
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp("}"); err != nil {
		return nil, err
	}
	f.Body = body
	return f, nil
}

// VarRefs returns the names of the variables that occur in src, in order
// of first occurrence. Binding occurrences are included.
func VarRefs(src string) ([]string, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, t := range toks {
		if t.kind == tokVar && !slices.Contains(names, t.text) {
			names = append(names, t.text)
		}
	}
	return names, nil
}

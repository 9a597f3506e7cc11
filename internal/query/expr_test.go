package query

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xqdb/internal/xdm"
)

func evalConst(t *testing.T, e Expr) ([]string, error) {
	t.Helper()
	return run(t, e, NewScope())
}

func ints(vs ...int64) Expr { return lit(xdm.Ints(vs...)) }

func num(v int64) Expr { return lit(xdm.Int(v)) }

func str(s string) Expr { return lit(xdm.Str(s)) }

func nan() float64 { return math.NaN() }

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		e    Expr
		want []string
		code string
	}{
		{"add", &Arith{Op: OpAdd, L: num(1), R: num(2)}, []string{"3"}, ""},
		{"div yields double", &Arith{Op: OpDiv, L: num(7), R: num(2)}, []string{"3.5"}, ""},
		{"idiv", &Arith{Op: OpIDiv, L: num(7), R: num(2)}, []string{"3"}, ""},
		{"mod", &Arith{Op: OpMod, L: num(7), R: num(2)}, []string{"1"}, ""},
		{"mixed numeric", &Arith{Op: OpMul, L: num(2), R: lit(xdm.Dbl(1.5))}, []string{"3"}, ""},
		{"untyped operand", &Arith{Op: OpAdd, L: lit(xdm.Untyped("2")), R: num(1)}, []string{"3"}, ""},
		{"empty operand", &Arith{Op: OpAdd, L: num(1), R: lit(xdm.Empty)}, []string{}, ""},
		{"negation", &Neg{E: num(4)}, []string{"-4"}, ""},
		{"division by zero", &Arith{Op: OpIDiv, L: num(1), R: num(0)}, nil, xdm.CodeDivZero},
		{"string operand", &Arith{Op: OpAdd, L: str("a"), R: num(1)}, nil, xdm.CodeType},
		{"sequence operand", &Arith{Op: OpAdd, L: ints(1, 2), R: num(1)}, nil, xdm.CodeType},
		{"add at limit", &Arith{Op: OpAdd, L: num(math.MaxInt64 - 1), R: num(1)}, []string{"9223372036854775807"}, ""},
		{"mul at limit", &Arith{Op: OpMul, L: num(math.MinInt64 / 2), R: num(2)}, []string{"-9223372036854775808"}, ""},
		{"add overflow", &Arith{Op: OpAdd, L: num(math.MaxInt64), R: num(1)}, nil, xdm.CodeOverflow},
		{"add underflow", &Arith{Op: OpAdd, L: num(math.MinInt64), R: num(-1)}, nil, xdm.CodeOverflow},
		{"sub overflow", &Arith{Op: OpSub, L: num(-math.MaxInt64), R: num(2)}, nil, xdm.CodeOverflow},
		{"sub of minimum", &Arith{Op: OpSub, L: num(0), R: num(math.MinInt64)}, nil, xdm.CodeOverflow},
		{"mul overflow", &Arith{Op: OpMul, L: num(math.MaxInt64), R: num(2)}, nil, xdm.CodeOverflow},
		{"mul minimum by minus one", &Arith{Op: OpMul, L: num(math.MinInt64), R: num(-1)}, nil, xdm.CodeOverflow},
		{"idiv overflow", &Arith{Op: OpIDiv, L: num(math.MinInt64), R: num(-1)}, nil, xdm.CodeOverflow},
		{"double idiv overflow", &Arith{Op: OpIDiv, L: lit(xdm.Dbl(1e300)), R: num(1)}, nil, xdm.CodeOverflow},
		{"negate minimum", &Neg{E: num(math.MinInt64)}, nil, xdm.CodeOverflow},
		{"sum overflow", call(t, "sum", ints(math.MaxInt64, 1)), nil, xdm.CodeOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalConst(t, tt.e)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, xdm.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConstantFolding(t *testing.T) {
	c := compile(t, &Arith{Op: OpAdd, L: num(1), R: &Arith{Op: OpMul, L: num(2), R: num(3)}}, NewScope())
	assert.Equal(t, lit(xdm.Int(7)), c.Root)
	assert.Len(t, c.Rewrites, 2)

	// A failing constant stays in the plan and fails when evaluated.
	c = compile(t, &Arith{Op: OpIDiv, L: num(1), R: num(0)}, NewScope())
	assert.IsType(t, &Arith{}, c.Root)
	_, err := c.Value(context.Background())
	assert.Equal(t, xdm.CodeDivZero, xdm.ErrorCode(err))
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		name string
		e    Expr
		want []string
		code string
	}{
		{"general existential", &GeneralCmp{Op: CmpEq, L: ints(1, 2), R: ints(2, 3)}, []string{"true"}, ""},
		{"general none", &GeneralCmp{Op: CmpEq, L: ints(1, 2), R: ints(3, 4)}, []string{"false"}, ""},
		{"general empty", &GeneralCmp{Op: CmpEq, L: lit(xdm.Empty), R: num(1)}, []string{"false"}, ""},
		{"general untyped to number", &GeneralCmp{Op: CmpLt, L: lit(xdm.Untyped("10")), R: num(9)}, []string{"false"}, ""},
		{"value eq", &ValueCmp{Op: CmpEq, L: num(1), R: lit(xdm.Dbl(1))}, []string{"true"}, ""},
		{"value empty", &ValueCmp{Op: CmpEq, L: lit(xdm.Empty), R: num(1)}, []string{}, ""},
		{"value untyped as string", &ValueCmp{Op: CmpLt, L: lit(xdm.Untyped("10")), R: str("9")}, []string{"true"}, ""},
		{"NaN only unequal", &ValueCmp{Op: CmpNe, L: lit(xdm.Dbl(nan())), R: lit(xdm.Dbl(nan()))}, []string{"true"}, ""},
		{"value sequence", &ValueCmp{Op: CmpEq, L: ints(1, 2), R: num(1)}, nil, xdm.CodeType},
		{"value mixed types", &ValueCmp{Op: CmpEq, L: str("1"), R: num(1)}, nil, xdm.CodeType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalConst(t, tt.e)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, xdm.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNodeComparisons(t *testing.T) {
	tbl := buildABC(t)
	b, c := lit(nodeAt(tbl, 2)), lit(nodeAt(tbl, 3))

	got, err := evalConst(t, &NodeCmp{Op: NodeBefore, L: b, R: c})
	require.NoError(t, err)
	assert.Equal(t, []string{"true"}, got)

	got, err = evalConst(t, &NodeCmp{Op: NodeIs, L: b, R: lit(nodeAt(tbl, 2))})
	require.NoError(t, err)
	assert.Equal(t, []string{"true"}, got)

	_, err = evalConst(t, &NodeCmp{Op: NodeAfter, L: num(1), R: c})
	assert.Equal(t, xdm.CodeType, xdm.ErrorCode(err))
}

func TestLogic(t *testing.T) {
	tests := []struct {
		name string
		e    Expr
		want []string
		code string
	}{
		{"and", &And{L: lit(xdm.Bool(true)), R: num(0)}, []string{"false"}, ""},
		{"or", &Or{L: str(""), R: str("x")}, []string{"true"}, ""},
		{"and short-circuits", &And{L: lit(xdm.Bool(false)), R: &Arith{Op: OpIDiv, L: num(1), R: num(0)}}, []string{"false"}, ""},
		{"if", &If{Cond: lit(xdm.Empty), Then: num(1), Else: num(2)}, []string{"2"}, ""},
		{"ebv of several atomics", &If{Cond: ints(1, 2), Then: num(1), Else: num(2)}, nil, xdm.CodeEBV},
		{"not", call(t, "not", lit(xdm.Strs("a"))), []string{"false"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalConst(t, tt.e)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, xdm.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSequences(t *testing.T) {
	got, err := evalConst(t, &Seq{Exprs: []Expr{num(1), &Seq{Exprs: []Expr{lit(xdm.Empty), str("a")}}, &Range{Lo: num(2), Hi: num(4)}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "a", "2", "3", "4"}, got)

	got, err = evalConst(t, &Range{Lo: num(3), Hi: num(1)})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = evalConst(t, call(t, "count", &Range{Lo: num(1), Hi: num(math.MaxInt64)}))
	require.NoError(t, err)
	assert.Equal(t, []string{"9223372036854775807"}, got)

	_, err = evalConst(t, call(t, "count", &Range{Lo: num(-math.MaxInt64), Hi: num(math.MaxInt64)}))
	require.Error(t, err)
	assert.Equal(t, xdm.CodeLimit, xdm.ErrorCode(err))

	got, err = evalConst(t, &Filter{E: ints(5, 6, 7), Preds: []Expr{&GeneralCmp{Op: CmpGe, L: call(t, "position"), R: num(2)}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"6", "7"}, got)

	got, err = evalConst(t, &Filter{E: ints(5, 6, 7), Preds: []Expr{call(t, "last")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, got)
}

func TestFilterLargeRange(t *testing.T) {
	huge := func() Expr { return &Range{Lo: num(1), Hi: num(math.MaxInt64)} }
	dot := func(op CmpOp, n int64) Expr { return &GeneralCmp{Op: op, L: &ContextItem{}, R: num(n)} }

	tests := []struct {
		name  string
		preds []Expr
		want  []string
	}{
		{"last", []Expr{call(t, "last")}, []string{"9223372036854775807"}},
		{"first", []Expr{num(1)}, []string{"1"}},
		{"integral double", []Expr{lit(xdm.Dbl(3))}, []string{"3"}},
		{"fractional double", []Expr{lit(xdm.Dbl(2.5))}, []string{}},
		{"position zero", []Expr{num(0)}, []string{}},
		{"chained positions", []Expr{num(5), num(1)}, []string{"5"}},
		{"position then boolean", []Expr{call(t, "last"), dot(CmpGt, 0)}, []string{"9223372036854775807"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalConst(t, &Filter{E: huge(), Preds: tt.preds})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("joined operands", func(t *testing.T) {
		e := &Filter{
			E:     &Seq{Exprs: []Expr{&Range{Lo: num(1), Hi: num(math.MaxInt64 - 1)}, num(0)}},
			Preds: []Expr{call(t, "last")},
		}
		c := compile(t, e, NewScope())
		assert.Equal(t, "(1 to 9223372036854775806, 0)[last()]", c.Plan())
		got, err := run(t, e, NewScope())
		require.NoError(t, err)
		assert.Equal(t, []string{"0"}, got)
	})

	t.Run("streams boolean predicate", func(t *testing.T) {
		res, err := compile(t, &Filter{E: huge(), Preds: []Expr{dot(CmpGt, 5)}}, NewScope()).Iter(context.Background())
		require.NoError(t, err)
		for _, want := range []xdm.Item{xdm.Int(6), xdm.Int(7), xdm.Int(8)} {
			got, err := res.Next()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		res.Close()
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := compile(t, &Filter{E: huge(), Preds: []Expr{dot(CmpLt, 0)}}, NewScope()).Iter(ctx)
		require.NoError(t, err)
		_, err = res.Next()
		require.Error(t, err)
		assert.True(t, xdm.IsAborted(err))
	})
}

func TestSwitch(t *testing.T) {
	sw := func(operand Expr, cases ...SwitchCase) *Switch {
		return &Switch{Operand: operand, Cases: cases, Default: str("default")}
	}
	one := SwitchCase{Tests: []Expr{num(1)}, Return: str("one")}
	none := SwitchCase{Tests: []Expr{lit(xdm.Empty)}, Return: str("none")}
	nanCase := SwitchCase{Tests: []Expr{lit(xdm.Dbl(nan()))}, Return: str("nan")}
	tests := []struct {
		name string
		e    Expr
		want []string
		code string
	}{
		{"first match", sw(num(1), one, none), []string{"one"}, ""},
		{"numeric promotion", sw(lit(xdm.Dbl(1)), one), []string{"one"}, ""},
		{"no match", sw(num(2), one), []string{"default"}, ""},
		{"empty matches empty", sw(lit(xdm.Empty), one, none), []string{"none"}, ""},
		{"nan matches nan", sw(lit(xdm.Dbl(nan())), one, nanCase), []string{"nan"}, ""},
		{"incomparable case", sw(str("1"), one), []string{"default"}, ""},
		{"operand not single", sw(ints(1, 2), one), nil, xdm.CodeType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalConst(t, tt.e)
			if tt.code != "" {
				require.Error(t, err)
				assert.Equal(t, tt.code, xdm.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSwitchStaticBranch(t *testing.T) {
	c := compile(t, &Switch{
		Operand: num(2),
		Cases: []SwitchCase{
			{Tests: []Expr{num(1)}, Return: str("one")},
			{Tests: []Expr{num(2)}, Return: &Arith{Op: OpAdd, L: num(1), R: num(1)}},
		},
		Default: str("d"),
	}, NewScope())
	assert.Equal(t, lit(xdm.Int(2)), c.Root)
	assert.Contains(t, c.Rewrites, "switch: constant operand 2")

	s := NewScope()
	x := s.Declare("x")
	c = compile(t, &Switch{Operand: ref(x), Cases: []SwitchCase{{Tests: []Expr{num(1)}, Return: str("one")}}, Default: str("d")}, s)
	assert.IsType(t, &Switch{}, c.Root)
}

func TestInstanceOf(t *testing.T) {
	tests := []struct {
		e    Expr
		typ  xdm.SeqType
		want string
	}{
		{num(1), xdm.SeqInteger, "true"},
		{num(1), xdm.SeqType{Type: xdm.TypeNumeric, Occ: xdm.OccZeroOrOne}, "true"},
		{num(1), xdm.SeqString, "false"},
		{ints(1, 2), xdm.SeqInteger, "false"},
		{ints(1, 2), xdm.SeqIntegers, "true"},
		{lit(xdm.Empty), xdm.SeqEmpty, "true"},
		{lit(xdm.Empty), xdm.SeqInteger, "false"},
		{lit(xdm.FromItems(xdm.Int(1), xdm.Str("a"))), xdm.SeqType{Type: xdm.TypeAtomic, Occ: xdm.OccOneOrMore}, "true"},
	}
	for _, tt := range tests {
		e := &InstanceOf{E: tt.e, Type: tt.typ}
		t.Run(e.String(), func(t *testing.T) {
			got, err := evalConst(t, e)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, got)
		})
	}
}

func TestHigherOrderFunctions(t *testing.T) {
	s := NewScope()
	x := s.Declare("x")
	acc := s.Declare("acc")
	double := &InlineFunc{Params: []*Var{x}, Body: &Arith{Op: OpMul, L: ref(x), R: num(2)}}
	even := &InlineFunc{Params: []*Var{x}, Body: &GeneralCmp{Op: CmpEq, L: &Arith{Op: OpMod, L: ref(x), R: num(2)}, R: num(0)}}
	add := &InlineFunc{Params: []*Var{acc, x}, Body: &Arith{Op: OpAdd, L: ref(acc), R: ref(x)}}
	push := &InlineFunc{Params: []*Var{acc, x}, Body: &Seq{Exprs: []Expr{ref(x), ref(acc)}}}
	cons := &InlineFunc{Params: []*Var{x, acc}, Body: &Seq{Exprs: []Expr{ref(x), ref(acc)}}}

	got, err := run(t, call(t, "for-each", &Range{Lo: num(1), Hi: num(3)}, double), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4", "6"}, got)

	got, err = run(t, call(t, "filter", &Range{Lo: num(1), Hi: num(6)}, even), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4", "6"}, got)

	got, err = run(t, call(t, "fold-left", &Range{Lo: num(1), Hi: num(4)}, num(0), add), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"10"}, got)

	got, err = run(t, call(t, "fold-left", ints(1, 2, 3), lit(xdm.Empty), push), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, got)

	got, err = run(t, call(t, "fold-right", ints(1, 2, 3), lit(xdm.Empty), cons), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, got)

	_, err = run(t, call(t, "filter", ints(1, 2), double), s)
	require.Error(t, err)
	assert.Equal(t, xdm.CodeType, xdm.ErrorCode(err))

	_, err = run(t, call(t, "fold-left", ints(1), num(0), double), s)
	require.Error(t, err)
	assert.Equal(t, xdm.CodeType, xdm.ErrorCode(err))

	t.Run("cancelled", func(t *testing.T) {
		c := compile(t, call(t, "for-each", &Range{Lo: num(1), Hi: num(math.MaxInt64)}, double), s)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.Value(ctx)
		require.Error(t, err)
		assert.True(t, xdm.IsAborted(err))
	})
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []Expr
		want []string
	}{
		{"count", "count", []Expr{ints(1, 2, 3)}, []string{"3"}},
		{"sum", "sum", []Expr{ints(1, 2, 3)}, []string{"6"}},
		{"sum empty", "sum", []Expr{lit(xdm.Empty)}, []string{"0"}},
		{"avg", "avg", []Expr{ints(1, 2)}, []string{"1.5"}},
		{"min", "min", []Expr{ints(3, 1, 2)}, []string{"1"}},
		{"max strings", "max", []Expr{lit(xdm.Strs("a", "c", "b"))}, []string{"c"}},
		{"empty", "empty", []Expr{lit(xdm.Empty)}, []string{"true"}},
		{"exists", "exists", []Expr{ints(1)}, []string{"true"}},
		{"concat", "concat", []Expr{str("a"), num(1), lit(xdm.Empty)}, []string{"a1"}},
		{"string-join", "string-join", []Expr{ints(1, 2), str("-")}, []string{"1-2"}},
		{"string-length", "string-length", []Expr{str("héllo")}, []string{"5"}},
		{"contains", "contains", []Expr{str("xquery"), str("que")}, []string{"true"}},
		{"upper-case", "upper-case", []Expr{str("abc")}, []string{"ABC"}},
		{"reverse", "reverse", []Expr{ints(1, 2, 3)}, []string{"3", "2", "1"}},
		{"head", "head", []Expr{ints(4, 5)}, []string{"4"}},
		{"tail", "tail", []Expr{ints(4, 5, 6)}, []string{"5", "6"}},
		{"subsequence", "subsequence", []Expr{ints(1, 2, 3, 4), num(2), num(2)}, []string{"2", "3"}},
		{"distinct-values", "distinct-values", []Expr{lit(xdm.FromItems(xdm.Int(1), xdm.Dbl(1), xdm.Str("1")))}, []string{"1", "1"}},
		{"number", "number", []Expr{str("x")}, []string{"NaN"}},
		{"boolean", "fn:boolean", []Expr{str("x")}, []string{"true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalConst(t, call(t, tt.fn, tt.args...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallErrors(t *testing.T) {
	_, err := NewCall("count", nil)
	require.Error(t, err)
	assert.True(t, xdm.IsArityError(err))
	assert.Equal(t, xdm.CodeNoFunction, xdm.ErrorCode(err))

	_, err = NewCall("no-such-function", []Expr{num(1)})
	require.Error(t, err)
	assert.True(t, xdm.IsStaticError(err))
	assert.Equal(t, xdm.CodeNoFunction, xdm.ErrorCode(err))

	_, err = NewFuncRef("position", 0)
	require.Error(t, err)
	assert.True(t, xdm.IsStaticError(err))

	assert.Contains(t, Functions(), "distinct-values")
}

func TestFunctionItems(t *testing.T) {
	s := NewScope()
	f, a := s.Declare("f"), s.Declare("a")
	double := &InlineFunc{Params: []*Var{a}, Body: &Arith{Op: OpMul, L: ref(a), R: num(2)}}

	t.Run("inline call", func(t *testing.T) {
		e := flwor(t, &DynCall{Fn: ref(f), Args: []Expr{num(21)}}, &Let{Var: f, Expr: double})
		got, err := run(t, e, s)
		require.NoError(t, err)
		assert.Equal(t, []string{"42"}, got)
	})

	t.Run("wrong arity", func(t *testing.T) {
		e := flwor(t, &DynCall{Fn: ref(f), Args: []Expr{num(1), num(2)}}, &Let{Var: f, Expr: double})
		_, err := run(t, e, s)
		require.Error(t, err)
		assert.True(t, xdm.IsArityError(err))
		assert.Equal(t, xdm.CodeType, xdm.ErrorCode(err))
	})

	t.Run("named reference", func(t *testing.T) {
		fr, err := NewFuncRef("count", 1)
		require.NoError(t, err)
		got, err := evalConst(t, &DynCall{Fn: fr, Args: []Expr{ints(7, 8, 9)}})
		require.NoError(t, err)
		assert.Equal(t, []string{"3"}, got)
	})

	t.Run("not a function", func(t *testing.T) {
		_, err := evalConst(t, &DynCall{Fn: num(1)})
		require.Error(t, err)
		assert.Equal(t, xdm.CodeType, xdm.ErrorCode(err))
	})

	t.Run("closure captures bindings", func(t *testing.T) {
		k := s.Declare("k")
		addK := &InlineFunc{Params: []*Var{a}, Body: &Arith{Op: OpAdd, L: ref(a), R: ref(k)}}
		// for $k in (10, 20) let $f := function($a) { $a + $k } return $f(1)
		e := flwor(t, &DynCall{Fn: ref(f), Args: []Expr{num(1)}},
			&For{Var: k, Expr: ints(10, 20)},
			&Let{Var: f, Expr: addK},
		)
		got, err := run(t, e, s)
		require.NoError(t, err)
		assert.Equal(t, []string{"11", "21"}, got)
	})
}

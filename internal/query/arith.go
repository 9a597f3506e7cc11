package query

import (
	"fmt"
	"math"

	"github.com/roach88/xqdb/internal/xdm"
)

// ArithOp is an arithmetic operator.
type ArithOp uint8

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpIDiv
	OpMod
)

var arithNames = [...]string{OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "div", OpIDiv: "idiv", OpMod: "mod"}

func (op ArithOp) String() string { return arithNames[op] }

// Arith applies an arithmetic operator to two optional atomic operands.
// An empty operand yields the empty sequence.
type Arith struct {
	Op   ArithOp
	L, R Expr
}

func (a *Arith) Iter(qc *Context) (xdm.Iter, error) { return valueIter(a, qc) }
func (a *Arith) Size() int                          { return sizeOf(a.SeqType()) }
func (a *Arith) String() string {
	return fmt.Sprintf("(%s %s %s)", a.L, a.Op, a.R)
}

// SeqType implements Expr.
func (a *Arith) SeqType() xdm.SeqType {
	lt, rt := a.L.SeqType(), a.R.SeqType()
	occ := xdm.OccZeroOrOne
	if lt.One() && rt.One() {
		occ = xdm.OccOne
	}
	typ := xdm.TypeNumeric
	switch {
	case a.Op == OpIDiv:
		typ = xdm.TypeInteger
	case a.Op == OpDiv:
		typ = xdm.TypeDouble
	case lt.Type == xdm.TypeInteger && rt.Type == xdm.TypeInteger:
		typ = xdm.TypeInteger
	case lt.Type == xdm.TypeDouble || rt.Type == xdm.TypeDouble:
		typ = xdm.TypeDouble
	}
	return xdm.SeqType{Type: typ, Occ: occ}
}

// Value implements Expr.
func (a *Arith) Value(qc *Context) (xdm.Value, error) {
	l, err := atomicOperand(qc, a.L, a.Op.String())
	if err != nil || l == nil {
		return xdm.Empty, err
	}
	r, err := atomicOperand(qc, a.R, a.Op.String())
	if err != nil || r == nil {
		return xdm.Empty, err
	}
	return Calc(a.Op, l, r)
}

// Optimize implements Expr.
func (a *Arith) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if a.L, err = a.L.Optimize(o); err != nil {
		return nil, err
	}
	if a.R, err = a.R.Optimize(o); err != nil {
		return nil, err
	}
	if literals(a.L, a.R) {
		return o.fold(a), nil
	}
	return a, nil
}

func atomicOperand(qc *Context, e Expr, op string) (xdm.Item, error) {
	v, err := e.Value(qc)
	if err != nil {
		return nil, err
	}
	return xdm.AtomizeOpt(v, op)
}

// Calc applies op to two atomic items. Untyped operands are cast to
// xs:double. Integer operands stay integers except for div, which always
// yields a double.
func Calc(op ArithOp, l, r xdm.Item) (xdm.Item, error) {
	if !l.Type().IsNumeric() && l.Type() != xdm.TypeUntyped ||
		!r.Type().IsNumeric() && r.Type() != xdm.TypeUntyped {
		return nil, xdm.TypeError(xdm.CodeType, "operator %s not defined for %s and %s", op, l.Type(), r.Type())
	}
	x, xok := l.(xdm.Int)
	y, yok := r.(xdm.Int)
	if xok && yok && op != OpDiv {
		return calcInt(op, int64(x), int64(y))
	}
	f, err := xdm.ToDouble(l)
	if err != nil {
		return nil, err
	}
	g, err := xdm.ToDouble(r)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpAdd:
		return xdm.Dbl(f + g), nil
	case OpSub:
		return xdm.Dbl(f - g), nil
	case OpMul:
		return xdm.Dbl(f * g), nil
	case OpDiv:
		return xdm.Dbl(f / g), nil
	case OpIDiv:
		if g == 0 {
			return nil, xdm.TypeError(xdm.CodeDivZero, "integer division by zero")
		}
		q := math.Trunc(f / g)
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return nil, xdm.TypeError(xdm.CodeDivZero, "idiv result %s is not an integer", xdm.FormatDouble(q))
		}
		if q < math.MinInt64 || q >= math.MaxInt64 {
			return nil, xdm.TypeError(xdm.CodeOverflow, "idiv result %s exceeds the integer range", xdm.FormatDouble(q))
		}
		return xdm.Int(int64(q)), nil
	case OpMod:
		return xdm.Dbl(math.Mod(f, g)), nil
	}
	return nil, xdm.Internal("unknown operator %d", op)
}

// calcInt applies op to two integers. Results outside the int64 range are
// FOAR0002 errors.
func calcInt(op ArithOp, x, y int64) (xdm.Item, error) {
	switch op {
	case OpAdd:
		r := x + y
		if (x > 0 && y > 0 && r < 0) || (x < 0 && y < 0 && r >= 0) {
			return nil, overflow(op, x, y)
		}
		return xdm.Int(r), nil
	case OpSub:
		r := x - y
		if (y > 0 && r > x) || (y < 0 && r < x) {
			return nil, overflow(op, x, y)
		}
		return xdm.Int(r), nil
	case OpMul:
		if x == 0 || y == 0 {
			return xdm.Int(0), nil
		}
		r := x * y
		if r/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
			return nil, overflow(op, x, y)
		}
		return xdm.Int(r), nil
	case OpIDiv, OpMod:
		if y == 0 {
			return nil, xdm.TypeError(xdm.CodeDivZero, "integer division by zero")
		}
		if op == OpMod {
			return xdm.Int(x % y), nil
		}
		if x == math.MinInt64 && y == -1 {
			return nil, overflow(op, x, y)
		}
		return xdm.Int(x / y), nil
	}
	return nil, xdm.Internal("unknown integer operator %d", op)
}

func overflow(op ArithOp, x, y int64) error {
	return xdm.TypeError(xdm.CodeOverflow, "integer overflow: %d %s %d", x, op, y)
}

// Neg is unary minus.
type Neg struct {
	E Expr
}

func (n *Neg) Iter(qc *Context) (xdm.Iter, error) { return valueIter(n, qc) }
func (n *Neg) SeqType() xdm.SeqType {
	st := n.E.SeqType()
	typ := xdm.TypeNumeric
	if st.Type.IsNumeric() {
		typ = st.Type
	}
	if st.One() {
		return xdm.SeqType{Type: typ, Occ: xdm.OccOne}
	}
	return xdm.SeqType{Type: typ, Occ: xdm.OccZeroOrOne}
}
func (n *Neg) Size() int      { return sizeOf(n.SeqType()) }
func (n *Neg) String() string { return "-" + n.E.String() }

// Value implements Expr.
func (n *Neg) Value(qc *Context) (xdm.Value, error) {
	it, err := atomicOperand(qc, n.E, "-")
	if err != nil || it == nil {
		return xdm.Empty, err
	}
	return Calc(OpSub, xdm.Int(0), it)
}

// Optimize implements Expr.
func (n *Neg) Optimize(o *Optimizer) (Expr, error) {
	var err error
	if n.E, err = n.E.Optimize(o); err != nil {
		return nil, err
	}
	if literals(n.E) {
		return o.fold(n), nil
	}
	return n, nil
}

package query

import (
	"github.com/roach88/xqdb/internal/xdm"
)

// funcArg evaluates argument i to a single function item of the given arity.
func funcArg(qc *Context, args []Expr, i, arity int, name string) (*xdm.Func, error) {
	v, err := arg(qc, args, i)
	if err != nil {
		return nil, err
	}
	var fn *xdm.Func
	if v.Size() == 1 {
		fn, _ = v.ItemAt(0).(*xdm.Func)
	}
	if fn == nil || fn.Arity != arity {
		return nil, xdm.TypeError(xdm.CodeType, "%s: expected function of arity %d, got %s", name, arity, v.SeqType())
	}
	return fn, nil
}

// eachItem calls f for every item of argument 0. Each call is a step.
func eachItem(qc *Context, args []Expr, f func(xdm.Item) error) error {
	it, err := args[0].Iter(qc)
	if err != nil {
		return err
	}
	for {
		if err := qc.CheckStop(); err != nil {
			return err
		}
		item, err := it.Next()
		if err != nil || item == nil {
			return err
		}
		if err := f(item); err != nil {
			return err
		}
	}
}

func fnForEach(qc *Context, args []Expr) (xdm.Value, error) {
	fn, err := funcArg(qc, args, 1, 1, "for-each")
	if err != nil {
		return nil, err
	}
	var out []xdm.Value
	err = eachItem(qc, args, func(item xdm.Item) error {
		r, err := fn.Call([]xdm.Value{item})
		if err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return xdm.Join(out...)
}

func fnFilter(qc *Context, args []Expr) (xdm.Value, error) {
	fn, err := funcArg(qc, args, 1, 1, "filter")
	if err != nil {
		return nil, err
	}
	b := xdm.NewBuilder(0)
	err = eachItem(qc, args, func(item xdm.Item) error {
		r, err := fn.Call([]xdm.Value{item})
		if err != nil {
			return err
		}
		keep, ok := r.(xdm.Bool)
		if !ok {
			return xdm.TypeError(xdm.CodeType, "filter: predicate returned %s, expected xs:boolean", r.SeqType())
		}
		if keep {
			b.Add(item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b.Value(), nil
}

func fnFoldLeft(qc *Context, args []Expr) (xdm.Value, error) {
	fn, err := funcArg(qc, args, 2, 2, "fold-left")
	if err != nil {
		return nil, err
	}
	acc, err := arg(qc, args, 1)
	if err != nil {
		return nil, err
	}
	err = eachItem(qc, args, func(item xdm.Item) error {
		acc, err = fn.Call([]xdm.Value{acc, item})
		return err
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func fnFoldRight(qc *Context, args []Expr) (xdm.Value, error) {
	fn, err := funcArg(qc, args, 2, 2, "fold-right")
	if err != nil {
		return nil, err
	}
	seq, err := arg(qc, args, 0)
	if err != nil {
		return nil, err
	}
	acc, err := arg(qc, args, 1)
	if err != nil {
		return nil, err
	}
	for i := seq.Size() - 1; i >= 0; i-- {
		if err := qc.CheckStop(); err != nil {
			return nil, err
		}
		if acc, err = fn.Call([]xdm.Value{seq.ItemAt(i), acc}); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

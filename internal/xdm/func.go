package xdm

import "fmt"

// Func is a function item. Body receives exactly Arity arguments.
type Func struct {
	// Name is the function name, empty for inline functions.
	Name  string
	Arity int
	Body  func(args []Value) (Value, error)
}

// Call invokes f. A mismatched argument count is an arity error.
func (f *Func) Call(args []Value) (Value, error) {
	if len(args) != f.Arity {
		return nil, ArityError(f.label(), f.Arity, len(args))
	}
	return f.Body(args)
}

func (f *Func) label() string {
	if f.Name == "" {
		return fmt.Sprintf("function#%d", f.Arity)
	}
	return fmt.Sprintf("%s#%d", f.Name, f.Arity)
}

func (*Func) Size() int                         { return 1 }
func (f *Func) ItemAt(int) Item                 { return f }
func (f *Func) Iter() Iter                      { return ValueIter(f) }
func (f *Func) WriteTo(buf []Item, off int) int { return WriteItem(f, buf, off) }
func (*Func) SeqType() SeqType                  { return SeqType{TypeFunction, OccOne} }
func (*Func) Type() Type                        { return TypeFunction }
func (*Func) Score() float64                    { return 0 }
func (f *Func) String() string                  { return f.label() }

// EBV is not defined for functions.
func (f *Func) EBV() (bool, error) {
	return false, TypeError(CodeEBV, "effective boolean value not defined for %s", f.label())
}

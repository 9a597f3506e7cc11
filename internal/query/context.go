package query

import (
	"context"

	"github.com/roach88/xqdb/internal/node"
	"github.com/roach88/xqdb/internal/xdm"
)

// DocResolver resolves the URIs passed to fn:doc.
type DocResolver interface {
	Doc(uri string) (*node.Node, error)
}

// DocResolverFunc adapts a function to DocResolver.
type DocResolverFunc func(uri string) (*node.Node, error)

// Doc implements DocResolver.
func (f DocResolverFunc) Doc(uri string) (*node.Node, error) { return f(uri) }

// Focus is the context item with its position and the context size.
type Focus struct {
	Item xdm.Item
	Pos  int
	Size int
}

// Context is the state of one evaluation: cancellation, variable slots,
// focus, document access and step budget.
type Context struct {
	ctx   context.Context
	vars  []xdm.Value
	focus Focus
	docs  DocResolver
	quota *Quota

	bindings map[string]xdm.Value
}

// Option configures a Context.
type Option func(*Context)

// WithDocs sets the resolver used by fn:doc.
func WithDocs(r DocResolver) Option {
	return func(qc *Context) { qc.docs = r }
}

// WithMaxSteps limits the number of clause steps. 0 means unlimited.
func WithMaxSteps(n int64) Option {
	return func(qc *Context) { qc.quota = NewQuota(n) }
}

// WithContextItem sets the initial context item.
func WithContextItem(it xdm.Item) Option {
	return func(qc *Context) { qc.focus = Focus{Item: it, Pos: 1, Size: 1} }
}

// WithVariable binds the external variable name.
func WithVariable(name string, v xdm.Value) Option {
	return func(qc *Context) {
		if qc.bindings == nil {
			qc.bindings = make(map[string]xdm.Value)
		}
		qc.bindings[name] = v
	}
}

// NewContext creates an evaluation context with slots variable slots.
func NewContext(ctx context.Context, slots int, opts ...Option) *Context {
	qc := &Context{
		ctx:   ctx,
		vars:  make([]xdm.Value, slots),
		quota: NewQuota(DefaultMaxSteps),
	}
	for _, opt := range opts {
		opt(qc)
	}
	return qc
}

// Ctx returns the cancellation context.
func (qc *Context) Ctx() context.Context { return qc.ctx }

// CheckStop is polled at every clause step. It fails with an aborted error
// once the context is cancelled or the step budget is spent.
func (qc *Context) CheckStop() error {
	if err := qc.ctx.Err(); err != nil {
		return xdm.Aborted(err)
	}
	return qc.quota.Check()
}

// Steps returns the number of clause steps taken so far.
func (qc *Context) Steps() int64 { return qc.quota.Current() }

// Set binds v to val.
func (qc *Context) Set(v *Var, val xdm.Value) {
	qc.vars[v.Slot] = val
}

// Get returns the value bound to v.
func (qc *Context) Get(v *Var) (xdm.Value, error) {
	val := qc.vars[v.Slot]
	if val == nil {
		if v.External {
			return nil, &xdm.QueryError{Kind: xdm.KindType, Code: xdm.CodeNoContext,
				Message: "external variable " + v.String() + " is not bound"}
		}
		return nil, xdm.Internal("variable %s read before binding", v)
	}
	return val, nil
}

// Focus returns the current focus.
func (qc *Context) Focus() Focus { return qc.focus }

// SetFocus replaces the focus and returns the previous one.
func (qc *Context) SetFocus(f Focus) Focus {
	old := qc.focus
	qc.focus = f
	return old
}

// Doc resolves a document URI.
func (qc *Context) Doc(uri string) (*node.Node, error) {
	if qc.docs == nil {
		return nil, xdm.TypeError(xdm.CodeNoDoc, "no document resolver for %q", uri)
	}
	n, err := qc.docs.Doc(uri)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, xdm.TypeError(xdm.CodeNoDoc, "document %q not found", uri)
	}
	return n, nil
}

// snapshot copies the variable slots.
func (qc *Context) snapshot() []xdm.Value {
	out := make([]xdm.Value, len(qc.vars))
	copy(out, qc.vars)
	return out
}

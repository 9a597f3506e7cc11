package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/xqdb/internal/node"
	"github.com/roach88/xqdb/internal/parser"
	"github.com/roach88/xqdb/internal/query"
	"github.com/roach88/xqdb/internal/xdm"
)

// Compile parses and optimizes src, reusing a cached plan when the same
// source was compiled before.
func (s *Session) Compile(src string) (*query.Compiled, error) {
	if c, ok := s.cache.Get(src); ok {
		return c, nil
	}
	c, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	s.cache.Add(src, c)
	return c, nil
}

// Query starts evaluating src. vars binds external variables by name.
//
// The session read lock is held until the Result is closed, so writers
// wait for every open Result. Always close the Result.
func (s *Session) Query(ctx context.Context, src string, vars map[string]xdm.Value) (*Result, error) {
	c, err := s.Compile(src)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, c, vars)
}

// QueryAll evaluates src completely and returns its value.
func (s *Session) QueryAll(ctx context.Context, src string, vars map[string]xdm.Value) (xdm.Value, error) {
	res, err := s.Query(ctx, src, vars)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	items, err := res.All()
	if err != nil {
		return nil, err
	}
	return xdm.FromItems(items...), nil
}

func (s *Session) run(ctx context.Context, c *query.Compiled, vars map[string]xdm.Value) (*Result, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, &Error{Code: ErrCodeClosed, Op: "query"}
	}

	cancel := context.CancelFunc(func() {})
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
	}

	opts := []query.Option{
		query.WithDocs(query.DocResolverFunc(s.resolveDoc)),
		query.WithMaxSteps(s.maxSteps),
	}
	for name, v := range vars {
		opts = append(opts, query.WithVariable(name, v))
	}

	id := s.ids.Generate()
	logger := s.logger.With("query", id)
	inner, err := c.Iter(ctx, opts...)
	if err != nil {
		cancel()
		s.mu.RUnlock()
		logger.Debug("query failed", "error", err)
		return nil, err
	}
	logger.Debug("query started", "plan", c.Plan())

	r := &Result{id: id, inner: inner, logger: logger}
	r.release = func() {
		cancel()
		s.mu.RUnlock()
	}
	return r, nil
}

// Result is a running query. It holds the session read lock until Close.
type Result struct {
	id     string
	inner  *query.Result
	logger *slog.Logger

	items   int
	once    sync.Once
	release func()
}

// ID returns the query id.
func (r *Result) ID() string { return r.id }

// Next returns the next item, or nil once the result is exhausted. The
// result closes itself on exhaustion or error.
func (r *Result) Next() (xdm.Item, error) {
	it, err := r.inner.Next()
	if err != nil {
		r.logger.Debug("query failed", "items", r.items, "steps", r.inner.Steps(), "error", err)
		r.Close()
		return nil, err
	}
	if it == nil {
		r.Close()
		return nil, nil
	}
	r.items++
	return it, nil
}

// All returns the remaining items.
func (r *Result) All() ([]xdm.Item, error) {
	var out []xdm.Item
	for {
		it, err := r.Next()
		if err != nil {
			return nil, err
		}
		if it == nil {
			return out, nil
		}
		out = append(out, it)
	}
}

// Strings returns the remaining items rendered for output.
func (r *Result) Strings() ([]string, error) {
	items, err := r.All()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = node.ItemString(it)
	}
	return out, nil
}

// Steps returns the clause steps taken so far.
func (r *Result) Steps() int64 { return r.inner.Steps() }

// Close ends the evaluation and releases the session read lock. It is
// safe to call more than once.
func (r *Result) Close() {
	r.once.Do(func() {
		r.inner.Close()
		r.logger.Debug("query closed", "items", r.items, "steps", r.inner.Steps())
		r.release()
	})
}

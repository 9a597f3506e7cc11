package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/xqdb/internal/session"
	"github.com/roach88/xqdb/internal/table"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			switch ev.Type {
			case EventQuery:
				fmt.Fprintf(&buf, "  [%d] query %s -> %d items %s\n", ev.Step, ev.Query, len(ev.Items), ev.Error)
			default:
				fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Step, ev.Type, ev.Doc, ev.Error)
			}
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages in order.
func EvaluateAssertions(ctx context.Context, sess *session.Session, result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertDocumentCount:
			err = assertDocumentCount(ctx, sess, a)
		case AssertNodeCount:
			err = assertNodeCount(sess, a)
		case AssertQueryResult:
			err = assertQueryResult(ctx, sess, a, result.Trace)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func assertDocumentCount(ctx context.Context, sess *session.Session, a Assertion) error {
	docs, err := sess.Documents(ctx)
	if err != nil {
		return err
	}
	if len(docs) != a.Count {
		return &AssertionError{
			Type:     AssertDocumentCount,
			Expected: fmt.Sprintf("%d documents", a.Count),
			Actual:   fmt.Sprintf("%d documents", len(docs)),
		}
	}
	return nil
}

func assertNodeCount(sess *session.Session, a Assertion) error {
	var n int
	err := sess.Table(a.Doc, func(t *table.Table) error {
		n = t.Len()
		return nil
	})
	if err != nil {
		return &AssertionError{
			Type:     AssertNodeCount,
			Expected: fmt.Sprintf("document %s with %d nodes", a.Doc, a.Count),
			Actual:   err.Error(),
		}
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertNodeCount,
			Expected: fmt.Sprintf("%d nodes in %s", a.Count, a.Doc),
			Actual:   fmt.Sprintf("%d nodes", n),
		}
	}
	return nil
}

func assertQueryResult(ctx context.Context, sess *session.Session, a Assertion, trace []TraceEvent) error {
	res, err := sess.Query(ctx, a.Query, nil)
	if err != nil {
		return &AssertionError{Type: AssertQueryResult, Expected: fmt.Sprintf("%q", a.Items), Actual: err.Error(), Trace: trace}
	}
	defer res.Close()
	items, err := res.Strings()
	if err != nil {
		return &AssertionError{Type: AssertQueryResult, Expected: fmt.Sprintf("%q", a.Items), Actual: err.Error(), Trace: trace}
	}
	if len(items) == 0 && len(a.Items) == 0 {
		return nil
	}
	if !slices.Equal(items, a.Items) {
		return &AssertionError{
			Type:     AssertQueryResult,
			Expected: fmt.Sprintf("%s = %q", a.Query, a.Items),
			Actual:   fmt.Sprintf("%q", items),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks if the event type appears exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Type == a.Event {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d %s steps", a.Count, a.Event),
			Actual:   fmt.Sprintf("%d %s steps", count, a.Event),
			Trace:    trace,
		}
	}
	return nil
}

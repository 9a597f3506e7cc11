package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/xqdb/internal/session"
	"github.com/roach88/xqdb/internal/store"
	"github.com/roach88/xqdb/internal/testutil"
	"github.com/roach88/xqdb/internal/xdm"
)

// Harness executes the steps of one scenario against a private session.
type Harness struct {
	sess   *session.Session
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Create fresh in-memory database and session
// 2. Create the scenario documents
// 3. Execute steps, checking each expect clause
// 4. Evaluate assertions against the final state
//
// Failed expectations and assertions are reported in the Result; the
// returned error is reserved for scenarios that cannot run at all.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	sess, err := session.New(ctx, st,
		session.WithLogger(logger),
		session.WithIDGenerator(testutil.NewSequentialIDGenerator(scenario.Name)),
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	defer sess.Close()

	h := &Harness{
		sess:   sess,
		clock:  testutil.NewDeterministicClock(),
		logger: logger,
	}

	for i, d := range scenario.Documents {
		if _, err := sess.Create(ctx, d.Name, strings.NewReader(d.XML), d.URI); err != nil {
			return nil, fmt.Errorf("documents[%d] %s: %w", i, d.Name, err)
		}
	}

	result := NewResult()
	for i := range scenario.Steps {
		if err := h.executeStep(ctx, i, &scenario.Steps[i], result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	for _, msg := range EvaluateAssertions(ctx, sess, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step, records it in the trace and checks its
// expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step *Step, result *Result) error {
	ev := TraceEvent{Type: step.Kind(), Step: i, Seq: h.clock.Next()}

	var err error
	switch ev.Type {
	case EventQuery:
		ev.Query = step.Query
		var vars map[string]xdm.Value
		vars, err = session.ValuesOf(step.Vars)
		if err != nil {
			return err
		}
		ev.Items, err = h.query(ctx, step.Query, vars)
	case EventInsert:
		ev.Doc = step.Insert.Doc
		var info store.DocumentInfo
		info, err = h.sess.Insert(ctx, step.Insert.Doc, step.Insert.Parent, step.Insert.XML)
		ev.Nodes = info.Nodes
	case EventInsertAttribute:
		a := step.InsertAttribute
		ev.Doc = a.Doc
		var info store.DocumentInfo
		info, err = h.sess.InsertAttribute(ctx, a.Doc, a.Pre, a.Name, a.Value)
		ev.Nodes = info.Nodes
	case EventDelete:
		ev.Doc = step.Delete.Doc
		var info store.DocumentInfo
		info, err = h.sess.Delete(ctx, step.Delete.Doc, step.Delete.Pre)
		ev.Nodes = info.Nodes
	default:
		return fmt.Errorf("step names no single operation")
	}
	if err != nil {
		ev.Error = ErrorCode(err)
		ev.Items = nil
	}
	result.AddEvent(ev)

	h.logger.Info("step completed", "step", i, "type", ev.Type, "items", len(ev.Items), "error", ev.Error)

	for _, msg := range checkExpect(step.Expect, ev, err) {
		result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, ev.Type, msg))
	}
	return nil
}

func (h *Harness) query(ctx context.Context, src string, vars map[string]xdm.Value) ([]string, error) {
	res, err := h.sess.Query(ctx, src, vars)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	items, err := res.Strings()
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

// checkExpect compares a step outcome with its expect clause. A step
// without expect clause must not fail.
func checkExpect(e *Expect, ev TraceEvent, err error) []string {
	if e == nil {
		if err != nil {
			return []string{fmt.Sprintf("unexpected error: %v", err)}
		}
		return nil
	}
	if e.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("expected error %s, got success", e.Error)}
		}
		if ev.Error != e.Error {
			return []string{fmt.Sprintf("expected error %s, got %s (%v)", e.Error, ev.Error, err)}
		}
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}

	var msgs []string
	if e.Items != nil && !slices.Equal(e.Items, ev.Items) {
		msgs = append(msgs, fmt.Sprintf("expected items %q, got %q", e.Items, ev.Items))
	}
	if e.Count != nil && *e.Count != len(ev.Items) {
		msgs = append(msgs, fmt.Sprintf("expected %d items, got %d", *e.Count, len(ev.Items)))
	}
	if e.Empty && len(ev.Items) > 0 {
		msgs = append(msgs, fmt.Sprintf("expected no items, got %q", ev.Items))
	}
	return msgs
}

// ErrorCode returns the code that identifies err in traces: the query
// error code, the session error code, NOT_FOUND for missing documents,
// or ERROR for anything else.
func ErrorCode(err error) string {
	if code := xdm.ErrorCode(err); code != "" {
		return code
	}
	var se *session.Error
	if errors.As(err, &se) {
		return string(se.Code)
	}
	if session.IsNotFound(err) {
		return string(session.ErrCodeNotFound)
	}
	return "ERROR"
}

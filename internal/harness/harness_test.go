package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xqdb/internal/session"
	"github.com/roach88/xqdb/internal/store"
	"github.com/roach88/xqdb/internal/xdm"
)

func runYAML(t *testing.T, src string) *Result {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	return result
}

func TestRun_Passing(t *testing.T) {
	result := runYAML(t, `
name: pass
description: all expectations hold
documents:
  - name: d
    xml: '<r><i>1</i><i>2</i></r>'
steps:
  - query: 'sum(doc("d")//i)'
    expect: { items: ["3"] }
  - query: 'doc("d")//x'
    expect: { empty: true }
  - query: 'doc("d")//i'
    expect: { count: 2 }
  - insert: { doc: d, parent: 1, xml: '<i>3</i>' }
  - query: 'count(doc("d")//i)'
    expect: { items: ["3"] }
assertions:
  - type: node_count
    doc: d
    count: 8
  - type: document_count
    count: 1
  - type: trace_count
    event: insert
    count: 1
`)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 5)
	for i, ev := range result.Trace {
		assert.Equal(t, i, ev.Step)
		assert.Equal(t, int64(i+1), ev.Seq)
	}
	assert.Equal(t, "d", result.Trace[3].Doc)
	assert.Equal(t, 8, result.Trace[3].Nodes)
}

func TestRun_FailedExpectations(t *testing.T) {
	result := runYAML(t, `
name: fail
description: every step misses its expectation
steps:
  - query: '1 + 1'
    expect: { items: ["3"] }
  - query: '(1, 2)'
    expect: { count: 1 }
  - query: '1'
    expect: { error: XPTY0004 }
  - query: '1 div "a"'
  - query: '1'
    expect: { empty: true }
  - delete: { doc: missing, pre: 1 }
    expect: { error: INVALID_TARGET }
`)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], `expected items ["3"], got ["2"]`)
	assert.Contains(t, result.Errors[1], "expected 1 items, got 2")
	assert.Contains(t, result.Errors[2], "expected error XPTY0004, got success")
	assert.Contains(t, result.Errors[3], "unexpected error")
	assert.Contains(t, result.Errors[4], "expected no items")
	assert.Contains(t, result.Errors[5], "got NOT_FOUND")
	assert.Equal(t, "NOT_FOUND", result.Trace[5].Error)
}

func TestRun_FailedAssertions(t *testing.T) {
	result := runYAML(t, `
name: assertions
description: every assertion fails
documents:
  - name: d
    xml: '<r/>'
steps:
  - query: '1'
assertions:
  - type: document_count
    count: 2
  - type: node_count
    doc: d
    count: 5
  - type: node_count
    doc: nope
    count: 1
  - type: query_result
    query: 'count(doc("d")/r)'
    items: ["2"]
  - type: trace_count
    event: delete
    count: 1
`)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	for _, msg := range result.Errors {
		assert.True(t, strings.HasPrefix(msg, "Assertion failed:"), msg)
	}
	assert.Contains(t, result.Errors[3], "Full trace:")
}

func TestRun_BadDocument(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad
description: malformed document
documents:
  - name: d
    xml: '<r>'
steps:
  - query: '1'
`))
	require.NoError(t, err)
	_, err = Run(context.Background(), s)
	assert.ErrorContains(t, err, "documents[0] d")
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"query error", xdm.TypeError("XPTY0004", "bad operand"), "XPTY0004"},
		{"wrapped query error", fmt.Errorf("run: %w", xdm.StaticError("XPST0003", "syntax")), "XPST0003"},
		{"session error", &session.Error{Code: session.ErrCodeExists, Op: "create"}, "DOCUMENT_EXISTS"},
		{"store not found", fmt.Errorf("load: %w", store.ErrNotFound), "NOT_FOUND"},
		{"other", assert.AnError, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: one query
steps:
  - query: "1 + 1"
    expect:
      items: ["2"]
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, EventQuery, s.Steps[0].Kind())
	assert.Equal(t, []string{"2"}, s.Steps[0].Expect.Items)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "description: d\nsteps: [{query: '1'}]", "name is required"},
		{"missing description", "name: n\nsteps: [{query: '1'}]", "description is required"},
		{"no steps", "name: n\ndescription: d", "steps list is required"},
		{"unknown field", "name: n\ndescription: d\nstep: []", "field step not found"},
		{"two operations", "name: n\ndescription: d\nsteps: [{query: '1', delete: {doc: a, pre: 1}}]", "exactly one of"},
		{"no operation", "name: n\ndescription: d\nsteps: [{expect: {count: 1}}]", "exactly one of"},
		{"vars without query", "name: n\ndescription: d\nsteps: [{delete: {doc: a, pre: 1}, vars: {x: 1}}]", "vars require a query"},
		{"error with items", "name: n\ndescription: d\nsteps: [{query: '1', expect: {error: X, items: ['1']}}]", "error excludes"},
		{"document without content", "name: n\ndescription: d\ndocuments: [{name: a}]\nsteps: [{query: '1'}]", "exactly one of xml or file"},
		{"duplicate document", "name: n\ndescription: d\ndocuments: [{name: a, xml: '<a/>'}, {name: a, xml: '<b/>'}]\nsteps: [{query: '1'}]", "duplicate name"},
		{"unknown assertion", "name: n\ndescription: d\nsteps: [{query: '1'}]\nassertions: [{type: bogus}]", "unknown assertion type"},
		{"node_count without doc", "name: n\ndescription: d\nsteps: [{query: '1'}]\nassertions: [{type: node_count, count: 1}]", "doc is required"},
		{"trace_count bad event", "name: n\ndescription: d\nsteps: [{query: '1'}]\nassertions: [{type: trace_count, event: x}]", "unknown event"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_ResolvesDocumentFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "a.xml"), []byte("<a>1</a>"), 0o644))
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: files
description: document from file
documents:
  - name: a
    file: docs/a.xml
steps:
  - query: 'doc("a")/a/string()'
`), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "<a>1</a>", s.Documents[0].XML)
}

func TestLoadScenario_Errors(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")

	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: files
description: missing document file
documents:
  - name: a
    file: nope.xml
steps:
  - query: '1'
`), 0o644))
	_, err = LoadScenario(path)
	assert.ErrorContains(t, err, "documents[0]")
}

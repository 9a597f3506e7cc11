package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xqdb/internal/compiler"
)

const titlesCUE = `
query: titles: {
	externals: ["year"]
	clauses: [
		{"for": "b", at: "i", "in": #"doc("library")//book"#},
		{where: "$b/@year > $year"},
		{order_by: [{expr: "$b/title", descending: true}]},
	]
	return: "$b/title/string()"
}
`

const sumsCUE = `
query: sums: {
	clauses: [
		{"for": "x", "in": "(1, 2)"},
		{"for": "y", "in": "(10, 20)"},
	]
	return: "$x + $y"
}
`

func writeQueries(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeFile(t, dir, name, content)
	}
	return dir
}

func TestCompileDirectory(t *testing.T) {
	dir := writeQueries(t, map[string]string{"a.cue": titlesCUE, "nested/b.cue": sumsCUE, "notes.txt": "x"})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--plan"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ Compiled 2 query(s)")
	assert.Contains(t, output, "titles:")
	assert.Contains(t, output, "sums: xs:integer")
	assert.Contains(t, output, "plan:")
	assert.Contains(t, output, "$i is never used")
}

func TestCompileJSON(t *testing.T) {
	dir := writeQueries(t, map[string]string{"a.cue": titlesCUE})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(dir, "a.cue")})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Queries, 1)
	q := resp.Data.Queries[0]
	assert.Equal(t, "titles", q.Name)
	assert.Equal(t, []string{"year"}, q.Externals)
	assert.NotEmpty(t, q.Plan)
	assert.Equal(t, []compiler.Warning{{Field: "clauses[0].at", Message: "$i is never used", Level: "warning"}}, q.Warnings)
}

func TestCompileOutputToFile(t *testing.T) {
	dir := writeQueries(t, map[string]string{"b.cue": sumsCUE})
	outputFile := filepath.Join(t.TempDir(), "compiled.json")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--output", outputFile})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Wrote compiled queries to")

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Queries, 1)
	assert.Equal(t, "sums", result.Queries[0].Name)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		wantCode string
	}{
		{"cue syntax", map[string]string{"a.cue": "query: {"}, compiler.ErrCUE},
		{"no query struct", map[string]string{"a.cue": "other: 1"}, compiler.ErrCUEShape},
		{"undefined variable", map[string]string{"a.cue": `query: q: {clauses: [{"for": "x", "in": "$nope"}], return: "$x"}`}, compiler.ErrUndefinedVar},
		{"expression syntax", map[string]string{"a.cue": `query: q: {clauses: [{"let": "x", expr: "1 +"}], return: "$x"}`}, compiler.ErrExprSyntax},
		{"no files", map[string]string{"a.txt": "x"}, ErrCodeNoFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeQueries(t, tt.files)

			buf := &bytes.Buffer{}
			rootOpts := &RootOptions{Format: "json"}
			cmd := NewCompileCommand(rootOpts)
			cmd.SetOut(buf)
			cmd.SetArgs([]string{dir})

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestCompileCollectsAllErrors(t *testing.T) {
	dir := writeQueries(t, map[string]string{
		"a.cue": `query: q: {clauses: [{"let": "x", expr: "1 +"}], return: "$x"}`,
		"b.cue": "query: {",
		"c.cue": sumsCUE,
	})

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compilation failed with 2 error(s)")
	assert.Contains(t, buf.String(), "✗ Compilation failed")
}

func TestCompileNonExistentPath(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewCompileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/queries"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeNotFound)
}

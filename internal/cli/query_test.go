package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xqdb/internal/xdm"
)

func TestQuery_Text(t *testing.T) {
	db := libraryDB(t)

	out, err := execute(t, "query", "--db", db,
		`for $b in doc("library")//book order by $b/@year descending return $b/title/string()`)
	require.NoError(t, err)
	assert.Equal(t, "Go\nXML\n", out)

	out, err = execute(t, "query", "--db", db, `doc("library")//book[@id = "b1"]/title`)
	require.NoError(t, err)
	assert.Equal(t, "<title>XML</title>\n", out)

	out, err = execute(t, "query", "--db", db, `doc("library")//magazine`)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestQuery_Vars(t *testing.T) {
	db := libraryDB(t)

	out, err := execute(t, "query", "--db", db, "--var", "y=2000",
		`declare variable $y external; for $b in doc("library")//book where $b/@year > $y return string($b/@id)`)
	require.NoError(t, err)
	assert.Equal(t, "b2\n", out)

	out, err = execute(t, "query", "--db", db, "--var", "ids=[1, 2, 3]",
		`declare variable $ids external; sum($ids)`)
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)
}

func TestQuery_File(t *testing.T) {
	db := libraryDB(t)
	file := writeFile(t, t.TempDir(), "count.xq", `count(doc("library")//book)`)

	out, err := execute(t, "query", "--db", db, "-f", file)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestQuery_JSON(t *testing.T) {
	db := libraryDB(t)

	out, err := execute(t, "query", "--db", db, "--format", "json", `for $x in (1, 2) for $y in (10, 20) return $x + $y`)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   QueryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"11", "21", "12", "22"}, resp.Data.Items)
	assert.Len(t, resp.Data.ID, 36)
	assert.Positive(t, resp.Data.Steps)
}

func TestQuery_Errors(t *testing.T) {
	db := libraryDB(t)
	file := writeFile(t, t.TempDir(), "q.xq", "1")

	tests := []struct {
		name     string
		args     []string
		wantExit int
		wantCode string
	}{
		{"no query", []string{}, ExitCommandError, ""},
		{"query and file", []string{"-f", file, "1"}, ExitCommandError, ""},
		{"missing file", []string{"-f", file + ".missing"}, ExitCommandError, ""},
		{"bad binding", []string{"--var", "novalue", "1"}, ExitCommandError, ""},
		{"syntax error", []string{"for $x in"}, ExitFailure, xdm.CodeSyntax},
		{"type error", []string{`1 + "a"`}, ExitFailure, "XPTY0004"},
		{"missing document", []string{`doc("nope")`}, ExitFailure, "FODC0002"},
		{"undeclared binding", []string{"--var", "z=1", "1"}, ExitFailure, xdm.CodeUndefinedVar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"query", "--db", db, "--format", "json"}, tt.args...)
			out, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			if tt.wantCode != "" {
				var resp CLIResponse
				require.NoError(t, json.Unmarshal([]byte(out), &resp))
				assert.Equal(t, tt.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"$n=3", "s=abc", "e=", "f=1.5", "b=true"})
	require.NoError(t, err)
	require.Len(t, vars, 5)
	assert.Equal(t, "3", vars["n"].ItemAt(0).String())
	assert.Equal(t, "abc", vars["s"].ItemAt(0).String())
	assert.Equal(t, "", vars["e"].ItemAt(0).String())
	assert.Equal(t, "1.5", vars["f"].ItemAt(0).String())
	assert.Equal(t, "true", vars["b"].ItemAt(0).String())

	none, err := parseVars(nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	for _, bad := range [][]string{{"novalue"}, {"=3"}, {"a=1", "a=2"}, {"m={k: v}"}} {
		_, err := parseVars(bad)
		assert.Error(t, err, "%v", bad)
	}
}

package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xqdb/internal/store"
)

func TestCreateListDrop(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "test.db")
	doc := writeFile(t, dir, "library.xml", libraryXML)

	out, err := execute(t, "create", "--db", db, "library", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Created library (12 nodes)")

	out, err = execute(t, "list", "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "library"), lines[1])

	out, err = execute(t, "drop", "--db", db, "library")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Dropped library")

	out, err = execute(t, "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No documents.")
}

func TestCreate_JSON(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "test.db")
	doc := writeFile(t, dir, "a.xml", "<a><b/></a>")

	out, err := execute(t, "create", "--db", db, "--format", "json", "--uri", "urn:a", "a", doc)
	require.NoError(t, err)

	var resp struct {
		Status string             `json:"status"`
		Data   store.DocumentInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "a", resp.Data.Name)
	assert.Equal(t, 3, resp.Data.Nodes)
	assert.Len(t, resp.Data.Hash, 64)

	out, err = execute(t, "query", "--db", db, `doc("urn:a")/a/b`)
	require.NoError(t, err)
	assert.Equal(t, "<b/>\n", out)
}

func TestCreate_Stdin(t *testing.T) {
	db := filepath.Join(t.TempDir(), "test.db")
	cmd := NewRootCommand()
	out := &strings.Builder{}
	cmd.SetOut(out)
	cmd.SetIn(strings.NewReader("<r>x</r>"))
	cmd.SetArgs([]string{"create", "--db", db, "r", "-"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "(3 nodes)")
}

func TestCreate_Errors(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "test.db")
	good := writeFile(t, dir, "good.xml", "<a/>")
	bad := writeFile(t, dir, "bad.xml", "<a>")

	_, err := execute(t, "create", "--db", db, "a", filepath.Join(dir, "missing.xml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "create", "--db", db, "a", bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "create", "--db", db, "a", good)
	require.NoError(t, err)

	out, err := execute(t, "create", "--db", db, "a", good)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [DOCUMENT_EXISTS]")
}

func TestDrop_NotFound(t *testing.T) {
	db := libraryDB(t)
	out, err := execute(t, "drop", "--db", db, "--format", "json", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xqdb/internal/store"
)

func TestValidate_AllValid(t *testing.T) {
	db := libraryDB(t)
	other := writeFile(t, t.TempDir(), "b.xml", "<b/>")
	_, err := execute(t, "create", "--db", db, "b", other)
	require.NoError(t, err)

	out, err := execute(t, "validate", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ b (3 nodes)")
	assert.Contains(t, out, "✓ library (12 nodes)")
}

func TestValidate_Named(t *testing.T) {
	db := libraryDB(t)

	out, err := execute(t, "validate", "--db", db, "--format", "json", "library")
	require.NoError(t, err)

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Documents, 1)
	assert.Equal(t, "library", resp.Data.Documents[0].Name)

	_, err = execute(t, "validate", "--db", db, "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidate_DetectsCorruption(t *testing.T) {
	db := libraryDB(t)
	corrupt(t, db, `UPDATE nodes SET size = 99 WHERE doc = 'library' AND pre = 2`)

	out, err := execute(t, "validate", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ library")
	assert.Contains(t, out, ErrCodeCorrupt)
}

func TestValidate_DetectsHashMismatch(t *testing.T) {
	db := libraryDB(t)
	corrupt(t, db, `UPDATE documents SET content_hash = 'deadbeef' WHERE name = 'library'`)

	out, err := execute(t, "validate", "--db", db)
	require.Error(t, err)
	assert.Contains(t, out, "content hash")
}

func TestValidate_RequiresDatabase(t *testing.T) {
	_, err := execute(t, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// corrupt runs a raw statement against the database at path.
func corrupt(t *testing.T, path, stmt string) {
	t.Helper()
	st, err := store.Open(filepath.Clean(path))
	require.NoError(t, err)
	defer st.Close()
	_, err = st.DB().ExecContext(context.Background(), stmt)
	require.NoError(t, err)
}

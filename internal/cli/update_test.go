package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndDelete(t *testing.T) {
	db := libraryDB(t)

	out, err := execute(t, "insert", "--db", db, "library", "1", `<book id="b3"><title>CUE</title></book>`)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Inserted into library (16 nodes")

	out, err = execute(t, "insert", "--db", db, "library", "12", "--attr", "lang=en")
	require.NoError(t, err)
	assert.Contains(t, out, "(17 nodes")

	out, err = execute(t, "query", "--db", db, `doc("library")//book[@lang]/title/string()`)
	require.NoError(t, err)
	assert.Equal(t, "CUE\n", out)

	out, err = execute(t, "delete", "--db", db, "library", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Deleted from library (12 nodes")

	out, err = execute(t, "query", "--db", db, `string-join(doc("library")//book/@id, ",")`)
	require.NoError(t, err)
	assert.Equal(t, "b2,b3\n", out)
}

func TestInsert_Errors(t *testing.T) {
	db := libraryDB(t)

	tests := []struct {
		name     string
		args     []string
		wantExit int
	}{
		{"bad position", []string{"library", "x", "<a/>"}, ExitCommandError},
		{"no fragment", []string{"library", "1"}, ExitCommandError},
		{"fragment and attr", []string{"library", "1", "<a/>", "--attr", "a=1"}, ExitCommandError},
		{"bad attr", []string{"library", "1", "--attr", "=1"}, ExitCommandError},
		{"malformed fragment", []string{"library", "1", "<a>"}, ExitCommandError},
		{"into attribute", []string{"library", "3", "<a/>"}, ExitFailure},
		{"duplicate attribute", []string{"library", "2", "--attr", "id=x"}, ExitFailure},
		{"missing document", []string{"nope", "1", "<a/>"}, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"insert", "--db", db}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
		})
	}

	// Failed updates leave the stored document untouched.
	out, err := execute(t, "query", "--db", db, `count(doc("library")//node())`)
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}

func TestDelete_Errors(t *testing.T) {
	db := libraryDB(t)

	_, err := execute(t, "delete", "--db", db, "library", "0")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "delete", "--db", db, "library", "99")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "delete", "--db", db, "library", "two")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

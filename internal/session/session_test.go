package session

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xqdb/internal/xdm"
)

const libraryXML = `<library>
  <book id="b1"><title>Go</title></book>
</library>`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestSession(t *testing.T, opts ...Option) (*Session, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s, err := Open(context.Background(), path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func createLibrary(t *testing.T, s *Session) {
	t.Helper()
	_, err := s.Create(context.Background(), "lib", strings.NewReader(libraryXML), "lib.xml")
	require.NoError(t, err)
}

func queryStrings(t *testing.T, s *Session, src string) []string {
	t.Helper()
	res, err := s.Query(context.Background(), src, nil)
	require.NoError(t, err, src)
	out, err := res.Strings()
	require.NoError(t, err, src)
	return out
}

func TestSession_CreateAndQuery(t *testing.T) {
	s, _ := openTestSession(t)
	createLibrary(t, s)

	assert.Equal(t, []string{"Go"}, queryStrings(t, s, `doc("lib")//title/string()`))
	assert.Equal(t, []string{"Go"}, queryStrings(t, s, `doc("lib.xml")//title/string()`))
	assert.Equal(t, []string{"Go"}, queryStrings(t, s, `doc("lib/lib.xml")//title/string()`))
	assert.Equal(t, []string{`<title>Go</title>`}, queryStrings(t, s, `doc("lib")//title`))

	docs, err := s.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "lib", docs[0].Name)
	assert.Equal(t, int64(1), docs[0].Created)
}

func TestSession_CreateDuplicate(t *testing.T) {
	s, _ := openTestSession(t)
	createLibrary(t, s)

	_, err := s.Create(context.Background(), "lib", strings.NewReader("<x/>"), "")
	assert.True(t, IsExists(err))
}

func TestSession_CreateRejectsBadInput(t *testing.T) {
	s, _ := openTestSession(t)

	_, err := s.Create(context.Background(), "bad", strings.NewReader("<a><b></a>"), "")
	assert.Error(t, err)

	_, err = s.Create(context.Background(), "a/b", strings.NewReader("<a/>"), "")
	assert.True(t, IsInvalidTarget(err))

	docs, err := s.Documents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSession_MissingDocument(t *testing.T) {
	s, _ := openTestSession(t)

	_, err := s.QueryAll(context.Background(), `doc("nope")`, nil)
	assert.Equal(t, xdm.CodeNoDoc, xdm.ErrorCode(err))

	_, err = s.Delete(context.Background(), "nope", 1)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(s.Drop(context.Background(), "nope")))
}

func TestSession_Updates(t *testing.T) {
	ctx := context.Background()
	s, path := openTestSession(t)
	createLibrary(t, s)

	info, err := s.Insert(ctx, "lib", 1, `<book id="b2"><title>XML</title></book>`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Updated)
	assert.Equal(t, []string{"b1", "b2"}, queryStrings(t, s, `doc("lib")//book/@id/string()`))

	_, err = s.InsertAttribute(ctx, "lib", 1, "owner", "me")
	require.NoError(t, err)
	assert.Equal(t, []string{"me"}, queryStrings(t, s, `doc("lib")/library/@owner/string()`))

	// 0 doc, 1 library, 2 @owner, 3 book b1, 4 @id, 5 title, 6 "Go"
	_, err = s.Delete(ctx, "lib", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"b2"}, queryStrings(t, s, `doc("lib")//book/@id/string()`))

	require.NoError(t, s.Close())
	reopened, err := Open(ctx, path, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, []string{"b2"}, queryStrings(t, reopened, `doc("lib")//book/@id/string()`))

	docs, err := reopened.Documents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), docs[0].Created)
	assert.Equal(t, int64(4), docs[0].Updated)
}

func TestSession_InvalidUpdates(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestSession(t)
	createLibrary(t, s)

	tests := []struct {
		name string
		run  func() error
	}{
		{"delete document node", func() error { _, err := s.Delete(ctx, "lib", 0); return err }},
		{"delete out of range", func() error { _, err := s.Delete(ctx, "lib", 99); return err }},
		{"attribute on text", func() error { _, err := s.InsertAttribute(ctx, "lib", 5, "a", "b"); return err }},
		{"duplicate attribute", func() error { _, err := s.InsertAttribute(ctx, "lib", 2, "id", "x"); return err }},
		{"insert into attribute", func() error { _, err := s.Insert(ctx, "lib", 3, "<x/>"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsInvalidTarget(tt.run()))
		})
	}
	assert.Equal(t, []string{"b1"}, queryStrings(t, s, `doc("lib")//book/@id/string()`))
}

func TestSession_Drop(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestSession(t)
	createLibrary(t, s)

	require.NoError(t, s.Drop(ctx, "lib"))
	docs, err := s.Documents(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSession_ExternalVariables(t *testing.T) {
	s, _ := openTestSession(t)

	v, err := s.QueryAll(context.Background(), `declare variable $n external; $n * 2`, map[string]xdm.Value{"n": xdm.Int(21)})
	require.NoError(t, err)
	require.Equal(t, 1, v.Size())
	assert.Equal(t, "42", v.ItemAt(0).String())

	_, err = s.QueryAll(context.Background(), `1`, map[string]xdm.Value{"n": xdm.Int(1)})
	assert.Equal(t, xdm.CodeUndefinedVar, xdm.ErrorCode(err))
}

func TestSession_MaxSteps(t *testing.T) {
	s, _ := openTestSession(t, WithMaxSteps(10))

	_, err := s.QueryAll(context.Background(), `for $x in 1 to 100 where $x > 0 return $x * 2`, nil)
	require.Error(t, err)
	assert.True(t, xdm.IsAborted(err))
}

func TestSession_Timeout(t *testing.T) {
	s, _ := openTestSession(t, WithTimeout(time.Nanosecond))

	res, err := s.Query(context.Background(), `for $x in 1 to 1000000 for $y in 1 to 1000000 return $x`, nil)
	if err == nil {
		defer res.Close()
		time.Sleep(time.Millisecond)
		_, err = res.All()
	}
	require.Error(t, err)
	assert.True(t, xdm.IsAborted(err))
}

func TestSession_CompileCache(t *testing.T) {
	s, _ := openTestSession(t, WithCacheSize(2))

	a, err := s.Compile(`1 + 1`)
	require.NoError(t, err)
	b, err := s.Compile(`1 + 1`)
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = s.Compile(`for $x in`)
	assert.Equal(t, xdm.CodeSyntax, xdm.ErrorCode(err))
	assert.Equal(t, 1, s.cache.Len())
}

func TestSession_ResultHoldsReadLock(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestSession(t)
	createLibrary(t, s)

	res, err := s.Query(ctx, `doc("lib")//title`, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.InsertAttribute(ctx, "lib", 2, "lang", "en")
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("write finished while a result was open")
	case <-time.After(50 * time.Millisecond):
	}

	it, err := res.Next()
	require.NoError(t, err)
	assert.Equal(t, "Go", it.String())
	res.Close()
	res.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("write did not finish after the result was closed")
	}
}

func TestSession_FixedIDs(t *testing.T) {
	s, _ := openTestSession(t, WithIDGenerator(NewFixedGenerator("session-1", "query-1")))
	assert.Equal(t, "session-1", s.ID())

	res, err := s.Query(context.Background(), `1`, nil)
	require.NoError(t, err)
	defer res.Close()
	assert.Equal(t, "query-1", res.ID())
}

func TestSession_ClosedSession(t *testing.T) {
	s, _ := openTestSession(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Query(context.Background(), `1`, nil)
	assert.Error(t, err)
	_, err = s.Documents(context.Background())
	assert.Error(t, err)
}

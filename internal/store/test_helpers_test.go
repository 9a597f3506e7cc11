package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/xqdb/internal/table"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTable builds a small document with attributes, namespaces,
// comments and a processing instruction.
func createTestTable(t *testing.T, name string) *table.Table {
	t.Helper()
	b := table.NewBuilder(name)
	b.StartDoc(name + ".xml")
	b.StartElem("lib:library", []table.NSBinding{{Prefix: "lib", URI: "urn:lib"}})
	b.Attr("version", "2")
	b.StartElem("book", nil)
	b.Attr("id", "b1")
	b.Text("Go")
	b.EndElem()
	b.Comment("catalogue")
	b.StartElem("book", []table.NSBinding{{Prefix: "", URI: "urn:default"}, {Prefix: "x", URI: "urn:x"}})
	b.Attr("id", "b2")
	b.Text("XML")
	b.EndElem()
	b.PI("render", "fast")
	b.EndElem()
	b.EndDoc()
	tbl, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish() failed: %v", err)
	}
	return tbl
}

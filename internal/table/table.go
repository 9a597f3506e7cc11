package table

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Well-known namespace URIs.
const (
	XMLNamespace   = "http://www.w3.org/XML/1998/namespace"
	XMLNSNamespace = "http://www.w3.org/2000/xmlns/"
)

// NoText marks a record without a text payload.
const NoText = -1

// Record is one fixed-shape node entry.
type Record struct {
	Kind    Kind
	Name    int32 // name id, 0 for unnamed kinds
	Size    int32 // this node plus all descendants and attributes
	AttSize int32 // attribute count plus one; 1 for non-elements
	Text    int32 // text id or NoText
	NS      int32 // namespace declaration id, 0 for none
}

// NSBinding is a single namespace declaration on an element.
type NSBinding struct {
	Prefix string
	URI    string
}

// tableIDs hands out process-unique table ids. Cross-table ordering falls
// back to these ids when two nodes share no ancestor.
var tableIDs atomic.Uint64

// Table is the encoded node table of one database.
type Table struct {
	id      uint64
	name    string
	records []Record
	names   *Names
	texts   []string
	nsDecls [][]NSBinding // index 0 unused
	version uint64
}

// New creates an empty table. name is the database name; it is empty for
// transient in-memory tables.
func New(name string) *Table {
	return &Table{
		id:      tableIDs.Add(1),
		name:    name,
		names:   NewNames(),
		nsDecls: [][]NSBinding{nil},
	}
}

// ID returns the process-unique table id.
func (t *Table) ID() uint64 { return t.id }

// Name returns the database name.
func (t *Table) Name() string { return t.name }

// SetName renames the table. Used when a transient table is persisted.
func (t *Table) SetName(name string) { t.name = name }

// InMemory reports whether the table is not bound to a database name.
func (t *Table) InMemory() bool { return t.name == "" }

// Len returns the number of records.
func (t *Table) Len() int { return len(t.records) }

// Version increases on every structural mutation.
func (t *Table) Version() uint64 { return t.version }

// Names returns the name dictionary.
func (t *Table) Names() *Names { return t.names }

// Record returns the record at p.
func (t *Table) Record(p int) Record { return t.records[p] }

// Records returns a copy of the records in [from, to).
func (t *Table) Records(from, to int) []Record {
	if from < 0 {
		from = 0
	}
	if to > len(t.records) {
		to = len(t.records)
	}
	if from >= to {
		return []Record{}
	}
	out := make([]Record, to-from)
	copy(out, t.records[from:to])
	return out
}

// Texts returns the text store. The slice must not be modified.
func (t *Table) Texts() []string { return t.texts }

// NSDecls returns the namespace declaration lists indexed by Record.NS.
// The slice must not be modified.
func (t *Table) NSDecls() [][]NSBinding { return t.nsDecls }

// Kind returns the kind of the node at p.
func (t *Table) Kind(p int) Kind { return t.records[p].Kind }

// Size returns the subtree size of the node at p. k must be the node's kind.
func (t *Table) Size(p int, k Kind) int {
	switch k {
	case KindDoc, KindElem:
		return int(t.records[p].Size)
	case KindText, KindAttr, KindComment, KindPI:
		return 1
	default:
		panic(fmt.Sprintf("table: invalid kind %d at %d", uint8(k), p))
	}
}

// AttSize returns the attribute count plus one for elements, 1 otherwise.
func (t *Table) AttSize(p int, k Kind) int {
	switch k {
	case KindElem:
		return int(t.records[p].AttSize)
	case KindDoc, KindText, KindAttr, KindComment, KindPI:
		return 1
	default:
		panic(fmt.Sprintf("table: invalid kind %d at %d", uint8(k), p))
	}
}

// Parent returns the position of the parent of p. Documents and top-level
// fragment roots have no parent.
//
// The lookup scans backward until a position whose range still encloses p
// is found, so its cost is the distance to the parent, not the table size.
func (t *Table) Parent(p int, k Kind) (int, bool) {
	if k == KindDoc {
		return -1, false
	}
	for q := p - 1; q >= 0; q-- {
		r := &t.records[q]
		if r.Kind != KindDoc && r.Kind != KindElem {
			continue
		}
		if q+int(r.Size) > p {
			return q, true
		}
	}
	return -1, false
}

// NameID returns the name id of the node at p.
func (t *Table) NameID(p int) int32 { return t.records[p].Name }

// NodeName returns the lexical name (prefix:local) of the node at p, or ""
// for unnamed kinds.
func (t *Table) NodeName(p int) string {
	return t.names.Lookup(t.records[p].Name)
}

// Text returns the text payload of p: the value of attributes, text,
// comments and processing instructions, and the URI of documents.
func (t *Table) Text(p int) string {
	id := t.records[p].Text
	if id == NoText {
		return ""
	}
	return t.texts[id]
}

// Atom returns the string value of the node at p.
func (t *Table) Atom(p int) string {
	k := t.Kind(p)
	switch k {
	case KindDoc, KindElem:
		end := p + t.Size(p, k)
		var sb strings.Builder
		for q := p + t.AttSize(p, k); q < end; q++ {
			if t.records[q].Kind == KindText {
				sb.WriteString(t.Text(q))
			}
		}
		return sb.String()
	case KindText, KindAttr, KindComment, KindPI:
		return t.Text(p)
	default:
		panic(fmt.Sprintf("table: invalid kind %d at %d", uint8(k), p))
	}
}

// Namespaces returns the namespace declarations made on the element at p.
func (t *Table) Namespaces(p int) []NSBinding {
	id := t.records[p].NS
	if id == 0 {
		return nil
	}
	return t.nsDecls[id]
}

// URI resolves the namespace URI of the name of the node at p by walking
// the in-scope declarations of p and its ancestors.
func (t *Table) URI(p int) string {
	k := t.Kind(p)
	if !k.Named() {
		return ""
	}
	prefix, _, hasPrefix := strings.Cut(t.NodeName(p), ":")
	if !hasPrefix {
		prefix = ""
	}
	switch k {
	case KindPI:
		return ""
	case KindAttr:
		if prefix == "" {
			return ""
		}
	}
	if prefix == "xml" {
		return XMLNamespace
	}
	if prefix == "xmlns" {
		return XMLNSNamespace
	}
	uri, _ := t.LookupNamespace(p, prefix)
	return uri
}

// LookupNamespace finds the URI bound to prefix in scope at p. The empty
// prefix resolves the default element namespace.
func (t *Table) LookupNamespace(p int, prefix string) (string, bool) {
	q, k := p, t.Kind(p)
	for {
		if k == KindElem {
			for _, b := range t.Namespaces(q) {
				if b.Prefix == prefix {
					return b.URI, true
				}
			}
		}
		par, ok := t.Parent(q, k)
		if !ok {
			return "", false
		}
		q, k = par, t.Kind(par)
	}
}

// Append adds a raw record. Sizes are trusted; call Validate once the table
// is complete. Used by the store loader.
func (t *Table) Append(r Record) int {
	t.records = append(t.records, r)
	return len(t.records) - 1
}

// AddText adds a text payload and returns its id.
func (t *Table) AddText(s string) int32 {
	t.texts = append(t.texts, s)
	return int32(len(t.texts) - 1)
}

// AddNamespaces adds a declaration list and returns its id.
func (t *Table) AddNamespaces(ns []NSBinding) int32 {
	if len(ns) == 0 {
		return 0
	}
	cp := make([]NSBinding, len(ns))
	copy(cp, ns)
	t.nsDecls = append(t.nsDecls, cp)
	return int32(len(t.nsDecls) - 1)
}

// Roots returns the positions of all top-level nodes in document order.
func (t *Table) Roots() []int {
	var roots []int
	for p := 0; p < len(t.records); {
		roots = append(roots, p)
		p += t.Size(p, t.Kind(p))
	}
	return roots
}

// Document returns the position of the document node whose URI is uri.
func (t *Table) Document(uri string) (int, bool) {
	for _, p := range t.Roots() {
		if t.Kind(p) == KindDoc && t.Text(p) == uri {
			return p, true
		}
	}
	return -1, false
}

package node

import (
	"fmt"
	"strings"

	"github.com/roach88/xqdb/internal/table"
	"github.com/roach88/xqdb/internal/xdm"
)

// QName is a resolved node name.
type QName struct {
	Prefix string
	Local  string
	URI    string
}

// String returns the lexical form prefix:local.
func (q QName) String() string {
	if q.Prefix == "" {
		return q.Local
	}
	return q.Prefix + ":" + q.Local
}

// Node is a handle to the node at a table position.
type Node struct {
	t     *table.Table
	pre   int
	kind  table.Kind
	score float64

	// parent is the cached table parent or a virtual parent set by
	// WithParent. Documents and fragment roots have none.
	parent     *Node
	parentDone bool

	value     string
	valueDone bool
	ns        []table.NSBinding
	nsDone    bool
	uri       string
	uriDone   bool
}

// New returns a handle to the node at pre. It panics if pre is out of range.
func New(t *table.Table, pre int) *Node {
	if pre < 0 || pre >= t.Len() {
		panic(fmt.Sprintf("node: position %d out of range [0,%d)", pre, t.Len()))
	}
	return &Node{t: t, pre: pre, kind: t.Kind(pre)}
}

// Root returns a handle to the first node of t, normally its document node.
func Root(t *table.Table) *Node {
	return New(t, 0)
}

// Table returns the table the node lives in.
func (n *Node) Table() *table.Table { return n.t }

// Pre returns the node's position.
func (n *Node) Pre() int { return n.pre }

// Kind returns the node kind.
func (n *Node) Kind() table.Kind { return n.kind }

// Name returns the node name. Unnamed kinds return the zero QName.
func (n *Node) Name() QName {
	if !n.kind.Named() {
		return QName{}
	}
	lex := n.t.NodeName(n.pre)
	q := QName{Local: lex}
	if prefix, local, ok := strings.Cut(lex, ":"); ok {
		q.Prefix, q.Local = prefix, local
	}
	q.URI = n.URI()
	return q
}

// URI returns the namespace URI of the node name.
func (n *Node) URI() string {
	if !n.uriDone {
		n.uri = n.t.URI(n.pre)
		n.uriDone = true
	}
	return n.uri
}

// StringValue returns the string value of the node.
func (n *Node) StringValue() string {
	if !n.valueDone {
		n.value = n.t.Atom(n.pre)
		n.valueDone = true
	}
	return n.value
}

// BaseURI returns the base URI. For documents it is the document URI,
// prefixed with the database name when the table is persistent. Other nodes
// inherit the base URI of their document.
func (n *Node) BaseURI() string {
	if n.kind != table.KindDoc {
		root := n.Root()
		if root.kind != table.KindDoc {
			return ""
		}
		return root.BaseURI()
	}
	uri := n.t.Text(n.pre)
	if n.t.InMemory() {
		return uri
	}
	return n.t.Name() + "/" + uri
}

// Namespaces returns the namespace declarations of an element. Other kinds
// have none.
func (n *Node) Namespaces() []table.NSBinding {
	if n.kind != table.KindElem {
		return nil
	}
	if !n.nsDone {
		n.ns = n.t.Namespaces(n.pre)
		n.nsDone = true
	}
	return n.ns
}

// HasChildren reports whether the node has child nodes.
func (n *Node) HasChildren() bool {
	if !n.kind.HasChildren() {
		return false
	}
	return n.t.Size(n.pre, n.kind) > n.t.AttSize(n.pre, n.kind)
}

// Parent returns the parent node or nil.
func (n *Node) Parent() *Node {
	if !n.parentDone {
		if p, ok := n.t.Parent(n.pre, n.kind); ok {
			n.parent = New(n.t, p)
		}
		n.parentDone = true
	}
	return n.parent
}

// Root returns the topmost ancestor-or-self of n.
func (n *Node) Root() *Node {
	r := n
	for p := r.Parent(); p != nil; p = r.Parent() {
		r = p
	}
	return r
}

// Is reports whether n and o denote the same node.
func (n *Node) Is(o *Node) bool {
	return n == o || (n.t == o.t && n.pre == o.pre)
}

// Copy returns a handle to the same node without cached parent or
// namespace state. The score is kept.
func (n *Node) Copy() *Node {
	return &Node{t: n.t, pre: n.pre, kind: n.kind, score: n.score}
}

// WithParent returns a copy of n whose parent is p. Used to attach a
// fragment root to a logical parent in another table.
func (n *Node) WithParent(p *Node) *Node {
	c := n.Copy()
	c.parent = p
	c.parentDone = true
	return c
}

// WithScore returns a copy of n carrying score s.
func (n *Node) WithScore(s float64) *Node {
	c := *n
	c.score = s
	return &c
}

// String returns the string value, making Node an xdm.Item.
func (n *Node) String() string { return n.StringValue() }

func (n *Node) Size() int                         { return 1 }
func (n *Node) ItemAt(int) xdm.Item               { return n }
func (n *Node) Iter() xdm.Iter                    { return xdm.ValueIter(n) }
func (n *Node) WriteTo(buf []xdm.Item, off int) int { return xdm.WriteItem(n, buf, off) }
func (n *Node) EBV() (bool, error)                { return true, nil }
func (n *Node) SeqType() xdm.SeqType              { return xdm.SeqType{Type: n.Type(), Occ: xdm.OccOne} }
func (n *Node) Score() float64                    { return n.score }

// Type returns the item type of the node kind.
func (n *Node) Type() xdm.Type {
	return KindType(n.kind)
}

// KindType maps a node kind to its item type.
func KindType(k table.Kind) xdm.Type {
	switch k {
	case table.KindDoc:
		return xdm.TypeDocument
	case table.KindElem:
		return xdm.TypeElement
	case table.KindText:
		return xdm.TypeText
	case table.KindAttr:
		return xdm.TypeAttribute
	case table.KindComment:
		return xdm.TypeComment
	case table.KindPI:
		return xdm.TypePI
	default:
		panic(fmt.Sprintf("node: invalid kind %d", uint8(k)))
	}
}

// GoString identifies the handle in test failures.
func (n *Node) GoString() string {
	return fmt.Sprintf("node(%d:%d %s %q)", n.t.ID(), n.pre, n.kind, n.t.NodeName(n.pre))
}

package table

import "fmt"

// Kind is the node kind stored in a record.
type Kind uint8

const (
	// KindDoc is a document node. Documents are always top-level.
	KindDoc Kind = iota
	// KindElem is an element node.
	KindElem
	// KindText is a text node.
	KindText
	// KindAttr is an attribute node.
	KindAttr
	// KindComment is a comment node.
	KindComment
	// KindPI is a processing instruction.
	KindPI
)

var kindNames = [...]string{
	KindDoc:     "document-node",
	KindElem:    "element",
	KindText:    "text",
	KindAttr:    "attribute",
	KindComment: "comment",
	KindPI:      "processing-instruction",
}

// String returns the XPath kind test name of k.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k <= KindPI
}

// HasChildren reports whether nodes of this kind can own a subtree.
func (k Kind) HasChildren() bool {
	switch k {
	case KindDoc, KindElem:
		return true
	case KindText, KindAttr, KindComment, KindPI:
		return false
	default:
		panic(fmt.Sprintf("table: invalid kind %d", uint8(k)))
	}
}

// Named reports whether nodes of this kind carry a name id.
func (k Kind) Named() bool {
	switch k {
	case KindElem, KindAttr, KindPI:
		return true
	case KindDoc, KindText, KindComment:
		return false
	default:
		panic(fmt.Sprintf("table: invalid kind %d", uint8(k)))
	}
}

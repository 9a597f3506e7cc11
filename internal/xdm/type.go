package xdm

import "fmt"

// Type is an item type. Types form a tree rooted at TypeItem; see Parent.
type Type uint8

const (
	TypeItem Type = iota
	TypeNode
	TypeDocument
	TypeElement
	TypeText
	TypeAttribute
	TypeComment
	TypePI
	TypeAtomic
	TypeUntyped
	TypeString
	TypeBoolean
	TypeNumeric
	TypeInteger
	TypeDouble
	TypeFunction
)

var typeNames = [...]string{
	TypeItem:      "item()",
	TypeNode:      "node()",
	TypeDocument:  "document-node()",
	TypeElement:   "element()",
	TypeText:      "text()",
	TypeAttribute: "attribute()",
	TypeComment:   "comment()",
	TypePI:        "processing-instruction()",
	TypeAtomic:    "xs:anyAtomicType",
	TypeUntyped:   "xs:untypedAtomic",
	TypeString:    "xs:string",
	TypeBoolean:   "xs:boolean",
	TypeNumeric:   "xs:numeric",
	TypeInteger:   "xs:integer",
	TypeDouble:    "xs:double",
	TypeFunction:  "function(*)",
}

// String returns the sequence type syntax of t.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Parent returns the direct supertype of t. TypeItem is its own parent.
func (t Type) Parent() Type {
	switch t {
	case TypeItem:
		return TypeItem
	case TypeNode, TypeAtomic, TypeFunction:
		return TypeItem
	case TypeDocument, TypeElement, TypeText, TypeAttribute, TypeComment, TypePI:
		return TypeNode
	case TypeUntyped, TypeString, TypeBoolean, TypeNumeric:
		return TypeAtomic
	case TypeInteger, TypeDouble:
		return TypeNumeric
	default:
		panic(fmt.Sprintf("xdm: invalid type %d", uint8(t)))
	}
}

// InstanceOf reports whether t equals u or is one of its subtypes.
func (t Type) InstanceOf(u Type) bool {
	for x := t; ; x = x.Parent() {
		if x == u {
			return true
		}
		if x == TypeItem {
			return false
		}
	}
}

// Union returns the most specific common supertype of t and u.
func (t Type) Union(u Type) Type {
	for x := t; ; x = x.Parent() {
		if u.InstanceOf(x) {
			return x
		}
	}
}

// IsNode reports whether t is a node type.
func (t Type) IsNode() bool { return t.InstanceOf(TypeNode) }

// IsNumeric reports whether t is a numeric type.
func (t Type) IsNumeric() bool { return t.InstanceOf(TypeNumeric) }

// IsAtomic reports whether t is an atomic type.
func (t Type) IsAtomic() bool { return t.InstanceOf(TypeAtomic) }

// LookupType returns the type written as name in a sequence type, such as
// "xs:integer" or "element()".
func LookupType(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name {
			return Type(t), true
		}
	}
	return 0, false
}

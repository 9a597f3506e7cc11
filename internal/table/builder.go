package table

import (
	"errors"
	"fmt"
)

// Builder appends nodes in document order and computes sizes as nodes are
// closed. Misuse is recorded and reported by Finish.
//
//	b := table.NewBuilder("")
//	b.StartDoc("a.xml")
//	b.StartElem("a", nil)
//	b.StartElem("b", nil)
//	b.EndElem()
//	b.EndElem()
//	b.EndDoc()
//	t, err := b.Finish()
type Builder struct {
	t        *Table
	open     []int
	lastText int
	err      error
}

// NewBuilder creates a builder for a table named name.
func NewBuilder(name string) *Builder {
	return &Builder{t: New(name), lastText: -1}
}

// StartDoc opens a document node. Documents must be top-level.
func (b *Builder) StartDoc(uri string) int {
	if len(b.open) > 0 {
		b.fail(fmt.Errorf("document %q must be top-level", uri))
		return -1
	}
	p := b.t.Append(Record{Kind: KindDoc, Size: 1, AttSize: 1, Text: b.t.AddText(uri)})
	b.open = append(b.open, p)
	b.lastText = -1
	return p
}

// EndDoc closes the current document.
func (b *Builder) EndDoc() {
	b.close(KindDoc)
}

// StartElem opens an element with optional namespace declarations.
func (b *Builder) StartElem(name string, ns []NSBinding) int {
	if name == "" {
		b.fail(errors.New("element name is empty"))
		return -1
	}
	p := b.t.Append(Record{
		Kind:    KindElem,
		Name:    b.t.names.Index(name),
		Size:    1,
		AttSize: 1,
		Text:    NoText,
		NS:      b.t.AddNamespaces(ns),
	})
	b.open = append(b.open, p)
	b.lastText = -1
	return p
}

// Attr adds an attribute to the element opened last. Attributes must be
// added before any child.
func (b *Builder) Attr(name, value string) int {
	if len(b.open) == 0 {
		b.fail(fmt.Errorf("attribute %q outside element", name))
		return -1
	}
	owner := b.open[len(b.open)-1]
	r := &b.t.records[owner]
	if r.Kind != KindElem {
		b.fail(fmt.Errorf("attribute %q on %s", name, r.Kind))
		return -1
	}
	if b.t.Len() != owner+int(r.AttSize) {
		b.fail(fmt.Errorf("attribute %q after child content", name))
		return -1
	}
	nameID := b.t.names.Index(name)
	for q := owner + 1; q < owner+int(r.AttSize); q++ {
		if b.t.records[q].Name == nameID {
			b.fail(fmt.Errorf("duplicate attribute %q", name))
			return -1
		}
	}
	r.AttSize++
	b.lastText = -1
	return b.t.Append(Record{Kind: KindAttr, Name: nameID, Size: 1, AttSize: 1, Text: b.t.AddText(value)})
}

// Text adds character data. Adjacent text is merged into one node and
// empty text is dropped.
func (b *Builder) Text(s string) int {
	if s == "" {
		return -1
	}
	if b.lastText >= 0 && b.lastText == b.t.Len()-1 {
		id := b.t.records[b.lastText].Text
		b.t.texts[id] += s
		return b.lastText
	}
	p := b.leaf(KindText, 0, s)
	b.lastText = p
	return p
}

// Comment adds a comment node.
func (b *Builder) Comment(s string) int {
	p := b.leaf(KindComment, 0, s)
	b.lastText = -1
	return p
}

// PI adds a processing instruction.
func (b *Builder) PI(target, content string) int {
	p := b.leaf(KindPI, b.t.names.Index(target), content)
	b.lastText = -1
	return p
}

// EndElem closes the current element.
func (b *Builder) EndElem() {
	b.close(KindElem)
}

// Depth returns the number of open nodes.
func (b *Builder) Depth() int {
	return len(b.open)
}

// Finish returns the built table. It fails if nodes are still open or any
// earlier call was invalid.
func (b *Builder) Finish() (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.open) > 0 {
		p := b.open[len(b.open)-1]
		return nil, fmt.Errorf("unclosed %s at %d", b.t.Kind(p), p)
	}
	return b.t, nil
}

func (b *Builder) leaf(k Kind, name int32, s string) int {
	return b.t.Append(Record{Kind: k, Name: name, Size: 1, AttSize: 1, Text: b.t.AddText(s)})
}

func (b *Builder) close(k Kind) {
	if len(b.open) == 0 {
		b.fail(fmt.Errorf("end of %s without start", k))
		return
	}
	p := b.open[len(b.open)-1]
	if b.t.records[p].Kind != k {
		b.fail(fmt.Errorf("end of %s closes %s at %d", k, b.t.records[p].Kind, p))
		return
	}
	b.open = b.open[:len(b.open)-1]
	b.t.records[p].Size = int32(b.t.Len() - p)
	b.lastText = -1
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

package table

import (
	"fmt"
	"slices"
)

// Delete removes the node at pre and its subtree. Text nodes that become
// adjacent are merged.
func (t *Table) Delete(pre int) error {
	if err := t.checkPos(pre); err != nil {
		return err
	}
	k := t.Kind(pre)
	size := t.Size(pre, k)

	// Ancestors precede pre, so their positions survive the removal.
	anc := t.ancestors(pre, k)
	t.records = slices.Delete(t.records, pre, pre+size)
	for _, a := range anc {
		t.records[a].Size -= int32(size)
	}
	if k == KindAttr && len(anc) > 0 {
		t.records[anc[0]].AttSize--
	}
	t.mergeText(pre)
	t.version++
	return nil
}

// InsertSubtree copies the node at srcPre of src, with its subtree, into t
// as the last child of parent. Inserting a document inserts its children.
// It returns the position of the first inserted record. A leading text
// node joins a text node that was the last child of parent, and the
// returned position is then that of the joined record.
func (t *Table) InsertSubtree(parent int, src *Table, srcPre int) (int, error) {
	if err := t.checkPos(parent); err != nil {
		return -1, err
	}
	pk := t.Kind(parent)
	if !pk.HasChildren() {
		return -1, fmt.Errorf("cannot insert into %s at %d", pk, parent)
	}
	if srcPre < 0 || srcPre >= src.Len() {
		return -1, fmt.Errorf("source position %d out of range [0,%d)", srcPre, src.Len())
	}

	sk := src.Kind(srcPre)
	from, to := srcPre, srcPre+src.Size(srcPre, sk)
	switch sk {
	case KindDoc:
		from = srcPre + 1
	case KindAttr:
		return -1, fmt.Errorf("attributes must be inserted with InsertAttr")
	case KindElem, KindText, KindComment, KindPI:
	}
	n := to - from
	if n == 0 {
		return parent + t.Size(parent, pk), nil
	}

	recs := make([]Record, 0, n)
	for q := from; q < to; q++ {
		r := src.records[q]
		if r.Name != 0 {
			r.Name = t.names.Index(src.names.Lookup(r.Name))
		}
		if r.Text != NoText {
			r.Text = t.AddText(src.texts[r.Text])
		}
		if r.NS != 0 {
			r.NS = t.AddNamespaces(src.nsDecls[r.NS])
		}
		recs = append(recs, r)
	}

	at := parent + t.Size(parent, pk)
	t.records = slices.Insert(t.records, at, recs...)
	t.growEnclosing(parent, pk, n)
	if t.mergeText(at) {
		at--
	}
	t.version++
	return at, nil
}

// InsertAttr adds an attribute to the element at parent and returns its
// position.
func (t *Table) InsertAttr(parent int, name, value string) (int, error) {
	if err := t.checkPos(parent); err != nil {
		return -1, err
	}
	if t.Kind(parent) != KindElem {
		return -1, fmt.Errorf("cannot add attribute to %s at %d", t.Kind(parent), parent)
	}
	nameID := t.names.Index(name)
	as := t.AttSize(parent, KindElem)
	for q := parent + 1; q < parent+as; q++ {
		if t.records[q].Name == nameID {
			return -1, fmt.Errorf("duplicate attribute %q at %d", name, parent)
		}
	}
	at := parent + as
	r := Record{Kind: KindAttr, Name: nameID, Size: 1, AttSize: 1, Text: t.AddText(value)}
	t.records = slices.Insert(t.records, at, r)
	t.records[parent].AttSize++
	t.growEnclosing(parent, KindElem, 1)
	t.version++
	return at, nil
}

// mergeText joins the text node at p into a text sibling at p-1. It
// reports whether the records were merged.
func (t *Table) mergeText(p int) bool {
	if p <= 0 || p >= len(t.records) {
		return false
	}
	if t.records[p-1].Kind != KindText || t.records[p].Kind != KindText {
		return false
	}
	par, ok := t.Parent(p, KindText)
	if prev, _ := t.Parent(p-1, KindText); !ok || prev != par {
		return false
	}
	t.texts[t.records[p-1].Text] += t.Text(p)
	t.records = slices.Delete(t.records, p, p+1)
	t.growEnclosing(par, t.Kind(par), -1)
	return true
}

// growEnclosing adds n to the size of p and all of its ancestors.
func (t *Table) growEnclosing(p int, k Kind, n int) {
	t.records[p].Size += int32(n)
	for _, a := range t.ancestors(p, k) {
		t.records[a].Size += int32(n)
	}
}

// ancestors returns the ancestors of p, nearest first.
func (t *Table) ancestors(p int, k Kind) []int {
	var out []int
	for {
		par, ok := t.Parent(p, k)
		if !ok {
			return out
		}
		out = append(out, par)
		p, k = par, t.Kind(par)
	}
}

func (t *Table) checkPos(p int) error {
	if p < 0 || p >= len(t.records) {
		return fmt.Errorf("position %d out of range [0,%d)", p, len(t.records))
	}
	return nil
}

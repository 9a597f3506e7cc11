package table

import (
	"errors"
	"fmt"
)

// StructuralError reports a violated table invariant. It indicates a corrupt
// table and is never recovered from.
type StructuralError struct {
	Pre     int
	Message string
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	return fmt.Sprintf("corrupt table at %d: %s", e.Pre, e.Message)
}

// IsStructural reports whether err is or wraps a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// Validate checks the range invariants of every record: sizes are positive
// and nested, attributes directly follow their element, and the top-level
// nodes tile the whole table.
func (t *Table) Validate() error {
	n := len(t.records)
	for p := 0; p < n; p++ {
		if err := t.validateRecord(p); err != nil {
			return err
		}
	}
	for p := 0; p < n; {
		k := t.records[p].Kind
		if k == KindAttr {
			return &StructuralError{Pre: p, Message: "attribute at top level"}
		}
		p += t.Size(p, k)
	}
	return nil
}

func (t *Table) validateRecord(p int) error {
	r := t.records[p]
	if !r.Kind.Valid() {
		return &StructuralError{Pre: p, Message: fmt.Sprintf("invalid kind %d", r.Kind)}
	}
	if r.Text != NoText && (r.Text < 0 || int(r.Text) >= len(t.texts)) {
		return &StructuralError{Pre: p, Message: fmt.Sprintf("text id %d out of range", r.Text)}
	}
	if r.NS < 0 || int(r.NS) >= len(t.nsDecls) {
		return &StructuralError{Pre: p, Message: fmt.Sprintf("namespace id %d out of range", r.NS)}
	}
	if r.Name < 0 || int(r.Name) >= t.names.Len() {
		return &StructuralError{Pre: p, Message: fmt.Sprintf("name id %d out of range", r.Name)}
	}

	switch r.Kind {
	case KindText, KindAttr, KindComment, KindPI:
		if r.Size != 1 || r.AttSize != 1 {
			return &StructuralError{Pre: p, Message: fmt.Sprintf("%s with size %d/%d", r.Kind, r.Size, r.AttSize)}
		}
		return nil
	case KindDoc:
		if r.AttSize != 1 {
			return &StructuralError{Pre: p, Message: "document with attributes"}
		}
	case KindElem:
	}

	end := p + int(r.Size)
	if r.Size < 1 || end > len(t.records) {
		return &StructuralError{Pre: p, Message: fmt.Sprintf("size %d exceeds table", r.Size)}
	}
	if r.AttSize < 1 || r.AttSize > r.Size {
		return &StructuralError{Pre: p, Message: fmt.Sprintf("attribute size %d outside [1,%d]", r.AttSize, r.Size)}
	}
	for q := p + 1; q < p+int(r.AttSize); q++ {
		if t.records[q].Kind != KindAttr {
			return &StructuralError{Pre: q, Message: "non-attribute inside attribute range"}
		}
	}
	prev := KindAttr
	for c := p + int(r.AttSize); c < end; {
		ck := t.records[c].Kind
		if !ck.Valid() {
			return &StructuralError{Pre: c, Message: fmt.Sprintf("invalid kind %d", ck)}
		}
		switch ck {
		case KindAttr:
			return &StructuralError{Pre: c, Message: "attribute inside child range"}
		case KindDoc:
			return &StructuralError{Pre: c, Message: "nested document"}
		case KindText:
			if prev == KindText {
				return &StructuralError{Pre: c, Message: "adjacent text nodes"}
			}
		case KindElem, KindComment, KindPI:
		}
		prev = ck
		cs := t.Size(c, ck)
		if cs < 1 || c+cs > end {
			return &StructuralError{Pre: c, Message: fmt.Sprintf("child range escapes parent %d", p)}
		}
		c += cs
	}
	return nil
}

package node

import (
	"bufio"
	"io"
	"strings"

	"github.com/roach88/xqdb/internal/table"
	"github.com/roach88/xqdb/internal/xdm"
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;", "\n", "&#xA;", "\t", "&#x9;")
)

// Serialize writes n as XML. Documents write their children; attributes
// write name="value"; namespace declarations are emitted where they were
// declared.
func Serialize(w io.Writer, n *Node) error {
	bw := bufio.NewWriter(w)
	writeNode(bw, n.t, n.pre)
	return bw.Flush()
}

// XML returns the serialization of n.
func XML(n *Node) string {
	var sb strings.Builder
	_ = Serialize(&sb, n)
	return sb.String()
}

func writeNode(w *bufio.Writer, t *table.Table, p int) {
	switch k := t.Kind(p); k {
	case table.KindDoc:
		end := p + t.Size(p, k)
		for c := p + 1; c < end; c += t.Size(c, t.Kind(c)) {
			writeNode(w, t, c)
		}
	case table.KindElem:
		name := t.NodeName(p)
		w.WriteByte('<')
		w.WriteString(name)
		for _, b := range t.Namespaces(p) {
			if b.Prefix == "" {
				w.WriteString(` xmlns="`)
			} else {
				w.WriteString(" xmlns:" + b.Prefix + `="`)
			}
			attrEscaper.WriteString(w, b.URI)
			w.WriteByte('"')
		}
		as := t.AttSize(p, k)
		for q := p + 1; q < p+as; q++ {
			w.WriteByte(' ')
			writeAttr(w, t, q)
		}
		end := p + t.Size(p, k)
		if p+as == end {
			w.WriteString("/>")
			return
		}
		w.WriteByte('>')
		for c := p + as; c < end; c += t.Size(c, t.Kind(c)) {
			writeNode(w, t, c)
		}
		w.WriteString("</" + name + ">")
	case table.KindAttr:
		writeAttr(w, t, p)
	case table.KindText:
		textEscaper.WriteString(w, t.Text(p))
	case table.KindComment:
		w.WriteString("<!--" + t.Text(p) + "-->")
	case table.KindPI:
		w.WriteString("<?" + t.NodeName(p))
		if s := t.Text(p); s != "" {
			w.WriteString(" " + s)
		}
		w.WriteString("?>")
	}
}

func writeAttr(w *bufio.Writer, t *table.Table, p int) {
	w.WriteString(t.NodeName(p) + `="`)
	attrEscaper.WriteString(w, t.Text(p))
	w.WriteByte('"')
}

// ItemString renders an item for output: nodes as XML, other items by
// their string form.
func ItemString(it xdm.Item) string {
	if n, ok := it.(*Node); ok {
		return XML(n)
	}
	return it.String()
}

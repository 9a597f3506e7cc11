package importer

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/xqdb/internal/table"
)

// Options controls how XML text is mapped onto table records.
type Options struct {
	// StripWhitespace drops text nodes that consist only of whitespace.
	StripWhitespace bool
	// StripNamespaces drops prefixes and namespace declarations.
	StripNamespaces bool
	// Normalize converts text, attribute values and names to NFC.
	Normalize bool
	// SkipComments and SkipPIs drop comments and processing instructions.
	SkipComments bool
	SkipPIs      bool
}

// DefaultOptions strips boundary whitespace and normalizes to NFC.
func DefaultOptions() Options {
	return Options{StripWhitespace: true, Normalize: true}
}

// ParseError is a malformed-input error with the position where parsing
// stopped.
type ParseError struct {
	URI       string
	Line, Col int
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %v", e.URI, e.Line, e.Col, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads one XML document from r into a new table named name. The
// document node carries uri.
func Parse(r io.Reader, name, uri string, opts Options) (*table.Table, error) {
	b := table.NewBuilder(name)
	if err := ParseInto(b, r, uri, opts); err != nil {
		return nil, err
	}
	return b.Finish()
}

// ParseString is Parse over a string.
func ParseString(src, name, uri string, opts Options) (*table.Table, error) {
	return Parse(strings.NewReader(src), name, uri, opts)
}

// ParseInto appends one document to b.
func ParseInto(b *table.Builder, r io.Reader, uri string, opts Options) error {
	b.StartDoc(uri)
	p := newParser(b, r, uri, opts, false)
	if err := p.run(); err != nil {
		return err
	}
	if p.roots != 1 {
		return p.errorf("document has %d root elements, want 1", p.roots)
	}
	b.EndDoc()
	return nil
}

// ParseFragment reads a sequence of nodes without a document node. Top-level
// text is kept, so "a<b/>c" yields three nodes.
func ParseFragment(r io.Reader, opts Options) (*table.Table, error) {
	b := table.NewBuilder("")
	p := newParser(b, r, "fragment", opts, true)
	if err := p.run(); err != nil {
		return nil, err
	}
	return b.Finish()
}

type parser struct {
	b        *table.Builder
	dec      *xml.Decoder
	uri      string
	opts     Options
	fragment bool

	open  []string // lexical names of open elements
	roots int
	text  strings.Builder // pending character data
}

func newParser(b *table.Builder, r io.Reader, uri string, opts Options, fragment bool) *parser {
	return &parser{b: b, dec: xml.NewDecoder(r), uri: uri, opts: opts, fragment: fragment}
}

func (p *parser) errorf(format string, args ...any) error {
	line, col := p.dec.InputPos()
	return &ParseError{URI: p.uri, Line: line, Col: col, Err: fmt.Errorf(format, args...)}
}

func (p *parser) wrap(err error) error {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		_, col := p.dec.InputPos()
		return &ParseError{URI: p.uri, Line: se.Line, Col: col, Err: errors.New(se.Msg)}
	}
	line, col := p.dec.InputPos()
	return &ParseError{URI: p.uri, Line: line, Col: col, Err: err}
}

// run consumes all tokens. RawToken keeps prefixes as written, so element
// nesting is checked here.
func (p *parser) run() error {
	for {
		tok, err := p.dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p.wrap(err)
		}
		if cd, ok := tok.(xml.CharData); ok {
			p.text.Write(cd)
			continue
		}
		if err := p.flushText(); err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.startElement(t); err != nil {
				return err
			}
		case xml.EndElement:
			name := p.qname(t.Name)
			if len(p.open) == 0 || p.open[len(p.open)-1] != name {
				return p.errorf("unexpected end tag </%s>", name)
			}
			p.open = p.open[:len(p.open)-1]
			p.b.EndElem()
		case xml.Comment:
			if !p.opts.SkipComments {
				p.b.Comment(p.norm(string(t)))
			}
		case xml.ProcInst:
			if t.Target == "xml" || p.opts.SkipPIs {
				continue
			}
			p.b.PI(t.Target, p.norm(strings.TrimLeftFunc(string(t.Inst), unicode.IsSpace)))
		case xml.Directive:
		}
	}
	if err := p.flushText(); err != nil {
		return err
	}
	if len(p.open) > 0 {
		return p.errorf("unclosed element <%s>", p.open[len(p.open)-1])
	}
	return nil
}

func (p *parser) startElement(t xml.StartElement) error {
	if len(p.open) == 0 {
		if p.roots > 0 && !p.fragment {
			return p.errorf("element <%s> after the root element", p.qname(t.Name))
		}
		p.roots++
	}
	var ns []table.NSBinding
	var attrs []xml.Attr
	for _, a := range t.Attr {
		switch {
		case a.Name.Space == "xmlns":
			ns = append(ns, table.NSBinding{Prefix: a.Name.Local, URI: a.Value})
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			ns = append(ns, table.NSBinding{URI: a.Value})
		default:
			attrs = append(attrs, a)
		}
	}
	if p.opts.StripNamespaces {
		ns = nil
	}

	name := p.qname(t.Name)
	p.b.StartElem(name, ns)
	for _, a := range attrs {
		p.b.Attr(p.qname(a.Name), p.norm(a.Value))
	}
	p.open = append(p.open, name)
	return nil
}

func (p *parser) flushText() error {
	if p.text.Len() == 0 {
		return nil
	}
	s := p.text.String()
	p.text.Reset()
	if isSpace(s) && (p.opts.StripWhitespace || len(p.open) == 0 && !p.fragment) {
		return nil
	}
	if len(p.open) == 0 && !p.fragment {
		return p.errorf("character data outside the root element")
	}
	p.b.Text(p.norm(s))
	return nil
}

func (p *parser) qname(n xml.Name) string {
	local := p.norm(n.Local)
	if n.Space == "" || p.opts.StripNamespaces {
		return local
	}
	return p.norm(n.Space) + ":" + local
}

func (p *parser) norm(s string) string {
	if p.opts.Normalize {
		return norm.NFC.String(s)
	}
	return s
}

func isSpace(s string) bool {
	for _, r := range s {
		if r != '\uFEFF' && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

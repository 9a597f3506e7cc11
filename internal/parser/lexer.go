package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/xqdb/internal/xdm"
)

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokName
	tokVar
	tokInt
	tokDbl
	tokStr
	tokOp
)

var tokNames = [...]string{
	tokEOF:  "end of query",
	tokName: "name",
	tokVar:  "variable",
	tokInt:  "integer",
	tokDbl:  "number",
	tokStr:  "string",
	tokOp:   "operator",
}

func (k tokKind) String() string { return tokNames[k] }

type token struct {
	kind tokKind
	// text is the name, variable name without "$", literal value or
	// operator.
	text      string
	line, col int
}

func (t token) is(kind tokKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of query"
	case tokVar:
		return "$" + t.text
	case tokStr:
		return `"` + t.text + `"`
	}
	return t.text
}

// ops lists the operators, longest first so that scanning is greedy.
var ops = []string{
	"//", "::", ":=", "!=", "<=", ">=", "<<", ">>", "..",
	"(", ")", "[", "]", "{", "}", ",", "/", "@", ".", "=", "<", ">",
	"+", "-", "*", "|", "#", ";", "?",
}

var entities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", `"`, "&apos;", "'")

type lexer struct {
	src       string
	pos       int
	line, col int
	toks      []token
}

// lex splits src into tokens. Comments "(: ... :)" nest and are skipped.
func lex(src string) ([]token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	for {
		if err := lx.skipSpace(); err != nil {
			return nil, err
		}
		if lx.pos >= len(lx.src) {
			lx.toks = append(lx.toks, token{kind: tokEOF, line: lx.line, col: lx.col})
			return lx.toks, nil
		}
		if err := lx.next(); err != nil {
			return nil, err
		}
	}
}

func (lx *lexer) errorf(format string, args ...any) error {
	return xdm.StaticError(xdm.CodeSyntax, format, args...).At(lx.line, lx.col)
}

func (lx *lexer) advance(n int) {
	for _, r := range lx.src[lx.pos : lx.pos+n] {
		if r == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
	}
	lx.pos += n
}

func (lx *lexer) skipSpace() error {
	for lx.pos < len(lx.src) {
		switch {
		case strings.HasPrefix(lx.src[lx.pos:], "(:"):
			if err := lx.skipComment(); err != nil {
				return err
			}
		case strings.ContainsRune(" \t\r\n", rune(lx.src[lx.pos])):
			lx.advance(1)
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) skipComment() error {
	line, col := lx.line, lx.col
	depth := 0
	for lx.pos < len(lx.src) {
		rest := lx.src[lx.pos:]
		switch {
		case strings.HasPrefix(rest, "(:"):
			depth++
			lx.advance(2)
		case strings.HasPrefix(rest, ":)"):
			depth--
			lx.advance(2)
			if depth == 0 {
				return nil
			}
		default:
			_, n := utf8.DecodeRuneInString(rest)
			lx.advance(n)
		}
	}
	return xdm.StaticError(xdm.CodeSyntax, "unterminated comment").At(line, col)
}

func (lx *lexer) emit(kind tokKind, text string, line, col int) {
	lx.toks = append(lx.toks, token{kind: kind, text: text, line: line, col: col})
}

func (lx *lexer) next() error {
	line, col := lx.line, lx.col
	rest := lx.src[lx.pos:]
	c := rest[0]
	switch {
	case c == '"' || c == '\'':
		return lx.string(c)
	case isDigit(c) || c == '.' && len(rest) > 1 && isDigit(rest[1]):
		return lx.number()
	case c == '$':
		lx.advance(1)
		name := lx.scanName()
		if name == "" {
			return lx.errorf("expected variable name after $")
		}
		lx.emit(tokVar, name, line, col)
		return nil
	case c == '*' && len(rest) > 2 && rest[1] == ':' && isNameStart(rest[2:]):
		lx.advance(2)
		lx.emit(tokName, "*:"+lx.scanNCName(), line, col)
		return nil
	case isNameStart(rest):
		name := lx.scanName()
		if strings.HasPrefix(lx.src[lx.pos:], ":*") {
			lx.advance(2)
			name += ":*"
		}
		lx.emit(tokName, name, line, col)
		return nil
	}
	for _, op := range ops {
		if strings.HasPrefix(rest, op) {
			lx.advance(len(op))
			lx.emit(tokOp, op, line, col)
			return nil
		}
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return lx.errorf("unexpected character %q", r)
}

// scanName reads an NCName or a prefixed QName.
func (lx *lexer) scanName() string {
	name := lx.scanNCName()
	if name == "" {
		return ""
	}
	rest := lx.src[lx.pos:]
	if len(rest) > 1 && rest[0] == ':' && rest[1] != ':' && isNameStart(rest[1:]) {
		lx.advance(1)
		name += ":" + lx.scanNCName()
	}
	return name
}

func (lx *lexer) scanNCName() string {
	start := lx.pos
	for lx.pos < len(lx.src) {
		r, n := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if lx.pos == start && !isNameStartRune(r) || lx.pos > start && !isNameRune(r) {
			break
		}
		lx.advance(n)
	}
	return lx.src[start:lx.pos]
}

func (lx *lexer) number() error {
	line, col := lx.line, lx.col
	start := lx.pos
	kind := tokInt
	digits := func() {
		for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			lx.advance(1)
		}
	}
	digits()
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' && !strings.HasPrefix(lx.src[lx.pos:], "..") {
		kind = tokDbl
		lx.advance(1)
		digits()
	}
	if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
		kind = tokDbl
		lx.advance(1)
		if lx.pos < len(lx.src) && (lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') {
			lx.advance(1)
		}
		expStart := lx.pos
		digits()
		if lx.pos == expStart {
			return lx.errorf("malformed exponent in %q", lx.src[start:lx.pos])
		}
	}
	if lx.pos < len(lx.src) && isNameStart(lx.src[lx.pos:]) {
		return lx.errorf("name directly after number %q", lx.src[start:lx.pos])
	}
	lx.emit(kind, lx.src[start:lx.pos], line, col)
	return nil
}

// string reads a literal delimited by quote. A doubled delimiter stands for
// itself and the predefined entity references are expanded.
func (lx *lexer) string(quote byte) error {
	line, col := lx.line, lx.col
	lx.advance(1)
	var sb strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == quote {
			if lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == quote {
				sb.WriteByte(quote)
				lx.advance(2)
				continue
			}
			lx.advance(1)
			lx.emit(tokStr, entities.Replace(sb.String()), line, col)
			return nil
		}
		_, n := utf8.DecodeRuneInString(lx.src[lx.pos:])
		sb.WriteString(lx.src[lx.pos : lx.pos+n])
		lx.advance(n)
	}
	return xdm.StaticError(xdm.CodeSyntax, "unterminated string literal").At(line, col)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isNameStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return isNameStartRune(r)
}

func isNameStartRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameRune(r rune) bool {
	return isNameStartRune(r) || r == '-' || r == '.' || unicode.IsDigit(r)
}

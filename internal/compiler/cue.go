package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/xqdb/internal/queryir"
)

// clauseKinds are the fields that select the kind of a clause entry.
var clauseKinds = []string{"for", "let", "where", "group_by", "order_by", "count"}

// LoadCUE compiles CUE source and returns the descriptors under its
// top-level "query" struct, in field order.
//
//	query: titles: {
//		externals: ["year"]
//		clauses: [
//			{"for": "b", at: "i", "in": #"doc("lib.xml")//book"#},
//			{where: "$b/@year > $year"},
//			{order_by: [{expr: "$b/title", descending: true}]},
//		]
//		return: "$b/title/string()"
//	}
//
// "for", "let" and "in" are CUE keywords and must be quoted as labels.
func LoadCUE(src []byte, filename string) ([]*queryir.Query, error) {
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	queries := field(v, "query")
	if !queries.Exists() {
		return nil, &CompileError{Code: ErrCUEShape, Field: "query", Message: "no query struct found", Pos: v.Pos()}
	}
	iter, err := queries.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []*queryir.Query
	for iter.Next() {
		q, err := CompileCUE(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// CompileCUE decodes one query descriptor. The query name is taken from the
// last path selector of v.
func CompileCUE(v cue.Value) (*queryir.Query, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	q := &queryir.Query{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		q.Name = labels[len(labels)-1].String()
	}

	if ext := field(v, "externals"); ext.Exists() {
		names, err := stringList(ext, "externals")
		if err != nil {
			return nil, err
		}
		q.Externals = names
	}

	clausesVal := field(v, "clauses")
	if !clausesVal.Exists() {
		return nil, &CompileError{Code: ErrCUEShape, Field: "clauses", Message: "clauses are required", Pos: v.Pos()}
	}
	iter, err := clausesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		c, err := compileClause(iter.Value(), fmt.Sprintf("clauses[%d]", i))
		if err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, c)
	}

	ret, ok, err := optString(v, "return")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &CompileError{Code: ErrCUEShape, Field: "return", Message: "return is required", Pos: v.Pos()}
	}
	q.Return = ret
	return q, nil
}

func compileClause(v cue.Value, path string) (queryir.Clause, error) {
	kind := ""
	for _, k := range clauseKinds {
		if field(v, k).Exists() {
			if kind != "" {
				return nil, &CompileError{Code: ErrCUEShape, Field: path,
					Message: fmt.Sprintf("clause has both %q and %q", kind, k), Pos: v.Pos()}
			}
			kind = k
		}
	}

	switch kind {
	case "for":
		var f queryir.For
		var err error
		if f.Var, err = reqString(v, "for", path); err != nil {
			return nil, err
		}
		if f.In, err = reqString(v, "in", path); err != nil {
			return nil, err
		}
		if f.Pos, _, err = optString(v, "at"); err != nil {
			return nil, err
		}
		if f.Score, _, err = optString(v, "score"); err != nil {
			return nil, err
		}
		if f.AllowEmpty, err = optBool(v, "allowing_empty"); err != nil {
			return nil, err
		}
		return &f, nil

	case "let":
		var l queryir.Let
		var err error
		if l.Var, err = reqString(v, "let", path); err != nil {
			return nil, err
		}
		if l.Expr, err = reqString(v, "expr", path); err != nil {
			return nil, err
		}
		if l.Score, err = optBool(v, "score"); err != nil {
			return nil, err
		}
		return &l, nil

	case "where":
		cond, err := reqString(v, "where", path)
		if err != nil {
			return nil, err
		}
		return &queryir.Where{Cond: cond}, nil

	case "group_by":
		return compileGroupBy(field(v, "group_by"), path)

	case "order_by":
		ob, err := compileOrderBy(field(v, "order_by"), path)
		if err != nil {
			return nil, err
		}
		if ob.Stable, err = optBool(v, "stable"); err != nil {
			return nil, err
		}
		return ob, nil

	case "count":
		name, err := reqString(v, "count", path)
		if err != nil {
			return nil, err
		}
		return &queryir.Count{Var: name}, nil
	}
	return nil, &CompileError{Code: ErrCUEShape, Field: path,
		Message: fmt.Sprintf("clause needs one of %v", clauseKinds), Pos: v.Pos()}
}

// compileGroupBy accepts a list of {var, expr?} keys or a single variable
// name.
func compileGroupBy(v cue.Value, path string) (*queryir.GroupBy, error) {
	if name, err := v.String(); err == nil {
		return &queryir.GroupBy{Keys: []queryir.GroupKey{{Var: name}}}, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Code: ErrCUEShape, Field: path + ".group_by",
			Message: "group_by must be a variable name or a list of keys", Pos: v.Pos()}
	}
	g := &queryir.GroupBy{}
	for i := 0; iter.Next(); i++ {
		kp := fmt.Sprintf("%s.group_by[%d]", path, i)
		name, err := reqString(iter.Value(), "var", kp)
		if err != nil {
			return nil, err
		}
		expr, _, err := optString(iter.Value(), "expr")
		if err != nil {
			return nil, err
		}
		g.Keys = append(g.Keys, queryir.GroupKey{Var: name, Expr: expr})
	}
	return g, nil
}

func compileOrderBy(v cue.Value, path string) (*queryir.OrderBy, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Code: ErrCUEShape, Field: path + ".order_by",
			Message: "order_by must be a list of keys", Pos: v.Pos()}
	}
	ob := &queryir.OrderBy{}
	for i := 0; iter.Next(); i++ {
		kp := fmt.Sprintf("%s.order_by[%d]", path, i)
		kv := iter.Value()
		var k queryir.OrderKey
		if k.Expr, err = reqString(kv, "expr", kp); err != nil {
			return nil, err
		}
		if k.Descending, err = optBool(kv, "descending"); err != nil {
			return nil, err
		}
		empty, ok, err := optString(kv, "empty")
		if err != nil {
			return nil, err
		}
		if ok {
			switch empty {
			case "greatest":
				k.EmptyGreatest = true
			case "least":
			default:
				return nil, &CompileError{Code: ErrCUEShape, Field: kp + ".empty",
					Message: fmt.Sprintf("empty must be \"greatest\" or \"least\", got %q", empty), Pos: kv.Pos()}
			}
		}
		ob.Keys = append(ob.Keys, k)
	}
	return ob, nil
}

func field(v cue.Value, name string) cue.Value {
	return v.LookupPath(cue.MakePath(cue.Str(name)))
}

func reqString(v cue.Value, name, path string) (string, error) {
	s, ok, err := optString(v, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &CompileError{Code: ErrCUEShape, Field: path + "." + name,
			Message: name + " is required", Pos: v.Pos()}
	}
	return s, nil
}

func optString(v cue.Value, name string) (string, bool, error) {
	f := field(v, name)
	if !f.Exists() {
		return "", false, nil
	}
	s, err := f.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func optBool(v cue.Value, name string) (bool, error) {
	f := field(v, name)
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringList(v cue.Value, path string) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Code: ErrCUEShape, Field: path, Message: "expected a list of strings", Pos: v.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

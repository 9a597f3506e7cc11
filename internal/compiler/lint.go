package compiler

import (
	"fmt"

	"github.com/roach88/xqdb/internal/parser"
	"github.com/roach88/xqdb/internal/queryir"
)

// Warning is a static finding that does not prevent compilation.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Level   string `json:"level"` // "warning" or "info"
}

// binding is one variable introduced by a clause.
type binding struct {
	name  string
	field string
	used  bool
}

// Lint reports variables that are bound but never referenced afterwards,
// and variables that hide an earlier binding of the same name. Both may be
// intentional: a position variable kept for readability, a let that
// rebinds a refined value.
//
// References are found lexically, so a name used only inside a nested
// FLWOR that rebinds it still counts as used. Lint assumes q passed
// queryir.Validate.
func Lint(q *queryir.Query) []Warning {
	var (
		warnings []Warning
		bound    []*binding
	)
	use := func(src string) {
		names, err := parser.VarRefs(src)
		if err != nil {
			return
		}
		for _, n := range names {
			for i := len(bound) - 1; i >= 0; i-- {
				if bound[i].name == n {
					bound[i].used = true
					break
				}
			}
		}
	}
	bind := func(name, field string) {
		for _, b := range bound {
			if b.name == name {
				warnings = append(warnings, Warning{
					Field:   field,
					Message: fmt.Sprintf("$%s hides the binding at %s", name, b.field),
					Level:   "info",
				})
				break
			}
		}
		bound = append(bound, &binding{name: name, field: field})
	}

	for i, c := range q.Clauses {
		field := fmt.Sprintf("clauses[%d]", i)
		switch c := deref(c).(type) {
		case queryir.For:
			use(c.In)
			bind(c.Var, field)
			if c.Pos != "" {
				bind(c.Pos, field+".at")
			}
			if c.Score != "" {
				bind(c.Score, field+".score")
			}
		case queryir.Let:
			use(c.Expr)
			bind(c.Var, field)
		case queryir.Where:
			use(c.Cond)
		case queryir.GroupBy:
			for j, k := range c.Keys {
				if k.Expr == "" {
					use("$" + k.Var)
					continue
				}
				use(k.Expr)
				bind(k.Var, fmt.Sprintf("%s.keys[%d]", field, j))
			}
		case queryir.OrderBy:
			for _, k := range c.Keys {
				use(k.Expr)
			}
		case queryir.Count:
			bind(c.Var, field)
		}
	}
	use(q.Return)

	for _, b := range bound {
		if !b.used {
			warnings = append(warnings, Warning{
				Field:   b.field,
				Message: fmt.Sprintf("$%s is never used", b.name),
				Level:   "warning",
			})
		}
	}
	return warnings
}

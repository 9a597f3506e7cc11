package queryir

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidationResult lists the problems found in a query descriptor.
type ValidationResult struct {
	Problems []string
}

// Valid reports whether no problems were found.
func (r ValidationResult) Valid() bool { return len(r.Problems) == 0 }

// Err returns the problems as one error, or nil when the query is valid.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Problems: r.Problems}
}

// ValidationError is returned by ValidationResult.Err.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

// Validate checks the shape of q:
//  1. there is at least one clause and the first one is For or Let
//  2. variable names are well-formed
//  3. the variables of one For binding are distinct
//  4. every expression is non-empty
//  5. group by and order by have at least one key
//  6. externals are unique
//
// Validate does not parse expressions or resolve variable references.
func Validate(q *Query) ValidationResult {
	v := &validator{}
	v.validateQuery(q)
	return ValidationResult{Problems: v.problems}
}

type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q *Query) {
	if q == nil {
		v.addf("nil query")
		return
	}
	seen := make(map[string]bool, len(q.Externals))
	for _, name := range q.Externals {
		v.checkName("external", name)
		if seen[name] {
			v.addf("external $%s declared twice", name)
		}
		seen[name] = true
	}

	if len(q.Clauses) == 0 {
		v.addf("query has no clauses")
	}
	for i, c := range q.Clauses {
		if i == 0 && !isInitial(c) {
			v.addf("clause 1: a query must start with for or let, not %s", clauseName(c))
		}
		v.validateClause(i+1, c)
	}
	if strings.TrimSpace(q.Return) == "" {
		v.addf("return expression is empty")
	}
}

func isInitial(c Clause) bool {
	switch c.(type) {
	case For, *For, Let, *Let:
		return true
	}
	return false
}

func (v *validator) validateClause(n int, c Clause) {
	switch c := c.(type) {
	case For:
		v.validateFor(n, c)
	case *For:
		v.validateFor(n, *c)
	case Let:
		v.validateLet(n, c)
	case *Let:
		v.validateLet(n, *c)
	case Where:
		v.checkExpr(n, "where", c.Cond)
	case *Where:
		v.checkExpr(n, "where", c.Cond)
	case GroupBy:
		v.validateGroupBy(n, c)
	case *GroupBy:
		v.validateGroupBy(n, *c)
	case OrderBy:
		v.validateOrderBy(n, c)
	case *OrderBy:
		v.validateOrderBy(n, *c)
	case Count:
		v.checkName(fmt.Sprintf("clause %d: count", n), c.Var)
	case *Count:
		v.checkName(fmt.Sprintf("clause %d: count", n), c.Var)
	default:
		v.addf("clause %d: unknown clause type %T", n, c)
	}
}

func (v *validator) validateFor(n int, f For) {
	where := fmt.Sprintf("clause %d: for", n)
	v.checkName(where, f.Var)
	names := map[string]string{f.Var: "item"}
	for role, name := range map[string]string{"position": f.Pos, "score": f.Score} {
		if name == "" {
			continue
		}
		v.checkName(where, name)
		if other, ok := names[name]; ok {
			v.addf("%s: $%s used as both %s and %s variable", where, name, other, role)
		}
		names[name] = role
	}
	v.checkExpr(n, "for", f.In)
}

func (v *validator) validateLet(n int, l Let) {
	v.checkName(fmt.Sprintf("clause %d: let", n), l.Var)
	v.checkExpr(n, "let", l.Expr)
}

func (v *validator) validateGroupBy(n int, g GroupBy) {
	if len(g.Keys) == 0 {
		v.addf("clause %d: group by without keys", n)
	}
	for _, k := range g.Keys {
		v.checkName(fmt.Sprintf("clause %d: group by", n), k.Var)
	}
}

func (v *validator) validateOrderBy(n int, o OrderBy) {
	if len(o.Keys) == 0 {
		v.addf("clause %d: order by without keys", n)
	}
	for _, k := range o.Keys {
		v.checkExpr(n, "order by", k.Expr)
	}
}

func (v *validator) checkExpr(n int, clause, src string) {
	if strings.TrimSpace(src) == "" {
		v.addf("clause %d: %s expression is empty", n, clause)
	}
}

// checkName accepts NCNames, optionally with a single prefix.
func (v *validator) checkName(where, name string) {
	if !validName(name) {
		v.addf("%s: invalid variable name %q", where, name)
	}
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	prefix, local, ok := strings.Cut(name, ":")
	if ok {
		return validNCName(prefix) && validNCName(local)
	}
	return validNCName(name)
}

func validNCName(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return s != ""
}

func clauseName(c Clause) string {
	switch c.(type) {
	case For, *For:
		return "for"
	case Let, *Let:
		return "let"
	case Where, *Where:
		return "where"
	case GroupBy, *GroupBy:
		return "group by"
	case OrderBy, *OrderBy:
		return "order by"
	case Count, *Count:
		return "count"
	}
	return fmt.Sprintf("%T", c)
}

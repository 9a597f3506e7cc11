package queryir

// Clause is one FLWOR clause.
//
// This is a sealed interface - only types in this package implement it.
type Clause interface {
	clauseNode()
}

// Query is a complete FLWOR query.
//
// Example:
//
//	Query{
//	  Name:      "titles",
//	  Externals: []string{"year"},
//	  Clauses: []Clause{
//	    &For{Var: "b", Pos: "i", In: `doc("lib.xml")//book`},
//	    &Where{Cond: `$b/@year > $year`},
//	    &OrderBy{Keys: []OrderKey{{Expr: "$b/title"}}},
//	  },
//	  Return: `$b/title/string()`,
//	}
//
// is the query
//
//	declare variable $year external;
//	for $b at $i in doc("lib.xml")//book
//	where $b/@year > $year
//	order by $b/title
//	return $b/title/string()
type Query struct {
	Name      string
	Externals []string // external variables bound at evaluation time
	Clauses   []Clause // first clause must be For or Let
	Return    string
}

// For binds Var to each item of In.
//
// With AllowEmpty an empty source yields one tuple with Var bound to the
// empty sequence and Pos to 0.
type For struct {
	Var        string
	Pos        string // optional positional variable
	Score      string // optional score variable
	AllowEmpty bool
	In         string
}

func (For) clauseNode() {}

// Let binds Var to the whole value of Expr. With Score, Var is bound to
// the score of the value instead.
type Let struct {
	Var   string
	Score bool
	Expr  string
}

func (Let) clauseNode() {}

// Where drops tuples for which Cond is false.
type Where struct {
	Cond string
}

func (Where) clauseNode() {}

// GroupKey is one grouping key. An empty Expr groups by the variable Var
// bound earlier in the query.
type GroupKey struct {
	Var  string
	Expr string
}

// GroupBy merges tuples with equal keys. Variables not used as keys are
// bound to the concatenation of their values in the group.
type GroupBy struct {
	Keys []GroupKey
}

func (GroupBy) clauseNode() {}

// OrderKey is one sort key.
type OrderKey struct {
	Expr          string
	Descending    bool
	EmptyGreatest bool
}

// OrderBy sorts the tuple stream. Sorting is always stable; Stable is kept
// for round-tripping the query text.
type OrderBy struct {
	Keys   []OrderKey
	Stable bool
}

func (OrderBy) clauseNode() {}

// Count binds Var to the 1-based number of each tuple.
type Count struct {
	Var string
}

func (Count) clauseNode() {}

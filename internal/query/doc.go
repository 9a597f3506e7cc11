// Package query evaluates compiled queries as chains of lazy pull
// evaluators.
//
// An expression tree (Expr) is evaluated against a Context holding the
// variable slots, the focus and the cancellation state of one evaluation.
// FLWOR expressions compile into a chain of clause evaluators: each clause
// wraps the evaluator of the clause before it and produces the next tuple
// of variable bindings on demand. Nothing is materialized unless a clause
// needs all tuples at once (order by, group by).
//
// A Compiled query is immutable. Every call to Compiled.Iter creates fresh
// evaluator state, so one compiled query may be evaluated any number of
// times, but a single Result must not be consumed from two goroutines.
package query

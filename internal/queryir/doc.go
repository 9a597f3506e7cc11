// Package queryir is the declarative form of a FLWOR query: an ordered list
// of clause descriptors plus a return expression, each expression kept as
// query source text.
//
// Descriptors are what query files (CUE) and API callers produce. The
// compiler package turns a validated Query into an executable pipeline:
//
//	[CUE file] → [queryir.Query] → compiler.Compile → [query.Compiled]
//
// SEALED INTERFACES:
//
// Clause is sealed with a marker method so the compiler can switch over
// every clause kind exhaustively:
//
//	switch c := clause.(type) {
//	case *For:
//	case *Let:
//	case *Where:
//	case *GroupBy:
//	case *OrderBy:
//	case *Count:
//	}
//
// VARIABLES:
//
// Variable names are written without the leading "$". A clause may refer
// to the variables bound by the clauses before it and to the externals
// declared on the Query. Name resolution happens in the compiler; Validate
// checks only the shape of the descriptor.
package queryir

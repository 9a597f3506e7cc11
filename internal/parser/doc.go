// Package parser reads query text into compiled query pipelines.
//
// The accepted language is an XQuery subset: FLWOR expressions with for
// (allowing empty, at, score), let (including let score), where, group
// by, stable order by and count clauses; conditionals and switch;
// logical, comparison, range, arithmetic, union, intersect and except
// operators; instance of with simple sequence types; path expressions
// over all supported axes with name and kind tests and predicates;
// function calls, named function references and inline functions.
// External variables are declared in a prolog:
//
//	declare variable $limit external;
//	for $b in doc("lib.xml")//book
//	where $b/@year > $limit
//	order by $b/title
//	return $b/title/string()
package parser

// Package node provides node handles over an encoded table and the axis
// iterators that navigate between them.
//
// A Node is a (table, position) pair. Everything else (kind, name, string
// value, namespaces, parent) is derived from the table on demand and cached
// in the handle. Handles never own subtree data and never mutate the table.
//
// Axis iterators are finite and non-restartable: each call to Node.Axis
// returns a fresh iterator whose only state is its cursor position, so two
// iterators over the same origin never interfere.
package node

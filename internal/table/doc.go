// Package table implements the encoded document table: a flat, preorder
// array of fixed-shape node records addressed by position ("pre").
//
// Every node owns the half-open range [pre, pre+size). For elements the
// attribute records occupy [pre+1, pre+attSize) and the remaining children
// occupy [pre+attSize, pre+size). Position order is document order.
//
// There are no parent or child pointers. Navigation is arithmetic over
// (pre, size, attSize):
//
//	first child       pre + attSize
//	next sibling      pre + size
//	end of subtree    pre + size
//	parent            nearest preceding position whose range contains pre
//
// Names and string values are not embedded in records. Records reference a
// per-table name dictionary and text store by id.
//
// # Mutation
//
// InsertSubtree, InsertAttr and Delete shift all following positions and
// repair every enclosing range. Text siblings never stay adjacent; an
// update that would leave them so merges them into one record. A table must not be mutated while a query
// is traversing it; serialising readers against writers is the job of the
// session layer.
package table

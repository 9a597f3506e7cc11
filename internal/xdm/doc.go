// Package xdm defines the value and sequence model shared by the node layer
// and the query evaluator.
//
// Every value is an immutable sequence. An Item is a sequence of exactly one
// item; Empty is the empty sequence. Sequences are either general item
// sequences (ItemSeq) or native sequences backed by a homogeneous Go slice
// (IntSeq, DblSeq, StrSeq, BoolSeq, RangeSeq).
//
// Native sequences have a static item type and O(1) ItemAt. Coercing one with
// more than one item to a boolean is a type error (FORG0006): only empty
// sequences, singletons and sequences starting with a node have an
// effective boolean value.
//
// Sequences of unknown length are assembled with a Builder and frozen with
// Builder.Value. Iter is the pull interface used by lazy evaluation; a nil
// item marks the end.
package xdm
